// Package gateway wraps an OpenAI-compatible chat completion endpoint behind
// a single persistent HTTP session shared by every request in the process.
//
// # Entry Points
//
// NewClient: construct from Config.
// Client.Complete: non-streaming completion; returns the first non-empty
// content, or "" when the remote produced none.
// Client.Stream: lazy SSE fragment sequence, consumed exactly once.
// Client.Warmup: throwaway completion at daemon startup to force lazy
// initialization before real traffic arrives.
//
// # Failure Behaviour
//
// The client retries HTTP 408/429/5xx and network timeouts with exponential
// backoff (base 1s, max 10s, 3 attempts by default), honoring Retry-After.
// Context cancellation aborts retries immediately. Exhausted retries and
// hard rejections surface as *FailureError carrying the remote detail;
// "call failed" and "no content produced" are never conflated.
package gateway
