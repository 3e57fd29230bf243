// Package dispatch routes decoded requests to the gateway, the response
// cache, or the liveness handlers, and assembles the response payload.
//
// It is a single-transition state machine per request with no retries of its
// own; retry policy lives inside the gateway. Validation failures (empty
// conversation, unknown action, streaming over the request/response channel)
// are answered with structured error objects and never reach the gateway or
// the cache.
package dispatch
