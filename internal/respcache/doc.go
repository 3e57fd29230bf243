// Package respcache caches whole chat completions keyed by a deterministic
// fingerprint of the conversation and sampling parameters.
//
// Only fully materialized completions are cacheable; streaming requests never
// touch the cache because a stream's value is not known until consumed.
// Lookup and Store are safe across concurrent connection handlers. There is
// no single-flight de-duplication: concurrent identical requests may both
// miss and both compute, which costs latency, not correctness.
package respcache
