// Package server owns the listening socket and the per-connection
// goroutines. It speaks the sentinel-framed wire protocol on either a unix
// socket or a loopback TCP address and hands every decoded request to a
// Handler, which is the only place request semantics live.
package server
