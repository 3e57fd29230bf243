// Package ipc is the client side of the daemon's socket protocol. It dials
// the unix socket or loopback TCP address, performs a single framed
// request/reply exchange, and hands back the decoded reply.
package ipc
