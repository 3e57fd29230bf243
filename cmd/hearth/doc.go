// Command hearth is the client CLI for the hearth daemon: interactive chat,
// liveness checks, status reporting, and daemon lifecycle management.
package main
