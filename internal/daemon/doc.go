// Package daemon assembles the long-running process: single-instance lock,
// pid file, warmed gateway client, response cache, dispatcher, and socket
// server. Startup failures carry StartupError so the entrypoint can exit
// non-zero; everything after startup degrades per request instead.
package daemon
