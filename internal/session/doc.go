// Package session supervises one parterm server session: it puts the
// controlling terminal in raw mode, spawns the shell in a pty, opens the
// command pipe, starts the multiplexer and signal bridge, and tears all of
// it down again when the shell's output ends or SIGTERM arrives.
package session
