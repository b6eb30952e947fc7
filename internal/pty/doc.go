// Package pty owns the pseudo-terminal side of a parterm session: opening a
// master/slave pair, spawning the shell on the slave as its session leader
// and controlling process, and exposing byte-stream I/O and resize on the
// master. Shell detection lives here too.
package pty
