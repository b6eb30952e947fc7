// Package pipe implements the command channel: a named pipe per session name
// in a shared directory. The server side creates the pipe if needed and
// reads from it; clients only ever open an existing pipe and fail with
// ErrNoServer when there is none.
//
// Pipe files are named parterm_<name>.pipe. The presence of the file is what
// tells other processes that a server is listening on that name.
package pipe
