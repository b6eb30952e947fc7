// Package tty manages the operator's controlling terminal for the duration
// of a session: raw mode on acquisition, the original mode on release.
package tty

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

const devTTY = "/dev/tty"

// ErrNotTerminal is returned when the file is not a terminal device.
var ErrNotTerminal = errors.New("not a terminal")

// Terminal is a terminal device switched to raw mode. Restore must be called
// on every exit path; it is safe to call more than once.
type Terminal struct {
	file  *os.File
	fd    int
	state *term.State
	owned bool
	once  sync.Once
	err   error
}

// Open opens the process's controlling terminal and puts it in raw mode.
func Open() (*Terminal, error) {
	f, err := os.OpenFile(devTTY, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", devTTY, err)
	}
	t, err := FromFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	t.owned = true
	return t, nil
}

// FromFile puts an already open terminal in raw mode. The caller keeps
// ownership of f.
func FromFile(f *os.File) (*Terminal, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s: %w", f.Name(), ErrNotTerminal)
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	return &Terminal{file: f, fd: fd, state: state}, nil
}

// Read reads raw keyboard bytes.
func (t *Terminal) Read(p []byte) (int, error) {
	return t.file.Read(p)
}

// Write writes to the terminal. os.File writes are unbuffered, so returning
// means the bytes reached the device.
func (t *Terminal) Write(p []byte) (int, error) {
	return t.file.Write(p)
}

// Size returns the terminal's current width (columns) and height (rows).
func (t *Terminal) Size() (width, height int, err error) {
	return term.GetSize(t.fd)
}

// Restore puts the terminal back into the mode it had before raw mode was
// entered and closes the device if Open created it.
func (t *Terminal) Restore() error {
	t.once.Do(func() {
		t.err = term.Restore(t.fd, t.state)
		if t.owned {
			if err := t.file.Close(); err != nil && t.err == nil {
				t.err = err
			}
		}
	})
	return t.err
}
