package pty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	ptylib "github.com/creack/pty"
	"go.uber.org/zap"
)

// Handle is the master side of a pty together with the shell it supervises.
// Reads and writes may run concurrently from different goroutines; the
// descriptor serializes them.
type Handle struct {
	Cmd *exec.Cmd
	Pty *os.File

	logger  *zap.Logger
	exited  chan struct{}
	waitErr error
}

// Read reads shell output. It blocks until at least one byte is available.
// Once the shell side is gone it returns io.EOF.
func (h *Handle) Read(p []byte) (int, error) {
	n, err := h.Pty.Read(p)
	if err != nil && errors.Is(err, syscall.EIO) {
		// Linux reports a hung-up slave as EIO on the master.
		return n, io.EOF
	}
	return n, err
}

// Write delivers p to the shell's input.
func (h *Handle) Write(p []byte) (int, error) {
	return h.Pty.Write(p)
}

// Resize sets the kernel window size on the master. Calling it repeatedly
// with the same size has no further effect.
func (h *Handle) Resize(size Size) error {
	if err := ptylib.Setsize(h.Pty, size.winsize()); err != nil {
		return fmt.Errorf("%w: %w", ErrResize, err)
	}
	return nil
}

// Size returns the window size currently set on the master.
func (h *Handle) Size() (Size, error) {
	ws, err := ptylib.GetsizeFull(h.Pty)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: ws.Cols, Height: ws.Rows}, nil
}

// Exited is closed once the shell process has been reaped.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// ExitErr returns the shell's wait error. Only valid after Exited is closed.
func (h *Handle) ExitErr() error {
	return h.waitErr
}
