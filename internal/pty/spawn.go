package pty

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	ptylib "github.com/creack/pty"
	"go.uber.org/zap"
)

var (
	// ErrOpenPty is returned when the master/slave pair cannot be allocated.
	ErrOpenPty = errors.New("failed to open pty")
	// ErrSpawnShell is returned when the shell process cannot be started.
	ErrSpawnShell = errors.New("failed to spawn shell")
	// ErrResize is returned when the window size cannot be applied.
	ErrResize = errors.New("failed to resize pty")
)

// Size is a terminal size in columns (Width) and rows (Height).
type Size struct {
	Width  uint16
	Height uint16
}

// winsize maps Width to the column field and Height to the row field. Pixel
// fields stay zero.
func (s Size) winsize() *ptylib.Winsize {
	return &ptylib.Winsize{
		Rows: s.Height,
		Cols: s.Width,
	}
}

// Spawn allocates a pty sized to size and starts shellPath on its slave side.
// The child gets its own session with the slave as controlling terminal, so
// job control inside the shell behaves as in a native terminal.
func Spawn(shellPath string, size Size, logger *zap.Logger) (*Handle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	master, slave, err := ptylib.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenPty, err)
	}
	// The child keeps its own copy of the slave.
	defer slave.Close()

	if err := ptylib.Setsize(master, size.winsize()); err != nil {
		master.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenPty, err)
	}

	cmd := exec.Command(shellPath)
	cmd.Env = os.Environ()
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // stdin in the child
	}

	if err := cmd.Start(); err != nil {
		master.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawnShell, shellPath, err)
	}

	h := &Handle{
		Cmd:    cmd,
		Pty:    master,
		logger: logger,
		exited: make(chan struct{}),
	}

	go func() {
		h.waitErr = cmd.Wait()
		if h.waitErr != nil {
			logger.Info("shell exited with error", zap.Int("pid", cmd.Process.Pid), zap.Error(h.waitErr))
		} else {
			logger.Info("shell exited", zap.Int("pid", cmd.Process.Pid))
		}
		close(h.exited)
	}()

	logger.Info("spawned shell",
		zap.String("shell", shellPath),
		zap.Int("pid", cmd.Process.Pid),
		zap.Uint16("cols", size.Width),
		zap.Uint16("rows", size.Height))
	return h, nil
}
