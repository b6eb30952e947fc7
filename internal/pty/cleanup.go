package pty

import (
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Close closes the master descriptor and reaps the shell. Closing the master
// hangs up the slave, which normally ends the shell; if it is still running
// after grace it gets SIGTERM, then SIGKILL after another grace period.
func (h *Handle) Close(grace time.Duration) {
	if h == nil {
		return
	}

	if h.Pty != nil {
		if err := h.Pty.Close(); err != nil {
			h.logger.Debug("closing pty master", zap.Error(err))
		}
	}

	if h.Cmd == nil || h.Cmd.Process == nil {
		return
	}

	for _, sig := range []syscall.Signal{syscall.SIGTERM, syscall.SIGKILL} {
		select {
		case <-h.exited:
			return
		case <-time.After(grace):
		}
		h.logger.Warn("shell still running, signalling",
			zap.Int("pid", h.Cmd.Process.Pid),
			zap.Stringer("signal", sig))
		if err := h.Cmd.Process.Signal(sig); err != nil {
			h.logger.Warn("failed to signal shell", zap.Int("pid", h.Cmd.Process.Pid), zap.Error(err))
		}
	}
	<-h.exited
}
