// Package mux moves bytes between a shell's pty and its input sources.
//
// Three goroutines run per session:
//
//	output pump   pty      -> terminal
//	input reader  terminal -> Local
//	sink          Local, Remote -> pty
//
// The remote command reader (package pipe) feeds Remote. The sink blocks on
// both sources at once and writes whichever message is ready; each source
// keeps its own order, but there is no order between sources.
package mux

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// ChunkSize is the largest single read from the pty or the terminal.
const ChunkSize = 4096

// queueSize bounds each message queue. A full queue makes its producer wait;
// messages are never dropped.
const queueSize = 64

// Multiplexer holds the two message queues feeding the shell.
type Multiplexer struct {
	Local  chan []byte
	Remote chan []byte

	logger *zap.Logger
}

// New creates a Multiplexer with empty queues.
func New(logger *zap.Logger) *Multiplexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multiplexer{
		Local:  make(chan []byte, queueSize),
		Remote: make(chan []byte, queueSize),
		logger: logger,
	}
}

// Start launches the output pump, the terminal input reader and the sink.
// The returned channel yields the output pump's result exactly once; that is
// the end of the session. The other two goroutines log their failure and
// stop without ending the session.
func (m *Multiplexer) Start(ctx context.Context, shell io.ReadWriter, terminal io.ReadWriter) <-chan error {
	done := make(chan error, 1)

	go func() {
		err := PumpOutput(shell, terminal)
		if err != nil {
			m.logger.Error("output pump stopped", zap.Error(err))
		} else {
			m.logger.Info("shell output ended")
		}
		done <- err
	}()

	go func() {
		if err := ReadInput(ctx, terminal, m.Local); err != nil {
			m.logger.Error("terminal input stopped", zap.Error(err))
			return
		}
		m.logger.Debug("terminal input ended")
	}()

	go func() {
		if err := Sink(ctx, shell, m.Local, m.Remote, m.logger); err != nil {
			m.logger.Error("shell input stopped", zap.Error(err))
		}
	}()

	return done
}

// PumpOutput copies src to dst one chunk at a time until src ends. End of
// stream, including a zero-length read, returns nil.
func PumpOutput(src io.Reader, dst io.Writer) error {
	buf := make([]byte, ChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write terminal: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read pty: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

// ReadInput forwards each read from src as one message on out. A
// zero-length read or io.EOF ends it with a nil error.
func ReadInput(ctx context.Context, src io.Reader, out chan<- []byte) error {
	buf := make([]byte, ChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			msg := make([]byte, n)
			copy(msg, buf[:n])
			select {
			case out <- msg:
			case <-ctx.Done():
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read terminal: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

// Sink writes messages from local and remote to dst as they arrive, one
// Write per message. It returns nil once ctx is done or both sources are
// closed, and the write error if dst fails.
func Sink(ctx context.Context, dst io.Writer, local, remote <-chan []byte, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for local != nil || remote != nil {
		var (
			msg    []byte
			ok     bool
			source string
		)
		select {
		case <-ctx.Done():
			return nil
		case msg, ok = <-local:
			if !ok {
				local = nil
				continue
			}
			source = "local"
		case msg, ok = <-remote:
			if !ok {
				remote = nil
				continue
			}
			source = "remote"
		}

		if _, err := dst.Write(msg); err != nil {
			return fmt.Errorf("write pty: %w", err)
		}
		if source == "remote" {
			logger.Debug("delivered remote command", zap.Int("bytes", len(msg)))
		}
	}
	return nil
}
