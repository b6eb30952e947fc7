package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PiranhaCodes/parterm/internal/mux"
	"github.com/PiranhaCodes/parterm/internal/pipe"
	"github.com/PiranhaCodes/parterm/internal/pty"
	"github.com/PiranhaCodes/parterm/internal/signals"
	"github.com/PiranhaCodes/parterm/internal/tty"
)

// DefaultShutdownGrace is how long the shell gets to exit after its pty is
// closed before it is signalled.
const DefaultShutdownGrace = 500 * time.Millisecond

// Options configures a session.
type Options struct {
	Name    string
	Shell   string
	Command string // delivered as the first input line when set

	PipeDir       string
	IdleBackoff   time.Duration
	ShutdownGrace time.Duration

	// TTY overrides the controlling terminal; nil opens /dev/tty.
	TTY *os.File

	Logger *zap.Logger
}

// Session is a running server session. Exactly one exists per server
// process.
type Session struct {
	Name string
	ID   string

	opts   Options
	logger *zap.Logger

	term   *tty.Terminal
	shell  *pty.Handle
	reader *pipe.Reader
	mux    *mux.Multiplexer
	bridge *signals.Bridge

	releaseOnce sync.Once
	exit        func(int)
}

// Run starts a session and blocks until the shell's output ends or ctx is
// done. Startup failures are returned before any background goroutine is
// started and leave no pipe behind.
func Run(ctx context.Context, opts Options) error {
	s, err := start(ctx, opts)
	if err != nil {
		return err
	}
	return s.wait(ctx)
}

func newSession(opts Options) *Session {
	if opts.Name == "" {
		opts.Name = pipe.DefaultName
	}
	if opts.PipeDir == "" {
		opts.PipeDir = os.TempDir()
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = DefaultShutdownGrace
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	id := uuid.New().String()
	return &Session{
		Name:   opts.Name,
		ID:     id,
		opts:   opts,
		logger: opts.Logger.With(zap.String("session", opts.Name), zap.String("session_id", id)),
		exit:   os.Exit,
	}
}

func start(ctx context.Context, opts Options) (*Session, error) {
	s := newSession(opts)

	// Subscribe before anything needs releasing: a SIGTERM during startup is
	// queued and handled once wait runs, instead of killing the process with
	// the pipe on disk and the terminal still raw.
	s.bridge = signals.Notify(ctx)

	var err error
	if s.opts.TTY != nil {
		s.term, err = tty.FromFile(s.opts.TTY)
	} else {
		s.term, err = tty.Open()
	}
	if err != nil {
		s.bridge.Stop()
		return nil, fmt.Errorf("controlling terminal: %w", err)
	}

	size, err := s.terminalSize()
	if err != nil {
		s.abort()
		return nil, fmt.Errorf("terminal size: %w", err)
	}

	s.shell, err = pty.Spawn(s.opts.Shell, size, s.logger)
	if err != nil {
		s.abort()
		return nil, err
	}

	s.reader, err = pipe.OpenForName(s.opts.PipeDir, s.Name,
		pipe.WithIdleBackoff(s.opts.IdleBackoff),
		pipe.WithLogger(s.logger))
	if err != nil {
		s.shell.Close(s.opts.ShutdownGrace)
		s.abort()
		return nil, err
	}

	s.mux = mux.New(s.logger)
	if s.opts.Command != "" {
		s.mux.Remote <- []byte(s.opts.Command + "\n")
	}

	s.logger.Info("session started",
		zap.String("shell", s.opts.Shell),
		zap.String("pipe", s.reader.Path()),
		zap.Uint16("cols", size.Width),
		zap.Uint16("rows", size.Height))
	return s, nil
}

// abort undoes a partial startup. No pipe exists yet.
func (s *Session) abort() {
	s.bridge.Stop()
	if err := s.term.Restore(); err != nil {
		s.logger.Warn("restoring terminal", zap.Error(err))
	}
}

func (s *Session) wait(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.handleSignals(s.bridge.Events())

	go func() {
		if err := s.reader.Run(ctx, s.mux.Remote); err != nil {
			s.logger.Error("remote commands stopped", zap.Error(err))
		}
	}()

	done := s.mux.Start(ctx, s.shell, s.term)

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		s.logger.Info("session cancelled")
	}

	cancel()
	s.shell.Close(s.opts.ShutdownGrace)
	if exitErr := s.shell.ExitErr(); exitErr != nil {
		s.logger.Info("shell exit status", zap.Error(exitErr))
	}
	s.release()
	s.logger.Info("session ended")
	return err
}

func (s *Session) handleSignals(events <-chan signals.Event) {
	for ev := range events {
		s.logger.Debug("handle signal", zap.Stringer("event", ev))
		switch ev {
		case signals.ResizeRequested:
			s.resize()
		case signals.ShutdownRequested:
			s.logger.Info("termination requested")
			s.release()
			s.exit(0)
			return
		}
	}
}

// resize pushes the terminal's current size to the pty. Failures are logged.
func (s *Session) resize() {
	size, err := s.terminalSize()
	if err != nil {
		s.logger.Error("terminal size query failed", zap.Error(err))
		return
	}
	if err := s.shell.Resize(size); err != nil {
		s.logger.Error("resize failed", zap.Error(err))
		return
	}
	s.logger.Debug("resized", zap.Uint16("cols", size.Width), zap.Uint16("rows", size.Height))
}

// release removes the pipe and restores the terminal. It runs once, from
// whichever exit path gets there first.
func (s *Session) release() {
	s.releaseOnce.Do(func() {
		if s.bridge != nil {
			s.bridge.Stop()
		}
		if s.reader != nil {
			if err := s.reader.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				s.logger.Warn("closing pipe", zap.Error(err))
			}
		}
		if s.term != nil {
			if err := s.term.Restore(); err != nil {
				s.logger.Warn("restoring terminal", zap.Error(err))
			}
		}
	})
}

func (s *Session) terminalSize() (pty.Size, error) {
	w, h, err := s.term.Size()
	if err != nil {
		return pty.Size{}, err
	}
	return pty.Size{Width: clamp(w), Height: clamp(h)}, nil
}

func clamp(v int) uint16 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(v)
}
