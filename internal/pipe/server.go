package pipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// ChunkSize is the largest message a single pipe read produces.
const ChunkSize = 256

// DefaultIdleBackoff is the pause after a read that found no writer.
const DefaultIdleBackoff = time.Millisecond

// ErrServerRunning is returned when another server already owns the name.
var ErrServerRunning = errors.New("server already running")

// Reader is the server side of a session pipe. Only one Reader exists per
// name; the lock file enforces that across processes.
type Reader struct {
	Name string

	path        string
	dir         string
	file        *os.File
	lock        *flock.Flock
	idleBackoff time.Duration
	logger      *zap.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithIdleBackoff sets the pause after an empty read.
func WithIdleBackoff(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.idleBackoff = d
		}
	}
}

// WithLogger sets the reader's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// OpenForName takes ownership of the name, creating the pipe if it does not
// exist, and opens it for reading. A pipe left behind by a server that died
// without cleanup is reused.
func OpenForName(dir, name string, opts ...Option) (*Reader, error) {
	r := &Reader{
		Name:        name,
		path:        Path(dir, name),
		dir:         dir,
		lock:        flock.New(lockPath(dir, name)),
		idleBackoff: DefaultIdleBackoff,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	locked, err := r.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", r.lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w for %q", ErrServerRunning, name)
	}

	if err := r.create(); err != nil {
		r.unlock()
		return nil, err
	}

	// Non-blocking open succeeds without a writer; reads then report EOF
	// until one connects.
	f, err := os.OpenFile(r.path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		r.unlock()
		return nil, fmt.Errorf("open pipe %s: %w", r.path, err)
	}
	r.file = f

	r.logger.Debug("pipe open", zap.String("path", r.path))
	return r, nil
}

func (r *Reader) create() error {
	info, err := os.Stat(r.path)
	switch {
	case err == nil:
		if info.Mode()&fs.ModeNamedPipe == 0 {
			return fmt.Errorf("%s exists and is not a named pipe", r.path)
		}
		r.logger.Info("reusing existing pipe", zap.String("path", r.path))
		return nil
	case errors.Is(err, fs.ErrNotExist):
		if err := unix.Mkfifo(r.path, unix.S_IRWXU); err != nil {
			return fmt.Errorf("error creating fifo %s: %w", r.path, err)
		}
		r.logger.Debug("created pipe", zap.String("path", r.path))
		return nil
	default:
		return fmt.Errorf("stat pipe %s: %w", r.path, err)
	}
}

// Path returns the pipe's filesystem path.
func (r *Reader) Path() string {
	return r.path
}

// Run reads the pipe until ctx is done, the reader is closed, or a read
// fails. Every non-empty read is sent on out as one message. A read with no
// writer connected is followed by the idle backoff.
func (r *Reader) Run(ctx context.Context, out chan<- []byte) error {
	buf := make([]byte, ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		n, err := r.file.Read(buf)
		if n > 0 {
			msg := make([]byte, n)
			copy(msg, buf[:n])
			r.logger.Debug("remote command", zap.Int("bytes", n))
			select {
			case out <- msg:
			case <-ctx.Done():
				return nil
			}
			continue
		}

		switch {
		case err == nil, errors.Is(err, io.EOF):
			select {
			case <-time.After(r.idleBackoff):
			case <-ctx.Done():
				return nil
			}
		case errors.Is(err, os.ErrClosed):
			return nil
		default:
			return fmt.Errorf("read pipe %s: %w", r.path, err)
		}
	}
}

// Close closes the pipe, removes it from disk and releases the name. Removal
// failures are logged, not returned.
func (r *Reader) Close() error {
	var err error
	if r.file != nil {
		err = r.file.Close()
	}
	if rmErr := Remove(r.dir, r.Name); rmErr != nil {
		r.logger.Warn("unable to delete pipe", zap.String("path", r.path), zap.Error(rmErr))
	} else {
		r.logger.Debug("removed pipe", zap.String("path", r.path))
	}
	r.unlock()
	return err
}

// unlock releases the name. The lock file stays on disk: unlinking it would
// let a contender holding the old inode and a newcomer creating a new one
// both win the lock.
func (r *Reader) unlock() {
	if err := r.lock.Unlock(); err != nil {
		r.logger.Warn("unable to release lock", zap.String("path", r.lock.Path()), zap.Error(err))
	}
}
