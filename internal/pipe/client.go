package pipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// ErrNoServer is returned by Submit when no server is listening on a name.
var ErrNoServer = errors.New("no server open")

// Submit writes data to the pipe for name. It never creates the pipe: a
// missing pipe, or one with no reader attached, means no server is running
// and fails with ErrNoServer.
func Submit(dir, name string, data []byte) error {
	path := Path(dir, name)

	// O_NONBLOCK makes the open fail with ENXIO instead of hanging when a
	// stale pipe has no reader.
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, unix.ENXIO) {
			return fmt.Errorf("%w for %q", ErrNoServer, name)
		}
		return fmt.Errorf("open pipe %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat pipe %s: %w", path, err)
	}
	if info.Mode()&fs.ModeNamedPipe == 0 {
		return fmt.Errorf("%s is not a named pipe", path)
	}

	// os.File writes the whole slice or returns an error; nothing is
	// buffered in user space.
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write pipe %s: %w", path, err)
	}
	return nil
}
