package pipe

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultName is the session name used when none is given.
	DefaultName = "default"

	filePrefix = "parterm_"
	pipeSuffix = ".pipe"
	lockSuffix = ".lock"
)

// Path returns the pipe path for a session name.
func Path(dir, name string) string {
	return filepath.Join(dir, filePrefix+name+pipeSuffix)
}

func lockPath(dir, name string) string {
	return filepath.Join(dir, filePrefix+name+lockSuffix)
}

// Exists reports whether a pipe for name is present in dir.
func Exists(dir, name string) bool {
	info, err := os.Stat(Path(dir, name))
	return err == nil && info.Mode()&fs.ModeNamedPipe != 0
}

// Remove deletes the pipe for name. A missing pipe is not an error.
func Remove(dir, name string) error {
	if err := os.Remove(Path(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the names of sessions with a pipe in dir, sorted.
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+pipeSuffix))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.Mode()&fs.ModeNamedPipe == 0 {
			continue
		}
		base := filepath.Base(m)
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), pipeSuffix))
	}
	sort.Strings(names)
	return names, nil
}
