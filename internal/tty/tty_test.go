//go:build linux

package tty

import (
	"os"
	"path/filepath"
	"testing"

	ptylib "github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openPair(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	master, slave, err := ptylib.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() {
		slave.Close()
		master.Close()
	})
	return master, slave
}

func lflag(t *testing.T, f *os.File) uint32 {
	t.Helper()
	termios, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	require.NoError(t, err)
	return termios.Lflag
}

func TestFromFileRawModeAndRestore(t *testing.T) {
	_, slave := openPair(t)
	before := lflag(t, slave)
	require.NotZero(t, before&unix.ECHO)

	term, err := FromFile(slave)
	require.NoError(t, err)

	raw := lflag(t, slave)
	assert.Zero(t, raw&unix.ECHO)
	assert.Zero(t, raw&unix.ICANON)

	require.NoError(t, term.Restore())
	assert.Equal(t, before, lflag(t, slave))

	// Second restore is a no-op.
	assert.NoError(t, term.Restore())
}

func TestSize(t *testing.T) {
	_, slave := openPair(t)
	require.NoError(t, ptylib.Setsize(slave, &ptylib.Winsize{Cols: 314, Rows: 42}))

	term, err := FromFile(slave)
	require.NoError(t, err)
	defer term.Restore()

	w, h, err := term.Size()
	require.NoError(t, err)
	assert.Equal(t, 314, w)
	assert.Equal(t, 42, h)
}

func TestReadWriteThroughRawTerminal(t *testing.T) {
	master, slave := openPair(t)

	term, err := FromFile(slave)
	require.NoError(t, err)
	defer term.Restore()

	_, err = master.Write([]byte("ls\n"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := term.Read(buf)
	require.NoError(t, err)
	// Raw mode: no line discipline translation of the newline.
	assert.Equal(t, "ls\n", string(buf[:n]))

	_, err = term.Write([]byte("ok"))
	require.NoError(t, err)
	n, err = master.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(buf[:n]))
}

func TestFromFileRejectsRegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "plain"))
	require.NoError(t, err)
	defer f.Close()

	_, err = FromFile(f)
	assert.ErrorIs(t, err, ErrNotTerminal)
}
