//go:build linux

package session

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	ptylib "github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/PiranhaCodes/parterm/internal/pipe"
	"github.com/PiranhaCodes/parterm/internal/pty"
	"github.com/PiranhaCodes/parterm/internal/signals"
)

const testShell = "/bin/sh"

// operator stands in for the person at the controlling terminal: the session
// gets the slave side, the test drives the master side.
type operator struct {
	master *os.File
	slave  *os.File

	mu  sync.Mutex
	out bytes.Buffer
}

func newOperator(t *testing.T) *operator {
	t.Helper()
	if _, err := os.Stat(testShell); err != nil {
		t.Skipf("%s not available", testShell)
	}
	master, slave, err := ptylib.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	require.NoError(t, ptylib.Setsize(slave, &ptylib.Winsize{Cols: 80, Rows: 24}))

	op := &operator{master: master, slave: slave}
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := master.Read(buf)
			if n > 0 {
				op.mu.Lock()
				op.out.Write(buf[:n])
				op.mu.Unlock()
			}
			if err != nil {
				return
			}
		}
	}()
	t.Cleanup(func() {
		master.Close()
		slave.Close()
	})
	return op
}

func (o *operator) saw(s string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return strings.Contains(o.out.String(), s)
}

func (o *operator) lflag(t *testing.T) uint32 {
	t.Helper()
	termios, err := unix.IoctlGetTermios(int(o.slave.Fd()), unix.TCGETS)
	require.NoError(t, err)
	return termios.Lflag
}

func testOptions(t *testing.T, op *operator, name string) Options {
	t.Setenv("PS1", "$ ")
	return Options{
		Name:          name,
		Shell:         testShell,
		PipeDir:       t.TempDir(),
		ShutdownGrace: 100 * time.Millisecond,
		TTY:           op.slave,
	}
}

func runAsync(ctx context.Context, opts Options) <-chan error {
	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("session did not end")
		return nil
	}
}

func TestSessionEndToEnd(t *testing.T) {
	op := newOperator(t)
	opts := testOptions(t, op, "test")
	before := op.lflag(t)

	done := runAsync(context.Background(), opts)
	require.Eventually(t, func() bool { return pipe.Exists(opts.PipeDir, "test") },
		5*time.Second, 10*time.Millisecond)

	require.NoError(t, pipe.Submit(opts.PipeDir, "test", []byte("echo remote-$((40+2))\n")))
	require.Eventually(t, func() bool { return op.saw("remote-42") }, 5*time.Second, 10*time.Millisecond)

	_, err := op.master.Write([]byte("echo local-$((3+4))\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return op.saw("local-7") }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, pipe.Submit(opts.PipeDir, "test", []byte("exit\n")))
	assert.NoError(t, waitDone(t, done))

	assert.False(t, pipe.Exists(opts.PipeDir, "test"), "pipe must be removed when the shell exits")
	assert.Equal(t, before, op.lflag(t), "terminal mode must be restored")
}

func TestSessionInitialCommand(t *testing.T) {
	op := newOperator(t)
	opts := testOptions(t, op, "init")
	opts.Command = "echo first-$((1+1))"

	done := runAsync(context.Background(), opts)
	require.Eventually(t, func() bool { return op.saw("first-2") }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, pipe.Submit(opts.PipeDir, "init", []byte("exit\n")))
	assert.NoError(t, waitDone(t, done))
}

func TestSessionInvalidShell(t *testing.T) {
	op := newOperator(t)
	opts := testOptions(t, op, "test")
	opts.Shell = "/nonexistent/shell"
	before := op.lflag(t)

	err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, pty.ErrSpawnShell)
	assert.False(t, pipe.Exists(opts.PipeDir, "test"), "no pipe may be left behind")
	assert.Equal(t, before, op.lflag(t))
}

func TestSessionRejectsSecondServer(t *testing.T) {
	op := newOperator(t)
	opts := testOptions(t, op, "dup")

	done := runAsync(context.Background(), opts)
	require.Eventually(t, func() bool { return pipe.Exists(opts.PipeDir, "dup") },
		5*time.Second, 10*time.Millisecond)

	other := newOperator(t)
	second := opts
	second.TTY = other.slave
	err := Run(context.Background(), second)
	assert.ErrorIs(t, err, pipe.ErrServerRunning)
	assert.True(t, pipe.Exists(opts.PipeDir, "dup"), "first server keeps its pipe")

	require.NoError(t, pipe.Submit(opts.PipeDir, "dup", []byte("exit\n")))
	assert.NoError(t, waitDone(t, done))
}

func TestSessionCancel(t *testing.T) {
	op := newOperator(t)
	opts := testOptions(t, op, "cancel")

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, opts)
	require.Eventually(t, func() bool { return pipe.Exists(opts.PipeDir, "cancel") },
		5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, waitDone(t, done))
	assert.False(t, pipe.Exists(opts.PipeDir, "cancel"))
}

func TestSignalHandling(t *testing.T) {
	op := newOperator(t)
	opts := testOptions(t, op, "sig")

	s, err := start(context.Background(), opts)
	require.NoError(t, err)
	defer s.shell.Close(opts.ShutdownGrace)

	exited := make(chan int, 1)
	s.exit = func(code int) { exited <- code }

	events := make(chan signals.Event, 2)
	go s.handleSignals(events)

	require.NoError(t, ptylib.Setsize(op.slave, &ptylib.Winsize{Cols: 314, Rows: 42}))
	events <- signals.ResizeRequested
	require.Eventually(t, func() bool {
		size, err := s.shell.Size()
		return err == nil && size == pty.Size{Width: 314, Height: 42}
	}, 5*time.Second, 10*time.Millisecond)

	require.True(t, pipe.Exists(opts.PipeDir, "sig"))
	events <- signals.ShutdownRequested
	select {
	case code := <-exited:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not exit")
	}
	assert.False(t, pipe.Exists(opts.PipeDir, "sig"))
}

func TestSIGTERMDuringStartupReleasesPipeAndTerminal(t *testing.T) {
	op := newOperator(t)
	opts := testOptions(t, op, "race")
	before := op.lflag(t)

	s, err := start(context.Background(), opts)
	require.NoError(t, err)
	exited := make(chan int, 1)
	s.exit = func(code int) { exited <- code }

	// The pipe is visible and the terminal is raw, but nothing consumes
	// signal events yet.
	require.True(t, pipe.Exists(opts.PipeDir, "race"))
	require.NotEqual(t, before, op.lflag(t))
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.wait(ctx) }()

	select {
	case code := <-exited:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("queued SIGTERM was not handled")
	}
	assert.False(t, pipe.Exists(opts.PipeDir, "race"), "pipe must be removed on SIGTERM")
	assert.Equal(t, before, op.lflag(t), "terminal mode must be restored on SIGTERM")

	cancel()
	assert.NoError(t, waitDone(t, done))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, uint16(0), clamp(-1))
	assert.Equal(t, uint16(80), clamp(80))
	assert.Equal(t, uint16(65535), clamp(1<<20))
}
