// Package signals turns asynchronous OS signals into typed events on a
// channel, so the rest of the session only deals with messages.
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Event is a signal translated for the session.
type Event int

const (
	// ResizeRequested follows SIGWINCH: the controlling terminal changed size.
	ResizeRequested Event = iota + 1
	// ShutdownRequested follows SIGTERM.
	ShutdownRequested
)

func (e Event) String() string {
	switch e {
	case ResizeRequested:
		return "resize"
	case ShutdownRequested:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Translate maps an OS signal to an Event.
func Translate(sig os.Signal) (Event, bool) {
	switch sig {
	case syscall.SIGWINCH:
		return ResizeRequested, true
	case syscall.SIGTERM:
		return ShutdownRequested, true
	}
	return 0, false
}

// Bridge delivers SIGWINCH and SIGTERM as events in arrival order.
type Bridge struct {
	events chan Event
	sigs   chan os.Signal
	cancel context.CancelFunc
	done   chan struct{}
}

// Notify subscribes to SIGWINCH and SIGTERM until ctx is done or Stop is
// called. While subscribed, SIGTERM no longer terminates the process by
// itself; the receiver of ShutdownRequested is responsible for exiting.
func Notify(ctx context.Context) *Bridge {
	ctx, cancel := context.WithCancel(ctx)
	b := &Bridge{
		events: make(chan Event, 16),
		sigs:   make(chan os.Signal, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	signal.Notify(b.sigs, syscall.SIGWINCH, syscall.SIGTERM)

	go func() {
		defer close(b.done)
		defer close(b.events)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-b.sigs:
				ev, ok := Translate(sig)
				if !ok {
					continue
				}
				select {
				case b.events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return b
}

// Events returns the event channel. It is closed after Stop.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Stop unsubscribes from the signals and closes the event channel.
func (b *Bridge) Stop() {
	signal.Stop(b.sigs)
	b.cancel()
	<-b.done
}
