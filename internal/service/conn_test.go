package service

import (
	"sync"
	"testing"
	"time"

	"github.com/crowd-relay/internal/transport"
)

const waitFor = 2 * time.Second

// fakeConn is an in-memory transport.Conn driven by the test.
type fakeConn struct {
	in  chan transport.Frame
	out chan string

	mu       sync.Mutex
	rejected string

	// stall, when set, holds every SendText until it is closed.
	stall chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan transport.Frame, 64),
		out:    make(chan string, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Receive() (transport.Frame, error) {
	select {
	case frame, ok := <-c.in:
		if !ok {
			return transport.Frame{}, transport.ErrClosed
		}
		return frame, nil
	case <-c.closed:
		return transport.Frame{}, transport.ErrClosed
	}
}

func (c *fakeConn) SendText(data []byte) error {
	if c.stall != nil {
		select {
		case <-c.stall:
		case <-c.closed:
			return transport.ErrClosed
		}
	}
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}
	c.out <- string(data)
	return nil
}

func (c *fakeConn) Reject(reason string) error {
	c.mu.Lock()
	c.rejected = reason
	c.mu.Unlock()
	return c.Close()
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) RemoteAddr() string {
	return "127.0.0.1:40000"
}

// text queues a text frame from the browser.
func (c *fakeConn) text(s string) {
	c.in <- transport.Frame{Type: transport.FrameText, Data: []byte(s)}
}

// hangUp closes the browser side gracefully.
func (c *fakeConn) hangUp() {
	close(c.in)
}

func (c *fakeConn) rejectReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rejected
}

// expect returns the next frame sent to the browser.
func (c *fakeConn) expect(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-c.out:
		return msg
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for an outgoing frame")
		return ""
	}
}

func (c *fakeConn) expectNothing(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case msg := <-c.out:
		t.Fatalf("expected no frame, got %s", msg)
	case <-time.After(d):
	}
}

func (c *fakeConn) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-c.closed:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for the connection to close")
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// result collects the return value of a Serve call.
func result(fn func() error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	return done
}

func await(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for the connection loop to end")
		return nil
	}
}
