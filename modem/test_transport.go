package modem

import (
	"context"
	"io"
	"sync"
)

// TestTransport is an in-memory Transport whose reads block until data is
// queued with SendData, the way a serial port blocks between lines. Each
// Write is mirrored on Writes so a test can play the modem's side.
type TestTransport struct {
	mu     sync.Mutex
	input  chan []byte
	writes chan string
	closed bool
}

func NewTestTransport() *TestTransport {
	return &TestTransport{
		input:  make(chan []byte, 10),
		writes: make(chan string, 64),
	}
}

// Dial hands out the transport itself, so a TestTransport is also a Dialer.
func (t *TestTransport) Dial(context.Context) (Transport, error) {
	return t, nil
}

func (t *TestTransport) Read(p []byte) (int, error) {
	data, ok := <-t.input
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (t *TestTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	select {
	case t.writes <- string(p):
	default:
	}
	return len(p), nil
}

// Close ends pending and future reads with io.EOF.
func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.input)
	}
	return nil
}

// Writes yields every command written, in order.
func (t *TestTransport) Writes() <-chan string {
	return t.writes
}

// SendData queues bytes as if the modem had sent them. It is dropped after
// Close.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.input <- []byte(data)
	}
}
