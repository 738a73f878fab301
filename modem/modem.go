// Package modem drives a cellular modem over its AT command channel.
//
// A single Loop goroutine owns the transport. Exec hands it one command at a
// time and everything the modem reports on its own is forwarded on URC.
package modem

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// maxLineLength bounds a single response line read from the transport.
const maxLineLength = 4096

// Modem is an initialized modem with a serialized AT channel.
type Modem struct {
	// transport is the byte stream to the modem, read only by the Loop
	// once New has returned
	transport Transport
	// config holds the settings New was called with, defaults applied
	config Config
	// logger receives loop and exchange diagnostics
	logger *slog.Logger

	// closed is set by the first Close
	closed atomic.Bool
	// loopRunning guards against a second concurrent Loop
	loopRunning atomic.Bool

	// mu keeps at most one Exec in flight
	mu sync.Mutex

	// urcChan buffers unsolicited result codes for URC readers
	urcChan chan string
	// commands hands requests from Exec to the Loop. It is unbuffered, so
	// a request is only accepted when the Loop is ready to write it.
	commands chan *request

	// loopCtx is canceled by Close to stop a running Loop
	loopCtx    context.Context
	loopCancel context.CancelFunc
}

// request is one command handed from Exec to the Loop.
type request struct {
	// cmd is the command line without the trailing carriage return
	cmd string
	// ctx carries the caller's deadline; the Loop stops waiting when it ends
	ctx context.Context
	// result receives exactly one outcome; it is buffered so the Loop never
	// blocks on a caller that already gave up
	result chan result
}

// result is the outcome of one request.
type result struct {
	// response holds every line of the answer joined by "\n"
	response string
	// err is set for a final result other than OK, a timeout or a
	// transport failure
	err error
}

// New dials the transport and runs the initialization sequence: AT, echo
// off, verbose errors and SIM unlock. The transport is closed again if any
// step fails.
func New(ctx context.Context, config Config) (*Modem, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}

	m := &Modem{
		transport: transport,
		config:    config,
		logger:    config.logger,
		urcChan:   make(chan string, config.urcBuffer),
		commands:  make(chan *request),
	}
	m.loopCtx, m.loopCancel = context.WithCancel(ctx)

	initCtx, cancel := context.WithTimeout(ctx, config.initTimeout)
	defer cancel()

	if err := m.init(initCtx); err != nil {
		if transport != nil {
			transport.Close()
		}
		m.loopCancel()
		return nil, fmt.Errorf("initialize modem: %w", err)
	}
	return m, nil
}

// URC delivers unsolicited result codes such as +CEREG. The channel is
// buffered; a URC that finds it full is dropped and counted.
func (m *Modem) URC() <-chan string {
	return m.urcChan
}

// Close stops the Loop and closes the transport. A Modem cannot be reused.
func (m *Modem) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrAlreadyClosed
	}
	if m.loopCancel != nil {
		m.loopCancel()
	}
	if m.transport == nil {
		return nil
	}
	return m.transport.Close()
}

// Exec writes cmd and waits for its final result code. Loop must be running.
//
// The response carries every line of the answer, final result included,
// joined by "\n". A final result other than OK is returned as an error as
// well. Without a deadline on ctx the configured AT timeout applies.
func (m *Modem) Exec(ctx context.Context, cmd string) (string, error) {
	if m.closed.Load() {
		return "", ErrAlreadyClosed
	}
	if m.transport == nil {
		return "", ErrNotInitialized
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok && m.config.atTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.atTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := m.submit(ctx, cmd)
	m.config.metrics.CommandDone(cmd, err, time.Since(start))
	if err != nil {
		m.logger.Debug("AT command failed", "command", cmd, "response", resp, "error", err)
	}
	return resp, err
}

func (m *Modem) submit(ctx context.Context, cmd string) (string, error) {
	req := &request{
		cmd:    cmd,
		ctx:    ctx,
		result: make(chan result, 1),
	}

	select {
	case m.commands <- req:
	case <-ctx.Done():
		return "", fmt.Errorf("command not accepted: %w", ctx.Err())
	}

	select {
	case res := <-req.result:
		return res.response, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("command timeout: %w", ctx.Err())
	}
}
