package modem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/simensrostad/mailpal/at"
)

// Loop is the only reader of the transport. It writes queued commands,
// collects their answers and forwards URCs until ctx is canceled, Close is
// called or the transport fails. Run it once, in its own goroutine, right
// after New:
//
//	m, err := modem.New(ctx, config)
//	if err != nil {
//		return err
//	}
//	go m.Loop(ctx)
//	resp, err := m.Exec(ctx, "AT+CEREG?")
func (m *Modem) Loop(ctx context.Context) error {
	if !m.loopRunning.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer m.loopRunning.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.loopCtx, cancel)
	defer stop()

	tokens, scanErrs := m.scan(ctx)

	// stale is a timed out command whose reply may still arrive. No new
	// command is written until that reply ends or drainTimeout passes,
	// so a late final result can never complete the next command.
	var pending, stale *inflight
	for {
		// A nil channel never fires, so each state watches only its own
		// events.
		var commands chan *request
		var deadline <-chan struct{}
		var staleExpired <-chan time.Time
		switch {
		case pending != nil:
			deadline = pending.req.ctx.Done()
		case stale != nil:
			staleExpired = stale.expire.C
		default:
			commands = m.commands
		}

		select {
		case <-ctx.Done():
			pending.finish(ctx.Err())
			return ctx.Err()

		case req := <-commands:
			pending = &inflight{req: req}
			wire := strings.TrimSpace(req.cmd) + "\r"
			if _, err := m.transport.Write([]byte(wire)); err != nil {
				pending.finish(fmt.Errorf("write command %q: %w", req.cmd, err))
				pending = nil
			}

		case <-deadline:
			pending.finish(fmt.Errorf("command timeout: %w", pending.req.ctx.Err()))
			m.logger.Warn("AT command timed out, discarding its late reply", "command", pending.req.cmd)
			pending.expire = time.NewTimer(m.config.drainTimeout)
			stale, pending = pending, nil

		case <-staleExpired:
			m.logger.Warn("Timed out AT command never completed", "command", stale.req.cmd)
			stale = nil

		case err := <-scanErrs:
			pending.finish(fmt.Errorf("read error: %w", err))
			return fmt.Errorf("scanner error: %w", err)

		case token, ok := <-tokens:
			if !ok {
				// The scan error, if any, is sent before tokens is closed.
				select {
				case err := <-scanErrs:
					pending.finish(fmt.Errorf("read error: %w", err))
					return fmt.Errorf("scanner error: %w", err)
				default:
				}
				pending.finish(io.EOF)
				return io.EOF
			}
			switch {
			case stale != nil:
				if m.discard(stale, token) {
					stale.expire.Stop()
					stale = nil
				}
			case m.dispatch(pending, token):
				pending = nil
			}
		}
	}
}

// scan reads tokens off the transport until it fails or ctx is done.
func (m *Modem) scan(ctx context.Context) (<-chan string, <-chan error) {
	tokens := make(chan string, 10)
	errs := make(chan error, 1)

	scanner := newScanner(m.transport)
	go func() {
		defer close(tokens)
		for scanner.Scan() {
			token := scanner.Text()
			if token == "" {
				continue
			}
			select {
			case tokens <- token:
			case <-ctx.Done():
				return
			}
		}
		if err := scanErr(scanner); err != nil {
			errs <- err
		}
	}()
	return tokens, errs
}

// dispatch routes one token and reports whether it completed pending.
func (m *Modem) dispatch(pending *inflight, token string) bool {
	var cmd string
	if pending != nil {
		cmd = pending.req.cmd
	}

	switch classify(cmd, token) {
	case at.TypeURC:
		m.forward(token)
		return false

	case at.TypeFinal:
		if pending == nil {
			m.logger.Debug("Ignoring orphaned final response", "line", token)
			return false
		}
		pending.lines = append(pending.lines, token)
		var err error
		if token != at.OK {
			err = errors.New(token)
		}
		pending.finish(err)
		return true

	case at.TypePrompt:
		if pending == nil {
			return false
		}
		pending.lines = append(pending.lines, token)
		pending.finish(nil)
		return true

	default:
		if pending != nil {
			pending.lines = append(pending.lines, token)
		}
		return false
	}
}

// discard consumes one line of the reply owed to a timed out command and
// reports whether that reply is complete. URCs are still forwarded.
func (m *Modem) discard(stale *inflight, token string) bool {
	switch classify(stale.req.cmd, token) {
	case at.TypeURC:
		m.forward(token)
		return false
	case at.TypeFinal, at.TypePrompt:
		m.logger.Debug("Discarded late final response", "command", stale.req.cmd, "line", token)
		return true
	default:
		m.logger.Debug("Discarded late response line", "command", stale.req.cmd, "line", token)
		return false
	}
}

// forward hands a URC to the URC channel, dropping it when the channel is
// full.
func (m *Modem) forward(urc string) {
	select {
	case m.urcChan <- urc:
	default:
		m.logger.Warn("URC channel full, dropping URC", "urc", urc)
		m.config.metrics.URCDropped()
	}
}

// classify is at.Classify, except that a query reply sharing its prefix
// with the URC of the same name counts as data of cmd.
func classify(cmd, token string) at.ResponseType {
	kind := at.Classify(token)
	if kind == at.TypeURC && cmd != "" && at.Answers(cmd, token) {
		return at.TypeData
	}
	return kind
}

// inflight is the command the Loop is currently answering, or one it gave
// up on and is still draining.
type inflight struct {
	req   *request
	lines []string
	// expire ends draining of a timed out command that never completes.
	expire *time.Timer
}

// finish delivers the lines collected so far to the waiting Exec. It is a
// no-op on nil.
func (p *inflight) finish(err error) {
	if p == nil {
		return
	}
	p.req.result <- result{response: strings.Join(p.lines, "\n"), err: err}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 512), maxLineLength)
	scanner.Split(at.Splitter)
	return scanner
}

// scanErr maps bufio.ErrTooLong to ErrLineTooLong.
func scanErr(scanner *bufio.Scanner) error {
	err := scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		return ErrLineTooLong
	}
	return err
}
