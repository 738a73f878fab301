package modem_test

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/simensrostad/mailpal/modem"
)

// newMockModem runs New against a mock transport that answers the
// initialization sequence. Expectations for later reads, writes and Close
// are left to the caller.
func newMockModem(t *testing.T, ctx context.Context) (*modem.Modem, *modem.MockTransport) {
	t.Helper()
	ctrl := gomock.NewController(t)

	mockTransport := modem.NewMockTransport(ctrl)
	mockDialer := modem.NewMockDialer(ctrl)

	gomock.InOrder(slices.Concat(
		[]any{
			mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil),
		},
		initMockCalls(mockTransport),
	)...)

	config, err := modem.NewConfigBuilder().
		WithDialer(mockDialer).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	m, err := modem.New(ctx, config)
	if err != nil {
		t.Fatalf("failed to create modem: %v", err)
	}
	return m, mockTransport
}

func TestModemNew(t *testing.T) {
	t.Run("Initialization Success", func(t *testing.T) {
		m, mockTransport := newMockModem(t, context.Background())

		mockTransport.EXPECT().Close().Return(nil)
		if err := m.Close(); err != nil {
			t.Errorf("unexpected error from Close(): %v", err)
		}
	})

	t.Run("ErrSIMPinRequired when the SIM is locked and no PIN is configured", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockTransport := modem.NewMockTransport(ctrl)
		mockDialer := modem.NewMockDialer(ctrl)

		gomock.InOrder(slices.Concat(
			[]any{
				mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil),
			},
			NewMockSequence(mockTransport).
				AT().
				EchoOff().
				VerboseErrors().
				SimPinRequired().
				Build(),
			[]any{
				mockTransport.EXPECT().Close(),
			},
		)...)

		config, err := modem.NewConfigBuilder().WithDialer(mockDialer).Build()
		if err != nil {
			t.Fatalf("unexpected error from Build(): %v", err)
		}

		m, err := modem.New(context.Background(), config)
		if !errors.Is(err, modem.ErrSIMPinRequired) {
			t.Errorf("expected ErrSIMPinRequired, got: %v", err)
		}
		if m != nil {
			t.Error("New() should return nil modem when error occurs")
		}
	})

	t.Run("Init failure closes the transport", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockTransport := modem.NewMockTransport(ctrl)
		mockDialer := modem.NewMockDialer(ctrl)

		gomock.InOrder(
			mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil),
			mockTransport.EXPECT().Write([]byte("AT\r")).Return(3, nil),
			mockTransport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
				return copy(p, "ERROR\r\n"), nil
			}),
			mockTransport.EXPECT().Close().Return(nil),
		)

		config, err := modem.NewConfigBuilder().WithDialer(mockDialer).Build()
		if err != nil {
			t.Fatalf("unexpected error from Build(): %v", err)
		}

		if _, err := modem.New(context.Background(), config); err == nil || !strings.Contains(err.Error(), "not responding") {
			t.Errorf("expected modem not responding error, got: %v", err)
		}
	})

	errorCases := []struct {
		name   string
		dial   func(*modem.MockDialer)
		config func() (modem.Config, error)
		want   error
	}{
		{
			name: "Dialer error is returned",
			dial: func(d *modem.MockDialer) {
				d.EXPECT().Dial(gomock.Any()).Return(nil, io.ErrClosedPipe)
			},
			want: io.ErrClosedPipe,
		},
		{
			name: "ErrNotInitialized on nil transport",
			dial: func(d *modem.MockDialer) {
				d.EXPECT().Dial(gomock.Any()).Return(nil, nil)
			},
			want: modem.ErrNotInitialized,
		},
		{
			name: "ErrNoDialer when no dialer provided",
			config: func() (modem.Config, error) {
				return modem.Config{}, nil
			},
			want: modem.ErrNoDialer,
		},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockDialer := modem.NewMockDialer(ctrl)

			config, err := modem.NewConfigBuilder().WithDialer(mockDialer).Build()
			if tt.config != nil {
				config, err = tt.config()
			}
			if err != nil {
				t.Fatalf("unexpected error building config: %v", err)
			}
			if tt.dial != nil {
				tt.dial(mockDialer)
			}

			m, err := modem.New(context.Background(), config)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
			if m != nil {
				t.Error("New() should return nil modem on error")
			}
		})
	}
}

func TestModemClose(t *testing.T) {
	t.Run("Returns transport error on close failure", func(t *testing.T) {
		m, mockTransport := newMockModem(t, context.Background())

		closeError := errors.New("transport close failed")
		mockTransport.EXPECT().Close().Return(closeError)

		if err := m.Close(); err != closeError {
			t.Errorf("expected transport error, got: %v", err)
		}
	})

	t.Run("ErrAlreadyClosed on double close", func(t *testing.T) {
		m, mockTransport := newMockModem(t, context.Background())
		mockTransport.EXPECT().Close().Return(nil)

		if err := m.Close(); err != nil {
			t.Errorf("first close should succeed, got error: %v", err)
		}
		if err := m.Close(); err != modem.ErrAlreadyClosed {
			t.Errorf("expected ErrAlreadyClosed on second close, got: %v", err)
		}
	})
}

func TestModemLoop(t *testing.T) {
	t.Run("Returns io.EOF when the transport ends", func(t *testing.T) {
		m, mockTransport := newMockModem(t, context.Background())
		defer m.Close()

		mockTransport.EXPECT().Read(gomock.Any()).Return(0, io.EOF)
		mockTransport.EXPECT().Close().Return(nil)

		if err := m.Loop(context.Background()); !errors.Is(err, io.EOF) {
			t.Errorf("expected io.EOF, got: %v", err)
		}
	})

	t.Run("Dispatches registration URCs", func(t *testing.T) {
		m, mockTransport := newMockModem(t, context.Background())
		defer m.Close()

		allowEOF := make(chan struct{})
		gomock.InOrder(
			mockTransport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
				return copy(p, "+CEREG: 1,\"0A0B\",\"01234567\",7\r\n"), nil
			}),
			mockTransport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
				<-allowEOF
				return 0, io.EOF
			}),
		)
		mockTransport.EXPECT().Close().Return(nil)

		loopDone := make(chan error, 1)
		go func() {
			loopDone <- m.Loop(context.Background())
		}()

		select {
		case urc := <-m.URC():
			if !strings.HasPrefix(urc, "+CEREG: 1,") {
				t.Errorf("unexpected URC: %q", urc)
			}
		case <-time.After(time.Second):
			t.Error("expected URC to be received within timeout")
		}

		close(allowEOF)
		if err := <-loopDone; !errors.Is(err, io.EOF) {
			t.Errorf("expected io.EOF, got: %v", err)
		}
	})

	t.Run("Stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		m, mockTransport := newMockModem(t, ctx)
		defer m.Close()

		readStarted := make(chan struct{})
		mockTransport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			close(readStarted)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		mockTransport.EXPECT().Close().Return(nil)

		loopDone := make(chan error, 1)
		go func() {
			loopDone <- m.Loop(ctx)
		}()

		<-readStarted
		cancel()

		if err := <-loopDone; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	})

	t.Run("Wraps transport read errors", func(t *testing.T) {
		m, mockTransport := newMockModem(t, context.Background())
		defer m.Close()

		readError := errors.New("transport read error")
		mockTransport.EXPECT().Read(gomock.Any()).Return(0, readError)
		mockTransport.EXPECT().Close().Return(nil)

		err := m.Loop(context.Background())
		if !errors.Is(err, readError) {
			t.Errorf("expected wrapped read error, got: %v", err)
		}
	})

	t.Run("ErrLineTooLong on oversized lines", func(t *testing.T) {
		m, mockTransport := newMockModem(t, context.Background())
		defer m.Close()

		mockTransport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			for i := range p {
				p[i] = 'A'
			}
			return len(p), nil
		}).AnyTimes()
		mockTransport.EXPECT().Close().Return(nil)

		if err := m.Loop(context.Background()); !errors.Is(err, modem.ErrLineTooLong) {
			t.Errorf("expected ErrLineTooLong, got: %v", err)
		}
	})

	t.Run("ErrLoopRunning on consecutive calls", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		m, mockTransport := newMockModem(t, ctx)
		defer m.Close()

		mockTransport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}).AnyTimes()
		mockTransport.EXPECT().Close().Return(nil)

		loopDone := make(chan error, 1)
		go func() {
			loopDone <- m.Loop(ctx)
		}()

		// Give the first Loop time to claim the modem
		time.Sleep(10 * time.Millisecond)

		if err := m.Loop(ctx); !errors.Is(err, modem.ErrLoopRunning) {
			t.Errorf("expected ErrLoopRunning, got: %v", err)
		}

		cancel()
		<-loopDone
	})
}
