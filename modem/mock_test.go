package modem_test

import (
	"go.uber.org/mock/gomock"

	"github.com/simensrostad/mailpal/modem"
)

// MockSequence collects ordered write/read expectations for a scripted
// modem conversation on a MockTransport.
type MockSequence struct {
	transport *modem.MockTransport
	calls     []any
}

func NewMockSequence(transport *modem.MockTransport) *MockSequence {
	return &MockSequence{transport: transport}
}

// Command expects cmd to be written and answers it with resp in one read.
func (s *MockSequence) Command(cmd, resp string) *MockSequence {
	wire := []byte(cmd + "\r")
	s.calls = append(s.calls,
		s.transport.EXPECT().Write(wire).Return(len(wire), nil),
		s.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			return copy(p, resp), nil
		}),
	)
	return s
}

// AT is answered with the echo still on.
func (s *MockSequence) AT() *MockSequence { return s.Command("AT", "AT\r\nOK\r\n") }

func (s *MockSequence) EchoOff() *MockSequence { return s.Command("ATE0", "ATE0\r\nOK\r\n") }

func (s *MockSequence) VerboseErrors() *MockSequence { return s.Command("AT+CMEE=2", "OK\r\n") }

func (s *MockSequence) SimPinRequired() *MockSequence {
	return s.Command("AT+CPIN?", "+CPIN: SIM PIN\r\nOK\r\n")
}

func (s *MockSequence) SimReady() *MockSequence {
	return s.Command("AT+CPIN?", "+CPIN: READY\r\nOK\r\n")
}

func (s *MockSequence) Build() []any {
	return s.calls
}

// initMockCalls returns the expectations for a successful New.
func initMockCalls(transport *modem.MockTransport) []any {
	return NewMockSequence(transport).
		AT().
		EchoOff().
		VerboseErrors().
		SimReady().
		Build()
}
