package modem

import "errors"

var (
	// ErrNoDialer means the Config has no Dialer to open the transport with.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized means the Modem has no transport, either because
	// dialing produced none or because it was not created by New.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned by every operation after Close.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrSIMPinRequired means the SIM is locked and no PIN was configured.
	ErrSIMPinRequired = errors.New("SIM PIN required")

	// ErrLoopRunning is returned by a second concurrent Loop.
	ErrLoopRunning = errors.New("modem loop already running")

	// ErrCommandFailed wraps a command that did not end in OK. The raw
	// response is part of the wrapping error.
	ErrCommandFailed = errors.New("AT command failed")

	// ErrLineTooLong means a response line exceeded the scanner limit,
	// usually binary noise or lost framing on the serial line.
	ErrLineTooLong = errors.New("response line too long")
)
