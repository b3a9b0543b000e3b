// ABOUTME: Setup and runtime error types for audio output
// ABOUTME: Names each failure kind so callers can report and exit cleanly
package output

import (
	"errors"
	"fmt"
)

var (
	ErrNoDevice          = errors.New("no output device")
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	ErrInvalidConfig     = errors.New("invalid stream config")
	ErrStreamOpen        = errors.New("failed to open stream")
	ErrStreamStart       = errors.New("failed to start stream")

	ErrUnderflow     = errors.New("output underflow")
	ErrOverflow      = errors.New("output overflow")
	ErrPartialFrame  = errors.New("buffer ends in a partial frame")
	ErrDeviceStopped = errors.New("device stopped unexpectedly")
)

// SetupKind names the stage at which stream setup failed
type SetupKind int

const (
	NoDevice SetupKind = iota + 1
	UnsupportedFormat
	InvalidConfig
	OpenFailed
	StartFailed
)

func (k SetupKind) String() string {
	switch k {
	case NoDevice:
		return "no-device"
	case UnsupportedFormat:
		return "unsupported-format"
	case InvalidConfig:
		return "invalid-config"
	case OpenFailed:
		return "open-failed"
	case StartFailed:
		return "start-failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

func (k SetupKind) sentinel() error {
	switch k {
	case NoDevice:
		return ErrNoDevice
	case UnsupportedFormat:
		return ErrUnsupportedFormat
	case InvalidConfig:
		return ErrInvalidConfig
	case OpenFailed:
		return ErrStreamOpen
	case StartFailed:
		return ErrStreamStart
	default:
		return nil
	}
}

// SetupError is a fatal failure before streaming begins
type SetupError struct {
	Kind    SetupKind
	Backend string
	Err     error
}

// NewSetupError wraps err with a kind. A nil err yields nil.
func NewSetupError(kind SetupKind, backend string, err error) error {
	if err == nil {
		return nil
	}
	return &SetupError{Kind: kind, Backend: backend, Err: err}
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("audio setup failed (%s) on %s: %v", e.Kind, e.Backend, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error kind, so errors.Is(err, ErrNoDevice)
// holds for any NoDevice setup error.
func (e *SetupError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// StreamError is a runtime problem reported by a running stream
type StreamError struct {
	Backend string
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error on %s: %v", e.Backend, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
