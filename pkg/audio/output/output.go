// ABOUTME: Audio output interface definition
// ABOUTME: Common Sink and Stream contracts, negotiation and backend registry
package output

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unsafe"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"go.uber.org/zap"
)

// Device describes the default output of a backend
type Device struct {
	Name       string
	SampleRate int
	Channels   int
	// Formats lists the sample formats the device accepts, most preferred first
	Formats []audio.SampleFormat
}

// FillFunc fills buf with interleaved little-endian samples in the stream format.
// It runs on the device thread and must not block.
type FillFunc func(buf []byte)

// ErrorFunc receives runtime stream problems. It may be called from the device thread.
type ErrorFunc func(err error)

// Callbacks are supplied by the caller when opening a stream
type Callbacks struct {
	Fill    FillFunc
	OnError ErrorFunc
}

// Stream is an opened output stream
type Stream interface {
	// Start begins invoking the fill callback
	Start() error

	// Stop halts callbacks and releases the stream. Safe to call more than once.
	Stop() error
}

// Sink represents an audio output backend
type Sink interface {
	// Name returns the backend name
	Name() string

	// DefaultDevice returns the default output device
	DefaultDevice() (Device, error)

	// Open prepares a stream on dev with cfg
	Open(dev Device, cfg audio.StreamConfig, cb Callbacks) (Stream, error)

	// Close releases backend resources
	Close() error
}

// Options configure backend construction
type Options struct {
	Logger *zap.Logger

	// AppName is announced to sound servers that support it
	AppName string

	// Period is the callback interval of the null backend (default 10ms)
	Period time.Duration
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Backends lists the selectable backend names
var Backends = []string{"auto", "pulse", "malgo", "oto", "portaudio", "null"}

// autoOrder is the probe order used by the auto backend
var autoOrder = []string{"pulse", "malgo", "oto"}

// New creates the named backend
func New(name string, opts Options) (Sink, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return newAuto(opts, autoOrder), nil
	case "oto":
		return NewOto(opts), nil
	case "pulse":
		return NewPulse(opts), nil
	case "malgo":
		return NewMalgo(opts), nil
	case "portaudio":
		return NewPortAudio(opts), nil
	case "null":
		return NewNull(opts), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (supported: %s)", name, strings.Join(Backends, ", "))
	}
}

// Negotiate picks the stream config for dev. A prefer of audio.FormatUnknown
// takes the device's first format.
func Negotiate(dev Device, prefer audio.SampleFormat) (audio.StreamConfig, error) {
	if dev.SampleRate <= 0 || dev.Channels <= 0 {
		return audio.StreamConfig{}, fmt.Errorf("%w: device %q reports %dHz/%dch",
			ErrInvalidConfig, dev.Name, dev.SampleRate, dev.Channels)
	}
	if len(dev.Formats) == 0 {
		return audio.StreamConfig{}, fmt.Errorf("%w: device %q reports no sample formats", ErrUnsupportedFormat, dev.Name)
	}

	format := dev.Formats[0]
	if prefer != audio.FormatUnknown {
		if !slices.Contains(dev.Formats, prefer) {
			return audio.StreamConfig{}, fmt.Errorf("%w: device %q does not accept %v (accepts %v)",
				ErrUnsupportedFormat, dev.Name, prefer, dev.Formats)
		}
		format = prefer
	}

	cfg := audio.StreamConfig{
		SampleRate: dev.SampleRate,
		Channels:   dev.Channels,
		Format:     format,
	}
	if err := cfg.Validate(); err != nil {
		return audio.StreamConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// wholeFrames trims n bytes down to a multiple of the frame size
func wholeFrames(n, frameBytes int) int {
	if frameBytes <= 0 {
		return 0
	}
	return n - n%frameBytes
}

// asBytes views a typed sample slice as its underlying bytes without copying
func asBytes[T int16 | int32 | float32](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}
