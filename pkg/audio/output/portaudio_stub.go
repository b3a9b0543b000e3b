//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(opts Options) Sink {
	return &PortAudio{}
}

func (p *PortAudio) Name() string { return "portaudio" }

// DefaultDevice always fails without the portaudio build tag
func (p *PortAudio) DefaultDevice() (Device, error) {
	return Device{}, fmt.Errorf("%w: %v", ErrNoDevice, errPortAudioDisabled)
}

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(dev Device, cfg audio.StreamConfig, cb Callbacks) (Stream, error) {
	return nil, fmt.Errorf("%w: %v", ErrStreamOpen, errPortAudioDisabled)
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
