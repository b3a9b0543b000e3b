// ABOUTME: Audio output interface tests
// ABOUTME: Verifies Sink implementations, negotiation and the headless device
package output

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
)

func TestBackendsImplementSink(t *testing.T) {
	var _ Sink = (*Oto)(nil)
	var _ Sink = (*Malgo)(nil)
	var _ Sink = (*Pulse)(nil)
	var _ Sink = (*PortAudio)(nil)
	var _ Sink = (*Null)(nil)
	var _ Sink = (*autoSink)(nil)
}

func TestNew(t *testing.T) {
	for _, name := range Backends {
		sink, err := New(name, Options{})
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if sink == nil {
			t.Fatalf("New(%q) returned nil", name)
		}
	}

	if _, err := New("jack", Options{}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNegotiate(t *testing.T) {
	dev := Device{
		Name:       "test",
		SampleRate: 48000,
		Channels:   2,
		Formats:    []audio.SampleFormat{audio.FormatInt16, audio.FormatFloat32},
	}

	tests := []struct {
		name     string
		dev      Device
		prefer   audio.SampleFormat
		expected audio.StreamConfig
		wantErr  error
	}{
		{
			name:     "device preference",
			dev:      dev,
			prefer:   audio.FormatUnknown,
			expected: audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.FormatInt16},
		},
		{
			name:     "caller preference",
			dev:      dev,
			prefer:   audio.FormatFloat32,
			expected: audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.FormatFloat32},
		},
		{
			name:    "unsupported preference",
			dev:     dev,
			prefer:  audio.FormatInt24,
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "no formats",
			dev:     Device{Name: "empty", SampleRate: 48000, Channels: 2},
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "zero rate",
			dev:     Device{Name: "broken", Channels: 2, Formats: dev.Formats},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown device format",
			dev:     Device{Name: "odd", SampleRate: 44100, Channels: 1, Formats: []audio.SampleFormat{audio.FormatUnknown}},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Negotiate(tt.dev, tt.prefer)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, cfg)
			}
		})
	}
}

func TestSetupErrorMatchesKind(t *testing.T) {
	tests := []struct {
		kind     SetupKind
		sentinel error
	}{
		{NoDevice, ErrNoDevice},
		{UnsupportedFormat, ErrUnsupportedFormat},
		{InvalidConfig, ErrInvalidConfig},
		{OpenFailed, ErrStreamOpen},
		{StartFailed, ErrStreamStart},
	}

	cause := errors.New("boom")
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := NewSetupError(tt.kind, "test", cause)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected errors.Is(%v, %v)", err, tt.sentinel)
			}
			if !errors.Is(err, cause) {
				t.Error("expected cause to be unwrapped")
			}
			var se *SetupError
			if !errors.As(err, &se) || se.Kind != tt.kind {
				t.Errorf("expected SetupError of kind %v", tt.kind)
			}
		})
	}

	if NewSetupError(NoDevice, "test", nil) != nil {
		t.Error("expected nil for nil cause")
	}
}

func TestStreamErrorUnwrap(t *testing.T) {
	err := &StreamError{Backend: "null", Err: ErrUnderflow}
	if !errors.Is(err, ErrUnderflow) {
		t.Error("expected StreamError to unwrap to ErrUnderflow")
	}
}

func TestWholeFrames(t *testing.T) {
	tests := []struct {
		n, frame, expected int
	}{
		{960, 4, 960},
		{961, 4, 960},
		{3, 4, 0},
		{10, 0, 0},
	}

	for _, tt := range tests {
		if got := wholeFrames(tt.n, tt.frame); got != tt.expected {
			t.Errorf("wholeFrames(%d, %d): expected %d, got %d", tt.n, tt.frame, tt.expected, got)
		}
	}
}

func TestAsBytes(t *testing.T) {
	samples := []int16{1, 2, 3}
	b := asBytes(samples)
	if len(b) != 6 {
		t.Fatalf("expected 6 bytes, got %d", len(b))
	}
	b[0] = 9
	if samples[0] == 1 {
		t.Error("expected byte view to alias the sample slice")
	}
	if asBytes([]float32{}) != nil {
		t.Error("expected nil view of empty slice")
	}
}

func TestNullStreamInvokesFill(t *testing.T) {
	sink := NewNull(Options{Period: time.Millisecond})
	dev, err := sink.DefaultDevice()
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := Negotiate(dev, audio.FormatInt16)
	if err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int64
	var size atomic.Int64
	stream, err := sink.Open(dev, cfg, Callbacks{Fill: func(buf []byte) {
		size.Store(int64(len(buf)))
		calls.Add(1)
	}})
	if err != nil {
		t.Fatal(err)
	}

	if err := stream.Start(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := stream.Stop(); err != nil {
		t.Fatal(err)
	}

	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 fill calls, got %d", calls.Load())
	}
	// 48 frames per millisecond, 2 channels, 2 bytes
	if size.Load() != 48*2*2 {
		t.Errorf("expected %d byte buffers, got %d", 48*2*2, size.Load())
	}

	after := calls.Load()
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != after {
		t.Error("fill called after Stop")
	}

	// Stop is idempotent
	if err := stream.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestNullOpenRejectsInvalidConfig(t *testing.T) {
	sink := NewNull(Options{})
	_, err := sink.Open(Device{Name: "null"}, audio.StreamConfig{}, Callbacks{Fill: func([]byte) {}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestAutoSelectsFirstAvailable(t *testing.T) {
	sink := newAuto(Options{}, []string{"bogus", "null"})
	if sink.Name() != "auto" {
		t.Errorf("expected name auto before probing, got %s", sink.Name())
	}

	dev, err := sink.DefaultDevice()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dev.Name != "null" {
		t.Errorf("expected null device, got %s", dev.Name)
	}
	if sink.Name() != "null" {
		t.Errorf("expected chosen backend null, got %s", sink.Name())
	}
}

func TestAutoNoBackend(t *testing.T) {
	sink := newAuto(Options{}, []string{"bogus"})
	if _, err := sink.DefaultDevice(); !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", err)
	}
	if _, err := sink.Open(Device{}, audio.StreamConfig{}, Callbacks{}); !errors.Is(err, ErrStreamOpen) {
		t.Errorf("expected ErrStreamOpen, got %v", err)
	}
}
