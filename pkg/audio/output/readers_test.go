// ABOUTME: Tests for the callback adapters the pulse, oto and malgo backends hand to their libraries
// ABOUTME: Pull adapters fill whole frames only; malgo reports only unrequested stops
package output

import (
	"errors"
	"testing"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
)

func TestPulseReaderFillsWholeFrames(t *testing.T) {
	tests := []struct {
		name      string
		format    audio.SampleFormat
		channels  int
		samples   int // samples offered by the server
		wantBytes int
	}{
		{"f32 stereo odd", audio.FormatFloat32, 2, 7, 24},
		{"f32 stereo even", audio.FormatFloat32, 2, 8, 32},
		{"f32 mono", audio.FormatFloat32, 1, 7, 28},
		{"s16 stereo odd", audio.FormatInt16, 2, 5, 8},
		{"s16 mono", audio.FormatInt16, 1, 5, 10},
		{"s32 stereo odd", audio.FormatInt32, 2, 3, 8},
		{"less than a frame", audio.FormatInt16, 2, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := audio.StreamConfig{SampleRate: 48000, Channels: tt.channels, Format: tt.format}

			var got []byte
			r, err := pulseReader(cfg, func(buf []byte) {
				got = buf
				for i := range buf {
					buf[i] = 0xAB
				}
			})
			if err != nil {
				t.Fatal(err)
			}

			buf := make([]byte, tt.samples*tt.format.BytesPerSample())
			n, err := r.Read(buf)
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.wantBytes {
				t.Errorf("expected Read to report %d bytes, got %d", tt.wantBytes, n)
			}
			if len(got) != tt.wantBytes {
				t.Errorf("expected fill to receive %d bytes, got %d", tt.wantBytes, len(got))
			}
			if len(got)%cfg.FrameBytes() != 0 {
				t.Errorf("fill received %d bytes, not whole %d-byte frames", len(got), cfg.FrameBytes())
			}
			for i, b := range buf[:tt.wantBytes] {
				if b != 0xAB {
					t.Fatalf("byte %d not written through to the server buffer", i)
				}
			}
		})
	}
}

func TestPulseReaderRejectsInt24(t *testing.T) {
	cfg := audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.FormatInt24}
	if _, err := pulseReader(cfg, func([]byte) {}); err == nil {
		t.Error("expected error for s24")
	}
}

func TestOtoReaderFillsWholeFrames(t *testing.T) {
	tests := []struct {
		name       string
		frameBytes int
		request    int
		want       int
	}{
		{"exact", 8, 32, 32},
		{"trailing partial frame", 8, 20, 16},
		{"less than a frame", 8, 5, 0},
		{"s16 stereo", 4, 4098, 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			filled := -1
			r := &otoReader{
				frameBytes: tt.frameBytes,
				fill: func(buf []byte) {
					calls++
					filled = len(buf)
				},
			}

			n, err := r.Read(make([]byte, tt.request))
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.want {
				t.Errorf("expected %d bytes, got %d", tt.want, n)
			}
			if tt.want == 0 {
				if calls != 0 {
					t.Error("fill should not run for a request shorter than a frame")
				}
				return
			}
			if calls != 1 || filled != tt.want {
				t.Errorf("expected one fill of %d bytes, got %d calls of %d", tt.want, calls, filled)
			}
		})
	}
}

func TestMalgoDeviceStoppedReportsOnlyUnrequestedStops(t *testing.T) {
	var reported []error
	s := &malgoStream{onError: func(err error) { reported = append(reported, err) }}

	s.deviceStopped()
	if len(reported) != 1 || !errors.Is(reported[0], ErrDeviceStopped) {
		t.Fatalf("expected ErrDeviceStopped, got %v", reported)
	}

	s.stopping.Store(true)
	s.deviceStopped()
	if len(reported) != 1 {
		t.Errorf("requested stop should not be reported, got %v", reported)
	}
}
