// ABOUTME: Tests for the real-time renderer
// ABOUTME: Covers channel duplication, clamping, partial frames and range policy
package tonegen

import (
	"bytes"
	"math"
	"testing"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"github.com/Resonate-Protocol/tonegen/pkg/synth"
	"github.com/Resonate-Protocol/tonegen/pkg/tone"
)

func mustChord(t *testing.T, freqs ...float64) tone.Chord {
	t.Helper()
	chord, err := tone.NewChord(tone.TwelveToneEqualTemperament, freqs...)
	if err != nil {
		t.Fatal(err)
	}
	return chord
}

func cMajor(t *testing.T) tone.Chord {
	return mustChord(t, 261.626, 329.628, 391.995)
}

func decodeAll(t *testing.T, f audio.SampleFormat, buf []byte) []float64 {
	t.Helper()
	w := f.BytesPerSample()
	out := make([]float64, 0, len(buf)/w)
	for i := 0; i+w <= len(buf); i += w {
		v, err := f.Decode(buf[i : i+w])
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, v)
	}
	return out
}

func TestNewRendererValidates(t *testing.T) {
	tests := []struct {
		name    string
		chord   tone.Chord
		cfg     audio.StreamConfig
		wantErr bool
	}{
		{"valid", cMajor(t), audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.FormatInt16}, false},
		{"empty chord", tone.Chord{}, audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.FormatInt16}, true},
		{"bad rate", cMajor(t), audio.StreamConfig{SampleRate: 0, Channels: 2, Format: audio.FormatInt16}, true},
		{"bad format", cMajor(t), audio.StreamConfig{SampleRate: 48000, Channels: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRenderer(tt.chord, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRenderer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRendererDuplicatesAcrossChannels(t *testing.T) {
	for _, f := range audio.AllFormats {
		t.Run(f.String(), func(t *testing.T) {
			cfg := audio.StreamConfig{SampleRate: 48000, Channels: 3, Format: f}
			r, err := NewRenderer(cMajor(t), cfg)
			if err != nil {
				t.Fatal(err)
			}

			buf := make([]byte, 256*cfg.FrameBytes())
			res := r.Fill(&SampleClock{}, buf)
			if res.Frames != 256 || res.Partial {
				t.Fatalf("unexpected result %+v", res)
			}

			w := f.BytesPerSample()
			for i := 0; i < res.Frames; i++ {
				frame := buf[i*cfg.FrameBytes() : (i+1)*cfg.FrameBytes()]
				for ch := 1; ch < cfg.Channels; ch++ {
					if !bytes.Equal(frame[:w], frame[ch*w:(ch+1)*w]) {
						t.Fatalf("frame %d channel %d differs from channel 0", i, ch)
					}
				}
			}
		})
	}
}

func TestRendererAdvancesClockPerFrame(t *testing.T) {
	cfg := audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.FormatFloat32}
	r, err := NewRenderer(cMajor(t), cfg)
	if err != nil {
		t.Fatal(err)
	}

	clock := &SampleClock{}
	r.Fill(clock, make([]byte, 100*cfg.FrameBytes()))
	if clock.Value() != 100 {
		t.Errorf("expected clock 100 after 100 frames, got %v", clock.Value())
	}
	r.Fill(clock, make([]byte, 5*cfg.FrameBytes()))
	if clock.Value() != 105 {
		t.Errorf("expected clock 105, got %v", clock.Value())
	}
}

func TestRendererPartialFrame(t *testing.T) {
	cfg := audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.FormatInt16}
	r, err := NewRenderer(cMajor(t), cfg)
	if err != nil {
		t.Fatal(err)
	}

	buf := bytes.Repeat([]byte{0xAA}, 10*cfg.FrameBytes()+3)
	clock := &SampleClock{}
	res := r.Fill(clock, buf)

	if res.Frames != 10 {
		t.Errorf("expected 10 frames, got %d", res.Frames)
	}
	if !res.Partial {
		t.Error("expected partial frame to be reported")
	}
	if clock.Value() != 10 {
		t.Errorf("partial frame must not advance clock, got %v", clock.Value())
	}
	for i, b := range buf[10*cfg.FrameBytes():] {
		if b != 0 {
			t.Errorf("tail byte %d not zeroed: %#x", i, b)
		}
	}
}

func TestRendererBufferSmallerThanFrame(t *testing.T) {
	cfg := audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.FormatFloat32}
	r, err := NewRenderer(cMajor(t), cfg)
	if err != nil {
		t.Fatal(err)
	}
	res := r.Fill(&SampleClock{}, make([]byte, 5))
	if res.Frames != 0 || !res.Partial {
		t.Errorf("unexpected result %+v", res)
	}
	if res := r.Fill(&SampleClock{}, nil); res.Frames != 0 || res.Partial {
		t.Errorf("unexpected result for empty buffer %+v", res)
	}
}

// TestRendererRangePolicy sounds every note of the scale at once, which pushes
// the raw amplitude outside [0,1] near the envelope peak.
func TestRendererRangePolicy(t *testing.T) {
	all := mustChord(t, tone.TwelveToneEqualTemperament[:]...)
	freqs := all.Freqs()
	const rate = 8000

	wantClamped := 0
	for n := 1; n <= rate; n++ {
		a := synth.SampleAt(float64(n)/rate, freqs)
		if a < 0 || a > 1 {
			wantClamped++
		}
	}

	for _, f := range audio.AllFormats {
		t.Run(f.String(), func(t *testing.T) {
			cfg := audio.StreamConfig{SampleRate: rate, Channels: 1, Format: f}
			r, err := NewRenderer(all, cfg)
			if err != nil {
				t.Fatal(err)
			}

			buf := make([]byte, rate*cfg.FrameBytes())
			res := r.Fill(&SampleClock{}, buf)
			if res.Clamped != wantClamped {
				t.Errorf("expected %d clamped frames, got %d", wantClamped, res.Clamped)
			}

			for i, v := range decodeAll(t, f, buf) {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Fatalf("sample %d = %v outside [0,1]", i, v)
				}
			}
		})
	}
}

// Even a single low note peaks slightly above 1 around t=1/6, so only the
// encoded output is checked here.
func TestRendererScaleNotesStayInRange(t *testing.T) {
	const rate = 4000
	for i, f := range tone.TwelveToneEqualTemperament {
		chord := mustChord(t, f)
		cfg := audio.StreamConfig{SampleRate: rate, Channels: 1, Format: audio.FormatInt16}
		r, err := NewRenderer(chord, cfg)
		if err != nil {
			t.Fatal(err)
		}

		clock := &SampleClock{}
		buf := make([]byte, rate*cfg.FrameBytes())
		for sec := 0; sec < 10; sec++ {
			if res := r.Fill(clock, buf); res.Frames != rate {
				t.Fatalf("%s: expected %d frames in second %d, got %d", tone.NoteNames[i], rate, sec, res.Frames)
			}
			for _, v := range decodeAll(t, cfg.Format, buf) {
				if v < 0 || v > 1 {
					t.Fatalf("%s: sample %v outside [0,1]", tone.NoteNames[i], v)
				}
			}
		}
	}
}

func BenchmarkRendererFill(b *testing.B) {
	chord, _ := tone.NewChord(tone.TwelveToneEqualTemperament, 261.626, 329.628, 391.995)
	cfg := audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.FormatFloat32}
	r, _ := NewRenderer(chord, cfg)
	buf := make([]byte, 480*cfg.FrameBytes())
	clock := &SampleClock{}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Fill(clock, buf)
	}
}
