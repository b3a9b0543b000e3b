// ABOUTME: Real-time buffer renderer
// ABOUTME: Fills interleaved frames with one synthesized amplitude per frame
package tonegen

import (
	"errors"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"github.com/Resonate-Protocol/tonegen/pkg/synth"
	"github.com/Resonate-Protocol/tonegen/pkg/tone"
)

// Renderer binds a chord to a stream layout. Everything that can fail is
// checked in NewRenderer so Fill cannot.
type Renderer struct {
	freqs      []float64
	rate       float64
	channels   int
	width      int
	frameBytes int
	put        audio.PutFunc
}

// FillResult summarizes one Fill call
type FillResult struct {
	Frames  int
	Clamped int
	// Partial is set when buf ended in bytes that did not form a whole frame
	Partial bool
}

// NewRenderer validates cfg and resolves its sample encoder
func NewRenderer(chord tone.Chord, cfg audio.StreamConfig) (*Renderer, error) {
	if chord.Len() == 0 {
		return nil, errors.New("empty chord")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	put, err := cfg.Format.Encoder()
	if err != nil {
		return nil, err
	}

	return &Renderer{
		freqs:      chord.Freqs(),
		rate:       float64(cfg.SampleRate),
		channels:   cfg.Channels,
		width:      cfg.Format.BytesPerSample(),
		frameBytes: cfg.FrameBytes(),
		put:        put,
	}, nil
}

// FrameBytes returns the size of one interleaved frame
func (r *Renderer) FrameBytes() int { return r.frameBytes }

// Fill writes whole frames into buf, advancing clock once per frame. The same
// sample goes to every channel. Trailing bytes short of a frame are zeroed.
func (r *Renderer) Fill(clock *SampleClock, buf []byte) FillResult {
	var res FillResult

	frames := len(buf) / r.frameBytes
	for i := 0; i < frames; i++ {
		t := clock.Advance() / r.rate
		a := synth.SampleAt(t, r.freqs)
		if !(a >= 0 && a <= 1) {
			res.Clamped++
		}

		frame := buf[i*r.frameBytes : (i+1)*r.frameBytes]
		r.put(frame[:r.width], a)
		for ch := 1; ch < r.channels; ch++ {
			copy(frame[ch*r.width:(ch+1)*r.width], frame[:r.width])
		}
	}
	res.Frames = frames

	if tail := buf[frames*r.frameBytes:]; len(tail) > 0 {
		clear(tail)
		res.Partial = true
	}
	return res
}
