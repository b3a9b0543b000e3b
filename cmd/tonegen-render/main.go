// ABOUTME: Offline renderer for the chord tone generator
// ABOUTME: Writes one ten-second chord to a WAV file instead of a device
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/tonegen/internal/logging"
	"github.com/Resonate-Protocol/tonegen/internal/version"
	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"github.com/Resonate-Protocol/tonegen/pkg/audio/wav"
	"github.com/Resonate-Protocol/tonegen/pkg/tone"
	"github.com/Resonate-Protocol/tonegen/pkg/tonegen"
	"go.uber.org/zap"
)

var (
	out      = flag.String("out", "", "Output WAV file (required)")
	rate     = flag.Int("rate", 48000, "Sample rate in Hz")
	channels = flag.Int("channels", 1, "Channel count")
	format   = flag.String("format", "f32", "Sample format: f32, s16, s24 or s32")
	seed     = flag.Uint64("seed", 0, "Random seed for chord selection (0 = random)")
	debug    = flag.Bool("debug", false, "Enable debug logging")
)

// blockFrames is the render block size, matching a 10ms device buffer at 48kHz
const blockFrames = 480

func main() {
	flag.Parse()

	logger, cleanup, err := logging.New(logging.Options{Console: true, Debug: *debug})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tonegen-render: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := run(logger); err != nil {
		logger.Error("render failed", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	if *out == "" {
		return fmt.Errorf("-out is required")
	}

	f, err := audio.ParseSampleFormat(*format)
	if err != nil {
		return err
	}
	if f == audio.FormatUnknown {
		f = audio.FormatFloat32
	}
	cfg := audio.StreamConfig{SampleRate: *rate, Channels: *channels, Format: f}
	if err := cfg.Validate(); err != nil {
		return err
	}

	chord, err := tone.Select(tone.TwelveToneEqualTemperament, tone.ChordSize, tone.NewSource(*seed))
	if err != nil {
		return fmt.Errorf("failed to select chord: %w", err)
	}

	file, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	res, err := render(file, chord, cfg)
	if err != nil {
		_ = file.Close()
		return err
	}

	logger.Info("rendered chord",
		zap.String("product", version.Product),
		zap.String("file", *out),
		zap.Stringer("chord", chord),
		zap.Float64s("freqs", chord.Freqs()),
		zap.Stringer("config", cfg),
		zap.Int64("frames", res.Frames),
		zap.Int64("clamped", res.Clamped))
	return nil
}

type renderResult struct {
	Frames  int64
	Clamped int64
}

// render writes PlaybackDuration worth of frames to w and closes it
func render(w io.WriteSeeker, chord tone.Chord, cfg audio.StreamConfig) (renderResult, error) {
	r, err := tonegen.NewRenderer(chord, cfg)
	if err != nil {
		return renderResult{}, err
	}

	ww, err := wav.NewWriter(w, cfg)
	if err != nil {
		return renderResult{}, err
	}

	total := int64(tonegen.PlaybackDuration.Seconds() * float64(cfg.SampleRate))
	buf := make([]byte, blockFrames*r.FrameBytes())
	clock := &tonegen.SampleClock{}

	var res renderResult
	for res.Frames < total {
		n := min(int64(blockFrames), total-res.Frames)
		fill := r.Fill(clock, buf[:n*int64(r.FrameBytes())])
		if _, err := ww.Write(buf[:fill.Frames*r.FrameBytes()]); err != nil {
			return res, fmt.Errorf("failed to write samples: %w", err)
		}
		res.Frames += int64(fill.Frames)
		res.Clamped += int64(fill.Clamped)
	}

	if err := ww.Close(); err != nil {
		return res, fmt.Errorf("failed to finalize wav: %w", err)
	}
	return res, nil
}
