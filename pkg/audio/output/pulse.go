// ABOUTME: PulseAudio output implementation
// ABOUTME: Native protocol client whose playback callback pulls typed sample buffers
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"github.com/jfreymuth/pulse"
	"go.uber.org/zap"
)

const (
	pulseLatency = 0.05 // seconds
	pulsePoll    = 100 * time.Millisecond
)

// Pulse output implementation using the PulseAudio native protocol
type Pulse struct {
	log     *zap.Logger
	appName string

	mu     sync.Mutex
	client *pulse.Client
}

// NewPulse creates a new PulseAudio output
func NewPulse(opts Options) Sink {
	name := opts.AppName
	if name == "" {
		name = "tonegen"
	}
	return &Pulse{log: opts.logger().Named("pulse"), appName: name}
}

func (p *Pulse) Name() string { return "pulse" }

// DefaultDevice connects to the sound server and reports its default sink.
// More than two channels are mixed down to stereo by the server.
func (p *Pulse) DefaultDevice() (Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		c, err := pulse.NewClient(pulse.ClientApplicationName(p.appName))
		if err != nil {
			return Device{}, fmt.Errorf("%w: failed to connect to PulseAudio: %v", ErrNoDevice, err)
		}
		p.client = c
	}

	sink, err := p.client.DefaultSink()
	if err != nil {
		return Device{}, fmt.Errorf("%w: failed to query default sink: %v", ErrNoDevice, err)
	}

	channels := len(sink.Channels())
	if channels > 2 {
		channels = 2
	}

	return Device{
		Name:       sink.Name(),
		SampleRate: sink.SampleRate(),
		Channels:   channels,
		Formats:    []audio.SampleFormat{audio.FormatFloat32, audio.FormatInt16, audio.FormatInt32},
	}, nil
}

// Open creates a corked playback stream on the default sink
func (p *Pulse) Open(dev Device, cfg audio.StreamConfig, cb Callbacks) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil, fmt.Errorf("%w: not connected, call DefaultDevice first", ErrStreamOpen)
	}

	reader, err := pulseReader(cfg, cb.Fill)
	if err != nil {
		return nil, err
	}

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(cfg.SampleRate),
		pulse.PlaybackLatency(pulseLatency),
	}
	switch cfg.Channels {
	case 1:
		opts = append(opts, pulse.PlaybackMono)
	case 2:
		opts = append(opts, pulse.PlaybackStereo)
	default:
		return nil, fmt.Errorf("%w: pulse backend supports 1 or 2 channels, got %d", ErrInvalidConfig, cfg.Channels)
	}

	stream, err := p.client.NewPlayback(reader, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamOpen, err)
	}

	p.log.Info("audio output initialized",
		zap.String("device", dev.Name),
		zap.Stringer("config", cfg))

	return &pulseStream{
		stream:  stream,
		onError: cb.OnError,
		done:    make(chan struct{}),
	}, nil
}

// Close disconnects from the sound server
func (p *Pulse) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	return nil
}

// pulseReader wraps fill in the typed reader matching the stream format.
// Only whole frames are filled; the count returned is in samples.
func pulseReader(cfg audio.StreamConfig, fill FillFunc) (pulse.Reader, error) {
	ch := cfg.Channels
	switch cfg.Format {
	case audio.FormatFloat32:
		return pulse.Float32Reader(func(out []float32) (int, error) {
			n := wholeFrames(len(out), ch)
			fill(asBytes(out[:n]))
			return n, nil
		}), nil
	case audio.FormatInt16:
		return pulse.Int16Reader(func(out []int16) (int, error) {
			n := wholeFrames(len(out), ch)
			fill(asBytes(out[:n]))
			return n, nil
		}), nil
	case audio.FormatInt32:
		return pulse.Int32Reader(func(out []int32) (int, error) {
			n := wholeFrames(len(out), ch)
			fill(asBytes(out[:n]))
			return n, nil
		}), nil
	default:
		return nil, fmt.Errorf("%w: pulse backend supports f32, s16 and s32, not %v", ErrUnsupportedFormat, cfg.Format)
	}
}

type pulseStream struct {
	stream  *pulse.PlaybackStream
	onError ErrorFunc

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

func (s *pulseStream) Start() error {
	s.stream.Start()
	if err := s.stream.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamStart, err)
	}

	s.wg.Add(1)
	go s.watch()
	return nil
}

// watch reports underflows and stream failures, which pulse exposes by polling
func (s *pulseStream) watch() {
	defer s.wg.Done()

	ticker := time.NewTicker(pulsePoll)
	defer ticker.Stop()

	underflow := false
	var last error
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			u := s.stream.Underflow()
			if u && !underflow && s.onError != nil {
				s.onError(ErrUnderflow)
			}
			underflow = u
			if err := s.stream.Error(); err != nil && err != last {
				last = err
				if s.onError != nil {
					s.onError(err)
				}
			}
		}
	}
}

func (s *pulseStream) Stop() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.stream.Stop()
		s.stream.Close()
	})
	return nil
}
