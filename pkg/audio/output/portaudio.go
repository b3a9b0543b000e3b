//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform callback output using PortAudio
package output

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

// PortAudio output implementation
type PortAudio struct {
	log *zap.Logger

	mu          sync.Mutex
	initialized bool
	device      *portaudio.DeviceInfo
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(opts Options) Sink {
	return &PortAudio{log: opts.logger().Named("portaudio")}
}

func (p *PortAudio) Name() string { return "portaudio" }

// DefaultDevice initializes PortAudio and reports the default output device
func (p *PortAudio) DefaultDevice() (Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		if err := portaudio.Initialize(); err != nil {
			return Device{}, fmt.Errorf("%w: failed to initialize portaudio: %v", ErrNoDevice, err)
		}
		p.initialized = true
	}

	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	p.device = dev

	channels := dev.MaxOutputChannels
	if channels > 2 {
		channels = 2
	}

	return Device{
		Name:       dev.Name,
		SampleRate: int(dev.DefaultSampleRate),
		Channels:   channels,
		Formats:    []audio.SampleFormat{audio.FormatFloat32, audio.FormatInt16, audio.FormatInt32},
	}, nil
}

// Open opens a low-latency callback stream on the default device
func (p *PortAudio) Open(dev Device, cfg audio.StreamConfig, cb Callbacks) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return nil, fmt.Errorf("%w: no device, call DefaultDevice first", ErrStreamOpen)
	}

	params := portaudio.LowLatencyParameters(nil, p.device)
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)

	callback, err := portaudioCallback(cfg, cb)
	if err != nil {
		return nil, err
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamOpen, err)
	}

	p.log.Info("audio output initialized",
		zap.String("device", dev.Name),
		zap.Stringer("config", cfg))

	return &portaudioStream{stream: stream}, nil
}

// Close terminates PortAudio
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}
	p.initialized = false
	p.device = nil
	return portaudio.Terminate()
}

// portaudioCallback builds the typed callback for the stream format.
// Status flags are forwarded as sentinel errors without allocating.
func portaudioCallback(cfg audio.StreamConfig, cb Callbacks) (interface{}, error) {
	report := func(flags portaudio.StreamCallbackFlags) {
		if cb.OnError == nil {
			return
		}
		if flags&portaudio.OutputUnderflow != 0 {
			cb.OnError(ErrUnderflow)
		}
		if flags&portaudio.OutputOverflow != 0 {
			cb.OnError(ErrOverflow)
		}
	}
	ch := cfg.Channels

	switch cfg.Format {
	case audio.FormatFloat32:
		return func(out []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			report(flags)
			cb.Fill(asBytes(out[:wholeFrames(len(out), ch)]))
		}, nil
	case audio.FormatInt16:
		return func(out []int16, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			report(flags)
			cb.Fill(asBytes(out[:wholeFrames(len(out), ch)]))
		}, nil
	case audio.FormatInt32:
		return func(out []int32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			report(flags)
			cb.Fill(asBytes(out[:wholeFrames(len(out), ch)]))
		}, nil
	default:
		return nil, fmt.Errorf("%w: portaudio backend supports f32, s16 and s32, not %v", ErrUnsupportedFormat, cfg.Format)
	}
}

type portaudioStream struct {
	stream *portaudio.Stream
	once   sync.Once
}

func (s *portaudioStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamStart, err)
	}
	return nil
}

func (s *portaudioStream) Stop() error {
	var err error
	s.once.Do(func() {
		if stopErr := s.stream.Stop(); stopErr != nil {
			err = stopErr
		}
		if closeErr := s.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	})
	return err
}
