// ABOUTME: Headless audio output implementation
// ABOUTME: Timer-driven device that pulls samples and discards them
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"go.uber.org/zap"
)

const defaultNullPeriod = 10 * time.Millisecond

// Null is a device without hardware. Its goroutine invokes the fill callback
// once per period with a period's worth of frames.
type Null struct {
	log    *zap.Logger
	period time.Duration
}

// NewNull creates a headless output
func NewNull(opts Options) Sink {
	period := opts.Period
	if period <= 0 {
		period = defaultNullPeriod
	}
	return &Null{log: opts.logger().Named("null"), period: period}
}

func (n *Null) Name() string { return "null" }

func (n *Null) DefaultDevice() (Device, error) {
	return Device{
		Name:       "null",
		SampleRate: 48000,
		Channels:   2,
		Formats:    append([]audio.SampleFormat(nil), audio.AllFormats...),
	}, nil
}

// Open preallocates one period of buffer
func (n *Null) Open(dev Device, cfg audio.StreamConfig, cb Callbacks) (Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	frames := int(int64(cfg.SampleRate) * int64(n.period) / int64(time.Second))
	if frames < 1 {
		frames = 1
	}

	n.log.Info("audio output initialized",
		zap.String("device", dev.Name),
		zap.Stringer("config", cfg),
		zap.Int("frames_per_buffer", frames))

	return &nullStream{
		fill:   cb.Fill,
		period: n.period,
		buf:    make([]byte, frames*cfg.FrameBytes()),
		done:   make(chan struct{}),
	}, nil
}

func (n *Null) Close() error { return nil }

type nullStream struct {
	fill   FillFunc
	period time.Duration
	buf    []byte

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func (s *nullStream) Start() error {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
	return nil
}

func (s *nullStream) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.fill(s.buf)
		}
	}
}

func (s *nullStream) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}
