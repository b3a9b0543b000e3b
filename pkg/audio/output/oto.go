// ABOUTME: Oto-based audio output implementation
// ABOUTME: Pulls samples through an io.Reader driven by the oto player goroutine
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"
)

const (
	otoSampleRate = 48000
	otoChannels   = 2
	otoBuffer     = 20 * time.Millisecond
	otoErrPoll    = 100 * time.Millisecond
)

// Oto output implementation using oto library
type Oto struct {
	log *zap.Logger

	mu     sync.Mutex
	otoCtx *oto.Context
	cfg    audio.StreamConfig
}

// NewOto creates a new Oto output
func NewOto(opts Options) Sink {
	return &Oto{log: opts.logger().Named("oto")}
}

func (o *Oto) Name() string { return "oto" }

// DefaultDevice reports the format oto's platform driver is opened with.
// oto has no device enumeration; the system default output is always used.
func (o *Oto) DefaultDevice() (Device, error) {
	return Device{
		Name:       "system default (oto)",
		SampleRate: otoSampleRate,
		Channels:   otoChannels,
		Formats:    []audio.SampleFormat{audio.FormatFloat32, audio.FormatInt16},
	}, nil
}

// Open initializes the oto context and a player reading from the fill callback
func (o *Oto) Open(dev Device, cfg audio.StreamConfig, cb Callbacks) (Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	format, err := otoFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	// oto only allows one context per process
	if o.otoCtx != nil && o.cfg != cfg {
		return nil, fmt.Errorf("%w: oto context already running as %v, cannot reopen as %v", ErrStreamOpen, o.cfg, cfg)
	}

	if o.otoCtx == nil {
		ctx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       format,
			BufferSize:   otoBuffer,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create oto context: %v", ErrStreamOpen, err)
		}
		<-readyChan

		o.otoCtx = ctx
		o.cfg = cfg
	}

	r := &otoReader{fill: cb.Fill, frameBytes: cfg.FrameBytes()}
	s := &otoStream{
		player:  o.otoCtx.NewPlayer(r),
		onError: cb.OnError,
		done:    make(chan struct{}),
		log:     o.log,
	}

	o.log.Info("audio output initialized",
		zap.String("device", dev.Name),
		zap.Stringer("config", cfg))

	return s, nil
}

// Close suspends the oto context
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}

func otoFormat(f audio.SampleFormat) (oto.Format, error) {
	switch f {
	case audio.FormatFloat32:
		return oto.FormatFloat32LE, nil
	case audio.FormatInt16:
		return oto.FormatSignedInt16LE, nil
	default:
		return 0, fmt.Errorf("%w: oto supports f32 and s16, not %v", ErrUnsupportedFormat, f)
	}
}

// otoReader adapts the fill callback to the io.Reader oto pulls from
type otoReader struct {
	fill       FillFunc
	frameBytes int
}

// Read fills only whole frames so the interleaving never drifts.
// A request shorter than one frame returns 0.
func (r *otoReader) Read(p []byte) (int, error) {
	n := wholeFrames(len(p), r.frameBytes)
	if n == 0 {
		return 0, nil
	}
	r.fill(p[:n])
	return n, nil
}

type otoStream struct {
	player  *oto.Player
	onError ErrorFunc
	log     *zap.Logger

	once    sync.Once
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

func (s *otoStream) Start() error {
	s.player.Play()
	s.started = true

	s.wg.Add(1)
	go s.watch()
	return nil
}

// watch forwards player errors, which oto only exposes by polling
func (s *otoStream) watch() {
	defer s.wg.Done()

	ticker := time.NewTicker(otoErrPoll)
	defer ticker.Stop()

	var last error
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.player.Err(); err != nil && err != last {
				last = err
				if s.onError != nil {
					s.onError(err)
				}
			}
		}
	}
}

func (s *otoStream) Stop() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		if s.started {
			s.player.Pause()
		}
		err = s.player.Close()
		s.log.Debug("oto player closed")
	})
	return err
}
