// ABOUTME: Streaming driver state machine
// ABOUTME: Negotiates, opens, plays for a fixed duration and stops the stream
package tonegen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"github.com/Resonate-Protocol/tonegen/pkg/audio/output"
	"github.com/Resonate-Protocol/tonegen/pkg/tone"
	"go.uber.org/zap"
)

// PlaybackDuration is how long a chord sounds before the stream is torn down
const PlaybackDuration = 10 * time.Second

// errorQueueSize bounds runtime errors buffered between device and controller
const errorQueueSize = 64

// State is the driver lifecycle state
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Recorder receives driver counters.
// ObserveFill runs on the device thread and must not block.
type Recorder interface {
	ObserveFill(frames, clamped int, partial bool)
	ObserveStreamError()
	ObserveState(state State)
}

// Config holds driver configuration
type Config struct {
	// Sink is the output backend (required)
	Sink output.Sink

	// Chord is the set of notes to play (required)
	Chord tone.Chord

	// Format is the preferred sample format; audio.FormatUnknown takes the device default
	Format audio.SampleFormat

	// Clock defaults to SystemClock
	Clock Clock

	// Logger defaults to a no-op logger
	Logger *zap.Logger

	// Recorder is optional
	Recorder Recorder

	// OnStreamError is called from the controller goroutine for each runtime error
	OnStreamError func(error)
}

// Stats is a snapshot of driver counters
type Stats struct {
	State         State
	Frames        uint64
	Callbacks     uint64
	Clamped       uint64
	PartialFrames uint64
	StreamErrors  uint64
	DroppedErrors uint64

	// Elapsed is device time: frames produced divided by the sample rate
	Elapsed time.Duration

	// PlayedFor is wall time between Start and Stop (or now, while streaming)
	PlayedFor time.Duration
}

// Driver plays one chord through one output stream
type Driver struct {
	sink     output.Sink
	chord    tone.Chord
	format   audio.SampleFormat
	clock    Clock
	log      *zap.Logger
	recorder Recorder
	onError  func(error)

	mu        sync.Mutex
	state     atomic.Int32
	stream    output.Stream
	device    output.Device
	streamCfg audio.StreamConfig
	startedAt time.Time
	stoppedAt time.Time

	// stopped silences late callbacks once Stop has begun
	stopped atomic.Bool

	// live is set once Start succeeds. Fills before that (backends that prime
	// inside Stream.Start) are held in pending and only reach the recorder
	// when the attempt succeeds.
	live    atomic.Bool
	flushed atomic.Bool
	pending struct {
		frames, clamped, callbacks, partial atomic.Uint64
	}

	errCh     chan error
	drainStop chan struct{}
	drainDone chan struct{}

	frames        atomic.Uint64
	callbacks     atomic.Uint64
	clamped       atomic.Uint64
	partial       atomic.Uint64
	streamErrors  atomic.Uint64
	droppedErrors atomic.Uint64
}

// NewDriver creates an idle driver
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Sink == nil {
		return nil, errors.New("driver requires a sink")
	}
	if cfg.Chord.Len() == 0 {
		return nil, errors.New("driver requires a non-empty chord")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Driver{
		sink:     cfg.Sink,
		chord:    cfg.Chord,
		format:   cfg.Format,
		clock:    cfg.Clock,
		log:      cfg.Logger,
		recorder: cfg.Recorder,
		onError:  cfg.OnStreamError,
		errCh:    make(chan error, errorQueueSize),
	}, nil
}

// State returns the current lifecycle state
func (d *Driver) State() State {
	return State(d.state.Load())
}

func (d *Driver) setState(s State) {
	d.state.Store(int32(s))
	if d.recorder != nil {
		d.recorder.ObserveState(s)
	}
}

// StreamConfig returns the negotiated config (zero until started)
func (d *Driver) StreamConfig() audio.StreamConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streamCfg
}

// Device returns the device in use (zero until started)
func (d *Driver) Device() output.Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.device
}

// Start negotiates a stream config, opens the stream and starts it.
// Any failure returns an *output.SetupError and leaves the driver idle.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.State() != StateIdle {
		return fmt.Errorf("cannot start driver in state %s", d.State())
	}
	backend := d.sink.Name()

	dev, err := d.sink.DefaultDevice()
	if err != nil {
		return output.NewSetupError(output.NoDevice, backend, err)
	}

	cfg, err := output.Negotiate(dev, d.format)
	if err != nil {
		if errors.Is(err, output.ErrUnsupportedFormat) {
			return output.NewSetupError(output.UnsupportedFormat, backend, err)
		}
		return output.NewSetupError(output.InvalidConfig, backend, err)
	}

	renderer, err := NewRenderer(d.chord, cfg)
	if err != nil {
		return output.NewSetupError(output.InvalidConfig, backend, err)
	}

	stream, err := d.sink.Open(dev, cfg, output.Callbacks{
		Fill:    d.fillFunc(renderer),
		OnError: d.report,
	})
	if err != nil {
		if errors.Is(err, output.ErrUnsupportedFormat) {
			return output.NewSetupError(output.UnsupportedFormat, backend, err)
		}
		return output.NewSetupError(output.OpenFailed, backend, err)
	}

	d.drainStop = make(chan struct{})
	d.drainDone = make(chan struct{})
	go d.drain(backend)

	if err := stream.Start(); err != nil {
		d.stopped.Store(true)
		if stopErr := stream.Stop(); stopErr != nil {
			d.log.Warn("failed to release stream after start failure", zap.Error(stopErr))
		}
		d.stopDrain()
		d.resetCounters()
		d.stopped.Store(false)
		return output.NewSetupError(output.StartFailed, backend, err)
	}

	d.stream = stream
	d.device = dev
	d.streamCfg = cfg
	d.startedAt = d.clock.Now()
	d.live.Store(true)
	d.setState(StateStreaming)

	d.log.Info("stream started",
		zap.String("backend", backend),
		zap.String("device", dev.Name),
		zap.Stringer("config", cfg),
		zap.Stringer("chord", d.chord),
		zap.Float64s("freqs", d.chord.Freqs()))

	return nil
}

// fillFunc builds the device callback. The sample clock lives only in this
// closure; counters are published through atomics.
func (d *Driver) fillFunc(r *Renderer) output.FillFunc {
	clock := &SampleClock{}
	return func(buf []byte) {
		if d.stopped.Load() {
			clear(buf)
			return
		}

		res := r.Fill(clock, buf)

		d.callbacks.Add(1)
		d.frames.Add(uint64(res.Frames))
		if res.Clamped > 0 {
			d.clamped.Add(uint64(res.Clamped))
		}
		if res.Partial {
			d.partial.Add(1)
			d.report(output.ErrPartialFrame)
		}
		if d.recorder == nil {
			return
		}
		if !d.live.Load() {
			d.pending.callbacks.Add(1)
			d.pending.frames.Add(uint64(res.Frames))
			d.pending.clamped.Add(uint64(res.Clamped))
			if res.Partial {
				d.pending.partial.Add(1)
			}
			return
		}
		d.flushPending()
		d.recorder.ObserveFill(res.Frames, res.Clamped, res.Partial)
	}
}

// flushPending hands fills made while Start was still running to the
// recorder, once per successful attempt
func (d *Driver) flushPending() {
	if d.recorder == nil || !d.flushed.CompareAndSwap(false, true) {
		return
	}
	partial := d.pending.partial.Load()
	for i := uint64(0); i < d.pending.callbacks.Load(); i++ {
		frames, clamped := 0, 0
		if i == 0 {
			frames, clamped = int(d.pending.frames.Load()), int(d.pending.clamped.Load())
		}
		d.recorder.ObserveFill(frames, clamped, i < partial)
	}
}

// resetCounters drops everything a failed start attempt produced
func (d *Driver) resetCounters() {
	for _, c := range []*atomic.Uint64{
		&d.frames, &d.callbacks, &d.clamped, &d.partial, &d.streamErrors, &d.droppedErrors,
		&d.pending.frames, &d.pending.clamped, &d.pending.callbacks, &d.pending.partial,
	} {
		c.Store(0)
	}
}

// report queues a runtime error without blocking. Safe on the device thread.
func (d *Driver) report(err error) {
	d.streamErrors.Add(1)
	select {
	case d.errCh <- err:
	default:
		d.droppedErrors.Add(1)
	}
}

// drain logs runtime errors on the controller side
func (d *Driver) drain(backend string) {
	defer close(d.drainDone)

	handle := func(err error) {
		serr := &output.StreamError{Backend: backend, Err: err}
		d.log.Warn("stream runtime error", zap.Error(serr))
		if d.recorder != nil {
			d.recorder.ObserveStreamError()
		}
		if d.onError != nil {
			d.onError(serr)
		}
	}

	for {
		select {
		case err := <-d.errCh:
			handle(err)
		case <-d.drainStop:
			for {
				select {
				case err := <-d.errCh:
					handle(err)
				default:
					return
				}
			}
		}
	}
}

func (d *Driver) stopDrain() {
	close(d.drainStop)
	<-d.drainDone
}

// Stop cancels future callbacks and tears the stream down without fading out.
// It is safe to call more than once.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.State() {
	case StateStopped:
		return nil
	case StateIdle:
		d.setState(StateStopped)
		return nil
	}

	d.stopped.Store(true)
	err := d.stream.Stop()
	d.flushPending()
	d.stopDrain()
	d.stoppedAt = d.clock.Now()
	d.setState(StateStopped)

	d.log.Info("stream stopped",
		zap.Uint64("frames", d.frames.Load()),
		zap.Duration("played_for", d.stoppedAt.Sub(d.startedAt)),
		zap.Uint64("clamped", d.clamped.Load()),
		zap.Uint64("stream_errors", d.streamErrors.Load()))

	if err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	return nil
}

// Run starts the stream, waits for PlaybackDuration or ctx cancellation, then stops
func (d *Driver) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return err
	}

	select {
	case <-d.clock.After(PlaybackDuration):
		d.log.Info("playback duration elapsed", zap.Duration("duration", PlaybackDuration))
	case <-ctx.Done():
		d.log.Info("playback cancelled", zap.Error(ctx.Err()))
	}

	return d.Stop()
}

// Stats returns a snapshot of the driver counters
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	rate := d.streamCfg.SampleRate
	startedAt, stoppedAt := d.startedAt, d.stoppedAt
	d.mu.Unlock()

	s := Stats{
		State:         d.State(),
		Frames:        d.frames.Load(),
		Callbacks:     d.callbacks.Load(),
		Clamped:       d.clamped.Load(),
		PartialFrames: d.partial.Load(),
		StreamErrors:  d.streamErrors.Load(),
		DroppedErrors: d.droppedErrors.Load(),
	}
	if rate > 0 {
		s.Elapsed = time.Duration(s.Frames) * time.Second / time.Duration(rate)
	}
	switch s.State {
	case StateStreaming:
		s.PlayedFor = d.clock.Now().Sub(startedAt)
	case StateStopped:
		if !startedAt.IsZero() {
			s.PlayedFor = stoppedAt.Sub(startedAt)
		}
	}
	return s
}
