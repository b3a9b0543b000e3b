// ABOUTME: Malgo-based audio output implementation with 24-bit support
// ABOUTME: Drives the fill callback from miniaudio's data callback via malgo
package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

const (
	malgoSampleRate = 48000
	malgoChannels   = 2
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	log *zap.Logger

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
}

// NewMalgo creates a new Malgo output
func NewMalgo(opts Options) Sink {
	return &Malgo{log: opts.logger().Named("malgo")}
}

func (m *Malgo) Name() string { return "malgo" }

// context lazily creates the malgo context (must hold m.mu)
func (m *Malgo) context() (*malgo.AllocatedContext, error) {
	if m.malgoCtx != nil {
		return m.malgoCtx, nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.log.Debug("miniaudio", zap.String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx
	return ctx, nil
}

// DefaultDevice returns the default playback device. miniaudio converts to the
// device's native format, so every sample format is accepted.
func (m *Malgo) DefaultDevice() (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := m.context()
	if err != nil {
		return Device{}, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return Device{}, fmt.Errorf("%w: failed to enumerate playback devices: %v", ErrNoDevice, err)
	}
	if len(infos) == 0 {
		return Device{}, fmt.Errorf("%w: miniaudio found no playback devices", ErrNoDevice)
	}

	name := infos[0].Name()
	for _, info := range infos {
		if info.IsDefault != 0 {
			name = info.Name()
			break
		}
	}

	return Device{
		Name:       name,
		SampleRate: malgoSampleRate,
		Channels:   malgoChannels,
		Formats:    []audio.SampleFormat{audio.FormatFloat32, audio.FormatInt16, audio.FormatInt24, audio.FormatInt32},
	}, nil
}

// Open initializes a playback device whose data callback invokes cb.Fill
func (m *Malgo) Open(dev Device, cfg audio.StreamConfig, cb Callbacks) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	format, err := malgoFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	ctx, err := m.context()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamOpen, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	s := &malgoStream{onError: cb.OnError, log: m.log}
	frameBytes := cfg.FrameBytes()

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, _ []byte, frameCount uint32) {
			n := int(frameCount) * frameBytes
			if n > len(pOutputSample) {
				n = wholeFrames(len(pOutputSample), frameBytes)
			}
			cb.Fill(pOutputSample[:n])
		},
		Stop: s.deviceStopped,
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize playback device: %v", ErrStreamOpen, err)
	}
	s.device = device

	m.log.Info("audio output initialized",
		zap.String("device", dev.Name),
		zap.Stringer("config", cfg),
		zap.String("format", formatName(format)))

	return s, nil
}

// Close releases the malgo context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.log.Warn("malgo context uninit error", zap.Error(err))
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

type malgoStream struct {
	device   *malgo.Device
	onError  ErrorFunc
	log      *zap.Logger
	stopping atomic.Bool
	once     sync.Once
}

// deviceStopped runs when miniaudio stops the device; only an
// unrequested stop is an error
func (s *malgoStream) deviceStopped() {
	if !s.stopping.Load() && s.onError != nil {
		s.onError(ErrDeviceStopped)
	}
}

func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamStart, err)
	}
	return nil
}

func (s *malgoStream) Stop() error {
	var err error
	s.once.Do(func() {
		s.stopping.Store(true)
		if stopErr := s.device.Stop(); stopErr != nil {
			s.log.Warn("device stop error", zap.Error(stopErr))
			err = stopErr
		}
		s.device.Uninit()
	})
	return err
}

func malgoFormat(f audio.SampleFormat) (malgo.FormatType, error) {
	switch f {
	case audio.FormatFloat32:
		return malgo.FormatF32, nil
	case audio.FormatInt16:
		return malgo.FormatS16, nil
	case audio.FormatInt24:
		return malgo.FormatS24, nil
	case audio.FormatInt32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatF32:
		return "F32"
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
