// ABOUTME: Automatic backend selection
// ABOUTME: Probes backends in order and keeps the first with a usable device
package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"go.uber.org/zap"
)

type autoSink struct {
	opts  Options
	order []string
	log   *zap.Logger

	mu     sync.Mutex
	chosen Sink
}

func newAuto(opts Options, order []string) *autoSink {
	return &autoSink{opts: opts, order: order, log: opts.logger().Named("auto")}
}

// Name reports the chosen backend once a device has been found
func (a *autoSink) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.chosen != nil {
		return a.chosen.Name()
	}
	return "auto"
}

func (a *autoSink) DefaultDevice() (Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chosen != nil {
		return a.chosen.DefaultDevice()
	}

	var errs []error
	for _, name := range a.order {
		sink, err := New(name, a.opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		dev, err := sink.DefaultDevice()
		if err != nil {
			a.log.Debug("backend unavailable", zap.String("backend", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			_ = sink.Close()
			continue
		}
		a.log.Info("selected backend", zap.String("backend", name), zap.String("device", dev.Name))
		a.chosen = sink
		return dev, nil
	}

	return Device{}, fmt.Errorf("%w: no backend available: %w", ErrNoDevice, errors.Join(errs...))
}

func (a *autoSink) Open(dev Device, cfg audio.StreamConfig, cb Callbacks) (Stream, error) {
	a.mu.Lock()
	chosen := a.chosen
	a.mu.Unlock()

	if chosen == nil {
		return nil, fmt.Errorf("%w: no backend selected, call DefaultDevice first", ErrStreamOpen)
	}
	return chosen.Open(dev, cfg, cb)
}

func (a *autoSink) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chosen == nil {
		return nil
	}
	return a.chosen.Close()
}
