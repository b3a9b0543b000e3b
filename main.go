// ABOUTME: Entry point for the chord tone player
// ABOUTME: Parses flags, picks a chord and plays it for ten seconds
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/tonegen/internal/config"
	"github.com/Resonate-Protocol/tonegen/internal/logging"
	"github.com/Resonate-Protocol/tonegen/internal/metrics"
	"github.com/Resonate-Protocol/tonegen/internal/ui"
	"github.com/Resonate-Protocol/tonegen/internal/version"
	"github.com/Resonate-Protocol/tonegen/pkg/audio/output"
	"github.com/Resonate-Protocol/tonegen/pkg/tone"
	"github.com/Resonate-Protocol/tonegen/pkg/tonegen"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "tonegen: %v\n", err)
		return 2
	}

	useTUI := !cfg.NoTUI

	// TUI mode logs only to file; streaming mode mirrors to stdout
	logger, cleanup, err := logging.New(logging.Options{
		File:    cfg.LogFile,
		Console: !useTUI,
		Debug:   cfg.Debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tonegen: %v\n", err)
		return 1
	}
	defer cleanup()

	logger = logger.With(zap.String("run", uuid.NewString()))
	logger.Info("starting "+version.Product,
		zap.String("version", version.Version),
		zap.String("manufacturer", version.Manufacturer),
		zap.Stringer("config", cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv, err := metrics.Serve(cfg.MetricsAddr, logger)
		if err != nil {
			logger.Error("failed to start metrics server", zap.Error(err))
		} else {
			defer func() { _ = srv.Shutdown() }()
		}
	}

	chord, err := tone.Select(tone.TwelveToneEqualTemperament, tone.ChordSize, tone.NewSource(cfg.Seed))
	if err != nil {
		logger.Error("failed to select chord", zap.Error(err))
		return 1
	}

	sink, err := output.New(cfg.Backend, output.Options{
		Logger:  logger.Named("output"),
		AppName: version.Product,
	})
	if err != nil {
		logger.Error("failed to create output", zap.Error(err))
		return 1
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("failed to close output", zap.Error(err))
		}
	}()

	// TUI setup
	var (
		tuiProg *tea.Program
		tuiDone chan struct{}
	)
	if useTUI {
		ctrl := ui.NewControl()
		tuiProg, err = ui.Run(ctrl, tonegen.PlaybackDuration)
		if err != nil {
			logger.Error("failed to start TUI", zap.Error(err))
			return 1
		}
		tuiDone = make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				logger.Error("TUI failed", zap.Error(err))
			}
		}()

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-ctrl.Quit:
				logger.Info("received quit from TUI")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	var lastErr atomic.Pointer[string]
	driver, err := tonegen.NewDriver(tonegen.Config{
		Sink:     sink,
		Chord:    chord,
		Format:   cfg.Format,
		Logger:   logger.Named("driver"),
		Recorder: metrics.Recorder{},
		OnStreamError: func(err error) {
			msg := err.Error()
			lastErr.Store(&msg)
		},
	})
	if err != nil {
		logger.Error("failed to create driver", zap.Error(err))
		return 1
	}

	if tuiProg != nil {
		statsCtx, cancelStats := context.WithCancel(context.Background())
		defer cancelStats()
		go statsUpdateLoop(statsCtx, driver, sink, chord, &lastErr, tuiProg.Send)
	}

	runErr := driver.Run(ctx)

	if tuiProg != nil {
		tuiProg.Quit()
		<-tuiDone
	}

	if runErr != nil {
		var se *output.SetupError
		if errors.As(runErr, &se) {
			metrics.ObserveSetupFailure(runErr)
			logger.Error("stream setup failed",
				zap.Stringer("kind", se.Kind),
				zap.String("backend", se.Backend),
				zap.Error(se.Err))
			fmt.Fprintf(os.Stderr, "tonegen: %v\n", runErr)
			return 1
		}
		logger.Warn("stream shutdown error", zap.Error(runErr))
	}

	stats := driver.Stats()
	logger.Info("playback finished",
		zap.Stringer("chord", chord),
		zap.Uint64("frames", stats.Frames),
		zap.Duration("device_time", stats.Elapsed),
		zap.Duration("played_for", stats.PlayedFor),
		zap.Uint64("clamped", stats.Clamped),
		zap.Uint64("stream_errors", stats.StreamErrors),
		zap.Uint64("dropped_errors", stats.DroppedErrors))

	return 0
}

// statsUpdateLoop periodically pushes driver stats to the TUI
func statsUpdateLoop(ctx context.Context, driver *tonegen.Driver, sink output.Sink, chord tone.Chord,
	lastErr *atomic.Pointer[string], send func(tea.Msg)) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	// Runtime stats are expensive; refresh them less often
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	var (
		announced  bool
		goroutines int
		memAlloc   uint64
	)

	for {
		select {
		case <-ctx.Done():
			return

		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			goroutines = runtime.NumGoroutine()
			memAlloc = m.Alloc

		case <-ticker.C:
			stats := driver.Stats()

			if !announced && stats.State == tonegen.StateStreaming {
				announced = true
				send(ui.StreamMsg{
					Backend: sink.Name(),
					Device:  driver.Device().Name,
					Format:  driver.StreamConfig().String(),
					Chord:   chord.String(),
					Freqs:   chord.Freqs(),
				})
			}

			msg := ui.StatusMsg{
				State:        stats.State.String(),
				PlayedFor:    stats.PlayedFor,
				Frames:       stats.Frames,
				Callbacks:    stats.Callbacks,
				Clamped:      stats.Clamped,
				StreamErrors: stats.StreamErrors,
				Goroutines:   goroutines,
				MemAlloc:     memAlloc,
			}
			if p := lastErr.Load(); p != nil {
				msg.LastError = *p
			}
			send(msg)
		}
	}
}
