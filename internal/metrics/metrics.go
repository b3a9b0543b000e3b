// ABOUTME: Prometheus metrics for the tone player
// ABOUTME: Package-level collectors plus a driver Recorder and HTTP exporter
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/Resonate-Protocol/tonegen/pkg/audio/output"
	"github.com/Resonate-Protocol/tonegen/pkg/tonegen"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Gauges
var (
	StreamState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tonegen_stream_state",
		Help: "Driver state: 0 idle, 1 streaming, 2 stopped",
	})
)

// Counters
var (
	CallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonegen_callbacks_total",
		Help: "Total fill callbacks served",
	})
	FramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonegen_frames_total",
		Help: "Total frames rendered",
	})
	ClampedSamplesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonegen_clamped_samples_total",
		Help: "Frames whose amplitude fell outside [0, 1] and were clamped",
	})
	PartialFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonegen_partial_frames_total",
		Help: "Callbacks whose buffer ended in a partial frame",
	})
	StreamErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonegen_stream_errors_total",
		Help: "Runtime stream errors reported by the backend",
	})
	SetupFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tonegen_setup_failures_total",
		Help: "Stream setup failures by kind",
	}, []string{"kind"})
)

// Recorder feeds driver events into the package collectors
type Recorder struct{}

var _ tonegen.Recorder = Recorder{}

func (Recorder) ObserveFill(frames, clamped int, partial bool) {
	CallbacksTotal.Inc()
	FramesTotal.Add(float64(frames))
	if clamped > 0 {
		ClampedSamplesTotal.Add(float64(clamped))
	}
	if partial {
		PartialFramesTotal.Inc()
	}
}

func (Recorder) ObserveStreamError() {
	StreamErrorsTotal.Inc()
}

func (Recorder) ObserveState(state tonegen.State) {
	StreamState.Set(float64(state))
}

// ObserveSetupFailure counts err under its SetupKind label, or "other"
func ObserveSetupFailure(err error) {
	kind := "other"
	var se *output.SetupError
	if errors.As(err, &se) {
		kind = se.Kind.String()
	}
	SetupFailuresTotal.WithLabelValues(kind).Inc()
}

// Server exposes /metrics over HTTP
type Server struct {
	srv *http.Server
	ln  net.Listener
	log *zap.Logger
}

// Serve listens on addr and serves the default registry in the background
func Serve(addr string, logger *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &Server{
		srv: &http.Server{
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 20 * time.Second,
		},
		ln:  ln,
		log: logger,
	}

	go func() {
		logger.Info("metrics listening", zap.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return s, nil
}

// Addr returns the bound listen address
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server, waiting up to five seconds for in-flight scrapes
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
