// ABOUTME: Command-line and environment configuration for the tone player
// ABOUTME: Flags default from TONEGEN_* environment variables
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
	"github.com/Resonate-Protocol/tonegen/pkg/audio/output"
)

// Config holds player settings
type Config struct {
	Backend     string
	Format      audio.SampleFormat
	LogFile     string
	NoTUI       bool
	Debug       bool
	MetricsAddr string

	// Seed fixes the chord; 0 picks a fresh one each run
	Seed uint64
}

// Load parses args (without the program name) on top of environment defaults
func Load(name string, args []string, stderr io.Writer) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		backend     = fs.String("backend", getEnv("TONEGEN_BACKEND", "auto"), "Audio backend: auto, pulse, malgo, oto, portaudio or null")
		format      = fs.String("format", getEnv("TONEGEN_FORMAT", "auto"), "Sample format: auto, f32, s16, s24 or s32")
		logFile     = fs.String("log-file", getEnv("TONEGEN_LOG_FILE", "tonegen.log"), "Log file path")
		noTUI       = fs.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
		streamLogs  = fs.Bool("stream-logs", false, "Alias for -no-tui")
		debug       = fs.Bool("debug", false, "Enable debug logging")
		metricsAddr = fs.String("metrics-addr", getEnv("TONEGEN_METRICS_ADDR", ""), "Serve Prometheus metrics on this address (disabled when empty)")
		seed        = fs.Uint64("seed", 0, "Random seed for chord selection (0 = random)")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	f, err := audio.ParseSampleFormat(*format)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Backend:     *backend,
		Format:      f,
		LogFile:     *logFile,
		NoTUI:       *noTUI || *streamLogs,
		Debug:       *debug,
		MetricsAddr: *metricsAddr,
		Seed:        *seed,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the backend and format are known
func (c *Config) Validate() error {
	if !slices.Contains(output.Backends, c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %v)", c.Backend, output.Backends)
	}
	if c.Format != audio.FormatUnknown && !c.Format.Valid() {
		return fmt.Errorf("invalid sample format %v", c.Format)
	}
	if c.LogFile == "" {
		return fmt.Errorf("log file path must not be empty")
	}
	return nil
}

// String renders the config for the startup log line
func (c *Config) String() string {
	format := "auto"
	if c.Format != audio.FormatUnknown {
		format = c.Format.String()
	}
	return fmt.Sprintf("backend=%s format=%s log=%s tui=%t seed=%d", c.Backend, format, c.LogFile, !c.NoTUI, c.Seed)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
