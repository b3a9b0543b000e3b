// ABOUTME: Audio output package for real-time device playback
// ABOUTME: Provides the Sink boundary and oto, pulse, malgo, portaudio, null backends
// Package output provides callback-driven audio devices.
//
// A Sink enumerates its default device, negotiates a StreamConfig and opens a
// Stream that pulls interleaved little-endian samples through a FillFunc on the
// device's own thread. Runtime problems are reported through an ErrorFunc, never
// returned from the fill path.
//
// Supported backends: oto, pulse (PulseAudio), malgo (miniaudio), portaudio
// (build with -tags portaudio) and null (headless timer-driven device).
//
// Example:
//
//	sink, err := output.New("auto", output.Options{Logger: logger})
//	dev, err := sink.DefaultDevice()
//	cfg, err := output.Negotiate(dev, audio.FormatUnknown)
//	stream, err := sink.Open(dev, cfg, output.Callbacks{Fill: fill, OnError: onErr})
//	err = stream.Start()
package output
