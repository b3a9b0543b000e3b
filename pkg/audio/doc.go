// ABOUTME: Audio fundamentals package providing stream format types
// ABOUTME: Defines StreamConfig, SampleFormat and amplitude conversion
// Package audio provides the stream configuration shared by the synthesizer and
// output devices.
//
// This package defines:
//   - StreamConfig: sample rate, channel count and sample format of a stream
//   - SampleFormat: the closed set of device sample representations
//   - PutFunc: an encoder resolved once per stream that writes one amplitude
//
// Amplitudes are float64 values in [0, 1]; anything outside is clamped before
// conversion so encoding never fails.
//
// Example:
//
//	cfg := audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.FormatInt16}
//	put, err := cfg.Format.Encoder()
//	put(buf[:cfg.Format.BytesPerSample()], 0.75)
package audio
