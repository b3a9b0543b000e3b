// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats and amplitude-to-sample encoders
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// ErrUnknownFormat is returned for sample formats outside the supported set
var ErrUnknownFormat = errors.New("unknown sample format")

// SampleFormat is a device sample representation
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatFloat32
	FormatInt16
	FormatInt24
	FormatInt32
)

// AllFormats lists the supported formats in order of preference
var AllFormats = []SampleFormat{FormatFloat32, FormatInt16, FormatInt24, FormatInt32}

func (f SampleFormat) String() string {
	switch f {
	case FormatFloat32:
		return "f32"
	case FormatInt16:
		return "s16"
	case FormatInt24:
		return "s24"
	case FormatInt32:
		return "s32"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// BitDepth returns the number of significant bits per sample
func (f SampleFormat) BitDepth() int {
	return f.BytesPerSample() * 8
}

// BytesPerSample returns the packed size of one sample, or 0 if unknown
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatFloat32, FormatInt32:
		return 4
	case FormatInt16:
		return 2
	case FormatInt24:
		return 3
	default:
		return 0
	}
}

// Valid reports whether f is one of the supported formats
func (f SampleFormat) Valid() bool {
	return f.BytesPerSample() != 0
}

// ParseSampleFormat parses names such as "f32", "s16", "int24" or "float32".
// An empty string or "auto" yields FormatUnknown, meaning no preference.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatUnknown, nil
	case "f32", "float32":
		return FormatFloat32, nil
	case "s16", "int16":
		return FormatInt16, nil
	case "s24", "int24":
		return FormatInt24, nil
	case "s32", "int32":
		return FormatInt32, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q (supported: f32, s16, s24, s32)", ErrUnknownFormat, s)
	}
}

// StreamConfig describes a negotiated output stream
type StreamConfig struct {
	SampleRate int
	Channels   int
	Format     SampleFormat
}

// Validate checks that the config can be rendered without runtime failures
func (c StreamConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", c.Channels)
	}
	if !c.Format.Valid() {
		return fmt.Errorf("%w: %v", ErrUnknownFormat, c.Format)
	}
	return nil
}

// FrameBytes returns the size of one interleaved frame
func (c StreamConfig) FrameBytes() int {
	return c.Channels * c.Format.BytesPerSample()
}

func (c StreamConfig) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", c.SampleRate, c.Channels, c.Format)
}

// Clamp01 limits an amplitude to [0, 1]. NaN maps to the 0.5 midpoint.
func Clamp01(a float64) float64 {
	switch {
	case math.IsNaN(a):
		return 0.5
	case a < 0:
		return 0
	case a > 1:
		return 1
	default:
		return a
	}
}

// PutFunc writes one amplitude in [0, 1] into dst as a little-endian sample.
// dst must hold at least BytesPerSample bytes.
type PutFunc func(dst []byte, amplitude float64)

// Encoder resolves the PutFunc for f
func (f SampleFormat) Encoder() (PutFunc, error) {
	switch f {
	case FormatFloat32:
		return putFloat32, nil
	case FormatInt16:
		return putInt16, nil
	case FormatInt24:
		return putInt24, nil
	case FormatInt32:
		return putInt32, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, f)
	}
}

func putFloat32(dst []byte, a float64) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(Clamp01(a))))
}

func putInt16(dst []byte, a float64) {
	binary.LittleEndian.PutUint16(dst, uint16(AmplitudeToInt16(a)))
}

func putInt24(dst []byte, a float64) {
	b := SampleTo24Bit(AmplitudeToInt24(a))
	dst[0], dst[1], dst[2] = b[0], b[1], b[2]
}

func putInt32(dst []byte, a float64) {
	binary.LittleEndian.PutUint32(dst, uint32(AmplitudeToInt32(a)))
}

// AmplitudeToInt16 converts a clamped amplitude to a 16-bit sample
func AmplitudeToInt16(a float64) int16 {
	return int16(math.Round(Clamp01(a) * math.MaxInt16))
}

// AmplitudeToInt24 converts a clamped amplitude to a 24-bit sample held in int32
func AmplitudeToInt24(a float64) int32 {
	return int32(math.Round(Clamp01(a) * Max24Bit))
}

// AmplitudeToInt32 converts a clamped amplitude to a 32-bit sample
func AmplitudeToInt32(a float64) int32 {
	return int32(math.Round(Clamp01(a) * math.MaxInt32))
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// Decode reads one sample of format f from src and returns it as an amplitude.
// Used by tests and offline tooling, not by the real-time path.
func (f SampleFormat) Decode(src []byte) (float64, error) {
	if len(src) < f.BytesPerSample() || !f.Valid() {
		return 0, fmt.Errorf("cannot decode %d bytes as %v", len(src), f)
	}
	switch f {
	case FormatFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(src))), nil
	case FormatInt16:
		return float64(int16(binary.LittleEndian.Uint16(src))) / math.MaxInt16, nil
	case FormatInt24:
		return float64(SampleFrom24Bit([3]byte{src[0], src[1], src[2]})) / Max24Bit, nil
	default:
		return float64(int32(binary.LittleEndian.Uint32(src))) / math.MaxInt32, nil
	}
}
