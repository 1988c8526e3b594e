// Package audio provides decoded PCM buffers, codecs and the fade and
// crossfade primitives used to assemble phoneme sequences.
//
// Every operation in this package is pure: it returns a new Buffer and never
// mutates the samples of its arguments.
package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Constants for default audio settings.
const (
	DEFAULT_SAMPLE_RATE = 24000 // Edge TTS output rate.
	DEFAULT_BIT_DEPTH   = 16
	DEFAULT_CHANNELS    = 1
)

// Constants for validation limits. Pitch shifting reinterprets the frame rate,
// so the rate is bounded only by the WAV byte-rate field (uint32) at the
// widest frame.
const (
	MAX_CHANNELS    = 8
	MAX_SAMPLE_RATE = math.MaxUint32 / (MAX_CHANNELS * DEFAULT_BIT_DEPTH / 8)
)

// Constants for error messages and formats.
const (
	ERR_FMT_SAMPLE_RATE_RANGE = "%w: sample rate %d must be between 1 and %d Hz"
	ERR_FMT_CHANNELS_RANGE    = "%w: channels %d must be between 1 and %d"
	ERR_FMT_SAMPLE_ALIGNMENT  = "%w: %d samples is not a multiple of %d channels"
	ERR_FMT_NEGATIVE_DURATION = "%w: duration must be non-negative, got %d ms"
)

// Common errors for the audio package.
var (
	ErrInvalidBuffer       = errors.New("invalid audio buffer")
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrCrossfadeTooLong    = errors.New("crossfade is longer than the audio it joins")
	ErrUnsupportedEncoding = errors.New("unsupported audio encoding")
)

// Format represents supported encoded audio formats.
type Format string

const (
	FORMAT_WAV     Format = "wav"
	FORMAT_MP3     Format = "mp3"
	FORMAT_UNKNOWN Format = ""
)

// Buffer is decoded audio: interleaved signed 16-bit samples at a nominal
// frame rate. One frame holds one sample per channel.
type Buffer struct {
	Samples   []int16
	FrameRate int
	Channels  int
}

// New creates a Buffer over the given samples.
func New(samples []int16, frameRate, channels int) Buffer {
	return Buffer{Samples: samples, FrameRate: frameRate, Channels: channels}
}

// Frames returns the number of frames in the buffer.
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}

	return len(b.Samples) / b.Channels
}

// Duration returns the playback length at the nominal frame rate.
func (b Buffer) Duration() time.Duration {
	if b.FrameRate <= 0 {
		return 0
	}

	return time.Duration(b.Frames()) * time.Second / time.Duration(b.FrameRate)
}

// FramesFor converts milliseconds to a frame count at the buffer's rate.
func (b Buffer) FramesFor(ms int) int {
	return ms * b.FrameRate / 1000
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	samples := make([]int16, len(b.Samples))
	copy(samples, b.Samples)

	return Buffer{Samples: samples, FrameRate: b.FrameRate, Channels: b.Channels}
}

// Validate checks the buffer header against reasonable bounds.
func (b Buffer) Validate() error {
	if b.FrameRate <= 0 || b.FrameRate > MAX_SAMPLE_RATE {
		return fmt.Errorf(ERR_FMT_SAMPLE_RATE_RANGE, ErrInvalidBuffer, b.FrameRate, MAX_SAMPLE_RATE)
	}

	if b.Channels <= 0 || b.Channels > MAX_CHANNELS {
		return fmt.Errorf(ERR_FMT_CHANNELS_RANGE, ErrInvalidBuffer, b.Channels, MAX_CHANNELS)
	}

	if len(b.Samples)%b.Channels != 0 {
		return fmt.Errorf(ERR_FMT_SAMPLE_ALIGNMENT, ErrInvalidBuffer, len(b.Samples), b.Channels)
	}

	return nil
}

// FrameRange returns a copy of the samples of frames [start, end).
func (b Buffer) FrameRange(start, end int) []int16 {
	out := make([]int16, (end-start)*b.Channels)
	copy(out, b.Samples[start*b.Channels:end*b.Channels])

	return out
}

func clip16(v float64) int16 {
	if v > 32767 {
		return 32767
	}

	if v < -32768 {
		return -32768
	}

	return int16(v)
}
