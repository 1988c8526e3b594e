// Package effects implements the phoneme signal chain: a frame-rate pitch
// shift, optional time reversal and a granular speed change, always applied
// in that order.
package effects

import (
	"errors"
	"fmt"
	"math"

	"github.com/book-expert/alphamix/internal/audio"
)

var (
	// ErrInvalidSpeed indicates a playback speed factor that is not positive.
	ErrInvalidSpeed = errors.New("playback speed must be positive")
	// ErrBufferTooShort indicates a buffer too short to be time-stretched.
	ErrBufferTooShort = errors.New("audio too short to change speed")
	// ErrInvalidPitch indicates a pitch shift whose frame rate cannot be stored.
	ErrInvalidPitch = errors.New("pitch shift leaves no valid frame rate")
)

// Params is the parameter set of one modified-asset run.
type Params struct {
	PitchCents int
	Reverse    bool
	Speed      float64
}

// Validate checks the caller contract of Modify.
func (p Params) Validate() error {
	if p.Speed <= 0 || math.IsNaN(p.Speed) || math.IsInf(p.Speed, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidSpeed, p.Speed)
	}

	return nil
}

// Modifier applies the signal chain. It carries no state; the zero value is
// ready to use.
type Modifier struct{}

// Modify applies PitchShift, then Reverse when requested, then ChangeSpeed.
// The order is fixed: the speed grains are measured at the pitched rate.
func (Modifier) Modify(buf audio.Buffer, params Params) (audio.Buffer, error) {
	validationErr := params.Validate()
	if validationErr != nil {
		return audio.Buffer{}, validationErr
	}

	out := PitchShift(buf, params.PitchCents)

	rateErr := out.Validate()
	if rateErr != nil {
		return audio.Buffer{}, fmt.Errorf("%w: %d cents from %d Hz: %w",
			ErrInvalidPitch, params.PitchCents, buf.FrameRate, rateErr)
	}

	if params.Reverse {
		out = Reverse(out)
	}

	return ChangeSpeed(out, params.Speed)
}

// PitchShift reinterprets the frame rate as rate * 2^(cents/1200) without
// touching the samples, which moves pitch and duration together. The new
// rate is truncated to an integer and saturates just above
// audio.MAX_SAMPLE_RATE, which Buffer.Validate then rejects.
func PitchShift(buf audio.Buffer, cents int) audio.Buffer {
	out := buf.Clone()

	rate := float64(buf.FrameRate) * math.Pow(2, float64(cents)/1200)
	out.FrameRate = int(min(rate, audio.MAX_SAMPLE_RATE+1))

	return out
}

// Reverse reverses frame order. Channel order within a frame is preserved.
func Reverse(buf audio.Buffer) audio.Buffer {
	out := buf.Clone()
	ch := buf.Channels
	frames := buf.Frames()

	for i := range frames {
		src := frames - 1 - i
		copy(out.Samples[i*ch:(i+1)*ch], buf.Samples[src*ch:(src+1)*ch])
	}

	return out
}
