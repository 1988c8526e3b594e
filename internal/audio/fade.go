package audio

import "fmt"

// FadeIn ramps the first ms milliseconds linearly from silence to full
// amplitude. The ramp length is fixed by ms, not by the buffer: a buffer
// shorter than the ramp never reaches full amplitude.
func FadeIn(b Buffer, ms int) (Buffer, error) {
	if ms < 0 {
		return Buffer{}, fmt.Errorf(ERR_FMT_NEGATIVE_DURATION, ErrInvalidDuration, ms)
	}

	out := b.Clone()
	ramp := b.FramesFor(ms)
	frames := b.Frames()

	for frame := 0; frame < ramp && frame < frames; frame++ {
		applyGain(out.Samples[frame*b.Channels:(frame+1)*b.Channels], float64(frame)/float64(ramp))
	}

	return out, nil
}

// FadeOut ramps the last ms milliseconds linearly down to silence. It mirrors
// FadeIn: FadeOut(x) equals the reverse of FadeIn applied to reversed x.
func FadeOut(b Buffer, ms int) (Buffer, error) {
	if ms < 0 {
		return Buffer{}, fmt.Errorf(ERR_FMT_NEGATIVE_DURATION, ErrInvalidDuration, ms)
	}

	out := b.Clone()
	ramp := b.FramesFor(ms)
	frames := b.Frames()

	for remaining := 0; remaining < ramp && remaining < frames; remaining++ {
		frame := frames - 1 - remaining
		applyGain(out.Samples[frame*b.Channels:(frame+1)*b.Channels], float64(remaining)/float64(ramp))
	}

	return out, nil
}

func applyGain(frame []int16, gain float64) {
	for i, s := range frame {
		frame[i] = int16(float64(s) * gain)
	}
}
