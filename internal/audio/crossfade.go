package audio

import "fmt"

// CrossfadeFrames blends the tail of an outgoing buffer with the head of an
// incoming one. Both slices hold the same number of interleaved frames. The
// incoming gain rises linearly from 0 across the overlap while the outgoing
// gain falls from 1; the mix is clipped to the int16 range.
func CrossfadeFrames(outgoing, incoming []int16, channels int) []int16 {
	result := make([]int16, len(outgoing))
	frames := len(outgoing) / channels

	for frame := range frames {
		gain := float64(frame) / float64(frames)

		for ch := range channels {
			i := frame*channels + ch
			result[i] = clip16(float64(outgoing[i])*(1-gain) + float64(incoming[i])*gain)
		}
	}

	return result
}

// Append joins seg to the end of track. With a non-zero crossfade the last
// crossfadeMs of track and the first crossfadeMs of seg overlap, so the result
// is shorter than the plain concatenation by the crossfade length. Both
// buffers are first brought to a common frame rate and channel count.
func Append(track, seg Buffer, crossfadeMs int) (Buffer, error) {
	if crossfadeMs < 0 {
		return Buffer{}, fmt.Errorf(ERR_FMT_NEGATIVE_DURATION, ErrInvalidDuration, crossfadeMs)
	}

	left, right, err := Match(track, seg)
	if err != nil {
		return Buffer{}, err
	}

	overlap := left.FramesFor(crossfadeMs)
	if overlap > left.Frames() || overlap > right.Frames() {
		return Buffer{}, fmt.Errorf("%w: %d ms over %s and %s",
			ErrCrossfadeTooLong, crossfadeMs, left.Duration(), right.Duration())
	}

	ch := left.Channels
	head := left.Frames() - overlap

	samples := make([]int16, 0, len(left.Samples)+len(right.Samples)-overlap*ch)
	samples = append(samples, left.Samples[:head*ch]...)
	samples = append(samples, CrossfadeFrames(left.Samples[head*ch:], right.Samples[:overlap*ch], ch)...)
	samples = append(samples, right.Samples[overlap*ch:]...)

	return Buffer{Samples: samples, FrameRate: left.FrameRate, Channels: ch}, nil
}
