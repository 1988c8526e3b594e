package audio

import "fmt"

// Resample converts b to the target frame rate using linear interpolation per
// channel. If the rates already match, a copy is returned.
func Resample(b Buffer, rate int) Buffer {
	if b.FrameRate == rate || b.Frames() == 0 {
		out := b.Clone()
		out.FrameRate = rate

		return out
	}

	srcFrames := b.Frames()
	dstFrames := int(int64(srcFrames) * int64(rate) / int64(b.FrameRate))
	ratio := float64(b.FrameRate) / float64(rate)
	ch := b.Channels

	out := make([]int16, dstFrames*ch)

	for i := range dstFrames {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		next := srcIdx + 1
		if next >= srcFrames {
			next = srcIdx
		}

		for c := range ch {
			s0 := float64(b.Samples[srcIdx*ch+c])
			s1 := float64(b.Samples[next*ch+c])
			out[i*ch+c] = int16(s0*(1-frac) + s1*frac)
		}
	}

	return Buffer{Samples: out, FrameRate: rate, Channels: ch}
}

// ConvertChannels converts between mono and multi-channel layouts. Mono is
// duplicated into every channel; multi-channel is averaged down to mono.
func ConvertChannels(b Buffer, channels int) (Buffer, error) {
	switch {
	case b.Channels == channels:
		return b.Clone(), nil
	case b.Channels == 1:
		out := make([]int16, len(b.Samples)*channels)
		for i, s := range b.Samples {
			for c := range channels {
				out[i*channels+c] = s
			}
		}

		return Buffer{Samples: out, FrameRate: b.FrameRate, Channels: channels}, nil
	case channels == 1:
		frames := b.Frames()
		out := make([]int16, frames)

		for i := range frames {
			var sum int
			for c := range b.Channels {
				sum += int(b.Samples[i*b.Channels+c])
			}

			out[i] = int16(sum / b.Channels)
		}

		return Buffer{Samples: out, FrameRate: b.FrameRate, Channels: 1}, nil
	default:
		return Buffer{}, fmt.Errorf("%w: cannot convert %d channels to %d",
			ErrUnsupportedEncoding, b.Channels, channels)
	}
}

// Match brings two buffers to the higher of their frame rates and channel
// counts. Resampling runs before channel conversion.
func Match(a, b Buffer) (Buffer, Buffer, error) {
	rate := max(a.FrameRate, b.FrameRate)
	channels := max(a.Channels, b.Channels)

	left, err := conform(a, rate, channels)
	if err != nil {
		return Buffer{}, Buffer{}, err
	}

	right, err := conform(b, rate, channels)
	if err != nil {
		return Buffer{}, Buffer{}, err
	}

	return left, right, nil
}

func conform(b Buffer, rate, channels int) (Buffer, error) {
	if b.FrameRate == rate && b.Channels == channels {
		return b, nil
	}

	return ConvertChannels(Resample(b, rate), channels)
}
