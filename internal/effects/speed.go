package effects

import (
	"fmt"
	"math"

	"github.com/book-expert/alphamix/internal/audio"
)

// Grain geometry of the speed change, in milliseconds at the buffer's rate.
// 150 ms keeps at least one period of a 20 Hz waveform in every grain.
const (
	grainMs          = 150
	grainCrossfadeMs = 25
)

// ChangeSpeed time-scales buf by speed without changing its frame rate:
// factors above 1 shorten the audio, factors below 1 lengthen it.
//
// Grains of grainMs are read every hopOut*speed frames and laid down every
// hopOut frames, each one crossfaded over grainCrossfadeMs into the output so
// far. Speed 1 returns an exact copy.
func ChangeSpeed(buf audio.Buffer, speed float64) (audio.Buffer, error) {
	validationErr := Params{Speed: speed}.Validate()
	if validationErr != nil {
		return audio.Buffer{}, validationErr
	}

	if speed == 1 {
		return buf.Clone(), nil
	}

	grain := buf.FramesFor(grainMs)
	overlap := buf.FramesFor(grainCrossfadeMs)
	hopOut := grain - overlap
	hopIn := max(1, int(math.Round(float64(hopOut)*speed)))
	frames := buf.Frames()

	if grain <= 0 || frames < grain+hopIn {
		return audio.Buffer{}, fmt.Errorf("%w: %s at %.2fx needs two %d ms grains",
			ErrBufferTooShort, buf.Duration(), speed, grainMs)
	}

	ch := buf.Channels
	out := make([]int16, 0, int(float64(len(buf.Samples))/speed)+grain*ch)

	for start := 0; start < frames; start += hopIn {
		end := min(start+grain, frames)
		piece := buf.FrameRange(start, end)

		if len(out) == 0 {
			out = append(out, piece...)
		} else {
			ov := min(overlap, end-start, len(out)/ch)
			tail := len(out) - ov*ch

			copy(out[tail:], audio.CrossfadeFrames(out[tail:], piece[:ov*ch], ch))
			out = append(out, piece[ov*ch:]...)
		}

		if end == frames {
			break
		}
	}

	return audio.New(out, buf.FrameRate, ch), nil
}
