package sequence

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const outputNameFormat = "output-%d-%s-%d-%s-%d-%d-%d.wav"

// RunParams is the full parameter tuple of one run.
type RunParams struct {
	PitchCents         int
	PlaybackSpeed      float64
	CrossfadeMs        int
	Reverse            bool
	ShortVersionLength int
	LongVersionLength  int
	FadeMs             int
}

// OutputName names the artifact of a run after its parameter tuple, e.g.
// "output-400-1.0-50-False-2-6-50.wav". Speeds are written like 1.0 and 1.25,
// reverse as True or False, so existing artifacts keep their names.
func OutputName(p RunParams) string {
	return fmt.Sprintf(outputNameFormat,
		p.PitchCents,
		formatSpeed(p.PlaybackSpeed),
		p.CrossfadeMs,
		formatFlag(p.Reverse),
		p.ShortVersionLength,
		p.LongVersionLength,
		p.FadeMs,
	)
}

// formatSpeed writes the shortest round-tripping decimal with at least one
// fractional digit, switching to exponent form outside [1e-4, 1e16).
func formatSpeed(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}

func formatFlag(b bool) string {
	if b {
		return "True"
	}

	return "False"
}
