// Package pipeline runs one alphamix invocation: it makes sure the raw and
// modified phoneme sets exist, assembles the phrase and writes the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"

	"github.com/book-expert/alphamix/internal/assets"
	"github.com/book-expert/alphamix/internal/audio"
	"github.com/book-expert/alphamix/internal/core"
	"github.com/book-expert/alphamix/internal/effects"
	"github.com/book-expert/alphamix/internal/paths"
	"github.com/book-expert/alphamix/internal/sequence"
)

const outputPermissions = 0o600

// Log formats.
const (
	logFmtGenerating   = "Generating user-defined string..."
	logFmtAddedLetter  = "Added sound for letter '%c' to the output file."
	logFmtSaved        = "Saved combined audio to '%s' (%s, %s)."
	logFmtNothingToSay = "No word of %q starts with a known letter, no output written."
)

// ErrInvalidParams indicates run parameters outside their valid range.
var ErrInvalidParams = errors.New("invalid run parameters")

// Params are the run parameters of one invocation.
type Params struct {
	PitchCents         int
	PlaybackSpeed      float64
	Reverse            bool
	CrossfadeMs        int
	ShortVersionLength int
	LongVersionLength  int
	// UseLongVersion is accepted for compatibility and has no effect; the
	// long rendering is chosen from ShortVersionLength.
	UseLongVersion int
	FadeMs         int
}

// DefaultParams returns the stock parameter set.
func DefaultParams() Params {
	return Params{
		PitchCents:         400,
		PlaybackSpeed:      1.0,
		CrossfadeMs:        50,
		ShortVersionLength: 2,
		LongVersionLength:  6,
		UseLongVersion:     3,
		FadeMs:             50,
	}
}

// Validate checks the parameters.
func (p Params) Validate() error {
	speedErr := p.Effects().Validate()
	if speedErr != nil {
		return speedErr
	}

	if p.ShortVersionLength < 1 || p.LongVersionLength < 1 {
		return fmt.Errorf("%w: version lengths must be at least 1, got short=%d long=%d",
			ErrInvalidParams, p.ShortVersionLength, p.LongVersionLength)
	}

	if p.FadeMs < 0 || p.CrossfadeMs < 0 {
		return fmt.Errorf("%w: durations must not be negative, got fade=%d crossfade=%d",
			ErrInvalidParams, p.FadeMs, p.CrossfadeMs)
	}

	return nil
}

// Effects returns the signal chain parameters.
func (p Params) Effects() effects.Params {
	return effects.Params{PitchCents: p.PitchCents, Reverse: p.Reverse, Speed: p.PlaybackSpeed}
}

// RunParams returns the tuple the output is named after.
func (p Params) RunParams() sequence.RunParams {
	return sequence.RunParams{
		PitchCents:         p.PitchCents,
		PlaybackSpeed:      p.PlaybackSpeed,
		CrossfadeMs:        p.CrossfadeMs,
		Reverse:            p.Reverse,
		ShortVersionLength: p.ShortVersionLength,
		LongVersionLength:  p.LongVersionLength,
		FadeMs:             p.FadeMs,
	}
}

// AssetStore is the subset of *assets.Store the runner uses.
type AssetStore interface {
	Alphabet() string
	EnsureRaw(ctx context.Context, shortLen, longLen int) error
	EnsureModified(ctx context.Context, params effects.Params) error
	LoadModified(key core.LetterKey, params effects.Params) (audio.Buffer, error)
}

var _ AssetStore = (*assets.Store)(nil)

// Result describes a finished run. OutputPath is empty when nothing was
// written.
type Result struct {
	Track      *sequence.Track
	OutputPath string
}

// Runner executes runs against one asset store.
type Runner struct {
	store     AssetStore
	outputDir string
	log       *logger.Logger
}

// NewRunner creates a Runner writing artifacts to outputDir.
func NewRunner(store AssetStore, outputDir string, log *logger.Logger) *Runner {
	return &Runner{store: store, outputDir: outputDir, log: log}
}

// Run renders phrase and writes it as WAV to the output directory under
// sequence.OutputName. A phrase without recognized words writes nothing and
// is not an error.
func (r *Runner) Run(ctx context.Context, phrase string, params Params) (Result, error) {
	track, err := r.assemble(ctx, phrase, params)
	if err != nil {
		return Result{}, err
	}

	if track.Empty() {
		r.log.Info(logFmtNothingToSay, phrase)

		return Result{Track: track}, nil
	}

	dirErr := paths.EnsureDir(r.outputDir)
	if dirErr != nil {
		return Result{}, dirErr
	}

	data := audio.EncodeWAV(track.Audio)
	outputPath := filepath.Join(r.outputDir, sequence.OutputName(params.RunParams()))

	writeErr := os.WriteFile(outputPath, data, outputPermissions)
	if writeErr != nil {
		return Result{}, fmt.Errorf("failed to write output %s: %w", outputPath, writeErr)
	}

	r.log.Info(logFmtSaved, outputPath,
		paths.FormatDuration(track.Duration().Seconds()), paths.FormatFileSize(int64(len(data))))

	return Result{Track: track, OutputPath: outputPath}, nil
}

// Render renders phrase to WAV bytes without touching the output directory.
// The bytes are nil when the track is empty.
func (r *Runner) Render(ctx context.Context, phrase string, params Params) (*sequence.Track, []byte, error) {
	track, err := r.assemble(ctx, phrase, params)
	if err != nil {
		return nil, nil, err
	}

	if track.Empty() {
		return track, nil, nil
	}

	return track, audio.EncodeWAV(track.Audio), nil
}

func (r *Runner) assemble(ctx context.Context, phrase string, params Params) (*sequence.Track, error) {
	validationErr := params.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	rawErr := r.store.EnsureRaw(ctx, params.ShortVersionLength, params.LongVersionLength)
	if rawErr != nil {
		return nil, fmt.Errorf("failed to prepare raw assets: %w", rawErr)
	}

	effectParams := params.Effects()

	modifiedErr := r.store.EnsureModified(ctx, effectParams)
	if modifiedErr != nil {
		return nil, fmt.Errorf("failed to prepare modified assets: %w", modifiedErr)
	}

	r.log.Info(logFmtGenerating)

	lookup := func(key core.LetterKey) (audio.Buffer, error) {
		return r.store.LoadModified(key, effectParams)
	}

	track, err := sequence.Assemble(phrase, lookup, sequence.Options{
		Alphabet:           r.store.Alphabet(),
		ShortVersionLength: params.ShortVersionLength,
		FadeMs:             params.FadeMs,
		CrossfadeMs:        params.CrossfadeMs,
	})
	if err != nil {
		return nil, err
	}

	for _, segment := range track.Segments {
		r.log.Info(logFmtAddedLetter, segment.Key.Letter)
	}

	return track, nil
}
