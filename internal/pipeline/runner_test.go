package pipeline_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/alphamix/internal/assets"
	"github.com/book-expert/alphamix/internal/audio"
	"github.com/book-expert/alphamix/internal/core"
	"github.com/book-expert/alphamix/internal/effects"
	"github.com/book-expert/alphamix/internal/pipeline"
)

const clipFrames = 12000

// toneSynthesizer answers every request with a 500 ms WAV tone.
type toneSynthesizer struct {
	calls atomic.Int64
	err   error
}

func (s *toneSynthesizer) Synthesize(context.Context, string, string) ([]byte, error) {
	s.calls.Add(1)

	if s.err != nil {
		return nil, s.err
	}

	samples := make([]int16, clipFrames)
	for i := range samples {
		samples[i] = int16(8000 - (i%160)*100)
	}

	return audio.EncodeWAV(audio.New(samples, audio.DEFAULT_SAMPLE_RATE, 1)), nil
}

type fixture struct {
	runner    *pipeline.Runner
	synth     *toneSynthesizer
	outputDir string
}

func newFixture(t *testing.T, synth *toneSynthesizer) fixture {
	t.Helper()

	root := t.TempDir()

	log, err := logger.New(root, "pipeline-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	store, err := assets.New(assets.Options{
		RawDir:      filepath.Join(root, "original_audio"),
		ModifiedDir: filepath.Join(root, "modified_audio"),
		Language:    "en",
		Workers:     2,
	}, synth, effects.Modifier{}, rand.New(rand.NewPCG(7, 7)), log)
	require.NoError(t, err)

	outputDir := filepath.Join(root, "out")

	return fixture{
		runner:    pipeline.NewRunner(store, outputDir, log),
		synth:     synth,
		outputDir: outputDir,
	}
}

func TestRunWritesNamedArtifact(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &toneSynthesizer{})

	result, err := f.runner.Run(context.Background(), "Go go gadget", pipeline.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.outputDir, "output-400-1.0-50-False-2-6-50.wav"), result.OutputPath)
	require.Len(t, result.Track.Segments, 3)

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)

	buf, err := audio.DecodeWAV(data)
	require.NoError(t, err)

	// 400 cents raise the rate to 30238 Hz; 50 ms are 1511 frames there.
	assert.Equal(t, 30238, buf.FrameRate)
	assert.Equal(t, 3*clipFrames-2*1511, buf.Frames())
}

func TestRunEmptyPhraseWritesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &toneSynthesizer{})

	result, err := f.runner.Run(context.Background(), "123 456", pipeline.DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, result.OutputPath)
	assert.True(t, result.Track.Empty())

	_, statErr := os.Stat(f.outputDir)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRunReusesCachedAssets(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &toneSynthesizer{})

	_, err := f.runner.Run(context.Background(), "abc", pipeline.DefaultParams())
	require.NoError(t, err)

	_, err = f.runner.Run(context.Background(), "xyz", pipeline.DefaultParams())
	require.NoError(t, err)

	assert.EqualValues(t, 52, f.synth.calls.Load())
}

func TestRunWrapsSynthesisFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &toneSynthesizer{err: errors.New("offline")})

	_, err := f.runner.Run(context.Background(), "hello", pipeline.DefaultParams())
	require.ErrorIs(t, err, core.ErrSynthesis)
}

func TestRunRejectsInvalidParams(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &toneSynthesizer{})

	params := pipeline.DefaultParams()
	params.PlaybackSpeed = 0
	_, err := f.runner.Run(context.Background(), "hello", params)
	require.ErrorIs(t, err, effects.ErrInvalidSpeed)

	params = pipeline.DefaultParams()
	params.ShortVersionLength = 0
	_, err = f.runner.Run(context.Background(), "hello", params)
	require.ErrorIs(t, err, pipeline.ErrInvalidParams)

	params = pipeline.DefaultParams()
	params.FadeMs = -1
	_, err = f.runner.Run(context.Background(), "hello", params)
	require.ErrorIs(t, err, pipeline.ErrInvalidParams)

	assert.Zero(t, f.synth.calls.Load())
}

func TestRenderReturnsWAV(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &toneSynthesizer{})

	params := pipeline.DefaultParams()
	params.PitchCents = 0

	track, data, err := f.runner.Render(context.Background(), "hi there", params)
	require.NoError(t, err)
	require.Len(t, track.Segments, 2)

	buf, err := audio.DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, audio.DEFAULT_SAMPLE_RATE, buf.FrameRate)
	assert.Equal(t, 2*clipFrames-1200, buf.Frames())

	_, statErr := os.Stat(f.outputDir)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRenderEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &toneSynthesizer{})

	track, data, err := f.runner.Render(context.Background(), "42", pipeline.DefaultParams())
	require.NoError(t, err)
	assert.True(t, track.Empty())
	assert.Nil(t, data)
}

func TestParamsRunParams(t *testing.T) {
	t.Parallel()

	params := pipeline.DefaultParams()
	params.UseLongVersion = 99

	assert.Equal(t, pipeline.DefaultParams().RunParams(), params.RunParams())
	assert.Equal(t, effects.Params{PitchCents: 400, Speed: 1.0}, params.Effects())
}
