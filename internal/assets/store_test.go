package assets_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/alphamix/internal/assets"
	"github.com/book-expert/alphamix/internal/audio"
	"github.com/book-expert/alphamix/internal/core"
	"github.com/book-expert/alphamix/internal/effects"
)

const testAlphabetKeys = 52

var errGatewayDown = errors.New("gateway down")

// fakeSynthesizer returns a half-second tone for every request.
type fakeSynthesizer struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	samples := make([]int16, audio.DEFAULT_SAMPLE_RATE/2)
	for i := range samples {
		samples[i] = int16((i % 100) * 100)
	}

	return audio.EncodeWAV(audio.New(samples, audio.DEFAULT_SAMPLE_RATE, audio.DEFAULT_CHANNELS)), nil
}

func (f *fakeSynthesizer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.texts)
}

// countingModifier wraps the real effects chain and counts invocations.
type countingModifier struct {
	count atomic.Int64
}

func (m *countingModifier) Modify(buf audio.Buffer, params effects.Params) (audio.Buffer, error) {
	m.count.Add(1)

	return effects.Modifier{}.Modify(buf, params)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "assets-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

func newStore(
	t *testing.T,
	root string,
	mode assets.CacheMode,
	synth core.SpeechSynthesizer,
	modifier assets.Modifier,
) *assets.Store {
	t.Helper()

	store, err := assets.New(assets.Options{
		RawDir:      filepath.Join(root, "original_audio"),
		ModifiedDir: filepath.Join(root, "modified_audio"),
		Language:    "en",
		Workers:     4,
		Mode:        mode,
	}, synth, modifier, rand.New(rand.NewPCG(1, 2)), newTestLogger(t))
	require.NoError(t, err)

	return store
}

func defaultParams() effects.Params {
	return effects.Params{PitchCents: 400, Speed: 1.0}
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	t.Parallel()

	_, err := assets.New(assets.Options{RawDir: "a", ModifiedDir: "b"}, nil, nil, nil, nil)
	require.ErrorIs(t, err, assets.ErrInvalidOptions)

	_, err = assets.New(assets.Options{}, &fakeSynthesizer{}, &countingModifier{},
		rand.New(rand.NewPCG(1, 2)), newTestLogger(t))
	require.ErrorIs(t, err, assets.ErrInvalidOptions)
}

func TestNewRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	_, err := assets.New(assets.Options{RawDir: "a", ModifiedDir: "b", Mode: "lru"},
		&fakeSynthesizer{}, &countingModifier{}, rand.New(rand.NewPCG(1, 2)), newTestLogger(t))
	require.ErrorIs(t, err, assets.ErrUnknownCacheMode)
}

func TestEnsureRawGeneratesEveryKey(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	synth := &fakeSynthesizer{}
	store := newStore(t, root, assets.ModeLegacy, synth, &countingModifier{})

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	assert.Equal(t, testAlphabetKeys, synth.calls())

	for _, key := range core.AllKeys(core.Alphabet) {
		assert.FileExists(t, filepath.Join(root, "original_audio", key.RawName("wav")))
	}

	shortSeeds, longSeeds := 0, 0

	for _, text := range synth.texts {
		switch len(text) {
		case 2:
			shortSeeds++
		case 6:
			longSeeds++
		}

		for _, r := range text {
			assert.Contains(t, core.Alphabet, string(r))
		}
	}

	assert.Equal(t, 26, shortSeeds)
	assert.Equal(t, 26, longSeeds)
}

func TestEnsureRawIsIdempotent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	synth := &fakeSynthesizer{}
	store := newStore(t, root, assets.ModeLegacy, synth, &countingModifier{})

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	assert.Equal(t, testAlphabetKeys, synth.calls())
}

func TestEnsureRawLegacySkipsPartialDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "original_audio"), 0o750))

	synth := &fakeSynthesizer{}
	store := newStore(t, root, assets.ModeLegacy, synth, &countingModifier{})

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	assert.Zero(t, synth.calls())
}

func TestEnsureRawFingerprintBackfills(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	synth := &fakeSynthesizer{}
	store := newStore(t, root, assets.ModeFingerprint, synth, &countingModifier{})

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	require.NoError(t, os.Remove(filepath.Join(root, "original_audio", "q_long.wav")))

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	assert.Equal(t, testAlphabetKeys+1, synth.calls())
	assert.FileExists(t, filepath.Join(root, "original_audio", "q_long.wav"))
}

func TestEnsureRawWrapsGatewayFailure(t *testing.T) {
	t.Parallel()

	synth := &fakeSynthesizer{err: errGatewayDown}
	store := newStore(t, t.TempDir(), assets.ModeLegacy, synth, &countingModifier{})

	err := store.EnsureRaw(context.Background(), 2, 6)
	require.ErrorIs(t, err, core.ErrSynthesis)
	require.ErrorIs(t, err, errGatewayDown)
}

func TestEnsureModifiedSkipsCompleteSet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	modifier := &countingModifier{}
	store := newStore(t, root, assets.ModeLegacy, &fakeSynthesizer{}, modifier)

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	require.NoError(t, store.EnsureModified(context.Background(), defaultParams()))
	assert.EqualValues(t, testAlphabetKeys, modifier.count.Load())

	require.NoError(t, store.EnsureModified(context.Background(), defaultParams()))
	assert.EqualValues(t, testAlphabetKeys, modifier.count.Load())
}

func TestEnsureModifiedRebuildsWholeSetWhenOneIsMissing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	modifier := &countingModifier{}
	store := newStore(t, root, assets.ModeLegacy, &fakeSynthesizer{}, modifier)

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	require.NoError(t, store.EnsureModified(context.Background(), defaultParams()))
	require.NoError(t, os.Remove(filepath.Join(root, "modified_audio", "c_modified_short.wav")))

	require.NoError(t, store.EnsureModified(context.Background(), defaultParams()))
	assert.EqualValues(t, 2*testAlphabetKeys, modifier.count.Load())
}

func TestEnsureModifiedLegacyIgnoresParameterChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	modifier := &countingModifier{}
	store := newStore(t, root, assets.ModeLegacy, &fakeSynthesizer{}, modifier)

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	require.NoError(t, store.EnsureModified(context.Background(), defaultParams()))

	changed := effects.Params{PitchCents: -300, Reverse: true, Speed: 1.0}
	require.NoError(t, store.EnsureModified(context.Background(), changed))
	assert.EqualValues(t, testAlphabetKeys, modifier.count.Load())
}

func TestEnsureModifiedFingerprintKeysByParameters(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	modifier := &countingModifier{}
	store := newStore(t, root, assets.ModeFingerprint, &fakeSynthesizer{}, modifier)

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	require.NoError(t, store.EnsureModified(context.Background(), defaultParams()))

	changed := effects.Params{PitchCents: -300, Reverse: true, Speed: 1.0}
	require.NoError(t, store.EnsureModified(context.Background(), changed))
	assert.EqualValues(t, 2*testAlphabetKeys, modifier.count.Load())

	require.NoError(t, store.EnsureModified(context.Background(), defaultParams()))
	assert.EqualValues(t, 2*testAlphabetKeys, modifier.count.Load())

	manifest, err := store.ReadManifest(changed)
	require.NoError(t, err)
	assert.Equal(t, assets.ParamHash(changed), manifest.Hash)
	assert.Equal(t, -300, manifest.PitchCents)
	assert.True(t, manifest.Reverse)
	assert.Equal(t, testAlphabetKeys, manifest.Assets)

	key := core.LetterKey{Letter: 'a', Length: core.Short}
	assert.FileExists(t, store.ModifiedPath(store.CacheKey(key, changed)))
	assert.NotEqual(t,
		store.ModifiedPath(store.CacheKey(key, changed)),
		store.ModifiedPath(store.CacheKey(key, defaultParams())))
}

func TestEnsureModifiedFailsOnMissingRaw(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := newStore(t, root, assets.ModeLegacy, &fakeSynthesizer{}, &countingModifier{})

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	require.NoError(t, os.Remove(filepath.Join(root, "original_audio", "z_short.wav")))

	err := store.EnsureModified(context.Background(), defaultParams())
	require.ErrorIs(t, err, core.ErrMissingAsset)
}

func TestEnsureModifiedRejectsInvalidSpeed(t *testing.T) {
	t.Parallel()

	store := newStore(t, t.TempDir(), assets.ModeLegacy, &fakeSynthesizer{}, &countingModifier{})

	err := store.EnsureModified(context.Background(), effects.Params{Speed: 0})
	require.ErrorIs(t, err, effects.ErrInvalidSpeed)
}

func TestEnsureModifiedUnstorablePitchLeavesNoSet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := newStore(t, root, assets.ModeLegacy, &fakeSynthesizer{}, &countingModifier{})

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))

	err := store.EnsureModified(context.Background(), effects.Params{PitchCents: 20000, Speed: 1.0})
	require.ErrorIs(t, err, effects.ErrInvalidPitch)

	entries, err := os.ReadDir(filepath.Join(root, "modified_audio"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.EnsureModified(context.Background(), defaultParams()))

	buf, err := store.LoadModified(core.LetterKey{Letter: 'a', Length: core.Short}, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, 30238, buf.FrameRate)
}

func TestLoadModifiedHighPitch(t *testing.T) {
	t.Parallel()

	store := newStore(t, t.TempDir(), assets.ModeLegacy, &fakeSynthesizer{}, &countingModifier{})
	params := effects.Params{PitchCents: 9600, Speed: 1.0}

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	require.NoError(t, store.EnsureModified(context.Background(), params))

	buf, err := store.LoadModified(core.LetterKey{Letter: 'q', Length: core.Long}, params)
	require.NoError(t, err)
	assert.Equal(t, 6144000, buf.FrameRate)
}

func TestLoadModified(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := newStore(t, root, assets.ModeLegacy, &fakeSynthesizer{}, &countingModifier{})
	key := core.LetterKey{Letter: 'g', Length: core.Long}

	_, err := store.LoadModified(key, defaultParams())
	require.ErrorIs(t, err, core.ErrMissingAsset)

	require.NoError(t, store.EnsureRaw(context.Background(), 2, 6))
	require.NoError(t, store.EnsureModified(context.Background(), defaultParams()))

	buf, err := store.LoadModified(key, defaultParams())
	require.NoError(t, err)
	// 400 cents up: the sample rate is raised, the frame count is unchanged.
	assert.Equal(t, 30238, buf.FrameRate)
	assert.Equal(t, audio.DEFAULT_SAMPLE_RATE/2, buf.Frames())
}

func TestParamHashDistinguishesParameters(t *testing.T) {
	t.Parallel()

	base := defaultParams()
	assert.Equal(t, assets.ParamHash(base), assets.ParamHash(base))
	assert.Len(t, assets.ParamHash(base), 12)
	assert.NotEqual(t, assets.ParamHash(base), assets.ParamHash(effects.Params{PitchCents: 400, Speed: 1.5}))
	assert.NotEqual(t, assets.ParamHash(base),
		assets.ParamHash(effects.Params{PitchCents: 400, Reverse: true, Speed: 1.0}))
}
