// Package config_test tests the configuration loading for alphamix.
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/alphamix/internal/assets"
	"github.com/book-expert/alphamix/internal/config"
	"github.com/book-expert/alphamix/internal/effects"
	"github.com/book-expert/alphamix/internal/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "project.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestUnmarshalConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[alphamix]
pitch = -250
playback_speed = 1.5
reverse = true
crossfade_duration_ms = 30
short_version_length = 3
long_version_length = 8
use_long_version = 4
fade_duration_ms = 20
language = "es"
workers = 4
cache_mode = "fingerprint"

[paths]
base_logs_dir = "/var/log/alphamix"
original_audio_dir = "/srv/alphamix/original_audio"
modified_audio_dir = "/srv/alphamix/modified_audio"
output_dir = "/srv/alphamix/out"

[tts_service]
provider = "http"
url = "http://tts:8000"
voice = "speakers/ana.wav"
temperature = 0.7
timeout_seconds = 300

[nats]
url = "nats://127.0.0.1:4222"
synthesis_request_subject = "alphamix.synthesize"
queue_group = "mixers"
audio_object_store_bucket = "AUDIO_FILES"
`

	var cfg config.Config

	require.NoError(t, toml.Unmarshal([]byte(tomlData), &cfg))

	assert.Equal(t, -250, cfg.Alphamix.Pitch)
	assert.InEpsilon(t, 1.5, cfg.Alphamix.PlaybackSpeed, 0.001)
	assert.True(t, cfg.Alphamix.Reverse)
	assert.Equal(t, 30, cfg.Alphamix.CrossfadeDuration)
	assert.Equal(t, 3, cfg.Alphamix.ShortVersionLength)
	assert.Equal(t, 8, cfg.Alphamix.LongVersionLength)
	assert.Equal(t, 4, cfg.Alphamix.UseLongVersion)
	assert.Equal(t, 20, cfg.Alphamix.FadeDuration)
	assert.Equal(t, "es", cfg.Alphamix.Language)
	assert.Equal(t, 4, cfg.Alphamix.Workers)
	assert.Equal(t, "fingerprint", cfg.Alphamix.CacheMode)
	assert.Equal(t, "/var/log/alphamix", cfg.Paths.BaseLogsDir)
	assert.Equal(t, "/srv/alphamix/out", cfg.Paths.OutputDir)
	assert.Equal(t, "http", cfg.TTS.Provider)
	assert.Equal(t, "http://tts:8000", cfg.TTS.URL)
	assert.Equal(t, "speakers/ana.wav", cfg.TTS.Voice)
	assert.InEpsilon(t, 0.7, cfg.TTS.Temperature, 0.001)
	assert.Equal(t, 300, cfg.TTS.TimeoutSeconds)
	assert.Equal(t, "alphamix.synthesize", cfg.NATS.SynthesisRequestSubject)
	assert.Equal(t, "mixers", cfg.NATS.QueueGroup)
	assert.Equal(t, "AUDIO_FILES", cfg.NATS.AudioObjectStoreBucket)
	require.NoError(t, cfg.Validate())
}

func TestDefaultMatchesStockParameters(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, pipeline.DefaultParams(), cfg.Params())
	assert.Equal(t, "edge", cfg.TTS.Provider)
	assert.Equal(t, "legacy", cfg.Alphamix.CacheMode)
	assert.Equal(t, 1, cfg.Alphamix.Workers)
}

func TestLoadFileKeepsDefaultsForAbsentFields(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[alphamix]
pitch = 700
`)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 700, cfg.Alphamix.Pitch)
	assert.InEpsilon(t, 1.0, cfg.Alphamix.PlaybackSpeed, 0.001)
	assert.Equal(t, 50, cfg.Alphamix.FadeDuration)
	assert.Equal(t, "en", cfg.Alphamix.Language)
	assert.Equal(t, "alphamix.synthesize", cfg.NATS.SynthesisRequestSubject)
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadFileMalformed(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFile(writeConfig(t, "[alphamix\npitch = "))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		mutate func(*config.Config)
		name   string
	}{
		{name: "zero speed", mutate: func(c *config.Config) { c.Alphamix.PlaybackSpeed = 0 }},
		{name: "short length", mutate: func(c *config.Config) { c.Alphamix.ShortVersionLength = 0 }},
		{name: "long length", mutate: func(c *config.Config) { c.Alphamix.LongVersionLength = -1 }},
		{name: "negative fade", mutate: func(c *config.Config) { c.Alphamix.FadeDuration = -5 }},
		{name: "negative crossfade", mutate: func(c *config.Config) { c.Alphamix.CrossfadeDuration = -5 }},
		{name: "workers", mutate: func(c *config.Config) { c.Alphamix.Workers = 0 }},
		{name: "cache mode", mutate: func(c *config.Config) { c.Alphamix.CacheMode = "lru" }},
		{name: "provider", mutate: func(c *config.Config) { c.TTS.Provider = "gtts" }},
		{name: "timeout", mutate: func(c *config.Config) { c.TTS.TimeoutSeconds = -1 }},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			testCase.mutate(&cfg)

			require.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}
}

func TestValidateKeepsSpeedCause(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Alphamix.PlaybackSpeed = -1

	require.ErrorIs(t, cfg.Validate(), effects.ErrInvalidSpeed)
}

func TestSynthesizerOptions(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.TTS.Provider = "command"
	cfg.TTS.BinaryPath = "/usr/local/bin/say"
	cfg.TTS.TimeoutSeconds = 5

	opts := cfg.SynthesizerOptions()
	assert.Equal(t, "command", opts.Provider)
	assert.Equal(t, "/usr/local/bin/say", opts.BinaryPath)
	assert.Equal(t, 5*time.Second, opts.Timeout)
}

func TestStoreOptions(t *testing.T) {
	t.Setenv("ALPHAMIX_CACHE_DIR", "/var/cache/alphamix")

	cfg := config.Default()
	cfg.Paths.OriginalAudioDir = "/data/raw"
	cfg.Alphamix.CacheMode = "fingerprint"

	opts := cfg.StoreOptions()
	assert.Equal(t, "/data/raw", opts.RawDir)
	assert.Equal(t, "/var/cache/alphamix/modified_audio", opts.ModifiedDir)
	assert.Equal(t, assets.ModeFingerprint, opts.Mode)
	assert.Equal(t, "en", opts.Language)
}
