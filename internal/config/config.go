// Package config provides the configuration structure for alphamix.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"

	"github.com/book-expert/alphamix/internal/assets"
	"github.com/book-expert/alphamix/internal/paths"
	"github.com/book-expert/alphamix/internal/pipeline"
	"github.com/book-expert/alphamix/internal/tts"
)

// ErrInvalidConfig indicates a configuration value outside its valid range.
var ErrInvalidConfig = errors.New("invalid configuration")

// AlphamixConfig holds the run parameters and asset settings.
type AlphamixConfig struct {
	Pitch              int     `toml:"pitch"`
	PlaybackSpeed      float64 `toml:"playback_speed"`
	Reverse            bool    `toml:"reverse"`
	CrossfadeDuration  int     `toml:"crossfade_duration_ms"`
	ShortVersionLength int     `toml:"short_version_length"`
	LongVersionLength  int     `toml:"long_version_length"`
	UseLongVersion     int     `toml:"use_long_version"`
	FadeDuration       int     `toml:"fade_duration_ms"`
	Language           string  `toml:"language"`
	Workers            int     `toml:"workers"`
	CacheMode          string  `toml:"cache_mode"`
}

// PathsConfig holds the configuration for file paths. Empty asset
// directories resolve under the user cache directory; an empty output
// directory means the executable's directory.
type PathsConfig struct {
	BaseLogsDir      string `toml:"base_logs_dir"`
	OriginalAudioDir string `toml:"original_audio_dir"`
	ModifiedAudioDir string `toml:"modified_audio_dir"`
	OutputDir        string `toml:"output_dir"`
}

// TTSServiceConfig selects and configures the speech synthesis gateway.
type TTSServiceConfig struct {
	Provider       string   `toml:"provider"`
	URL            string   `toml:"url"`
	Voice          string   `toml:"voice"`
	BinaryPath     string   `toml:"binary_path"`
	Args           []string `toml:"args"`
	Temperature    float64  `toml:"temperature"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                     string `toml:"url"`
	SynthesisRequestSubject string `toml:"synthesis_request_subject"`
	QueueGroup              string `toml:"queue_group"`
	AudioObjectStoreBucket  string `toml:"audio_object_store_bucket"`
}

// Config is the root configuration structure.
type Config struct {
	Alphamix AlphamixConfig   `toml:"alphamix"`
	Paths    PathsConfig      `toml:"paths"`
	TTS      TTSServiceConfig `toml:"tts_service"`
	NATS     NATSConfig       `toml:"nats"`
}

// Default returns the configuration used for every value a file leaves out.
func Default() Config {
	params := pipeline.DefaultParams()

	return Config{
		Alphamix: AlphamixConfig{
			Pitch:              params.PitchCents,
			PlaybackSpeed:      params.PlaybackSpeed,
			Reverse:            params.Reverse,
			CrossfadeDuration:  params.CrossfadeMs,
			ShortVersionLength: params.ShortVersionLength,
			LongVersionLength:  params.LongVersionLength,
			UseLongVersion:     params.UseLongVersion,
			FadeDuration:       params.FadeMs,
			Language:           "en",
			Workers:            1,
			CacheMode:          string(assets.ModeLegacy),
		},
		TTS: TTSServiceConfig{
			Provider:       tts.ProviderEdge,
			URL:            "http://localhost:8000",
			Temperature:    0.75,
			TimeoutSeconds: 60,
		},
		NATS: NATSConfig{
			URL:                     "nats://127.0.0.1:4222",
			SynthesisRequestSubject: "alphamix.synthesize",
			QueueGroup:              "alphamix-workers",
			AudioObjectStoreBucket:  "AUDIO_FILES",
		},
	}
}

// Load loads the project configuration through configurator on top of the
// defaults.
func Load(log *logger.Logger) (*Config, error) {
	cfg := Default()

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	validationErr := cfg.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	return &cfg, nil
}

// LoadFile loads the TOML file at path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()

	unmarshalErr := toml.Unmarshal(data, &cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, unmarshalErr)
	}

	validationErr := cfg.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	paramsErr := c.Params().Validate()
	if paramsErr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, paramsErr)
	}

	if c.Alphamix.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Alphamix.Workers)
	}

	switch assets.CacheMode(c.Alphamix.CacheMode) {
	case assets.ModeLegacy, assets.ModeFingerprint:
	default:
		return fmt.Errorf("%w: unknown cache_mode %q", ErrInvalidConfig, c.Alphamix.CacheMode)
	}

	switch c.TTS.Provider {
	case tts.ProviderEdge, tts.ProviderHTTP, tts.ProviderCommand:
	default:
		return fmt.Errorf("%w: unknown tts provider %q", ErrInvalidConfig, c.TTS.Provider)
	}

	if c.TTS.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: timeout_seconds must not be negative, got %d", ErrInvalidConfig, c.TTS.TimeoutSeconds)
	}

	return nil
}

// Params returns the run parameters of the [alphamix] section.
func (c *Config) Params() pipeline.Params {
	return pipeline.Params{
		PitchCents:         c.Alphamix.Pitch,
		PlaybackSpeed:      c.Alphamix.PlaybackSpeed,
		Reverse:            c.Alphamix.Reverse,
		CrossfadeMs:        c.Alphamix.CrossfadeDuration,
		ShortVersionLength: c.Alphamix.ShortVersionLength,
		LongVersionLength:  c.Alphamix.LongVersionLength,
		UseLongVersion:     c.Alphamix.UseLongVersion,
		FadeMs:             c.Alphamix.FadeDuration,
	}
}

// SynthesizerOptions returns the gateway options of the [tts_service] section.
func (c *Config) SynthesizerOptions() tts.Options {
	return tts.Options{
		Provider:    c.TTS.Provider,
		URL:         c.TTS.URL,
		Voice:       c.TTS.Voice,
		BinaryPath:  c.TTS.BinaryPath,
		Args:        c.TTS.Args,
		Temperature: c.TTS.Temperature,
		Timeout:     time.Duration(c.TTS.TimeoutSeconds) * time.Second,
	}
}

// StoreOptions returns the asset store options. Empty asset directories
// resolve under the user cache directory.
func (c *Config) StoreOptions() assets.Options {
	return assets.Options{
		RawDir:      paths.Resolve(c.Paths.OriginalAudioDir, "original_audio"),
		ModifiedDir: paths.Resolve(c.Paths.ModifiedAudioDir, "modified_audio"),
		Language:    c.Alphamix.Language,
		Workers:     c.Alphamix.Workers,
		Mode:        assets.CacheMode(c.Alphamix.CacheMode),
	}
}
