// Package assets manages the on-disk cache of raw and modified per-letter
// phoneme samples.
//
// The raw directory holds one synthesized clip per (letter, length class),
// generated from a random seed string. The modified directory holds the same
// clips after the effects chain. In legacy mode the presence of the raw
// directory and of a complete modified set are the only cache signals; the
// parameters used to build a modified set are not recorded. Fingerprint mode
// keys each modified set by a hash of its parameters instead.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"golang.org/x/sync/errgroup"

	"github.com/book-expert/alphamix/internal/audio"
	"github.com/book-expert/alphamix/internal/core"
	"github.com/book-expert/alphamix/internal/effects"
	"github.com/book-expert/alphamix/internal/paths"
)

// CacheMode selects how modified sets are keyed.
type CacheMode string

// Supported cache modes.
const (
	ModeLegacy      CacheMode = "legacy"
	ModeFingerprint CacheMode = "fingerprint"
)

const (
	filePermissions = 0o600
	modifiedExt     = "wav"
)

// Log formats.
const (
	logFmtRawSkipped       = "Alphabet audio files already exist in %s, skipping generation."
	logFmtRawGenerating    = "Generating %d alphabet audio files with %s..."
	logFmtRawGenerated     = "Generated audio for letter '%c' with '%s' version (%s)."
	logFmtModifiedSkipped  = "Modified alphabet audio files already exist in %s, skipping modifications."
	logFmtModifiedApplying = "Applying modifications to alphabet audio files (pitch=%d reverse=%t speed=%v)..."
	logFmtModifiedApplied  = "Applied modifications to letter '%c' with '%s' version."
)

var (
	// ErrInvalidOptions indicates a Store configured with missing collaborators.
	ErrInvalidOptions = errors.New("invalid asset store options")
	// ErrUnknownCacheMode indicates an unsupported cache mode.
	ErrUnknownCacheMode = errors.New("unknown cache mode")
)

// rawExtensions are the containers a gateway may return, in lookup order.
var rawExtensions = []audio.Format{audio.FORMAT_MP3, audio.FORMAT_WAV}

// RandomSource draws seed-string characters. *rand.Rand from math/rand/v2
// satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// Modifier applies the effects chain to one buffer.
type Modifier interface {
	Modify(buf audio.Buffer, params effects.Params) (audio.Buffer, error)
}

// Options configures a Store.
type Options struct {
	RawDir      string
	ModifiedDir string
	Alphabet    string
	Language    string
	Workers     int
	Mode        CacheMode
}

// Store owns the raw and modified asset directories.
type Store struct {
	opts        Options
	synthesizer core.SpeechSynthesizer
	modifier    Modifier
	random      RandomSource
	log         *logger.Logger
}

// New creates a Store. Alphabet defaults to a..z, Workers to 1 and Mode to
// legacy.
func New(
	opts Options,
	synthesizer core.SpeechSynthesizer,
	modifier Modifier,
	random RandomSource,
	log *logger.Logger,
) (*Store, error) {
	if opts.RawDir == "" || opts.ModifiedDir == "" {
		return nil, fmt.Errorf("%w: raw and modified directories are required", ErrInvalidOptions)
	}

	if synthesizer == nil || modifier == nil || random == nil || log == nil {
		return nil, fmt.Errorf("%w: synthesizer, modifier, random source and logger are required", ErrInvalidOptions)
	}

	if opts.Alphabet == "" {
		opts.Alphabet = core.Alphabet
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}

	switch opts.Mode {
	case "":
		opts.Mode = ModeLegacy
	case ModeLegacy, ModeFingerprint:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCacheMode, opts.Mode)
	}

	return &Store{
		opts:        opts,
		synthesizer: synthesizer,
		modifier:    modifier,
		random:      random,
		log:         log,
	}, nil
}

// Alphabet returns the letters the store manages.
func (s *Store) Alphabet() string {
	return s.opts.Alphabet
}

// CacheKey qualifies key with the fingerprint of params under the store's mode.
func (s *Store) CacheKey(key core.LetterKey, params effects.Params) core.CacheKey {
	cacheKey := core.CacheKey{LetterKey: key}
	if s.opts.Mode == ModeFingerprint {
		cacheKey.ParamHash = ParamHash(params)
	}

	return cacheKey
}

// ModifiedPath returns the file of a modified asset.
func (s *Store) ModifiedPath(key core.CacheKey) string {
	return filepath.Join(s.opts.ModifiedDir, key.ParamHash, key.ModifiedName(modifiedExt))
}

// LoadModified decodes the modified asset for key built with params.
func (s *Store) LoadModified(key core.LetterKey, params effects.Params) (audio.Buffer, error) {
	path := s.ModifiedPath(s.CacheKey(key, params))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return audio.Buffer{}, fmt.Errorf("%w: modified %s at %s", core.ErrMissingAsset, key, path)
		}

		return audio.Buffer{}, fmt.Errorf("failed to read modified asset %s: %w", path, err)
	}

	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to decode modified asset %s: %w", path, err)
	}

	return buf, nil
}

// rawPath locates the raw asset for key among the known containers.
func (s *Store) rawPath(key core.LetterKey) (string, bool, error) {
	for _, ext := range rawExtensions {
		path := filepath.Join(s.opts.RawDir, key.RawName(string(ext)))

		found, err := paths.Exists(path)
		if err != nil {
			return "", false, err
		}

		if found {
			return path, true, nil
		}
	}

	return "", false, nil
}

// run executes fn for every item with at most Workers in flight. The first
// error cancels the group and is returned.
func run[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for _, item := range items {
		group.Go(func() error {
			if ctxErr := groupCtx.Err(); ctxErr != nil {
				return ctxErr
			}

			return fn(groupCtx, item)
		})
	}

	return group.Wait()
}

func writeFile(path string, data []byte) error {
	writeErr := os.WriteFile(path, data, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write %s: %w", path, writeErr)
	}

	return nil
}
