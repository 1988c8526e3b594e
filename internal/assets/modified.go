package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/book-expert/alphamix/internal/audio"
	"github.com/book-expert/alphamix/internal/core"
	"github.com/book-expert/alphamix/internal/effects"
	"github.com/book-expert/alphamix/internal/paths"
)

const (
	manifestName = "manifest.toml"
	paramHashLen = 12
)

// Manifest records the parameters a fingerprinted modified set was built with.
type Manifest struct {
	Hash       string  `toml:"hash"`
	PitchCents int     `toml:"pitch_cents"`
	Reverse    bool    `toml:"reverse"`
	Speed      float64 `toml:"playback_speed"`
	Assets     int     `toml:"assets"`
}

// ParamHash fingerprints the parameters that shape a modified set.
func ParamHash(params effects.Params) string {
	canonical := fmt.Sprintf("pitch=%d;reverse=%t;speed=%s",
		params.PitchCents, params.Reverse, strconv.FormatFloat(params.Speed, 'g', -1, 64))
	sum := sha256.Sum256([]byte(canonical))

	return hex.EncodeToString(sum[:])[:paramHashLen]
}

// EnsureModified builds the modified set for params unless it is complete.
// Completeness means one modified file per (letter, length class); when any
// is missing the whole set is rebuilt from the raw assets, overwriting what
// was there. A missing raw asset aborts with core.ErrMissingAsset.
func (s *Store) EnsureModified(ctx context.Context, params effects.Params) error {
	validationErr := params.Validate()
	if validationErr != nil {
		return validationErr
	}

	keys := core.AllKeys(s.opts.Alphabet)
	setDir := s.setDir(params)

	dirErr := paths.EnsureDir(setDir)
	if dirErr != nil {
		return dirErr
	}

	complete, err := s.setComplete(keys, params)
	if err != nil {
		return err
	}

	if complete {
		s.log.Info(logFmtModifiedSkipped, setDir)

		return nil
	}

	s.log.Info(logFmtModifiedApplying, params.PitchCents, params.Reverse, params.Speed)

	runErr := run(ctx, s.opts.Workers, keys, func(_ context.Context, key core.LetterKey) error {
		return s.modifyOne(key, params)
	})
	if runErr != nil {
		return runErr
	}

	if s.opts.Mode == ModeFingerprint {
		return s.writeManifest(setDir, params, len(keys))
	}

	return nil
}

// ReadManifest loads the manifest of the fingerprinted set for params.
func (s *Store) ReadManifest(params effects.Params) (Manifest, error) {
	var manifest Manifest

	data, err := os.ReadFile(filepath.Join(s.setDir(params), manifestName))
	if err != nil {
		return manifest, fmt.Errorf("failed to read manifest: %w", err)
	}

	unmarshalErr := toml.Unmarshal(data, &manifest)
	if unmarshalErr != nil {
		return manifest, fmt.Errorf("failed to parse manifest: %w", unmarshalErr)
	}

	return manifest, nil
}

func (s *Store) setDir(params effects.Params) string {
	if s.opts.Mode == ModeFingerprint {
		return filepath.Join(s.opts.ModifiedDir, ParamHash(params))
	}

	return s.opts.ModifiedDir
}

func (s *Store) setComplete(keys []core.LetterKey, params effects.Params) (bool, error) {
	for _, key := range keys {
		found, err := paths.Exists(s.ModifiedPath(s.CacheKey(key, params)))
		if err != nil || !found {
			return false, err
		}
	}

	if s.opts.Mode != ModeFingerprint {
		return true, nil
	}

	// A set without a matching manifest was interrupted before it finished.
	manifest, err := s.ReadManifest(params)
	if err != nil {
		return false, nil //nolint:nilerr // an unreadable manifest means rebuild
	}

	return manifest.Hash == ParamHash(params), nil
}

func (s *Store) modifyOne(key core.LetterKey, params effects.Params) error {
	rawPath, found, err := s.rawPath(key)
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%w: raw %s in %s", core.ErrMissingAsset, key, s.opts.RawDir)
	}

	data, err := os.ReadFile(rawPath)
	if err != nil {
		return fmt.Errorf("failed to read raw asset %s: %w", rawPath, err)
	}

	buf, err := audio.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode raw asset %s: %w", rawPath, err)
	}

	modified, err := s.modifier.Modify(buf, params)
	if err != nil {
		return fmt.Errorf("failed to modify %s: %w", key, err)
	}

	writeErr := writeFile(s.ModifiedPath(s.CacheKey(key, params)), audio.EncodeWAV(modified))
	if writeErr != nil {
		return writeErr
	}

	s.log.Info(logFmtModifiedApplied, key.Letter, key.Length)

	return nil
}

func (s *Store) writeManifest(setDir string, params effects.Params, count int) error {
	data, err := toml.Marshal(Manifest{
		Hash:       ParamHash(params),
		PitchCents: params.PitchCents,
		Reverse:    params.Reverse,
		Speed:      params.Speed,
		Assets:     count,
	})
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	return writeFile(filepath.Join(setDir, manifestName), data)
}
