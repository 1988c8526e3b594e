package assets

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/book-expert/alphamix/internal/audio"
	"github.com/book-expert/alphamix/internal/core"
	"github.com/book-expert/alphamix/internal/paths"
)

type rawJob struct {
	key  core.LetterKey
	seed string
}

// EnsureRaw synthesizes the raw clip of every (letter, length class) when the
// raw directory does not exist yet. Short clips are seeded with shortLen
// random letters, long clips with longLen.
//
// In legacy mode an existing raw directory skips the whole step, even when
// individual files are missing. In fingerprint mode missing files are
// backfilled.
func (s *Store) EnsureRaw(ctx context.Context, shortLen, longLen int) error {
	exists, err := paths.Exists(s.opts.RawDir)
	if err != nil {
		return err
	}

	if exists && s.opts.Mode == ModeLegacy {
		s.log.Info(logFmtRawSkipped, s.opts.RawDir)

		return nil
	}

	dirErr := paths.EnsureDir(s.opts.RawDir)
	if dirErr != nil {
		return dirErr
	}

	// Seeds are drawn for every key, in order, before any synthesis so that a
	// given random source always maps the same seed to the same key.
	var jobs []rawJob

	for _, key := range core.AllKeys(s.opts.Alphabet) {
		length := shortLen
		if key.Length == core.Long {
			length = longLen
		}

		job := rawJob{key: key, seed: s.seedText(length)}

		_, found, lookupErr := s.rawPath(key)
		if lookupErr != nil {
			return lookupErr
		}

		if !found {
			jobs = append(jobs, job)
		}
	}

	if len(jobs) == 0 {
		s.log.Info(logFmtRawSkipped, s.opts.RawDir)

		return nil
	}

	s.log.Info(logFmtRawGenerating, len(jobs), s.opts.Language)

	return run(ctx, s.opts.Workers, jobs, s.generateRaw)
}

func (s *Store) seedText(length int) string {
	var builder strings.Builder
	builder.Grow(length)

	for range length {
		builder.WriteByte(s.opts.Alphabet[s.random.IntN(len(s.opts.Alphabet))])
	}

	return builder.String()
}

func (s *Store) generateRaw(ctx context.Context, job rawJob) error {
	data, err := s.synthesizer.Synthesize(ctx, job.seed, s.opts.Language)
	if err != nil {
		if errors.Is(err, core.ErrSynthesis) {
			return fmt.Errorf("raw asset %s: %w", job.key, err)
		}

		return fmt.Errorf("%w: raw asset %s: %w", core.ErrSynthesis, job.key, err)
	}

	format := audio.SniffFormat(data)
	if format == audio.FORMAT_UNKNOWN {
		return fmt.Errorf("%w: raw asset %s: gateway returned %d bytes of unrecognized audio",
			core.ErrSynthesis, job.key, len(data))
	}

	writeErr := writeFile(filepath.Join(s.opts.RawDir, job.key.RawName(string(format))), data)
	if writeErr != nil {
		return writeErr
	}

	s.log.Info(logFmtRawGenerated, job.key.Letter, job.key.Length, paths.FormatFileSize(int64(len(data))))

	return nil
}
