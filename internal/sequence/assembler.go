// Package sequence turns a phrase into one audio track by looking up the
// modified phoneme of each word's first letter and joining the faded clips
// with crossfades.
package sequence

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/book-expert/alphamix/internal/audio"
	"github.com/book-expert/alphamix/internal/core"
)

// Lookup returns the modified buffer of a letter key.
type Lookup func(key core.LetterKey) (audio.Buffer, error)

// Options shapes the assembly.
type Options struct {
	// Alphabet lists the recognized first letters. Empty means a..z.
	Alphabet string
	// ShortVersionLength is also the word length from which the long
	// rendering is used.
	ShortVersionLength int
	FadeMs             int
	CrossfadeMs        int
}

// Segment is the faded clip chosen for one word.
type Segment struct {
	Key    core.LetterKey
	Word   string
	Buffer audio.Buffer
}

// Track is the assembled output.
type Track struct {
	Segments []Segment
	Audio    audio.Buffer
}

// Empty reports whether no word produced a segment.
func (t *Track) Empty() bool {
	return len(t.Segments) == 0
}

// Duration is the playing time of the joined audio.
func (t *Track) Duration() time.Duration {
	if t.Empty() {
		return 0
	}

	return t.Audio.Duration()
}

// KeyFor resolves the letter key of word. ok is false when the word is
// empty or its first character, lower-cased, is not in alphabet.
func KeyFor(word, alphabet string, shortVersionLength int) (core.LetterKey, bool) {
	first, size := utf8.DecodeRuneInString(word)
	if size == 0 {
		return core.LetterKey{}, false
	}

	first = unicode.ToLower(first)
	if first >= utf8.RuneSelf || strings.IndexByte(alphabet, byte(first)) < 0 {
		return core.LetterKey{}, false
	}

	return core.LetterKey{
		Letter: byte(first),
		Length: core.SelectLength(word, shortVersionLength),
	}, true
}

// Assemble builds the track of phrase. Words are split on whitespace and
// words without a recognized first letter are skipped. Each clip gets a
// fade-in and then a fade-out of FadeMs; on clips shorter than twice the fade
// the two ramps overlap. Clips are joined in phrase order with a crossfade of
// CrossfadeMs. A phrase without recognized words yields an empty track.
func Assemble(phrase string, lookup Lookup, opts Options) (*Track, error) {
	alphabet := opts.Alphabet
	if alphabet == "" {
		alphabet = core.Alphabet
	}

	track := &Track{}

	for _, word := range strings.Fields(phrase) {
		key, ok := KeyFor(word, alphabet, opts.ShortVersionLength)
		if !ok {
			continue
		}

		buf, err := lookup(key)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s for %q: %w", key, word, err)
		}

		faded, err := audio.FadeIn(buf, opts.FadeMs)
		if err != nil {
			return nil, err
		}

		faded, err = audio.FadeOut(faded, opts.FadeMs)
		if err != nil {
			return nil, err
		}

		if track.Empty() {
			track.Audio = faded
		} else {
			joined, appendErr := audio.Append(track.Audio, faded, opts.CrossfadeMs)
			if appendErr != nil {
				return nil, fmt.Errorf("failed to join %q: %w", word, appendErr)
			}

			track.Audio = joined
		}

		track.Segments = append(track.Segments, Segment{Key: key, Word: word, Buffer: faded})
	}

	return track, nil
}
