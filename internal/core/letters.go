package core

import (
	"fmt"
	"unicode/utf8"
)

// Alphabet is the set of letters that own a phoneme sample.
const Alphabet = "abcdefghijklmnopqrstuvwxyz"

// LengthClass selects the short or long rendering of a letter.
type LengthClass string

// Supported length classes.
const (
	Short LengthClass = "short"
	Long  LengthClass = "long"
)

// LengthClasses lists the classes in generation order.
var LengthClasses = []LengthClass{Short, Long}

// LetterKey identifies one cacheable unit.
type LetterKey struct {
	Letter byte
	Length LengthClass
}

// String renders the key as "{letter}_{version}".
func (k LetterKey) String() string {
	return fmt.Sprintf("%c_%s", k.Letter, k.Length)
}

// RawName is the file name of the raw asset with the given extension.
func (k LetterKey) RawName(ext string) string {
	return fmt.Sprintf("%c_%s.%s", k.Letter, k.Length, ext)
}

// ModifiedName is the file name of the modified asset with the given extension.
func (k LetterKey) ModifiedName(ext string) string {
	return fmt.Sprintf("%c_modified_%s.%s", k.Letter, k.Length, ext)
}

// AllKeys returns every (letter, length class) pair of alphabet, letter-major.
func AllKeys(alphabet string) []LetterKey {
	keys := make([]LetterKey, 0, len(alphabet)*len(LengthClasses))

	for i := range len(alphabet) {
		for _, class := range LengthClasses {
			keys = append(keys, LetterKey{Letter: alphabet[i], Length: class})
		}
	}

	return keys
}

// SelectLength picks the length class for a word. The threshold is the
// short-version length: words at least that long use the long rendering.
func SelectLength(word string, shortVersionLength int) LengthClass {
	if utf8.RuneCountInString(word) >= shortVersionLength {
		return Long
	}

	return Short
}

// CacheKey is a LetterKey qualified by the fingerprint of the parameters its
// modified asset was built with. ParamHash is empty in legacy cache mode.
type CacheKey struct {
	LetterKey

	ParamHash string
}
