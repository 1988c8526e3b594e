// Package core defines the domain types, collaborator interfaces and error
// taxonomy shared by the alphamix pipeline.
package core

import (
	"context"
	"errors"
)

// Fatal pipeline conditions. Callers match them with errors.Is.
var (
	// ErrSynthesis indicates that the speech synthesis gateway was unreachable or
	// rejected the input.
	ErrSynthesis = errors.New("speech synthesis failed")
	// ErrMissingAsset indicates that a cached asset required by a later stage does
	// not exist.
	ErrMissingAsset = errors.New("missing audio asset")
)

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// SpeechSynthesizer turns text into encoded audio bytes (MP3 or WAV).
// Implementations wrap every failure with ErrSynthesis.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)
}
