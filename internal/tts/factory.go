package tts

import (
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/alphamix/internal/core"
)

// Supported providers.
const (
	ProviderEdge    = "edge"
	ProviderHTTP    = "http"
	ProviderCommand = "command"
)

const defaultTimeout = 60 * time.Second

var (
	// ErrUnknownProvider indicates an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown tts provider")
	// ErrNoURL indicates an HTTP provider without a service URL.
	ErrNoURL = errors.New("http tts provider requires a url")
)

// Options selects and configures a gateway.
type Options struct {
	Provider    string
	URL         string
	Voice       string
	BinaryPath  string
	Args        []string
	Temperature float64
	Timeout     time.Duration
}

// NewSynthesizer builds the gateway named by opts.Provider. An empty
// provider selects Edge TTS.
func NewSynthesizer(opts Options, log *logger.Logger) (core.SpeechSynthesizer, error) {
	switch opts.Provider {
	case "", ProviderEdge:
		return NewEdgeSynthesizer(opts.Voice, log), nil
	case ProviderHTTP:
		if opts.URL == "" {
			return nil, ErrNoURL
		}

		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}

		return NewHTTPClient(opts.URL, timeout).
			WithVoice(opts.Voice).
			WithTemperature(opts.Temperature), nil
	case ProviderCommand:
		synthesizer, err := NewCommandSynthesizer(opts.BinaryPath, opts.Args, log)
		if err != nil {
			return nil, err
		}

		return synthesizer, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}
