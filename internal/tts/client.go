// Package tts provides the speech synthesis gateways that produce the raw
// per-letter clips: Microsoft Edge TTS, a standalone HTTP TTS service and a
// local command-line synthesizer.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/book-expert/alphamix/internal/core"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
	contentTypeXWAV   = "audio/x-wav"
)

// Default values.
const (
	defaultTemperature = 0.75
	defaultLanguage    = "en"
)

// Error messages.
const (
	errUnexpectedContentType   = "unexpected content type: expected audio/wav, got %q"
	errFmtServiceErrorWithCode = "TTS service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "TTS service returned non-OK status: %s, body: %s"
)

var (
	// ErrEmptyText indicates a synthesis request without text.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrEmptyAudio indicates a gateway that answered without audio.
	ErrEmptyAudio = errors.New("received empty audio data")
)

// HTTPClient talks to a standalone TTS HTTP service.
type HTTPClient struct {
	httpClient  *http.Client
	baseURL     string
	speakerRef  string
	temperature float64
}

// TTSRequest is the JSON payload of a generation request.
type TTSRequest struct {
	Text string `json:"text"`

	// SpeakerRefPath optionally names a server-side speaker reference file.
	SpeakerRefPath string `json:"speaker_ref_path,omitempty"`

	// Language is the target language code ("en", "es", ...).
	Language string `json:"language"`

	// Temperature ranges from 0.0 (deterministic) to 2.0.
	Temperature float64 `json:"temperature"`
}

// TTSErrorResponse is the structured error body of the service.
type TTSErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPClient creates a client for the service at baseURL
// (e.g. "http://localhost:8000"). The timeout applies to every request.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:     baseURL,
		temperature: defaultTemperature,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithVoice sets the speaker reference sent with every Synthesize call.
func (c *HTTPClient) WithVoice(speakerRef string) *HTTPClient {
	c.speakerRef = speakerRef

	return c
}

// WithTemperature sets the temperature sent with every Synthesize call.
// Non-positive values keep the default.
func (c *HTTPClient) WithTemperature(temperature float64) *HTTPClient {
	if temperature > 0 {
		c.temperature = temperature
	}

	return c
}

// Synthesize implements core.SpeechSynthesizer. Every failure wraps
// core.ErrSynthesis.
func (c *HTTPClient) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	audioData, err := c.GenerateSpeech(ctx, TTSRequest{
		Text:           text,
		SpeakerRefPath: c.speakerRef,
		Language:       languageCode,
		Temperature:    c.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, err)
	}

	return audioData, nil
}

// GenerateSpeech sends a generation request and returns the WAV bytes.
func (c *HTTPClient) GenerateSpeech(ctx context.Context, req TTSRequest) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}

	if req.Temperature == 0 {
		req.Temperature = defaultTemperature
	}

	if req.Language == "" {
		req.Language = defaultLanguage
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiGenerateSpeech,
		bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to TTS service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)

	mediaType, _, parseErr := mime.ParseMediaType(contentType)
	if parseErr != nil || (mediaType != contentTypeWAV && mediaType != contentTypeXWAV) {
		return nil, fmt.Errorf(errUnexpectedContentType, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// HealthCheck reports an error when the service is unreachable or unhealthy.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes the structured error body, falling back to the
// raw body.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errorResp TTSErrorResponse

	err := json.Unmarshal(body, &errorResp)
	if err == nil && errorResp.Detail != "" {
		return fmt.Errorf(errFmtServiceErrorWithCode, resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	return fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, string(body))
}
