package tts

import (
	"context"
	"fmt"
	"strings"

	"github.com/book-expert/logger"
	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"github.com/book-expert/alphamix/internal/core"
)

const defaultEdgeVoice = "en-US-AriaNeural"

// edgeVoices maps a language code to a neural voice.
var edgeVoices = map[string]string{
	"en": defaultEdgeVoice,
	"es": "es-ES-ElviraNeural",
	"fr": "fr-FR-DeniseNeural",
	"de": "de-DE-KatjaNeural",
	"it": "it-IT-ElsaNeural",
	"pt": "pt-BR-FranciscaNeural",
	"nl": "nl-NL-ColetteNeural",
	"ja": "ja-JP-NanamiNeural",
	"zh": "zh-CN-XiaoxiaoNeural",
	"ko": "ko-KR-SunHiNeural",
	"ru": "ru-RU-SvetlanaNeural",
}

// EdgeSynthesizer synthesizes MP3 clips with Microsoft Edge's online TTS.
type EdgeSynthesizer struct {
	voice string
	log   *logger.Logger
}

// NewEdgeSynthesizer creates an Edge gateway. An empty voice selects one from
// the language code of each request.
func NewEdgeSynthesizer(voice string, log *logger.Logger) *EdgeSynthesizer {
	return &EdgeSynthesizer{voice: voice, log: log}
}

// VoiceFor returns the Edge voice used for languageCode. Region suffixes
// ("en-GB") fall back to the base language; unknown languages use the
// English voice.
func VoiceFor(languageCode string) string {
	code := strings.ToLower(strings.TrimSpace(languageCode))
	if voice, ok := edgeVoices[code]; ok {
		return voice
	}

	base, _, _ := strings.Cut(code, "-")
	if voice, ok := edgeVoices[base]; ok {
		return voice
	}

	return defaultEdgeVoice
}

// Synthesize implements core.SpeechSynthesizer.
func (e *EdgeSynthesizer) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, ErrEmptyText)
	}

	ctxErr := ctx.Err()
	if ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, ctxErr)
	}

	voice := e.voice
	if voice == "" {
		voice = VoiceFor(languageCode)
	}

	communicate, err := edge_tts.New(voice)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Edge TTS communicator: %w", core.ErrSynthesis, err)
	}
	defer communicate.Close()

	audioData, err := communicate.Output(text)
	if err != nil {
		return nil, fmt.Errorf("%w: Edge TTS synthesis with voice %s failed: %w", core.ErrSynthesis, voice, err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, ErrEmptyAudio)
	}

	if e.log != nil {
		e.log.Info("Edge TTS synthesized %d bytes with voice %s.", len(audioData), voice)
	}

	return audioData, nil
}
