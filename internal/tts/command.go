package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/alphamix/internal/core"
)

// Placeholders substituted in command arguments.
const (
	PlaceholderText     = "{text}"
	PlaceholderLanguage = "{language}"
	PlaceholderOutput   = "{output}"
)

// ErrNoBinary indicates a command gateway without a binary path.
var ErrNoBinary = errors.New("command synthesizer requires a binary path")

// DefaultCommandArgs is the argument template used when none is configured.
var DefaultCommandArgs = []string{
	"--text", PlaceholderText,
	"--language", PlaceholderLanguage,
	"--output", PlaceholderOutput,
}

// CommandSynthesizer runs a local TTS binary that exports WAV to a file.
type CommandSynthesizer struct {
	binaryPath string
	args       []string
	log        *logger.Logger
}

// NewCommandSynthesizer creates a command gateway. args may reference the
// {text}, {language} and {output} placeholders; nil selects DefaultCommandArgs.
func NewCommandSynthesizer(binaryPath string, args []string, log *logger.Logger) (*CommandSynthesizer, error) {
	if binaryPath == "" {
		return nil, ErrNoBinary
	}

	if len(args) == 0 {
		args = DefaultCommandArgs
	}

	return &CommandSynthesizer{
		binaryPath: binaryPath,
		args:       args,
		log:        log,
	}, nil
}

// Synthesize implements core.SpeechSynthesizer.
func (p *CommandSynthesizer) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, ErrEmptyText)
	}

	tempFile, err := os.CreateTemp("", "alphamix-tts-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for tts output: %w", err)
	}

	_ = tempFile.Close()

	defer func() {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil && p.log != nil {
			p.log.Warn("Failed to remove temp file '%s': %v", tempFile.Name(), removeErr)
		}
	}()

	replacer := strings.NewReplacer(
		PlaceholderText, text,
		PlaceholderLanguage, languageCode,
		PlaceholderOutput, tempFile.Name(),
	)

	args := make([]string, len(p.args))
	for i, arg := range p.args {
		args[i] = replacer.Replace(arg)
	}

	// #nosec G204 -- the binary and argument template come from the operator's config
	cmd := exec.CommandContext(ctx, p.binaryPath, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %s execution failed: %w - output: %s",
			core.ErrSynthesis, p.binaryPath, err, string(output))
	}

	audioData, err := os.ReadFile(tempFile.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio data from temp file: %w", core.ErrSynthesis, err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrSynthesis, p.binaryPath, ErrEmptyAudio)
	}

	return audioData, nil
}
