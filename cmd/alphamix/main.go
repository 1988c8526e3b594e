// main package for the alphamix command line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/alphamix/internal/assets"
	"github.com/book-expert/alphamix/internal/config"
	"github.com/book-expert/alphamix/internal/core"
	"github.com/book-expert/alphamix/internal/effects"
	"github.com/book-expert/alphamix/internal/paths"
	"github.com/book-expert/alphamix/internal/pipeline"
	"github.com/book-expert/alphamix/internal/tts"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInvalid     = 2
	exitSynthesis   = 3
	exitMissingFile = 4
)

// Log file names and directories.
const (
	bootstrapLogFileName = "alphamix-bootstrap.log"
	logFileName          = "alphamix.log"
	logsDirName          = "logs"
	healthCheckTimeout   = 10 * time.Second
)

// Log messages.
const (
	logBootstrapCreated = "Bootstrap logger created."
	logConfigLoaded     = "Configuration loaded from %s."
	logConfigDefaults   = "No project configuration found (%v), using defaults."
	logUseLongVersion   = "--use_long_version=%d has no effect; the long version is used from %d letters."
	logRunFinished      = "Run finished: %d segments."
	logServiceHealthy   = "TTS service at %s is healthy."
	errFmtConfigFailed  = "failed to load configuration: %w"
	errFmtLoggerFailed  = "failed to create logger: %w"
	errFmtOutputDir     = "failed to resolve output directory: %w"
	errHealthNeedsHTTP  = "--health requires the http tts provider"
	projectConfigName   = "project.toml"
)

func main() {
	err := run(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "alphamix: %v\n", err)
	}

	os.Exit(exitCode(err))
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, core.ErrSynthesis):
		return exitSynthesis
	case errors.Is(err, core.ErrMissingAsset):
		return exitMissingFile
	case errors.Is(err, errUsage),
		errors.Is(err, errNoUserString),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, pipeline.ErrInvalidParams),
		errors.Is(err, effects.ErrInvalidSpeed),
		errors.Is(err, effects.ErrInvalidPitch):
		return exitInvalid
	default:
		return exitFailure
	}
}

func run(program string, args []string, output io.Writer) error {
	flags, err := parseFlags(program, args, output)
	if err != nil {
		return err
	}

	bootstrapLog, err := logger.New(os.TempDir(), bootstrapLogFileName)
	if err != nil {
		return fmt.Errorf(errFmtLoggerFailed, err)
	}

	defer func() { _ = bootstrapLog.Close() }()

	bootstrapLog.Info(logBootstrapCreated)

	cfg, err := loadConfig(flags, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return err
	}

	finalLog, err := logger.New(paths.Resolve(cfg.Paths.BaseLogsDir, logsDirName), logFileName)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf(errFmtLoggerFailed, err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.health {
		return checkHealth(ctx, cfg, finalLog)
	}

	runErr := render(ctx, flags, cfg, finalLog)
	if runErr != nil {
		finalLog.Error("alphamix failed: %v", runErr)
	}

	return runErr
}

// loadConfig reads the explicit --config file, or the project configuration
// when one can be found, and applies the command line on top.
func loadConfig(flags appFlags, log *logger.Logger) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if flags.config != "" {
		cfg, err = config.LoadFile(flags.config)
		if err != nil {
			return nil, fmt.Errorf(errFmtConfigFailed, err)
		}

		log.Info(logConfigLoaded, flags.config)
	} else {
		cfg, err = config.Load(log)
		if err != nil {
			if errors.Is(err, config.ErrInvalidConfig) {
				return nil, fmt.Errorf(errFmtConfigFailed, err)
			}

			log.Warn(logConfigDefaults, err)

			defaults := config.Default()
			cfg = &defaults
		} else {
			log.Info(logConfigLoaded, projectConfigName)
		}
	}

	flags.apply(cfg)

	validationErr := cfg.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	return cfg, nil
}

func render(ctx context.Context, flags appFlags, cfg *config.Config, log *logger.Logger) error {
	synthesizer, err := tts.NewSynthesizer(cfg.SynthesizerOptions(), log)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	seed := flags.seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	store, err := assets.New(
		cfg.StoreOptions(),
		synthesizer,
		effects.Modifier{},
		rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	outputDir := cfg.Paths.OutputDir
	if outputDir == "" {
		outputDir, err = paths.ExecutableDir()
		if err != nil {
			return fmt.Errorf(errFmtOutputDir, err)
		}
	}

	params := cfg.Params()
	if flags.set[flagUseLongVersion] {
		log.Warn(logUseLongVersion, params.UseLongVersion, params.ShortVersionLength)
	}

	result, err := pipeline.NewRunner(store, outputDir, log).Run(ctx, flags.userString, params)
	if err != nil {
		return err
	}

	log.Info(logRunFinished, len(result.Track.Segments))

	return nil
}

func checkHealth(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.TTS.Provider != tts.ProviderHTTP {
		return fmt.Errorf("%w: %s", config.ErrInvalidConfig, errHealthNeedsHTTP)
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	err := tts.NewHTTPClient(cfg.TTS.URL, healthCheckTimeout).HealthCheck(ctx)
	if err != nil {
		log.Error("Health check failed: %v", err)

		return fmt.Errorf("%w: %w", core.ErrSynthesis, err)
	}

	log.Info(logServiceHealthy, cfg.TTS.URL)

	return nil
}
