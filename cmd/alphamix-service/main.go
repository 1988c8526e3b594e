// main package for the alphamix-service
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/alphamix/internal/assets"
	"github.com/book-expert/alphamix/internal/config"
	"github.com/book-expert/alphamix/internal/effects"
	"github.com/book-expert/alphamix/internal/objectstore"
	"github.com/book-expert/alphamix/internal/paths"
	"github.com/book-expert/alphamix/internal/pipeline"
	"github.com/book-expert/alphamix/internal/tts"
	"github.com/book-expert/alphamix/internal/worker"
)

const (
	bootstrapLogFileName = "alphamix-service-bootstrap.log"
	logFileName          = "alphamix-service.log"
	logsDirName          = "logs"
	natsClientName       = "alphamix-service"
)

var errNilConfig = errors.New("configuration is required")

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger %s: %w", fileName, err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() { _ = bootstrapLog.Close() }()

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	finalLog, err := setupLogger(paths.Resolve(cfg.Paths.BaseLogsDir, logsDirName), logFileName)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, finalLog)
}

// serve connects to NATS and runs the worker until ctx is done.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg == nil {
		return errNilConfig
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name(natsClientName))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	objectStore, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return err
	}

	synthesizer, err := tts.NewSynthesizer(cfg.SynthesizerOptions(), log)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	seed := rand.Uint64()

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

	runner := pipeline.NewRunner(store, cfg.Paths.OutputDir, log)

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.SynthesisRequestSubject,
		cfg.NATS.QueueGroup,
		objectStore,
		runner,
		cfg.Params(),
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	log.System("alphamix-service successfully initialized. Listening for jobs on subject: %s",
		cfg.NATS.SynthesisRequestSubject)

	return natsWorker.Run(ctx)
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
