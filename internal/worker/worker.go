// Package worker provides a NATS worker that renders phrases on request.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/alphamix/internal/core"
	"github.com/book-expert/alphamix/internal/pipeline"
	"github.com/book-expert/alphamix/internal/sequence"
)

const (
	handleMessageTimeout = 5 * time.Minute
	audioKeyExt          = ".wav"
)

// Log formats.
const (
	logFmtSubscribed   = "Listening for synthesis requests on %s (queue %q)."
	logFmtParseFailed  = "Failed to parse and validate event: %v"
	logFmtJobFailed    = "Failed to render phrase for workflow %s: %v"
	logFmtReplyFailed  = "Failed to publish reply event for workflow %s: %v"
	logFmtRendered     = "Rendered %d segments (%s) for workflow %s as %s."
	logFmtEmptyPhrase  = "Phrase %s of workflow %s has no recognized words, nothing uploaded."
	logFmtNoReplyInbox = "Request for workflow %s has no reply subject, result %q not announced."
)

var (
	// ErrTextKeyEmpty indicates a request without a phrase key.
	ErrTextKeyEmpty = errors.New("text key cannot be empty")
	// ErrInvalidWorker indicates a worker built without a collaborator.
	ErrInvalidWorker = errors.New("worker requires a connection, store, renderer and logger")
)

// Renderer renders a phrase to WAV bytes. *pipeline.Runner satisfies it.
type Renderer interface {
	Render(ctx context.Context, phrase string, params pipeline.Params) (*sequence.Track, []byte, error)
}

// NatsWorker listens for synthesis requests on a NATS subject. Each request
// is an events.TextProcessedEvent whose TextKey names the phrase in the object
// store; the reply is an events.AudioChunkCreatedEvent carrying the key of
// the uploaded WAV, or an empty key when the phrase produced no audio.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	queueGroup     string
	store          core.ObjectStore
	renderer       Renderer
	params         pipeline.Params
	log            *logger.Logger
}

// NewNatsWorker creates a new worker. An empty queueGroup subscribes without
// load balancing.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	queueGroup string,
	store core.ObjectStore,
	renderer Renderer,
	params pipeline.Params,
	log *logger.Logger,
) (*NatsWorker, error) {
	if natsConnection == nil || store == nil || renderer == nil || log == nil {
		return nil, ErrInvalidWorker
	}

	validationErr := params.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		queueGroup:     queueGroup,
		store:          store,
		renderer:       renderer,
		params:         params,
		log:            log,
	}, nil
}

// Run subscribes and serves requests until ctx is done, then drains the
// subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	var (
		sub *nats.Subscription
		err error
	)

	if w.queueGroup == "" {
		sub, err = w.natsConnection.Subscribe(w.subject, w.handleMessage)
	} else {
		sub, err = w.natsConnection.QueueSubscribe(w.subject, w.queueGroup, w.handleMessage)
	}

	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info(logFmtSubscribed, w.subject, w.queueGroup)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error(logFmtParseFailed, err)

		return
	}

	audioKey, processErr := w.processJob(ctx, event)
	if processErr != nil {
		w.log.Error(logFmtJobFailed, event.Header.WorkflowID, processErr)

		return
	}

	if msg.Reply == "" {
		w.log.Warn(logFmtNoReplyInbox, event.Header.WorkflowID, audioKey)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error(logFmtReplyFailed, event.Header.WorkflowID, err)
	}
}

// processJob downloads the phrase, renders it and uploads the WAV. It returns
// an empty key for phrases without recognized words.
func (w *NatsWorker) processJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	phrase, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download phrase for key '%s': %w", event.TextKey, err)
	}

	track, audioData, err := w.renderer.Render(ctx, string(phrase), w.params)
	if err != nil {
		return "", fmt.Errorf("failed to render phrase '%s': %w", event.TextKey, err)
	}

	if track == nil || track.Empty() {
		w.log.Info(logFmtEmptyPhrase, event.TextKey, event.Header.WorkflowID)

		return "", nil
	}

	audioKey := uuid.NewString() + audioKeyExt

	err = w.store.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	w.log.Info(logFmtRendered, len(track.Segments), track.Duration(), event.Header.WorkflowID, audioKey)

	return audioKey, nil
}

// publishReplyEvent marshals and responds with the AudioChunkCreatedEvent.
func publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseAndValidateEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.TextKey == "" {
		return nil, ErrTextKeyEmpty
	}

	return &event, nil
}
