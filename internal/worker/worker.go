// Package worker provides a NATS worker that answers speech requests over request/reply.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/api/handlers"
	"github.com/book-expert/speech-service/internal/metrics"
	"github.com/book-expert/speech-service/internal/speech"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const handleMessageTimeout = 5 * time.Minute

// Reply headers.
const (
	HeaderContentType = "Content-Type"
	HeaderJobID       = "Speech-Job-Id"
	HeaderStatus      = "Speech-Status"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

var (
	// ErrSubjectEmpty indicates that the worker was given no subject to listen on.
	ErrSubjectEmpty = errors.New("subject cannot be empty")
	// ErrAlreadyStarted indicates that Start was called twice.
	ErrAlreadyStarted = errors.New("worker already started")
	// ErrNoReplySubject indicates a message that cannot be answered.
	ErrNoReplySubject = errors.New("message has no reply subject")
)

// Synthesizer is the pipeline the worker delegates to.
type Synthesizer interface {
	Synthesize(ctx context.Context, body []byte) (*speech.Result, error)
}

// NatsWorker listens for speech requests on a NATS subject and replies with WAV audio.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	queueGroup     string
	synthesizer    Synthesizer
	metrics        *metrics.Metrics
	log            *logger.Logger
	subscription   *nats.Subscription
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	queueGroup string,
	synthesizer Synthesizer,
	collectors *metrics.Metrics,
	log *logger.Logger,
) (*NatsWorker, error) {
	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		queueGroup:     queueGroup,
		synthesizer:    synthesizer,
		metrics:        collectors,
		log:            log,
		subscription:   nil,
	}, nil
}

// Start subscribes to the subject. The subscription is registered with the
// server before Start returns.
func (w *NatsWorker) Start() error {
	if w.subscription != nil {
		return ErrAlreadyStarted
	}

	sub, err := w.natsConnection.QueueSubscribe(w.subject, w.queueGroup, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	err = w.natsConnection.Flush()
	if err != nil {
		_ = sub.Unsubscribe()

		return fmt.Errorf("failed to flush subscription to subject %s: %w", w.subject, err)
	}

	w.subscription = sub
	w.log.System("Listening for speech requests on subject: %s (queue %q)", w.subject, w.queueGroup)

	return nil
}

// Stop drains the subscription, letting in-flight requests finish.
func (w *NatsWorker) Stop() error {
	if w.subscription == nil {
		return nil
	}

	drainErr := w.subscription.Drain()
	w.subscription = nil

	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

// Run starts the worker and blocks until ctx is done.
func (w *NatsWorker) Run(ctx context.Context) error {
	err := w.Start()
	if err != nil {
		return err
	}

	<-ctx.Done()

	return w.Stop()
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	jobID := uuid.NewString()

	if msg.Reply == "" {
		w.log.Error("Dropping speech job %s: %v", jobID, ErrNoReplySubject)

		return
	}

	result, err := w.synthesizer.Synthesize(ctx, msg.Data)
	w.metrics.RecordRequest(metrics.TransportNATS, err)

	reply := buildReply(msg.Reply, jobID, result, err)
	if err != nil {
		w.log.Error("Speech job %s failed: %v", jobID, err)
	}

	respondErr := msg.RespondMsg(reply)
	if respondErr != nil {
		w.log.Error("Failed to publish reply for speech job %s: %v", jobID, respondErr)

		return
	}

	if err == nil {
		w.log.Info("Speech job %s replied with %d bytes", jobID, len(result.WAV))
	}
}

func buildReply(subject, jobID string, result *speech.Result, err error) *nats.Msg {
	reply := nats.NewMsg(subject)
	reply.Header.Set(HeaderJobID, jobID)

	if err != nil {
		reply.Header.Set(HeaderContentType, contentTypeJSON)
		reply.Header.Set(HeaderStatus, strconv.Itoa(handlers.StatusFor(err)))
		reply.Data = marshalError(err)

		return reply
	}

	reply.Header.Set(HeaderContentType, contentTypeWAV)
	reply.Header.Set(HeaderStatus, "200")
	reply.Data = result.WAV

	return reply
}

func marshalError(err error) []byte {
	data, marshalErr := json.Marshal(map[string]string{"error": handlers.ErrorMessage(err)})
	if marshalErr != nil {
		return []byte(`{"error":"internal error"}`)
	}

	return data
}
