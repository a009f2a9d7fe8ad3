package events

import (
	"context"
	"log/slog"
	"time"

	"quizlink-service/internal/metrics"
	"quizlink-service/internal/workers"
)

type EventType string

const (
	EventTypeLinkCreated          EventType = "link.created"
	EventTypeStudentAdmitted      EventType = "student.admitted"
	EventTypeSubmissionRecorded   EventType = "submission.recorded"
	EventTypeSubmissionRejected   EventType = "submission.rejected"
	EventTypeAttemptAutoSubmitted EventType = "attempt.auto_submitted"
)

// Event is a fact about something that already happened.
type Event struct {
	Type EventType `json:"type"`
	// Subject identifies who the event is about: the admin for links, the student otherwise.
	Subject    string         `json:"subject"`
	OccurredAt time.Time      `json:"occurredAt"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Publisher delivers an event to one sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Dispatcher fans events out to its publishers in the background.
type Dispatcher struct {
	worker     *workers.Worker
	publishers []Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewDispatcher creates a Dispatcher. Background deliveries are tracked on worker.
func NewDispatcher(worker *workers.Worker, logger *slog.Logger, m *metrics.Metrics, publishers ...Publisher) *Dispatcher {
	return &Dispatcher{
		worker:     worker,
		publishers: publishers,
		logger:     logger,
		metrics:    m,
	}
}

// Publish schedules delivery and returns immediately. Delivery outlives the caller's context.
func (d *Dispatcher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	d.metrics.RecordEvent(string(event.Type))

	ctx = context.WithoutCancel(ctx)
	d.worker.Go(func() {
		for _, publisher := range d.publishers {
			if err := publisher.Publish(ctx, event); err != nil {
				d.logger.ErrorContext(ctx, "failed to publish event", "type", event.Type, "error", err)
			}
		}
	})
	return nil
}

// Wait blocks until every scheduled delivery finished.
func (d *Dispatcher) Wait() {
	d.worker.Wait()
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "event",
		"type", event.Type,
		"subject", event.Subject,
		"occurred_at", event.OccurredAt,
		"payload", event.Payload,
	)
	return nil
}
