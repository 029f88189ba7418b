package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fitclub/internal/logger"
	"fitclub/internal/metrics"
)

const (
	defaultLease      = time.Minute
	defaultBackoff    = 2 * time.Second
	maxBackoff        = 10 * time.Minute
	defaultBatchSize  = 50
	defaultMaxAttempt = 8
)

type Handler func(ctx context.Context, ev Event) error

// Publisher forwards processed events to the message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

type Options struct {
	BatchSize    int
	MaxAttempts  int
	PollInterval time.Duration
	Lease        time.Duration
	BaseBackoff  time.Duration
}

type Dispatcher struct {
	repo      Repository
	handlers  map[EventType][]Handler
	publisher Publisher
	opts      Options
	now       func() time.Time
}

func NewDispatcher(repo Repository, publisher Publisher, opts Options) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempt
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Lease <= 0 {
		opts.Lease = defaultLease
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBackoff
	}

	return &Dispatcher{
		repo:      repo,
		handlers:  make(map[EventType][]Handler),
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// Register adds a handler for an event type. Handlers run in registration
// order; the first error stops the chain and schedules a retry.
func (d *Dispatcher) Register(eventType EventType, h Handler) {
	d.handlers[eventType] = append(d.handlers[eventType], h)
}

func (d *Dispatcher) Run(ctx context.Context) error {
	logger.Info("Outbox dispatcher started", "poll_interval", d.opts.PollInterval.String())

	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		for {
			n, err := d.ProcessBatch(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Outbox batch failed", "error", err)
				}
				break
			}
			if n < d.opts.BatchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			logger.Info("Outbox dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessBatch claims and handles one batch of due events and returns how
// many were claimed.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (int, error) {
	events, err := d.repo.ClaimDue(ctx, d.opts.BatchSize, d.opts.MaxAttempts, d.opts.Lease)
	if err != nil {
		return 0, err
	}

	for _, ev := range events {
		d.handle(ctx, ev)
	}

	return len(events), nil
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	for _, h := range d.handlers[ev.Type] {
		if err := h(ctx, ev); err != nil {
			d.fail(ctx, ev, err)
			return
		}
	}

	d.publish(ctx, ev)

	if err := d.repo.MarkProcessed(ctx, ev.ID); err != nil {
		logger.Error("Failed to mark outbox event processed", "event_id", ev.ID, "error", err)
		return
	}
	metrics.RecordOutboxEvent(string(ev.Type), "processed")
}

func (d *Dispatcher) fail(ctx context.Context, ev Event, cause error) {
	attempt := ev.Attempts + 1
	next := d.now().Add(d.backoff(attempt))

	if err := d.repo.MarkFailed(ctx, ev.ID, cause.Error(), next); err != nil {
		logger.Error("Failed to record outbox failure", "event_id", ev.ID, "error", err)
		return
	}

	if attempt >= d.opts.MaxAttempts {
		metrics.RecordOutboxEvent(string(ev.Type), "dead")
		logger.Error("Outbox event gave up",
			"event_id", ev.ID,
			"event_type", ev.Type,
			"attempts", attempt,
			"error", cause,
		)
		return
	}

	metrics.RecordOutboxEvent(string(ev.Type), "failed")
	logger.Warn("Outbox event failed, will retry",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"attempt", attempt,
		"next_attempt_at", next,
		"error", cause,
	)
}

// publish is best-effort: local handlers already ran, so a broker outage
// must not cause them to run again.
func (d *Dispatcher) publish(ctx context.Context, ev Event) {
	if d.publisher == nil {
		return
	}

	body, err := json.Marshal(Envelope{
		ID:          ev.ID,
		Type:        ev.Type,
		AggregateID: ev.AggregateID,
		Payload:     json.RawMessage(ev.Payload),
		OccurredAt:  ev.CreatedAt,
	})
	if err != nil {
		logger.Error("Failed to encode outbox envelope", "event_id", ev.ID, "error", err)
		return
	}

	if err := d.publisher.Publish(ctx, string(ev.Type), body); err != nil {
		metrics.RecordOutboxEvent(string(ev.Type), "publish_failed")
		logger.Error("Failed to publish outbox event", "event_id", ev.ID, "error", err)
	}
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.opts.BaseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}
