package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	ClaimDue(ctx context.Context, limit, maxAttempts int, lease time.Duration) ([]Event, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string, nextAttemptAt time.Time) error
}

// Enqueue records an event using the caller's transaction so the event
// commits or rolls back together with the change that produced it.
func Enqueue(ctx context.Context, exec sqlx.ExecerContext, eventType EventType, aggregateID int, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox_events (event_type, aggregate_id, payload)
		VALUES ($1, $2, $3)
	`, eventType, aggregateID, data)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}

	return nil
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// ClaimDue leases up to limit pending events by pushing their next attempt
// past the lease, so concurrent dispatchers skip them.
func (r *repository) ClaimDue(ctx context.Context, limit, maxAttempts int, lease time.Duration) ([]Event, error) {
	query := `
		UPDATE outbox_events
		SET next_attempt_at = NOW() + make_interval(secs => $3)
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE processed_at IS NULL
			  AND next_attempt_at <= NOW()
			  AND attempts < $2
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_type, aggregate_id, payload, attempts, last_error, created_at
	`

	var events []Event
	err := r.db.SelectContext(ctx, &events, query, limit, maxAttempts, lease.Seconds())
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (r *repository) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET processed_at = NOW(), last_error = NULL
		WHERE id = $1
	`, id)
	return err
}

func (r *repository) MarkFailed(ctx context.Context, id int64, reason string, nextAttemptAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3
		WHERE id = $1
	`, id, reason, nextAttemptAt)
	return err
}
