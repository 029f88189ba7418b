package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"fitclub/internal/db"
)

var (
	ErrStatsNotFound = errors.New("stats not found")
	// ErrAlreadyApplied is returned by Apply when the event was counted by
	// an earlier delivery.
	ErrAlreadyApplied = errors.New("event already applied")
)

type Repository interface {
	Get(ctx context.Context, userID int) (*UserStats, error)
	// Apply records eventID, locks the user's row and stores fn's result in
	// one transaction. A missing row is created zeroed first.
	Apply(ctx context.Context, eventID int64, userID int, fn func(UserStats) UserStats) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const selectStats = `
	SELECT user_id, total_bookings, completed_workouts, current_streak_days,
	       best_streak_days, total_hours_trained, last_workout_date, updated_at
	FROM user_stats
	WHERE user_id = $1
`

func (r *repository) Get(ctx context.Context, userID int) (*UserStats, error) {
	var s UserStats
	err := r.db.GetContext(ctx, &s, selectStats, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatsNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) Apply(ctx context.Context, eventID int64, userID int, fn func(UserStats) UserStats) error {
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO user_stats_events (event_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (event_id) DO NOTHING
		`, eventID, userID)
		if err != nil {
			return fmt.Errorf("record event %d: %w", eventID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyApplied
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_stats (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO NOTHING
		`, userID); err != nil {
			return fmt.Errorf("ensure stats row: %w", err)
		}

		var current UserStats
		if err := tx.GetContext(ctx, &current, selectStats+" FOR UPDATE", userID); err != nil {
			return fmt.Errorf("lock stats row: %w", err)
		}

		next := fn(current)
		_, err = tx.ExecContext(ctx, `
			UPDATE user_stats SET
				total_bookings = $2,
				completed_workouts = $3,
				current_streak_days = $4,
				best_streak_days = $5,
				total_hours_trained = $6,
				last_workout_date = $7,
				updated_at = $8
			WHERE user_id = $1
		`,
			userID,
			next.TotalBookings,
			next.CompletedWorkouts,
			next.CurrentStreakDays,
			next.BestStreakDays,
			next.TotalHoursTrained,
			next.LastWorkoutDate,
			next.UpdatedAt,
		)
		return err
	})
}
