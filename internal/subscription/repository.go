package subscription

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"fitclub/internal/db"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNoActiveSubscription = errors.New("no active subscription")
)

type Repository interface {
	// Create cancels the user's active subscriptions and inserts a new one
	// in a single transaction.
	Create(ctx context.Context, userID int, plan Plan, start, end time.Time) (*Subscription, error)
	ListByUser(ctx context.Context, userID int) ([]Subscription, error)
	ListAll(ctx context.Context, limit, offset int) ([]Subscription, int, error)
	Cancel(ctx context.Context, userID, subscriptionID int) error
	ActiveTier(ctx context.Context, userID int, at time.Time) (Tier, error)
	CountBookedBetween(ctx context.Context, userID int, from, to time.Time) (int, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const subscriptionColumns = `id, user_id, plan_name, tier, status, start_date, end_date, created_at, updated_at`

func (r *repository) Create(ctx context.Context, userID int, plan Plan, start, end time.Time) (*Subscription, error) {
	sub := &Subscription{}

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE subscriptions
			SET status = 'cancelled', updated_at = NOW()
			WHERE user_id = $1 AND status = 'active'
		`, userID)
		if err != nil {
			return err
		}

		return tx.QueryRowxContext(ctx, `
			INSERT INTO subscriptions (user_id, plan_name, tier, status, start_date, end_date)
			VALUES ($1, $2, $3, 'active', $4, $5)
			RETURNING `+subscriptionColumns,
			userID, plan.Name, plan.Tier, start, end,
		).StructScan(sub)
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Subscription, error) {
	subs := []Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	return subs, err
}

func (r *repository) ListAll(ctx context.Context, limit, offset int) ([]Subscription, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM subscriptions`); err != nil {
		return nil, 0, err
	}

	subs := []Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}

func (r *repository) Cancel(ctx context.Context, userID, subscriptionID int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'active'
	`, subscriptionID, userID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// ActiveTier returns the tier of the newest active subscription whose
// window contains at.
func (r *repository) ActiveTier(ctx context.Context, userID int, at time.Time) (Tier, error) {
	var tier Tier
	err := r.db.GetContext(ctx, &tier, `
		SELECT tier
		FROM subscriptions
		WHERE user_id = $1
		  AND status = 'active'
		  AND start_date <= $2
		  AND end_date >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoActiveSubscription
		}
		return "", err
	}
	return tier, nil
}

func (r *repository) CountBookedBetween(ctx context.Context, userID int, from, to time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM bookings
		WHERE user_id = $1
		  AND status = 'booked'
		  AND date_time >= $2
		  AND date_time <= $3
	`, userID, from, to)
	return count, err
}
