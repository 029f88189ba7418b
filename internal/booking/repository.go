package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"fitclub/internal/db"
	"fitclub/internal/outbox"
)

type Repository interface {
	ClassSnapshot(ctx context.Context, classID int) (*ClassSnapshot, error)
	HasBookingAt(ctx context.Context, classID int, at time.Time, excludeBookingID *int) (bool, error)
	GymExists(ctx context.Context, gymID int) (bool, error)

	// Admit re-checks quota and capacity under row locks and inserts the
	// booking together with its booking_created event.
	Admit(ctx context.Context, a Admission) (*Booking, error)
	Cancel(ctx context.Context, userID, bookingID int) (*Booking, error)
	Complete(ctx context.Context, bookingID int) (*Booking, error)
	Reschedule(ctx context.Context, userID, bookingID int, at time.Time) (*Booking, error)

	GetByID(ctx context.Context, id int) (*Booking, error)
	GetDetails(ctx context.Context, id int) (*BookingWithDetails, error)
	ListByUser(ctx context.Context, userID int) ([]BookingWithDetails, error)
	ListByGym(ctx context.Context, gymID int) ([]BookingWithDetails, error)
	ListByClass(ctx context.Context, classID int) ([]BookingWithDetails, error)

	StatsByDay(ctx context.Context, from, to time.Time) ([]BookingStatsByBucket, error)
	StatsByGym(ctx context.Context, from, to time.Time) ([]BookingStatsByGym, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const bookingColumns = `id, user_id, class_id, gym_id, booking_type, date_time, status, created_at, updated_at`

const detailsQuery = `
	SELECT b.id, b.user_id, b.class_id, b.gym_id, b.booking_type, b.date_time, b.status, b.created_at, b.updated_at,
	       g.id AS venue_id, g.name AS gym_name, c.title AS class_title,
	       u.name AS user_name, u.email AS user_email
	FROM bookings b
	LEFT JOIN classes c ON c.id = b.class_id
	JOIN gyms g ON g.id = COALESCE(b.gym_id, c.gym_id)
	JOIN users u ON u.id = b.user_id
`

func (r *repository) ClassSnapshot(ctx context.Context, classID int) (*ClassSnapshot, error) {
	query := `
		SELECT id, gym_id, start_time, end_time, capacity, booked_count
		FROM classes
		WHERE id = $1
	`

	var snap ClassSnapshot
	if err := r.db.GetContext(ctx, &snap, query, classID); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *repository) HasBookingAt(ctx context.Context, classID int, at time.Time, excludeBookingID *int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE class_id = $1 AND date_time = $2 AND status = 'booked'
			  AND ($3::int IS NULL OR id <> $3)
		)
	`
	return db.Exists(ctx, r.db, query, classID, at, excludeBookingID)
}

func (r *repository) GymExists(ctx context.Context, gymID int) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM gyms WHERE id = $1)`, gymID)
}

func (r *repository) Admit(ctx context.Context, a Admission) (*Booking, error) {
	var booking Booking

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		// Serializes admissions of the same user so the quota recount holds.
		var locked int
		err := tx.GetContext(ctx, &locked, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, a.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		var used int
		err = tx.GetContext(ctx, &used, `
			SELECT COUNT(*)
			FROM bookings
			WHERE user_id = $1 AND status = 'booked' AND date_time >= $2 AND date_time <= $3
		`, a.UserID, a.WindowStart, a.WindowEnd)
		if err != nil {
			return err
		}
		if used >= a.Quota {
			return ErrQuotaExceeded
		}

		if a.ClassID != nil {
			res, err := tx.ExecContext(ctx, `
				UPDATE classes
				SET booked_count = booked_count + 1
				WHERE id = $1
				  AND booked_count < capacity
				  AND $2 BETWEEN start_time AND end_time
			`, *a.ClassID, a.DateTime)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrBookingConflict
			}

			// The class row is locked now, so this check cannot race.
			var taken bool
			err = tx.GetContext(ctx, &taken, `
				SELECT EXISTS(
					SELECT 1 FROM bookings
					WHERE class_id = $1 AND date_time = $2 AND status = 'booked'
				)
			`, *a.ClassID, a.DateTime)
			if err != nil {
				return err
			}
			if taken {
				return ErrBookingConflict
			}
		}

		err = tx.GetContext(ctx, &booking, `
			INSERT INTO bookings (user_id, class_id, gym_id, booking_type, date_time, status)
			VALUES ($1, $2, $3, $4, $5, 'booked')
			RETURNING `+bookingColumns,
			a.UserID, a.ClassID, a.GymID, a.Type, a.DateTime,
		)
		if err != nil {
			return err
		}

		return outbox.Enqueue(ctx, tx, outbox.EventBookingCreated, booking.ID, payloadOf(&booking))
	})
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *repository) Cancel(ctx context.Context, userID, bookingID int) (*Booking, error) {
	var booking Booking

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &booking, `
			UPDATE bookings
			SET status = 'cancelled', updated_at = NOW()
			WHERE id = $1 AND user_id = $2 AND status = 'booked'
			RETURNING `+bookingColumns,
			bookingID, userID,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookingNotFound
			}
			return err
		}

		if booking.ClassID != nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE classes
				SET booked_count = GREATEST(booked_count - 1, 0)
				WHERE id = $1
			`, *booking.ClassID)
			if err != nil {
				return err
			}
		}

		return outbox.Enqueue(ctx, tx, outbox.EventBookingCancelled, booking.ID, payloadOf(&booking))
	})
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *repository) Complete(ctx context.Context, bookingID int) (*Booking, error) {
	var booking Booking

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &booking, `
			UPDATE bookings
			SET status = 'completed', updated_at = NOW()
			WHERE id = $1 AND status = 'booked'
			RETURNING `+bookingColumns,
			bookingID,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookingNotActive
			}
			return err
		}

		return outbox.Enqueue(ctx, tx, outbox.EventWorkoutCompleted, booking.ID, payloadOf(&booking))
	})
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *repository) Reschedule(ctx context.Context, userID, bookingID int, at time.Time) (*Booking, error) {
	var booking Booking

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var classID int
		err := tx.GetContext(ctx, &classID, `
			SELECT class_id FROM bookings
			WHERE id = $1 AND user_id = $2 AND status = 'booked' AND booking_type = 'class'
			FOR UPDATE
		`, bookingID, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookingNotFound
			}
			return err
		}

		// Same lock Admit takes, so the slot check below cannot race an admission.
		var locked int
		err = tx.GetContext(ctx, &locked, `
			SELECT id FROM classes
			WHERE id = $1 AND $2 BETWEEN start_time AND end_time
			FOR UPDATE
		`, classID, at)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookingConflict
			}
			return err
		}

		var taken bool
		err = tx.GetContext(ctx, &taken, `
			SELECT EXISTS(
				SELECT 1 FROM bookings
				WHERE class_id = $1 AND date_time = $2 AND status = 'booked' AND id <> $3
			)
		`, classID, at, bookingID)
		if err != nil {
			return err
		}
		if taken {
			return ErrBookingConflict
		}

		return tx.GetContext(ctx, &booking, `
			UPDATE bookings
			SET date_time = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+bookingColumns,
			bookingID, at,
		)
	})
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	var booking Booking
	err := r.db.GetContext(ctx, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetDetails(ctx context.Context, id int) (*BookingWithDetails, error) {
	var b BookingWithDetails
	err := r.db.GetContext(ctx, &b, detailsQuery+` WHERE b.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]BookingWithDetails, error) {
	bookings := []BookingWithDetails{}
	err := r.db.SelectContext(ctx, &bookings, detailsQuery+` WHERE b.user_id = $1 ORDER BY b.date_time DESC`, userID)
	return bookings, err
}

func (r *repository) ListByGym(ctx context.Context, gymID int) ([]BookingWithDetails, error) {
	bookings := []BookingWithDetails{}
	err := r.db.SelectContext(ctx, &bookings, detailsQuery+` WHERE g.id = $1 ORDER BY b.date_time DESC`, gymID)
	return bookings, err
}

func (r *repository) ListByClass(ctx context.Context, classID int) ([]BookingWithDetails, error) {
	bookings := []BookingWithDetails{}
	err := r.db.SelectContext(ctx, &bookings, detailsQuery+` WHERE b.class_id = $1 ORDER BY b.created_at`, classID)
	return bookings, err
}

func (r *repository) StatsByDay(ctx context.Context, from, to time.Time) ([]BookingStatsByBucket, error) {
	query := `
		SELECT
		  to_char(DATE(created_at), 'YYYY-MM-DD') AS bucket,
		  COUNT(*) FILTER (WHERE status = 'booked')    AS bookings_active,
		  COUNT(*) FILTER (WHERE status = 'completed') AS bookings_completed,
		  COUNT(*) FILTER (WHERE status = 'cancelled') AS bookings_cancelled
		FROM bookings
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY DATE(created_at)
		ORDER BY bucket
	`
	stats := []BookingStatsByBucket{}
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *repository) StatsByGym(ctx context.Context, from, to time.Time) ([]BookingStatsByGym, error) {
	query := `
		SELECT
		  g.id   AS gym_id,
		  g.name AS gym_name,
		  COUNT(b.id) FILTER (WHERE b.status = 'booked')    AS bookings_active,
		  COUNT(b.id) FILTER (WHERE b.status = 'completed') AS bookings_completed,
		  COUNT(b.id) FILTER (WHERE b.status = 'cancelled') AS bookings_cancelled
		FROM bookings b
		LEFT JOIN classes c ON c.id = b.class_id
		JOIN gyms g ON g.id = COALESCE(b.gym_id, c.gym_id)
		WHERE b.created_at BETWEEN $1 AND $2
		GROUP BY g.id, g.name
		ORDER BY g.id
	`
	stats := []BookingStatsByGym{}
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}

func payloadOf(b *Booking) outbox.BookingPayload {
	return outbox.BookingPayload{
		BookingID: b.ID,
		UserID:    b.UserID,
		ClassID:   b.ClassID,
		GymID:     b.GymID,
		DateTime:  b.DateTime,
	}
}
