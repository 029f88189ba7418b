package review

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"fitclub/internal/db"
	"fitclub/internal/gym"
	"fitclub/internal/outbox"
)

var (
	ErrDuplicateReview = errors.New("you have already reviewed this gym")
	ErrReviewNotFound  = errors.New("review not found")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type Repository interface {
	Create(ctx context.Context, userID, gymID, rating int, comment string) (*Review, error)
	ListByGym(ctx context.Context, gymID int) ([]ReviewWithAuthor, error)
	Ratings(ctx context.Context, gymID int) ([]int, error)
	Delete(ctx context.Context, id int) (*Review, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, userID, gymID, rating int, comment string) (*Review, error) {
	var rev Review

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &rev, `
			INSERT INTO reviews (user_id, gym_id, rating, comment)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, gym_id, rating, comment, created_at
		`, userID, gymID, rating, comment)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) {
				switch pqErr.Code {
				case pqUniqueViolation:
					return ErrDuplicateReview
				case pqForeignKeyViolation:
					return gym.ErrGymNotFound
				}
			}
			return err
		}

		return outbox.Enqueue(ctx, tx, outbox.EventReviewCreated, rev.ID, payloadOf(&rev))
	})
	if err != nil {
		return nil, err
	}

	return &rev, nil
}

func (r *repository) ListByGym(ctx context.Context, gymID int) ([]ReviewWithAuthor, error) {
	query := `
		SELECT r.id, r.user_id, r.gym_id, r.rating, r.comment, r.created_at, u.name AS user_name
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.gym_id = $1
		ORDER BY r.created_at DESC
	`
	reviews := []ReviewWithAuthor{}
	if err := r.db.SelectContext(ctx, &reviews, query, gymID); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *repository) Ratings(ctx context.Context, gymID int) ([]int, error) {
	var ratings []int
	if err := r.db.SelectContext(ctx, &ratings, `SELECT rating FROM reviews WHERE gym_id = $1`, gymID); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *repository) Delete(ctx context.Context, id int) (*Review, error) {
	var rev Review

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &rev, `
			DELETE FROM reviews
			WHERE id = $1
			RETURNING id, user_id, gym_id, rating, comment, created_at
		`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrReviewNotFound
			}
			return err
		}

		return outbox.Enqueue(ctx, tx, outbox.EventReviewDeleted, rev.ID, payloadOf(&rev))
	})
	if err != nil {
		return nil, err
	}

	return &rev, nil
}

func payloadOf(r *Review) outbox.ReviewPayload {
	return outbox.ReviewPayload{ReviewID: r.ID, GymID: r.GymID, UserID: r.UserID}
}
