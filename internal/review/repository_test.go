package review

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitclub/internal/gym"
	"fitclub/internal/outbox"
)

func setupReviewMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

var reviewColumns = []string{"id", "user_id", "gym_id", "rating", "comment", "created_at"}

const enqueueSQL = "INSERT INTO outbox_events (event_type, aggregate_id, payload)"

func TestCreate(t *testing.T) {
	repo, mock, close := setupReviewMock(t)
	defer close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews (user_id, gym_id, rating, comment)")).
		WithArgs(10, 3, 5, "Great").
		WillReturnRows(sqlmock.NewRows(reviewColumns).AddRow(1, 10, 3, 5, "Great", now))
	mock.ExpectExec(regexp.QuoteMeta(enqueueSQL)).
		WithArgs(outbox.EventReviewCreated, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rev, err := repo.Create(context.Background(), 10, 3, 5, "Great")

	require.NoError(t, err)
	assert.Equal(t, 1, rev.ID)
	assert.Equal(t, 5, rev.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_ConstraintErrors(t *testing.T) {
	tests := []struct {
		name string
		code pq.ErrorCode
		want error
	}{
		{name: "second review of the same gym", code: "23505", want: ErrDuplicateReview},
		{name: "unknown gym", code: "23503", want: gym.ErrGymNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, close := setupReviewMock(t)
			defer close()

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews")).
				WillReturnError(&pq.Error{Code: tt.code})
			mock.ExpectRollback()

			_, err := repo.Create(context.Background(), 10, 3, 5, "")

			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRatings(t *testing.T) {
	repo, mock, close := setupReviewMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT rating FROM reviews WHERE gym_id = $1")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(5).AddRow(4).AddRow(3))

	ratings, err := repo.Ratings(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, []int{5, 4, 3}, ratings)
}

func TestDelete(t *testing.T) {
	repo, mock, close := setupReviewMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM reviews WHERE id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(reviewColumns).AddRow(1, 10, 3, 5, "Great", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(enqueueSQL)).
		WithArgs(outbox.EventReviewDeleted, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rev, err := repo.Delete(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 3, rev.GymID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, close := setupReviewMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM reviews")).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), 1)

	assert.ErrorIs(t, err, ErrReviewNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
