package support

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitclub/internal/auth"
)

func setupSupportMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return NewRepository(sqlxDB), mock
}

var (
	ticketCols  = []string{"id", "user_id", "subject", "status", "created_at", "updated_at"}
	messageCols = []string{"id", "ticket_id", "author_id", "author_role", "body", "created_at"}
)

func TestCreateTicket_StoresFirstMessage(t *testing.T) {
	repo, mock := setupSupportMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO support_tickets (user_id, subject)")).
		WithArgs(10, "Locker broken").
		WillReturnRows(sqlmock.NewRows(ticketCols).AddRow(4, 10, "Locker broken", "open", now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO support_messages (ticket_id, author_id, author_role, body)")).
		WithArgs(4, 10, "user", "Locker 12 does not close").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ticket, err := repo.CreateTicket(context.Background(), 10, "Locker broken", "Locker 12 does not close", auth.RoleUser)

	require.NoError(t, err)
	assert.Equal(t, 4, ticket.ID)
	assert.Equal(t, StatusOpen, ticket.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTicket_MessageFailureRollsBack(t *testing.T) {
	repo, mock := setupSupportMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO support_tickets")).
		WillReturnRows(sqlmock.NewRows(ticketCols).AddRow(4, 10, "s", "open", now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO support_messages")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.CreateTicket(context.Background(), 10, "s", "b", auth.RoleUser)

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTicket_NotFound(t *testing.T) {
	repo, mock := setupSupportMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM support_tickets WHERE id = $1")).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetTicket(context.Background(), 99)

	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestAddMessage_TouchesTicket(t *testing.T) {
	repo, mock := setupSupportMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO support_messages (ticket_id, author_id, author_role, body)")).
		WithArgs(4, 2, "support", "On it").
		WillReturnRows(sqlmock.NewRows(messageCols).AddRow(8, 4, 2, "support", "On it", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE support_tickets SET updated_at = NOW() WHERE id = $1")).
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m, err := repo.AddMessage(context.Background(), 4, 2, auth.RoleSupport, "On it")

	require.NoError(t, err)
	assert.Equal(t, auth.RoleSupport, m.AuthorRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStatus(t *testing.T) {
	repo, mock := setupSupportMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1")).
		WithArgs("open").
		WillReturnRows(sqlmock.NewRows(ticketCols).
			AddRow(1, 10, "a", "open", now, now).
			AddRow(2, 11, "b", "open", now, now))

	tickets, err := repo.ListByStatus(context.Background(), StatusOpen)

	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestClose(t *testing.T) {
	repo, mock := setupSupportMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SET status = 'closed'")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(ticketCols).AddRow(4, 10, "s", "closed", now, now))

	ticket, err := repo.Close(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, StatusClosed, ticket.Status)
}

func TestClose_NotFound(t *testing.T) {
	repo, mock := setupSupportMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SET status = 'closed'")).
		WithArgs(4).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Close(context.Background(), 4)

	assert.ErrorIs(t, err, ErrTicketNotFound)
}
