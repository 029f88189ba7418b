package support

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"fitclub/internal/auth"
	"fitclub/internal/db"
)

var ErrTicketNotFound = errors.New("ticket not found")

type Repository interface {
	CreateTicket(ctx context.Context, userID int, subject, body string, role auth.Role) (*Ticket, error)
	GetTicket(ctx context.Context, id int) (*Ticket, error)
	ListByUser(ctx context.Context, userID int) ([]Ticket, error)
	ListByStatus(ctx context.Context, status TicketStatus) ([]Ticket, error)
	ListMessages(ctx context.Context, ticketID int) ([]Message, error)
	AddMessage(ctx context.Context, ticketID, authorID int, role auth.Role, body string) (*Message, error)
	Close(ctx context.Context, id int) (*Ticket, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const (
	ticketColumns  = `id, user_id, subject, status, created_at, updated_at`
	messageColumns = `id, ticket_id, author_id, author_role, body, created_at`
)

func (r *repository) CreateTicket(ctx context.Context, userID int, subject, body string, role auth.Role) (*Ticket, error) {
	var t Ticket

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &t, `
			INSERT INTO support_tickets (user_id, subject)
			VALUES ($1, $2)
			RETURNING `+ticketColumns,
			userID, subject,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO support_messages (ticket_id, author_id, author_role, body)
			VALUES ($1, $2, $3, $4)
		`, t.ID, userID, role, body)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *repository) GetTicket(ctx context.Context, id int) (*Ticket, error) {
	var t Ticket
	if err := r.db.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Ticket, error) {
	tickets := []Ticket{}
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT `+ticketColumns+`
		FROM support_tickets
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	return tickets, err
}

func (r *repository) ListByStatus(ctx context.Context, status TicketStatus) ([]Ticket, error) {
	tickets := []Ticket{}
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT `+ticketColumns+`
		FROM support_tickets
		WHERE status = $1
		ORDER BY updated_at
	`, status)
	return tickets, err
}

func (r *repository) ListMessages(ctx context.Context, ticketID int) ([]Message, error) {
	messages := []Message{}
	err := r.db.SelectContext(ctx, &messages, `
		SELECT `+messageColumns+`
		FROM support_messages
		WHERE ticket_id = $1
		ORDER BY created_at, id
	`, ticketID)
	return messages, err
}

// AddMessage also bumps the ticket so staff queues sort by last activity.
func (r *repository) AddMessage(ctx context.Context, ticketID, authorID int, role auth.Role, body string) (*Message, error) {
	var m Message

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &m, `
			INSERT INTO support_messages (ticket_id, author_id, author_role, body)
			VALUES ($1, $2, $3, $4)
			RETURNING `+messageColumns,
			ticketID, authorID, role, body,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `UPDATE support_tickets SET updated_at = NOW() WHERE id = $1`, ticketID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (r *repository) Close(ctx context.Context, id int) (*Ticket, error) {
	var t Ticket
	err := r.db.GetContext(ctx, &t, `
		UPDATE support_tickets
		SET status = 'closed', updated_at = NOW()
		WHERE id = $1
		RETURNING `+ticketColumns,
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}
