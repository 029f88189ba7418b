package support

import (
	"time"

	"fitclub/internal/auth"
)

type TicketStatus string

const (
	StatusOpen   TicketStatus = "open"
	StatusClosed TicketStatus = "closed"
)

type Ticket struct {
	ID        int          `db:"id" json:"id"`
	UserID    int          `db:"user_id" json:"user_id"`
	Subject   string       `db:"subject" json:"subject"`
	Status    TicketStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

type Message struct {
	ID         int       `db:"id" json:"id"`
	TicketID   int       `db:"ticket_id" json:"ticket_id"`
	AuthorID   int       `db:"author_id" json:"author_id"`
	AuthorRole auth.Role `db:"author_role" json:"author_role"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type CreateTicketRequest struct {
	Subject string `json:"subject" binding:"required,max=255" example:"Cannot cancel my booking"`
	Message string `json:"message" binding:"required,max=4000" example:"The cancel button returns an error."`
}

type PostMessageRequest struct {
	Body string `json:"body" binding:"required,max=4000" example:"Could you share the booking ID?"`
}
