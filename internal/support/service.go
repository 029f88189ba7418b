package support

import (
	"context"
	"errors"

	"fitclub/internal/auth"
	"fitclub/internal/logger"
	"fitclub/internal/metrics"
)

var ErrTicketClosed = errors.New("ticket is closed")

// Broadcaster delivers new messages to live ticket streams.
type Broadcaster interface {
	Publish(ctx context.Context, m *Message) error
	Subscribe(ctx context.Context, ticketID int) (<-chan Message, error)
}

type Service interface {
	OpenTicket(ctx context.Context, actor auth.Actor, req CreateTicketRequest) (*Ticket, error)
	MyTickets(ctx context.Context, actor auth.Actor) ([]Ticket, error)
	Queue(ctx context.Context, status TicketStatus) ([]Ticket, error)
	Messages(ctx context.Context, actor auth.Actor, ticketID int) ([]Message, error)
	PostMessage(ctx context.Context, actor auth.Actor, ticketID int, body string) (*Message, error)
	CloseTicket(ctx context.Context, actor auth.Actor, ticketID int) (*Ticket, error)
	Stream(ctx context.Context, actor auth.Actor, ticketID int) (<-chan Message, error)
}

type service struct {
	repo Repository
	hub  Broadcaster
}

func NewService(repo Repository, hub Broadcaster) Service {
	return &service{repo: repo, hub: hub}
}

func (s *service) OpenTicket(ctx context.Context, actor auth.Actor, req CreateTicketRequest) (*Ticket, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}

	t, err := s.repo.CreateTicket(ctx, actor.UserID, req.Subject, req.Message, actor.Role)
	if err != nil {
		return nil, err
	}

	logger.Info("Support ticket opened", "ticket_id", t.ID, "user_id", actor.UserID)
	metrics.RecordSupportMessage(actor.Role.String())
	return t, nil
}

func (s *service) MyTickets(ctx context.Context, actor auth.Actor) ([]Ticket, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}
	return s.repo.ListByUser(ctx, actor.UserID)
}

func (s *service) Queue(ctx context.Context, status TicketStatus) ([]Ticket, error) {
	return s.repo.ListByStatus(ctx, status)
}

// visibleTicket hides tickets of other users from members.
func (s *service) visibleTicket(ctx context.Context, actor auth.Actor, ticketID int) (*Ticket, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}

	t, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.UserID != actor.UserID && !actor.Role.IsStaff() {
		return nil, ErrTicketNotFound
	}
	return t, nil
}

func (s *service) Messages(ctx context.Context, actor auth.Actor, ticketID int) ([]Message, error) {
	if _, err := s.visibleTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, ticketID)
}

func (s *service) PostMessage(ctx context.Context, actor auth.Actor, ticketID int, body string) (*Message, error) {
	t, err := s.visibleTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusClosed {
		return nil, ErrTicketClosed
	}

	m, err := s.repo.AddMessage(ctx, ticketID, actor.UserID, actor.Role, body)
	if err != nil {
		return nil, err
	}

	// Live delivery is best-effort; the message is already stored.
	if s.hub != nil {
		if err := s.hub.Publish(ctx, m); err != nil {
			logger.Warn("Failed to publish support message", "ticket_id", ticketID, "error", err)
		}
	}

	metrics.RecordSupportMessage(actor.Role.String())
	return m, nil
}

func (s *service) CloseTicket(ctx context.Context, actor auth.Actor, ticketID int) (*Ticket, error) {
	t, err := s.repo.Close(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	logger.Info("Support ticket closed", "ticket_id", ticketID, "staff_id", actor.UserID)
	return t, nil
}

func (s *service) Stream(ctx context.Context, actor auth.Actor, ticketID int) (<-chan Message, error) {
	if _, err := s.visibleTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	if s.hub == nil {
		return nil, errors.New("live updates are disabled")
	}
	return s.hub.Subscribe(ctx, ticketID)
}
