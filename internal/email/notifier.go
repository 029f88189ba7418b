package email

import (
	"context"
	"fmt"
	"time"

	"fitclub/internal/booking"
	"fitclub/internal/logger"
	"fitclub/internal/outbox"
)

const whenLayout = "Jan 2, 2006 at 3:04 PM"

const (
	TypeBookingConfirmation = "booking_confirmation"
	TypeBookingCancellation = "booking_cancellation"
	TypeRoleChanged         = "role_changed"
	TypeAccountBlocked      = "account_blocked"
	TypeAccountUnblocked    = "account_unblocked"
)

type Mailer interface {
	Send(ctx context.Context, emailType, to, name, subject, body string) error
}

// BookingDirectory resolves the member and venue of a booking.
type BookingDirectory interface {
	GetDetails(ctx context.Context, id int) (*booking.BookingWithDetails, error)
}

// Notifier turns outbox events into queued emails. Its handlers never fail:
// a lost notification must not make the dispatcher replay the other
// handlers of the same event.
type Notifier struct {
	mail     Mailer
	bookings BookingDirectory
	loc      *time.Location
}

func NewNotifier(mail Mailer, bookings BookingDirectory, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{mail: mail, bookings: bookings, loc: loc}
}

func (n *Notifier) BookingConfirmed() outbox.Handler {
	return n.bookingHandler(TypeBookingConfirmation, func(b *booking.BookingWithDetails) (string, string) {
		subject := "Booking Confirmed - " + venueLine(b)
		body := fmt.Sprintf(`Hi %s,

Your booking is confirmed!

Type: %s
Where: %s
Time: %s

See you at the gym!

- FitClub Team`, b.UserName, bookingKind(b), venueLine(b), b.DateTime.In(n.loc).Format(whenLayout))
		return subject, body
	})
}

func (n *Notifier) BookingCancelled() outbox.Handler {
	return n.bookingHandler(TypeBookingCancellation, func(b *booking.BookingWithDetails) (string, string) {
		subject := "Booking Cancelled - " + venueLine(b)
		body := fmt.Sprintf(`Hi %s,

Your booking has been cancelled:

Type: %s
Where: %s
Time: %s

The visit no longer counts towards your monthly limit.

- FitClub Team`, b.UserName, bookingKind(b), venueLine(b), b.DateTime.In(n.loc).Format(whenLayout))
		return subject, body
	})
}

func (n *Notifier) bookingHandler(emailType string, render func(*booking.BookingWithDetails) (string, string)) outbox.Handler {
	return func(ctx context.Context, ev outbox.Event) error {
		var p outbox.BookingPayload
		if err := ev.Decode(&p); err != nil {
			logger.Error("Skipping email for undecodable event", "event_id", ev.ID, "error", err)
			return nil
		}

		b, err := n.bookings.GetDetails(ctx, p.BookingID)
		if err != nil {
			logger.Error("Skipping email, booking lookup failed", "booking_id", p.BookingID, "error", err)
			return nil
		}

		subject, body := render(b)
		if err := n.mail.Send(ctx, emailType, b.UserEmail, b.UserName, subject, body); err != nil {
			logger.Error("Failed to queue booking email", "booking_id", p.BookingID, "type", emailType, "error", err)
		}
		return nil
	}
}

func (n *Notifier) RoleChanged() outbox.Handler {
	return n.userHandler(TypeRoleChanged, func(p outbox.UserPayload) (string, string) {
		return "Your FitClub role has changed", fmt.Sprintf(`Hi %s,

An administrator changed your role to "%s".
The change applies the next time you sign in.

- FitClub Team`, p.Name, p.Role)
	})
}

func (n *Notifier) AccountBlocked() outbox.Handler {
	return n.userHandler(TypeAccountBlocked, func(p outbox.UserPayload) (string, string) {
		return "Your FitClub account has been blocked", fmt.Sprintf(`Hi %s,

Your account has been blocked by an administrator and you can no longer sign in.
Please contact support if you think this is a mistake.

- FitClub Team`, p.Name)
	})
}

func (n *Notifier) AccountUnblocked() outbox.Handler {
	return n.userHandler(TypeAccountUnblocked, func(p outbox.UserPayload) (string, string) {
		return "Your FitClub account is active again", fmt.Sprintf(`Hi %s,

Your account has been unblocked. You can sign in and book again.

- FitClub Team`, p.Name)
	})
}

func (n *Notifier) userHandler(emailType string, render func(outbox.UserPayload) (string, string)) outbox.Handler {
	return func(ctx context.Context, ev outbox.Event) error {
		var p outbox.UserPayload
		if err := ev.Decode(&p); err != nil {
			logger.Error("Skipping email for undecodable event", "event_id", ev.ID, "error", err)
			return nil
		}

		subject, body := render(p)
		if err := n.mail.Send(ctx, emailType, p.Email, p.Name, subject, body); err != nil {
			logger.Error("Failed to queue account email", "user_id", p.UserID, "type", emailType, "error", err)
		}
		return nil
	}
}

func bookingKind(b *booking.BookingWithDetails) string {
	if b.BookingType == booking.TypeClass {
		return "Class"
	}
	return "Gym visit"
}

func venueLine(b *booking.BookingWithDetails) string {
	if b.ClassTitle != nil && *b.ClassTitle != "" {
		return *b.ClassTitle + " at " + b.GymName
	}
	return b.GymName
}
