package outbox

import (
	"database/sql"
	"encoding/json"
	"time"
)

type EventType string

const (
	EventBookingCreated   EventType = "booking_created"
	EventBookingCancelled EventType = "booking_cancelled"
	EventWorkoutCompleted EventType = "workout_completed"
	EventReviewCreated    EventType = "review_created"
	EventReviewDeleted    EventType = "review_deleted"
	EventUserRoleChanged  EventType = "user_role_changed"
	EventUserBlocked      EventType = "user_blocked"
	EventUserUnblocked    EventType = "user_unblocked"
)

type Event struct {
	ID          int64          `db:"id" json:"id"`
	Type        EventType      `db:"event_type" json:"type"`
	AggregateID int            `db:"aggregate_id" json:"aggregate_id"`
	Payload     []byte         `db:"payload" json:"-"`
	Attempts    int            `db:"attempts" json:"attempts"`
	LastError   sql.NullString `db:"last_error" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

type BookingPayload struct {
	BookingID int       `json:"booking_id"`
	UserID    int       `json:"user_id"`
	ClassID   *int      `json:"class_id,omitempty"`
	GymID     *int      `json:"gym_id,omitempty"`
	DateTime  time.Time `json:"date_time"`
}

type ReviewPayload struct {
	ReviewID int `json:"review_id"`
	GymID    int `json:"gym_id"`
	UserID   int `json:"user_id"`
}

type UserPayload struct {
	UserID  int    `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	Blocked bool   `json:"blocked"`
}

// Envelope is the message body published to the broker.
type Envelope struct {
	ID          int64           `json:"id"`
	Type        EventType       `json:"type"`
	AggregateID int             `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
