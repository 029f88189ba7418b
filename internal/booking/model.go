package booking

import (
	"time"
)

type BookingType string
type Status string

const (
	TypeClass    BookingType = "class"
	TypeGymVisit BookingType = "gym_visit"

	StatusBooked    Status = "booked"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Booking struct {
	ID          int         `db:"id" json:"id"`
	UserID      int         `db:"user_id" json:"user_id"`
	ClassID     *int        `db:"class_id" json:"class_id,omitempty"`
	GymID       *int        `db:"gym_id" json:"gym_id,omitempty"`
	BookingType BookingType `db:"booking_type" json:"booking_type"`
	DateTime    time.Time   `db:"date_time" json:"date_time"`
	Status      Status      `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

type BookingWithDetails struct {
	Booking
	VenueID    int     `db:"venue_id" json:"venue_id"`
	GymName    string  `db:"gym_name" json:"gym_name"`
	ClassTitle *string `db:"class_title" json:"class_title,omitempty"`
	UserName   string  `db:"user_name" json:"user_name"`
	UserEmail  string  `db:"user_email" json:"user_email"`
}

// ClassSnapshot is the part of a class the admission checks read.
type ClassSnapshot struct {
	ID          int       `db:"id"`
	GymID       int       `db:"gym_id"`
	StartTime   time.Time `db:"start_time"`
	EndTime     time.Time `db:"end_time"`
	Capacity    int       `db:"capacity"`
	BookedCount int       `db:"booked_count"`
}

// Admission is everything the atomic admission write needs to re-check and
// insert a booking.
type Admission struct {
	UserID      int
	ClassID     *int
	GymID       *int
	Type        BookingType
	DateTime    time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	Quota       int
}

type CreateBookingRequest struct {
	BookingType string `json:"booking_type" binding:"required,oneof=class gym_visit" example:"class"`
	ClassID     *int   `json:"class_id,omitempty" example:"3"`
	GymID       *int   `json:"gym_id,omitempty"`
	DateTime    string `json:"date_time" binding:"required" example:"2025-01-10T09:00:00Z"`
}

type RescheduleRequest struct {
	DateTime string `json:"date_time" binding:"required" example:"2025-01-10T09:00:00Z"`
}

type BookingStatsByBucket struct {
	Bucket            string `db:"bucket" json:"bucket"`
	BookingsActive    int    `db:"bookings_active" json:"bookings_active"`
	BookingsCompleted int    `db:"bookings_completed" json:"bookings_completed"`
	BookingsCancelled int    `db:"bookings_cancelled" json:"bookings_cancelled"`
}

type BookingStatsByGym struct {
	GymID             int    `db:"gym_id" json:"gym_id"`
	GymName           string `db:"gym_name" json:"gym_name"`
	BookingsActive    int    `db:"bookings_active" json:"bookings_active"`
	BookingsCompleted int    `db:"bookings_completed" json:"bookings_completed"`
	BookingsCancelled int    `db:"bookings_cancelled" json:"bookings_cancelled"`
}
