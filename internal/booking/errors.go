package booking

import "errors"

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrBookingConflict  = errors.New("this time slot is not available, please choose another time")
	ErrBookingNotActive = errors.New("booking is no longer active")
	ErrNotClassBooking  = errors.New("only class bookings can be rescheduled")
	ErrInvalidBooking   = errors.New("class bookings need class_id, gym visits need gym_id")
	ErrInvalidDateTime  = errors.New("date_time must be RFC3339")
	ErrQuotaExceeded    = errors.New("monthly booking quota exceeded")
	ErrUserNotFound     = errors.New("user not found")
)

// LimitError rejects a booking that would exceed the subscription quota.
type LimitError struct {
	Message string
}

func (e *LimitError) Error() string {
	return e.Message
}
