package booking

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"fitclub/internal/auth"
	"fitclub/internal/gym"
	"fitclub/internal/logger"
	"fitclub/internal/metrics"
	"fitclub/internal/subscription"
)

// TierSource resolves the subscription tier a user books under.
type TierSource interface {
	TierFor(ctx context.Context, userID int) (subscription.Tier, error)
}

// GymAccess decides whether an actor may manage a gym's bookings.
type GymAccess interface {
	EnsureManager(ctx context.Context, actor auth.Actor, gymID int) (*gym.Gym, error)
}

type Service interface {
	CreateBooking(ctx context.Context, actor auth.Actor, req CreateBookingRequest) (*Booking, error)
	CancelBooking(ctx context.Context, actor auth.Actor, bookingID int) error
	CompleteBooking(ctx context.Context, actor auth.Actor, bookingID int) (*Booking, error)
	RescheduleBooking(ctx context.Context, actor auth.Actor, bookingID int, at time.Time) (*Booking, error)
	ListMyBookings(ctx context.Context, actor auth.Actor) ([]BookingWithDetails, error)
	ListGymBookings(ctx context.Context, actor auth.Actor, gymID int) ([]BookingWithDetails, error)
	ListClassBookings(ctx context.Context, actor auth.Actor, classID int) ([]BookingWithDetails, error)
	ExportGymBookings(ctx context.Context, actor auth.Actor, gymID int, w io.Writer) error
	StatsByDay(ctx context.Context, from, to time.Time) ([]BookingStatsByBucket, error)
	StatsByGym(ctx context.Context, from, to time.Time) ([]BookingStatsByGym, error)
}

type service struct {
	repo      Repository
	tiers     TierSource
	limits    *subscription.LimitChecker
	conflicts *ConflictChecker
	gyms      GymAccess
}

func NewService(
	repo Repository,
	tiers TierSource,
	limits *subscription.LimitChecker,
	conflicts *ConflictChecker,
	gyms GymAccess,
) Service {
	return &service{
		repo:      repo,
		tiers:     tiers,
		limits:    limits,
		conflicts: conflicts,
		gyms:      gyms,
	}
}

func parseRequest(req CreateBookingRequest) (BookingType, time.Time, error) {
	bt := BookingType(req.BookingType)
	switch {
	case bt == TypeClass && req.ClassID != nil && req.GymID == nil:
	case bt == TypeGymVisit && req.GymID != nil && req.ClassID == nil:
	default:
		return "", time.Time{}, ErrInvalidBooking
	}

	at, err := time.Parse(time.RFC3339, req.DateTime)
	if err != nil {
		return "", time.Time{}, ErrInvalidDateTime
	}
	return bt, at, nil
}

func (s *service) CreateBooking(ctx context.Context, actor auth.Actor, req CreateBookingRequest) (*Booking, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}

	bt, at, err := parseRequest(req)
	if err != nil {
		return nil, err
	}

	tier, err := s.tiers.TierFor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	if res := s.limits.Check(ctx, actor.UserID, tier); !res.CanBook {
		metrics.RecordAdmissionRejection("quota")
		return nil, &LimitError{Message: res.Message}
	}

	if req.ClassID != nil {
		if s.conflicts.Check(ctx, *req.ClassID, at, nil) {
			metrics.RecordAdmissionRejection("conflict")
			return nil, ErrBookingConflict
		}
	} else {
		exists, err := s.repo.GymExists(ctx, *req.GymID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, gym.ErrGymNotFound
		}
	}

	from, to := s.limits.Window()
	booking, err := s.repo.Admit(ctx, Admission{
		UserID:      actor.UserID,
		ClassID:     req.ClassID,
		GymID:       req.GymID,
		Type:        bt,
		DateTime:    at,
		WindowStart: from,
		WindowEnd:   to,
		Quota:       subscription.Quota(tier),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrQuotaExceeded):
			metrics.RecordAdmissionRejection("quota")
			return nil, &LimitError{Message: subscription.LimitMessage(tier)}
		case errors.Is(err, ErrBookingConflict):
			metrics.RecordAdmissionRejection("conflict")
			return nil, ErrBookingConflict
		}
		return nil, err
	}

	logger.Info("Booking created",
		"booking_id", booking.ID,
		"user_id", actor.UserID,
		"type", bt,
		"tier", tier,
	)
	metrics.RecordBooking(string(bt), string(tier))
	return booking, nil
}

func (s *service) CancelBooking(ctx context.Context, actor auth.Actor, bookingID int) error {
	if !actor.Authenticated() {
		return auth.ErrNotAuthenticated
	}

	if _, err := s.repo.Cancel(ctx, actor.UserID, bookingID); err != nil {
		return err
	}

	logger.Info("Booking cancelled", "booking_id", bookingID, "user_id", actor.UserID)
	metrics.RecordBookingCancellation()
	return nil
}

func (s *service) CompleteBooking(ctx context.Context, actor auth.Actor, bookingID int) (*Booking, error) {
	details, err := s.repo.GetDetails(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if _, err := s.gyms.EnsureManager(ctx, actor, details.VenueID); err != nil {
		return nil, err
	}

	booking, err := s.repo.Complete(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	logger.Info("Workout completed", "booking_id", bookingID, "user_id", booking.UserID, "actor_id", actor.UserID)
	metrics.RecordBookingCompletion()
	return booking, nil
}

func (s *service) RescheduleBooking(ctx context.Context, actor auth.Actor, bookingID int, at time.Time) (*Booking, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}

	current, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.UserID != actor.UserID {
		return nil, ErrBookingNotFound
	}
	if current.ClassID == nil {
		return nil, ErrNotClassBooking
	}
	if current.Status != StatusBooked {
		return nil, ErrBookingNotActive
	}

	if s.conflicts.Check(ctx, *current.ClassID, at, &current.ID) {
		metrics.RecordAdmissionRejection("conflict")
		return nil, ErrBookingConflict
	}

	return s.repo.Reschedule(ctx, actor.UserID, bookingID, at)
}

func (s *service) ListMyBookings(ctx context.Context, actor auth.Actor) ([]BookingWithDetails, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}
	return s.repo.ListByUser(ctx, actor.UserID)
}

func (s *service) ListGymBookings(ctx context.Context, actor auth.Actor, gymID int) ([]BookingWithDetails, error) {
	if _, err := s.gyms.EnsureManager(ctx, actor, gymID); err != nil {
		return nil, err
	}
	return s.repo.ListByGym(ctx, gymID)
}

func (s *service) ListClassBookings(ctx context.Context, actor auth.Actor, classID int) ([]BookingWithDetails, error) {
	class, err := s.repo.ClassSnapshot(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, gym.ErrClassNotFound
		}
		return nil, err
	}
	if _, err := s.gyms.EnsureManager(ctx, actor, class.GymID); err != nil {
		return nil, err
	}
	return s.repo.ListByClass(ctx, classID)
}

func (s *service) ExportGymBookings(ctx context.Context, actor auth.Actor, gymID int, w io.Writer) error {
	bookings, err := s.ListGymBookings(ctx, actor, gymID)
	if err != nil {
		return err
	}
	return WriteXLSX(w, bookings)
}

func (s *service) StatsByDay(ctx context.Context, from, to time.Time) ([]BookingStatsByBucket, error) {
	return s.repo.StatsByDay(ctx, from, to)
}

func (s *service) StatsByGym(ctx context.Context, from, to time.Time) ([]BookingStatsByGym, error) {
	return s.repo.StatsByGym(ctx, from, to)
}
