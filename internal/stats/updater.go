package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitclub/internal/logger"
	"fitclub/internal/outbox"
)

const dayLayout = "2006-01-02"

// Updater maintains the per-user statistics row. It is driven by outbox
// events, never called inline from request handlers.
type Updater struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

func NewUpdater(repo Repository, loc *time.Location) *Updater {
	if loc == nil {
		loc = time.UTC
	}
	return &Updater{repo: repo, loc: loc, now: time.Now}
}

// Apply folds action into the user's stats as of at, the time the event was
// recorded. Replays of eventID are ignored.
func (u *Updater) Apply(ctx context.Context, eventID int64, userID int, action Action, at time.Time) error {
	if at.IsZero() {
		at = u.now()
	}
	err := u.repo.Apply(ctx, eventID, userID, func(current UserStats) UserStats {
		current.UserID = userID
		return Next(current, action, at.In(u.loc))
	})
	if errors.Is(err, ErrAlreadyApplied) {
		logger.Debug("Stats event already applied", "event_id", eventID, "user_id", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply %s for user %d: %w", action, userID, err)
	}
	return nil
}

// Next computes the stats row after action happened at now. Streaks compare
// calendar dates in now's location: a workout the day after the previous one
// extends the streak, anything else (including a second workout the same day)
// starts it over at 1.
func Next(s UserStats, action Action, now time.Time) UserStats {
	switch action {
	case ActionBookingCreated:
		s.TotalBookings++

	case ActionWorkoutCompleted:
		s.CompletedWorkouts++
		s.TotalHoursTrained += HoursPerWorkout

		yesterday := now.AddDate(0, 0, -1).Format(dayLayout)
		if s.LastWorkoutDate.Valid && s.LastWorkoutDate.Time.In(now.Location()).Format(dayLayout) == yesterday {
			s.CurrentStreakDays++
		} else {
			s.CurrentStreakDays = 1
		}
		if s.CurrentStreakDays > s.BestStreakDays {
			s.BestStreakDays = s.CurrentStreakDays
		}
		s.LastWorkoutDate.Time = now
		s.LastWorkoutDate.Valid = true

	case ActionBookingCancelled:
		if s.TotalBookings > 0 {
			s.TotalBookings--
		}
	}

	s.UpdatedAt = now
	return s
}

// OutboxHandler adapts Apply to an outbox event carrying a booking payload.
// The event id makes redelivery safe and its creation time dates the workout.
func (u *Updater) OutboxHandler(action Action) outbox.Handler {
	return func(ctx context.Context, ev outbox.Event) error {
		var p outbox.BookingPayload
		if err := ev.Decode(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Type, err)
		}
		return u.Apply(ctx, ev.ID, p.UserID, action, ev.CreatedAt)
	}
}
