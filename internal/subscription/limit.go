package subscription

import (
	"context"
	"fmt"
	"time"

	"fitclub/internal/logger"
)

type LimitResult struct {
	CanBook bool
	Message string
}

// UsageCounter counts a user's booked bookings within a time window.
type UsageCounter interface {
	CountBookedBetween(ctx context.Context, userID int, from, to time.Time) (int, error)
}

type LimitChecker struct {
	usage UsageCounter
	loc   *time.Location
	now   func() time.Time
}

func NewLimitChecker(usage UsageCounter, loc *time.Location) *LimitChecker {
	if loc == nil {
		loc = time.UTC
	}
	return &LimitChecker{usage: usage, loc: loc, now: time.Now}
}

// MonthWindow returns the first and last second of the calendar month that
// contains t, in t's location.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	end := time.Date(y, m+1, 0, 23, 59, 59, 0, t.Location())
	return start, end
}

// Window is the quota window for the current moment.
func (l *LimitChecker) Window() (time.Time, time.Time) {
	return MonthWindow(l.now().In(l.loc))
}

// Check fails closed: a counting error denies the booking.
func (l *LimitChecker) Check(ctx context.Context, userID int, tier Tier) LimitResult {
	from, to := l.Window()

	count, err := l.usage.CountBookedBetween(ctx, userID, from, to)
	if err != nil {
		logger.Error("Failed to count monthly bookings", "user_id", userID, "error", err)
		return LimitResult{CanBook: false, Message: "Unable to verify your subscription limits, please try again"}
	}

	quota := Quota(tier)
	if count >= quota {
		return LimitResult{CanBook: false, Message: LimitMessage(tier)}
	}
	return LimitResult{CanBook: true}
}

func LimitMessage(tier Tier) string {
	if _, ok := quotas[tier]; !ok {
		tier = TierBasic
	}
	return fmt.Sprintf("Monthly booking limit reached: the %s plan allows %d bookings per month", tier, Quota(tier))
}
