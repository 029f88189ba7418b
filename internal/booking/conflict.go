package booking

import (
	"context"
	"time"

	"fitclub/internal/logger"
)

// ConflictStore is the read side the conflict checker needs.
type ConflictStore interface {
	ClassSnapshot(ctx context.Context, classID int) (*ClassSnapshot, error)
	HasBookingAt(ctx context.Context, classID int, at time.Time, excludeBookingID *int) (bool, error)
}

// ConflictChecker is a read-then-decide pre-check for class bookings. Two
// concurrent callers can both pass it for the last seat; the admission
// transaction is what actually enforces capacity.
type ConflictChecker struct {
	store ConflictStore
}

func NewConflictChecker(store ConflictStore) *ConflictChecker {
	return &ConflictChecker{store: store}
}

// Check reports whether booking classID at dateTime conflicts. Any lookup
// failure counts as a conflict.
func (c *ConflictChecker) Check(ctx context.Context, classID int, dateTime time.Time, excludeBookingID *int) bool {
	class, err := c.store.ClassSnapshot(ctx, classID)
	if err != nil || class == nil {
		if err != nil {
			logger.Warn("Conflict check could not load class", "class_id", classID, "error", err)
		}
		return true
	}

	if class.BookedCount >= class.Capacity {
		return true
	}

	if dateTime.Before(class.StartTime) || dateTime.After(class.EndTime) {
		return true
	}

	taken, err := c.store.HasBookingAt(ctx, classID, dateTime, excludeBookingID)
	if err != nil {
		logger.Warn("Conflict check query failed", "class_id", classID, "error", err)
		return true
	}

	return taken
}
