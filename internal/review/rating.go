package review

import (
	"context"
	"fmt"
	"math"

	"fitclub/internal/logger"
	"fitclub/internal/outbox"
)

// RatingSource lists every rating a gym has received.
type RatingSource interface {
	Ratings(ctx context.Context, gymID int) ([]int, error)
}

// RatingStore persists the derived rating of a gym.
type RatingStore interface {
	UpdateRating(ctx context.Context, gymID int, rating float64, reviewCount int) error
}

type SearchInvalidator interface {
	InvalidateSearch(ctx context.Context)
}

// RatingUpdater recomputes a gym's rating from scratch, so replaying an
// event for the same gym is harmless.
type RatingUpdater struct {
	reviews RatingSource
	gyms    RatingStore
	search  SearchInvalidator
}

func NewRatingUpdater(reviews RatingSource, gyms RatingStore, search SearchInvalidator) *RatingUpdater {
	return &RatingUpdater{reviews: reviews, gyms: gyms, search: search}
}

// Average is the mean rating rounded to one decimal place; zero without ratings.
func Average(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}

	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return math.Round(avg*10) / 10
}

func (u *RatingUpdater) Update(ctx context.Context, gymID int) error {
	ratings, err := u.reviews.Ratings(ctx, gymID)
	if err != nil {
		return fmt.Errorf("load ratings of gym %d: %w", gymID, err)
	}

	rating := Average(ratings)
	if err := u.gyms.UpdateRating(ctx, gymID, rating, len(ratings)); err != nil {
		return fmt.Errorf("update rating of gym %d: %w", gymID, err)
	}

	if u.search != nil {
		u.search.InvalidateSearch(ctx)
	}

	logger.Info("Gym rating updated", "gym_id", gymID, "rating", rating, "review_count", len(ratings))
	return nil
}

func (u *RatingUpdater) OutboxHandler() outbox.Handler {
	return func(ctx context.Context, ev outbox.Event) error {
		var p outbox.ReviewPayload
		if err := ev.Decode(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Type, err)
		}
		return u.Update(ctx, p.GymID)
	}
}
