package subscription

import (
	"context"
	"errors"
	"time"

	"fitclub/internal/auth"
	"fitclub/internal/logger"
	"fitclub/internal/metrics"
)

var ErrUnknownTier = errors.New("unknown subscription tier")

type Service interface {
	Subscribe(ctx context.Context, actor auth.Actor, tier Tier, months int) (*Subscription, error)
	Cancel(ctx context.Context, actor auth.Actor, subscriptionID int) error
	ListMine(ctx context.Context, actor auth.Actor) ([]Subscription, error)
	ListAll(ctx context.Context, limit, offset int) ([]Subscription, int, error)
	// TierFor returns the active tier of a user, falling back to basic.
	TierFor(ctx context.Context, userID int) (Tier, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Subscribe(ctx context.Context, actor auth.Actor, tier Tier, months int) (*Subscription, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}

	plan, ok := FindPlan(tier)
	if !ok {
		return nil, ErrUnknownTier
	}

	start := s.now()
	sub, err := s.repo.Create(ctx, actor.UserID, plan, start, start.AddDate(0, months, 0))
	if err != nil {
		return nil, err
	}

	logger.Info("Subscription created", "user_id", actor.UserID, "tier", plan.Tier, "months", months)
	metrics.RecordSubscription(string(plan.Tier))
	return sub, nil
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, subscriptionID int) error {
	if !actor.Authenticated() {
		return auth.ErrNotAuthenticated
	}
	return s.repo.Cancel(ctx, actor.UserID, subscriptionID)
}

func (s *service) ListMine(ctx context.Context, actor auth.Actor) ([]Subscription, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}
	return s.repo.ListByUser(ctx, actor.UserID)
}

func (s *service) ListAll(ctx context.Context, limit, offset int) ([]Subscription, int, error) {
	return s.repo.ListAll(ctx, limit, offset)
}

func (s *service) TierFor(ctx context.Context, userID int) (Tier, error) {
	tier, err := s.repo.ActiveTier(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, ErrNoActiveSubscription) {
			return TierBasic, nil
		}
		return "", err
	}
	return tier, nil
}
