package review

import (
	"context"

	"fitclub/internal/auth"
	"fitclub/internal/logger"
	"fitclub/internal/metrics"
)

type Service interface {
	Create(ctx context.Context, actor auth.Actor, gymID int, req CreateReviewRequest) (*Review, error)
	ListByGym(ctx context.Context, gymID int) ([]ReviewWithAuthor, error)
	Delete(ctx context.Context, actor auth.Actor, id int) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, actor auth.Actor, gymID int, req CreateReviewRequest) (*Review, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}

	rev, err := s.repo.Create(ctx, actor.UserID, gymID, req.Rating, req.Comment)
	if err != nil {
		return nil, err
	}

	logger.Info("Review created", "review_id", rev.ID, "gym_id", gymID, "user_id", actor.UserID)
	metrics.RecordReview()
	return rev, nil
}

func (s *service) ListByGym(ctx context.Context, gymID int) ([]ReviewWithAuthor, error) {
	return s.repo.ListByGym(ctx, gymID)
}

// Delete is a moderation action; route authorization restricts it to admins.
func (s *service) Delete(ctx context.Context, actor auth.Actor, id int) error {
	rev, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	logger.Info("Review deleted", "review_id", id, "gym_id", rev.GymID, "moderator_id", actor.UserID)
	return nil
}
