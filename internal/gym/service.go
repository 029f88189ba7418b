package gym

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"fitclub/internal/auth"
	"fitclub/internal/logger"
)

var (
	ErrGymNotFound   = errors.New("gym not found")
	ErrClassNotFound = errors.New("class not found")
	ErrClassInvalid  = errors.New("invalid class: end must be after start and capacity at least 1")
	ErrNotGymOwner   = errors.New("gym is managed by another partner")
)

const defaultCategory = "fitness"

// Cache is the search result cache used by the service. A nil Cache
// disables caching.
type Cache interface {
	Get(ctx context.Context, f SearchFilter) ([]Gym, int, string, bool)
	Set(ctx context.Context, version string, f SearchFilter, gyms []Gym, total int)
	Invalidate(ctx context.Context)
}

type Service interface {
	Search(ctx context.Context, f SearchFilter) ([]Gym, int, error)
	GetGym(ctx context.Context, id int) (*Gym, error)
	CreateGym(ctx context.Context, actor auth.Actor, req CreateGymRequest) (*Gym, error)
	UpdateGym(ctx context.Context, actor auth.Actor, id int, req UpdateGymRequest) (*Gym, error)
	ListMyGyms(ctx context.Context, actor auth.Actor) ([]Gym, error)
	CreateClass(ctx context.Context, actor auth.Actor, gymID int, req CreateClassRequest) (*Class, error)
	GetClasses(ctx context.Context, gymID int, onlyFuture bool) ([]ClassWithAvailability, error)
	// EnsureManager checks that actor may manage the gym: admins manage every
	// gym, partners only their own.
	EnsureManager(ctx context.Context, actor auth.Actor, gymID int) (*Gym, error)
	InvalidateSearch(ctx context.Context)
}

type service struct {
	repo  Repository
	cache Cache
}

func NewService(repo Repository, cache Cache) Service {
	return &service{
		repo:  repo,
		cache: cache,
	}
}

func (s *service) Search(ctx context.Context, f SearchFilter) ([]Gym, int, error) {
	f.Query = strings.TrimSpace(f.Query)

	var version string
	if s.cache != nil {
		gyms, total, v, ok := s.cache.Get(ctx, f)
		if ok {
			return gyms, total, nil
		}
		version = v
	}

	gyms, total, err := s.repo.SearchGyms(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, version, f, gyms, total)
	}
	return gyms, total, nil
}

func (s *service) GetGym(ctx context.Context, id int) (*Gym, error) {
	return s.repo.GetGymByID(ctx, id)
}

func (s *service) CreateGym(ctx context.Context, actor auth.Actor, req CreateGymRequest) (*Gym, error) {
	g := &Gym{
		Name:     req.Name,
		Location: req.Location,
		City:     req.City,
		Category: req.Category,
		Features: pq.StringArray(req.Features),
	}
	if g.Category == "" {
		g.Category = defaultCategory
	}

	switch actor.Role {
	case auth.RolePartner:
		partnerID := actor.UserID
		g.PartnerID = &partnerID
	case auth.RoleAdmin:
		g.PartnerID = req.PartnerID
	default:
		return nil, ErrNotGymOwner
	}

	created, err := s.repo.CreateGym(ctx, g)
	if err != nil {
		return nil, err
	}

	logger.Info("Gym created", "gym_id", created.ID, "actor_id", actor.UserID)
	s.InvalidateSearch(ctx)
	return created, nil
}

func (s *service) UpdateGym(ctx context.Context, actor auth.Actor, id int, req UpdateGymRequest) (*Gym, error) {
	if _, err := s.EnsureManager(ctx, actor, id); err != nil {
		return nil, err
	}

	if req.Category == "" {
		req.Category = defaultCategory
	}

	g, err := s.repo.UpdateGym(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.InvalidateSearch(ctx)
	return g, nil
}

func (s *service) ListMyGyms(ctx context.Context, actor auth.Actor) ([]Gym, error) {
	return s.repo.ListByPartner(ctx, actor.UserID)
}

func (s *service) CreateClass(ctx context.Context, actor auth.Actor, gymID int, req CreateClassRequest) (*Class, error) {
	if _, err := s.EnsureManager(ctx, actor, gymID); err != nil {
		return nil, err
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, ErrClassInvalid
	}

	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return nil, ErrClassInvalid
	}

	if !endTime.After(startTime) || req.Capacity < 1 {
		return nil, ErrClassInvalid
	}

	return s.repo.CreateClass(ctx, gymID, req.Title, startTime, endTime, req.Capacity)
}

func (s *service) GetClasses(ctx context.Context, gymID int, onlyFuture bool) ([]ClassWithAvailability, error) {
	if _, err := s.repo.GetGymByID(ctx, gymID); err != nil {
		return nil, err
	}

	classes, err := s.repo.GetClassesByGym(ctx, gymID, onlyFuture)
	if err != nil {
		return nil, err
	}

	result := make([]ClassWithAvailability, 0, len(classes))
	for _, c := range classes {
		result = append(result, c.WithAvailability())
	}
	return result, nil
}

func (s *service) EnsureManager(ctx context.Context, actor auth.Actor, gymID int) (*Gym, error) {
	g, err := s.repo.GetGymByID(ctx, gymID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Is(auth.RoleAdmin):
		return g, nil
	case actor.Is(auth.RolePartner) && g.OwnedBy(actor.UserID):
		return g, nil
	default:
		return nil, ErrNotGymOwner
	}
}

func (s *service) InvalidateSearch(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
