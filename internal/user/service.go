package user

import (
	"context"
	"errors"
	"fmt"

	"fitclub/internal/auth"
	"fitclub/internal/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBlocked        = errors.New("account is blocked")
	ErrSelfModification   = errors.New("admins cannot change their own role or block themselves")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, *User, error)
	Me(ctx context.Context, actor auth.Actor) (*User, error)

	ListUsers(ctx context.Context, limit, offset int) ([]User, int, error)
	ChangeRole(ctx context.Context, actor auth.Actor, userID int, role auth.Role) (*User, error)
	Block(ctx context.Context, actor auth.Actor, userID int) (*User, error)
	Unblock(ctx context.Context, actor auth.Actor, userID int) (*User, error)
}

type service struct {
	repo          Repository
	accessSecret  string
	refreshSecret string
}

func NewService(repo Repository, accessSecret, refreshSecret string) Service {
	return &service{
		repo:          repo,
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
	}
}

func (s *service) issueTokens(user *User) (string, string, error) {
	return auth.GenerateTokens(user.ID, user.Email, user.Role, s.accessSecret, s.refreshSecret)
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, "", "", err
	}
	if exists {
		return nil, "", "", ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", err
	}

	user, err := s.repo.Create(ctx, req.Name, req.Email, req.Phone, passwordHash, auth.RoleUser)
	if err != nil {
		return nil, "", "", err
	}

	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return nil, "", "", err
	}

	logger.Info("User registered", "user_id", user.ID)
	return user, accessToken, refreshToken, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	if user.Blocked {
		return nil, "", "", ErrUserBlocked
	}

	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return nil, "", "", err
	}

	return user, accessToken, refreshToken, nil
}

// RefreshToken issues a new access token. The role is re-read from the
// database so role changes apply at the next refresh.
func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	claims, err := auth.ValidateRefreshToken(refreshToken, s.refreshSecret)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidRefresh, err)
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, err
	}

	if user.Blocked {
		return "", nil, ErrUserBlocked
	}

	accessToken, err := auth.GenerateAccessToken(user.ID, user.Email, user.Role, s.accessSecret)
	if err != nil {
		return "", nil, err
	}

	return accessToken, user, nil
}

func (s *service) Me(ctx context.Context, actor auth.Actor) (*User, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}
	return s.repo.FindByID(ctx, actor.UserID)
}

func (s *service) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *service) ChangeRole(ctx context.Context, actor auth.Actor, userID int, role auth.Role) (*User, error) {
	if !role.Valid() {
		return nil, auth.ErrUnknownRole
	}
	if actor.UserID == userID {
		return nil, ErrSelfModification
	}

	user, err := s.repo.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	logger.Info("User role changed", "user_id", userID, "role", role, "admin_id", actor.UserID)
	return user, nil
}

func (s *service) Block(ctx context.Context, actor auth.Actor, userID int) (*User, error) {
	if actor.UserID == userID {
		return nil, ErrSelfModification
	}

	user, err := s.repo.SetBlocked(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	logger.Info("User blocked", "user_id", userID, "admin_id", actor.UserID)
	return user, nil
}

func (s *service) Unblock(ctx context.Context, actor auth.Actor, userID int) (*User, error) {
	user, err := s.repo.SetBlocked(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	logger.Info("User unblocked", "user_id", userID, "admin_id", actor.UserID)
	return user, nil
}
