package user

import (
	"time"

	"fitclub/internal/auth"
)

type User struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         auth.Role `db:"role" json:"role"`
	Blocked      bool      `db:"blocked" json:"blocked"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (u *User) Actor() auth.Actor {
	return auth.Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

type RegisterRequest struct {
	Name     string  `json:"name" binding:"required,min=2,max=255" example:"Aigerim"`
	Email    string  `json:"email" binding:"required,email" example:"aigerim@example.com"`
	Phone    *string `json:"phone,omitempty" binding:"omitempty,max=32" example:"+77011234567"`
	Password string  `json:"password" binding:"required,min=8" example:"supersecret"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"aigerim@example.com"`
	Password string `json:"password" binding:"required" example:"supersecret"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin partner support" example:"partner"`
}
