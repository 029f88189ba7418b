package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"fitclub/internal/auth"
	"fitclub/internal/db"
	"fitclub/internal/outbox"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

type Repository interface {
	Create(ctx context.Context, name, email string, phone *string, passwordHash string, role auth.Role) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]User, int, error)

	// UpdateRole and SetBlocked record a notification event in the same
	// transaction as the change.
	UpdateRole(ctx context.Context, id int, role auth.Role) (*User, error)
	SetBlocked(ctx context.Context, id int, blocked bool) (*User, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, name, email, phone, password_hash, role, blocked, created_at, updated_at`

func (r *repository) Create(ctx context.Context, name, email string, phone *string, passwordHash string, role auth.Role) (*User, error) {
	query := `
		INSERT INTO users (name, email, phone, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	var user User
	err := r.db.GetContext(ctx, &user, query, name, email, phone, passwordHash, role)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *repository) FindByID(ctx context.Context, id int) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *repository) findOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	var user User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, err
	}

	users := []User{}
	err := r.db.SelectContext(ctx, &users, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *repository) UpdateRole(ctx context.Context, id int, role auth.Role) (*User, error) {
	return r.updateWithEvent(ctx, outbox.EventUserRoleChanged, `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, role,
	)
}

func (r *repository) SetBlocked(ctx context.Context, id int, blocked bool) (*User, error) {
	event := outbox.EventUserUnblocked
	if blocked {
		event = outbox.EventUserBlocked
	}

	return r.updateWithEvent(ctx, event, `
		UPDATE users
		SET blocked = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, blocked,
	)
}

func (r *repository) updateWithEvent(ctx context.Context, event outbox.EventType, query string, args ...interface{}) (*User, error) {
	var user User

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &user, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		return outbox.Enqueue(ctx, tx, event, user.ID, outbox.UserPayload{
			UserID:  user.ID,
			Email:   user.Email,
			Name:    user.Name,
			Role:    user.Role.String(),
			Blocked: user.Blocked,
		})
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}
