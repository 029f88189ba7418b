package gym

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	CreateGym(ctx context.Context, g *Gym) (*Gym, error)
	UpdateGym(ctx context.Context, id int, req UpdateGymRequest) (*Gym, error)
	GetGymByID(ctx context.Context, id int) (*Gym, error)
	SearchGyms(ctx context.Context, f SearchFilter) ([]Gym, int, error)
	ListByPartner(ctx context.Context, partnerID int) ([]Gym, error)
	UpdateRating(ctx context.Context, gymID int, rating float64, reviewCount int) error
	CreateClass(ctx context.Context, gymID int, title string, startTime, endTime time.Time, capacity int) (*Class, error)
	GetClassByID(ctx context.Context, id int) (*Class, error)
	GetClassesByGym(ctx context.Context, gymID int, onlyFuture bool) ([]Class, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const gymColumns = `id, name, location, city, category, rating, review_count, features, partner_id, created_at, updated_at`

const classColumns = `id, gym_id, title, start_time, end_time, capacity, booked_count, created_at`

func (r *repository) CreateGym(ctx context.Context, g *Gym) (*Gym, error) {
	query := `
		INSERT INTO gyms (name, location, city, category, features, partner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + gymColumns

	features := pq.StringArray(g.Features)
	if features == nil {
		features = pq.StringArray{}
	}

	var created Gym
	err := r.db.GetContext(ctx, &created, query,
		g.Name, g.Location, g.City, g.Category, features, g.PartnerID)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) UpdateGym(ctx context.Context, id int, req UpdateGymRequest) (*Gym, error) {
	query := `
		UPDATE gyms
		SET name = $2, location = $3, city = $4, category = $5, features = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + gymColumns

	var g Gym
	err := r.db.GetContext(ctx, &g, query,
		id, req.Name, req.Location, req.City, req.Category, pq.StringArray(req.Features))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}

	return &g, nil
}

func (r *repository) GetGymByID(ctx context.Context, id int) (*Gym, error) {
	query := `
		SELECT ` + gymColumns + `
		FROM gyms
		WHERE id = $1
	`

	var g Gym
	err := r.db.GetContext(ctx, &g, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}

	return &g, nil
}

func (r *repository) SearchGyms(ctx context.Context, f SearchFilter) ([]Gym, int, error) {
	var (
		conds []string
		args  []interface{}
	)

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if f.City != "" {
		args = append(args, f.City)
		conds = append(conds, fmt.Sprintf("city = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM gyms"+where, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	query := fmt.Sprintf("SELECT %s FROM gyms%s ORDER BY rating DESC, id LIMIT $%d OFFSET $%d",
		gymColumns, where, len(args)-1, len(args))

	gyms := []Gym{}
	if err := r.db.SelectContext(ctx, &gyms, query, args...); err != nil {
		return nil, 0, err
	}

	return gyms, total, nil
}

func (r *repository) ListByPartner(ctx context.Context, partnerID int) ([]Gym, error) {
	query := `
		SELECT ` + gymColumns + `
		FROM gyms
		WHERE partner_id = $1
		ORDER BY created_at DESC
	`

	gyms := []Gym{}
	err := r.db.SelectContext(ctx, &gyms, query, partnerID)
	return gyms, err
}

func (r *repository) UpdateRating(ctx context.Context, gymID int, rating float64, reviewCount int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE gyms
		SET rating = $2, review_count = $3, updated_at = NOW()
		WHERE id = $1
	`, gymID, rating, reviewCount)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrGymNotFound
	}
	return nil
}

func (r *repository) CreateClass(ctx context.Context, gymID int, title string, startTime, endTime time.Time, capacity int) (*Class, error) {
	query := `
		INSERT INTO classes (gym_id, title, start_time, end_time, capacity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + classColumns

	var class Class
	err := r.db.GetContext(ctx, &class, query, gymID, title, startTime, endTime, capacity)
	if err != nil {
		return nil, err
	}

	return &class, nil
}

func (r *repository) GetClassByID(ctx context.Context, id int) (*Class, error) {
	query := `
		SELECT ` + classColumns + `
		FROM classes
		WHERE id = $1
	`

	var class Class
	err := r.db.GetContext(ctx, &class, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	return &class, nil
}

func (r *repository) GetClassesByGym(ctx context.Context, gymID int, onlyFuture bool) ([]Class, error) {
	query := `
		SELECT ` + classColumns + `
		FROM classes
		WHERE gym_id = $1
	`

	if onlyFuture {
		query += " AND start_time > NOW()"
	}

	query += " ORDER BY start_time ASC"

	classes := []Class{}
	err := r.db.SelectContext(ctx, &classes, query, gymID)
	if err != nil {
		return nil, err
	}

	return classes, nil
}
