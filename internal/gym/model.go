package gym

import (
	"time"

	"github.com/lib/pq"
)

type Gym struct {
	ID          int            `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Location    string         `db:"location" json:"location"`
	City        string         `db:"city" json:"city"`
	Category    string         `db:"category" json:"category"`
	Rating      float64        `db:"rating" json:"rating"`
	ReviewCount int            `db:"review_count" json:"review_count"`
	Features    pq.StringArray `db:"features" json:"features" swaggertype:"array,string"`
	PartnerID   *int           `db:"partner_id" json:"partner_id,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// OwnedBy reports whether the gym is managed by the given partner.
func (g *Gym) OwnedBy(userID int) bool {
	return g.PartnerID != nil && *g.PartnerID == userID
}

type Class struct {
	ID          int       `db:"id" json:"id"`
	GymID       int       `db:"gym_id" json:"gym_id"`
	Title       string    `db:"title" json:"title"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	Capacity    int       `db:"capacity" json:"capacity"`
	BookedCount int       `db:"booked_count" json:"booked_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ClassWithAvailability struct {
	Class
	Available int  `json:"available"`
	IsFull    bool `json:"is_full"`
}

func (c Class) WithAvailability() ClassWithAvailability {
	available := c.Capacity - c.BookedCount
	if available < 0 {
		available = 0
	}
	return ClassWithAvailability{Class: c, Available: available, IsFull: available == 0}
}

type SearchFilter struct {
	Query    string `json:"q,omitempty"`
	City     string `json:"city,omitempty"`
	Category string `json:"category,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type CreateGymRequest struct {
	Name      string   `json:"name" binding:"required" example:"Iron Temple"`
	Location  string   `json:"location" binding:"required" example:"12 Abay Ave"`
	City      string   `json:"city" binding:"required" example:"Almaty"`
	Category  string   `json:"category" example:"fitness"`
	Features  []string `json:"features" example:"sauna,pool"`
	PartnerID *int     `json:"partner_id,omitempty"`
}

type UpdateGymRequest struct {
	Name     string   `json:"name" binding:"required"`
	Location string   `json:"location" binding:"required"`
	City     string   `json:"city" binding:"required"`
	Category string   `json:"category"`
	Features []string `json:"features"`
}

type CreateClassRequest struct {
	Title     string `json:"title" binding:"required" example:"Morning yoga"`
	StartTime string `json:"start_time" binding:"required" example:"2025-01-10T09:00:00Z"`
	EndTime   string `json:"end_time" binding:"required" example:"2025-01-10T10:00:00Z"`
	Capacity  int    `json:"capacity" binding:"required,min=1" example:"12"`
}
