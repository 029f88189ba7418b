package review

import "time"

type Review struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	GymID     int       `db:"gym_id" json:"gym_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type ReviewWithAuthor struct {
	Review
	UserName string `db:"user_name" json:"user_name"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5" example:"5"`
	Comment string `json:"comment" binding:"max=2000" example:"Clean locker rooms, friendly coaches"`
}
