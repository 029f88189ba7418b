package stats

import (
	"database/sql"
	"time"
)

type Action string

const (
	ActionBookingCreated   Action = "booking_created"
	ActionWorkoutCompleted Action = "workout_completed"
	ActionBookingCancelled Action = "booking_cancelled"
)

// HoursPerWorkout is credited to total_hours_trained for every completed workout.
const HoursPerWorkout = 1.5

type UserStats struct {
	UserID            int          `db:"user_id" json:"user_id"`
	TotalBookings     int          `db:"total_bookings" json:"total_bookings"`
	CompletedWorkouts int          `db:"completed_workouts" json:"completed_workouts"`
	CurrentStreakDays int          `db:"current_streak_days" json:"current_streak_days"`
	BestStreakDays    int          `db:"best_streak_days" json:"best_streak_days"`
	TotalHoursTrained float64      `db:"total_hours_trained" json:"total_hours_trained"`
	LastWorkoutDate   sql.NullTime `db:"last_workout_date" json:"-" swaggerignore:"true"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

type Response struct {
	UserID            int        `json:"user_id" example:"1"`
	TotalBookings     int        `json:"total_bookings" example:"12"`
	CompletedWorkouts int        `json:"completed_workouts" example:"9"`
	CurrentStreakDays int        `json:"current_streak_days" example:"3"`
	BestStreakDays    int        `json:"best_streak_days" example:"5"`
	TotalHoursTrained float64    `json:"total_hours_trained" example:"13.5"`
	LastWorkoutDate   *time.Time `json:"last_workout_date,omitempty"`
}

func (s UserStats) ToResponse() Response {
	resp := Response{
		UserID:            s.UserID,
		TotalBookings:     s.TotalBookings,
		CompletedWorkouts: s.CompletedWorkouts,
		CurrentStreakDays: s.CurrentStreakDays,
		BestStreakDays:    s.BestStreakDays,
		TotalHoursTrained: s.TotalHoursTrained,
	}
	if s.LastWorkoutDate.Valid {
		t := s.LastWorkoutDate.Time
		resp.LastWorkoutDate = &t
	}
	return resp
}
