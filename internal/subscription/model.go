package subscription

import (
	"strings"
	"time"
)

type Tier string
type Status string

const (
	TierBasic   Tier = "basic"
	TierRegular Tier = "regular"
	TierPremium Tier = "premium"

	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Monthly booking quota per tier. Premium is effectively unlimited.
var quotas = map[Tier]int{
	TierBasic:   4,
	TierRegular: 8,
	TierPremium: 999,
}

// Quota returns the monthly booking quota of a tier. Unknown tiers get the
// basic quota.
func Quota(t Tier) int {
	if q, ok := quotas[t]; ok {
		return q
	}
	return quotas[TierBasic]
}

func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	_, ok := quotas[t]
	return t, ok
}

type Subscription struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	PlanName  string    `db:"plan_name" json:"plan_name"`
	Tier      Tier      `db:"tier" json:"tier"`
	Status    Status    `db:"status" json:"status"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Plan struct {
	Name            string `json:"name" example:"Regular"`
	Tier            Tier   `json:"tier" example:"regular"`
	Description     string `json:"description"`
	PriceCents      int64  `json:"price_cents" example:"18000"`
	MonthlyBookings int    `json:"monthly_bookings" example:"8"`
}

func Plans() []Plan {
	return []Plan{
		{
			Name:            "Basic",
			Tier:            TierBasic,
			Description:     "Any gym, 4 bookings per month",
			PriceCents:      10000,
			MonthlyBookings: Quota(TierBasic),
		},
		{
			Name:            "Regular",
			Tier:            TierRegular,
			Description:     "Any gym, 8 bookings per month",
			PriceCents:      18000,
			MonthlyBookings: Quota(TierRegular),
		},
		{
			Name:            "Premium",
			Tier:            TierPremium,
			Description:     "Any gym, unlimited bookings",
			PriceCents:      25000,
			MonthlyBookings: Quota(TierPremium),
		},
	}
}

func FindPlan(tier Tier) (Plan, bool) {
	for _, p := range Plans() {
		if p.Tier == tier {
			return p, true
		}
	}
	return Plan{}, false
}

// CreateRequest picks a plan by tier. The stored plan name comes from the
// tier's catalog entry.
type CreateRequest struct {
	Tier   string `json:"tier" binding:"required,oneof=basic regular premium" example:"regular"`
	Months int    `json:"months" binding:"required,min=1,max=12" example:"1"`
}
