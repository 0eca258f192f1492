package user

import "time"

// User is a registered canvas participant with a credit balance.
// LifetimePaidPlacements only counts placements that were actually charged;
// free placements never advance it.
type User struct {
	ID                     int64     `json:"id"`
	Handle                 string    `json:"handle"`
	Credits                int64     `json:"credit_balance"`
	LifetimePaidPlacements int64     `json:"lifetime_paid_placements"`
	CreatedAt              time.Time `json:"created_at"`
}
