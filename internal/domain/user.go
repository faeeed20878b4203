package domain

import "time"

// User carries the rating-derived fields. Rating and TotalRides are written
// only by the rating aggregator, never by other code paths.
type User struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Rating     float64   `json:"rating"`
	TotalRides int       `json:"total_rides"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
