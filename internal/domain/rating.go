package domain

import "time"

// Rating is immutable once created. Uniqueness is keyed by (ride, rater).
type Rating struct {
	ID        int64     `json:"id"`
	RideID    int64     `json:"ride_id"`
	RaterID   int64     `json:"rater_id"`
	RateeID   int64     `json:"ratee_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
