package domain

import "time"

type RideStatus string

const (
	RideStatusActive    RideStatus = "ACTIVE"
	RideStatusCompleted RideStatus = "COMPLETED"
	RideStatusCancelled RideStatus = "CANCELLED"
)

type Ride struct {
	ID             int64      `json:"id"`
	DriverID       int64      `json:"driver_id"`
	FromLocation   string     `json:"from"`
	ToLocation     string     `json:"to"`
	DepartureAt    time.Time  `json:"departure_at"`
	TotalSeats     int        `json:"total_seats"`
	AvailableSeats int        `json:"available_seats"`
	PriceCents     int64      `json:"price_cents"`
	CarModel       string     `json:"car_model"`
	CarNumber      string     `json:"car_number"`
	AdditionalInfo string     `json:"additional_info,omitempty"`
	InstantBooking bool       `json:"instant_booking"`
	Status         RideStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BookedSeats is the number of seats held by non-terminal bookings.
// Invariant: AvailableSeats = TotalSeats - BookedSeats.
func (r *Ride) BookedSeats() int {
	return r.TotalSeats - r.AvailableSeats
}

func (r *Ride) Departed(now time.Time) bool {
	return r.DepartureAt.Before(now)
}
