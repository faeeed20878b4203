package domain

import "errors"

var (
	// ErrNotFound is returned when a ride, booking, rating or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the actor has no right to the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidTransition is returned on a state machine violation.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInventoryExhausted is returned when a ride has fewer seats than requested.
	ErrInventoryExhausted = errors.New("not enough seats available")

	// ErrCapacityBelowDemand is returned when a seat-ceiling edit goes below committed bookings.
	ErrCapacityBelowDemand = errors.New("total seats below booked seats")

	// ErrDuplicateBooking is returned when the passenger already holds a live booking on the ride.
	ErrDuplicateBooking = errors.New("already booked this ride")

	// ErrDuplicateRating is returned when the rater already rated on this ride.
	ErrDuplicateRating = errors.New("already rated this ride")

	// ErrSelfBooking is returned when a driver books their own ride.
	ErrSelfBooking = errors.New("cannot book own ride")

	// ErrRideNotBookable is returned when the ride is not ACTIVE.
	ErrRideNotBookable = errors.New("ride is not available for booking")

	// ErrRideNotEditable is returned when the ride is not ACTIVE.
	ErrRideNotEditable = errors.New("ride is not editable")

	// ErrRideAlreadyDeparted is returned when the scheduled departure is in the past.
	ErrRideAlreadyDeparted = errors.New("ride has already departed")

	// ErrNotAParticipant is returned when the rater or ratee was not in the ride.
	ErrNotAParticipant = errors.New("user did not participate in this ride")

	// ErrConflict is returned after a concurrent modification could not be
	// retried successfully.
	ErrConflict = errors.New("concurrent modification conflict")
)
