package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/jackc/pgx/v5"
)

// SeatLedger owns every statement that touches a ride's seat counters, so
// the invariant available_seats = total_seats - seats held by live bookings
// has a single writer. Callers pass the transaction that also carries the
// booking-row write the seat change belongs to; no intermediate state is
// observable outside that transaction.
type SeatLedger struct{}

func NewSeatLedger() SeatLedger {
	return SeatLedger{}
}

// Reserve decrements available_seats by seats. The conditional update is the
// write-conflict guard: of two concurrent reservations against the last
// seats, one matches zero rows and fails here instead of over-committing.
func (SeatLedger) Reserve(ctx context.Context, q Querier, rideID int64, seats int) (int, error) {
	var available int
	err := q.QueryRow(ctx, `UPDATE rides
		SET available_seats = available_seats - $2, updated_at = now()
		WHERE id = $1 AND status = 'ACTIVE' AND available_seats >= $2
		RETURNING available_seats`, rideID, seats).Scan(&available)
	if err == nil {
		return available, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// Nothing matched: classify why.
	var status domain.RideStatus
	if err := q.QueryRow(ctx, `SELECT status, available_seats FROM rides WHERE id = $1`,
		rideID).Scan(&status, &available); err != nil {
		return 0, mapNotFound(err)
	}
	if status != domain.RideStatusActive {
		return 0, domain.ErrRideNotBookable
	}
	return available, fmt.Errorf("%w: available %d, requested %d", domain.ErrInventoryExhausted, available, seats)
}

// Release returns seats to the pool, capped at total_seats so a replayed
// release cannot push the counter past capacity.
func (SeatLedger) Release(ctx context.Context, q Querier, rideID int64, seats int) error {
	_, err := q.Exec(ctx, `UPDATE rides
		SET available_seats = LEAST(available_seats + $2, total_seats), updated_at = now()
		WHERE id = $1`, rideID, seats)
	return err
}

// Resize moves the seat ceiling, keeping booked seats committed:
// available becomes newTotal minus currently booked.
func (SeatLedger) Resize(ctx context.Context, q Querier, rideID int64, newTotal int) (int, error) {
	var available int
	err := q.QueryRow(ctx, `UPDATE rides
		SET total_seats = $2, available_seats = $2 - (total_seats - available_seats), updated_at = now()
		WHERE id = $1 AND total_seats - available_seats <= $2
		RETURNING available_seats`, rideID, newTotal).Scan(&available)
	if err == nil {
		return available, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var booked int
	if err := q.QueryRow(ctx, `SELECT total_seats - available_seats FROM rides WHERE id = $1`,
		rideID).Scan(&booked); err != nil {
		return 0, mapNotFound(err)
	}
	return 0, fmt.Errorf("%w: booked %d, requested %d", domain.ErrCapacityBelowDemand, booked, newTotal)
}
