package repository

import (
	"context"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, reference, ride_id, passenger_id, seats_booked, amount_cents, status, payment_status, created_at, updated_at`

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByPassenger(ctx context.Context, passengerID int64) ([]domain.Booking, error)
	ListByRide(ctx context.Context, rideID int64, statuses ...domain.BookingStatus) ([]domain.Booking, error)
	HasActive(ctx context.Context, rideID, passengerID int64) (bool, error)
	HasAnyForUser(ctx context.Context, rideID, userID int64) (bool, error)
	Confirm(ctx context.Context, id int64) (*domain.Booking, error)
	Cancel(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateAmount(ctx context.Context, id int64, amountCents int64) error
}

type PGBookingRepository struct {
	db     *pgxpool.Pool
	ledger SeatLedger
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db, ledger: NewSeatLedger()}
}

// Create reserves the seats and inserts the booking row in one transaction.
// The partial unique index on (ride_id, passenger_id) over live bookings
// backs the one-booking-per-passenger invariant under concurrent requests.
func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if _, err := r.ledger.Reserve(ctx, tx, booking.RideID, booking.SeatsBooked); err != nil {
			return err
		}

		booking.Status = domain.BookingStatusPending
		booking.PaymentStatus = domain.PaymentStatusPending
		if err := tx.QueryRow(ctx, `INSERT INTO bookings (reference, ride_id, passenger_id, seats_booked, amount_cents, status, payment_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`,
			booking.Reference, booking.RideID, booking.PassengerID, booking.SeatsBooked,
			booking.AmountCents, booking.Status, booking.PaymentStatus).
			Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateBooking
			}
			return err
		}

		return tx.Commit(ctx)
	})
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	booking, err := scanBooking(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return booking, nil
}

func (r *PGBookingRepository) ListByPassenger(ctx context.Context, passengerID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE passenger_id=$1 ORDER BY created_at DESC`, passengerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *PGBookingRepository) ListByRide(ctx context.Context, rideID int64, statuses ...domain.BookingStatus) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ride_id=$1`
	args := []any{rideID}
	if len(statuses) > 0 {
		args = append(args, statuses)
		query += ` AND status = ANY($2)`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *PGBookingRepository) HasActive(ctx context.Context, rideID, passengerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE ride_id=$1 AND passenger_id=$2 AND status IN ('PENDING','CONFIRMED'))`,
		rideID, passengerID).Scan(&exists)
	return exists, err
}

func (r *PGBookingRepository) HasAnyForUser(ctx context.Context, rideID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE ride_id=$1 AND passenger_id=$2 AND status <> 'CANCELLED')`,
		rideID, userID).Scan(&exists)
	return exists, err
}

// Confirm flips PENDING to CONFIRMED. Seats were already held at creation,
// so the ledger is not involved.
func (r *PGBookingRepository) Confirm(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status='CONFIRMED', updated_at=now()
		WHERE id=$1 AND status='PENDING'
		RETURNING `+bookingColumns, id)
	booking, err := scanBooking(row)
	if err != nil {
		return nil, r.classifyMiss(ctx, id, err)
	}
	return booking, nil
}

// Cancel flips the booking out of {PENDING, CONFIRMED} and releases its
// seats in the same transaction. The status guard makes the release
// idempotent per booking: a replayed cancel matches zero rows and never
// touches the ledger again.
func (r *PGBookingRepository) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	var booking *domain.Booking
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		row := tx.QueryRow(ctx, `UPDATE bookings
			SET status='CANCELLED',
			    payment_status = CASE WHEN payment_status='COMPLETED' THEN 'REFUNDED' ELSE payment_status END,
			    updated_at=now()
			WHERE id=$1 AND status IN ('PENDING','CONFIRMED')
			RETURNING `+bookingColumns, id)
		booking, err = scanBooking(row)
		if err != nil {
			return r.classifyMiss(ctx, id, err)
		}

		if err := r.ledger.Release(ctx, tx, booking.RideID, booking.SeatsBooked); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *PGBookingRepository) UpdateAmount(ctx context.Context, id int64, amountCents int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET amount_cents=$2, updated_at=now() WHERE id=$1`, id, amountCents)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// classifyMiss turns a zero-row guarded update into the right domain error.
func (r *PGBookingRepository) classifyMiss(ctx context.Context, id int64, err error) error {
	if mapNotFound(err) != domain.ErrNotFound {
		return err
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidTransition
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Reference, &b.RideID, &b.PassengerID, &b.SeatsBooked,
		&b.AmountCents, &b.Status, &b.PaymentStatus, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookings(rows pgx.Rows) ([]domain.Booking, error) {
	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
