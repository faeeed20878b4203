package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rideColumns = `id, driver_id, from_location, to_location, departure_at, total_seats, available_seats, price_cents, car_model, car_number, additional_info, instant_booking, status, created_at, updated_at`

// RideFilter narrows ride listings. Zero values mean "no constraint".
type RideFilter struct {
	From          string
	To            string
	DateFrom      *time.Time
	DateTo        *time.Time
	MinSeats      int
	MinPriceCents int64
	MaxPriceCents int64
	Limit         int
	Offset        int
}

type RideRepository interface {
	Create(ctx context.Context, ride *domain.Ride) error
	GetByID(ctx context.Context, id int64) (*domain.Ride, error)
	Search(ctx context.Context, filter RideFilter) ([]domain.Ride, error)
	ListByDriver(ctx context.Context, driverID int64) ([]domain.Ride, error)
	DistinctFromLocations(ctx context.Context) ([]string, error)
	DistinctToLocations(ctx context.Context) ([]string, error)
	Update(ctx context.Context, ride *domain.Ride) (*domain.Ride, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.RideStatus) (*domain.Ride, error)
	CancelWithBookings(ctx context.Context, id int64) (*domain.Ride, []domain.Booking, error)
	Delete(ctx context.Context, id int64) error
	CompleteDepartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ride, error)
	CountCompletedByDriver(ctx context.Context, driverID int64) (int, error)
	CountCompletedByPassenger(ctx context.Context, passengerID int64) (int, error)
}

type PGRideRepository struct {
	db     *pgxpool.Pool
	ledger SeatLedger
}

func NewRideRepository(db *pgxpool.Pool) RideRepository {
	return &PGRideRepository{db: db, ledger: NewSeatLedger()}
}

func (r *PGRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	ride.Status = domain.RideStatusActive
	ride.AvailableSeats = ride.TotalSeats
	return r.db.QueryRow(ctx, `INSERT INTO rides (driver_id, from_location, to_location, departure_at, total_seats, available_seats, price_cents, car_model, car_number, additional_info, instant_booking, status)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		ride.DriverID, ride.FromLocation, ride.ToLocation, ride.DepartureAt, ride.TotalSeats,
		ride.PriceCents, ride.CarModel, ride.CarNumber, ride.AdditionalInfo, ride.InstantBooking, ride.Status).
		Scan(&ride.ID, &ride.CreatedAt, &ride.UpdatedAt)
}

func (r *PGRideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	row := r.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=$1`, id)
	ride, err := scanRide(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return ride, nil
}

func (r *PGRideRepository) Search(ctx context.Context, filter RideFilter) ([]domain.Ride, error) {
	conds := []string{`status = 'ACTIVE'`}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.From != "" {
		conds = append(conds, `from_location ILIKE '%' || `+arg(filter.From)+` || '%'`)
	}
	if filter.To != "" {
		conds = append(conds, `to_location ILIKE '%' || `+arg(filter.To)+` || '%'`)
	}
	if filter.DateFrom != nil {
		conds = append(conds, `departure_at >= `+arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		conds = append(conds, `departure_at <= `+arg(*filter.DateTo))
	}
	if filter.MinSeats > 0 {
		conds = append(conds, `available_seats >= `+arg(filter.MinSeats))
	}
	if filter.MinPriceCents > 0 {
		conds = append(conds, `price_cents >= `+arg(filter.MinPriceCents))
	}
	if filter.MaxPriceCents > 0 {
		conds = append(conds, `price_cents <= `+arg(filter.MaxPriceCents))
	}

	query := `SELECT ` + rideColumns + ` FROM rides WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY departure_at`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRides(rows)
}

func (r *PGRideRepository) ListByDriver(ctx context.Context, driverID int64) ([]domain.Ride, error) {
	rows, err := r.db.Query(ctx, `SELECT `+rideColumns+` FROM rides WHERE driver_id=$1 ORDER BY departure_at DESC`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRides(rows)
}

func (r *PGRideRepository) DistinctFromLocations(ctx context.Context) ([]string, error) {
	return r.distinctLocations(ctx, `SELECT DISTINCT from_location FROM rides ORDER BY from_location`)
}

func (r *PGRideRepository) DistinctToLocations(ctx context.Context) ([]string, error) {
	return r.distinctLocations(ctx, `SELECT DISTINCT to_location FROM rides ORDER BY to_location`)
}

func (r *PGRideRepository) distinctLocations(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]string, 0)
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// Update applies an edit in one transaction: the seat ceiling moves through
// the ledger, then the remaining fields are written.
func (r *PGRideRepository) Update(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	var updated *domain.Ride
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if _, err := r.ledger.Resize(ctx, tx, ride.ID, ride.TotalSeats); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `UPDATE rides
			SET from_location=$2, to_location=$3, departure_at=$4, price_cents=$5, car_model=$6, car_number=$7, additional_info=$8, instant_booking=$9, updated_at=now()
			WHERE id=$1
			RETURNING `+rideColumns,
			ride.ID, ride.FromLocation, ride.ToLocation, ride.DepartureAt, ride.PriceCents,
			ride.CarModel, ride.CarNumber, ride.AdditionalInfo, ride.InstantBooking)
		updated, err = scanRide(row)
		if err != nil {
			return mapNotFound(err)
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus flips the ride status only from the expected state; a race
// that moved it elsewhere first surfaces as an invalid transition.
func (r *PGRideRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.RideStatus) (*domain.Ride, error) {
	row := r.db.QueryRow(ctx, `UPDATE rides SET status=$3, updated_at=now() WHERE id=$1 AND status=$2 RETURNING `+rideColumns, id, from, to)
	ride, err := scanRide(row)
	if err == nil {
		return ride, nil
	}
	if err := mapNotFound(err); err != domain.ErrNotFound {
		return nil, err
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rides WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrInvalidTransition
}

// CancelWithBookings cancels the ride and force-cancels its live bookings in
// one transaction: either everything flips or nothing does.
func (r *PGRideRepository) CancelWithBookings(ctx context.Context, id int64) (*domain.Ride, []domain.Booking, error) {
	var (
		ride      *domain.Ride
		cancelled []domain.Booking
	)
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		row := tx.QueryRow(ctx, `UPDATE rides SET status='CANCELLED', updated_at=now()
			WHERE id=$1 AND status='ACTIVE'
			RETURNING `+rideColumns, id)
		ride, err = scanRide(row)
		if err != nil {
			if err := mapNotFound(err); err == domain.ErrNotFound {
				return domain.ErrInvalidTransition
			}
			return err
		}

		rows, err := tx.Query(ctx, `UPDATE bookings
			SET status='CANCELLED',
			    payment_status = CASE WHEN payment_status='COMPLETED' THEN 'REFUNDED' ELSE payment_status END,
			    updated_at=now()
			WHERE ride_id=$1 AND status IN ('PENDING','CONFIRMED')
			RETURNING `+bookingColumns, id)
		if err != nil {
			return err
		}
		cancelled, err = scanBookings(rows)
		if err != nil {
			return err
		}

		released := 0
		for _, b := range cancelled {
			released += b.SeatsBooked
		}
		if released > 0 {
			if err := r.ledger.Release(ctx, tx, id, released); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, nil, err
	}
	return ride, cancelled, nil
}

func (r *PGRideRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM rides WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGRideRepository) CompleteDepartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ride, error) {
	rows, err := r.db.Query(ctx, `UPDATE rides SET status='COMPLETED', updated_at=now()
		WHERE status='ACTIVE' AND departure_at <= $1
		RETURNING `+rideColumns, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRides(rows)
}

func (r *PGRideRepository) CountCompletedByDriver(ctx context.Context, driverID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM rides WHERE driver_id=$1 AND status='COMPLETED'`, driverID).Scan(&count)
	return count, err
}

func (r *PGRideRepository) CountCompletedByPassenger(ctx context.Context, passengerID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings b
		JOIN rides r ON r.id = b.ride_id
		WHERE b.passenger_id=$1 AND b.status='CONFIRMED' AND r.status='COMPLETED'`, passengerID).Scan(&count)
	return count, err
}

func scanRide(row pgx.Row) (*domain.Ride, error) {
	var ride domain.Ride
	if err := row.Scan(&ride.ID, &ride.DriverID, &ride.FromLocation, &ride.ToLocation, &ride.DepartureAt,
		&ride.TotalSeats, &ride.AvailableSeats, &ride.PriceCents, &ride.CarModel, &ride.CarNumber,
		&ride.AdditionalInfo, &ride.InstantBooking, &ride.Status, &ride.CreatedAt, &ride.UpdatedAt); err != nil {
		return nil, err
	}
	return &ride, nil
}

func scanRides(rows pgx.Rows) ([]domain.Ride, error) {
	rides := make([]domain.Ride, 0)
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, *ride)
	}
	return rides, rows.Err()
}

var _ RideRepository = (*PGRideRepository)(nil)
