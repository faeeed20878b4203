package repository

import (
	"context"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateRatingStats(ctx context.Context, id int64, rating float64, totalRides int) error
}

type PGUserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PGUserRepository{db: db}
}

func (r *PGUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, first_name, last_name, email, phone, rating, total_rides, created_at, updated_at
		FROM users WHERE id=$1`, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone,
		&u.Rating, &u.TotalRides, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}

// UpdateRatingStats is the only writer of the rating-derived user fields.
func (r *PGUserRepository) UpdateRatingStats(ctx context.Context, id int64, rating float64, totalRides int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET rating=$2, total_rides=$3, updated_at=now() WHERE id=$1`,
		id, rating, totalRides)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ UserRepository = (*PGUserRepository)(nil)
