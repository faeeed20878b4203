package repository

import (
	"context"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RatingRepository interface {
	Create(ctx context.Context, rating *domain.Rating) error
	ExistsByRideAndRater(ctx context.Context, rideID, raterID int64) (bool, error)
	ListRecentByRatee(ctx context.Context, rateeID int64, limit int) ([]domain.Rating, error)
	AverageForUser(ctx context.Context, userID int64) (float64, bool, error)
}

type PGRatingRepository struct {
	db *pgxpool.Pool
}

func NewRatingRepository(db *pgxpool.Pool) RatingRepository {
	return &PGRatingRepository{db: db}
}

func (r *PGRatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	err := r.db.QueryRow(ctx, `INSERT INTO ratings (ride_id, rater_id, ratee_id, score, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		rating.RideID, rating.RaterID, rating.RateeID, rating.Score, rating.Comment).
		Scan(&rating.ID, &rating.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateRating
	}
	return err
}

func (r *PGRatingRepository) ExistsByRideAndRater(ctx context.Context, rideID, raterID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ratings WHERE ride_id=$1 AND rater_id=$2)`,
		rideID, raterID).Scan(&exists)
	return exists, err
}

func (r *PGRatingRepository) ListRecentByRatee(ctx context.Context, rateeID int64, limit int) ([]domain.Rating, error) {
	rows, err := r.db.Query(ctx, `SELECT id, ride_id, rater_id, ratee_id, score, comment, created_at
		FROM ratings WHERE ratee_id=$1 ORDER BY created_at DESC LIMIT $2`, rateeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		var rating domain.Rating
		if err := rows.Scan(&rating.ID, &rating.RideID, &rating.RaterID, &rating.RateeID,
			&rating.Score, &rating.Comment, &rating.CreatedAt); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

// AverageForUser returns the mean score received by the user and whether any
// ratings exist at all.
func (r *PGRatingRepository) AverageForUser(ctx context.Context, userID int64) (float64, bool, error) {
	var avg *float64
	if err := r.db.QueryRow(ctx, `SELECT AVG(score) FROM ratings WHERE ratee_id=$1`, userID).Scan(&avg); err != nil {
		return 0, false, err
	}
	if avg == nil {
		return 0, false, nil
	}
	return *avg, true, nil
}

var _ RatingRepository = (*PGRatingRepository)(nil)
