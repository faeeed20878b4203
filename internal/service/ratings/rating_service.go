package ratings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/kafka"
	"github.com/Domenick1991/carpool/internal/repository"
	"go.uber.org/zap"
)

type RatingUseCase interface {
	Record(ctx context.Context, input RecordRatingInput) (*domain.Rating, error)
	RecentForUser(ctx context.Context, userID int64, limit int) ([]domain.Rating, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type RecordRatingInput struct {
	RideID  int64  `json:"ride_id"`
	RaterID int64  `json:"rater_id"`
	RateeID int64  `json:"ratee_id"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

type RatingService struct {
	ratings     repository.RatingRepository
	rides       repository.RideRepository
	bookings    repository.BookingRepository
	users       repository.UserRepository
	producer    Producer
	log         *zap.Logger
	eventsTopic string
	now         func() time.Time
}

func NewRatingService(
	ratings repository.RatingRepository,
	rides repository.RideRepository,
	bookings repository.BookingRepository,
	users repository.UserRepository,
	producer Producer,
	log *zap.Logger,
	eventsTopic string,
) *RatingService {
	return &RatingService{
		ratings:     ratings,
		rides:       rides,
		bookings:    bookings,
		users:       users,
		producer:    producer,
		log:         log,
		eventsTopic: eventsTopic,
		now:         time.Now,
	}
}

// Record persists a rating and recomputes the ratee's derived fields. Both
// rater and ratee must have been in the ride, either as its driver or as a
// passenger holding a booking on it.
func (s *RatingService) Record(ctx context.Context, input RecordRatingInput) (*domain.Rating, error) {
	if input.Score < 1 || input.Score > 5 {
		return nil, errors.New("score must be between 1 and 5")
	}

	if _, err := s.users.GetByID(ctx, input.RaterID); err != nil {
		return nil, fmt.Errorf("rater: %w", err)
	}
	if _, err := s.users.GetByID(ctx, input.RateeID); err != nil {
		return nil, fmt.Errorf("ratee: %w", err)
	}
	ride, err := s.rides.GetByID(ctx, input.RideID)
	if err != nil {
		return nil, err
	}

	if err := s.checkParticipant(ctx, ride, input.RaterID); err != nil {
		return nil, err
	}
	if err := s.checkParticipant(ctx, ride, input.RateeID); err != nil {
		return nil, err
	}

	exists, err := s.ratings.ExistsByRideAndRater(ctx, input.RideID, input.RaterID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateRating
	}

	rating := &domain.Rating{
		RideID:  input.RideID,
		RaterID: input.RaterID,
		RateeID: input.RateeID,
		Score:   input.Score,
		Comment: input.Comment,
	}
	if err := s.ratings.Create(ctx, rating); err != nil {
		return nil, err
	}

	// Derived-field recomputation converges after the rating is durable; a
	// failure here is logged and does not undo the rating.
	if err := s.recomputeStats(ctx, input.RateeID); err != nil {
		s.log.Warn("failed to recompute user rating stats",
			zap.Int64("user_id", input.RateeID), zap.Error(err))
	}

	s.publish(ctx, rating)
	return rating, nil
}

func (s *RatingService) RecentForUser(ctx context.Context, userID int64, limit int) ([]domain.Rating, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.ratings.ListRecentByRatee(ctx, userID, limit)
}

func (s *RatingService) checkParticipant(ctx context.Context, ride *domain.Ride, userID int64) error {
	if ride.DriverID == userID {
		return nil
	}
	booked, err := s.bookings.HasAnyForUser(ctx, ride.ID, userID)
	if err != nil {
		return err
	}
	if !booked {
		return domain.ErrNotAParticipant
	}
	return nil
}

// recomputeStats rewrites the ratee's average rating (one decimal, half-up)
// and completed-ride tally from scratch.
func (s *RatingService) recomputeStats(ctx context.Context, userID int64) error {
	avg, ok, err := s.ratings.AverageForUser(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	rounded := math.Round(avg*10) / 10

	asDriver, err := s.rides.CountCompletedByDriver(ctx, userID)
	if err != nil {
		return err
	}
	asPassenger, err := s.rides.CountCompletedByPassenger(ctx, userID)
	if err != nil {
		return err
	}

	return s.users.UpdateRatingStats(ctx, userID, rounded, asDriver+asPassenger)
}

func (s *RatingService) publish(ctx context.Context, rating *domain.Rating) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.RideEvent{
		Type:       kafka.EventRatingCreated,
		RideID:     rating.RideID,
		UserID:     rating.RateeID,
		OccurredAt: s.now(),
	}
	key := fmt.Sprintf("rating-%d", rating.ID)
	if err := s.producer.Publish(ctx, s.eventsTopic, key, event); err != nil {
		s.log.Warn("failed to publish rating event", zap.Int64("rating_id", rating.ID), zap.Error(err))
	}
}

var _ RatingUseCase = (*RatingService)(nil)
