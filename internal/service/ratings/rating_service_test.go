package ratings

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	args := m.Called(ctx, rating)
	return args.Error(0)
}

func (m *MockRatingRepository) ExistsByRideAndRater(ctx context.Context, rideID, raterID int64) (bool, error) {
	args := m.Called(ctx, rideID, raterID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRatingRepository) ListRecentByRatee(ctx context.Context, rateeID int64, limit int) ([]domain.Rating, error) {
	args := m.Called(ctx, rateeID, limit)
	return args.Get(0).([]domain.Rating), args.Error(1)
}

func (m *MockRatingRepository) AverageForUser(ctx context.Context, userID int64) (float64, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Bool(1), args.Error(2)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRatingStats(ctx context.Context, id int64, rating float64, totalRides int) error {
	args := m.Called(ctx, id, rating, totalRides)
	return args.Error(0)
}

type MockRideRepository struct {
	mock.Mock
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	args := m.Called(ctx, ride)
	return args.Error(0)
}

func (m *MockRideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ride), args.Error(1)
}

func (m *MockRideRepository) Search(ctx context.Context, filter repository.RideFilter) ([]domain.Ride, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Ride), args.Error(1)
}

func (m *MockRideRepository) ListByDriver(ctx context.Context, driverID int64) ([]domain.Ride, error) {
	args := m.Called(ctx, driverID)
	return args.Get(0).([]domain.Ride), args.Error(1)
}

func (m *MockRideRepository) DistinctFromLocations(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRideRepository) DistinctToLocations(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	args := m.Called(ctx, ride)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ride), args.Error(1)
}

func (m *MockRideRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.RideStatus) (*domain.Ride, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ride), args.Error(1)
}

func (m *MockRideRepository) CancelWithBookings(ctx context.Context, id int64) (*domain.Ride, []domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Ride), args.Get(1).([]domain.Booking), args.Error(2)
}

func (m *MockRideRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRideRepository) CompleteDepartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ride, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]domain.Ride), args.Error(1)
}

func (m *MockRideRepository) CountCompletedByDriver(ctx context.Context, driverID int64) (int, error) {
	args := m.Called(ctx, driverID)
	return args.Int(0), args.Error(1)
}

func (m *MockRideRepository) CountCompletedByPassenger(ctx context.Context, passengerID int64) (int, error) {
	args := m.Called(ctx, passengerID)
	return args.Int(0), args.Error(1)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByPassenger(ctx context.Context, passengerID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, passengerID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByRide(ctx context.Context, rideID int64, statuses ...domain.BookingStatus) ([]domain.Booking, error) {
	args := m.Called(ctx, rideID, statuses)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) HasActive(ctx context.Context, rideID, passengerID int64) (bool, error) {
	args := m.Called(ctx, rideID, passengerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) HasAnyForUser(ctx context.Context, rideID, userID int64) (bool, error) {
	args := m.Called(ctx, rideID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) Confirm(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateAmount(ctx context.Context, id int64, amountCents int64) error {
	args := m.Called(ctx, id, amountCents)
	return args.Error(0)
}

type ratingFixtures struct {
	ratings  *MockRatingRepository
	rides    *MockRideRepository
	bookings *MockBookingRepository
	users    *MockUserRepository
	service  *RatingService
}

func newFixtures() *ratingFixtures {
	f := &ratingFixtures{
		ratings:  &MockRatingRepository{},
		rides:    &MockRideRepository{},
		bookings: &MockBookingRepository{},
		users:    &MockUserRepository{},
	}
	f.service = NewRatingService(f.ratings, f.rides, f.bookings, f.users, nil, zap.NewNop(), "")
	return f
}

func completedRide() *domain.Ride {
	return &domain.Ride{
		ID:       1,
		DriverID: 10,
		Status:   domain.RideStatusCompleted,
	}
}

func TestRatingService_Record_Success(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	f.users.On("GetByID", ctx, int64(20)).Return(&domain.User{ID: 20}, nil)
	f.users.On("GetByID", ctx, int64(10)).Return(&domain.User{ID: 10}, nil)
	f.rides.On("GetByID", ctx, int64(1)).Return(completedRide(), nil)
	f.bookings.On("HasAnyForUser", ctx, int64(1), int64(20)).Return(true, nil)
	f.ratings.On("ExistsByRideAndRater", ctx, int64(1), int64(20)).Return(false, nil)
	f.ratings.On("Create", ctx, mock.AnythingOfType("*domain.Rating")).Return(nil)
	f.ratings.On("AverageForUser", ctx, int64(10)).Return(4.0, true, nil)
	f.rides.On("CountCompletedByDriver", ctx, int64(10)).Return(3, nil)
	f.rides.On("CountCompletedByPassenger", ctx, int64(10)).Return(1, nil)
	f.users.On("UpdateRatingStats", ctx, int64(10), 4.0, 4).Return(nil)

	rating, err := f.service.Record(ctx, RecordRatingInput{RideID: 1, RaterID: 20, RateeID: 10, Score: 5, Comment: "great trip"})

	assert.NoError(t, err)
	assert.Equal(t, 5, rating.Score)
	f.users.AssertExpectations(t)
	f.ratings.AssertExpectations(t)
}

func TestRatingService_Record_AverageRoundedHalfUp(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	f.users.On("GetByID", ctx, mock.AnythingOfType("int64")).Return(&domain.User{}, nil)
	f.rides.On("GetByID", ctx, int64(1)).Return(completedRide(), nil)
	f.bookings.On("HasAnyForUser", ctx, int64(1), int64(20)).Return(true, nil)
	f.ratings.On("ExistsByRideAndRater", ctx, int64(1), int64(20)).Return(false, nil)
	f.ratings.On("Create", ctx, mock.AnythingOfType("*domain.Rating")).Return(nil)
	f.ratings.On("AverageForUser", ctx, int64(10)).Return(4.25, true, nil)
	f.rides.On("CountCompletedByDriver", ctx, int64(10)).Return(0, nil)
	f.rides.On("CountCompletedByPassenger", ctx, int64(10)).Return(2, nil)
	f.users.On("UpdateRatingStats", ctx, int64(10), 4.3, 2).Return(nil)

	_, err := f.service.Record(ctx, RecordRatingInput{RideID: 1, RaterID: 20, RateeID: 10, Score: 4})

	assert.NoError(t, err)
	f.users.AssertCalled(t, "UpdateRatingStats", ctx, int64(10), 4.3, 2)
}

func TestRatingService_Record_InvalidScore(t *testing.T) {
	f := newFixtures()

	_, err := f.service.Record(context.Background(), RecordRatingInput{RideID: 1, RaterID: 20, RateeID: 10, Score: 6})

	assert.Error(t, err)
	f.ratings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRatingService_Record_RaterNotParticipant(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	f.users.On("GetByID", ctx, mock.AnythingOfType("int64")).Return(&domain.User{}, nil)
	f.rides.On("GetByID", ctx, int64(1)).Return(completedRide(), nil)
	f.bookings.On("HasAnyForUser", ctx, int64(1), int64(99)).Return(false, nil)

	_, err := f.service.Record(ctx, RecordRatingInput{RideID: 1, RaterID: 99, RateeID: 10, Score: 4})

	assert.ErrorIs(t, err, domain.ErrNotAParticipant)
	f.ratings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRatingService_Record_Duplicate(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	f.users.On("GetByID", ctx, mock.AnythingOfType("int64")).Return(&domain.User{}, nil)
	f.rides.On("GetByID", ctx, int64(1)).Return(completedRide(), nil)
	f.bookings.On("HasAnyForUser", ctx, int64(1), int64(20)).Return(true, nil)
	f.ratings.On("ExistsByRideAndRater", ctx, int64(1), int64(20)).Return(true, nil)

	_, err := f.service.Record(ctx, RecordRatingInput{RideID: 1, RaterID: 20, RateeID: 10, Score: 4})

	assert.ErrorIs(t, err, domain.ErrDuplicateRating)
	f.ratings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRatingService_Record_RaterMissing(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	f.users.On("GetByID", ctx, int64(20)).Return(nil, domain.ErrNotFound)

	_, err := f.service.Record(ctx, RecordRatingInput{RideID: 1, RaterID: 20, RateeID: 10, Score: 4})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRatingService_Record_StatsFailureDoesNotUndoRating(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	f.users.On("GetByID", ctx, mock.AnythingOfType("int64")).Return(&domain.User{}, nil)
	f.rides.On("GetByID", ctx, int64(1)).Return(completedRide(), nil)
	f.bookings.On("HasAnyForUser", ctx, int64(1), int64(20)).Return(true, nil)
	f.ratings.On("ExistsByRideAndRater", ctx, int64(1), int64(20)).Return(false, nil)
	f.ratings.On("Create", ctx, mock.AnythingOfType("*domain.Rating")).Return(nil)
	f.ratings.On("AverageForUser", ctx, int64(10)).Return(0.0, false, assert.AnError)

	rating, err := f.service.Record(ctx, RecordRatingInput{RideID: 1, RaterID: 20, RateeID: 10, Score: 4})

	assert.NoError(t, err)
	assert.NotNil(t, rating)
	f.users.AssertNotCalled(t, "UpdateRatingStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRatingService_RecentForUser_DefaultLimit(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	recent := []domain.Rating{{ID: 1, RateeID: 10, Score: 5}}
	f.ratings.On("ListRecentByRatee", ctx, int64(10), 10).Return(recent, nil)

	got, err := f.service.RecentForUser(ctx, 10, 0)

	assert.NoError(t, err)
	assert.Equal(t, recent, got)
	f.ratings.AssertExpectations(t)
}
