package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/kafka"
	"github.com/Domenick1991/carpool/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	Create(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	Confirm(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error)
	Get(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error)
	ListForPassenger(ctx context.Context, passengerID int64) ([]domain.Booking, error)
	ListForRide(ctx context.Context, rideID, actorID int64) ([]domain.Booking, error)
}

type Cache interface {
	AcquireBookingLock(ctx context.Context, rideID, passengerID int64, ttl time.Duration) (bool, error)
	ReleaseBookingLock(ctx context.Context, rideID, passengerID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateBookingInput struct {
	RideID      int64 `json:"ride_id"`
	PassengerID int64 `json:"passenger_id"`
	Seats       int   `json:"seats"`
}

type BookingService struct {
	bookings           repository.BookingRepository
	rides              repository.RideRepository
	cache              Cache
	producer           Producer
	log                *zap.Logger
	eventsTopic        string
	notificationsTopic string
	lockTTL            time.Duration
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithClock overrides the time source for departure checks.
func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	rides repository.RideRepository,
	cache Cache,
	producer Producer,
	log *zap.Logger,
	eventsTopic string,
	lockTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:    bookings,
		rides:       rides,
		cache:       cache,
		producer:    producer,
		log:         log,
		eventsTopic: eventsTopic,
		lockTTL:     lockTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Create reserves seats and opens a PENDING booking with PENDING payment.
func (s *BookingService) Create(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.Seats < 1 {
		return nil, errors.New("seats requested must be positive")
	}

	ride, err := s.rides.GetByID(ctx, input.RideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusActive {
		return nil, domain.ErrRideNotBookable
	}
	if ride.DriverID == input.PassengerID {
		return nil, domain.ErrSelfBooking
	}

	locked := false
	if s.cache != nil {
		ok, err := s.cache.AcquireBookingLock(ctx, input.RideID, input.PassengerID, s.lockTTL)
		if err != nil {
			s.log.Warn("booking lock unavailable, relying on unique index",
				zap.Int64("ride_id", input.RideID), zap.Error(err))
		} else if !ok {
			return nil, domain.ErrDuplicateBooking
		} else {
			locked = true
		}
	}

	exists, err := s.bookings.HasActive(ctx, input.RideID, input.PassengerID)
	if err == nil && exists {
		err = domain.ErrDuplicateBooking
	}
	if err != nil {
		s.releaseLock(ctx, locked, input.RideID, input.PassengerID)
		return nil, err
	}

	booking := &domain.Booking{
		Reference:   uuid.NewString(),
		RideID:      input.RideID,
		PassengerID: input.PassengerID,
		SeatsBooked: input.Seats,
		AmountCents: int64(input.Seats) * ride.PriceCents,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		s.releaseLock(ctx, locked, input.RideID, input.PassengerID)
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

// Confirm moves PENDING to CONFIRMED. Only the ride's driver may confirm;
// the seats were already held at creation.
func (s *BookingService) Confirm(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	ride, err := s.rides.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != actorID {
		return nil, domain.ErrUnauthorized
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.bookings.Confirm(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingConfirmed, updated)
	return updated, nil
}

// Cancel is the passenger-facing cancellation. The administrative cascade
// triggered by a ride cancellation does not come through here.
func (s *BookingService) Cancel(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != actorID {
		return nil, domain.ErrUnauthorized
	}
	if booking.Status.Terminal() {
		return nil, domain.ErrInvalidTransition
	}
	ride, err := s.rides.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}
	if ride.Departed(s.now()) {
		return nil, domain.ErrRideAlreadyDeparted
	}

	updated, err := s.bookings.Cancel(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.releaseLock(ctx, s.cache != nil, booking.RideID, booking.PassengerID)
	s.publish(ctx, kafka.EventBookingCancelled, updated)
	return updated, nil
}

// Get returns the booking to its passenger or the ride's driver.
func (s *BookingService) Get(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID == actorID {
		return booking, nil
	}
	ride, err := s.rides.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != actorID {
		return nil, domain.ErrUnauthorized
	}
	return booking, nil
}

func (s *BookingService) ListForPassenger(ctx context.Context, passengerID int64) ([]domain.Booking, error) {
	return s.bookings.ListByPassenger(ctx, passengerID)
}

func (s *BookingService) ListForRide(ctx context.Context, rideID, actorID int64) ([]domain.Booking, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != actorID {
		return nil, domain.ErrUnauthorized
	}
	return s.bookings.ListByRide(ctx, rideID)
}

func (s *BookingService) releaseLock(ctx context.Context, locked bool, rideID, passengerID int64) {
	if !locked || s.cache == nil {
		return
	}
	if err := s.cache.ReleaseBookingLock(ctx, rideID, passengerID); err != nil {
		s.log.Warn("failed to release booking lock", zap.Int64("ride_id", rideID), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.RideEvent{
		Type:        eventType,
		Reference:   booking.Reference,
		RideID:      booking.RideID,
		BookingID:   booking.ID,
		UserID:      booking.PassengerID,
		Seats:       booking.SeatsBooked,
		AmountCents: booking.AmountCents,
		Status:      string(booking.Status),
		OccurredAt:  s.now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, booking.Reference, event); err != nil {
		s.log.Warn("failed to publish booking event",
			zap.String("type", eventType), zap.String("reference", booking.Reference), zap.Error(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.Reference, event); err != nil {
			s.log.Warn("failed to publish notification",
				zap.String("type", eventType), zap.String("reference", booking.Reference), zap.Error(err))
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
