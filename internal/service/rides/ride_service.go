package rides

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/kafka"
	"github.com/Domenick1991/carpool/internal/repository"
	"go.uber.org/zap"
)

type RideUseCase interface {
	Offer(ctx context.Context, input OfferRideInput) (*domain.Ride, error)
	Get(ctx context.Context, id int64) (*domain.Ride, error)
	Search(ctx context.Context, filter repository.RideFilter) ([]domain.Ride, error)
	ListForDriver(ctx context.Context, driverID int64) ([]domain.Ride, error)
	FromLocations(ctx context.Context) ([]string, error)
	ToLocations(ctx context.Context) ([]string, error)
	Edit(ctx context.Context, input EditRideInput) (*EditResult, error)
	Cancel(ctx context.Context, rideID, actorID int64) (*domain.Ride, error)
	Reactivate(ctx context.Context, rideID, actorID int64) (*domain.Ride, error)
	Delete(ctx context.Context, rideID, actorID int64) error
	MarkCompleted(ctx context.Context, rideID, actorID int64) (*domain.Ride, error)
	CompleteDepartedRides(ctx context.Context, grace time.Duration) ([]domain.Ride, error)
}

type Cache interface {
	GetRides(ctx context.Context) ([]domain.Ride, error)
	SetRides(ctx context.Context, rides []domain.Ride) error
	InvalidateRides(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type OfferRideInput struct {
	DriverID       int64     `json:"driver_id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	DepartureAt    time.Time `json:"departure_at"`
	TotalSeats     int       `json:"total_seats"`
	PriceCents     int64     `json:"price_cents"`
	CarModel       string    `json:"car_model"`
	CarNumber      string    `json:"car_number"`
	AdditionalInfo string    `json:"additional_info"`
	InstantBooking bool      `json:"instant_booking"`
}

type EditRideInput struct {
	RideID         int64     `json:"-"`
	ActorID        int64     `json:"-"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	DepartureAt    time.Time `json:"departure_at"`
	TotalSeats     int       `json:"total_seats"`
	PriceCents     int64     `json:"price_cents"`
	CarModel       string    `json:"car_model"`
	CarNumber      string    `json:"car_number"`
	AdditionalInfo string    `json:"additional_info"`
	InstantBooking bool      `json:"instant_booking"`
}

// EditResult reports the edit outcome. Price propagation is best-effort:
// bookings whose amount could not be updated are listed instead of rolling
// back the ride edit.
type EditResult struct {
	Ride                *domain.Ride `json:"ride"`
	FailedAmountUpdates []int64      `json:"failed_amount_updates,omitempty"`
}

type RideService struct {
	rides              repository.RideRepository
	bookings           repository.BookingRepository
	cache              Cache
	producer           Producer
	log                *zap.Logger
	eventsTopic        string
	notificationsTopic string
	now                func() time.Time
}

type RideServiceOption func(*RideService)

func WithNotificationsTopic(topic string) RideServiceOption {
	return func(s *RideService) {
		s.notificationsTopic = topic
	}
}

func WithClock(now func() time.Time) RideServiceOption {
	return func(s *RideService) {
		s.now = now
	}
}

func NewRideService(
	rides repository.RideRepository,
	bookings repository.BookingRepository,
	cache Cache,
	producer Producer,
	log *zap.Logger,
	eventsTopic string,
	opts ...RideServiceOption,
) *RideService {
	service := &RideService{
		rides:       rides,
		bookings:    bookings,
		cache:       cache,
		producer:    producer,
		log:         log,
		eventsTopic: eventsTopic,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *RideService) Offer(ctx context.Context, input OfferRideInput) (*domain.Ride, error) {
	if input.TotalSeats < 1 {
		return nil, errors.New("total seats must be positive")
	}
	if input.PriceCents <= 0 {
		return nil, errors.New("price per seat must be positive")
	}

	ride := &domain.Ride{
		DriverID:       input.DriverID,
		FromLocation:   input.From,
		ToLocation:     input.To,
		DepartureAt:    input.DepartureAt,
		TotalSeats:     input.TotalSeats,
		PriceCents:     input.PriceCents,
		CarModel:       input.CarModel,
		CarNumber:      input.CarNumber,
		AdditionalInfo: input.AdditionalInfo,
		InstantBooking: input.InstantBooking,
	}
	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.invalidateListing(ctx)
	return ride, nil
}

func (s *RideService) Get(ctx context.Context, id int64) (*domain.Ride, error) {
	return s.rides.GetByID(ctx, id)
}

// Search serves the unfiltered active listing from cache when possible;
// filtered queries always hit the store.
func (s *RideService) Search(ctx context.Context, filter repository.RideFilter) ([]domain.Ride, error) {
	unfiltered := filter == (repository.RideFilter{})
	if unfiltered && s.cache != nil {
		if cached, err := s.cache.GetRides(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	rides, err := s.rides.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	if unfiltered && s.cache != nil {
		if err := s.cache.SetRides(ctx, rides); err != nil {
			s.log.Warn("failed to cache ride listing", zap.Error(err))
		}
	}
	return rides, nil
}

func (s *RideService) ListForDriver(ctx context.Context, driverID int64) ([]domain.Ride, error) {
	return s.rides.ListByDriver(ctx, driverID)
}

func (s *RideService) FromLocations(ctx context.Context) ([]string, error) {
	return s.rides.DistinctFromLocations(ctx)
}

func (s *RideService) ToLocations(ctx context.Context) ([]string, error) {
	return s.rides.DistinctToLocations(ctx)
}

// Edit applies the driver's changes. The seat ceiling moves atomically with
// the other fields; if the price changed, existing live bookings are
// repriced afterwards, each on its own, without unwinding the edit.
func (s *RideService) Edit(ctx context.Context, input EditRideInput) (*EditResult, error) {
	ride, err := s.rides.GetByID(ctx, input.RideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != input.ActorID {
		return nil, domain.ErrUnauthorized
	}
	if ride.Status != domain.RideStatusActive {
		return nil, domain.ErrRideNotEditable
	}
	if input.TotalSeats < 1 {
		return nil, errors.New("total seats must be positive")
	}
	if input.PriceCents <= 0 {
		return nil, errors.New("price per seat must be positive")
	}

	priceChanged := input.PriceCents != ride.PriceCents
	bookedBefore := ride.BookedSeats()

	updated, err := s.rides.Update(ctx, &domain.Ride{
		ID:             input.RideID,
		FromLocation:   input.From,
		ToLocation:     input.To,
		DepartureAt:    input.DepartureAt,
		TotalSeats:     input.TotalSeats,
		PriceCents:     input.PriceCents,
		CarModel:       input.CarModel,
		CarNumber:      input.CarNumber,
		AdditionalInfo: input.AdditionalInfo,
		InstantBooking: input.InstantBooking,
	})
	if err != nil {
		return nil, err
	}

	result := &EditResult{Ride: updated}
	if priceChanged && bookedBefore > 0 {
		result.FailedAmountUpdates = s.propagatePrice(ctx, updated.ID, updated.PriceCents)
	}

	s.invalidateListing(ctx)
	s.publishRide(ctx, kafka.EventRideUpdated, updated)
	return result, nil
}

// propagatePrice reprices every live booking on the ride. Failures are
// logged and reported, not rolled back.
func (s *RideService) propagatePrice(ctx context.Context, rideID int64, priceCents int64) []int64 {
	live, err := s.bookings.ListByRide(ctx, rideID, domain.BookingStatusPending, domain.BookingStatusConfirmed)
	if err != nil {
		s.log.Warn("failed to list bookings for price propagation",
			zap.Int64("ride_id", rideID), zap.Error(err))
		return nil
	}

	var failed []int64
	for _, b := range live {
		amount := int64(b.SeatsBooked) * priceCents
		if err := s.bookings.UpdateAmount(ctx, b.ID, amount); err != nil {
			s.log.Warn("failed to update booking amount",
				zap.Int64("booking_id", b.ID), zap.Int64("ride_id", rideID), zap.Error(err))
			failed = append(failed, b.ID)
		}
	}
	return failed
}

// Cancel transitions the ride to CANCELLED and force-cancels every live
// booking on it. The cascade is administrative: it bypasses the passenger
// ownership and departure guards of the passenger-facing cancellation.
func (s *RideService) Cancel(ctx context.Context, rideID, actorID int64) (*domain.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != actorID {
		return nil, domain.ErrUnauthorized
	}
	if ride.Status != domain.RideStatusActive {
		return nil, domain.ErrInvalidTransition
	}

	cancelled, cascaded, err := s.rides.CancelWithBookings(ctx, rideID)
	if err != nil {
		return nil, err
	}

	s.invalidateListing(ctx)
	s.publishRide(ctx, kafka.EventRideCancelled, cancelled)
	for i := range cascaded {
		s.publishBooking(ctx, kafka.EventBookingCancelled, &cascaded[i])
	}
	return cancelled, nil
}

// Reactivate brings a cancelled ride back as long as departure has not
// passed. COMPLETED stays terminal.
func (s *RideService) Reactivate(ctx context.Context, rideID, actorID int64) (*domain.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != actorID {
		return nil, domain.ErrUnauthorized
	}
	if ride.Status != domain.RideStatusCancelled {
		return nil, domain.ErrInvalidTransition
	}
	if ride.Departed(s.now()) {
		return nil, domain.ErrRideAlreadyDeparted
	}

	updated, err := s.rides.UpdateStatus(ctx, rideID, domain.RideStatusCancelled, domain.RideStatusActive)
	if err != nil {
		return nil, err
	}
	s.invalidateListing(ctx)
	return updated, nil
}

// Delete removes a ride outright. Only reachable when no seats are
// committed and the ride has not departed; otherwise cancellation is the
// only terminal path.
func (s *RideService) Delete(ctx context.Context, rideID, actorID int64) error {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.DriverID != actorID {
		return domain.ErrUnauthorized
	}

	live, err := s.bookings.ListByRide(ctx, rideID, domain.BookingStatusPending, domain.BookingStatusConfirmed)
	if err != nil {
		return err
	}
	if len(live) > 0 {
		return fmt.Errorf("%w: ride has active bookings, cancel it instead", domain.ErrRideNotEditable)
	}
	if ride.Departed(s.now()) {
		return domain.ErrRideAlreadyDeparted
	}

	if err := s.rides.Delete(ctx, rideID); err != nil {
		return err
	}
	s.invalidateListing(ctx)
	return nil
}

func (s *RideService) MarkCompleted(ctx context.Context, rideID, actorID int64) (*domain.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != actorID {
		return nil, domain.ErrUnauthorized
	}
	if !ride.Departed(s.now()) {
		return nil, fmt.Errorf("%w: ride has not departed yet", domain.ErrInvalidTransition)
	}

	updated, err := s.rides.UpdateStatus(ctx, rideID, domain.RideStatusActive, domain.RideStatusCompleted)
	if err != nil {
		return nil, err
	}
	s.invalidateListing(ctx)
	s.publishRide(ctx, kafka.EventRideCompleted, updated)
	return updated, nil
}

// CompleteDepartedRides is the worker sweep: rides still ACTIVE a grace
// period after departure are completed administratively.
func (s *RideService) CompleteDepartedRides(ctx context.Context, grace time.Duration) ([]domain.Ride, error) {
	completed, err := s.rides.CompleteDepartedBefore(ctx, s.now().Add(-grace))
	if err != nil {
		return nil, err
	}
	if len(completed) > 0 {
		s.invalidateListing(ctx)
	}
	for i := range completed {
		s.publishRide(ctx, kafka.EventRideCompleted, &completed[i])
	}
	return completed, nil
}

func (s *RideService) invalidateListing(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRides(ctx); err != nil {
		s.log.Warn("failed to invalidate ride listing cache", zap.Error(err))
	}
}

func (s *RideService) publishRide(ctx context.Context, eventType string, ride *domain.Ride) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.RideEvent{
		Type:       eventType,
		RideID:     ride.ID,
		UserID:     ride.DriverID,
		Status:     string(ride.Status),
		OccurredAt: s.now(),
	}
	key := fmt.Sprintf("ride-%d", ride.ID)
	if err := s.producer.Publish(ctx, s.eventsTopic, key, event); err != nil {
		s.log.Warn("failed to publish ride event",
			zap.String("type", eventType), zap.Int64("ride_id", ride.ID), zap.Error(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			s.log.Warn("failed to publish notification",
				zap.String("type", eventType), zap.Int64("ride_id", ride.ID), zap.Error(err))
		}
	}
}

func (s *RideService) publishBooking(ctx context.Context, eventType string, booking *domain.Booking) {
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

var _ RideUseCase = (*RideService)(nil)
