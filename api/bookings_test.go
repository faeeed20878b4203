package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/service/bookings"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockBookingUseCase is a mock implementation of bookings.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) Create(ctx context.Context, input bookings.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Confirm(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Cancel(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Get(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListForPassenger(ctx context.Context, passengerID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, passengerID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListForRide(ctx context.Context, rideID, actorID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, rideID, actorID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(createBookingRequest{RideID: 1, Seats: 2})
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("X-User-ID", "20")

	created := &domain.Booking{
		ID:          5,
		Reference:   "ref-5",
		RideID:      1,
		PassengerID: 20,
		SeatsBooked: 2,
		AmountCents: 20000,
		Status:      domain.BookingStatusPending,
	}

	input := bookings.CreateBookingInput{RideID: 1, PassengerID: 20, Seats: 2}
	mockService.On("Create", c.Request.Context(), input).Return(created, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "ref-5", response.Reference)
	assert.Equal(t, int64(20000), response.AmountCents)
	assert.Equal(t, string(domain.BookingStatusPending), response.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_create_missingActor(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(createBookingRequest{RideID: 1, Seats: 1})
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBookingHandler_create_inventoryExhausted(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(createBookingRequest{RideID: 1, Seats: 2})
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("X-User-ID", "20")

	mockService.On("Create", c.Request.Context(), mock.Anything).Return(nil, domain.ErrInventoryExhausted)

	handler.create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandler_confirm(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Request = httptest.NewRequest("PUT", "/bookings/5/confirm", nil)
	c.Request.Header.Set("X-User-ID", "10")

	confirmed := &domain.Booking{
		ID:          5,
		Reference:   "ref-5",
		RideID:      1,
		PassengerID: 20,
		SeatsBooked: 2,
		Status:      domain.BookingStatusConfirmed,
	}

	mockService.On("Confirm", c.Request.Context(), int64(5), int64(10)).Return(confirmed, nil)

	handler.confirm(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, string(domain.BookingStatusConfirmed), response.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_confirm_notDriver(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Request = httptest.NewRequest("PUT", "/bookings/5/confirm", nil)
	c.Request.Header.Set("X-User-ID", "99")

	mockService.On("Confirm", c.Request.Context(), int64(5), int64(99)).Return(nil, domain.ErrUnauthorized)

	handler.confirm(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Request = httptest.NewRequest("DELETE", "/bookings/5", nil)
	c.Request.Header.Set("X-User-ID", "20")

	cancelled := &domain.Booking{
		ID:            5,
		Reference:     "ref-5",
		RideID:        1,
		PassengerID:   20,
		SeatsBooked:   2,
		Status:        domain.BookingStatusCancelled,
		PaymentStatus: domain.PaymentStatusRefunded,
	}

	mockService.On("Cancel", c.Request.Context(), int64(5), int64(20)).Return(cancelled, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, string(domain.BookingStatusCancelled), response.Status)
	assert.Equal(t, string(domain.PaymentStatusRefunded), response.PaymentStatus)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel_alreadyTerminal(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Request = httptest.NewRequest("DELETE", "/bookings/5", nil)
	c.Request.Header.Set("X-User-ID", "20")

	mockService.On("Cancel", c.Request.Context(), int64(5), int64(20)).Return(nil, domain.ErrInvalidTransition)

	handler.cancel(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBookingHandler_list(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/bookings", nil)
	c.Request.Header.Set("X-User-ID", strconv.FormatInt(20, 10))

	result := []domain.Booking{
		{ID: 5, RideID: 1, PassengerID: 20, SeatsBooked: 2, Status: domain.BookingStatusConfirmed},
	}
	mockService.On("ListForPassenger", c.Request.Context(), int64(20)).Return(result, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var responses []bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &responses)
	assert.NoError(t, err)
	assert.Len(t, responses, 1)

	mockService.AssertExpectations(t)
}
