package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/repository"
	"github.com/Domenick1991/carpool/internal/service/rides"
	"github.com/gin-gonic/gin"
)

type RideHandler struct {
	service rides.RideUseCase
}

type rideRequest struct {
	From           string    `json:"from" binding:"required"`
	To             string    `json:"to" binding:"required"`
	DepartureAt    time.Time `json:"departure_at" binding:"required"`
	TotalSeats     int       `json:"total_seats" binding:"required,min=1"`
	PriceCents     int64     `json:"price_cents" binding:"required,min=1"`
	CarModel       string    `json:"car_model" binding:"required"`
	CarNumber      string    `json:"car_number" binding:"required"`
	AdditionalInfo string    `json:"additional_info"`
	InstantBooking bool      `json:"instant_booking"`
}

func NewRideHandler(service rides.RideUseCase) *RideHandler {
	return &RideHandler{service: service}
}

func (h *RideHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.offer)
	router.GET("/", h.search)
	router.GET("/mine", h.mine)
	router.GET("/locations/from", h.fromLocations)
	router.GET("/locations/to", h.toLocations)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.edit)
	router.DELETE("/:id", h.remove)
	router.POST("/:id/cancel", h.cancel)
	router.POST("/:id/reactivate", h.reactivate)
	router.POST("/:id/complete", h.complete)
}

func (h *RideHandler) offer(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req rideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ride, err := h.service.Offer(c.Request.Context(), rides.OfferRideInput{
		DriverID:       actor,
		From:           req.From,
		To:             req.To,
		DepartureAt:    req.DepartureAt,
		TotalSeats:     req.TotalSeats,
		PriceCents:     req.PriceCents,
		CarModel:       req.CarModel,
		CarNumber:      req.CarNumber,
		AdditionalInfo: req.AdditionalInfo,
		InstantBooking: req.InstantBooking,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ride)
}

func (h *RideHandler) search(c *gin.Context) {
	filter, err := parseRideFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RideHandler) mine(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	result, err := h.service.ListForDriver(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RideHandler) fromLocations(c *gin.Context) {
	locations, err := h.service.FromLocations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, locations)
}

func (h *RideHandler) toLocations(c *gin.Context) {
	locations, err := h.service.ToLocations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, locations)
}

func (h *RideHandler) get(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ride, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ride)
}

func (h *RideHandler) edit(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req rideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Edit(c.Request.Context(), rides.EditRideInput{
		RideID:         id,
		ActorID:        actor,
		From:           req.From,
		To:             req.To,
		DepartureAt:    req.DepartureAt,
		TotalSeats:     req.TotalSeats,
		PriceCents:     req.PriceCents,
		CarModel:       req.CarModel,
		CarNumber:      req.CarNumber,
		AdditionalInfo: req.AdditionalInfo,
		InstantBooking: req.InstantBooking,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RideHandler) remove(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, actor); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RideHandler) cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *RideHandler) reactivate(c *gin.Context) {
	h.transition(c, h.service.Reactivate)
}

func (h *RideHandler) complete(c *gin.Context) {
	h.transition(c, h.service.MarkCompleted)
}

func (h *RideHandler) transition(c *gin.Context, op func(ctx context.Context, rideID, actorID int64) (*domain.Ride, error)) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ride, err := op(c.Request.Context(), id, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ride)
}

func parseRideFilter(c *gin.Context) (repository.RideFilter, error) {
	filter := repository.RideFilter{
		From: c.Query("from"),
		To:   c.Query("to"),
	}
	if v := c.Query("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, err
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &end
	}
	if v := c.Query("min_seats"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.MinSeats = n
	}
	if v := c.Query("min_price_cents"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.MinPriceCents = n
	}
	if v := c.Query("max_price_cents"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.MaxPriceCents = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Offset = n
	}
	return filter, nil
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
