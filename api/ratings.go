package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/carpool/internal/service/ratings"
	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	service ratings.RatingUseCase
}

type createRatingRequest struct {
	RideID  int64  `json:"ride_id" binding:"required"`
	RateeID int64  `json:"ratee_id" binding:"required"`
	Score   int    `json:"score" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func NewRatingHandler(service ratings.RatingUseCase) *RatingHandler {
	return &RatingHandler{service: service}
}

func (h *RatingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/users/:id", h.recent)
}

func (h *RatingHandler) create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req createRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rating, err := h.service.Record(c.Request.Context(), ratings.RecordRatingInput{
		RideID:  req.RideID,
		RaterID: actor,
		RateeID: req.RateeID,
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rating)
}

func (h *RatingHandler) recent(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	result, err := h.service.RecentForUser(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
