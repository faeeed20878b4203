package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/gin-gonic/gin"
)

// writeError maps domain failures to HTTP statuses in one place, so
// storage-layer detail never leaks to the boundary.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRideNotBookable),
		errors.Is(err, domain.ErrRideNotEditable),
		errors.Is(err, domain.ErrRideAlreadyDeparted),
		errors.Is(err, domain.ErrSelfBooking),
		errors.Is(err, domain.ErrNotAParticipant):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInventoryExhausted),
		errors.Is(err, domain.ErrCapacityBelowDemand),
		errors.Is(err, domain.ErrDuplicateBooking),
		errors.Is(err, domain.ErrDuplicateRating),
		errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// actorID reads the caller identity resolved by the fronting auth layer.
func actorID(c *gin.Context) (int64, bool) {
	id, err := parseID(c.GetHeader("X-User-ID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
		return 0, false
	}
	return id, true
}
