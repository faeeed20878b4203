package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/carpool/api"
	"github.com/Domenick1991/carpool/config"
	"github.com/Domenick1991/carpool/internal/service/bookings"
	"github.com/Domenick1991/carpool/internal/service/ratings"
	"github.com/Domenick1991/carpool/internal/service/rides"
	"github.com/gin-gonic/gin"
)

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, rideSvc rides.RideUseCase, bookingSvc bookings.BookingUseCase, ratingSvc ratings.RatingUseCase) error {
	router := NewRouter(rideSvc, bookingSvc, ratingSvc)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(rideSvc rides.RideUseCase, bookingSvc bookings.BookingUseCase, ratingSvc ratings.RatingUseCase) *gin.Engine {
	router := gin.Default()

	api.NewRideHandler(rideSvc).Register(router.Group("/rides"))
	api.NewBookingHandler(bookingSvc).Register(router.Group("/bookings"))
	api.NewRatingHandler(ratingSvc).Register(router.Group("/ratings"))

	return router
}
