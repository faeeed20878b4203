package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/carpool/config"
	"github.com/Domenick1991/carpool/internal/bootstrap"
	"github.com/Domenick1991/carpool/internal/cache"
	"github.com/Domenick1991/carpool/internal/kafka"
	"github.com/Domenick1991/carpool/internal/repository"
	"github.com/Domenick1991/carpool/internal/service/bookings"
	"github.com/Domenick1991/carpool/internal/service/ratings"
	"github.com/Domenick1991/carpool/internal/service/rides"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.RidesCacheSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	rideRepo := repository.NewRideRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	ratingRepo := repository.NewRatingRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	rideService := rides.NewRideService(
		rideRepo,
		bookingRepo,
		redisCache,
		producer,
		logger,
		cfg.Kafka.EventsTopic,
		rides.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	bookingService := bookings.NewBookingService(
		bookingRepo,
		rideRepo,
		redisCache,
		producer,
		logger,
		cfg.Kafka.EventsTopic,
		time.Duration(cfg.Booking.LockTTLSeconds)*time.Second,
		bookings.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	ratingService := ratings.NewRatingService(
		ratingRepo,
		rideRepo,
		bookingRepo,
		userRepo,
		producer,
		logger,
		cfg.Kafka.EventsTopic,
	)

	if err := bootstrap.Run(ctx, cfg, rideService, bookingService, ratingService); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
