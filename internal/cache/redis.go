package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/carpool/config"
	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client   *redis.Client
	ridesTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ridesTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ridesTTL: ridesTTL,
	}
}

func (c *RedisCache) GetRides(ctx context.Context) ([]domain.Ride, error) {
	data, err := c.client.Get(ctx, ridesKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var rides []domain.Ride
	if err := json.Unmarshal(data, &rides); err != nil {
		return nil, err
	}
	return rides, nil
}

func (c *RedisCache) SetRides(ctx context.Context, rides []domain.Ride) error {
	payload, err := json.Marshal(rides)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ridesKey(), payload, c.ridesTTL).Err()
}

// InvalidateRides drops the listing after any ride mutation.
func (c *RedisCache) InvalidateRides(ctx context.Context) error {
	return c.client.Del(ctx, ridesKey()).Err()
}

// AcquireBookingLock takes a short-lived lock per (ride, passenger) so two
// concurrent booking attempts from the same passenger are rejected cheaply
// before the database unique index does it.
func (c *RedisCache) AcquireBookingLock(ctx context.Context, rideID, passengerID int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, bookingLockKey(rideID, passengerID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseBookingLock(ctx context.Context, rideID, passengerID int64) error {
	return c.client.Del(ctx, bookingLockKey(rideID, passengerID)).Err()
}

func ridesKey() string {
	return "cache:rides"
}

func bookingLockKey(rideID, passengerID int64) string {
	return fmt.Sprintf("lock:ride:%d:passenger:%d", rideID, passengerID)
}
