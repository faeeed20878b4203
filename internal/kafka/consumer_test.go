package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestConsumer_handle_DecodesEvent(t *testing.T) {
	c := &Consumer{log: zap.NewNop()}
	payload, _ := json.Marshal(RideEvent{Type: EventBookingCreated, Reference: "ref-1", RideID: 1, Seats: 2})

	var got RideEvent
	err := c.handle(context.Background(), kafka.Message{Value: payload}, func(ctx context.Context, event RideEvent) error {
		got = event
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, EventBookingCreated, got.Type)
	assert.Equal(t, "ref-1", got.Reference)
	assert.Equal(t, 2, got.Seats)
}

func TestConsumer_handle_SkipsUndecodable(t *testing.T) {
	c := &Consumer{log: zap.NewNop()}

	called := false
	err := c.handle(context.Background(), kafka.Message{Value: []byte("not json")}, func(ctx context.Context, event RideEvent) error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.False(t, called)
}

func TestConsumer_handle_PropagatesHandlerError(t *testing.T) {
	c := &Consumer{log: zap.NewNop()}
	payload, _ := json.Marshal(RideEvent{Type: EventRideCancelled, RideID: 1})

	err := c.handle(context.Background(), kafka.Message{Value: payload}, func(ctx context.Context, event RideEvent) error {
		return assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
}
