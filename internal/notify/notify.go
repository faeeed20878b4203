package notify

import (
	"context"

	"github.com/Domenick1991/carpool/internal/kafka"
	"go.uber.org/zap"
)

// Sender delivers user-facing notifications for lifecycle events. Delivery
// is best-effort; the actual channel (push, SMS, chat) sits behind this and
// is out of scope here, so the sender records what would be sent.
type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.RideEvent) error {
	s.log.Info("notification dispatched",
		zap.String("type", event.Type),
		zap.String("reference", event.Reference),
		zap.Int64("ride_id", event.RideID),
		zap.Int64("user_id", event.UserID),
		zap.String("status", event.Status),
	)
	return nil
}
