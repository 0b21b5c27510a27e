package providers

import (
	"context"

	"github.com/tanamao/directory/internal/domain/entities"
)

// EventBus fans payment session events out to subscribers.
type EventBus interface {
	Publish(ctx context.Context, channel string, event *entities.PaymentEvent) error

	// Subscribe returns a channel that receives events until ctx is done or
	// Unsubscribe is called.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.PaymentEvent, error)

	Unsubscribe(ctx context.Context, channel string) error

	Close() error
}

const (
	// EventChannelPayments receives every payment event.
	EventChannelPayments = "payments:updates"

	EventChannelPaymentPrefix = "payment:"
)

// GetPaymentChannel returns the channel for one payment's events.
func GetPaymentChannel(externalID string) string {
	return EventChannelPaymentPrefix + externalID
}
