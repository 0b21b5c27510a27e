package entities

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType names a checkout session transition.
type PaymentEventType string

const (
	PaymentEventCreated  PaymentEventType = "payment_created"
	PaymentEventApproved PaymentEventType = "payment_approved"
	PaymentEventExpired  PaymentEventType = "payment_expired"
)

// PaymentEvent is published on the event bus whenever a payment session
// changes state. Subscribers key on ExternalID.
type PaymentEvent struct {
	ID          string           `json:"id"`
	ExternalID  string           `json:"external_id"`
	OwnerUserID string           `json:"owner_user_id"`
	ListingID   string           `json:"listing_id"`
	Plan        Plan             `json:"plan"`
	EventType   PaymentEventType `json:"event_type"`
	Status      PaymentStatus    `json:"status"`
	Timestamp   time.Time        `json:"timestamp"`
	// SubscriptionExpiresAt is set on approval.
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
}

// NewPaymentEvent builds the event for record's current status.
func NewPaymentEvent(record *PaymentRecord, at time.Time) *PaymentEvent {
	eventType := PaymentEventCreated
	switch record.Status {
	case PaymentStatusApproved:
		eventType = PaymentEventApproved
	case PaymentStatusExpired:
		eventType = PaymentEventExpired
	}
	return &PaymentEvent{
		ID:          uuid.NewString(),
		ExternalID:  record.ExternalID,
		OwnerUserID: record.OwnerUserID,
		ListingID:   record.ListingID,
		Plan:        record.Plan,
		EventType:   eventType,
		Status:      record.Status,
		Timestamp:   at,
	}
}
