package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the stored status of a payment record. Only pending
// records are ever updated, and only to approved or expired.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusExpired  PaymentStatus = "expired"
)

// Terminal reports whether no further transition is possible.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusApproved || s == PaymentStatusExpired
}

// CanTransitionTo reports whether s -> next is an allowed status change.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentStatusPending && next.Terminal()
}

// PaymentRecord is an append-only record of one PIX checkout attempt.
type PaymentRecord struct {
	ID            string          `json:"id" db:"id"`
	ExternalID    string          `json:"external_id" db:"external_id"`
	Provider      string          `json:"provider" db:"provider"`
	OwnerUserID   string          `json:"owner_user_id" db:"owner_user_id"`
	ListingID     string          `json:"listing_id" db:"listing_id"`
	Plan          Plan            `json:"plan" db:"plan"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Currency      string          `json:"currency" db:"currency"`
	Status        PaymentStatus   `json:"status" db:"status"`
	QRCodePayload string          `json:"qr_code_payload" db:"qr_code_payload"`
	QRCodeImage   string          `json:"qr_code_image,omitempty" db:"qr_code_image"`
	ExpiresAt     time.Time       `json:"expires_at" db:"expires_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// PixIntent is what a gateway returns when a PIX charge is created.
type PixIntent struct {
	ExternalID    string
	QRCodePayload string
	QRCodeImage   string
	ExpiresAt     time.Time
}
