package providers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tanamao/directory/internal/domain/entities"
)

// PaymentGateway creates PIX charges and reports their status.
type PaymentGateway interface {
	// Name identifies the gateway on stored payment records.
	Name() string

	CreatePixIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*entities.PixIntent, error)

	// GetStatus maps the gateway's native status onto pending, approved or expired.
	GetStatus(ctx context.Context, externalID string) (entities.PaymentStatus, error)
}
