package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/providers"
)

// StripePixGateway creates PIX charges as Stripe PaymentIntents confirmed with
// the pix payment method. The QR code comes from the intent's next action.
type StripePixGateway struct {
	sessionTTL time.Duration
}

var _ providers.PaymentGateway = (*StripePixGateway)(nil)

// NewStripePixGateway sets the package-level Stripe key.
func NewStripePixGateway(secretKey string, sessionTTL time.Duration) *StripePixGateway {
	stripe.Key = secretKey
	return &StripePixGateway{sessionTTL: sessionTTL}
}

func (g *StripePixGateway) Name() string { return "stripe" }

func (g *StripePixGateway) CreatePixIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*entities.PixIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(minorUnits(amount)),
		Currency:           stripe.String(strings.ToLower(currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"pix"}),
		PaymentMethodData: &stripe.PaymentIntentPaymentMethodDataParams{
			Type: stripe.String("pix"),
		},
		PaymentMethodOptions: &stripe.PaymentIntentPaymentMethodOptionsParams{
			Pix: &stripe.PaymentIntentPaymentMethodOptionsPixParams{
				ExpiresAfterSeconds: stripe.Int64(int64(g.sessionTTL.Seconds())),
			},
		},
		Confirm:  stripe.Bool(true),
		Metadata: metadata,
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return intentFromStripe(pi, time.Now().Add(g.sessionTTL))
}

func (g *StripePixGateway) GetStatus(ctx context.Context, externalID string) (entities.PaymentStatus, error) {
	pi, err := paymentintent.Get(externalID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get payment intent: %w", err)
	}
	return mapStripeStatus(pi.Status), nil
}

// minorUnits converts an amount in reais to centavos.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func intentFromStripe(pi *stripe.PaymentIntent, fallbackExpiry time.Time) (*entities.PixIntent, error) {
	if pi.NextAction == nil || pi.NextAction.PixDisplayQRCode == nil {
		return nil, fmt.Errorf("payment intent %s has no pix qr code", pi.ID)
	}
	qr := pi.NextAction.PixDisplayQRCode

	expires := fallbackExpiry
	if qr.ExpiresAt > 0 {
		expires = time.Unix(qr.ExpiresAt, 0).UTC()
	}
	return &entities.PixIntent{
		ExternalID:    pi.ID,
		QRCodePayload: qr.Data,
		QRCodeImage:   qr.ImageURLPNG,
		ExpiresAt:     expires,
	}, nil
}

func mapStripeStatus(status stripe.PaymentIntentStatus) entities.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return entities.PaymentStatusApproved
	case stripe.PaymentIntentStatusCanceled:
		return entities.PaymentStatusExpired
	default:
		return entities.PaymentStatusPending
	}
}
