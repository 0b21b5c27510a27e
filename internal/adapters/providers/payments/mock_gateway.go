package payments

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/providers"
)

const (
	mockApproveAbove = 0.85
	mockExpireBelow  = 0.05
)

// MockGateway simulates a PIX gateway for development. Each status check
// rolls a number: above 0.85 approves, below 0.05 expires, anything else
// stays pending. Terminal answers are sticky.
type MockGateway struct {
	mu       sync.Mutex
	roll     func() float64
	ttl      time.Duration
	statuses map[string]entities.PaymentStatus
}

var _ providers.PaymentGateway = (*MockGateway)(nil)

func NewMockGateway(ttl time.Duration) *MockGateway {
	return NewMockGatewayWithRoll(ttl, rand.Float64)
}

// NewMockGatewayWithRoll lets tests script the random rolls.
func NewMockGatewayWithRoll(ttl time.Duration, roll func() float64) *MockGateway {
	return &MockGateway{
		roll:     roll,
		ttl:      ttl,
		statuses: make(map[string]entities.PaymentStatus),
	}
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) CreatePixIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*entities.PixIntent, error) {
	id := "mock_" + uuid.NewString()

	g.mu.Lock()
	g.statuses[id] = entities.PaymentStatusPending
	g.mu.Unlock()

	return &entities.PixIntent{
		ExternalID:    id,
		QRCodePayload: fmt.Sprintf("00020126580014BR.GOV.BCB.PIX0136%s5204000053039865406%s5802BR", id, amount.StringFixed(2)),
		ExpiresAt:     time.Now().Add(g.ttl),
	}, nil
}

func (g *MockGateway) GetStatus(ctx context.Context, externalID string) (entities.PaymentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.statuses[externalID]
	if !ok {
		return "", fmt.Errorf("unknown payment %s", externalID)
	}
	if status.Terminal() {
		return status, nil
	}

	r := g.roll()
	switch {
	case r > mockApproveAbove:
		status = entities.PaymentStatusApproved
	case r < mockExpireBelow:
		status = entities.PaymentStatusExpired
	}
	g.statuses[externalID] = status
	return status, nil
}

// Approve forces a payment to approved on its next check.
func (g *MockGateway) Approve(externalID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.statuses[externalID]; ok {
		g.statuses[externalID] = entities.PaymentStatusApproved
	}
}
