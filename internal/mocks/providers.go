package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/providers"
)

// PaymentGateway mocks providers.PaymentGateway. Name is not mocked.
type PaymentGateway struct {
	mock.Mock
	GatewayName string
}

var _ providers.PaymentGateway = (*PaymentGateway)(nil)

func NewPaymentGateway(t T) *PaymentGateway {
	m := &PaymentGateway{GatewayName: "mock"}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *PaymentGateway) Name() string {
	return m.GatewayName
}

func (m *PaymentGateway) CreatePixIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*entities.PixIntent, error) {
	args := m.Called(ctx, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PixIntent), args.Error(1)
}

func (m *PaymentGateway) GetStatus(ctx context.Context, externalID string) (entities.PaymentStatus, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(entities.PaymentStatus), args.Error(1)
}

// GeolocationProvider mocks providers.GeolocationProvider.
type GeolocationProvider struct {
	mock.Mock
}

var _ providers.GeolocationProvider = (*GeolocationProvider)(nil)

func NewGeolocationProvider(t T) *GeolocationProvider {
	m := &GeolocationProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *GeolocationProvider) Geocode(ctx context.Context, address string) (*providers.Coordinates, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.Coordinates), args.Error(1)
}

// MessageSender mocks providers.MessageSender.
type MessageSender struct {
	mock.Mock
}

var _ providers.MessageSender = (*MessageSender)(nil)

func NewMessageSender(t T) *MessageSender {
	m := &MessageSender{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MessageSender) SendText(ctx context.Context, to, body string) error {
	return m.Called(ctx, to, body).Error(0)
}

// CacheProvider mocks providers.CacheProvider.
type CacheProvider struct {
	mock.Mock
}

var _ providers.CacheProvider = (*CacheProvider)(nil)

func NewCacheProvider(t T) *CacheProvider {
	m := &CacheProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *CacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *CacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	return m.Called(ctx, key, value, expirationSeconds).Error(0)
}

func (m *CacheProvider) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *CacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
