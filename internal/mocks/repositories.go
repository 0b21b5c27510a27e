// Package mocks holds testify mocks of the domain ports.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/repositories"
)

// T is the part of *testing.T the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

// ListingRepository mocks repositories.ListingRepository.
type ListingRepository struct {
	mock.Mock
}

var _ repositories.ListingRepository = (*ListingRepository)(nil)

// NewListingRepository creates a mock that asserts its expectations when t finishes.
func NewListingRepository(t T) *ListingRepository {
	m := &ListingRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ListingRepository) GetAll(ctx context.Context) ([]*entities.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Listing), args.Error(1)
}

func (m *ListingRepository) GetByID(ctx context.Context, id string) (*entities.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Listing), args.Error(1)
}

func (m *ListingRepository) GetByOwner(ctx context.Context, ownerUserID string) (*entities.Listing, error) {
	args := m.Called(ctx, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Listing), args.Error(1)
}

func (m *ListingRepository) Upsert(ctx context.Context, listing *entities.Listing) error {
	return m.Called(ctx, listing).Error(0)
}

func (m *ListingRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ListingRepository) IncrementViews(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ListingRepository) UpdateSubscription(ctx context.Context, id string, plan entities.Plan, expiresAt time.Time) error {
	return m.Called(ctx, id, plan, expiresAt).Error(0)
}

func (m *ListingRepository) Claim(ctx context.Context, id, ownerUserID string) error {
	return m.Called(ctx, id, ownerUserID).Error(0)
}

func (m *ListingRepository) AddReview(ctx context.Context, id string, review entities.Review) error {
	return m.Called(ctx, id, review).Error(0)
}

func (m *ListingRepository) SetReviewHidden(ctx context.Context, id, reviewID string, hidden bool) error {
	return m.Called(ctx, id, reviewID, hidden).Error(0)
}

// PaymentRepository mocks repositories.PaymentRepository.
type PaymentRepository struct {
	mock.Mock
}

var _ repositories.PaymentRepository = (*PaymentRepository)(nil)

func NewPaymentRepository(t T) *PaymentRepository {
	m := &PaymentRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *PaymentRepository) Insert(ctx context.Context, record *entities.PaymentRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *PaymentRepository) GetByExternalID(ctx context.Context, externalID string) (*entities.PaymentRecord, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRecord), args.Error(1)
}

func (m *PaymentRepository) UpdateStatus(ctx context.Context, externalID string, status entities.PaymentStatus) (bool, error) {
	args := m.Called(ctx, externalID, status)
	return args.Bool(0), args.Error(1)
}

func (m *PaymentRepository) ListPending(ctx context.Context, notBefore time.Time) ([]*entities.PaymentRecord, error) {
	args := m.Called(ctx, notBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PaymentRecord), args.Error(1)
}

// ListingIndex mocks repositories.ListingIndex.
type ListingIndex struct {
	mock.Mock
}

var _ repositories.ListingIndex = (*ListingIndex)(nil)

func NewListingIndex(t T) *ListingIndex {
	m := &ListingIndex{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ListingIndex) Index(ctx context.Context, listing *entities.Listing) error {
	return m.Called(ctx, listing).Error(0)
}

func (m *ListingIndex) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ListingIndex) Suggest(ctx context.Context, query string, limit int) ([]repositories.ListingSuggestion, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repositories.ListingSuggestion), args.Error(1)
}
