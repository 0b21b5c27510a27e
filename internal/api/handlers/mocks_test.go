package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/repositories"
)

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Search(ctx context.Context, criteria services.SearchCriteria, key services.SortKey, loc *entities.UserLocation) (*services.SearchResult, error) {
	args := m.Called(ctx, criteria, key, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SearchResult), args.Error(1)
}

func (m *MockDirectory) Suggest(ctx context.Context, query string, limit int) ([]repositories.ListingSuggestion, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repositories.ListingSuggestion), args.Error(1)
}

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) ViewListing(ctx context.Context, id string) (*entities.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Listing), args.Error(1)
}

func (m *MockListingService) GetByOwner(ctx context.Context, ownerUserID string) (*entities.Listing, error) {
	args := m.Called(ctx, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Listing), args.Error(1)
}

func (m *MockListingService) SaveProfile(ctx context.Context, ownerUserID string, input services.ProfileInput) (*entities.Listing, error) {
	args := m.Called(ctx, ownerUserID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Listing), args.Error(1)
}

func (m *MockListingService) Claim(ctx context.Context, listingID, ownerUserID string) (*entities.Listing, error) {
	args := m.Called(ctx, listingID, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Listing), args.Error(1)
}

func (m *MockListingService) AddReview(ctx context.Context, listingID string, input services.ReviewInput) (*entities.Review, error) {
	args := m.Called(ctx, listingID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Review), args.Error(1)
}

func (m *MockListingService) CreateSeed(ctx context.Context, input services.ProfileInput) (*entities.Listing, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Listing), args.Error(1)
}

func (m *MockListingService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockListingService) SetReviewHidden(ctx context.Context, listingID, reviewID string, hidden bool) error {
	return m.Called(ctx, listingID, reviewID, hidden).Error(0)
}

func (m *MockListingService) Stats(ctx context.Context) (*services.DirectoryStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DirectoryStats), args.Error(1)
}

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) StartCheckout(ctx context.Context, ownerUserID string, plan entities.Plan) (*entities.PaymentRecord, error) {
	args := m.Called(ctx, ownerUserID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRecord), args.Error(1)
}

func (m *MockCheckoutService) Status(ctx context.Context, externalID string) (*entities.PaymentRecord, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRecord), args.Error(1)
}

func (m *MockCheckoutService) SubscribeToStatus(ctx context.Context, externalID string, callback func(*entities.PaymentEvent)) (func(), error) {
	args := m.Called(ctx, externalID, callback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}
