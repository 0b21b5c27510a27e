package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/mocks"
	apperrors "github.com/tanamao/directory/pkg/errors"
)

func TestSearch_ExpiredVIPRanksAsFree(t *testing.T) {
	expired := newListing("expired", withName("Aaa"), withPlan(entities.PlanVIP, testNow.Add(-24*time.Hour)))
	active := newListing("active", withName("Zzz"), withPlan(entities.PlanVIP, testNow.Add(24*time.Hour)))
	free := newListing("free", withName("Bbb"))

	result, err := services.Search([]*entities.Listing{expired, active, free}, services.SearchCriteria{}, services.SortByName, nil, testNow)
	require.NoError(t, err)

	assert.Equal(t, []string{"active", "expired", "free"}, ids(result.Listings))
	assert.Equal(t, entities.PlanFree, result.Listings[1].Listing.Plan)
	assert.Equal(t, entities.PlanVIP, expired.Plan)
}

func TestSearch_DistanceWithoutLocationFallsBackToName(t *testing.T) {
	listings := []*entities.Listing{
		newListing("b", withName("Bruno"), withCity("Bauru", "SP")),
		newListing("a", withName("Ana"), withCity("Bauru", "SP")),
		newListing("c", withName("Caio"), withCity("Marília", "SP")),
	}

	result, err := services.Search(listings, services.SearchCriteria{City: "Bauru"}, services.SortByDistance, nil, testNow)
	require.NoError(t, err)
	assert.Equal(t, services.SortByName, result.SortKey)
	assert.False(t, result.RadiusMode)
	assert.Equal(t, []string{"a", "b"}, ids(result.Listings))
}

func TestSearch_RadiusMode(t *testing.T) {
	listings := []*entities.Listing{
		newListing("far", withCoords(0, 0.09), withCity("Elsewhere", "XX")),
		newListing("near", withCoords(0, 0.01)),
		newListing("unknown"),
	}
	user := &entities.UserLocation{Lat: 0, Lng: 0}

	result, err := services.Search(listings, services.SearchCriteria{Radius: services.RadiusKm(5), City: "Bauru"}, services.SortByDistance, user, testNow)
	require.NoError(t, err)
	assert.True(t, result.RadiusMode)
	assert.Equal(t, "5", result.Radius)
	assert.Equal(t, []string{"near"}, ids(result.Listings))

	result, err = services.Search(listings, services.SearchCriteria{Radius: services.RadiusAll}, services.SortByDistance, user, testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "far", "unknown"}, ids(result.Listings))
}

func TestSearch_LocationWithOtherSortUsesCityState(t *testing.T) {
	listings := []*entities.Listing{
		newListing("bauru", withCoords(0, 0.5)),
		newListing("rio", withCoords(0, 0.01), withCity("Rio de Janeiro", "RJ")),
	}

	result, err := services.Search(listings, services.SearchCriteria{State: "SP", Radius: services.RadiusKm(5)}, services.SortByName, &entities.UserLocation{}, testNow)
	require.NoError(t, err)
	assert.False(t, result.RadiusMode)
	assert.Equal(t, []string{"bauru"}, ids(result.Listings))
	require.NotNil(t, result.Listings[0].DistanceKm)
}

func TestSearch_InvalidInput(t *testing.T) {
	_, err := services.Search(nil, services.SearchCriteria{}, services.SortByName, &entities.UserLocation{Lat: 200}, testNow)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	bad := newListing("bad", func(l *entities.Listing) {
		l.Plan = "Gold"
		future := testNow.Add(time.Hour)
		l.SubscriptionExpiresAt = &future
	})
	_, err = services.Search([]*entities.Listing{bad}, services.SearchCriteria{}, services.SortByName, nil, testNow)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestDirectoryService_Search(t *testing.T) {
	repo := mocks.NewListingRepository(t)
	svc := services.NewDirectoryService(repo, nil, newFakeClock(testNow), nil)

	repo.On("GetAll", mock.Anything).Return([]*entities.Listing{
		newListing("l-1"),
		newListing("l-2", withPlan(entities.PlanPremium, testNow.Add(time.Hour))),
	}, nil)

	result, err := svc.Search(context.Background(), services.SearchCriteria{}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, []string{"l-2", "l-1"}, ids(result.Listings))
}

func TestDirectoryService_SearchStoreError(t *testing.T) {
	repo := mocks.NewListingRepository(t)
	svc := services.NewDirectoryService(repo, nil, newFakeClock(testNow), nil)

	repo.On("GetAll", mock.Anything).Return(nil, apperrors.NewInternalError("db", errors.New("down")))

	_, err := svc.Search(context.Background(), services.SearchCriteria{}, services.SortByName, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestDirectoryService_Suggest(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the index", func(t *testing.T) {
		repo := mocks.NewListingRepository(t)
		index := mocks.NewListingIndex(t)
		svc := services.NewDirectoryService(repo, index, newFakeClock(testNow), nil)

		index.On("Suggest", mock.Anything, "pad", 5).Return([]repositories.ListingSuggestion{{ID: "l-1", DisplayName: "Padaria"}}, nil)

		got, err := svc.Suggest(ctx, "pad", 5)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Padaria", got[0].DisplayName)
	})

	t.Run("falls back to the store", func(t *testing.T) {
		repo := mocks.NewListingRepository(t)
		index := mocks.NewListingIndex(t)
		svc := services.NewDirectoryService(repo, index, newFakeClock(testNow), nil)

		index.On("Suggest", mock.Anything, "luz", 8).Return(nil, errors.New("connection refused"))
		repo.On("GetAll", mock.Anything).Return([]*entities.Listing{
			newListing("l-1", withName("João Luz")),
			newListing("l-2", withName("Maria")),
		}, nil)

		got, err := svc.Suggest(ctx, "luz", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "João Luz", got[0].DisplayName)
	})

	t.Run("short query", func(t *testing.T) {
		svc := services.NewDirectoryService(mocks.NewListingRepository(t), nil, newFakeClock(testNow), nil)

		got, err := svc.Suggest(ctx, "a", 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
