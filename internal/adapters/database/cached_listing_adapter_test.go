package database

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/internal/mocks"
)

func TestCachedListingAdapter_GetByID_Hit(t *testing.T) {
	store := mocks.NewListingRepository(t)
	cache := mocks.NewCacheProvider(t)
	adapter := NewCachedListingAdapter(store, cache, nil)

	data, err := json.Marshal(&entities.Listing{ID: "l-1", Plan: entities.PlanVIP})
	require.NoError(t, err)
	cache.On("Get", mock.Anything, "listing:l-1").Return(data, nil)

	l, err := adapter.GetByID(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, entities.PlanVIP, l.Plan)
	store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCachedListingAdapter_GetByID_Miss(t *testing.T) {
	store := mocks.NewListingRepository(t)
	cache := mocks.NewCacheProvider(t)
	adapter := NewCachedListingAdapter(store, cache, nil)

	cache.On("Get", mock.Anything, "listing:l-1").Return(nil, providers.ErrCacheMiss)
	store.On("GetByID", mock.Anything, "l-1").Return(&entities.Listing{ID: "l-1", Plan: entities.PlanFree}, nil)
	cache.On("Set", mock.Anything, "listing:l-1", mock.Anything, listingByIDTTL).Return(nil)

	l, err := adapter.GetByID(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, "l-1", l.ID)
}

func TestCachedListingAdapter_CacheErrorFallsThrough(t *testing.T) {
	store := mocks.NewListingRepository(t)
	cache := mocks.NewCacheProvider(t)
	adapter := NewCachedListingAdapter(store, cache, nil)

	cache.On("Get", mock.Anything, listingsAllCacheKey).Return(nil, errors.New("connection refused"))
	store.On("GetAll", mock.Anything).Return([]*entities.Listing{{ID: "l-1"}}, nil)
	cache.On("Set", mock.Anything, listingsAllCacheKey, mock.Anything, listingsListTTL).Return(errors.New("connection refused"))

	listings, err := adapter.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestCachedListingAdapter_GetAll_SharesConcurrentMisses(t *testing.T) {
	store := mocks.NewListingRepository(t)
	cache := mocks.NewCacheProvider(t)
	adapter := NewCachedListingAdapter(store, cache, nil)

	release := make(chan struct{})
	cache.On("Get", mock.Anything, listingsAllCacheKey).Return(nil, providers.ErrCacheMiss)
	cache.On("Set", mock.Anything, listingsAllCacheKey, mock.Anything, listingsListTTL).Return(nil)
	store.On("GetAll", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return([]*entities.Listing{{ID: "l-1"}}, nil)

	var wg sync.WaitGroup
	results := make([][]*entities.Listing, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = adapter.GetAll(context.Background())
		}(i)
	}

	// let every caller reach the flight before the store answers
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	calls := 0
	for _, c := range store.Calls {
		if c.Method == "GetAll" {
			calls++
		}
	}
	assert.Less(t, calls, 5)
	for _, r := range results {
		require.Len(t, r, 1)
	}
	assert.NotSame(t, results[0][0], results[1][0])
}

func TestCachedListingAdapter_WritesInvalidate(t *testing.T) {
	store := mocks.NewListingRepository(t)
	cache := mocks.NewCacheProvider(t)
	adapter := NewCachedListingAdapter(store, cache, nil)
	ctx := context.Background()
	expires := time.Now().Add(30 * 24 * time.Hour)

	store.On("UpdateSubscription", mock.Anything, "l-1", entities.PlanVIP, expires).Return(nil)
	cache.On("Delete", mock.Anything, []string{"listing:l-1", listingsAllCacheKey}).Return(nil).Once()
	require.NoError(t, adapter.UpdateSubscription(ctx, "l-1", entities.PlanVIP, expires))

	store.On("IncrementViews", mock.Anything, "l-1").Return(nil)
	cache.On("Delete", mock.Anything, []string{"listing:l-1"}).Return(nil).Once()
	require.NoError(t, adapter.IncrementViews(ctx, "l-1"))
}

func TestCachedListingAdapter_FailedWriteKeepsCache(t *testing.T) {
	store := mocks.NewListingRepository(t)
	cache := mocks.NewCacheProvider(t)
	adapter := NewCachedListingAdapter(store, cache, nil)

	store.On("Delete", mock.Anything, "l-1").Return(errors.New("boom"))

	assert.Error(t, adapter.Delete(context.Background(), "l-1"))
	cache.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
