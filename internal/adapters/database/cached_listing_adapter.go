package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/observability"
)

// Cache TTLs (in seconds)
const (
	listingByIDTTL  = 300
	listingsListTTL = 30
)

const listingsAllCacheKey = "listings:all"

func listingCacheKey(id string) string {
	return fmt.Sprintf("listing:%s", id)
}

// CachedListingAdapter wraps a ListingRepository with a read-through cache.
// Every write goes to the store first and then drops the affected keys.
// Concurrent misses of the full listing set share one store query.
type CachedListingAdapter struct {
	adapter repositories.ListingRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
	group   singleflight.Group
}

var _ repositories.ListingRepository = (*CachedListingAdapter)(nil)

func NewCachedListingAdapter(adapter repositories.ListingRepository, cache providers.CacheProvider, metrics *observability.Metrics) *CachedListingAdapter {
	return &CachedListingAdapter{adapter: adapter, cache: cache, metrics: metrics}
}

func (a *CachedListingAdapter) GetAll(ctx context.Context) ([]*entities.Listing, error) {
	var cached []*entities.Listing
	if a.read(ctx, listingsAllCacheKey, &cached) {
		observability.RecordCacheHit(ctx, a.metrics, "listings")
		return cached, nil
	}
	observability.RecordCacheMiss(ctx, a.metrics, "listings")

	v, err, _ := a.group.Do(listingsAllCacheKey, func() (interface{}, error) {
		listings, err := a.adapter.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		a.write(ctx, listingsAllCacheKey, listings, listingsListTTL)
		return listings, nil
	})
	if err != nil {
		return nil, err
	}

	// callers sharing a flight must not share listing pointers
	shared := v.([]*entities.Listing)
	out := make([]*entities.Listing, len(shared))
	for i, l := range shared {
		out[i] = l.Clone()
	}
	return out, nil
}

func (a *CachedListingAdapter) GetByID(ctx context.Context, id string) (*entities.Listing, error) {
	key := listingCacheKey(id)

	var cached entities.Listing
	if a.read(ctx, key, &cached) {
		observability.RecordCacheHit(ctx, a.metrics, "listing")
		return &cached, nil
	}
	observability.RecordCacheMiss(ctx, a.metrics, "listing")

	listing, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.write(ctx, key, listing, listingByIDTTL)
	return listing, nil
}

// GetByOwner is not cached; it sits on the checkout and profile paths where
// a stale answer could create a second listing.
func (a *CachedListingAdapter) GetByOwner(ctx context.Context, ownerUserID string) (*entities.Listing, error) {
	return a.adapter.GetByOwner(ctx, ownerUserID)
}

func (a *CachedListingAdapter) Upsert(ctx context.Context, listing *entities.Listing) error {
	if err := a.adapter.Upsert(ctx, listing); err != nil {
		return err
	}
	a.invalidate(ctx, listing.ID, true)
	return nil
}

func (a *CachedListingAdapter) Delete(ctx context.Context, id string) error {
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx, id, true)
	return nil
}

// IncrementViews only drops the detail key. View counts in the cached full
// set may lag by up to listingsListTTL.
func (a *CachedListingAdapter) IncrementViews(ctx context.Context, id string) error {
	if err := a.adapter.IncrementViews(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx, id, false)
	return nil
}

func (a *CachedListingAdapter) UpdateSubscription(ctx context.Context, id string, plan entities.Plan, expiresAt time.Time) error {
	if err := a.adapter.UpdateSubscription(ctx, id, plan, expiresAt); err != nil {
		return err
	}
	a.invalidate(ctx, id, true)
	return nil
}

func (a *CachedListingAdapter) Claim(ctx context.Context, id, ownerUserID string) error {
	if err := a.adapter.Claim(ctx, id, ownerUserID); err != nil {
		return err
	}
	a.invalidate(ctx, id, true)
	return nil
}

func (a *CachedListingAdapter) AddReview(ctx context.Context, id string, review entities.Review) error {
	if err := a.adapter.AddReview(ctx, id, review); err != nil {
		return err
	}
	a.invalidate(ctx, id, true)
	return nil
}

func (a *CachedListingAdapter) SetReviewHidden(ctx context.Context, id, reviewID string, hidden bool) error {
	if err := a.adapter.SetReviewHidden(ctx, id, reviewID, hidden); err != nil {
		return err
	}
	a.invalidate(ctx, id, true)
	return nil
}

func (a *CachedListingAdapter) read(ctx context.Context, key string, dest any) bool {
	data, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to decode cached value")
		return false
	}
	return true
}

func (a *CachedListingAdapter) write(ctx context.Context, key string, value any, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (a *CachedListingAdapter) invalidate(ctx context.Context, id string, all bool) {
	keys := []string{listingCacheKey(id)}
	if all {
		keys = append(keys, listingsAllCacheKey)
	}
	if err := a.cache.Delete(ctx, keys...); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Strs("keys", keys).Msg("Cache invalidation failed")
	}
}
