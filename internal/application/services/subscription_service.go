package services

import (
	"context"
	"time"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	apperrors "github.com/tanamao/directory/pkg/errors"
)

// SubscriptionService owns the plan and expiry of listings. Activation is the
// only write path; expiry is applied lazily on read.
type SubscriptionService struct {
	listingRepo repositories.ListingRepository
	clock       Clock
}

func NewSubscriptionService(listingRepo repositories.ListingRepository, clock Clock) *SubscriptionService {
	if clock == nil {
		clock = SystemClock
	}
	return &SubscriptionService{listingRepo: listingRepo, clock: clock}
}

// ExpiryFor returns the subscription end for plan purchased at now.
func ExpiryFor(plan entities.Plan, now time.Time) (time.Time, error) {
	term, ok := plan.Term()
	if !ok {
		return time.Time{}, apperrors.NewValidationErrorf("plan %q cannot be activated", plan)
	}
	return now.Add(term), nil
}

// Activate puts listingID on plan until now plus the plan term. Repeating the
// call recomputes the expiry from now; it does not extend an earlier one.
func (s *SubscriptionService) Activate(ctx context.Context, listingID string, plan entities.Plan) (time.Time, error) {
	if listingID == "" {
		return time.Time{}, apperrors.NewValidationError("listing id is required")
	}
	expiresAt, err := ExpiryFor(plan, s.clock.Now())
	if err != nil {
		return time.Time{}, err
	}

	if err := s.listingRepo.UpdateSubscription(ctx, listingID, plan, expiresAt); err != nil {
		return time.Time{}, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("listing_id", listingID).
		Str("plan", string(plan)).
		Time("expires_at", expiresAt).
		Msg("Subscription activated")
	return expiresAt, nil
}

// ActivateForOwner activates plan on the listing owned by ownerUserID.
func (s *SubscriptionService) ActivateForOwner(ctx context.Context, ownerUserID string, plan entities.Plan) (string, time.Time, error) {
	listing, err := s.listingRepo.GetByOwner(ctx, ownerUserID)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt, err := s.Activate(ctx, listing.ID, plan)
	return listing.ID, expiresAt, err
}

// Now returns the service clock's current time.
func (s *SubscriptionService) Now() time.Time {
	return s.clock.Now()
}

// ApplyLazyExpiry returns l as it must be presented at now. A paid listing
// whose expiry has passed, or that has no expiry at all, comes back as a Free
// copy with the expiry timestamp kept. l itself is never modified.
func ApplyLazyExpiry(l *entities.Listing, now time.Time) *entities.Listing {
	if l == nil || l.Plan == entities.PlanFree {
		return l
	}
	if l.SubscriptionExpiresAt != nil && !l.SubscriptionExpiresAt.Before(now) {
		return l
	}
	c := l.Clone()
	c.Plan = entities.PlanFree
	return c
}

// ApplyLazyExpiryAll applies ApplyLazyExpiry to each listing.
func ApplyLazyExpiryAll(listings []*entities.Listing, now time.Time) []*entities.Listing {
	out := make([]*entities.Listing, len(listings))
	for i, l := range listings {
		out[i] = ApplyLazyExpiry(l, now)
	}
	return out
}

// ExpiringSoon lists paid listings whose subscription ends within window of now.
func ExpiringSoon(listings []*entities.Listing, now time.Time, window time.Duration) []*entities.Listing {
	var out []*entities.Listing
	for _, l := range listings {
		if l == nil || !l.Plan.Paid() || l.SubscriptionExpiresAt == nil {
			continue
		}
		exp := *l.SubscriptionExpiresAt
		if !exp.Before(now) && exp.Before(now.Add(window)) {
			out = append(out, l)
		}
	}
	return out
}
