package services_test

import (
	"sync"
	"time"

	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/domain/entities"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ services.Clock = (*fakeClock)(nil)

type listingOpt func(*entities.Listing)

func newListing(id string, opts ...listingOpt) *entities.Listing {
	l := &entities.Listing{
		ID:          id,
		ProfileType: entities.ProfileTypeProfessional,
		Category:    "Construção e Reformas",
		SubCategory: "Eletricista",
		Plan:        entities.PlanFree,
		Address:     entities.Address{Street: "Rua A, 10", Neighborhood: "Centro", City: "Bauru", State: "SP"},
		Profile:     entities.Profile{ProName: "Pro " + id, WhatsApp: "14999990000"},
		CreatedAt:   testNow.Add(-24 * time.Hour),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func withPlan(plan entities.Plan, expires time.Time) listingOpt {
	return func(l *entities.Listing) {
		l.Plan = plan
		l.SubscriptionExpiresAt = &expires
	}
}

func withName(name string) listingOpt {
	return func(l *entities.Listing) { l.Profile.ProName = name }
}

func withCoords(lat, lng float64) listingOpt {
	return func(l *entities.Listing) {
		l.Latitude = &lat
		l.Longitude = &lng
	}
}

func withRatings(ratings ...int) listingOpt {
	return func(l *entities.Listing) {
		for i, r := range ratings {
			l.Reviews = append(l.Reviews, entities.Review{ID: l.ID + "-r" + string(rune('a'+i)), Rating: r, Comment: "ok"})
		}
	}
}

func withViews(n int64) listingOpt {
	return func(l *entities.Listing) { l.ViewCount = n }
}

func withCity(city, state string) listingOpt {
	return func(l *entities.Listing) { l.Address.City, l.Address.State = city, state }
}

func ids(ranked []services.RankedListing) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Listing.ID
	}
	return out
}

func listingIDs(listings []*entities.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}
