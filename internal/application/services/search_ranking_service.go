package services

import (
	"sort"
	"strings"

	"github.com/tanamao/directory/internal/domain/entities"
	apperrors "github.com/tanamao/directory/pkg/errors"
	"github.com/tanamao/directory/pkg/geo"
)

// SortKey selects the ordering applied within a tier.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortByRating   SortKey = "rating"
	// SortByViews orders by stored view counts. Behind the listing cache the
	// counts may lag detail views by up to the list TTL (30s).
	SortByViews    SortKey = "views"
	SortByRecent   SortKey = "recent"
	SortByDistance SortKey = "distance"
)

// ParseSortKey validates a sort key; empty means name.
func ParseSortKey(raw string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(raw))); k {
	case "":
		return SortByName, nil
	case SortByName, SortByRating, SortByViews, SortByRecent, SortByDistance:
		return k, nil
	}
	return "", apperrors.NewValidationErrorf("unknown sort key %q", raw)
}

// TierWeight is the primary ranking key of a plan.
func TierWeight(plan entities.Plan) int {
	return plan.Weight()
}

// RankedListing is a listing in result order with its distance from the
// caller when that is known.
type RankedListing struct {
	Listing    *entities.Listing `json:"listing"`
	DistanceKm *float64          `json:"distance_km,omitempty"`
}

// SearchRankingService orders filtered listings.
type SearchRankingService struct{}

func NewSearchRankingService() *SearchRankingService {
	return &SearchRankingService{}
}

type rankEntry struct {
	RankedListing
	weight  int
	name    string
	rating  float64
	rated   bool
	located bool
	dist    float64
}

// Rank sorts by tier weight descending and then by key. The sort is stable so
// ties keep their filtered order. SortByDistance requires loc.
func (s *SearchRankingService) Rank(listings []*entities.Listing, key SortKey, loc *entities.UserLocation) ([]RankedListing, error) {
	if key == SortByDistance && loc == nil {
		return nil, apperrors.NewValidationError("distance ordering requires a user location")
	}
	if loc != nil && !geo.Valid(loc.Lat, loc.Lng) {
		return nil, apperrors.NewValidationError("user location is out of range")
	}

	entries := make([]rankEntry, len(listings))
	for i, l := range listings {
		if !l.Plan.Valid() {
			return nil, apperrors.NewValidationErrorf("listing %s has unknown plan %q", l.ID, l.Plan)
		}
		e := rankEntry{
			RankedListing: RankedListing{Listing: l},
			weight:        TierWeight(l.Plan),
			name:          strings.ToLower(l.DisplayName()),
		}
		e.rating, e.rated = l.AverageRating()
		if d, ok := listingDistance(l, loc); ok {
			e.located, e.dist = true, d
			dist := d
			e.DistanceKm = &dist
		}
		entries[i] = e
	}

	less, err := secondaryOrder(key)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if a.weight != b.weight {
			return a.weight > b.weight
		}
		return less(a, b)
	})

	out := make([]RankedListing, len(entries))
	for i := range entries {
		out[i] = entries[i].RankedListing
	}
	return out, nil
}

func secondaryOrder(key SortKey) (func(a, b *rankEntry) bool, error) {
	switch key {
	case SortByName, "":
		return func(a, b *rankEntry) bool { return a.name < b.name }, nil
	case SortByRating:
		return func(a, b *rankEntry) bool {
			if a.rated != b.rated {
				return a.rated
			}
			return a.rating > b.rating
		}, nil
	case SortByViews:
		return func(a, b *rankEntry) bool { return a.Listing.ViewCount > b.Listing.ViewCount }, nil
	case SortByRecent:
		return func(a, b *rankEntry) bool { return a.Listing.CreatedAt.After(b.Listing.CreatedAt) }, nil
	case SortByDistance:
		return func(a, b *rankEntry) bool {
			if a.located != b.located {
				return a.located
			}
			return a.dist < b.dist
		}, nil
	}
	return nil, apperrors.NewValidationErrorf("unknown sort key %q", key)
}
