package services

import (
	"context"
	"time"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	apperrors "github.com/tanamao/directory/pkg/errors"
	"github.com/tanamao/directory/pkg/geo"
)

// SearchResult is an ordered directory page.
type SearchResult struct {
	Listings   []RankedListing `json:"listings"`
	Total      int             `json:"total"`
	SortKey    SortKey         `json:"sort"`
	RadiusMode bool            `json:"radius_mode"`
	Radius     string          `json:"radius,omitempty"`
}

var defaultRanker = NewSearchRankingService()

// Search runs the read path over listings: lazy expiry at now, filtering and
// ranking. Radius mode applies when loc is set and key is SortByDistance;
// distance ordering without a location falls back to name ordering in
// City/State mode. listings is not modified.
func Search(listings []*entities.Listing, criteria SearchCriteria, key SortKey, loc *entities.UserLocation, now time.Time) (*SearchResult, error) {
	if loc != nil && !geo.Valid(loc.Lat, loc.Lng) {
		return nil, apperrors.NewValidationError("user location is out of range")
	}
	if key == "" {
		key = SortByName
	}
	if key == SortByDistance && loc == nil {
		key = SortByName
	}

	criteria.UserLocation = loc
	criteria.RadiusMode = loc != nil && key == SortByDistance

	current := ApplyLazyExpiryAll(listings, now)
	for _, l := range current {
		if l != nil && !l.Plan.Valid() {
			return nil, apperrors.NewValidationErrorf("listing %s has unknown plan %q", l.ID, l.Plan)
		}
	}

	filtered, err := FilterListings(current, criteria)
	if err != nil {
		return nil, err
	}
	ranked, err := defaultRanker.Rank(filtered, key, loc)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		Listings:   ranked,
		Total:      len(ranked),
		SortKey:    key,
		RadiusMode: criteria.RadiusMode,
	}
	if criteria.RadiusMode {
		result.Radius = criteria.Radius.String()
	}
	return result, nil
}

// DirectoryService answers directory searches from the listing store.
type DirectoryService struct {
	listingRepo repositories.ListingRepository
	index       repositories.ListingIndex
	clock       Clock
	metrics     *observability.Metrics
}

// NewDirectoryService creates the search service. index and metrics may be nil.
func NewDirectoryService(listingRepo repositories.ListingRepository, index repositories.ListingIndex, clock Clock, metrics *observability.Metrics) *DirectoryService {
	if clock == nil {
		clock = SystemClock
	}
	return &DirectoryService{listingRepo: listingRepo, index: index, clock: clock, metrics: metrics}
}

// Search loads every listing and runs the directory read path.
func (s *DirectoryService) Search(ctx context.Context, criteria SearchCriteria, key SortKey, loc *entities.UserLocation) (*SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "DirectoryService.Search")
	defer span.End()

	listings, err := s.listingRepo.GetAll(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	result, err := Search(listings, criteria, key, loc, s.clock.Now())
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.RecordSearch(ctx, s.metrics, string(result.SortKey), result.RadiusMode, result.Total)
	return result, nil
}

// Suggest returns name suggestions for type-ahead. Without a search index it
// falls back to the first matches of a name-ordered directory search.
func (s *DirectoryService) Suggest(ctx context.Context, query string, limit int) ([]repositories.ListingSuggestion, error) {
	if limit <= 0 || limit > 20 {
		limit = 8
	}
	if len(query) < 2 {
		return []repositories.ListingSuggestion{}, nil
	}

	if s.index != nil {
		suggestions, err := s.index.Suggest(ctx, query, limit)
		if err == nil {
			return suggestions, nil
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Search index unavailable, falling back to store scan")
	}

	result, err := s.Search(ctx, SearchCriteria{SearchTerm: query}, SortByName, nil)
	if err != nil {
		return nil, err
	}
	out := make([]repositories.ListingSuggestion, 0, limit)
	for _, r := range result.Listings {
		if len(out) == limit {
			break
		}
		out = append(out, SuggestionFor(r.Listing))
	}
	return out, nil
}

// SuggestionFor projects a listing onto a suggestion.
func SuggestionFor(l *entities.Listing) repositories.ListingSuggestion {
	return repositories.ListingSuggestion{
		ID:          l.ID,
		DisplayName: l.DisplayName(),
		SubCategory: l.SubCategory,
		City:        l.Address.City,
		State:       l.Address.State,
	}
}
