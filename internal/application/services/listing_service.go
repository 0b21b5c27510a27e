package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	apperrors "github.com/tanamao/directory/pkg/errors"
	"github.com/tanamao/directory/pkg/geo"
)

const maxReviewCommentLength = 1000

// ProfileInput is the editable part of a listing.
type ProfileInput struct {
	ProfileType entities.ProfileType `json:"profile_type"`
	SubCategory string               `json:"sub_category"`
	Address     entities.Address     `json:"address"`
	Profile     entities.Profile     `json:"profile"`
}

// ReviewInput is a new customer review.
type ReviewInput struct {
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	AuthorName string `json:"author_name"`
}

// DirectoryStats is the admin dashboard summary. Plans are counted after
// lazy expiry.
type DirectoryStats struct {
	TotalListings     int                          `json:"total_listings"`
	ByPlan            map[entities.Plan]int        `json:"by_plan"`
	ByProfileType     map[entities.ProfileType]int `json:"by_profile_type"`
	ClaimableListings int                          `json:"claimable_listings"`
	TotalViews        int64                        `json:"total_views"`
	MonthlyRevenue    decimal.Decimal              `json:"monthly_revenue"`
}

// ListingService manages listing profiles, reviews and admin operations.
type ListingService struct {
	listingRepo repositories.ListingRepository
	index       repositories.ListingIndex
	geocoder    providers.GeolocationProvider
	clock       Clock
	prices      map[entities.Plan]decimal.Decimal
}

// NewListingService creates the listing service. index and geocoder may be nil.
func NewListingService(
	listingRepo repositories.ListingRepository,
	index repositories.ListingIndex,
	geocoder providers.GeolocationProvider,
	clock Clock,
	prices map[entities.Plan]decimal.Decimal,
) *ListingService {
	if clock == nil {
		clock = SystemClock
	}
	return &ListingService{
		listingRepo: listingRepo,
		index:       index,
		geocoder:    geocoder,
		clock:       clock,
		prices:      prices,
	}
}

// ViewListing returns the public detail of a listing and counts the view.
func (s *ListingService) ViewListing(ctx context.Context, id string) (*entities.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.listingRepo.IncrementViews(ctx, id); err != nil {
		return nil, err
	}

	out := ApplyLazyExpiry(listing, s.clock.Now()).Clone()
	out.ViewCount++
	out.Reviews = out.VisibleReviews()
	out.OwnerUserID = ""
	return out, nil
}

// GetListing returns a listing as stored, after lazy expiry. It does not
// count a view.
func (s *ListingService) GetListing(ctx context.Context, id string) (*entities.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ApplyLazyExpiry(listing, s.clock.Now()), nil
}

// GetByOwner returns the listing owned by ownerUserID.
func (s *ListingService) GetByOwner(ctx context.Context, ownerUserID string) (*entities.Listing, error) {
	if ownerUserID == "" {
		return nil, apperrors.NewUnauthorizedError("owner user id is required")
	}
	listing, err := s.listingRepo.GetByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	return ApplyLazyExpiry(listing, s.clock.Now()), nil
}

// SaveProfile creates the caller's listing or updates its profile. Plan,
// expiry, views and reviews are never changed here.
func (s *ListingService) SaveProfile(ctx context.Context, ownerUserID string, input ProfileInput) (*entities.Listing, error) {
	if ownerUserID == "" {
		return nil, apperrors.NewUnauthorizedError("owner user id is required")
	}
	if err := validateProfile(input); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	listing, err := s.listingRepo.GetByOwner(ctx, ownerUserID)
	switch {
	case apperrors.IsNotFound(err):
		listing = &entities.Listing{
			ID:          uuid.NewString(),
			OwnerUserID: ownerUserID,
			Plan:        entities.PlanFree,
			CreatedAt:   now,
		}
	case err != nil:
		return nil, err
	}

	return s.save(ctx, listing, input)
}

// CreateSeed creates an unowned listing that a professional can claim later.
func (s *ListingService) CreateSeed(ctx context.Context, input ProfileInput) (*entities.Listing, error) {
	if err := validateProfile(input); err != nil {
		return nil, err
	}
	listing := &entities.Listing{
		ID:          uuid.NewString(),
		Plan:        entities.PlanFree,
		IsClaimable: true,
		CreatedAt:   s.clock.Now(),
	}
	return s.save(ctx, listing, input)
}

func (s *ListingService) save(ctx context.Context, listing *entities.Listing, input ProfileInput) (*entities.Listing, error) {
	addressChanged := listing.Address != input.Address

	listing.ProfileType = input.ProfileType
	listing.SubCategory = strings.TrimSpace(input.SubCategory)
	listing.Category = entities.CategoryFor(listing.SubCategory)
	listing.Address = input.Address
	listing.Profile = input.Profile
	listing.UpdatedAt = s.clock.Now()

	if addressChanged || listing.Latitude == nil || listing.Longitude == nil {
		s.geocode(ctx, listing)
	}

	if err := s.listingRepo.Upsert(ctx, listing); err != nil {
		return nil, err
	}
	s.reindex(ctx, listing)
	return listing, nil
}

// geocode resolves the listing address. Failure leaves the listing without
// coordinates; it is then excluded from radius searches until resolved.
func (s *ListingService) geocode(ctx context.Context, listing *entities.Listing) {
	listing.Latitude, listing.Longitude = nil, nil
	if s.geocoder == nil {
		return
	}

	address := listing.Address.Text()
	if address == "" {
		return
	}
	coords, err := s.geocoder.Geocode(ctx, address+", Brasil")
	if err != nil || coords == nil || !geo.Valid(coords.Latitude, coords.Longitude) {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("listing_id", listing.ID).
			Msg("Geocoding failed, listing saved without coordinates")
		return
	}
	lat, lng := coords.Latitude, coords.Longitude
	listing.Latitude, listing.Longitude = &lat, &lng
}

func (s *ListingService) reindex(ctx context.Context, listing *entities.Listing) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, listing); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("listing_id", listing.ID).Msg("Failed to index listing")
	}
}

// Claim assigns an unowned seed listing to ownerUserID.
func (s *ListingService) Claim(ctx context.Context, listingID, ownerUserID string) (*entities.Listing, error) {
	if ownerUserID == "" {
		return nil, apperrors.NewUnauthorizedError("owner user id is required")
	}
	if _, err := s.listingRepo.GetByOwner(ctx, ownerUserID); err == nil {
		return nil, apperrors.NewConflictError("user already owns a listing")
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	if err := s.listingRepo.Claim(ctx, listingID, ownerUserID); err != nil {
		return nil, err
	}
	return s.GetByOwner(ctx, ownerUserID)
}

// AddReview appends a review to a listing.
func (s *ListingService) AddReview(ctx context.Context, listingID string, input ReviewInput) (*entities.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(input.Comment)
	if comment == "" {
		return nil, apperrors.NewValidationError("comment is required")
	}
	if utf8.RuneCountInString(comment) > maxReviewCommentLength {
		return nil, apperrors.NewValidationError("comment is too long")
	}
	author := strings.TrimSpace(input.AuthorName)
	if author == "" {
		return nil, apperrors.NewValidationError("author name is required")
	}

	review := entities.Review{
		ID:         uuid.NewString(),
		Rating:     input.Rating,
		Comment:    comment,
		AuthorName: author,
		Date:       s.clock.Now(),
	}
	if err := s.listingRepo.AddReview(ctx, listingID, review); err != nil {
		return nil, err
	}
	return &review, nil
}

// SetReviewHidden hides or restores a review.
func (s *ListingService) SetReviewHidden(ctx context.Context, listingID, reviewID string, hidden bool) error {
	return s.listingRepo.SetReviewHidden(ctx, listingID, reviewID, hidden)
}

// Delete removes a listing.
func (s *ListingService) Delete(ctx context.Context, id string) error {
	if err := s.listingRepo.Delete(ctx, id); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, id); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("listing_id", id).Msg("Failed to remove listing from index")
		}
	}
	return nil
}

// ListAll returns every listing after lazy expiry, for the admin view.
func (s *ListingService) ListAll(ctx context.Context) ([]*entities.Listing, error) {
	listings, err := s.listingRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyLazyExpiryAll(listings, s.clock.Now()), nil
}

// Stats summarises the directory for the admin dashboard. Revenue is the
// monthly equivalent of the active paid plans.
func (s *ListingService) Stats(ctx context.Context) (*DirectoryStats, error) {
	listings, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DirectoryStats{
		ByPlan:         map[entities.Plan]int{entities.PlanFree: 0, entities.PlanVIP: 0, entities.PlanPremium: 0},
		ByProfileType:  map[entities.ProfileType]int{},
		MonthlyRevenue: decimal.Zero,
	}
	twelve := decimal.NewFromInt(12)
	for _, l := range listings {
		stats.TotalListings++
		stats.ByPlan[l.Plan]++
		stats.ByProfileType[l.ProfileType]++
		stats.TotalViews += l.ViewCount
		if l.IsClaimable {
			stats.ClaimableListings++
		}
		switch l.Plan {
		case entities.PlanVIP:
			stats.MonthlyRevenue = stats.MonthlyRevenue.Add(s.prices[entities.PlanVIP])
		case entities.PlanPremium:
			stats.MonthlyRevenue = stats.MonthlyRevenue.Add(s.prices[entities.PlanPremium].Div(twelve))
		}
	}
	stats.MonthlyRevenue = stats.MonthlyRevenue.Round(2)
	return stats, nil
}

// ExpiringSoon lists listings whose paid plan ends within the renewal window.
func (s *ListingService) ExpiringSoon(ctx context.Context, window time.Duration) ([]*entities.Listing, error) {
	listings, err := s.listingRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return ExpiringSoon(listings, s.clock.Now(), window), nil
}

func validateProfile(input ProfileInput) error {
	if !input.ProfileType.Valid() {
		return apperrors.NewValidationErrorf("unknown profile type %q", input.ProfileType)
	}
	if strings.TrimSpace(input.SubCategory) == "" {
		return apperrors.NewValidationError("sub category is required")
	}
	if strings.TrimSpace(input.Address.City) == "" || strings.TrimSpace(input.Address.State) == "" {
		return apperrors.NewValidationError("city and state are required")
	}
	name := input.Profile.ProName
	if input.ProfileType == entities.ProfileTypeCommerce {
		name = input.Profile.CompanyName
	}
	if strings.TrimSpace(name) == "" {
		return apperrors.NewValidationError("display name is required")
	}
	if strings.TrimSpace(input.Profile.Phone) == "" && strings.TrimSpace(input.Profile.WhatsApp) == "" {
		return apperrors.NewValidationError("a phone or WhatsApp number is required")
	}
	return nil
}
