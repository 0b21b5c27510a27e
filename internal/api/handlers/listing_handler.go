package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/repositories"
)

// DirectorySearcher runs directory searches.
type DirectorySearcher interface {
	Search(ctx context.Context, criteria services.SearchCriteria, key services.SortKey, loc *entities.UserLocation) (*services.SearchResult, error)
	Suggest(ctx context.Context, query string, limit int) ([]repositories.ListingSuggestion, error)
}

// ListingManager serves listing profiles to their owners and visitors.
type ListingManager interface {
	ViewListing(ctx context.Context, id string) (*entities.Listing, error)
	GetByOwner(ctx context.Context, ownerUserID string) (*entities.Listing, error)
	SaveProfile(ctx context.Context, ownerUserID string, input services.ProfileInput) (*entities.Listing, error)
	Claim(ctx context.Context, listingID, ownerUserID string) (*entities.Listing, error)
	AddReview(ctx context.Context, listingID string, input services.ReviewInput) (*entities.Review, error)
}

// ListingHandler handles directory and listing requests
type ListingHandler struct {
	directory DirectorySearcher
	listings  ListingManager
}

// NewListingHandler creates a new listing handler
func NewListingHandler(directory DirectorySearcher, listings ListingManager) *ListingHandler {
	return &ListingHandler{
		directory: directory,
		listings:  listings,
	}
}

// SearchListings handles GET /api/listings
func (h *ListingHandler) SearchListings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	radius, err := services.ParseRadius(query.Get("radius"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	sortKey, err := services.ParseSortKey(query.Get("sort"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	loc, err := parseUserLocation(query.Get("lat"), query.Get("lng"), query.Get("accuracy"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	criteria := services.SearchCriteria{
		SearchTerm:  query.Get("q"),
		ProfileType: query.Get("type"),
		Category:    query.Get("category"),
		SubCategory: query.Get("sub"),
		City:        query.Get("city"),
		State:       query.Get("state"),
		Radius:      radius,
	}

	result, err := h.directory.Search(r.Context(), criteria, sortKey, loc)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// SuggestListings handles GET /api/listings/suggest
func (h *ListingHandler) SuggestListings(w http.ResponseWriter, r *http.Request) {
	limit := 8
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	suggestions, err := h.directory.Suggest(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// GetListing handles GET /api/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID := r.PathValue("id")
	if listingID == "" {
		respondWithError(w, http.StatusBadRequest, "listing ID is required")
		return
	}

	listing, err := h.listings.ViewListing(r.Context(), listingID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, listing)
}

// SaveProfile handles POST /api/listings
func (h *ListingHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var input services.ProfileInput
	if !decodeJSON(w, r, &input) {
		return
	}

	listing, err := h.listings.SaveProfile(r.Context(), ownerID, input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, listing)
}

// ClaimListing handles POST /api/listings/{id}/claim
func (h *ListingHandler) ClaimListing(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}

	listing, err := h.listings.Claim(r.Context(), r.PathValue("id"), ownerID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, listing)
}

// AddReview handles POST /api/listings/{id}/reviews
func (h *ListingHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	var input services.ReviewInput
	if !decodeJSON(w, r, &input) {
		return
	}

	review, err := h.listings.AddReview(r.Context(), r.PathValue("id"), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, review)
}

// GetOwnerListing handles GET /api/owners/{ownerId}/listing. Owners can only
// read their own listing.
func (h *ListingHandler) GetOwnerListing(w http.ResponseWriter, r *http.Request) {
	callerOwnerID, ok := callerID(w, r)
	if !ok {
		return
	}
	if ownerID := r.PathValue("ownerId"); ownerID != callerOwnerID {
		respondWithError(w, http.StatusForbidden, "cannot read another owner's listing")
		return
	}

	listing, err := h.listings.GetByOwner(r.Context(), callerOwnerID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, listing)
}

// ListCategories handles GET /api/categories
func (h *ListingHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	profileType := entities.ProfileType(r.URL.Query().Get("type"))
	if profileType != "" && !profileType.Valid() {
		respondWithError(w, http.StatusBadRequest, "unknown profile type")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"categories": entities.Categories(profileType),
	})
}

// parseUserLocation reads the device position. Both coordinates absent means
// no location; one without the other is an error.
func parseUserLocation(latStr, lngStr, accuracyStr string) (*entities.UserLocation, error) {
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	if latStr == "" || lngStr == "" {
		return nil, errBadLocation("lat and lng must be provided together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errBadLocation("invalid latitude parameter")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, errBadLocation("invalid longitude parameter")
	}

	loc := &entities.UserLocation{Lat: lat, Lng: lng}
	if accuracyStr != "" {
		if accuracy, err := strconv.ParseFloat(accuracyStr, 64); err == nil && accuracy >= 0 {
			loc.Accuracy = accuracy
		}
	}
	return loc, nil
}

type errBadLocation string

func (e errBadLocation) Error() string { return string(e) }
