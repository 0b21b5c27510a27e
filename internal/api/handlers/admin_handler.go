package handlers

import (
	"context"
	"net/http"

	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/domain/entities"
)

// ListingAdmin is the back-office view of the directory.
type ListingAdmin interface {
	CreateSeed(ctx context.Context, input services.ProfileInput) (*entities.Listing, error)
	Delete(ctx context.Context, id string) error
	SetReviewHidden(ctx context.Context, listingID, reviewID string, hidden bool) error
	Stats(ctx context.Context) (*services.DirectoryStats, error)
}

type reviewVisibilityRequest struct {
	Hidden *bool `json:"hidden"`
}

// AdminHandler handles back-office requests. Routes are expected to sit
// behind the admin token middleware.
type AdminHandler struct {
	admin ListingAdmin
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin ListingAdmin) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// CreateListing handles POST /api/admin/listings
func (h *AdminHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var input services.ProfileInput
	if !decodeJSON(w, r, &input) {
		return
	}

	listing, err := h.admin.CreateSeed(r.Context(), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, listing)
}

// DeleteListing handles DELETE /api/admin/listings/{id}
func (h *AdminHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetReviewVisibility handles PATCH /api/admin/listings/{id}/reviews/{reviewId}
func (h *AdminHandler) SetReviewVisibility(w http.ResponseWriter, r *http.Request) {
	var req reviewVisibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Hidden == nil {
		respondWithError(w, http.StatusBadRequest, "hidden is required")
		return
	}

	listingID, reviewID := r.PathValue("id"), r.PathValue("reviewId")
	if err := h.admin.SetReviewHidden(r.Context(), listingID, reviewID, *req.Hidden); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"listing_id": listingID,
		"review_id":  reviewID,
		"hidden":     *req.Hidden,
	})
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
