package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tanamao/directory/internal/api/handlers"
	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/domain/entities"
	apperrors "github.com/tanamao/directory/pkg/errors"
)

func TestAdminHandler_CreateListing(t *testing.T) {
	admin := new(MockListingService)
	handler := handlers.NewAdminHandler(admin)
	admin.On("CreateSeed", mock.Anything, mock.MatchedBy(func(in services.ProfileInput) bool {
		return in.Profile.CompanyName == "Padaria Central"
	})).Return(&entities.Listing{ID: "l-seed", IsClaimable: true}, nil)

	payload := `{"profile_type":"Comercio","sub_category":"Padaria","profile":{"company_name":"Padaria Central"}}`
	req := httptest.NewRequest("POST", "/api/admin/listings", bytes.NewBufferString(payload))
	w := httptest.NewRecorder()

	handler.CreateListing(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"is_claimable":true`)
	admin.AssertExpectations(t)
}

func TestAdminHandler_DeleteListing(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		admin := new(MockListingService)
		handler := handlers.NewAdminHandler(admin)
		admin.On("Delete", mock.Anything, "l-1").Return(nil)

		req := httptest.NewRequest("DELETE", "/api/admin/listings/l-1", nil)
		req.SetPathValue("id", "l-1")
		w := httptest.NewRecorder()

		handler.DeleteListing(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("unknown listing", func(t *testing.T) {
		admin := new(MockListingService)
		handler := handlers.NewAdminHandler(admin)
		admin.On("Delete", mock.Anything, "missing").Return(apperrors.NewNotFoundError("listing missing not found"))

		req := httptest.NewRequest("DELETE", "/api/admin/listings/missing", nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		handler.DeleteListing(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminHandler_SetReviewVisibility(t *testing.T) {
	t.Run("hides a review", func(t *testing.T) {
		admin := new(MockListingService)
		handler := handlers.NewAdminHandler(admin)
		admin.On("SetReviewHidden", mock.Anything, "l-1", "r-1", true).Return(nil)

		req := httptest.NewRequest("PATCH", "/api/admin/listings/l-1/reviews/r-1", bytes.NewBufferString(`{"hidden":true}`))
		req.SetPathValue("id", "l-1")
		req.SetPathValue("reviewId", "r-1")
		w := httptest.NewRecorder()

		handler.SetReviewVisibility(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		admin.AssertExpectations(t)
	})

	t.Run("hidden is required", func(t *testing.T) {
		admin := new(MockListingService)
		handler := handlers.NewAdminHandler(admin)

		req := httptest.NewRequest("PATCH", "/api/admin/listings/l-1/reviews/r-1", bytes.NewBufferString(`{}`))
		req.SetPathValue("id", "l-1")
		req.SetPathValue("reviewId", "r-1")
		w := httptest.NewRecorder()

		handler.SetReviewVisibility(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		admin.AssertNotCalled(t, "SetReviewHidden", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAdminHandler_GetStats(t *testing.T) {
	admin := new(MockListingService)
	handler := handlers.NewAdminHandler(admin)
	admin.On("Stats", mock.Anything).Return(&services.DirectoryStats{
		TotalListings:  3,
		ByPlan:         map[entities.Plan]int{entities.PlanFree: 1, entities.PlanVIP: 1, entities.PlanPremium: 1},
		MonthlyRevenue: decimal.RequireFromString("18.23"),
	}, nil)

	req := httptest.NewRequest("GET", "/api/admin/stats", nil)
	w := httptest.NewRecorder()

	handler.GetStats(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["total_listings"])
	assert.Equal(t, "18.23", body["monthly_revenue"])
}
