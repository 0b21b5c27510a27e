package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tanamao/directory/internal/api/handlers"
	"github.com/tanamao/directory/internal/domain/entities"
	apperrors "github.com/tanamao/directory/pkg/errors"
)

func paymentRecord(status entities.PaymentStatus) *entities.PaymentRecord {
	created := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	return &entities.PaymentRecord{
		ID:            "p-1",
		ExternalID:    "pi_123",
		Provider:      "mock",
		OwnerUserID:   "user-1",
		ListingID:     "l-1",
		Plan:          entities.PlanVIP,
		Amount:        decimal.RequireFromString("9.90"),
		Currency:      "brl",
		Status:        status,
		QRCodePayload: "00020126...",
		ExpiresAt:     created.Add(30 * time.Minute),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestCheckoutHandler_StartCheckout(t *testing.T) {
	t.Run("creates a pending payment", func(t *testing.T) {
		service := new(MockCheckoutService)
		handler := handlers.NewCheckoutHandler(service)
		service.On("StartCheckout", mock.Anything, "user-1", entities.PlanVIP).
			Return(paymentRecord(entities.PaymentStatusPending), nil)

		req := httptest.NewRequest("POST", "/api/checkout", bytes.NewBufferString(`{"plan":"vip"}`))
		req.Header.Set(handlers.UserIDHeader, "user-1")
		w := httptest.NewRecorder()

		handler.StartCheckout(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "pi_123", body["external_id"])
		assert.Equal(t, "00020126...", body["qr_code_payload"])
		assert.Equal(t, "pending", body["status"])
		assert.NotContains(t, body, "next_action")
		service.AssertExpectations(t)
	})

	t.Run("gateway failure is retryable", func(t *testing.T) {
		service := new(MockCheckoutService)
		handler := handlers.NewCheckoutHandler(service)
		service.On("StartCheckout", mock.Anything, "user-1", entities.PlanPremium).
			Return(nil, apperrors.NewExternalError("failed to create PIX payment", assert.AnError))

		req := httptest.NewRequest("POST", "/api/checkout", bytes.NewBufferString(`{"plan":"Premium"}`))
		req.Header.Set(handlers.UserIDHeader, "user-1")
		w := httptest.NewRecorder()

		handler.StartCheckout(w, req)

		require.Equal(t, http.StatusBadGateway, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["retryable"])
	})

	t.Run("free is not a checkout plan", func(t *testing.T) {
		service := new(MockCheckoutService)
		handler := handlers.NewCheckoutHandler(service)
		service.On("StartCheckout", mock.Anything, "user-1", entities.PlanFree).
			Return(nil, apperrors.NewValidationError("plan Free cannot be purchased"))

		req := httptest.NewRequest("POST", "/api/checkout", bytes.NewBufferString(`{"plan":"Free"}`))
		req.Header.Set(handlers.UserIDHeader, "user-1")
		w := httptest.NewRecorder()

		handler.StartCheckout(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown plan", func(t *testing.T) {
		service := new(MockCheckoutService)
		handler := handlers.NewCheckoutHandler(service)

		req := httptest.NewRequest("POST", "/api/checkout", bytes.NewBufferString(`{"plan":"Gold"}`))
		req.Header.Set(handlers.UserIDHeader, "user-1")
		w := httptest.NewRecorder()

		handler.StartCheckout(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		service.AssertNotCalled(t, "StartCheckout", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("owner without a listing", func(t *testing.T) {
		service := new(MockCheckoutService)
		handler := handlers.NewCheckoutHandler(service)
		service.On("StartCheckout", mock.Anything, "user-7", entities.PlanVIP).
			Return(nil, apperrors.NewNotFoundError("no listing for user-7"))

		req := httptest.NewRequest("POST", "/api/checkout", bytes.NewBufferString(`{"plan":"VIP"}`))
		req.Header.Set(handlers.UserIDHeader, "user-7")
		w := httptest.NewRecorder()

		handler.StartCheckout(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		handler := handlers.NewCheckoutHandler(new(MockCheckoutService))

		req := httptest.NewRequest("POST", "/api/checkout", bytes.NewBufferString(`{"plan":"VIP"}`))
		w := httptest.NewRecorder()

		handler.StartCheckout(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCheckoutHandler_GetPayment(t *testing.T) {
	tests := []struct {
		name           string
		status         entities.PaymentStatus
		wantNextAction interface{}
	}{
		{"pending", entities.PaymentStatusPending, nil},
		{"approved", entities.PaymentStatusApproved, nil},
		{"expired asks for a new payment", entities.PaymentStatusExpired, "generate_new_payment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockCheckoutService)
			handler := handlers.NewCheckoutHandler(service)
			service.On("Status", mock.Anything, "pi_123").Return(paymentRecord(tt.status), nil)

			req := httptest.NewRequest("GET", "/api/payments/pi_123", nil)
			req.SetPathValue("externalId", "pi_123")
			w := httptest.NewRecorder()

			handler.GetPayment(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, string(tt.status), body["status"])
			assert.Equal(t, tt.wantNextAction, body["next_action"])
		})
	}

	t.Run("unknown payment", func(t *testing.T) {
		service := new(MockCheckoutService)
		handler := handlers.NewCheckoutHandler(service)
		service.On("Status", mock.Anything, "pi_x").Return(nil, apperrors.NewNotFoundError("payment pi_x not found"))

		req := httptest.NewRequest("GET", "/api/payments/pi_x", nil)
		req.SetPathValue("externalId", "pi_x")
		w := httptest.NewRecorder()

		handler.GetPayment(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
