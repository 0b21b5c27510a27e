package handlers

import (
	"context"
	"net/http"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	apperrors "github.com/tanamao/directory/pkg/errors"
)

// CheckoutService starts PIX checkouts and reports their status.
type CheckoutService interface {
	StartCheckout(ctx context.Context, ownerUserID string, plan entities.Plan) (*entities.PaymentRecord, error)
	Status(ctx context.Context, externalID string) (*entities.PaymentRecord, error)
	SubscribeToStatus(ctx context.Context, externalID string, callback func(*entities.PaymentEvent)) (func(), error)
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

// paymentResponse is a payment record plus what the client should do next.
type paymentResponse struct {
	*entities.PaymentRecord
	NextAction string `json:"next_action,omitempty"`
}

const nextActionNewPayment = "generate_new_payment"

func newPaymentResponse(record *entities.PaymentRecord) paymentResponse {
	resp := paymentResponse{PaymentRecord: record}
	if record.Status == entities.PaymentStatusExpired {
		resp.NextAction = nextActionNewPayment
	}
	return resp
}

// CheckoutHandler handles checkout and payment status requests
type CheckoutHandler struct {
	checkout CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// StartCheckout handles POST /api/checkout
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	plan, err := entities.ParsePlan(req.Plan)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.checkout.StartCheckout(r.Context(), ownerID, plan)
	if err != nil {
		switch apperrors.TypeOf(err) {
		case apperrors.ErrorTypeExternal, apperrors.ErrorTypeInternal:
			// Nothing was persisted; the client can simply try again.
			observability.LoggerFromContext(r.Context()).Error().Err(err).
				Str("plan", string(plan)).
				Msg("Checkout failed")
			respondWithJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":     "could not create the PIX payment, please try again",
				"retryable": true,
			})
		default:
			respondWithAppError(w, r, err)
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, newPaymentResponse(record))
}

// GetPayment handles GET /api/payments/{externalId}
func (h *CheckoutHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("externalId")
	if externalID == "" {
		respondWithError(w, http.StatusBadRequest, "payment ID is required")
		return
	}

	record, err := h.checkout.Status(r.Context(), externalID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, newPaymentResponse(record))
}
