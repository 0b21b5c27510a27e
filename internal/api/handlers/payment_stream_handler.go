package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/infrastructure/observability"
)

const defaultHeartbeatInterval = 30 * time.Second

// PaymentStreamHandler pushes payment status transitions to the checkout
// screen over Server-Sent Events.
type PaymentStreamHandler struct {
	checkout          CheckoutService
	heartbeatInterval time.Duration

	mu      sync.RWMutex
	clients map[string]int
}

// NewPaymentStreamHandler creates a new payment stream handler
func NewPaymentStreamHandler(checkout CheckoutService) *PaymentStreamHandler {
	return &PaymentStreamHandler{
		checkout:          checkout,
		heartbeatInterval: defaultHeartbeatInterval,
		clients:           make(map[string]int),
	}
}

// WithHeartbeatInterval overrides the keep-alive period.
func (h *PaymentStreamHandler) WithHeartbeatInterval(d time.Duration) *PaymentStreamHandler {
	h.heartbeatInterval = d
	return h
}

// StreamPayment handles GET /api/payments/{externalId}/stream. The stream
// ends after the terminal event.
func (h *PaymentStreamHandler) StreamPayment(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("externalId")
	if externalID == "" {
		respondWithError(w, http.StatusBadRequest, "payment ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx).With().Str("external_id", externalID).Logger()

	events := make(chan *entities.PaymentEvent, 4)
	unsubscribe, err := h.checkout.SubscribeToStatus(ctx, externalID, func(event *entities.PaymentEvent) {
		select {
		case events <- event:
		case <-ctx.Done():
		}
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	defer unsubscribe()

	h.registerClient(externalID)
	defer h.unregisterClient(externalID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.sendEvent(w, &logger, "connected", map[string]interface{}{
		"external_id": externalID,
		"timestamp":   time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Client disconnected from payment stream")
			return
		case <-ticker.C:
			h.sendEvent(w, &logger, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event := <-events:
			if event == nil {
				continue
			}
			h.sendEvent(w, &logger, string(event.EventType), event)
			flusher.Flush()
			if event.Status.Terminal() {
				return
			}
		}
	}
}

func (h *PaymentStreamHandler) registerClient(externalID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[externalID]++
}

func (h *PaymentStreamHandler) unregisterClient(externalID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[externalID] <= 1 {
		delete(h.clients, externalID)
		return
	}
	h.clients[externalID]--
}

// ClientCount returns the number of open payment streams.
func (h *PaymentStreamHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}

func (h *PaymentStreamHandler) sendEvent(w http.ResponseWriter, logger *zerolog.Logger, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
