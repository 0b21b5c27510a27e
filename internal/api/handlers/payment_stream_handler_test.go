package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tanamao/directory/internal/api/handlers"
	"github.com/tanamao/directory/internal/domain/entities"
	apperrors "github.com/tanamao/directory/pkg/errors"
)

func streamRequest(ctx context.Context, externalID string) *http.Request {
	req := httptest.NewRequest("GET", "/api/payments/"+externalID+"/stream", nil).WithContext(ctx)
	req.SetPathValue("externalId", externalID)
	return req
}

func TestPaymentStreamHandler_ForwardsUntilTerminal(t *testing.T) {
	service := new(MockCheckoutService)
	handler := handlers.NewPaymentStreamHandler(service)

	var unsubscribed atomic.Bool
	approved := entities.NewPaymentEvent(paymentRecord(entities.PaymentStatusApproved), time.Now())
	service.On("SubscribeToStatus", mock.Anything, "pi_123", mock.Anything).
		Run(func(args mock.Arguments) {
			callback := args.Get(2).(func(*entities.PaymentEvent))
			go callback(approved)
		}).
		Return(func() { unsubscribed.Store(true) }, nil)

	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.StreamPayment(w, streamRequest(context.Background(), "pi_123"))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after the terminal event")
	}

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "event: connected\n"))
	assert.Contains(t, body, "event: payment_approved\n")
	assert.Contains(t, body, `"status":"approved"`)
	assert.True(t, unsubscribed.Load())
	assert.Equal(t, 0, handler.ClientCount())
}

func TestPaymentStreamHandler_HeartbeatAndDisconnect(t *testing.T) {
	service := new(MockCheckoutService)
	handler := handlers.NewPaymentStreamHandler(service).WithHeartbeatInterval(10 * time.Millisecond)

	var unsubscribed atomic.Bool
	service.On("SubscribeToStatus", mock.Anything, "pi_123", mock.Anything).
		Return(func() { unsubscribed.Store(true) }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.StreamPayment(w, streamRequest(ctx, "pi_123"))
	}()

	assert.Eventually(t, func() bool { return handler.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after the client disconnected")
	}

	assert.Contains(t, w.Body.String(), "event: heartbeat\n")
	assert.True(t, unsubscribed.Load())
	assert.Equal(t, 0, handler.ClientCount())
}

func TestPaymentStreamHandler_UnknownPayment(t *testing.T) {
	service := new(MockCheckoutService)
	handler := handlers.NewPaymentStreamHandler(service)
	service.On("SubscribeToStatus", mock.Anything, "pi_x", mock.Anything).
		Return(nil, apperrors.NewNotFoundError("payment pi_x not found"))

	w := httptest.NewRecorder()
	handler.StreamPayment(w, streamRequest(context.Background(), "pi_x"))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}
