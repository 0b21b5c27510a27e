package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tanamao/directory/internal/api/handlers"
	"github.com/tanamao/directory/internal/api/middleware"
	"github.com/tanamao/directory/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	listingHandler  *handlers.ListingHandler
	checkoutHandler *handlers.CheckoutHandler
	streamHandler   *handlers.PaymentStreamHandler
	adminHandler    *handlers.AdminHandler

	responseCache   *middleware.ResponseCache
	checkoutLimiter *middleware.RateLimiter
	adminToken      string
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router. responseCache and checkoutLimiter may be nil.
func NewRouter(
	listingHandler *handlers.ListingHandler,
	checkoutHandler *handlers.CheckoutHandler,
	streamHandler *handlers.PaymentStreamHandler,
	adminHandler *handlers.AdminHandler,
	responseCache *middleware.ResponseCache,
	checkoutLimiter *middleware.RateLimiter,
	adminToken string,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		listingHandler:  listingHandler,
		checkoutHandler: checkoutHandler,
		streamHandler:   streamHandler,
		adminHandler:    adminHandler,
		responseCache:   responseCache,
		checkoutLimiter: checkoutLimiter,
		adminToken:      adminToken,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
	}
}

// SetupRoutes registers every endpoint and wraps the mux in the middleware
// chain.
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})
	r.mux.Handle("GET /metrics", promhttp.Handler())

	// Directory
	r.mux.HandleFunc("GET /api/listings", r.listingHandler.SearchListings)
	r.mux.Handle("GET /api/listings/suggest", r.cached(r.listingHandler.SuggestListings))
	r.mux.HandleFunc("GET /api/listings/{id}", r.listingHandler.GetListing)
	r.mux.Handle("GET /api/categories", r.cached(r.listingHandler.ListCategories))

	// Owner profile
	r.mux.HandleFunc("POST /api/listings", r.listingHandler.SaveProfile)
	r.mux.HandleFunc("POST /api/listings/{id}/claim", r.listingHandler.ClaimListing)
	r.mux.HandleFunc("POST /api/listings/{id}/reviews", r.listingHandler.AddReview)
	r.mux.HandleFunc("GET /api/owners/{ownerId}/listing", r.listingHandler.GetOwnerListing)

	// Checkout
	var startCheckout http.Handler = http.HandlerFunc(r.checkoutHandler.StartCheckout)
	if r.checkoutLimiter != nil {
		startCheckout = r.checkoutLimiter.Middleware(startCheckout)
	}
	r.mux.Handle("POST /api/checkout", startCheckout)
	r.mux.HandleFunc("GET /api/payments/{externalId}", r.checkoutHandler.GetPayment)
	r.mux.HandleFunc("GET /api/payments/{externalId}/stream", r.streamHandler.StreamPayment)

	// Back office
	admin := middleware.RequireAdmin(r.adminToken)
	r.mux.Handle("POST /api/admin/listings", admin(http.HandlerFunc(r.adminHandler.CreateListing)))
	r.mux.Handle("DELETE /api/admin/listings/{id}", admin(http.HandlerFunc(r.adminHandler.DeleteListing)))
	r.mux.Handle("PATCH /api/admin/listings/{id}/reviews/{reviewId}", admin(http.HandlerFunc(r.adminHandler.SetReviewVisibility)))
	r.mux.Handle("GET /api/admin/stats", admin(http.HandlerFunc(r.adminHandler.GetStats)))

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS must be outermost so rejected and cached responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CacheControl(middleware.Compression(handler))
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) cached(h http.HandlerFunc) http.Handler {
	if r.responseCache == nil {
		return h
	}
	return r.responseCache.Middleware(h)
}
