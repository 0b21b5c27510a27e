package middleware_test

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tanamao/directory/internal/api/middleware"
	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/internal/mocks"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}`))
})

func TestCORSMiddleware(t *testing.T) {
	t.Run("echoes a configured origin", func(t *testing.T) {
		handler := middleware.CORSMiddleware([]string{"https://tanamao.app"})(okHandler)

		req := httptest.NewRequest("GET", "/api/listings", nil)
		req.Header.Set("Origin", "https://tanamao.app")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "https://tanamao.app", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-User-ID")
	})

	t.Run("ignores other origins", func(t *testing.T) {
		handler := middleware.CORSMiddleware([]string{"https://tanamao.app"})(okHandler)

		req := httptest.NewRequest("GET", "/api/listings", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("answers preflight without calling the handler", func(t *testing.T) {
		called := false
		handler := middleware.CORSMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest("OPTIONS", "/api/checkout", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.False(t, called)
	})
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		given      string
		want       int
	}{
		{"matching token", "s3cret", "s3cret", http.StatusOK},
		{"wrong token", "s3cret", "guess", http.StatusUnauthorized},
		{"missing token", "s3cret", "", http.StatusUnauthorized},
		{"admin disabled", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireAdmin(tt.configured)(okHandler)

			req := httptest.NewRequest("GET", "/api/admin/stats", nil)
			if tt.given != "" {
				req.Header.Set(middleware.AdminTokenHeader, tt.given)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := middleware.NewRateLimiter(2)
	handler := limiter.Middleware(okHandler)

	send := func(user string) int {
		req := httptest.NewRequest("POST", "/api/checkout", nil)
		req.Header.Set("X-User-ID", user)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("user-1"))
	assert.Equal(t, http.StatusOK, send("user-1"))
	assert.Equal(t, http.StatusTooManyRequests, send("user-1"))
	// budgets are per caller
	assert.Equal(t, http.StatusOK, send("user-2"))
}

func TestResponseCache(t *testing.T) {
	t.Run("hit is served from the cache", func(t *testing.T) {
		cache := mocks.NewCacheProvider(t)
		cache.On("Get", mock.Anything, mock.AnythingOfType("string")).Return([]byte(`{"cached":true}`), nil)

		handler := middleware.NewResponseCache(cache, 60).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run on a hit")
		}))

		req := httptest.NewRequest("GET", "/api/categories", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
		assert.JSONEq(t, `{"cached":true}`, w.Body.String())
	})

	t.Run("miss stores the response", func(t *testing.T) {
		cache := mocks.NewCacheProvider(t)
		cache.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(nil, providers.ErrCacheMiss)
		cache.On("Set", mock.Anything, mock.AnythingOfType("string"), []byte(`{"ok":true}`), 60).Return(nil)

		handler := middleware.NewResponseCache(cache, 60).Middleware(okHandler)

		req := httptest.NewRequest("GET", "/api/listings/suggest?q=ana", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		cache := mocks.NewCacheProvider(t)
		cache.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(nil, providers.ErrCacheMiss)

		handler := middleware.NewResponseCache(cache, 60).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"boom"}`))
		}))

		req := httptest.NewRequest("GET", "/api/categories", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCompression(t *testing.T) {
	handler := middleware.Compression(okHandler)

	req := httptest.NewRequest("GET", "/api/listings", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	req = httptest.NewRequest("GET", "/api/payments/pi_1/stream", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "text/event-stream")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestCacheControl(t *testing.T) {
	handler := middleware.CacheControl(okHandler)

	for path, want := range map[string]string{
		"/api/categories": "public, max-age=3600",
		"/api/listings":   "private, no-cache, must-revalidate",
	} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, want, w.Header().Get("Cache-Control"), path)
	}
}
