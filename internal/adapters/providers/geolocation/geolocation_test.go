package geolocation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/internal/mocks"
)

func TestGoogleProvider_Geocode(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "Rua A, 10, Bauru, SP", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "br", r.URL.Query().Get("region"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "OK",
			"results": []map[string]interface{}{
				{"formatted_address": "Rua A, 10", "geometry": map[string]interface{}{"location": map[string]float64{"lat": -22.32, "lng": -49.08}}},
			},
		})
	}))
	defer server.Close()

	provider := NewGoogleGeolocationProviderWithOptions("test-key", nil, server.URL, server.Client())

	coords, err := provider.Geocode(context.Background(), "Rua A, 10, Bauru, SP")
	require.NoError(t, err)
	assert.Equal(t, -22.32, coords.Latitude)
	assert.Equal(t, -49.08, coords.Longitude)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGoogleProvider_ZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer server.Close()

	provider := NewGoogleGeolocationProviderWithOptions("test-key", nil, server.URL, server.Client())

	_, err := provider.Geocode(context.Background(), "nowhere")
	assert.Error(t, err)
}

func TestGoogleProvider_RequestDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`))
	}))
	defer server.Close()

	provider := NewGoogleGeolocationProviderWithOptions("test-key", nil, server.URL, server.Client())

	_, err := provider.Geocode(context.Background(), "Bauru")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestGoogleProvider_RequiresKeyAndAddress(t *testing.T) {
	provider := NewGoogleGeolocationProvider("", nil)

	_, err := provider.Geocode(context.Background(), "  ")
	assert.Error(t, err)

	_, err = provider.Geocode(context.Background(), "Bauru")
	assert.Error(t, err)
}

func TestGoogleProvider_UsesCache(t *testing.T) {
	cache := mocks.NewCacheProvider(t)
	cached, err := json.Marshal(providers.Coordinates{Latitude: -22.3, Longitude: -49.1})
	require.NoError(t, err)
	cache.On("Get", mock.Anything, geocodeCacheKey("google", "Bauru")).Return(cached, nil)

	provider := NewGoogleGeolocationProviderWithOptions("test-key", cache, "http://127.0.0.1:1", nil)

	coords, err := provider.Geocode(context.Background(), "Bauru")
	require.NoError(t, err)
	assert.Equal(t, -22.3, coords.Latitude)
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantLat float64
		wantErr bool
	}{
		{name: "plain json", text: `{"lat": -22.32, "lng": -49.08}`, wantLat: -22.32},
		{name: "fenced json", text: "```json\n{\"lat\": -23.55, \"lng\": -46.63}\n```", wantLat: -23.55},
		{name: "missing lng", text: `{"lat": -22.32}`, wantErr: true},
		{name: "out of range", text: `{"lat": 120, "lng": 10}`, wantErr: true},
		{name: "prose", text: `I think it is near Bauru`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coords, err := parseCoordinates(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLat, coords.Latitude)
		})
	}
}

func TestMockProvider(t *testing.T) {
	provider := NewMockGeolocationProvider()

	coords, err := provider.Geocode(context.Background(), "Rua das Flores, Centro, Bauru, SP")
	require.NoError(t, err)
	assert.InDelta(t, -22.32, coords.Latitude, 0.01)

	_, err = provider.Geocode(context.Background(), "Lisboa")
	assert.Error(t, err)
}
