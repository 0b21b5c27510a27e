package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanamao/directory/internal/domain/entities"
	tsclient "github.com/tanamao/directory/internal/infrastructure/clients/typesense"
)

func TestBuildDocument(t *testing.T) {
	created := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	listing := &entities.Listing{
		ID:          "l-1",
		ProfileType: entities.ProfileTypeCommerce,
		Category:    "Alimentação",
		SubCategory: "Padaria",
		Plan:        entities.PlanPremium,
		Address:     entities.Address{City: "Bauru", State: "SP"},
		Profile:     entities.Profile{CompanyName: " Padaria Central ", ProName: "Maria"},
		CreatedAt:   created,
	}

	doc := buildDocument(listing)

	assert.Equal(t, "l-1", doc["id"])
	assert.Equal(t, "Padaria Central", doc["display_name"])
	assert.Equal(t, 3, doc["plan_weight"])
	assert.Equal(t, created.Unix(), doc["created_at"])
}

func TestBuildDocument_UnknownPlanIndexedAsFree(t *testing.T) {
	doc := buildDocument(&entities.Listing{ID: "l-2", Plan: "Gold"})
	assert.Equal(t, 1, doc["plan_weight"])
}

func TestTypesenseAdapter_Suggest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/listings/documents/search", r.URL.Path)
		assert.Equal(t, "padar", r.URL.Query().Get("q"))
		assert.Equal(t, "display_name,sub_category", r.URL.Query().Get("query_by"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"found":          2,
			"out_of":         10,
			"page":           1,
			"search_time_ms": 1,
			"hits": []map[string]interface{}{
				{"document": map[string]interface{}{"id": "l-1", "display_name": "Padaria Central", "sub_category": "Padaria", "city": "Bauru", "state": "SP"}},
				{"document": map[string]interface{}{"display_name": "missing id"}},
			},
		})
	}))
	defer server.Close()

	adapter := NewTypesenseAdapter(tsclient.NewFromServer(server.URL, "xyz"))

	suggestions, err := adapter.Suggest(context.Background(), "padar", 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Padaria Central", suggestions[0].DisplayName)
	assert.Equal(t, "Bauru", suggestions[0].City)
}

func TestTypesenseAdapter_SuggestServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer server.Close()

	adapter := NewTypesenseAdapter(tsclient.NewFromServer(server.URL, "xyz"))

	_, err := adapter.Suggest(context.Background(), "padar", 5)
	assert.Error(t, err)
}
