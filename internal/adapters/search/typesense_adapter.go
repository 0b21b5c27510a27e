package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/repositories"
	tsclient "github.com/tanamao/directory/internal/infrastructure/clients/typesense"
)

const collectionName = "listings"

// TypesenseAdapter keeps a name index of listings for type-ahead suggestions.
// The store stays the source of truth; the index may lag behind it.
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.ListingIndex = (*TypesenseAdapter)(nil)

func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	if _, err := a.client.Client().Collection(collectionName).Retrieve(ctx); err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: collectionName,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "display_name", Type: "string"},
			{Name: "sub_category", Type: "string", Facet: pointer.True()},
			{Name: "category", Type: "string", Facet: pointer.True()},
			{Name: "city", Type: "string", Facet: pointer.True()},
			{Name: "state", Type: "string", Facet: pointer.True()},
			{Name: "plan_weight", Type: "int32"},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	if _, err := a.client.Client().Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}
	return nil
}

// Reset drops the collection so the next InitSchema starts from an empty index.
func (a *TypesenseAdapter) Reset(ctx context.Context) error {
	if _, err := a.client.Client().Collection(collectionName).Delete(ctx); err != nil {
		return fmt.Errorf("failed to drop typesense collection: %w", err)
	}
	return nil
}

// buildDocument projects a listing onto its index document.
func buildDocument(listing *entities.Listing) map[string]interface{} {
	weight := 1
	if listing.Plan.Valid() {
		weight = listing.Plan.Weight()
	}
	return map[string]interface{}{
		"id":           listing.ID,
		"display_name": strings.TrimSpace(listing.DisplayName()),
		"sub_category": listing.SubCategory,
		"category":     listing.Category,
		"city":         listing.Address.City,
		"state":        listing.Address.State,
		"plan_weight":  weight,
		"created_at":   listing.CreatedAt.Unix(),
	}
}

func (a *TypesenseAdapter) Index(ctx context.Context, listing *entities.Listing) error {
	_, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, buildDocument(listing))
	if err != nil {
		return fmt.Errorf("failed to index listing: %w", err)
	}
	return nil
}

func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(collectionName).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete listing from index: %w", err)
	}
	return nil
}

// Suggest matches query as a prefix of listing names and sub-categories.
// Higher tiers win ties in text relevance.
func (a *TypesenseAdapter) Suggest(ctx context.Context, query string, limit int) ([]repositories.ListingSuggestion, error) {
	params := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("display_name,sub_category"),
		SortBy:  pointer.String("_text_match:desc,plan_weight:desc"),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}

	suggestions := []repositories.ListingSuggestion{}
	if result.Hits == nil {
		return suggestions, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document
		s := repositories.ListingSuggestion{
			ID:          stringField(doc, "id"),
			DisplayName: stringField(doc, "display_name"),
			SubCategory: stringField(doc, "sub_category"),
			City:        stringField(doc, "city"),
			State:       stringField(doc, "state"),
		}
		if s.ID == "" {
			continue
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}

func stringField(doc map[string]interface{}, key string) string {
	v, _ := doc[key].(string)
	return v
}
