package repositories

import (
	"context"

	"github.com/tanamao/directory/internal/domain/entities"
)

// ListingSuggestion is a lightweight search hit used for type-ahead.
type ListingSuggestion struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	SubCategory string `json:"sub_category"`
	City        string `json:"city"`
	State       string `json:"state"`
}

// ListingIndex is a full-text index of listing names used for suggestions.
type ListingIndex interface {
	Index(ctx context.Context, listing *entities.Listing) error
	Delete(ctx context.Context, id string) error
	Suggest(ctx context.Context, query string, limit int) ([]ListingSuggestion, error)
}
