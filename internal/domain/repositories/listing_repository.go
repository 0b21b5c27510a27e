package repositories

import (
	"context"
	"time"

	"github.com/tanamao/directory/internal/domain/entities"
)

// ListingRepository is the persistent store for directory listings.
// Implementations must make every write a single atomic statement.
type ListingRepository interface {
	GetAll(ctx context.Context) ([]*entities.Listing, error)
	GetByID(ctx context.Context, id string) (*entities.Listing, error)
	// GetByOwner returns a NotFound error when the user owns no listing.
	GetByOwner(ctx context.Context, ownerUserID string) (*entities.Listing, error)
	// Upsert creates or replaces the listing profile. It never touches
	// view_count, plan or subscription_expires_at of an existing row.
	Upsert(ctx context.Context, listing *entities.Listing) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	UpdateSubscription(ctx context.Context, id string, plan entities.Plan, expiresAt time.Time) error
	// Claim assigns ownerUserID to a claimable listing. It returns a Conflict
	// error if the listing was already claimed.
	Claim(ctx context.Context, id, ownerUserID string) error
	AddReview(ctx context.Context, id string, review entities.Review) error
	SetReviewHidden(ctx context.Context, id, reviewID string, hidden bool) error
}
