package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/clients/postgres"
	apperrors "github.com/tanamao/directory/pkg/errors"
)

const listingsTable = "listings"

var listingColumns = []interface{}{
	"id", "owner_user_id", "profile_type", "category", "sub_category",
	"plan", "subscription_expires_at", "latitude", "longitude",
	"street", "neighborhood", "city", "state",
	"profile", "reviews", "view_count", "is_claimable",
	"created_at", "updated_at",
}

// ListingAdapter implements ListingRepository on PostgreSQL. Profile and
// reviews are stored as JSONB; every write is a single statement.
type ListingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.ListingRepository = (*ListingAdapter)(nil)

func NewListingAdapter(client *postgres.Client) *ListingAdapter {
	return &ListingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*entities.Listing, error) {
	var (
		l         entities.Listing
		owner     sql.NullString
		expiresAt sql.NullTime
		lat, lng  sql.NullFloat64
		profile   []byte
		reviews   []byte
	)
	err := row.Scan(
		&l.ID,
		&owner,
		&l.ProfileType,
		&l.Category,
		&l.SubCategory,
		&l.Plan,
		&expiresAt,
		&lat,
		&lng,
		&l.Address.Street,
		&l.Address.Neighborhood,
		&l.Address.City,
		&l.Address.State,
		&profile,
		&reviews,
		&l.ViewCount,
		&l.IsClaimable,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.OwnerUserID = owner.String
	if expiresAt.Valid {
		t := expiresAt.Time
		l.SubscriptionExpiresAt = &t
	}
	if lat.Valid && lng.Valid {
		la, lo := lat.Float64, lng.Float64
		l.Latitude, l.Longitude = &la, &lo
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &l.Profile); err != nil {
			return nil, fmt.Errorf("listing %s: invalid profile: %w", l.ID, err)
		}
	}
	l.Reviews = []entities.Review{}
	if len(reviews) > 0 {
		if err := json.Unmarshal(reviews, &l.Reviews); err != nil {
			return nil, fmt.Errorf("listing %s: invalid reviews: %w", l.ID, err)
		}
	}
	return &l, nil
}

func (a *ListingAdapter) GetAll(ctx context.Context) ([]*entities.Listing, error) {
	query, args, err := a.db.Select(listingColumns...).
		From(listingsTable).
		Order(goqu.I("created_at").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list listings", err)
	}
	defer rows.Close()

	listings := make([]*entities.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan listing", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate listings", err)
	}
	return listings, nil
}

func (a *ListingAdapter) GetByID(ctx context.Context, id string) (*entities.Listing, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, fmt.Sprintf("listing with id %s not found", id))
}

func (a *ListingAdapter) GetByOwner(ctx context.Context, ownerUserID string) (*entities.Listing, error) {
	return a.getOne(ctx, goqu.Ex{"owner_user_id": ownerUserID}, fmt.Sprintf("no listing owned by user %s", ownerUserID))
}

func (a *ListingAdapter) getOne(ctx context.Context, where goqu.Ex, notFound string) (*entities.Listing, error) {
	query, args, err := a.db.Select(listingColumns...).
		From(listingsTable).
		Where(where).
		Limit(1).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	l, err := scanListing(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get listing", err)
	}
	return l, nil
}

// Upsert inserts the listing or replaces its profile columns. Plan,
// subscription expiry, view count, reviews and owner of an existing row are
// left alone.
func (a *ListingAdapter) Upsert(ctx context.Context, listing *entities.Listing) error {
	profile, err := json.Marshal(listing.Profile)
	if err != nil {
		return apperrors.NewInternalError("failed to encode profile", err)
	}
	reviews := listing.Reviews
	if reviews == nil {
		reviews = []entities.Review{}
	}
	reviewsJSON, err := json.Marshal(reviews)
	if err != nil {
		return apperrors.NewInternalError("failed to encode reviews", err)
	}

	plan := listing.Plan
	if plan == "" {
		plan = entities.PlanFree
	}

	record := goqu.Record{
		"id":                      listing.ID,
		"owner_user_id":           sql.NullString{String: listing.OwnerUserID, Valid: listing.OwnerUserID != ""},
		"profile_type":            string(listing.ProfileType),
		"category":                listing.Category,
		"sub_category":            listing.SubCategory,
		"plan":                    string(plan),
		"subscription_expires_at": nullTime(listing.SubscriptionExpiresAt),
		"latitude":                nullFloat(listing.Latitude),
		"longitude":               nullFloat(listing.Longitude),
		"street":                  listing.Address.Street,
		"neighborhood":            listing.Address.Neighborhood,
		"city":                    listing.Address.City,
		"state":                   listing.Address.State,
		"profile":                 string(profile),
		"reviews":                 string(reviewsJSON),
		"view_count":              listing.ViewCount,
		"is_claimable":            listing.IsClaimable,
		"created_at":              listing.CreatedAt,
		"updated_at":              listing.UpdatedAt,
	}

	query, args, err := a.db.Insert(listingsTable).
		Rows(record).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"profile_type": goqu.L("EXCLUDED.profile_type"),
			"category":     goqu.L("EXCLUDED.category"),
			"sub_category": goqu.L("EXCLUDED.sub_category"),
			"latitude":     goqu.L("EXCLUDED.latitude"),
			"longitude":    goqu.L("EXCLUDED.longitude"),
			"street":       goqu.L("EXCLUDED.street"),
			"neighborhood": goqu.L("EXCLUDED.neighborhood"),
			"city":         goqu.L("EXCLUDED.city"),
			"state":        goqu.L("EXCLUDED.state"),
			"profile":      goqu.L("EXCLUDED.profile"),
			"updated_at":   goqu.L("EXCLUDED.updated_at"),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("user already owns a listing")
		}
		return apperrors.NewInternalError("failed to save listing", err)
	}
	return nil
}

func (a *ListingAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(listingsTable).
		Where(goqu.Ex{"id": id}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete listing", err)
	}
	return requireRow(result, fmt.Sprintf("listing with id %s not found", id))
}

func (a *ListingAdapter) IncrementViews(ctx context.Context, id string) error {
	query := `UPDATE listings SET view_count = view_count + 1 WHERE id = $1`

	result, err := a.client.DB().ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.NewInternalError("failed to count view", err)
	}
	return requireRow(result, fmt.Sprintf("listing with id %s not found", id))
}

func (a *ListingAdapter) UpdateSubscription(ctx context.Context, id string, plan entities.Plan, expiresAt time.Time) error {
	query := `
		UPDATE listings
		SET plan = $2, subscription_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := a.client.DB().ExecContext(ctx, query, id, string(plan), expiresAt)
	if err != nil {
		return apperrors.NewInternalError("failed to update subscription", err)
	}
	return requireRow(result, fmt.Sprintf("listing with id %s not found", id))
}

func (a *ListingAdapter) Claim(ctx context.Context, id, ownerUserID string) error {
	query := `
		UPDATE listings
		SET owner_user_id = $2, is_claimable = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_claimable AND owner_user_id IS NULL
	`

	result, err := a.client.DB().ExecContext(ctx, query, id, ownerUserID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("user already owns a listing")
		}
		return apperrors.NewInternalError("failed to claim listing", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := a.client.DB().QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM listings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return apperrors.NewInternalError("failed to check listing", err)
	}
	if !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("listing with id %s not found", id))
	}
	return apperrors.NewConflictError("listing is not claimable")
}

func (a *ListingAdapter) AddReview(ctx context.Context, id string, review entities.Review) error {
	data, err := json.Marshal(review)
	if err != nil {
		return apperrors.NewInternalError("failed to encode review", err)
	}

	query := `
		UPDATE listings
		SET reviews = reviews || jsonb_build_array($2::jsonb), updated_at = NOW()
		WHERE id = $1
	`

	result, err := a.client.DB().ExecContext(ctx, query, id, string(data))
	if err != nil {
		return apperrors.NewInternalError("failed to add review", err)
	}
	return requireRow(result, fmt.Sprintf("listing with id %s not found", id))
}

func (a *ListingAdapter) SetReviewHidden(ctx context.Context, id, reviewID string, hidden bool) error {
	query := `
		UPDATE listings
		SET reviews = (
			SELECT COALESCE(jsonb_agg(
				CASE WHEN r->>'id' = $2 THEN jsonb_set(r, '{hidden}', to_jsonb($3::boolean)) ELSE r END
				ORDER BY ord
			), '[]'::jsonb)
			FROM jsonb_array_elements(reviews) WITH ORDINALITY AS t(r, ord)
		),
		updated_at = NOW()
		WHERE id = $1
		  AND EXISTS (SELECT 1 FROM jsonb_array_elements(reviews) AS e(r) WHERE r->>'id' = $2)
	`

	result, err := a.client.DB().ExecContext(ctx, query, id, reviewID, hidden)
	if err != nil {
		return apperrors.NewInternalError("failed to update review", err)
	}
	return requireRow(result, fmt.Sprintf("review %s not found on listing %s", reviewID, id))
}

func requireRow(result sql.Result, notFound string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(notFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
