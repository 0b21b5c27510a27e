package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/clients/postgres"
	apperrors "github.com/tanamao/directory/pkg/errors"
)

const paymentsTable = "payments"

var paymentColumns = []interface{}{
	"id", "external_id", "provider", "owner_user_id", "listing_id",
	"plan", "amount", "currency", "status",
	"qr_code_payload", "qr_code_image", "expires_at",
	"created_at", "updated_at",
}

// PaymentAdapter implements PaymentRepository on PostgreSQL.
type PaymentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.PaymentRepository = (*PaymentAdapter)(nil)

func NewPaymentAdapter(client *postgres.Client) *PaymentAdapter {
	return &PaymentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func scanPayment(row rowScanner) (*entities.PaymentRecord, error) {
	var r entities.PaymentRecord
	err := row.Scan(
		&r.ID,
		&r.ExternalID,
		&r.Provider,
		&r.OwnerUserID,
		&r.ListingID,
		&r.Plan,
		&r.Amount,
		&r.Currency,
		&r.Status,
		&r.QRCodePayload,
		&r.QRCodeImage,
		&r.ExpiresAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (a *PaymentAdapter) Insert(ctx context.Context, record *entities.PaymentRecord) error {
	row := goqu.Record{
		"id":              record.ID,
		"external_id":     record.ExternalID,
		"provider":        record.Provider,
		"owner_user_id":   record.OwnerUserID,
		"listing_id":      record.ListingID,
		"plan":            string(record.Plan),
		"amount":          record.Amount.StringFixed(2),
		"currency":        record.Currency,
		"status":          string(record.Status),
		"qr_code_payload": record.QRCodePayload,
		"qr_code_image":   record.QRCodeImage,
		"expires_at":      record.ExpiresAt,
		"created_at":      record.CreatedAt,
		"updated_at":      record.UpdatedAt,
	}

	query, args, err := a.db.Insert(paymentsTable).Rows(row).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("payment %s already recorded", record.ExternalID))
		}
		return apperrors.NewInternalError("failed to record payment", err)
	}
	return nil
}

func (a *PaymentAdapter) GetByExternalID(ctx context.Context, externalID string) (*entities.PaymentRecord, error) {
	query, args, err := a.db.Select(paymentColumns...).
		From(paymentsTable).
		Where(goqu.Ex{"external_id": externalID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	record, err := scanPayment(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment %s not found", externalID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get payment", err)
	}
	return record, nil
}

// UpdateStatus only ever moves a pending record. The conditional update is
// what lets concurrent pollers agree on a single winner.
func (a *PaymentAdapter) UpdateStatus(ctx context.Context, externalID string, status entities.PaymentStatus) (bool, error) {
	if !entities.PaymentStatusPending.CanTransitionTo(status) {
		return false, apperrors.NewValidationErrorf("cannot move payment to %q", status)
	}

	query := `
		UPDATE payments
		SET status = $2, updated_at = NOW()
		WHERE external_id = $1 AND status = 'pending'
	`

	result, err := a.client.DB().ExecContext(ctx, query, externalID, string(status))
	if err != nil {
		return false, apperrors.NewInternalError("failed to update payment status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n > 0 {
		return true, nil
	}

	if _, err := a.GetByExternalID(ctx, externalID); err != nil {
		return false, err
	}
	return false, nil
}

func (a *PaymentAdapter) ListPending(ctx context.Context, notBefore time.Time) ([]*entities.PaymentRecord, error) {
	query, args, err := a.db.Select(paymentColumns...).
		From(paymentsTable).
		Where(
			goqu.C("status").Eq(string(entities.PaymentStatusPending)),
			goqu.C("created_at").Gte(notBefore),
		).
		Order(goqu.I("created_at").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list pending payments", err)
	}
	defer rows.Close()

	records := make([]*entities.PaymentRecord, 0)
	for rows.Next() {
		r, err := scanPayment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan payment", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate payments", err)
	}
	return records, nil
}
