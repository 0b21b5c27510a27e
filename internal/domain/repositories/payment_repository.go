package repositories

import (
	"context"
	"time"

	"github.com/tanamao/directory/internal/domain/entities"
)

// PaymentRepository stores payment records. Records are append-only apart
// from the single status transition out of pending.
type PaymentRepository interface {
	Insert(ctx context.Context, record *entities.PaymentRecord) error
	GetByExternalID(ctx context.Context, externalID string) (*entities.PaymentRecord, error)
	// UpdateStatus moves a pending record to a terminal status. It reports
	// false when the record was no longer pending.
	UpdateStatus(ctx context.Context, externalID string, status entities.PaymentStatus) (bool, error)
	ListPending(ctx context.Context, notBefore time.Time) ([]*entities.PaymentRecord, error)
}
