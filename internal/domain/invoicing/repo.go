package invoicing

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists invoices and hands out document numbers.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, limit, offset int) ([]*Invoice, int, error)
	// NextSequence atomically increments and returns the counter for a
	// document prefix. Must run inside the issuing transaction so a
	// rolled-back issue does not burn a number.
	NextSequence(ctx context.Context, prefix string) (int64, error)
}
