package results

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists result headers and their values.
type Repository interface {
	Create(ctx context.Context, r *Result) error
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*Result, error)
	// GetByOrderForUpdate locks the header row for the surrounding
	// transaction so workflow transitions serialize.
	GetByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*Result, error)
	Update(ctx context.Context, r *Result) error

	UpsertDetail(ctx context.Context, d *Detail) error
	DeleteDetail(ctx context.Context, resultID, parameterID uuid.UUID) error
	ListDetails(ctx context.Context, resultID uuid.UUID) ([]*Detail, error)
}
