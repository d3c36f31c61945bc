package samples

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists registered samples.
type Repository interface {
	Insert(ctx context.Context, s *Sample) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Sample, error)
}
