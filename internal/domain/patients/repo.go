package patients

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the read interface over the patient registry.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
}
