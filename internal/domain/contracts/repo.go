package contracts

import (
	"context"

	"github.com/google/uuid"

	"github.com/labadmin/labadmin/internal/domain/catalog"
)

// Repository is the persistence interface for contracts and their
// per-item discount overrides.
type Repository interface {
	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	List(ctx context.Context, limit, offset int) ([]*Contract, int, error)
	Update(ctx context.Context, c *Contract) error

	// GetOverride returns nil (no error) when the contract has no
	// override for the item.
	GetOverride(ctx context.Context, contractID uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) (*Override, error)
	ListOverrides(ctx context.Context, contractID uuid.UUID) ([]*Override, error)
	UpsertOverride(ctx context.Context, o *Override) error
	DeleteOverride(ctx context.Context, contractID uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) error
}
