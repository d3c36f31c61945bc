package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/labadmin/labadmin/internal/domain/catalog"
)

// Repository persists orders. GetForUpdate must lock the order row for
// the remainder of the surrounding transaction so that recomputes,
// payments and transitions on one order serialize.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateTotals(ctx context.Context, o *Order) error
	UpdateStatus(ctx context.Context, o *Order) error
	UpdateContract(ctx context.Context, o *Order) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Order, int, error)
}

// ListFilter narrows order listings.
type ListFilter struct {
	PatientID  *uuid.UUID
	ContractID *uuid.UUID
	Status     *Status
}

// LineItemRepository persists the order_line_items rows.
type LineItemRepository interface {
	Insert(ctx context.Context, li *LineItem) error
	Update(ctx context.Context, li *LineItem) error
	Delete(ctx context.Context, orderID uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*LineItem, error)
}

// PaymentRepository persists the append-only payment ledger.
type PaymentRepository interface {
	Insert(ctx context.Context, p *Payment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Payment, error)
	SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
}
