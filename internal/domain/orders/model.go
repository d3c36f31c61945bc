// Package orders implements the order lifecycle: line-item composition,
// discount-aware totals, the payment ledger with its derived payment
// status, and the fulfillment state machine gated by sample collection
// and result validation.
package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/labadmin/labadmin/internal/domain/catalog"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInProcess Status = "in_process"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further fulfillment transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus is derived from the ledger and the order status; it is
// never set directly by callers.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
	PaymentVoid    PaymentStatus = "void"
)

// Priority of processing.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool { return p == PriorityNormal || p == PriorityUrgent }

// DeliveryMethod for the final report.
type DeliveryMethod string

const (
	DeliveryPickup DeliveryMethod = "pickup"
	DeliveryEmail  DeliveryMethod = "email"
)

func (d DeliveryMethod) Valid() bool { return d == DeliveryPickup || d == DeliveryEmail }

// Order maps to the orders table. Number is a human-facing sequence used
// in sample codes. The monetary columns are recomputed snapshots; the
// catalog stays the source of list prices.
type Order struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Number          int64           `db:"number" json:"number"`
	PatientID       uuid.UUID       `db:"patient_id" json:"patient_id"`
	ContractID      *uuid.UUID      `db:"contract_id" json:"contract_id,omitempty"`
	Priority        Priority        `db:"priority" json:"priority"`
	DeliveryMethod  DeliveryMethod  `db:"delivery_method" json:"delivery_method"`
	Status          Status          `db:"status" json:"status"`
	PaymentStatus   PaymentStatus   `db:"payment_status" json:"payment_status"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	DiscountApplied decimal.Decimal `db:"discount_applied" json:"discount_applied"`
	Tax             decimal.Decimal `db:"tax" json:"tax"`
	Total           decimal.Decimal `db:"total" json:"total"`
	AmountPaid      decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	Notes           string          `db:"notes" json:"notes"`
	CreatedBy       uuid.UUID       `db:"created_by" json:"created_by"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Balance is the amount still owed. Never negative.
func (o *Order) Balance() decimal.Decimal {
	b := o.Total.Sub(o.AmountPaid)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// LineItem maps to the order_line_items table. Code, Name, ListPrice,
// DiscountPct and Price are refreshed on every recompute.
type LineItem struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	OrderID     uuid.UUID        `db:"order_id" json:"order_id"`
	ItemKind    catalog.ItemKind `db:"item_kind" json:"item_kind"`
	ItemID      uuid.UUID        `db:"item_id" json:"item_id"`
	Code        string           `db:"code" json:"code"`
	Name        string           `db:"name" json:"name"`
	ListPrice   decimal.Decimal  `db:"list_price" json:"list_price"`
	DiscountPct decimal.Decimal  `db:"discount_pct" json:"discount_pct"`
	Price       decimal.Decimal  `db:"price" json:"price"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// Payment is one append-only ledger entry. Entries are never updated or
// deleted; cancellation voids the derived status, not the ledger.
type Payment struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	OrderID    uuid.UUID       `db:"order_id" json:"order_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Method     string          `db:"method" json:"method"`
	Reference  string          `db:"reference" json:"reference"`
	RecordedBy uuid.UUID       `db:"recorded_by" json:"recorded_by"`
	RecordedAt time.Time       `db:"recorded_at" json:"recorded_at"`
}

// Detail is the full projection of one order.
type Detail struct {
	Order    *Order      `json:"order"`
	Items    []*LineItem `json:"items"`
	Payments []*Payment  `json:"payments"`
}
