// Package contracts holds institutional agreements (convenios) and the
// discount resolution rules they carry: a general percentage per item
// kind, optionally overridden per catalog item.
package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/labadmin/labadmin/internal/domain/catalog"
)

// Contract maps to the contracts table.
type Contract struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	Name               string          `db:"name" json:"name"`
	TaxID              string          `db:"tax_id" json:"tax_id"`
	ContactName        string          `db:"contact_name" json:"contact_name"`
	ContactEmail       string          `db:"contact_email" json:"contact_email"`
	PaymentTermDays    int             `db:"payment_term_days" json:"payment_term_days"`
	ExamDiscountPct    decimal.Decimal `db:"exam_discount_pct" json:"exam_discount_pct"`
	PackageDiscountPct decimal.Decimal `db:"package_discount_pct" json:"package_discount_pct"`
	Active             bool            `db:"active" json:"active"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// Override is a per-item discount that takes precedence over the
// contract's general percentage for that item kind. At most one override
// exists per (contract, item).
type Override struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	ContractID uuid.UUID        `db:"contract_id" json:"contract_id"`
	ItemKind   catalog.ItemKind `db:"item_kind" json:"item_kind"`
	ItemID     uuid.UUID        `db:"item_id" json:"item_id"`
	Pct        decimal.Decimal  `db:"pct" json:"pct"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}
