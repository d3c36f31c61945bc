// Package invoicing issues fiscal documents for orders. An invoice
// freezes the order's money figures and customer identity at issue
// time; its number comes from a gapless per-prefix sequence.
package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingTarget decides the document series: consumer invoices for
// walk-in patients, fiscal credit notes for contract billing.
type BillingTarget string

const (
	TargetParticular BillingTarget = "particular"
	TargetContract   BillingTarget = "contract"
)

// Prefix is the document series the target draws numbers from.
func (t BillingTarget) Prefix() string {
	if t == TargetContract {
		return "CCF"
	}
	return "FAC"
}

// Invoice maps to the invoices table. Monetary columns and the customer
// fields are frozen copies; later catalog or order changes never touch
// an issued invoice.
type Invoice struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	OrderID          uuid.UUID       `db:"order_id" json:"order_id"`
	Number           string          `db:"number" json:"number"`
	Target           BillingTarget   `db:"target" json:"target"`
	CustomerName     string          `db:"customer_name" json:"customer_name"`
	CustomerDocument string          `db:"customer_document" json:"customer_document"`
	Subtotal         decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount         decimal.Decimal `db:"discount" json:"discount"`
	Tax              decimal.Decimal `db:"tax" json:"tax"`
	Total            decimal.Decimal `db:"total" json:"total"`
	Notes            string          `db:"notes" json:"notes"`
	IssuedBy         uuid.UUID       `db:"issued_by" json:"issued_by"`
	IssuedAt         time.Time       `db:"issued_at" json:"issued_at"`
}
