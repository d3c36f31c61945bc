// Package results implements the result entry and validation workflow.
// A result moves draft -> submitted -> validated; a reviewer can send a
// submitted result back to draft for correction. Validation is what
// completes the order.
package results

import (
	"time"

	"github.com/google/uuid"
)

// Status of a result header.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusValidated Status = "validated"
)

// Result is the per-order header. One exists per order; it is created
// when the order enters processing.
type Result struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	OrderID      uuid.UUID  `db:"order_id" json:"order_id"`
	Status       Status     `db:"status" json:"status"`
	Observations string     `db:"observations" json:"observations"`
	SubmittedBy  *uuid.UUID `db:"submitted_by" json:"submitted_by,omitempty"`
	SubmittedAt  *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ValidatedBy  *uuid.UUID `db:"validated_by" json:"validated_by,omitempty"`
	ValidatedAt  *time.Time `db:"validated_at" json:"validated_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Detail is one measured value, keyed by the catalog parameter it
// answers. At most one value per (result, parameter).
type Detail struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ResultID    uuid.UUID `db:"result_id" json:"result_id"`
	ParameterID uuid.UUID `db:"parameter_id" json:"parameter_id"`
	Value       string    `db:"value" json:"value"`
	EnteredBy   uuid.UUID `db:"entered_by" json:"entered_by"`
	EnteredAt   time.Time `db:"entered_at" json:"entered_at"`
}

// Report is the header with its values.
type Report struct {
	Result  *Result   `json:"result"`
	Details []*Detail `json:"details"`
}
