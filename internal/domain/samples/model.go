// Package samples registers collected specimens against orders and
// gates the order's move into processing: an order only starts
// processing once every sample type its exams require has been
// collected.
package samples

import (
	"time"

	"github.com/google/uuid"
)

// Sample maps to the samples table. Code is unique within the order and
// follows M-{order number}-{NN}. Unexpected marks a sample whose type no
// exam on the order asks for; it is registered anyway and flagged for
// review instead of being rejected.
type Sample struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OrderID     uuid.UUID `db:"order_id" json:"order_id"`
	TypeName    string    `db:"type_name" json:"type_name"`
	Code        string    `db:"code" json:"code"`
	Unexpected  bool      `db:"unexpected" json:"unexpected"`
	Notes       string    `db:"notes" json:"notes"`
	CollectedBy uuid.UUID `db:"collected_by" json:"collected_by"`
	CollectedAt time.Time `db:"collected_at" json:"collected_at"`
}

// CollectionStatus reports how far sample collection has progressed for
// one order.
type CollectionStatus struct {
	OrderID   uuid.UUID `json:"order_id"`
	Required  []string  `json:"required"`
	Collected []string  `json:"collected"`
	Missing   []string  `json:"missing"`
	Complete  bool      `json:"complete"`
}

// RegisterOutcome is the result of registering one sample.
type RegisterOutcome struct {
	Sample       *Sample  `json:"sample"`
	Transitioned bool     `json:"transitioned"`
	Missing      []string `json:"missing"`
}
