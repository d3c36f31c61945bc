// Package catalog is the read-only facade over the exam and package
// catalog: list prices, active flags, required sample types and the
// reference parameters results are entered against. Catalog maintenance
// happens in the surrounding admin application; this core only reads.
package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemKind distinguishes the two orderable catalog item kinds.
type ItemKind string

const (
	KindExam    ItemKind = "exam"
	KindPackage ItemKind = "package"
)

// Valid reports whether k is a known item kind.
func (k ItemKind) Valid() bool {
	return k == KindExam || k == KindPackage
}

// Exam maps to the exams table.
type Exam struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Code       string          `db:"code" json:"code"`
	Name       string          `db:"name" json:"name"`
	Category   string          `db:"category" json:"category"`
	SampleType string          `db:"sample_type" json:"sample_type"`
	Method     string          `db:"method" json:"method"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Active     bool            `db:"active" json:"active"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Package maps to the packages table. Constituents are exam ids in their
// display order.
type Package struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Parameter is one measurable value of an exam (a reference value row):
// what a technician fills in on the result report.
type Parameter struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ExamID         uuid.UUID `db:"exam_id" json:"exam_id"`
	Name           string    `db:"name" json:"name"`
	Unit           string    `db:"unit" json:"unit"`
	ReferenceRange string    `db:"reference_range" json:"reference_range"`
	Position       int       `db:"position" json:"position"`
}

// ItemSnapshot is the pricing view of a catalog item consumed by the
// order totals calculator.
type ItemSnapshot struct {
	Kind      ItemKind        `json:"kind"`
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	ListPrice decimal.Decimal `json:"list_price"`
	Active    bool            `json:"active"`
}
