// Package patients is a thin directory over the patient registry kept
// by the surrounding admin application. Billing reads names and
// identity documents from here when freezing invoice snapshots.
package patients

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Document  string    `db:"document" json:"document"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	Sex       string    `db:"sex" json:"sex"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FullName as it appears on invoices and reports.
func (p *Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
