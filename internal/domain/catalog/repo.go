package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the read interface over the catalog tables.
type Repository interface {
	GetExam(ctx context.Context, id uuid.UUID) (*Exam, error)
	ListExams(ctx context.Context, limit, offset int) ([]*Exam, int, error)
	GetPackage(ctx context.Context, id uuid.UUID) (*Package, error)
	ListPackages(ctx context.Context, limit, offset int) ([]*Package, int, error)
	// PackageExams returns the constituent exams of a package in display
	// order. Empty slice for a package with no constituents.
	PackageExams(ctx context.Context, packageID uuid.UUID) ([]*Exam, error)
	// ParametersByExam returns the exam's reference parameters in display
	// order.
	ParametersByExam(ctx context.Context, examID uuid.UUID) ([]*Parameter, error)
	GetParameter(ctx context.Context, id uuid.UUID) (*Parameter, error)
}
