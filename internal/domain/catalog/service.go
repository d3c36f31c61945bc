package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labadmin/labadmin/internal/platform/apperr"
)

// Service exposes the catalog reads the ordering, sample and result
// workflows depend on.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "catalog").Logger()}
}

func (s *Service) GetExam(ctx context.Context, id uuid.UUID) (*Exam, error) {
	return s.repo.GetExam(ctx, id)
}

func (s *Service) ListExams(ctx context.Context, limit, offset int) ([]*Exam, int, error) {
	return s.repo.ListExams(ctx, limit, offset)
}

func (s *Service) GetPackage(ctx context.Context, id uuid.UUID) (*Package, error) {
	return s.repo.GetPackage(ctx, id)
}

func (s *Service) ListPackages(ctx context.Context, limit, offset int) ([]*Package, int, error) {
	return s.repo.ListPackages(ctx, limit, offset)
}

func (s *Service) PackageExams(ctx context.Context, packageID uuid.UUID) ([]*Exam, error) {
	return s.repo.PackageExams(ctx, packageID)
}

func (s *Service) ParametersByExam(ctx context.Context, examID uuid.UUID) ([]*Parameter, error) {
	return s.repo.ParametersByExam(ctx, examID)
}

func (s *Service) GetParameter(ctx context.Context, id uuid.UUID) (*Parameter, error) {
	return s.repo.GetParameter(ctx, id)
}

// Item returns the current pricing snapshot of a catalog item of either
// kind. Totals are always computed against this live snapshot, never a
// stored copy.
func (s *Service) Item(ctx context.Context, kind ItemKind, id uuid.UUID) (*ItemSnapshot, error) {
	switch kind {
	case KindExam:
		e, err := s.repo.GetExam(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ItemSnapshot{Kind: KindExam, ID: e.ID, Code: e.Code, Name: e.Name, ListPrice: e.Price, Active: e.Active}, nil
	case KindPackage:
		p, err := s.repo.GetPackage(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ItemSnapshot{Kind: KindPackage, ID: p.ID, Code: "", Name: p.Name, ListPrice: p.Price, Active: p.Active}, nil
	default:
		return nil, apperr.Validationf("kind", "unknown item kind %q", kind)
	}
}

// SampleTypesForItem returns the distinct sample types an item needs: the
// exam's own type, or the union over a package's constituent exams.
func (s *Service) SampleTypesForItem(ctx context.Context, kind ItemKind, id uuid.UUID) ([]string, error) {
	switch kind {
	case KindExam:
		e, err := s.repo.GetExam(ctx, id)
		if err != nil {
			return nil, err
		}
		if e.SampleType == "" {
			return nil, nil
		}
		return []string{e.SampleType}, nil
	case KindPackage:
		exams, err := s.repo.PackageExams(ctx, id)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(exams))
		var types []string
		for _, e := range exams {
			if e.SampleType == "" || seen[e.SampleType] {
				continue
			}
			seen[e.SampleType] = true
			types = append(types, e.SampleType)
		}
		return types, nil
	default:
		return nil, apperr.Validationf("kind", "unknown item kind %q", kind)
	}
}
