package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/labadmin/labadmin/internal/domain/catalog"
	"github.com/labadmin/labadmin/internal/platform/apperr"
)

var hundred = decimal.NewFromInt(100)

// Service manages contracts and answers discount resolution queries for
// the order totals calculator.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "contracts").Logger()}
}

func validatePct(field string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return apperr.Validationf(field, "discount percentage %s out of range [0, 100]", pct)
	}
	return nil
}

// CreateContractInput carries the fields of a new contract.
type CreateContractInput struct {
	Name               string          `json:"name"`
	TaxID              string          `json:"tax_id"`
	ContactName        string          `json:"contact_name"`
	ContactEmail       string          `json:"contact_email"`
	PaymentTermDays    int             `json:"payment_term_days"`
	ExamDiscountPct    decimal.Decimal `json:"exam_discount_pct"`
	PackageDiscountPct decimal.Decimal `json:"package_discount_pct"`
}

func (s *Service) Create(ctx context.Context, in CreateContractInput) (*Contract, error) {
	if in.Name == "" {
		return nil, apperr.Validationf("name", "name is required")
	}
	if err := validatePct("exam_discount_pct", in.ExamDiscountPct); err != nil {
		return nil, err
	}
	if err := validatePct("package_discount_pct", in.PackageDiscountPct); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &Contract{
		ID:                 uuid.New(),
		Name:               in.Name,
		TaxID:              in.TaxID,
		ContactName:        in.ContactName,
		ContactEmail:       in.ContactEmail,
		PaymentTermDays:    in.PaymentTermDays,
		ExamDiscountPct:    in.ExamDiscountPct,
		PackageDiscountPct: in.PackageDiscountPct,
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("contract_id", c.ID.String()).Str("name", c.Name).Msg("contract created")
	return c, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Contract, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Contract, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// UpdateDiscountsInput changes the general percentages of a contract.
type UpdateDiscountsInput struct {
	ExamDiscountPct    decimal.Decimal `json:"exam_discount_pct"`
	PackageDiscountPct decimal.Decimal `json:"package_discount_pct"`
}

func (s *Service) UpdateDiscounts(ctx context.Context, id uuid.UUID, in UpdateDiscountsInput) (*Contract, error) {
	if err := validatePct("exam_discount_pct", in.ExamDiscountPct); err != nil {
		return nil, err
	}
	if err := validatePct("package_discount_pct", in.PackageDiscountPct); err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.ExamDiscountPct = in.ExamDiscountPct
	c.PackageDiscountPct = in.PackageDiscountPct
	c.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) SetOverride(ctx context.Context, contractID uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID, pct decimal.Decimal) (*Override, error) {
	if !kind.Valid() {
		return nil, apperr.Validationf("item_kind", "unknown item kind %q", kind)
	}
	if err := validatePct("pct", pct); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, contractID); err != nil {
		return nil, err
	}

	o := &Override{
		ID:         uuid.New(),
		ContractID: contractID,
		ItemKind:   kind,
		ItemID:     itemID,
		Pct:        pct,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.UpsertOverride(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) ListOverrides(ctx context.Context, contractID uuid.UUID) ([]*Override, error) {
	if _, err := s.repo.GetByID(ctx, contractID); err != nil {
		return nil, err
	}
	return s.repo.ListOverrides(ctx, contractID)
}

func (s *Service) RemoveOverride(ctx context.Context, contractID uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) error {
	return s.repo.DeleteOverride(ctx, contractID, kind, itemID)
}

// Resolve returns the discount percentage applying to one catalog item
// under an optional contract. Precedence: the contract's item-specific
// override, then the contract's general percentage for the item kind.
// Orders without a contract always resolve to zero.
func (s *Service) Resolve(ctx context.Context, contractID *uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) (decimal.Decimal, error) {
	if contractID == nil {
		return decimal.Zero, nil
	}

	o, err := s.repo.GetOverride(ctx, *contractID, kind, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	if o != nil {
		if err := validatePct("pct", o.Pct); err != nil {
			return decimal.Zero, err
		}
		return o.Pct, nil
	}

	c, err := s.repo.GetByID(ctx, *contractID)
	if err != nil {
		return decimal.Zero, err
	}

	var pct decimal.Decimal
	switch kind {
	case catalog.KindExam:
		pct = c.ExamDiscountPct
	case catalog.KindPackage:
		pct = c.PackageDiscountPct
	default:
		return decimal.Zero, apperr.Validationf("kind", "unknown item kind %q", kind)
	}
	if err := validatePct("pct", pct); err != nil {
		return decimal.Zero, err
	}
	return pct, nil
}
