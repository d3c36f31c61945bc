package samples

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labadmin/labadmin/internal/domain/catalog"
	"github.com/labadmin/labadmin/internal/domain/orders"
	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/internal/platform/auth"
	"github.com/labadmin/labadmin/internal/platform/db"
)

// OrderGate is the slice of the order service sample registration needs:
// locking the order, reading its composition and moving it into
// processing once collection completes.
type OrderGate interface {
	HeaderForUpdate(ctx context.Context, id uuid.UUID) (*orders.Order, error)
	LineItems(ctx context.Context, orderID uuid.UUID) ([]*orders.LineItem, error)
	MarkInProcess(ctx context.Context, orderID uuid.UUID) error
}

// Catalog answers which sample types a catalog item needs.
type Catalog interface {
	SampleTypesForItem(ctx context.Context, kind catalog.ItemKind, id uuid.UUID) ([]string, error)
}

// ResultInitializer creates the order's result header the moment lab
// work begins, so technicians always find one to type into.
type ResultInitializer interface {
	EnsureHeader(ctx context.Context, orderID uuid.UUID) error
}

// Service registers samples and runs the collection gate.
type Service struct {
	repo    Repository
	orders  OrderGate
	catalog Catalog
	results ResultInitializer
	tx      db.Runner
	logger  zerolog.Logger
}

func NewService(repo Repository, gate OrderGate, cat Catalog, results ResultInitializer, tx db.Runner, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		orders:  gate,
		catalog: cat,
		results: results,
		tx:      tx,
		logger:  logger.With().Str("component", "samples").Logger(),
	}
}

// RegisterInput carries one collected specimen.
type RegisterInput struct {
	TypeName string `json:"type_name"`
	Notes    string `json:"notes"`
}

// Register records a collected sample. The code is assigned inside the
// order's lock, so concurrent registrations on one order cannot collide.
// The first sample of a pending order moves it to in_process and creates
// its result header; the missing set only reports collection progress.
func (s *Service) Register(ctx context.Context, actor auth.Actor, orderID uuid.UUID, in RegisterInput) (*RegisterOutcome, error) {
	if !actor.Can(auth.CapRegisterSamples) {
		return nil, apperr.Permissionf("role %s lacks %s", actor.Role, auth.CapRegisterSamples)
	}
	if in.TypeName == "" {
		return nil, apperr.Validationf("type_name", "sample type is required")
	}

	var out RegisterOutcome
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.HeaderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return apperr.Validationf("status", "cannot register a sample on a %s order", o.Status)
		}

		required, err := s.requiredTypes(ctx, orderID)
		if err != nil {
			return err
		}
		if len(required) == 0 {
			return apperr.Validationf("order_id", "order has no items requiring samples")
		}

		existing, err := s.repo.ListByOrder(ctx, orderID)
		if err != nil {
			return err
		}

		unexpected := !contains(required, in.TypeName)
		sample := &Sample{
			ID:          uuid.New(),
			OrderID:     orderID,
			TypeName:    in.TypeName,
			Code:        fmt.Sprintf("M-%d-%02d", o.Number, len(existing)+1),
			Unexpected:  unexpected,
			Notes:       in.Notes,
			CollectedBy: actor.ID,
			CollectedAt: time.Now().UTC(),
		}
		if err := s.repo.Insert(ctx, sample); err != nil {
			return err
		}

		// The first registration creates the result header; later calls
		// are no-ops. Technicians can start typing before collection
		// completes.
		if err := s.results.EnsureHeader(ctx, orderID); err != nil {
			return err
		}

		collected := map[string]bool{in.TypeName: true}
		for _, prev := range existing {
			collected[prev.TypeName] = true
		}
		var missing []string
		for _, r := range required {
			if !collected[r] {
				missing = append(missing, r)
			}
		}

		out = RegisterOutcome{Sample: sample, Missing: missing}
		if o.Status == orders.StatusPending {
			if err := s.orders.MarkInProcess(ctx, orderID); err != nil {
				return err
			}
			out.Transitioned = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("code", out.Sample.Code).
		Bool("transitioned", out.Transitioned).
		Msg("sample registered")
	return &out, nil
}

// ListByOrder returns the order's registered samples.
func (s *Service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Sample, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// Status reports the collection progress of one order.
func (s *Service) Status(ctx context.Context, orderID uuid.UUID) (*CollectionStatus, error) {
	required, err := s.requiredTypes(ctx, orderID)
	if err != nil {
		return nil, err
	}
	registered, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(registered))
	var collected []string
	for _, smp := range registered {
		if !have[smp.TypeName] {
			have[smp.TypeName] = true
			collected = append(collected, smp.TypeName)
		}
	}
	sort.Strings(collected)

	var missing []string
	for _, r := range required {
		if !have[r] {
			missing = append(missing, r)
		}
	}

	return &CollectionStatus{
		OrderID:   orderID,
		Required:  required,
		Collected: collected,
		Missing:   missing,
		Complete:  len(required) > 0 && len(missing) == 0,
	}, nil
}

// requiredTypes is the sorted union of sample types over the order's
// items.
func (s *Service) requiredTypes(ctx context.Context, orderID uuid.UUID) ([]string, error) {
	items, err := s.orders.LineItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var required []string
	for _, li := range items {
		types, err := s.catalog.SampleTypesForItem(ctx, li.ItemKind, li.ItemID)
		if err != nil {
			return nil, err
		}
		for _, t := range types {
			if !seen[t] {
				seen[t] = true
				required = append(required, t)
			}
		}
	}
	sort.Strings(required)
	return required, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
