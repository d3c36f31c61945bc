package results

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labadmin/labadmin/internal/domain/catalog"
	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/internal/platform/auth"
	"github.com/labadmin/labadmin/internal/platform/db"
)

// OrderCompleter closes the order once its result is validated.
type OrderCompleter interface {
	Complete(ctx context.Context, orderID uuid.UUID) error
}

// ParameterCatalog resolves the catalog parameters values are entered
// against.
type ParameterCatalog interface {
	GetParameter(ctx context.Context, id uuid.UUID) (*catalog.Parameter, error)
}

// Service runs the result workflow. Transitions lock the header row, so
// a submit racing a reject resolves to whichever commits first; the
// loser sees the new state and fails its status check.
type Service struct {
	repo    Repository
	orders  OrderCompleter
	catalog ParameterCatalog
	tx      db.Runner
	logger  zerolog.Logger
}

func NewService(repo Repository, completer OrderCompleter, cat ParameterCatalog, tx db.Runner, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		orders:  completer,
		catalog: cat,
		tx:      tx,
		logger:  logger.With().Str("component", "results").Logger(),
	}
}

// EnsureHeader creates the order's result header if it does not exist
// yet. Idempotent; a concurrent create is absorbed.
func (s *Service) EnsureHeader(ctx context.Context, orderID uuid.UUID) error {
	_, err := s.repo.GetByOrder(ctx, orderID)
	if err == nil {
		return nil
	}
	if !apperr.IsNotFound(err) {
		return err
	}

	now := time.Now().UTC()
	createErr := s.repo.Create(ctx, &Result{
		ID:        uuid.New(),
		OrderID:   orderID,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if apperr.IsConflict(createErr) {
		return nil
	}
	return createErr
}

// Get returns the header with its entered values.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*Report, error) {
	res, err := s.repo.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	details, err := s.repo.ListDetails(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	return &Report{Result: res, Details: details}, nil
}

// EnterInput is one value for one parameter. A blank value clears the
// entry.
type EnterInput struct {
	ParameterID uuid.UUID `json:"parameter_id"`
	Value       string    `json:"value"`
}

// EnterValue records a measured value. Only draft results accept edits.
func (s *Service) EnterValue(ctx context.Context, actor auth.Actor, orderID uuid.UUID, in EnterInput) error {
	if !actor.Can(auth.CapEnterResults) {
		return apperr.Permissionf("role %s lacks %s", actor.Role, auth.CapEnterResults)
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		res, err := s.repo.GetByOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if res.Status != StatusDraft {
			return apperr.Validationf("status", "result is %s; only drafts accept edits", res.Status)
		}
		if _, err := s.catalog.GetParameter(ctx, in.ParameterID); err != nil {
			return err
		}

		if strings.TrimSpace(in.Value) == "" {
			return s.repo.DeleteDetail(ctx, res.ID, in.ParameterID)
		}
		return s.repo.UpsertDetail(ctx, &Detail{
			ID:          uuid.New(),
			ResultID:    res.ID,
			ParameterID: in.ParameterID,
			Value:       in.Value,
			EnteredBy:   actor.ID,
			EnteredAt:   time.Now().UTC(),
		})
	})
}

// SetObservations updates the free-text observations of a draft.
func (s *Service) SetObservations(ctx context.Context, actor auth.Actor, orderID uuid.UUID, text string) error {
	if !actor.Can(auth.CapEnterResults) {
		return apperr.Permissionf("role %s lacks %s", actor.Role, auth.CapEnterResults)
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		res, err := s.repo.GetByOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if res.Status != StatusDraft {
			return apperr.Validationf("status", "result is %s; only drafts accept edits", res.Status)
		}
		res.Observations = text
		res.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, res)
	})
}

// Submit sends a draft for validation. At least one value must have
// been entered.
func (s *Service) Submit(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Result, error) {
	if !actor.Can(auth.CapSubmitResults) {
		return nil, apperr.Permissionf("role %s lacks %s", actor.Role, auth.CapSubmitResults)
	}
	var out *Result
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		res, err := s.repo.GetByOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if res.Status != StatusDraft {
			return apperr.Validationf("status", "cannot submit a result that is %s", res.Status)
		}
		details, err := s.repo.ListDetails(ctx, res.ID)
		if err != nil {
			return err
		}
		if len(details) == 0 {
			return apperr.Validationf("details", "cannot submit an empty result")
		}

		now := time.Now().UTC()
		res.Status = StatusSubmitted
		res.SubmittedBy = &actor.ID
		res.SubmittedAt = &now
		res.UpdatedAt = now
		if err := s.repo.Update(ctx, res); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", orderID.String()).Msg("result submitted")
	return out, nil
}

// Reject sends a submitted result back to draft for correction,
// clearing reviewer marks.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*Result, error) {
	if !actor.Can(auth.CapRejectResults) {
		return nil, apperr.Permissionf("role %s lacks %s", actor.Role, auth.CapRejectResults)
	}
	var out *Result
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		res, err := s.repo.GetByOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if res.Status != StatusSubmitted {
			return apperr.Validationf("status", "cannot reject a result that is %s", res.Status)
		}

		res.Status = StatusDraft
		res.SubmittedBy = nil
		res.SubmittedAt = nil
		res.ValidatedBy = nil
		res.ValidatedAt = nil
		if reason != "" {
			res.Observations = reason
		}
		res.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, res); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", orderID.String()).Msg("result rejected to draft")
	return out, nil
}

// Validate approves a submitted result and completes the order, in one
// transaction. Validated is final; there is no transition out of it.
func (s *Service) Validate(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Result, error) {
	if !actor.Can(auth.CapValidateResults) {
		return nil, apperr.Permissionf("role %s lacks %s", actor.Role, auth.CapValidateResults)
	}
	var out *Result
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		res, err := s.repo.GetByOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if res.Status != StatusSubmitted {
			return apperr.Validationf("status", "cannot validate a result that is %s", res.Status)
		}

		now := time.Now().UTC()
		res.Status = StatusValidated
		res.ValidatedBy = &actor.ID
		res.ValidatedAt = &now
		res.UpdatedAt = now
		if err := s.repo.Update(ctx, res); err != nil {
			return err
		}
		if err := s.orders.Complete(ctx, orderID); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("validated_by", actor.ID.String()).
		Msg("result validated, order completed")
	return out, nil
}
