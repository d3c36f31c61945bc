package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labadmin/labadmin/internal/domain/contracts"
	"github.com/labadmin/labadmin/internal/domain/orders"
	"github.com/labadmin/labadmin/internal/domain/patients"
	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/internal/platform/auth"
	"github.com/labadmin/labadmin/internal/platform/db"
)

// OrderSource locks and returns the order being invoiced.
type OrderSource interface {
	HeaderForUpdate(ctx context.Context, id uuid.UUID) (*orders.Order, error)
}

// PatientDirectory resolves the customer identity for consumer
// invoices.
type PatientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
}

// ContractDirectory resolves the customer identity for contract
// billing.
type ContractDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*contracts.Contract, error)
}

// Service issues invoices. The number, the uniqueness per order and the
// money snapshot are all settled inside one transaction holding the
// order lock, so two clerks racing on the same order produce exactly
// one document and concurrent issues never share or skip a number.
type Service struct {
	repo      Repository
	orders    OrderSource
	patients  PatientDirectory
	contracts ContractDirectory
	tx        db.Runner
	logger    zerolog.Logger
}

func NewService(repo Repository, src OrderSource, pat PatientDirectory, con ContractDirectory, tx db.Runner, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		orders:    src,
		patients:  pat,
		contracts: con,
		tx:        tx,
		logger:    logger.With().Str("component", "invoicing").Logger(),
	}
}

// IssueInput carries the optional free text of the document.
type IssueInput struct {
	Notes string `json:"notes"`
}

// Issue creates the order's invoice. Contract orders draw from the CCF
// series and bill the institution; everything else draws from FAC and
// bills the patient.
func (s *Service) Issue(ctx context.Context, actor auth.Actor, orderID uuid.UUID, in IssueInput) (*Invoice, error) {
	if !actor.Can(auth.CapIssueInvoices) {
		return nil, apperr.Permissionf("role %s lacks %s", actor.Role, auth.CapIssueInvoices)
	}

	var inv *Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.HeaderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == orders.StatusCancelled {
			return apperr.Validationf("status", "cannot invoice a cancelled order")
		}
		if _, err := s.repo.GetByOrder(ctx, orderID); err == nil {
			return apperr.Validationf("order_id", "order %s already invoiced", orderID)
		} else if !apperr.IsNotFound(err) {
			return err
		}

		target := TargetParticular
		var name, document string
		if o.ContractID != nil {
			target = TargetContract
			c, err := s.contracts.GetByID(ctx, *o.ContractID)
			if err != nil {
				return err
			}
			name, document = c.Name, c.TaxID
		} else {
			p, err := s.patients.GetByID(ctx, o.PatientID)
			if err != nil {
				return err
			}
			name, document = p.FullName(), p.Document
		}

		seq, err := s.repo.NextSequence(ctx, target.Prefix())
		if err != nil {
			return err
		}

		inv = &Invoice{
			ID:               uuid.New(),
			OrderID:          orderID,
			Number:           fmt.Sprintf("%s-%06d", target.Prefix(), seq),
			Target:           target,
			CustomerName:     name,
			CustomerDocument: document,
			Subtotal:         o.Subtotal,
			Discount:         o.DiscountApplied,
			Tax:              o.Tax,
			Total:            o.Total,
			Notes:            in.Notes,
			IssuedBy:         actor.ID,
			IssuedAt:         time.Now().UTC(),
		}
		return s.repo.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("number", inv.Number).
		Msg("invoice issued")
	return inv, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	return s.repo.GetByOrder(ctx, orderID)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Invoice, int, error) {
	return s.repo.List(ctx, limit, offset)
}
