package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/labadmin/labadmin/internal/domain/catalog"
	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/internal/platform/auth"
	"github.com/labadmin/labadmin/internal/platform/db"
)

var hundred = decimal.NewFromInt(100)

// Catalog is the pricing facade the totals calculator reads from.
type Catalog interface {
	Item(ctx context.Context, kind catalog.ItemKind, id uuid.UUID) (*catalog.ItemSnapshot, error)
}

// Discounts resolves the percentage applying to one item under an
// optional contract.
type Discounts interface {
	Resolve(ctx context.Context, contractID *uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) (decimal.Decimal, error)
}

// Service owns order mutations. Every mutation runs in a transaction
// that first locks the order row, so concurrent work on one order
// serializes and the stored totals always reflect a single consistent
// recompute.
type Service struct {
	orders    Repository
	items     LineItemRepository
	payments  PaymentRepository
	catalog   Catalog
	discounts Discounts
	tx        db.Runner
	taxRate   decimal.Decimal
	logger    zerolog.Logger
}

func NewService(
	orders Repository,
	items LineItemRepository,
	payments PaymentRepository,
	cat Catalog,
	discounts Discounts,
	tx db.Runner,
	taxRate decimal.Decimal,
	logger zerolog.Logger,
) *Service {
	return &Service{
		orders:    orders,
		items:     items,
		payments:  payments,
		catalog:   cat,
		discounts: discounts,
		tx:        tx,
		taxRate:   taxRate,
		logger:    logger.With().Str("component", "orders").Logger(),
	}
}

func requireCap(actor auth.Actor, c auth.Capability) error {
	if !actor.Can(c) {
		return apperr.Permissionf("role %s lacks %s", actor.Role, c)
	}
	return nil
}

// ItemRef names one catalog item to put on an order.
type ItemRef struct {
	Kind catalog.ItemKind `json:"kind"`
	ID   uuid.UUID        `json:"id"`
}

// CreateInput carries a new order.
type CreateInput struct {
	PatientID      uuid.UUID      `json:"patient_id"`
	ContractID     *uuid.UUID     `json:"contract_id,omitempty"`
	Priority       Priority       `json:"priority"`
	DeliveryMethod DeliveryMethod `json:"delivery_method"`
	Notes          string         `json:"notes"`
	Items          []ItemRef      `json:"items"`
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*Order, error) {
	if err := requireCap(actor, auth.CapManageOrders); err != nil {
		return nil, err
	}
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validationf("patient_id", "patient is required")
	}
	if in.Priority == "" {
		in.Priority = PriorityNormal
	}
	if !in.Priority.Valid() {
		return nil, apperr.Validationf("priority", "unknown priority %q", in.Priority)
	}
	if in.DeliveryMethod == "" {
		in.DeliveryMethod = DeliveryPickup
	}
	if !in.DeliveryMethod.Valid() {
		return nil, apperr.Validationf("delivery_method", "unknown delivery method %q", in.DeliveryMethod)
	}

	now := time.Now().UTC()
	o := &Order{
		ID:              uuid.New(),
		PatientID:       in.PatientID,
		ContractID:      in.ContractID,
		Priority:        in.Priority,
		DeliveryMethod:  in.DeliveryMethod,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		Subtotal:        decimal.Zero,
		DiscountApplied: decimal.Zero,
		Tax:             decimal.Zero,
		Total:           decimal.Zero,
		AmountPaid:      decimal.Zero,
		Notes:           in.Notes,
		CreatedBy:       actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, o); err != nil {
			return err
		}
		for _, ref := range in.Items {
			if err := s.addItem(ctx, o, ref.Kind, ref.ID); err != nil {
				return err
			}
		}
		return s.recompute(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", o.ID.String()).Int64("number", o.Number).Msg("order created")
	return o, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Order: o, Items: items, Payments: payments}, nil
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Order, int, error) {
	return s.orders.List(ctx, f, limit, offset)
}

// AddItem puts one catalog item on the order and recomputes totals.
func (s *Service) AddItem(ctx context.Context, actor auth.Actor, orderID uuid.UUID, ref ItemRef) (*Order, error) {
	if err := requireCap(actor, auth.CapManageOrders); err != nil {
		return nil, err
	}
	var o *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.lockOpen(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.addItem(ctx, o, ref.Kind, ref.ID); err != nil {
			return err
		}
		return s.recompute(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// RemoveItem takes one item off the order and recomputes totals.
func (s *Service) RemoveItem(ctx context.Context, actor auth.Actor, orderID uuid.UUID, ref ItemRef) (*Order, error) {
	if err := requireCap(actor, auth.CapManageOrders); err != nil {
		return nil, err
	}
	var o *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.lockOpen(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.items.Delete(ctx, orderID, ref.Kind, ref.ID); err != nil {
			return err
		}
		return s.recompute(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// SetContract attaches or detaches the order's contract and recomputes
// every line under the new discount rules.
func (s *Service) SetContract(ctx context.Context, actor auth.Actor, orderID uuid.UUID, contractID *uuid.UUID) (*Order, error) {
	if err := requireCap(actor, auth.CapManageOrders); err != nil {
		return nil, err
	}
	var o *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.lockOpen(ctx, orderID)
		if err != nil {
			return err
		}
		o.ContractID = contractID
		o.UpdatedAt = time.Now().UTC()
		if err := s.orders.UpdateContract(ctx, o); err != nil {
			return err
		}
		return s.recompute(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// PaymentInput is one ledger entry to record.
type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
}

// RecordPayment appends to the ledger and re-derives the payment status.
// Overpayment is accepted; the status simply becomes paid.
func (s *Service) RecordPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, in PaymentInput) (*Order, error) {
	if err := requireCap(actor, auth.CapRecordPayments); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.Validationf("amount", "payment amount must be positive")
	}
	if in.Method == "" {
		return nil, apperr.Validationf("method", "payment method is required")
	}

	var o *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return apperr.Validationf("status", "cannot record a payment on a cancelled order")
		}
		p := &Payment{
			ID:         uuid.New(),
			OrderID:    orderID,
			Amount:     in.Amount,
			Method:     in.Method,
			Reference:  in.Reference,
			RecordedBy: actor.ID,
			RecordedAt: time.Now().UTC(),
		}
		if err := s.payments.Insert(ctx, p); err != nil {
			return err
		}
		return s.recompute(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("amount", in.Amount.String()).
		Str("payment_status", string(o.PaymentStatus)).
		Msg("payment recorded")
	return o, nil
}

// Cancel moves a non-terminal order to cancelled. The payment ledger is
// preserved; only the derived payment status becomes void.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Order, error) {
	if err := requireCap(actor, auth.CapManageOrders); err != nil {
		return nil, err
	}
	var o *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return apperr.Validationf("status", "order is already %s", o.Status)
		}
		o.Status = StatusCancelled
		o.PaymentStatus = PaymentVoid
		o.UpdatedAt = time.Now().UTC()
		return s.orders.UpdateStatus(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", orderID.String()).Msg("order cancelled")
	return o, nil
}

// Recompute rebuilds the order's totals from the live catalog and
// discount rules. Idempotent: a second run with unchanged inputs writes
// the same numbers.
func (s *Service) Recompute(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	var o *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		return s.recompute(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// HeaderForUpdate locks and returns the order row. Callers must already
// be inside a transaction; the lock is released when it ends.
func (s *Service) HeaderForUpdate(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.GetForUpdate(ctx, id)
}

// LineItems returns the order's current items.
func (s *Service) LineItems(ctx context.Context, orderID uuid.UUID) ([]*LineItem, error) {
	return s.items.ListByOrder(ctx, orderID)
}

// MarkInProcess moves a pending order to in_process. Already in_process
// is a no-op; terminal states refuse.
func (s *Service) MarkInProcess(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		switch o.Status {
		case StatusInProcess:
			return nil
		case StatusPending:
			o.Status = StatusInProcess
			o.UpdatedAt = time.Now().UTC()
			return s.orders.UpdateStatus(ctx, o)
		default:
			return apperr.Validationf("status", "order is %s", o.Status)
		}
	})
}

// Complete moves an in_process order to completed. Called when its
// results are validated.
func (s *Service) Complete(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusInProcess {
			return apperr.Validationf("status", "cannot complete an order that is %s", o.Status)
		}
		o.Status = StatusCompleted
		o.UpdatedAt = time.Now().UTC()
		return s.orders.UpdateStatus(ctx, o)
	})
}

// lockOpen locks the order and refuses composition changes on terminal
// orders.
func (s *Service) lockOpen(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orders.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, apperr.Validationf("status", "order is %s", o.Status)
	}
	return o, nil
}

// addItem validates the catalog item and inserts the line with its
// current resolved price. Caller recomputes afterwards.
func (s *Service) addItem(ctx context.Context, o *Order, kind catalog.ItemKind, itemID uuid.UUID) error {
	if !kind.Valid() {
		return apperr.Validationf("kind", "unknown item kind %q", kind)
	}
	snap, err := s.catalog.Item(ctx, kind, itemID)
	if err != nil {
		return err
	}
	if !snap.Active {
		return apperr.Validationf("item_id", "%s is not orderable", snap.Name)
	}
	pct, err := s.discounts.Resolve(ctx, o.ContractID, kind, itemID)
	if err != nil {
		return err
	}
	li := &LineItem{
		ID:          uuid.New(),
		OrderID:     o.ID,
		ItemKind:    kind,
		ItemID:      itemID,
		Code:        snap.Code,
		Name:        snap.Name,
		ListPrice:   snap.ListPrice,
		DiscountPct: pct,
		Price:       resolvedPrice(snap.ListPrice, pct),
		CreatedAt:   time.Now().UTC(),
	}
	return s.items.Insert(ctx, li)
}

// resolvedPrice applies a percentage discount and rounds half-up to
// cents.
func resolvedPrice(list, pct decimal.Decimal) decimal.Decimal {
	return list.Mul(hundred.Sub(pct)).Div(hundred).Round(2)
}

// recompute is the single place totals are calculated: every line is
// repriced from the live catalog and discount rules, the ledger is
// re-summed, and the payment status re-derived. Requires the order row
// locked in the current transaction.
func (s *Service) recompute(ctx context.Context, o *Order) error {
	items, err := s.items.ListByOrder(ctx, o.ID)
	if err != nil {
		return err
	}

	subtotal := decimal.Zero
	listSum := decimal.Zero
	for _, li := range items {
		snap, err := s.catalog.Item(ctx, li.ItemKind, li.ItemID)
		if err != nil {
			return err
		}
		pct, err := s.discounts.Resolve(ctx, o.ContractID, li.ItemKind, li.ItemID)
		if err != nil {
			return err
		}
		price := resolvedPrice(snap.ListPrice, pct)
		if !price.Equal(li.Price) || !snap.ListPrice.Equal(li.ListPrice) ||
			!pct.Equal(li.DiscountPct) || snap.Name != li.Name || snap.Code != li.Code {
			li.Code = snap.Code
			li.Name = snap.Name
			li.ListPrice = snap.ListPrice
			li.DiscountPct = pct
			li.Price = price
			if err := s.items.Update(ctx, li); err != nil {
				return err
			}
		}
		subtotal = subtotal.Add(price)
		listSum = listSum.Add(snap.ListPrice)
	}

	paid, err := s.payments.SumByOrder(ctx, o.ID)
	if err != nil {
		return err
	}

	o.Subtotal = subtotal
	o.DiscountApplied = listSum.Sub(subtotal)
	o.Tax = subtotal.Mul(s.taxRate).Round(2)
	o.Total = o.Subtotal.Add(o.Tax)
	o.AmountPaid = paid
	o.PaymentStatus = derivePaymentStatus(o.Status, o.Total, paid)
	o.UpdatedAt = time.Now().UTC()
	return s.orders.UpdateTotals(ctx, o)
}

// derivePaymentStatus is the only way a payment status is produced.
func derivePaymentStatus(status Status, total, paid decimal.Decimal) PaymentStatus {
	switch {
	case status == StatusCancelled:
		return PaymentVoid
	case paid.IsZero() || paid.IsNegative():
		return PaymentPending
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	default:
		return PaymentPartial
	}
}
