package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/labadmin/labadmin/internal/domain/catalog"
	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/internal/platform/auth"
)

type passRunner struct{}

func (passRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockOrderRepo struct {
	orders     map[uuid.UUID]*Order
	nextNumber int64
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.nextNumber++
	o.Number = m.nextNumber
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) get(id uuid.UUID) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFoundf("order %s not found", id)
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) { return m.get(id) }
func (m *mockOrderRepo) GetForUpdate(_ context.Context, id uuid.UUID) (*Order, error) {
	return m.get(id)
}

func (m *mockOrderRepo) store(o *Order) error {
	if _, ok := m.orders[o.ID]; !ok {
		return apperr.NotFoundf("order %s not found", o.ID)
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) UpdateTotals(_ context.Context, o *Order) error   { return m.store(o) }
func (m *mockOrderRepo) UpdateStatus(_ context.Context, o *Order) error   { return m.store(o) }
func (m *mockOrderRepo) UpdateContract(_ context.Context, o *Order) error { return m.store(o) }

func (m *mockOrderRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Order, int, error) {
	var out []*Order
	for _, o := range m.orders {
		if f.PatientID != nil && o.PatientID != *f.PatientID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, len(out), nil
}

type itemKey struct {
	order uuid.UUID
	kind  catalog.ItemKind
	item  uuid.UUID
}

type mockItemRepo struct {
	items map[itemKey]*LineItem
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{items: make(map[itemKey]*LineItem)}
}

func (m *mockItemRepo) Insert(_ context.Context, li *LineItem) error {
	key := itemKey{li.OrderID, li.ItemKind, li.ItemID}
	if _, ok := m.items[key]; ok {
		return apperr.Conflictf(nil, "item already on order")
	}
	cp := *li
	m.items[key] = &cp
	return nil
}

func (m *mockItemRepo) Update(_ context.Context, li *LineItem) error {
	cp := *li
	m.items[itemKey{li.OrderID, li.ItemKind, li.ItemID}] = &cp
	return nil
}

func (m *mockItemRepo) Delete(_ context.Context, orderID uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) error {
	key := itemKey{orderID, kind, itemID}
	if _, ok := m.items[key]; !ok {
		return apperr.NotFoundf("item %s not on order", itemID)
	}
	delete(m.items, key)
	return nil
}

func (m *mockItemRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]*LineItem, error) {
	var out []*LineItem
	for _, li := range m.items {
		if li.OrderID == orderID {
			cp := *li
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockPaymentRepo struct {
	payments []*Payment
}

func (m *mockPaymentRepo) Insert(_ context.Context, p *Payment) error {
	cp := *p
	m.payments = append(m.payments, &cp)
	return nil
}

func (m *mockPaymentRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]*Payment, error) {
	var out []*Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) SumByOrder(_ context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.OrderID == orderID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

type mockCatalog struct {
	snapshots map[uuid.UUID]*catalog.ItemSnapshot
}

func (m *mockCatalog) Item(_ context.Context, kind catalog.ItemKind, id uuid.UUID) (*catalog.ItemSnapshot, error) {
	snap, ok := m.snapshots[id]
	if !ok {
		return nil, apperr.NotFoundf("item %s not found", id)
	}
	return snap, nil
}

// mockDiscounts applies a general per-kind percentage plus per-item
// overrides whenever the order carries a contract.
type mockDiscounts struct {
	general   map[catalog.ItemKind]decimal.Decimal
	overrides map[uuid.UUID]decimal.Decimal
}

func (m *mockDiscounts) Resolve(_ context.Context, contractID *uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) (decimal.Decimal, error) {
	if contractID == nil {
		return decimal.Zero, nil
	}
	if pct, ok := m.overrides[itemID]; ok {
		return pct, nil
	}
	if pct, ok := m.general[kind]; ok {
		return pct, nil
	}
	return decimal.Zero, nil
}

type fixture struct {
	svc       *Service
	orders    *mockOrderRepo
	items     *mockItemRepo
	payments  *mockPaymentRepo
	catalog   *mockCatalog
	discounts *mockDiscounts
}

func newFixture() *fixture {
	f := &fixture{
		orders:   newMockOrderRepo(),
		items:    newMockItemRepo(),
		payments: &mockPaymentRepo{},
		catalog:  &mockCatalog{snapshots: make(map[uuid.UUID]*catalog.ItemSnapshot)},
		discounts: &mockDiscounts{
			general:   make(map[catalog.ItemKind]decimal.Decimal),
			overrides: make(map[uuid.UUID]decimal.Decimal),
		},
	}
	f.svc = NewService(f.orders, f.items, f.payments, f.catalog, f.discounts,
		passRunner{}, decimal.RequireFromString("0.13"), zerolog.Nop())
	return f
}

func (f *fixture) addExam(name, price string) uuid.UUID {
	id := uuid.New()
	f.catalog.snapshots[id] = &catalog.ItemSnapshot{
		Kind: catalog.KindExam, ID: id, Code: "EX-" + name, Name: name,
		ListPrice: decimal.RequireFromString(price), Active: true,
	}
	return id
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	reception  = auth.Actor{ID: uuid.New(), Name: "Front Desk", Role: auth.RoleReception}
	technician = auth.Actor{ID: uuid.New(), Name: "Lab Tech", Role: auth.RoleTechnician}
)

func mustCreate(t *testing.T, f *fixture, in CreateInput) *Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), reception, in)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func assertMoney(t *testing.T, label string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s: got %s, want %s", label, got, want)
	}
}

func TestCreateComputesTotals(t *testing.T) {
	f := newFixture()
	exam := f.addExam("Glucose", "100.00")

	o := mustCreate(t, f, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})

	assertMoney(t, "subtotal", o.Subtotal, money("100.00"))
	assertMoney(t, "discount", o.DiscountApplied, money("0"))
	assertMoney(t, "tax", o.Tax, money("13.00"))
	assertMoney(t, "total", o.Total, money("113.00"))
	if o.Status != StatusPending {
		t.Errorf("status: got %s, want pending", o.Status)
	}
	if o.PaymentStatus != PaymentPending {
		t.Errorf("payment status: got %s, want pending", o.PaymentStatus)
	}
	if o.Number != 1 {
		t.Errorf("number: got %d, want 1", o.Number)
	}
}

func TestTotalsArithmeticInvariant(t *testing.T) {
	f := newFixture()
	contract := uuid.New()
	f.discounts.general[catalog.KindExam] = money("7.5")
	a := f.addExam("Glucose", "33.33")
	b := f.addExam("Lipids", "19.99")

	o := mustCreate(t, f, CreateInput{
		PatientID:  uuid.New(),
		ContractID: &contract,
		Items: []ItemRef{
			{Kind: catalog.KindExam, ID: a},
			{Kind: catalog.KindExam, ID: b},
		},
	})

	items, _ := f.items.ListByOrder(context.Background(), o.ID)
	lineSum := decimal.Zero
	for _, li := range items {
		lineSum = lineSum.Add(li.Price)
	}
	assertMoney(t, "subtotal = sum of line prices", o.Subtotal, lineSum)
	assertMoney(t, "total = subtotal + tax", o.Total, o.Subtotal.Add(o.Tax))
	assertMoney(t, "tax = round(subtotal * 0.13)", o.Tax, o.Subtotal.Mul(money("0.13")).Round(2))
}

func TestOverridePrecedence(t *testing.T) {
	f := newFixture()
	contract := uuid.New()
	f.discounts.general[catalog.KindExam] = money("10")
	exam := f.addExam("Panel", "100.00")
	f.discounts.overrides[exam] = money("25")

	o := mustCreate(t, f, CreateInput{
		PatientID:  uuid.New(),
		ContractID: &contract,
		Items:      []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})

	assertMoney(t, "subtotal", o.Subtotal, money("75.00"))
	assertMoney(t, "discount applied", o.DiscountApplied, money("25.00"))
}

func TestRecomputeIsIdempotent(t *testing.T) {
	f := newFixture()
	contract := uuid.New()
	f.discounts.general[catalog.KindExam] = money("10")
	exam := f.addExam("Panel", "100.00")

	o := mustCreate(t, f, CreateInput{
		PatientID:  uuid.New(),
		ContractID: &contract,
		Items:      []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})

	again, err := f.svc.Recompute(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	assertMoney(t, "subtotal unchanged", again.Subtotal, o.Subtotal)
	assertMoney(t, "tax unchanged", again.Tax, o.Tax)
	assertMoney(t, "total unchanged", again.Total, o.Total)
}

func TestRecomputePicksUpCatalogPriceChange(t *testing.T) {
	f := newFixture()
	exam := f.addExam("Panel", "100.00")
	o := mustCreate(t, f, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})

	f.catalog.snapshots[exam].ListPrice = money("120.00")
	again, err := f.svc.Recompute(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	assertMoney(t, "subtotal follows catalog", again.Subtotal, money("120.00"))
	assertMoney(t, "total follows catalog", again.Total, money("135.60"))
}

func TestPaymentStatusThresholds(t *testing.T) {
	f := newFixture()
	exam := f.addExam("Panel", "100.00")
	o := mustCreate(t, f, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})
	assertMoney(t, "total", o.Total, money("113.00"))

	o, err := f.svc.RecordPayment(context.Background(), reception, o.ID, PaymentInput{
		Amount: money("50.00"), Method: "cash",
	})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if o.PaymentStatus != PaymentPartial {
		t.Errorf("after 50.00: got %s, want partial", o.PaymentStatus)
	}

	o, err = f.svc.RecordPayment(context.Background(), reception, o.ID, PaymentInput{
		Amount: money("63.00"), Method: "card",
	})
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if o.PaymentStatus != PaymentPaid {
		t.Errorf("after 113.00: got %s, want paid", o.PaymentStatus)
	}
	assertMoney(t, "amount paid", o.AmountPaid, money("113.00"))
	assertMoney(t, "balance", o.Balance(), money("0"))
}

func TestPaidOrderRevertsToPartialWhenTotalGrows(t *testing.T) {
	f := newFixture()
	exam := f.addExam("Panel", "100.00")
	o := mustCreate(t, f, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})

	o, err := f.svc.RecordPayment(context.Background(), reception, o.ID, PaymentInput{
		Amount: money("113.00"), Method: "cash",
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if o.PaymentStatus != PaymentPaid {
		t.Fatalf("after full payment: got %s, want paid", o.PaymentStatus)
	}

	second := f.addExam("Lipids", "50.00")
	o, err = f.svc.AddItem(context.Background(), reception, o.ID, ItemRef{Kind: catalog.KindExam, ID: second})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	assertMoney(t, "total after growth", o.Total, money("169.50"))
	if o.PaymentStatus != PaymentPartial {
		t.Errorf("after total grew past the paid amount: got %s, want partial", o.PaymentStatus)
	}
	assertMoney(t, "amount paid", o.AmountPaid, money("113.00"))
	assertMoney(t, "balance", o.Balance(), money("56.50"))
}

func TestOverpaymentIsPaid(t *testing.T) {
	f := newFixture()
	exam := f.addExam("Panel", "100.00")
	o := mustCreate(t, f, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})

	o, err := f.svc.RecordPayment(context.Background(), reception, o.ID, PaymentInput{
		Amount: money("150.00"), Method: "cash",
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if o.PaymentStatus != PaymentPaid {
		t.Errorf("got %s, want paid", o.PaymentStatus)
	}
	assertMoney(t, "balance never negative", o.Balance(), money("0"))
}

func TestPaymentValidation(t *testing.T) {
	f := newFixture()
	exam := f.addExam("Panel", "100.00")
	o := mustCreate(t, f, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})

	if _, err := f.svc.RecordPayment(context.Background(), reception, o.ID, PaymentInput{
		Amount: money("0"), Method: "cash",
	}); !apperr.IsValidation(err) {
		t.Errorf("zero amount: expected validation error, got %v", err)
	}
	if _, err := f.svc.RecordPayment(context.Background(), reception, o.ID, PaymentInput{
		Amount: money("-5"), Method: "cash",
	}); !apperr.IsValidation(err) {
		t.Errorf("negative amount: expected validation error, got %v", err)
	}
	if _, err := f.svc.RecordPayment(context.Background(), technician, o.ID, PaymentInput{
		Amount: money("5"), Method: "cash",
	}); !apperr.IsPermission(err) {
		t.Errorf("technician payment: expected permission error, got %v", err)
	}
}

func TestCancelPreservesLedger(t *testing.T) {
	f := newFixture()
	exam := f.addExam("Panel", "100.00")
	o := mustCreate(t, f, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})
	if _, err := f.svc.RecordPayment(context.Background(), reception, o.ID, PaymentInput{
		Amount: money("50.00"), Method: "cash",
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	o, err := f.svc.Cancel(context.Background(), reception, o.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if o.Status != StatusCancelled {
		t.Errorf("status: got %s, want cancelled", o.Status)
	}
	if o.PaymentStatus != PaymentVoid {
		t.Errorf("payment status: got %s, want void", o.PaymentStatus)
	}

	ledger, _ := f.payments.ListByOrder(context.Background(), o.ID)
	if len(ledger) != 1 {
		t.Fatalf("ledger entries: got %d, want 1", len(ledger))
	}
	assertMoney(t, "ledger amount intact", ledger[0].Amount, money("50.00"))
	assertMoney(t, "amount paid intact", o.AmountPaid, money("50.00"))

	if _, err := f.svc.RecordPayment(context.Background(), reception, o.ID, PaymentInput{
		Amount: money("10.00"), Method: "cash",
	}); !apperr.IsValidation(err) {
		t.Errorf("payment on cancelled order: expected validation error, got %v", err)
	}
}

func TestCancelTerminalRejected(t *testing.T) {
	f := newFixture()
	exam := f.addExam("Panel", "100.00")
	o := mustCreate(t, f, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})

	if _, err := f.svc.Cancel(context.Background(), reception, o.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), reception, o.ID); !apperr.IsValidation(err) {
		t.Errorf("second cancel: expected validation error, got %v", err)
	}
}

func TestAddItemRules(t *testing.T) {
	f := newFixture()
	exam := f.addExam("Panel", "100.00")
	inactive := f.addExam("Retired", "10.00")
	f.catalog.snapshots[inactive].Active = false

	o := mustCreate(t, f, CreateInput{PatientID: uuid.New()})

	if _, err := f.svc.AddItem(context.Background(), reception, o.ID, ItemRef{Kind: catalog.KindExam, ID: inactive}); !apperr.IsValidation(err) {
		t.Errorf("inactive item: expected validation error, got %v", err)
	}

	o2, err := f.svc.AddItem(context.Background(), reception, o.ID, ItemRef{Kind: catalog.KindExam, ID: exam})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	assertMoney(t, "total after add", o2.Total, money("113.00"))

	if _, err := f.svc.AddItem(context.Background(), reception, o.ID, ItemRef{Kind: catalog.KindExam, ID: exam}); !apperr.IsConflict(err) {
		t.Errorf("duplicate item: expected conflict, got %v", err)
	}

	o3, err := f.svc.RemoveItem(context.Background(), reception, o.ID, ItemRef{Kind: catalog.KindExam, ID: exam})
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	assertMoney(t, "total after remove", o3.Total, money("0"))
}

func TestSetContractRecomputes(t *testing.T) {
	f := newFixture()
	contract := uuid.New()
	f.discounts.general[catalog.KindExam] = money("10")
	exam := f.addExam("Panel", "100.00")

	o := mustCreate(t, f, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})
	assertMoney(t, "without contract", o.Total, money("113.00"))

	o, err := f.svc.SetContract(context.Background(), reception, o.ID, &contract)
	if err != nil {
		t.Fatalf("set contract: %v", err)
	}
	assertMoney(t, "subtotal with contract", o.Subtotal, money("90.00"))
	assertMoney(t, "discount with contract", o.DiscountApplied, money("10.00"))

	o, err = f.svc.SetContract(context.Background(), reception, o.ID, nil)
	if err != nil {
		t.Fatalf("clear contract: %v", err)
	}
	assertMoney(t, "subtotal after detach", o.Subtotal, money("100.00"))
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture()
	exam := f.addExam("Panel", "100.00")
	o := mustCreate(t, f, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemRef{{Kind: catalog.KindExam, ID: exam}},
	})

	if err := f.svc.Complete(context.Background(), o.ID); !apperr.IsValidation(err) {
		t.Errorf("complete from pending: expected validation error, got %v", err)
	}

	if err := f.svc.MarkInProcess(context.Background(), o.ID); err != nil {
		t.Fatalf("mark in process: %v", err)
	}
	// Idempotent.
	if err := f.svc.MarkInProcess(context.Background(), o.ID); err != nil {
		t.Fatalf("mark in process again: %v", err)
	}

	if err := f.svc.Complete(context.Background(), o.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, _ := f.orders.GetByID(context.Background(), o.ID)
	if got.Status != StatusCompleted {
		t.Errorf("status: got %s, want completed", got.Status)
	}

	if err := f.svc.MarkInProcess(context.Background(), o.ID); !apperr.IsValidation(err) {
		t.Errorf("mark completed order in process: expected validation error, got %v", err)
	}
}

func TestCreateRequiresCapability(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), technician, CreateInput{PatientID: uuid.New()})
	if !apperr.IsPermission(err) {
		t.Fatalf("expected permission error, got %v", err)
	}
}
