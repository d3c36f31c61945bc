package samples

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labadmin/labadmin/internal/domain/catalog"
	"github.com/labadmin/labadmin/internal/domain/orders"
	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/internal/platform/auth"
)

type passRunner struct{}

func (passRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockRepo struct {
	samples []*Sample
}

func (m *mockRepo) Insert(_ context.Context, s *Sample) error {
	for _, prev := range m.samples {
		if prev.OrderID == s.OrderID && prev.Code == s.Code {
			return apperr.Conflictf(nil, "sample code %s already taken", s.Code)
		}
	}
	m.samples = append(m.samples, s)
	return nil
}

func (m *mockRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]*Sample, error) {
	var out []*Sample
	for _, s := range m.samples {
		if s.OrderID == orderID {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockGate struct {
	order *orders.Order
	items []*orders.LineItem
}

func (m *mockGate) HeaderForUpdate(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	if m.order == nil || m.order.ID != id {
		return nil, apperr.NotFoundf("order %s not found", id)
	}
	return m.order, nil
}

func (m *mockGate) LineItems(_ context.Context, orderID uuid.UUID) ([]*orders.LineItem, error) {
	return m.items, nil
}

func (m *mockGate) MarkInProcess(_ context.Context, orderID uuid.UUID) error {
	if m.order.Status == orders.StatusPending {
		m.order.Status = orders.StatusInProcess
	}
	return nil
}

type mockCatalog struct {
	types map[uuid.UUID][]string
}

func (m *mockCatalog) SampleTypesForItem(_ context.Context, kind catalog.ItemKind, id uuid.UUID) ([]string, error) {
	return m.types[id], nil
}

type mockResults struct {
	ensured map[uuid.UUID]int
}

func (m *mockResults) EnsureHeader(_ context.Context, orderID uuid.UUID) error {
	if m.ensured == nil {
		m.ensured = make(map[uuid.UUID]int)
	}
	m.ensured[orderID]++
	return nil
}

type fixture struct {
	svc     *Service
	repo    *mockRepo
	gate    *mockGate
	catalog *mockCatalog
	results *mockResults
}

// newFixture builds an order whose single line item requires the given
// sample types.
func newFixture(required ...string) *fixture {
	itemID := uuid.New()
	f := &fixture{
		repo: &mockRepo{},
		gate: &mockGate{
			order: &orders.Order{ID: uuid.New(), Number: 42, Status: orders.StatusPending},
			items: []*orders.LineItem{{ItemKind: catalog.KindExam, ItemID: itemID}},
		},
		catalog: &mockCatalog{types: map[uuid.UUID][]string{itemID: required}},
		results: &mockResults{},
	}
	f.svc = NewService(f.repo, f.gate, f.catalog, f.results, passRunner{}, zerolog.Nop())
	return f
}

var technician = auth.Actor{ID: uuid.New(), Name: "Lab Tech", Role: auth.RoleTechnician}

func TestRegisterAssignsSequentialCodes(t *testing.T) {
	f := newFixture("Blood", "Urine")
	orderID := f.gate.order.ID

	first, err := f.svc.Register(context.Background(), technician, orderID, RegisterInput{TypeName: "Blood"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if first.Sample.Code != "M-42-01" {
		t.Errorf("first code: got %s, want M-42-01", first.Sample.Code)
	}
	if !first.Transitioned {
		t.Error("expected transition on the first sample of a pending order")
	}
	if f.gate.order.Status != orders.StatusInProcess {
		t.Errorf("order status after first sample: got %s, want in_process", f.gate.order.Status)
	}
	if len(first.Missing) != 1 || first.Missing[0] != "Urine" {
		t.Errorf("missing: got %v, want [Urine]", first.Missing)
	}
	if f.results.ensured[orderID] != 1 {
		t.Errorf("result header ensured %d times after first sample, want 1", f.results.ensured[orderID])
	}

	second, err := f.svc.Register(context.Background(), technician, orderID, RegisterInput{TypeName: "Urine"})
	if err != nil {
		t.Fatalf("register second: %v", err)
	}
	if second.Sample.Code != "M-42-02" {
		t.Errorf("second code: got %s, want M-42-02", second.Sample.Code)
	}
	if second.Transitioned {
		t.Error("order was already in_process, second sample must not report a transition")
	}
	if len(second.Missing) != 0 {
		t.Errorf("missing after full collection: got %v, want none", second.Missing)
	}
	if f.results.ensured[orderID] != 2 {
		t.Errorf("result header ensured %d times, want one get-or-create per registration", f.results.ensured[orderID])
	}
}

func TestRegisterFirstSampleFlipsOrder(t *testing.T) {
	f := newFixture("Blood", "Urine")

	out, err := f.svc.Register(context.Background(), technician, f.gate.order.ID, RegisterInput{TypeName: "Blood"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if f.gate.order.Status != orders.StatusInProcess {
		t.Errorf("after first sample order status = %s, want in_process", f.gate.order.Status)
	}
	if len(out.Missing) != 1 || out.Missing[0] != "Urine" {
		t.Errorf("missing: got %v, want [Urine]", out.Missing)
	}
}

func TestRegisterUnexpectedTypeFlagged(t *testing.T) {
	f := newFixture("Blood")
	out, err := f.svc.Register(context.Background(), technician, f.gate.order.ID, RegisterInput{TypeName: "Saliva"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !out.Sample.Unexpected {
		t.Error("expected sample to be flagged unexpected")
	}
	if !out.Transitioned {
		t.Error("first sample flips a pending order even when its type was not required")
	}
	if len(out.Missing) != 1 || out.Missing[0] != "Blood" {
		t.Errorf("missing: got %v, want [Blood]", out.Missing)
	}
}

func TestRegisterDuplicateTypeDoesNotDoubleCount(t *testing.T) {
	f := newFixture("Blood", "Urine")
	orderID := f.gate.order.ID

	if _, err := f.svc.Register(context.Background(), technician, orderID, RegisterInput{TypeName: "Blood"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	out, err := f.svc.Register(context.Background(), technician, orderID, RegisterInput{TypeName: "Blood"})
	if err != nil {
		t.Fatalf("register duplicate: %v", err)
	}
	if out.Sample.Code != "M-42-02" {
		t.Errorf("code: got %s, want M-42-02", out.Sample.Code)
	}
	if len(out.Missing) != 1 || out.Missing[0] != "Urine" {
		t.Errorf("missing: got %v, duplicate Blood must not count as Urine", out.Missing)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture("Blood")
	orderID := f.gate.order.ID

	if _, err := f.svc.Register(context.Background(), technician, orderID, RegisterInput{}); !apperr.IsValidation(err) {
		t.Errorf("empty type: expected validation error, got %v", err)
	}

	reception := auth.Actor{ID: uuid.New(), Role: auth.RoleReception}
	if _, err := f.svc.Register(context.Background(), reception, orderID, RegisterInput{TypeName: "Blood"}); !apperr.IsPermission(err) {
		t.Errorf("reception: expected permission error, got %v", err)
	}

	f.gate.order.Status = orders.StatusCancelled
	if _, err := f.svc.Register(context.Background(), technician, orderID, RegisterInput{TypeName: "Blood"}); !apperr.IsValidation(err) {
		t.Errorf("cancelled order: expected validation error, got %v", err)
	}
}

func TestStatusReport(t *testing.T) {
	f := newFixture("Blood", "Urine")
	orderID := f.gate.order.ID

	st, err := f.svc.Status(context.Background(), orderID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Complete {
		t.Error("expected incomplete before any samples")
	}
	if len(st.Missing) != 2 {
		t.Errorf("missing: got %v, want both types", st.Missing)
	}

	if _, err := f.svc.Register(context.Background(), technician, orderID, RegisterInput{TypeName: "Blood"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.Register(context.Background(), technician, orderID, RegisterInput{TypeName: "Urine"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	st, err = f.svc.Status(context.Background(), orderID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Complete {
		t.Error("expected complete after both types collected")
	}
	if len(st.Missing) != 0 {
		t.Errorf("missing: got %v, want none", st.Missing)
	}
}
