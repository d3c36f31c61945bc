package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/labadmin/labadmin/internal/domain/catalog"
	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository implements Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const orderColumns = `id, number, patient_id, contract_id, priority, delivery_method,
	status, payment_status, subtotal, discount_applied, tax, total, amount_paid,
	notes, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.PatientID, &o.ContractID, &o.Priority, &o.DeliveryMethod,
		&o.Status, &o.PaymentStatus, &o.Subtotal, &o.DiscountApplied, &o.Tax, &o.Total, &o.AmountPaid,
		&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	// number comes from the orders_number_seq default.
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO orders (id, patient_id, contract_id, priority, delivery_method,
			status, payment_status, subtotal, discount_applied, tax, total, amount_paid,
			notes, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING number`,
		o.ID, o.PatientID, o.ContractID, o.Priority, o.DeliveryMethod,
		o.Status, o.PaymentStatus, o.Subtotal, o.DiscountApplied, o.Tax, o.Total, o.AmountPaid,
		o.Notes, o.CreatedBy, o.CreatedAt, o.UpdatedAt).Scan(&o.Number)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("order %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("order %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) UpdateTotals(ctx context.Context, o *Order) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE orders SET subtotal = $2, discount_applied = $3, tax = $4, total = $5,
			amount_paid = $6, payment_status = $7, updated_at = $8
		 WHERE id = $1`,
		o.ID, o.Subtotal, o.DiscountApplied, o.Tax, o.Total,
		o.AmountPaid, o.PaymentStatus, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("order %s not found", o.ID)
	}
	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, o *Order) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE orders SET status = $2, payment_status = $3, updated_at = $4 WHERE id = $1`,
		o.ID, o.Status, o.PaymentStatus, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("order %s not found", o.ID)
	}
	return nil
}

func (r *PostgresRepository) UpdateContract(ctx context.Context, o *Order) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE orders SET contract_id = $2, updated_at = $3 WHERE id = $1`,
		o.ID, o.ContractID, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("order %s not found", o.ID)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Order, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0
	add := func(clause string, v any) {
		n++
		args = append(args, v)
		where += fmt.Sprintf(clause, n)
	}
	if f.PatientID != nil {
		add(` AND patient_id = $%d`, *f.PatientID)
	}
	if f.ContractID != nil {
		add(` AND contract_id = $%d`, *f.ContractID)
	}
	if f.Status != nil {
		add(` AND status = $%d`, *f.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where +
		fmt.Sprintf(` ORDER BY number DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]*Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// PostgresLineItemRepository implements LineItemRepository.
type PostgresLineItemRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresLineItemRepository(pool *pgxpool.Pool) *PostgresLineItemRepository {
	return &PostgresLineItemRepository{pool: pool}
}

func (r *PostgresLineItemRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PostgresLineItemRepository) Insert(ctx context.Context, li *LineItem) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO order_line_items (id, order_id, item_kind, item_id, code, name,
			list_price, discount_pct, price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		li.ID, li.OrderID, li.ItemKind, li.ItemID, li.Code, li.Name,
		li.ListPrice, li.DiscountPct, li.Price, li.CreatedAt)
	if db.IsUniqueViolation(err, "order_line_items_order_item_key") {
		return apperr.Conflictf(err, "item already on order")
	}
	if err != nil {
		return fmt.Errorf("insert line item: %w", err)
	}
	return nil
}

func (r *PostgresLineItemRepository) Update(ctx context.Context, li *LineItem) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE order_line_items SET code = $2, name = $3, list_price = $4,
			discount_pct = $5, price = $6
		 WHERE id = $1`,
		li.ID, li.Code, li.Name, li.ListPrice, li.DiscountPct, li.Price)
	if err != nil {
		return fmt.Errorf("update line item: %w", err)
	}
	return nil
}

func (r *PostgresLineItemRepository) Delete(ctx context.Context, orderID uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM order_line_items WHERE order_id = $1 AND item_kind = $2 AND item_id = $3`,
		orderID, kind, itemID)
	if err != nil {
		return fmt.Errorf("delete line item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("item %s not on order", itemID)
	}
	return nil
}

func (r *PostgresLineItemRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*LineItem, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, order_id, item_kind, item_id, code, name, list_price, discount_pct, price, created_at
		 FROM order_line_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	var out []*LineItem
	for rows.Next() {
		var li LineItem
		err := rows.Scan(&li.ID, &li.OrderID, &li.ItemKind, &li.ItemID, &li.Code, &li.Name,
			&li.ListPrice, &li.DiscountPct, &li.Price, &li.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		out = append(out, &li)
	}
	return out, rows.Err()
}

// PostgresPaymentRepository implements PaymentRepository.
type PostgresPaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPaymentRepository(pool *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{pool: pool}
}

func (r *PostgresPaymentRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PostgresPaymentRepository) Insert(ctx context.Context, p *Payment) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO payments (id, order_id, amount, method, reference, recorded_by, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.OrderID, p.Amount, p.Method, p.Reference, p.RecordedBy, p.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PostgresPaymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, order_id, amount, method, reference, recorded_by, recorded_at
		 FROM payments WHERE order_id = $1 ORDER BY recorded_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		var p Payment
		err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Reference, &p.RecordedBy, &p.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *PostgresPaymentRepository) SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1`, orderID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return sum, nil
}
