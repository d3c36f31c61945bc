package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

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

const invoiceColumns = `id, order_id, number, target, customer_name, customer_document,
	subtotal, discount, tax, total, notes, issued_by, issued_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.OrderID, &inv.Number, &inv.Target, &inv.CustomerName, &inv.CustomerDocument,
		&inv.Subtotal, &inv.Discount, &inv.Tax, &inv.Total, &inv.Notes, &inv.IssuedBy, &inv.IssuedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *PostgresRepository) Create(ctx context.Context, inv *Invoice) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO invoices (id, order_id, number, target, customer_name, customer_document,
			subtotal, discount, tax, total, notes, issued_by, issued_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		inv.ID, inv.OrderID, inv.Number, inv.Target, inv.CustomerName, inv.CustomerDocument,
		inv.Subtotal, inv.Discount, inv.Tax, inv.Total, inv.Notes, inv.IssuedBy, inv.IssuedAt)
	if db.IsUniqueViolation(err, "invoices_order_id_key") {
		return apperr.Conflictf(err, "order %s already invoiced", inv.OrderID)
	}
	if db.IsUniqueViolation(err, "invoices_number_key") {
		return apperr.Conflictf(err, "invoice number %s already taken", inv.Number)
	}
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("invoice %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) GetByOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1`, orderID)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("no invoice for order %s", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice by order: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE number = $1`, number)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("invoice %s not found", number)
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice by number: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*Invoice, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY issued_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	out := make([]*Invoice, 0, limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

// NextSequence relies on the upsert locking the counter row: concurrent
// issues on the same prefix serialize here and each sees a distinct
// value.
func (r *PostgresRepository) NextSequence(ctx context.Context, prefix string) (int64, error) {
	var next int64
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO invoice_sequences (prefix, last_value)
		 VALUES ($1, 1)
		 ON CONFLICT (prefix)
		 DO UPDATE SET last_value = invoice_sequences.last_value + 1
		 RETURNING last_value`, prefix).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next invoice sequence: %w", err)
	}
	return next, nil
}
