package contracts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labadmin/labadmin/internal/domain/catalog"
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

const contractColumns = `id, name, tax_id, contact_name, contact_email, payment_term_days,
	exam_discount_pct, package_discount_pct, active, created_at, updated_at`

func scanContract(row pgx.Row) (*Contract, error) {
	var c Contract
	err := row.Scan(&c.ID, &c.Name, &c.TaxID, &c.ContactName, &c.ContactEmail, &c.PaymentTermDays,
		&c.ExamDiscountPct, &c.PackageDiscountPct, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *Contract) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO contracts (id, name, tax_id, contact_name, contact_email, payment_term_days,
			exam_discount_pct, package_discount_pct, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.Name, c.TaxID, c.ContactName, c.ContactEmail, c.PaymentTermDays,
		c.ExamDiscountPct, c.PackageDiscountPct, c.Active, c.CreatedAt, c.UpdatedAt)
	if db.IsUniqueViolation(err, "") {
		return apperr.Conflictf(err, "contract %q already exists", c.Name)
	}
	if err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Contract, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("contract %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*Contract, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM contracts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contracts: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+contractColumns+` FROM contracts ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	out := make([]*Contract, 0, limit)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, c *Contract) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE contracts SET name = $2, tax_id = $3, contact_name = $4, contact_email = $5,
			payment_term_days = $6, exam_discount_pct = $7, package_discount_pct = $8,
			active = $9, updated_at = $10
		 WHERE id = $1`,
		c.ID, c.Name, c.TaxID, c.ContactName, c.ContactEmail, c.PaymentTermDays,
		c.ExamDiscountPct, c.PackageDiscountPct, c.Active, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("contract %s not found", c.ID)
	}
	return nil
}

func (r *PostgresRepository) GetOverride(ctx context.Context, contractID uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) (*Override, error) {
	var o Override
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, contract_id, item_kind, item_id, pct, created_at
		 FROM contract_discount_overrides
		 WHERE contract_id = $1 AND item_kind = $2 AND item_id = $3`,
		contractID, kind, itemID).
		Scan(&o.ID, &o.ContractID, &o.ItemKind, &o.ItemID, &o.Pct, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get override: %w", err)
	}
	return &o, nil
}

func (r *PostgresRepository) ListOverrides(ctx context.Context, contractID uuid.UUID) ([]*Override, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, contract_id, item_kind, item_id, pct, created_at
		 FROM contract_discount_overrides WHERE contract_id = $1 ORDER BY created_at`, contractID)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var out []*Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.ID, &o.ContractID, &o.ItemKind, &o.ItemID, &o.Pct, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpsertOverride(ctx context.Context, o *Override) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO contract_discount_overrides (id, contract_id, item_kind, item_id, pct, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (contract_id, item_kind, item_id)
		 DO UPDATE SET pct = EXCLUDED.pct`,
		o.ID, o.ContractID, o.ItemKind, o.ItemID, o.Pct, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteOverride(ctx context.Context, contractID uuid.UUID, kind catalog.ItemKind, itemID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM contract_discount_overrides
		 WHERE contract_id = $1 AND item_kind = $2 AND item_id = $3`,
		contractID, kind, itemID)
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("override for item %s not found", itemID)
	}
	return nil
}
