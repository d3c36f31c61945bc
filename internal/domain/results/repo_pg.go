package results

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

const resultColumns = `id, order_id, status, observations, submitted_by, submitted_at,
	validated_by, validated_at, created_at, updated_at`

func scanResult(row pgx.Row) (*Result, error) {
	var res Result
	err := row.Scan(&res.ID, &res.OrderID, &res.Status, &res.Observations,
		&res.SubmittedBy, &res.SubmittedAt, &res.ValidatedBy, &res.ValidatedAt,
		&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *PostgresRepository) Create(ctx context.Context, res *Result) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO results (id, order_id, status, observations, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		res.ID, res.OrderID, res.Status, res.Observations, res.CreatedAt, res.UpdatedAt)
	if db.IsUniqueViolation(err, "results_order_id_key") {
		return apperr.Conflictf(err, "order %s already has a result", res.OrderID)
	}
	if err != nil {
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

func (r *PostgresRepository) getByOrder(ctx context.Context, orderID uuid.UUID, lock string) (*Result, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results WHERE order_id = $1`+lock, orderID)
	res, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("no result for order %s", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) GetByOrder(ctx context.Context, orderID uuid.UUID) (*Result, error) {
	return r.getByOrder(ctx, orderID, "")
}

func (r *PostgresRepository) GetByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*Result, error) {
	return r.getByOrder(ctx, orderID, " FOR UPDATE")
}

func (r *PostgresRepository) Update(ctx context.Context, res *Result) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE results SET status = $2, observations = $3, submitted_by = $4, submitted_at = $5,
			validated_by = $6, validated_at = $7, updated_at = $8
		 WHERE id = $1`,
		res.ID, res.Status, res.Observations, res.SubmittedBy, res.SubmittedAt,
		res.ValidatedBy, res.ValidatedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("result %s not found", res.ID)
	}
	return nil
}

func (r *PostgresRepository) UpsertDetail(ctx context.Context, d *Detail) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO result_details (id, result_id, parameter_id, value, entered_by, entered_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (result_id, parameter_id)
		 DO UPDATE SET value = EXCLUDED.value, entered_by = EXCLUDED.entered_by, entered_at = EXCLUDED.entered_at`,
		d.ID, d.ResultID, d.ParameterID, d.Value, d.EnteredBy, d.EnteredAt)
	if err != nil {
		return fmt.Errorf("upsert result detail: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteDetail(ctx context.Context, resultID, parameterID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM result_details WHERE result_id = $1 AND parameter_id = $2`,
		resultID, parameterID)
	if err != nil {
		return fmt.Errorf("delete result detail: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListDetails(ctx context.Context, resultID uuid.UUID) ([]*Detail, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, result_id, parameter_id, value, entered_by, entered_at
		 FROM result_details WHERE result_id = $1 ORDER BY entered_at`, resultID)
	if err != nil {
		return nil, fmt.Errorf("list result details: %w", err)
	}
	defer rows.Close()

	var out []*Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.ResultID, &d.ParameterID, &d.Value, &d.EnteredBy, &d.EnteredAt); err != nil {
			return nil, fmt.Errorf("scan result detail: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
