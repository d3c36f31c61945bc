package samples

import (
	"context"
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

func (r *PostgresRepository) Insert(ctx context.Context, s *Sample) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO samples (id, order_id, type_name, code, unexpected, notes, collected_by, collected_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.OrderID, s.TypeName, s.Code, s.Unexpected, s.Notes, s.CollectedBy, s.CollectedAt)
	if db.IsUniqueViolation(err, "samples_order_code_key") {
		return apperr.Conflictf(err, "sample code %s already taken", s.Code)
	}
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Sample, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, order_id, type_name, code, unexpected, notes, collected_by, collected_at
		 FROM samples WHERE order_id = $1 ORDER BY collected_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var out []*Sample
	for rows.Next() {
		var s Sample
		err := rows.Scan(&s.ID, &s.OrderID, &s.TypeName, &s.Code, &s.Unexpected, &s.Notes, &s.CollectedBy, &s.CollectedAt)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
