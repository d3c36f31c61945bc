package catalog

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

// PostgresRepository implements Repository on the shared pool, honoring a
// transaction carried in the context.
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

const examColumns = `id, code, name, category, sample_type, method, price, active, created_at`

func scanExam(row pgx.Row) (*Exam, error) {
	var e Exam
	err := row.Scan(&e.ID, &e.Code, &e.Name, &e.Category, &e.SampleType, &e.Method, &e.Price, &e.Active, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PostgresRepository) GetExam(ctx context.Context, id uuid.UUID) (*Exam, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id)
	e, err := scanExam(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("exam %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) ListExams(ctx context.Context, limit, offset int) ([]*Exam, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM exams`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+examColumns+` FROM exams ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	exams := make([]*Exam, 0, limit)
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

const packageColumns = `id, name, description, price, active, created_at`

func scanPackage(row pgx.Row) (*Package, error) {
	var p Package
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) GetPackage(ctx context.Context, id uuid.UUID) (*Package, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)
	p, err := scanPackage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("package %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get package: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListPackages(ctx context.Context, limit, offset int) ([]*Package, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM packages`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count packages: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+packageColumns+` FROM packages ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	pkgs := make([]*Package, 0, limit)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan package: %w", err)
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, total, rows.Err()
}

func (r *PostgresRepository) PackageExams(ctx context.Context, packageID uuid.UUID) ([]*Exam, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT e.id, e.code, e.name, e.category, e.sample_type, e.method, e.price, e.active, e.created_at
		 FROM package_exams pe
		 JOIN exams e ON e.id = pe.exam_id
		 WHERE pe.package_id = $1
		 ORDER BY pe.position`, packageID)
	if err != nil {
		return nil, fmt.Errorf("package exams: %w", err)
	}
	defer rows.Close()

	var exams []*Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package exam: %w", err)
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

func (r *PostgresRepository) ParametersByExam(ctx context.Context, examID uuid.UUID) ([]*Parameter, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, exam_id, name, unit, reference_range, position
		 FROM exam_parameters WHERE exam_id = $1 ORDER BY position`, examID)
	if err != nil {
		return nil, fmt.Errorf("exam parameters: %w", err)
	}
	defer rows.Close()

	var params []*Parameter
	for rows.Next() {
		var p Parameter
		if err := rows.Scan(&p.ID, &p.ExamID, &p.Name, &p.Unit, &p.ReferenceRange, &p.Position); err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		params = append(params, &p)
	}
	return params, rows.Err()
}

func (r *PostgresRepository) GetParameter(ctx context.Context, id uuid.UUID) (*Parameter, error) {
	var p Parameter
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, exam_id, name, unit, reference_range, position
		 FROM exam_parameters WHERE id = $1`, id).
		Scan(&p.ID, &p.ExamID, &p.Name, &p.Unit, &p.ReferenceRange, &p.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("parameter %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get parameter: %w", err)
	}
	return &p, nil
}
