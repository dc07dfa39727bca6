package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

// CatalogRepository stores the regulation catalog: one row per
// faculty/program/course triple with its document lifecycle state.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/indexer startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS regulations (
	id TEXT PRIMARY KEY,
	faculty TEXT NOT NULL,
	program_type TEXT NOT NULL,
	course TEXT NOT NULL,
	filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (faculty, program_type, course)
);

CREATE INDEX IF NOT EXISTS idx_regulations_status ON regulations(status);
CREATE INDEX IF NOT EXISTS idx_regulations_catalog ON regulations(faculty, program_type);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CatalogRepository) Create(ctx context.Context, doc *domain.RegulationDocument) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO regulations (
	id, faculty, program_type, course, filename, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (faculty, program_type, course) DO UPDATE
SET id = EXCLUDED.id,
	filename = EXCLUDED.filename,
	storage_path = EXCLUDED.storage_path,
	status = EXCLUDED.status,
	error_message = EXCLUDED.error_message,
	updated_at = EXCLUDED.updated_at
`,
		doc.ID, doc.Faculty, doc.ProgramType, doc.Course, doc.Filename, doc.StoragePath,
		string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert regulation: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*domain.RegulationDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, faculty, program_type, course, filename, storage_path, status, error_message, created_at, updated_at
FROM regulations
WHERE id = $1
`, id)
	return scanRegulation(row, id)
}

func (r *CatalogRepository) GetCourse(ctx context.Context, faculty, programType, course string) (*domain.RegulationDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, faculty, program_type, course, filename, storage_path, status, error_message, created_at, updated_at
FROM regulations
WHERE faculty = $1 AND program_type = $2 AND course = $3
`, faculty, programType, course)
	return scanRegulation(row, course)
}

func (r *CatalogRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE regulations
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update regulation status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update regulation status affected rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "update regulation status", errors.New(id))
	}
	return nil
}

func (r *CatalogRepository) ListFaculties(ctx context.Context) ([]string, error) {
	return r.listStrings(ctx, `
SELECT DISTINCT faculty FROM regulations ORDER BY faculty
`)
}

func (r *CatalogRepository) ListProgramTypes(ctx context.Context, faculty string) ([]string, error) {
	return r.listStrings(ctx, `
SELECT DISTINCT program_type FROM regulations WHERE faculty = $1 ORDER BY program_type
`, faculty)
}

func (r *CatalogRepository) ListCourses(ctx context.Context, faculty, programType string) ([]domain.RegulationDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, faculty, program_type, course, filename, storage_path, status, error_message, created_at, updated_at
FROM regulations
WHERE faculty = $1 AND program_type = $2
ORDER BY course
`, faculty, programType)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var out []domain.RegulationDocument
	for rows.Next() {
		var doc domain.RegulationDocument
		var status string
		if err := rows.Scan(
			&doc.ID, &doc.Faculty, &doc.ProgramType, &doc.Course, &doc.Filename,
			&doc.StoragePath, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan course row: %w", err)
		}
		doc.Status = domain.DocumentStatus(status)
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course rows: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) listStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list catalog values: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan catalog value: %w", err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog values: %w", err)
	}
	return out, nil
}

func scanRegulation(row *sql.Row, key string) (*domain.RegulationDocument, error) {
	var doc domain.RegulationDocument
	var status string

	err := row.Scan(
		&doc.ID, &doc.Faculty, &doc.ProgramType, &doc.Course, &doc.Filename,
		&doc.StoragePath, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get regulation", errors.New(key))
		}
		return nil, fmt.Errorf("scan regulation: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}
