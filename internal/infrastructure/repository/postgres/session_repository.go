package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

// SessionRepository stores sessions and their append-only transcripts.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082902)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	faculty TEXT NOT NULL,
	program_type TEXT NOT NULL,
	course TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_turns (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, faculty, program_type, course, source, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		session.ID, session.Faculty, session.ProgramType, session.Course,
		session.Source, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, faculty, program_type, course, source, created_at, updated_at
FROM sessions
WHERE id = $1
`, id)

	var session domain.Session
	err := row.Scan(
		&session.ID, &session.Faculty, &session.ProgramType, &session.Course,
		&session.Source, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get session", errors.New(id))
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &session, nil
}

// ResetSession rebinds the session to a new regulation and wipes the
// transcript in the same transaction.
func (r *SessionRepository) ResetSession(ctx context.Context, session *domain.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
UPDATE sessions
SET faculty = $2, program_type = $3, course = $4, source = $5, updated_at = $6
WHERE id = $1
`,
		session.ID, session.Faculty, session.ProgramType, session.Course,
		session.Source, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session selection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session affected rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "reset session", errors.New(session.ID))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_turns WHERE session_id = $1`, session.ID); err != nil {
		return fmt.Errorf("delete session turns: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) AppendTurn(ctx context.Context, sessionID string, role domain.Role, content string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO session_turns (session_id, seq, role, content, created_at)
SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4
FROM session_turns
WHERE session_id = $1
`, sessionID, string(role), content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append session turn: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT seq, role, content, created_at
FROM session_turns
WHERE session_id = $1
ORDER BY seq ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session turns: %w", err)
	}
	return collectTurns(rows)
}

func (r *SessionRepository) ListRecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT seq, role, content, created_at
FROM session_turns
WHERE session_id = $1
ORDER BY seq DESC
LIMIT $2
`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent session turns: %w", err)
	}
	turns, err := collectTurns(rows)
	if err != nil {
		return nil, err
	}

	// Returned in descending order from SQL; reverse to keep chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func collectTurns(rows *sql.Rows) ([]domain.Turn, error) {
	defer rows.Close()

	var out []domain.Turn
	for rows.Next() {
		var turn domain.Turn
		var role string
		if err := rows.Scan(&turn.Seq, &role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session turn: %w", err)
		}
		turn.Role = domain.Role(role)
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session turns: %w", err)
	}
	return out, nil
}
