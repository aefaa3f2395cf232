package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/spigell/hh-interviewer/internal/interview"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps sessions in a SQLite database file. The full session
// state is stored as a JSON document next to a few queryable columns.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  candidate_name TEXT NOT NULL,
  job_title TEXT NOT NULL,
  role_key TEXT,
  status TEXT NOT NULL,
  total_questions INTEGER NOT NULL,
  overall_score REAL,
  state TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS sessions_updated_at ON sessions (updated_at)`); err != nil {
		return fmt.Errorf("create sessions index: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, candidate interview.Candidate, state *interview.Session) (string, error) {
	if state == nil {
		return "", errors.New("session state is required")
	}

	id := uuid.NewString()
	snap := state.Snapshot()
	snap.ID = id
	snap.Candidate = candidate

	if err := s.upsert(ctx, id, snap, StatusInProgress); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, id string, state *interview.Session, status Status) error {
	if id == "" {
		return errors.New("session id is required")
	}
	if state == nil {
		return errors.New("session state is required")
	}

	snap := state.Snapshot()
	snap.ID = id

	if err := s.upsert(ctx, id, snap, status); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) upsert(ctx context.Context, id string, state *interview.Session, status Status) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	var overall sql.NullFloat64
	if state.Summary != nil {
		overall = sql.NullFloat64{Float64: state.Summary.OverallScore, Valid: true}
	}

	ts := now().Format(timeLayout)

	const stmt = `
INSERT INTO sessions (id, candidate_name, job_title, role_key, status, total_questions, overall_score, state, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  candidate_name=excluded.candidate_name,
  job_title=excluded.job_title,
  role_key=excluded.role_key,
  status=excluded.status,
  total_questions=excluded.total_questions,
  overall_score=excluded.overall_score,
  state=excluded.state,
  updated_at=excluded.updated_at;
`
	_, err = s.db.ExecContext(ctx, stmt,
		id,
		state.Candidate.Name,
		state.Candidate.JobTitle,
		state.Candidate.RoleKey,
		string(status),
		state.QuestionCount(),
		overall,
		string(payload),
		ts,
		ts,
	)
	return err
}

const selectColumns = `SELECT id, status, total_questions, state, created_at, updated_at FROM sessions`

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]*Record, error) {
	query := selectColumns + ` ORDER BY updated_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return result, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec                  Record
		status               string
		payload              string
		createdAt, updatedAt string
	)

	if err := row.Scan(&rec.ID, &status, &rec.TotalQuestions, &payload, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var state interview.Session
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	rec.Status = Status(status)
	rec.State = &state
	rec.Candidate = state.Candidate

	var err error
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &rec, nil
}
