package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID string, t Turn) (int64, error) {
	var snippetsJSON *string
	if len(t.Snippets) > 0 {
		data, _ := json.Marshal(t.Snippets)
		str := string(data)
		snippetsJSON = &str
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, snippets) VALUES (?, ?, ?, ?)`,
		sessionID, t.Role, t.Content, snippetsJSON,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, snippets, created_at FROM (
			SELECT id, role, content, snippets, created_at
			FROM turns WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) sub ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTurns(rows)
}

func (s *SQLiteStore) TurnsAfter(ctx context.Context, sessionID string, afterID int64) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, snippets, created_at
		 FROM turns WHERE session_id = ? AND id > ? ORDER BY id ASC`,
		sessionID, afterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTurns(rows)
}

func (s *SQLiteStore) TurnCount(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE session_id = ?`, sessionID,
	).Scan(&n)
	return n, err
}

func (s *SQLiteStore) LastTurnID(ctx context.Context, sessionID string) (int64, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(id) FROM turns WHERE session_id = ?`, sessionID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id.Int64, nil
}

func (s *SQLiteStore) Summary(ctx context.Context, sessionID string) (*MemorySummary, error) {
	var sum MemorySummary
	err := s.db.QueryRowContext(ctx,
		`SELECT summary, boundary, updated_at FROM summaries WHERE session_id = ?`,
		sessionID,
	).Scan(&sum.Text, &sum.Boundary, &sum.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *SQLiteStore) ReplaceSummary(ctx context.Context, sessionID string, sum MemorySummary) error {
	updatedAt := sum.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (session_id, summary, boundary, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET summary = excluded.summary,
		 boundary = excluded.boundary, updated_at = excluded.updated_at`,
		sessionID, sum.Text, sum.Boundary, updatedAt,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanTurns(rows *sql.Rows) ([]Turn, error) {
	var turns []Turn
	for rows.Next() {
		var t Turn
		var snippetsJSON sql.NullString

		if err := rows.Scan(&t.ID, &t.Role, &t.Content, &snippetsJSON, &t.CreatedAt); err != nil {
			return nil, err
		}
		if snippetsJSON.Valid {
			_ = json.Unmarshal([]byte(snippetsJSON.String), &t.Snippets)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
