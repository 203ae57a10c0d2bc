package reqlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"palaver/internal/security"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		request TEXT NOT NULL,
		response TEXT,
		error TEXT,
		latency_ms INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_session_id ON requests(session_id, created_at)`,
}

// SQLiteRecorder implements Recorder using an append-only SQLite table.
// Payloads pass through the PII sanitizer before they hit disk.
type SQLiteRecorder struct {
	db        *sql.DB
	sanitizer *security.Sanitizer
}

// NewSQLiteRecorder opens (or creates) the request log database.
// sanitizer may be nil to persist payloads as-is.
func NewSQLiteRecorder(dbPath string, sanitizer *security.Sanitizer) (*SQLiteRecorder, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &SQLiteRecorder{db: db, sanitizer: sanitizer}, nil
}

func (r *SQLiteRecorder) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	reqJSON, err := json.Marshal(e.Request)
	if err != nil {
		return err
	}

	var respJSON *string
	if e.Response != nil {
		data, err := json.Marshal(e.Response)
		if err != nil {
			return err
		}
		str := r.scrub(string(data))
		respJSON = &str
	}

	var errText *string
	if e.ErrText != "" {
		errText = &e.ErrText
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO requests (id, session_id, request, response, error, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, r.scrub(string(reqJSON)), respJSON, errText,
		e.Latency.Milliseconds(), e.CreatedAt,
	)
	return err
}

// Entries returns logged exchanges for a session, oldest first.
func (r *SQLiteRecorder) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, request, response, error, latency_ms, created_at
		 FROM requests WHERE session_id = ? ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var reqJSON string
		var respJSON, errText sql.NullString
		var latencyMs int64

		if err := rows.Scan(&e.ID, &e.SessionID, &reqJSON, &respJSON, &errText, &latencyMs, &e.CreatedAt); err != nil {
			return nil, err
		}

		_ = json.Unmarshal([]byte(reqJSON), &e.Request)
		if respJSON.Valid {
			_ = json.Unmarshal([]byte(respJSON.String), &e.Response)
		}
		if errText.Valid {
			e.ErrText = errText.String
		}
		e.Latency = time.Duration(latencyMs) * time.Millisecond

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func (r *SQLiteRecorder) scrub(s string) string {
	if r.sanitizer == nil {
		return s
	}
	return r.sanitizer.Sanitize(s)
}
