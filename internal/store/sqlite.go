package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"inferd/pkg/types"
)

// defaultQueryLimit bounds QueryResults when the caller passes limit <= 0.
const defaultQueryLimit = 50

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed store.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id              TEXT PRIMARY KEY,
		type            TEXT NOT NULL,
		name            TEXT NOT NULL,
		input           TEXT NOT NULL,
		result          TEXT NOT NULL,
		confidence      REAL,
		processing_time REAL NOT NULL,
		created_at      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS results_type_created ON results(type, created_at);
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		summary    TEXT NOT NULL DEFAULT '',
		turn_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL,
		message         TEXT NOT NULL,
		response        TEXT NOT NULL,
		sentiment_score REAL,
		created_at      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS messages_session ON messages(session_id, created_at);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// CreateResult persists an inference result and returns its id.
func (s *SQLiteStore) CreateResult(ctx context.Context, r Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (id, type, name, input, result, confidence, processing_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.Type, r.Name, r.Input, r.Result, r.Confidence, r.ProcessingTime, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("create result: %w", err)
	}
	return id, nil
}

// QueryResults returns recent results, newest first.
func (s *SQLiteStore) QueryResults(ctx context.Context, typeFilter string, limit int) ([]types.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultQueryLimit
	}
	query := `SELECT id, type, name, input, result, confidence, processing_time, created_at
		FROM results`
	args := []any{}
	if typeFilter != "" {
		query += " WHERE type = ?"
		args = append(args, typeFilter)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []types.ResultRecord
	for rows.Next() {
		var rec types.ResultRecord
		var conf sql.NullFloat64
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Name, &rec.Input, &rec.Result,
			&conf, &rec.ProcessingTime, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if conf.Valid {
			rec.Confidence = conf.Float64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EnsureSession creates the session row if it does not exist.
func (s *SQLiteStore) EnsureSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		sessionID, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensure session %q: %w", sessionID, err)
	}
	return nil
}

// AppendMessage persists one exchange.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID, message, response string, sentimentScore float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, message, response, sentiment_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, sessionID, message, response, sentimentScore, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("append message: %w", err)
	}
	return id, nil
}

// UpdateSession writes turn count and summary.
func (s *SQLiteStore) UpdateSession(ctx context.Context, sessionID string, turnCount int, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET turn_count = ?, summary = ?, updated_at = ? WHERE session_id = ?`,
		turnCount, summary, time.Now().Unix(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("update session %q: %w", sessionID, err)
	}
	return nil
}

// GetSession returns the session row, or nil if not found.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, summary, turn_count, created_at, updated_at FROM sessions WHERE session_id = ?`,
		sessionID,
	).Scan(&sess.SessionID, &sess.Summary, &sess.TurnCount, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %q: %w", sessionID, err)
	}
	return &sess, nil
}

// ListMessages returns a session's exchanges in append order.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, message, response, sentiment_score, created_at
		 FROM messages WHERE session_id = ? ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var score sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Message, &m.Response, &score, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if score.Valid {
			m.SentimentScore = score.Float64
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close shuts down the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
