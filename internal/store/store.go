// Package store persists inference results and conversation history.
//
// Store is the primary abstraction. SQLiteStore is the default
// implementation using pure-Go SQLite (modernc.org/sqlite). The core
// pipelines never call the store; the HTTP layer persists around them.
package store

import (
	"context"

	"inferd/pkg/types"
)

// Result is the input to CreateResult. ID and creation time are assigned
// by the store.
type Result struct {
	// Type is one of: vision, text, chat, embedding.
	Type string
	// Name of the producing pipeline.
	Name string
	// Input is the raw or JSON-encoded request input.
	Input string
	// Result is the JSON-encoded outcome.
	Result string
	// Confidence is the pipeline's headline score for the result.
	Confidence float64
	// ProcessingTime in seconds.
	ProcessingTime float64
}

// Session is a persisted conversation session row.
type Session struct {
	SessionID string
	Summary   string
	TurnCount int
	CreatedAt int64
	UpdatedAt int64
}

// Message is one persisted conversation exchange.
type Message struct {
	ID             string
	SessionID      string
	Message        string
	Response       string
	SentimentScore float64
	CreatedAt      int64
}

// Store is the record-store interface consumed by the HTTP layer.
type Store interface {
	// CreateResult persists an inference result and returns its id.
	CreateResult(ctx context.Context, r Result) (string, error)

	// QueryResults returns recent results, newest first, optionally
	// filtered by type. limit <= 0 applies the store default.
	QueryResults(ctx context.Context, typeFilter string, limit int) ([]types.ResultRecord, error)

	// EnsureSession creates the session row if it does not exist.
	EnsureSession(ctx context.Context, sessionID string) error

	// AppendMessage persists one exchange and returns the message id.
	AppendMessage(ctx context.Context, sessionID, message, response string, sentimentScore float64) (string, error)

	// UpdateSession writes the session's turn count and summary.
	UpdateSession(ctx context.Context, sessionID string, turnCount int, summary string) error

	// GetSession returns the session row, or nil if it has never existed.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// ListMessages returns a session's exchanges in append order.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)

	// Close shuts down the store.
	Close() error
}
