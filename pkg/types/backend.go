package types

import (
	"context"
	"errors"
)

// Row is one result row keyed by storage column name. Values are the raw
// driver values: string or []byte for TEXT, int64 for INTEGER, float64 for
// REAL, nil for NULL.
type Row map[string]any

// ExecResult reports the effect of a mutating statement.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// Backend is a SQL engine reached through one uniform surface. Queries use
// positional $1, $2, ... placeholders; each backend binds them in order.
// Callers never interpolate values into SQL text.
type Backend interface {
	// Kind names the backend ("embedded" or "native").
	Kind() string

	// Init opens the engine and instantiates the schema. Errors are fatal
	// for the session and wrap ErrInitFailed.
	Init(ctx context.Context) error

	// Execute runs a mutating statement.
	Execute(ctx context.Context, query string, args ...any) (ExecResult, error)

	// Select runs a query and returns all rows.
	Select(ctx context.Context, query string, args ...any) ([]Row, error)

	// Flush returns once every mutation issued before the call is durable.
	Flush(ctx context.Context) error

	// Close flushes and releases the engine.
	Close(ctx context.Context) error
}

// Backend lifecycle errors.
var (
	ErrInitFailed        = errors.New("storage backend initialization failed")
	ErrNotInitialized    = errors.New("storage backend is not initialized")
	ErrClosed            = errors.New("storage backend is closed")
	ErrBridgeUnavailable = errors.New("native bridge is unavailable")
	ErrSchemaMissing     = errors.New("schema is missing")
)

// Backend kinds.
const (
	KindEmbedded = "embedded"
	KindNative   = "native"
)
