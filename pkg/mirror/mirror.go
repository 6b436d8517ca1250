// Package mirror abstracts the remote spreadsheet that mirrors the thought
// graph for capture-on-the-go.
//
// The mirror is a flat, append-only view: one row per thought, with a
// synced marker column the orchestrator uses to avoid importing the same
// row twice. The graph store remains the source of truth; the mirror is a
// convenient inbox and backup, never authoritative.
package mirror

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAuth indicates the remote rejected our credentials (401/403).
	ErrAuth = errors.New("mirror authentication failed")

	// ErrNetwork indicates a transport-level failure reaching the remote.
	ErrNetwork = errors.New("mirror unreachable")

	// ErrNotConfigured indicates the mirror has no spreadsheet to talk to.
	ErrNotConfigured = errors.New("mirror not configured")
)

// Row is one spreadsheet row holding a captured thought.
type Row struct {
	// Index is the 1-based spreadsheet row number, header included.
	// Data rows therefore start at 2.
	Index int

	Timestamp string
	Title     string
	Content   string

	// Synced marks rows the graph has already imported.
	Synced bool
}

// Mirror is the remote spreadsheet surface the sync orchestrator talks to.
//
// Implementations must be safe for concurrent use.
type Mirror interface {
	// Rows fetches all data rows, skipping the header.
	Rows(ctx context.Context) ([]Row, error)

	// Append adds a new row. Rows written by the app are marked synced
	// immediately since the graph already has them.
	Append(ctx context.Context, title, content string, timestamp time.Time) error

	// MarkSynced sets the synced marker on an existing row.
	MarkSynced(ctx context.Context, rowIndex int) error
}
