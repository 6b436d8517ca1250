package mirror

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryMirror is an in-memory Mirror for tests and offline use.
//
// Rows use the same 1-based, header-offset indexing as the real sheet so
// orchestrator code behaves identically against either implementation.
type MemoryMirror struct {
	mu   sync.Mutex
	rows []Row

	// FailWith, when set, makes every operation return that error.
	// Lets tests simulate auth and network failures.
	FailWith error
}

// NewMemoryMirror creates an empty in-memory mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

// Seed replaces the mirror contents with the given rows, assigning
// spreadsheet-style indexes starting at 2.
func (m *MemoryMirror) Seed(rows []Row) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = make([]Row, len(rows))
	copy(m.rows, rows)
	for i := range m.rows {
		m.rows[i].Index = i + 2
	}
}

// Rows returns a copy of all data rows.
func (m *MemoryMirror) Rows(ctx context.Context) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}

	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

// Append adds a new pre-synced row at the bottom.
func (m *MemoryMirror) Append(ctx context.Context, title, content string, timestamp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}

	m.rows = append(m.rows, Row{
		Index:     len(m.rows) + 2,
		Timestamp: timestamp.UTC().Format(time.RFC3339),
		Title:     title,
		Content:   content,
		Synced:    true,
	})
	return nil
}

// MarkSynced sets the synced marker on the row with the given index.
func (m *MemoryMirror) MarkSynced(ctx context.Context, rowIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}

	for i := range m.rows {
		if m.rows[i].Index == rowIndex {
			m.rows[i].Synced = true
			return nil
		}
	}
	return fmt.Errorf("no row with index %d", rowIndex)
}
