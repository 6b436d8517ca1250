package thoughtdb

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mindcanvas/thoughtdb/pkg/embed"
	"github.com/mindcanvas/thoughtdb/pkg/mirror"
)

// PullResult reports what a SyncFromRemote pass did.
type PullResult struct {
	// Imported is the number of new thoughts created locally.
	Imported int
	// TotalSeen is the number of data rows the remote returned.
	TotalSeen int
}

// PushResult reports what a SyncToRemote pass did.
type PushResult struct {
	// Exported is the number of thoughts appended to the remote.
	Exported int
}

// SyncFromRemote imports unsynced rows from the remote mirror as thoughts.
//
// Rows are deduplicated against the local graph by content hash, so a row
// whose text already exists locally is only marked synced, never imported
// twice. Each row is marked synced on the remote only after the local
// write committed; a crash in between re-imports nothing (the hash check
// catches it) but may mark the row on a later pass. Only one sync may run
// at a time per database.
func (db *DB) SyncFromRemote(ctx context.Context, m mirror.Mirror) (*PullResult, error) {
	if !db.syncMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer db.syncMu.Unlock()

	rows, err := m.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote rows: %w", err)
	}

	seen, err := db.localContentHashes()
	if err != nil {
		return nil, err
	}

	result := &PullResult{TotalSeen: len(rows)}
	for _, row := range rows {
		if row.Synced {
			continue
		}

		hash := embed.ContentHash(rowLabel(row), row.Content)
		if _, exists := seen[hash]; exists {
			// Already present locally, just close out the row.
			if err := m.MarkSynced(ctx, row.Index); err != nil {
				log.Printf("⚠️  Failed to mark row %d synced: %v", row.Index, err)
			}
			continue
		}

		if _, err := db.AddThought(ctx, rowLabel(row), row.Content, 0, 0); err != nil {
			return result, fmt.Errorf("failed to import row %d: %w", row.Index, err)
		}
		seen[hash] = struct{}{}
		result.Imported++

		if err := m.MarkSynced(ctx, row.Index); err != nil {
			// The thought is committed; the row will dedupe next pass.
			log.Printf("⚠️  Failed to mark row %d synced: %v", row.Index, err)
		}
	}

	fmt.Printf("✅ Pull complete: %d imported of %d remote rows\n", result.Imported, result.TotalSeen)
	return result, nil
}

// SyncToRemote appends local thoughts missing from the remote mirror.
//
// The remote's existing rows are hashed the same way local thoughts are,
// so pushing is idempotent: a second pass with no local changes appends
// nothing. Content is truncated to the configured preview length before
// upload; appended rows are born synced. Only one sync may run at a time
// per database.
func (db *DB) SyncToRemote(ctx context.Context, m mirror.Mirror) (*PushResult, error) {
	if !db.syncMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer db.syncMu.Unlock()

	rows, err := m.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote rows: %w", err)
	}

	remote := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		// Hash untitled rows under their synthesized label too, so a
		// thought imported from one is not pushed back as a new row
		remote[embed.ContentHash(row.Title, row.Content)] = struct{}{}
		remote[embed.ContentHash(rowLabel(row), row.Content)] = struct{}{}
	}

	nodes, err := db.storage.AllNodes()
	if err != nil {
		return nil, err
	}

	result := &PushResult{}
	for _, node := range nodes {
		// A thought pulled from the mirror keeps its full row content, so
		// it matches under the full hash; a thought pushed earlier exists
		// remotely only in truncated form and matches under the preview
		// hash. Check both or long thoughts bounce back as duplicates.
		preview := truncate(node.Content, db.config.Sync.PreviewLength)
		if _, exists := remote[embed.ContentHash(node.Label, preview)]; exists {
			continue
		}
		if _, exists := remote[embed.ContentHash(node.Label, node.Content)]; exists {
			continue
		}

		if err := m.Append(ctx, node.Label, preview, node.CreatedAt); err != nil {
			return result, fmt.Errorf("failed to append %q: %w", node.Label, err)
		}
		remote[embed.ContentHash(node.Label, preview)] = struct{}{}
		result.Exported++
	}

	fmt.Printf("✅ Push complete: %d exported of %d local thoughts\n", result.Exported, len(nodes))
	return result, nil
}

// localContentHashes builds the dedup set for pull passes. Hashes cover the
// full local content, and separately the preview-truncated form that pushes
// produce, so a thought pushed earlier is recognized when its row comes back.
func (db *DB) localContentHashes() (map[string]struct{}, error) {
	nodes, err := db.storage.AllNodes()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(nodes)*2)
	for _, node := range nodes {
		seen[embed.ContentHash(node.Label, node.Content)] = struct{}{}
		seen[embed.ContentHash(node.Label, truncate(node.Content, db.config.Sync.PreviewLength))] = struct{}{}
	}
	return seen, nil
}

// rowLabel picks a thought label for a remote row. Untitled rows fall back
// to a slice of their content so the thought still has a visible name.
func rowLabel(row mirror.Row) string {
	if strings.TrimSpace(row.Title) != "" {
		return row.Title
	}
	return truncate(row.Content, untitledLabelRunes)
}

// untitledLabelRunes caps the label synthesized for rows with no title.
const untitledLabelRunes = 80

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
