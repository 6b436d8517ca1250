// Package thoughtdb provides the main API for the personal thought graph.
//
// A thought graph is a set of positioned nodes ("thoughts") connected by
// edges, stored durably on disk and mirrored into an ephemeral in-memory
// search index. The search index is rebuilt at session start from storage
// and kept current as thoughts change; losing it never loses data.
//
// Key Features:
//   - Durable node/edge storage (BadgerDB) with cascade delete
//   - Lazy embedding generation with content-hash staleness detection
//   - Semantic and keyword search over the session index
//   - Spreadsheet mirror sync for capture-on-the-go
//   - Retrieval-augmented chat grounded in the user's own thoughts
//
// Example Usage:
//
//	db, err := thoughtdb.Open("./data", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	// Rebuild the session index (lazy-embeds anything stale)
//	stats, err := db.LoadData(ctx)
//	fmt.Printf("loaded %d thoughts, %d embedded\n", stats.Thoughts, stats.Embedded)
//
//	// Capture a thought
//	node, err := db.AddThought(ctx, "Spaced repetition",
//		"Review intervals should grow exponentially", 120, 80)
//
//	// Find it again by meaning
//	results, err := db.Search(ctx, "memory techniques", 5)
package thoughtdb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mindcanvas/thoughtdb/pkg/config"
	"github.com/mindcanvas/thoughtdb/pkg/embed"
	"github.com/mindcanvas/thoughtdb/pkg/llm"
	"github.com/mindcanvas/thoughtdb/pkg/search"
	"github.com/mindcanvas/thoughtdb/pkg/storage"
)

var (
	// ErrSyncInProgress is returned when a sync is requested while
	// another sync against the same mirror is still running.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrNoContext is returned by retrieval-augmented operations when no
	// thought is similar enough to ground an answer.
	ErrNoContext = errors.New("no relevant thoughts found")

	// ErrNoEmbedding is returned by RelatedTo when the anchor thought has
	// no usable embedding yet.
	ErrNoEmbedding = errors.New("thought has no embedding yet")
)

// Default retrieval parameters, matching the interactive UI behavior:
// a tight floor for explicit searches, a loose one for browsing neighbors.
const (
	DefaultSearchLimit  = 5
	DefaultSearchFloor  = 0.8
	DefaultRelatedFloor = 0.1
	defaultThoughtType  = "thought"
)

// DB is the thought graph database handle.
//
// All methods are safe for concurrent use.
type DB struct {
	config *config.Config

	storage   storage.Engine
	embedder  embed.Embedder
	generator llm.Generator
	index     *search.Index

	syncMu sync.Mutex // serializes mirror syncs
}

// Open opens (or creates) a thought graph at dataDir.
//
// An empty dataDir opens a volatile in-memory graph, useful for tests and
// scratch sessions. If cfg is nil, config.Default() is used. The embedding
// and generation providers are constructed from the config; tests can
// replace them with SetEmbedder and SetGenerator.
//
// Open returns quickly; call LoadData to build the session index before
// querying.
func Open(dataDir string, cfg *config.Config) (*DB, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db := &DB{config: cfg}

	if dataDir != "" {
		engine, err := storage.NewBadgerEngine(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open persistent storage: %w", err)
		}
		db.storage = engine
		fmt.Printf("📂 Using persistent storage at %s\n", dataDir)
	} else {
		db.storage = storage.NewMemoryEngine()
		fmt.Println("⚠️  Using in-memory storage (data will not persist)")
	}

	base := embed.NewOllama(&embed.Config{
		APIURL:     cfg.Embedding.APIURL,
		APIPath:    "/api/embeddings",
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	})
	db.embedder = embed.NewCachedEmbedder(base, cfg.Embedding.CacheSize)

	db.generator = llm.NewOllamaGenerator(&llm.Config{
		APIURL:  cfg.Embedding.APIURL,
		APIPath: "/api/generate",
		Model:   cfg.Generation.Model,
		Timeout: cfg.Generation.Timeout,
	})

	db.index = search.NewIndex(cfg.Embedding.Dimensions)
	return db, nil
}

// SetEmbedder replaces the embedding provider. Intended for tests and for
// callers that bring their own embedder.
func (db *DB) SetEmbedder(embedder embed.Embedder) {
	if embedder != nil {
		db.embedder = embedder
	}
}

// SetGenerator replaces the generation provider.
func (db *DB) SetGenerator(gen llm.Generator) {
	if gen != nil {
		db.generator = gen
	}
}

// Storage exposes the underlying engine for import/export tooling.
func (db *DB) Storage() storage.Engine {
	return db.storage
}

// Close flushes and closes the underlying storage.
func (db *DB) Close() error {
	return db.storage.Close()
}

// ============================================================================
// Mutations
// ============================================================================

// AddThought creates a new thought at the given canvas position.
//
// The embedding is computed immediately when the provider is reachable;
// otherwise the thought is stored unembedded and picked up by the next
// LoadData pass. The thought is inserted into the session index when the
// index is ready.
func (db *DB) AddThought(ctx context.Context, label, content string, x, y float64, tags ...string) (*storage.Node, error) {
	if strings.TrimSpace(label) == "" {
		return nil, fmt.Errorf("thought label must not be empty")
	}

	now := time.Now()
	node := &storage.Node{
		ID:        storage.NodeID(uuid.NewString()),
		Type:      defaultThoughtType,
		Position:  storage.Position{X: x, Y: y},
		Label:     label,
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	db.ensureEmbedding(ctx, node)

	if err := db.storage.CreateNode(node); err != nil {
		return nil, fmt.Errorf("failed to store thought: %w", err)
	}

	db.indexThought(node)
	return node, nil
}

// GetThought retrieves a thought by ID.
func (db *DB) GetThought(ctx context.Context, id storage.NodeID) (*storage.Node, error) {
	return db.storage.GetNode(id)
}

// Thoughts returns all thoughts in the graph.
func (db *DB) Thoughts(ctx context.Context) ([]*storage.Node, error) {
	return db.storage.AllNodes()
}

// Connections returns all edges in the graph.
func (db *DB) Connections(ctx context.Context) ([]*storage.Edge, error) {
	return db.storage.AllEdges()
}

// FilterByTags returns the thoughts carrying at least one of the given tags.
// An empty tag list matches everything.
func FilterByTags(nodes []*storage.Node, tags []string) []*storage.Node {
	if len(tags) == 0 {
		return nodes
	}

	want := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		want[tag] = struct{}{}
	}

	var filtered []*storage.Node
	for _, node := range nodes {
		for _, tag := range node.Tags {
			if _, ok := want[tag]; ok {
				filtered = append(filtered, node)
				break
			}
		}
	}
	return filtered
}

// UpdateThought changes a thought's label, content, and tags.
//
// The content hash is recomputed, so a changed text gets a fresh embedding
// (immediately if the provider is up, otherwise at the next LoadData).
func (db *DB) UpdateThought(ctx context.Context, id storage.NodeID, label, content string, tags ...string) (*storage.Node, error) {
	node, err := db.storage.GetNode(id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(label) == "" {
		return nil, fmt.Errorf("thought label must not be empty")
	}

	node.Label = label
	node.Content = content
	node.Tags = tags
	node.UpdatedAt = time.Now()

	// Invalidate the cached embedding; ensureEmbedding recomputes from
	// the new text
	node.ContentHash = ""
	node.Embedding = nil
	db.ensureEmbedding(ctx, node)

	if err := db.storage.UpdateNode(node); err != nil {
		return nil, fmt.Errorf("failed to update thought: %w", err)
	}

	db.indexThought(node)
	return node, nil
}

// MoveThought changes a thought's canvas position only. The embedding and
// its content hash are untouched: position is not meaning.
func (db *DB) MoveThought(ctx context.Context, id storage.NodeID, x, y float64) (*storage.Node, error) {
	node, err := db.storage.GetNode(id)
	if err != nil {
		return nil, err
	}

	node.Position = storage.Position{X: x, Y: y}
	node.UpdatedAt = time.Now()

	if err := db.storage.UpdateNode(node); err != nil {
		return nil, fmt.Errorf("failed to move thought: %w", err)
	}
	return node, nil
}

// DeleteThought removes a thought and every edge touching it, from both
// durable storage and the session index.
func (db *DB) DeleteThought(ctx context.Context, id storage.NodeID) error {
	if err := db.storage.DeleteNode(id); err != nil {
		return err
	}
	if db.index.Ready() {
		_ = db.index.Remove(string(id))
	}
	return nil
}

// Connect creates a directed edge between two existing thoughts.
func (db *DB) Connect(ctx context.Context, source, target storage.NodeID, label string) (*storage.Edge, error) {
	if source == target {
		return nil, fmt.Errorf("%w: self loops are not allowed", storage.ErrInvalidEdge)
	}

	edge := &storage.Edge{
		ID:        storage.EdgeID(uuid.NewString()),
		Source:    source,
		Target:    target,
		Label:     label,
		CreatedAt: time.Now(),
	}
	if err := db.storage.CreateEdge(edge); err != nil {
		return nil, err
	}
	return edge, nil
}

// DeleteConnection removes a single edge.
func (db *DB) DeleteConnection(ctx context.Context, id storage.EdgeID) error {
	return db.storage.DeleteEdge(id)
}

// ClearAll removes every thought and connection. The session index is
// emptied as well.
func (db *DB) ClearAll(ctx context.Context) error {
	if err := db.storage.DeleteAllNodes(); err != nil {
		return err
	}
	return db.index.Rebuild(ctx, nil)
}

// ============================================================================
// Embedding lifecycle
// ============================================================================

// ensureEmbedding makes the node's embedding current with its text.
//
// If the stored content hash matches the node's current text and an
// embedding is present, nothing happens. Otherwise the provider is asked
// for a fresh vector; on success both embedding and hash are set on the
// node (the caller persists). On provider failure the node keeps going
// with a zero-vector placeholder and an UNSET hash, so the next pass
// retries instead of trusting a placeholder.
func (db *DB) ensureEmbedding(ctx context.Context, node *storage.Node) {
	hash := embed.ContentHash(node.Label, node.Content)
	if node.ContentHash == hash && len(node.Embedding) > 0 {
		return
	}

	vector, err := db.embedder.Embed(ctx, node.EmbeddingText())
	if err != nil {
		log.Printf("⚠️  Embedding failed for %q, using placeholder: %v", node.Label, err)
		node.Embedding = embed.ZeroVector(db.embedder.Dimensions())
		node.ContentHash = ""
		return
	}

	node.Embedding = vector
	node.ContentHash = hash
}

// indexThought reflects a thought into the session index, if it is ready.
func (db *DB) indexThought(node *storage.Node) {
	if !db.index.Ready() {
		return
	}
	if err := db.index.Insert(&search.Document{
		ID:        string(node.ID),
		Label:     node.Label,
		Content:   node.Content,
		Embedding: node.Embedding,
	}); err != nil {
		log.Printf("⚠️  Failed to index thought %q: %v", node.Label, err)
	}
}

// LoadStats summarizes a LoadData pass.
type LoadStats struct {
	Thoughts    int // total thoughts loaded
	Connections int // total edges in the graph
	Embedded    int // thoughts whose embedding was computed this pass
	Failed      int // thoughts left with a placeholder vector
}

// LoadData rebuilds the session index from durable storage.
//
// Every thought with a stale or missing embedding is re-embedded, with
// bounded concurrency so the provider is not flooded. A thought whose
// embedding fails is indexed for keyword search with a placeholder vector
// and retried on the next load; one bad thought never fails the session.
func (db *DB) LoadData(ctx context.Context) (*LoadStats, error) {
	nodes, err := db.storage.AllNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to read thoughts: %w", err)
	}

	stats := &LoadStats{Thoughts: len(nodes)}

	// Embed stale thoughts with bounded concurrency
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, db.config.Index.RebuildWorkers)
	)
	for _, node := range nodes {
		hash := embed.ContentHash(node.Label, node.Content)
		if node.ContentHash == hash && len(node.Embedding) > 0 {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(n *storage.Node) {
			defer wg.Done()
			defer func() { <-sem }()

			db.ensureEmbedding(ctx, n)

			mu.Lock()
			defer mu.Unlock()
			if n.ContentHash == "" {
				stats.Failed++
				return
			}
			stats.Embedded++
			// Persist the freshly cached embedding
			if err := db.storage.UpdateNode(n); err != nil {
				log.Printf("⚠️  Failed to persist embedding for %q: %v", n.Label, err)
			}
		}(node)
	}
	wg.Wait()

	docs := make([]*search.Document, len(nodes))
	for i, node := range nodes {
		docs[i] = &search.Document{
			ID:        string(node.ID),
			Label:     node.Label,
			Content:   node.Content,
			Embedding: node.Embedding,
		}
	}
	if err := db.index.Rebuild(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to rebuild session index: %w", err)
	}

	edgeCount, err := db.storage.EdgeCount()
	if err != nil {
		return nil, err
	}
	stats.Connections = int(edgeCount)

	fmt.Printf("🧠 Session index ready: %d thoughts (%d embedded, %d pending), %d connections\n",
		stats.Thoughts, stats.Embedded, stats.Failed, stats.Connections)
	return stats, nil
}

// Stats describes the current graph and session index.
type Stats struct {
	Thoughts    int64 `json:"thoughts"`
	Connections int64 `json:"connections"`
	Indexed     int   `json:"indexed"`
	Embedded    int   `json:"embedded"`
}

// Stats returns graph and index counters.
func (db *DB) Stats() (*Stats, error) {
	nodes, err := db.storage.NodeCount()
	if err != nil {
		return nil, err
	}
	edges, err := db.storage.EdgeCount()
	if err != nil {
		return nil, err
	}
	return &Stats{
		Thoughts:    nodes,
		Connections: edges,
		Indexed:     db.index.Count(),
		Embedded:    db.index.VectorCount(),
	}, nil
}
