// Package storage provides the durable store interface and implementations
// for ThoughtDB.
//
// The storage layer persists two collections — thought nodes and the edges
// connecting them — with lookup by primary key and by secondary attributes
// (node type, edge endpoints). It is the single source of truth: the semantic
// index is always reconstructible from it.
//
// Design principles:
//   - Testability through dependency injection
//   - Thread-safe implementations
//   - Deep copies on read/write so callers cannot mutate stored state
//
// Example usage:
//
//	engine := storage.NewMemoryEngine()
//	defer engine.Close()
//
//	node := &storage.Node{
//		ID:      storage.NodeID("n-123"),
//		Type:    "thought",
//		Label:   "Deep Learning",
//		Content: "A subset of machine learning based on neural networks.",
//	}
//	engine.CreateNode(node)
//
//	edge := &storage.Edge{
//		ID:     storage.EdgeID("e-1"),
//		Source: "n-123",
//		Target: "n-456",
//	}
//	engine.CreateEdge(edge)
package storage

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidData   = errors.New("invalid data")
	ErrInvalidEdge   = errors.New("invalid edge: source or target node not found")
	ErrStorageClosed = errors.New("storage closed")
)

// NodeID is a strongly-typed unique identifier for thought nodes.
//
// Using a custom type prevents accidentally passing an EdgeID where a NodeID
// is expected.
type NodeID string

// EdgeID is a strongly-typed unique identifier for edges (connections).
type EdgeID string

// Position is a node's location on the spatial canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a thought on the canvas.
//
// Core fields:
//   - ID: Unique identifier (must be unique across all nodes)
//   - Type: Discriminator, "thought" unless the UI says otherwise
//   - Position: Canvas coordinates, mutated freely by drag operations
//   - Label: Short title shown on the node
//   - Content: Optional long-form body (markdown in the UI)
//   - Tags: Optional categorical labels
//
// Derived fields, owned by the embedding cache:
//   - Embedding: Vector representation of "{label} {content}" for semantic
//     search. Empty until the cache-fill pass computes it.
//   - ContentHash: Hash of the text the embedding was computed from. When the
//     label or content changes the hash no longer matches and the embedding
//     is recomputed on the next load.
//
// Node structs are NOT thread-safe; the storage engine handles concurrency
// and hands out copies.
type Node struct {
	ID       NodeID   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Label    string   `json:"label"`
	Content  string   `json:"content,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	Embedding   []float32 `json:"embedding,omitempty"`
	ContentHash string    `json:"contentHash,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Edge represents a directed connection between two thoughts.
//
// Edges have no intrinsic mutation beyond deletion. When either endpoint
// node is deleted the engine cascades the delete to its edges, so the store
// never holds dangling references.
type Edge struct {
	ID     EdgeID `json:"id"`
	Source NodeID `json:"source"`
	Target NodeID `json:"target"`
	Label  string `json:"label,omitempty"`

	CreatedAt time.Time `json:"-"`
}

// EmbeddingText returns the text a node's embedding is derived from.
func (n *Node) EmbeddingText() string {
	if n.Content == "" {
		return n.Label
	}
	return n.Label + " " + n.Content
}

// Engine defines the durable store interface.
//
// All Engine implementations MUST be:
//   - Thread-safe: safe for concurrent access from multiple goroutines
//   - Atomic per operation: an operation commits fully or not at all
//
// Implementations:
//   - MemoryEngine: in-memory storage for tests and ephemeral sessions
//   - BadgerEngine: persistent disk storage (survives restarts)
type Engine interface {
	// Node operations
	CreateNode(node *Node) error
	GetNode(id NodeID) (*Node, error)
	UpdateNode(node *Node) error
	// DeleteNode removes the node and cascades to every edge that has the
	// node as source or target.
	DeleteNode(id NodeID) error

	// Edge operations
	CreateEdge(edge *Edge) error
	GetEdge(id EdgeID) (*Edge, error)
	DeleteEdge(id EdgeID) error

	// Query operations
	GetNodesByType(nodeType string) ([]*Node, error)
	GetEdgesFrom(nodeID NodeID) ([]*Edge, error)
	GetEdgesTo(nodeID NodeID) ([]*Edge, error)
	AllNodes() ([]*Node, error)
	AllEdges() ([]*Edge, error)

	// Bulk operations (for import and clear-canvas)
	BulkCreateNodes(nodes []*Node) error
	BulkCreateEdges(edges []*Edge) error
	DeleteAllNodes() error
	DeleteAllEdges() error

	// Stats
	NodeCount() (int64, error)
	EdgeCount() (int64, error)

	// Lifecycle
	Close() error
}
