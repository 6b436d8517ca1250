package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage organization.
// Using single-byte prefixes for efficiency.
const (
	prefixNode        = byte(0x01) // node:nodeID -> Node
	prefixEdge        = byte(0x02) // edge:edgeID -> Edge
	prefixTypeIndex   = byte(0x03) // type:nodeType:nodeID -> []byte{}
	prefixSourceIndex = byte(0x04) // source:nodeID:edgeID -> []byte{}
	prefixTargetIndex = byte(0x05) // target:nodeID:edgeID -> []byte{}
)

// BadgerEngine provides persistent storage using BadgerDB.
//
// Features:
//   - ACID transactions for all operations
//   - Persistent storage to disk
//   - Secondary indexes for efficient queries
//   - Thread-safe concurrent access
//   - Automatic crash recovery
//
// Key Structure:
//   - Nodes: 0x01 + nodeID -> JSON(Node)
//   - Edges: 0x02 + edgeID -> JSON(Edge)
//   - Type Index: 0x03 + type + 0x00 + nodeID -> empty
//   - Source Index: 0x04 + nodeID + 0x00 + edgeID -> empty
//   - Target Index: 0x05 + nodeID + 0x00 + edgeID -> empty
//
// Example:
//
//	engine, err := storage.NewBadgerEngine("/path/to/data")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	node := &storage.Node{
//		ID:    "thought-123",
//		Type:  "thought",
//		Label: "Distributed consensus",
//	}
//	engine.CreateNode(node)
type BadgerEngine struct {
	db     *badger.DB
	mu     sync.RWMutex // Protects the closed flag
	closed bool
}

// BadgerOptions configures the BadgerDB engine.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	// Slower but more durable.
	SyncWrites bool

	// Logger for BadgerDB internal logging.
	// If nil, BadgerDB logging is disabled.
	Logger badger.Logger
}

// NewBadgerEngine creates a new persistent storage engine with default
// settings. All data lives in the specified directory and persists across
// restarts. The directory is created if it does not exist.
func NewBadgerEngine(dataDir string) (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{
		DataDir: dataDir,
	})
}

// NewBadgerEngineWithOptions creates a BadgerEngine with custom configuration.
func NewBadgerEngineWithOptions(opts BadgerOptions) (*BadgerEngine, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	// Trim buffers for small personal graphs; defaults assume server workloads
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	return &BadgerEngine{db: db}, nil
}

// NewBadgerEngineInMemory creates an in-memory BadgerDB for testing.
//
// Data is not persisted and is lost when the engine is closed. Useful for
// unit tests that need persistent storage semantics without actual disk I/O.
func NewBadgerEngineInMemory() (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{
		InMemory: true,
	})
}

// ============================================================================
// Key encoding helpers
// ============================================================================

// nodeKey creates a key for storing a node.
func nodeKey(id NodeID) []byte {
	return append([]byte{prefixNode}, []byte(id)...)
}

// edgeKey creates a key for storing an edge.
func edgeKey(id EdgeID) []byte {
	return append([]byte{prefixEdge}, []byte(id)...)
}

// typeIndexKey creates a key for the node type index.
// Format: prefix + type (lowercase) + 0x00 + nodeID
// Types are normalized to lowercase for case-insensitive matching.
func typeIndexKey(nodeType string, nodeID NodeID) []byte {
	normalized := strings.ToLower(nodeType)
	key := make([]byte, 0, 1+len(normalized)+1+len(nodeID))
	key = append(key, prefixTypeIndex)
	key = append(key, []byte(normalized)...)
	key = append(key, 0x00) // Separator
	key = append(key, []byte(nodeID)...)
	return key
}

// typeIndexPrefix returns the prefix for scanning all nodes of a type.
func typeIndexPrefix(nodeType string) []byte {
	normalized := strings.ToLower(nodeType)
	key := make([]byte, 0, 1+len(normalized)+1)
	key = append(key, prefixTypeIndex)
	key = append(key, []byte(normalized)...)
	key = append(key, 0x00)
	return key
}

// sourceIndexKey creates a key for the source endpoint index.
func sourceIndexKey(nodeID NodeID, edgeID EdgeID) []byte {
	key := make([]byte, 0, 1+len(nodeID)+1+len(edgeID))
	key = append(key, prefixSourceIndex)
	key = append(key, []byte(nodeID)...)
	key = append(key, 0x00)
	key = append(key, []byte(edgeID)...)
	return key
}

// sourceIndexPrefix returns the prefix for scanning edges from a node.
func sourceIndexPrefix(nodeID NodeID) []byte {
	key := make([]byte, 0, 1+len(nodeID)+1)
	key = append(key, prefixSourceIndex)
	key = append(key, []byte(nodeID)...)
	key = append(key, 0x00)
	return key
}

// targetIndexKey creates a key for the target endpoint index.
func targetIndexKey(nodeID NodeID, edgeID EdgeID) []byte {
	key := make([]byte, 0, 1+len(nodeID)+1+len(edgeID))
	key = append(key, prefixTargetIndex)
	key = append(key, []byte(nodeID)...)
	key = append(key, 0x00)
	key = append(key, []byte(edgeID)...)
	return key
}

// targetIndexPrefix returns the prefix for scanning edges into a node.
func targetIndexPrefix(nodeID NodeID) []byte {
	key := make([]byte, 0, 1+len(nodeID)+1)
	key = append(key, prefixTargetIndex)
	key = append(key, []byte(nodeID)...)
	key = append(key, 0x00)
	return key
}

// extractEdgeIDFromIndexKey extracts the edgeID from an endpoint index key.
// Format: prefix + nodeID + 0x00 + edgeID
func extractEdgeIDFromIndexKey(key []byte) EdgeID {
	for i := 1; i < len(key); i++ {
		if key[i] == 0x00 {
			return EdgeID(key[i+1:])
		}
	}
	return ""
}

// ============================================================================
// Serialization helpers
// ============================================================================

// serializableNode is the JSON-serializable form of a Node.
type serializableNode struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Position    Position  `json:"position"`
	Label       string    `json:"label"`
	Content     string    `json:"content,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
	ContentHash string    `json:"contentHash,omitempty"`
	CreatedAt   int64     `json:"createdAt"`
	UpdatedAt   int64     `json:"updatedAt"`
}

// serializableEdge is the JSON-serializable form of an Edge.
type serializableEdge struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Label     string `json:"label,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// encodeNode serializes a Node to JSON.
func encodeNode(n *Node) ([]byte, error) {
	sn := serializableNode{
		ID:          string(n.ID),
		Type:        n.Type,
		Position:    n.Position,
		Label:       n.Label,
		Content:     n.Content,
		Tags:        n.Tags,
		Embedding:   n.Embedding,
		ContentHash: n.ContentHash,
		CreatedAt:   n.CreatedAt.Unix(),
		UpdatedAt:   n.UpdatedAt.Unix(),
	}
	return json.Marshal(sn)
}

// decodeNode deserializes a Node from JSON.
func decodeNode(data []byte) (*Node, error) {
	var sn serializableNode
	if err := json.Unmarshal(data, &sn); err != nil {
		return nil, err
	}

	return &Node{
		ID:          NodeID(sn.ID),
		Type:        sn.Type,
		Position:    sn.Position,
		Label:       sn.Label,
		Content:     sn.Content,
		Tags:        sn.Tags,
		Embedding:   sn.Embedding,
		ContentHash: sn.ContentHash,
		CreatedAt:   unixToTime(sn.CreatedAt),
		UpdatedAt:   unixToTime(sn.UpdatedAt),
	}, nil
}

// encodeEdge serializes an Edge to JSON.
func encodeEdge(e *Edge) ([]byte, error) {
	se := serializableEdge{
		ID:        string(e.ID),
		Source:    string(e.Source),
		Target:    string(e.Target),
		Label:     e.Label,
		CreatedAt: e.CreatedAt.Unix(),
	}
	return json.Marshal(se)
}

// decodeEdge deserializes an Edge from JSON.
func decodeEdge(data []byte) (*Edge, error) {
	var se serializableEdge
	if err := json.Unmarshal(data, &se); err != nil {
		return nil, err
	}

	return &Edge{
		ID:        EdgeID(se.ID),
		Source:    NodeID(se.Source),
		Target:    NodeID(se.Target),
		Label:     se.Label,
		CreatedAt: unixToTime(se.CreatedAt),
	}, nil
}

// unixToTime converts Unix timestamp to time.Time.
func unixToTime(unix int64) time.Time {
	if unix <= 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

// ============================================================================
// Node Operations
// ============================================================================

// CreateNode creates a new node in persistent storage.
func (b *BadgerEngine) CreateNode(node *Node) error {
	if node == nil {
		return ErrInvalidData
	}
	if node.ID == "" {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		key := nodeKey(node.ID)
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return putNode(txn, node)
	})
}

// GetNode retrieves a node by ID.
func (b *BadgerEngine) GetNode(id NodeID) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var node *Node
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decodeErr error
			node, decodeErr = decodeNode(val)
			return decodeErr
		})
	})

	return node, err
}

// UpdateNode updates an existing node, re-indexing its type if it changed.
func (b *BadgerEngine) UpdateNode(node *Node) error {
	if node == nil {
		return ErrInvalidData
	}
	if node.ID == "" {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		key := nodeKey(node.ID)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var existing *Node
		if err := item.Value(func(val []byte) error {
			var decodeErr error
			existing, decodeErr = decodeNode(val)
			return decodeErr
		}); err != nil {
			return err
		}

		if existing.Type != node.Type {
			if err := txn.Delete(typeIndexKey(existing.Type, node.ID)); err != nil {
				return err
			}
		}
		return putNode(txn, node)
	})
}

// DeleteNode removes a node and cascades the delete to every edge that has
// the node as source or target.
func (b *BadgerEngine) DeleteNode(id NodeID) error {
	if id == "" {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var node *Node
		if err := item.Value(func(val []byte) error {
			var decodeErr error
			node, decodeErr = decodeNode(val)
			return decodeErr
		}); err != nil {
			return err
		}

		// Cascade delete attached edges. Collect edge IDs from both endpoint
		// indexes first; Badger iterators do not tolerate interleaved deletes.
		edgeIDs := make(map[EdgeID]struct{})
		for _, prefix := range [][]byte{sourceIndexPrefix(id), targetIndexPrefix(id)} {
			if err := scanIndexKeys(txn, prefix, func(key []byte) {
				edgeIDs[extractEdgeIDFromIndexKey(key)] = struct{}{}
			}); err != nil {
				return err
			}
		}
		for edgeID := range edgeIDs {
			if err := deleteEdgeInTxn(txn, edgeID); err != nil && err != ErrNotFound {
				return err
			}
		}

		if err := txn.Delete(typeIndexKey(node.Type, id)); err != nil {
			return err
		}
		return txn.Delete(nodeKey(id))
	})
}

// ============================================================================
// Edge Operations
// ============================================================================

// CreateEdge creates a new edge. Both endpoint nodes must exist.
func (b *BadgerEngine) CreateEdge(edge *Edge) error {
	if edge == nil {
		return ErrInvalidData
	}
	if edge.ID == "" {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		key := edgeKey(edge.ID)
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		for _, endpoint := range []NodeID{edge.Source, edge.Target} {
			if _, err := txn.Get(nodeKey(endpoint)); err == badger.ErrKeyNotFound {
				return ErrInvalidEdge
			} else if err != nil {
				return err
			}
		}
		return putEdge(txn, edge)
	})
}

// GetEdge retrieves an edge by ID.
func (b *BadgerEngine) GetEdge(id EdgeID) (*Edge, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var edge *Edge
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(edgeKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decodeErr error
			edge, decodeErr = decodeEdge(val)
			return decodeErr
		})
	})

	return edge, err
}

// DeleteEdge removes an edge and its endpoint index entries.
func (b *BadgerEngine) DeleteEdge(id EdgeID) error {
	if id == "" {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return deleteEdgeInTxn(txn, id)
	})
}

// ============================================================================
// Query Operations
// ============================================================================

// GetNodesByType returns all nodes of the given type via the type index.
func (b *BadgerEngine) GetNodesByType(nodeType string) ([]*Node, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	prefix := typeIndexPrefix(nodeType)
	var nodes []*Node
	err := b.db.View(func(txn *badger.Txn) error {
		var ids []NodeID
		if err := scanIndexKeys(txn, prefix, func(key []byte) {
			ids = append(ids, NodeID(key[len(prefix):]))
		}); err != nil {
			return err
		}

		for _, id := range ids {
			item, err := txn.Get(nodeKey(id))
			if err == badger.ErrKeyNotFound {
				continue // Stale index entry
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				node, decodeErr := decodeNode(val)
				if decodeErr != nil {
					return decodeErr
				}
				nodes = append(nodes, node)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})

	return nodes, err
}

// GetEdgesFrom returns all edges whose source is the given node.
func (b *BadgerEngine) GetEdgesFrom(nodeID NodeID) ([]*Edge, error) {
	return b.edgesByIndex(sourceIndexPrefix(nodeID))
}

// GetEdgesTo returns all edges whose target is the given node.
func (b *BadgerEngine) GetEdgesTo(nodeID NodeID) ([]*Edge, error) {
	return b.edgesByIndex(targetIndexPrefix(nodeID))
}

func (b *BadgerEngine) edgesByIndex(prefix []byte) ([]*Edge, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var edges []*Edge
	err := b.db.View(func(txn *badger.Txn) error {
		var ids []EdgeID
		if err := scanIndexKeys(txn, prefix, func(key []byte) {
			ids = append(ids, extractEdgeIDFromIndexKey(key))
		}); err != nil {
			return err
		}

		for _, id := range ids {
			item, err := txn.Get(edgeKey(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				edge, decodeErr := decodeEdge(val)
				if decodeErr != nil {
					return decodeErr
				}
				edges = append(edges, edge)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})

	return edges, err
}

// AllNodes returns every node in storage. Used for session rebuilds and
// exports; the full scan is acceptable for personal-scale graphs.
func (b *BadgerEngine) AllNodes() ([]*Node, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var nodes []*Node
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixNode}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				node, decodeErr := decodeNode(val)
				if decodeErr != nil {
					return decodeErr
				}
				nodes = append(nodes, node)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})

	return nodes, err
}

// AllEdges returns every edge in storage.
func (b *BadgerEngine) AllEdges() ([]*Edge, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var edges []*Edge
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixEdge}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				edge, decodeErr := decodeEdge(val)
				if decodeErr != nil {
					return decodeErr
				}
				edges = append(edges, edge)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})

	return edges, err
}

// ============================================================================
// Bulk Operations
// ============================================================================

// BulkCreateNodes inserts nodes in a single transaction. If any node is
// invalid or duplicates an existing ID, the whole batch is rolled back.
func (b *BadgerEngine) BulkCreateNodes(nodes []*Node) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		for _, node := range nodes {
			if node == nil {
				return ErrInvalidData
			}
			if node.ID == "" {
				return ErrInvalidID
			}
			_, err := txn.Get(nodeKey(node.ID))
			if err == nil {
				return ErrAlreadyExists
			}
			if err != badger.ErrKeyNotFound {
				return err
			}
			if err := putNode(txn, node); err != nil {
				return err
			}
		}
		return nil
	})
}

// BulkCreateEdges inserts edges in a single transaction, validating that
// every endpoint node exists.
func (b *BadgerEngine) BulkCreateEdges(edges []*Edge) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		for _, edge := range edges {
			if edge == nil {
				return ErrInvalidData
			}
			if edge.ID == "" {
				return ErrInvalidID
			}
			_, err := txn.Get(edgeKey(edge.ID))
			if err == nil {
				return ErrAlreadyExists
			}
			if err != badger.ErrKeyNotFound {
				return err
			}
			for _, endpoint := range []NodeID{edge.Source, edge.Target} {
				if _, err := txn.Get(nodeKey(endpoint)); err == badger.ErrKeyNotFound {
					return ErrInvalidEdge
				} else if err != nil {
					return err
				}
			}
			if err := putEdge(txn, edge); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAllNodes removes every node, edge, and index entry.
func (b *BadgerEngine) DeleteAllNodes() error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.DropPrefix(
		[]byte{prefixNode},
		[]byte{prefixEdge},
		[]byte{prefixTypeIndex},
		[]byte{prefixSourceIndex},
		[]byte{prefixTargetIndex},
	)
}

// DeleteAllEdges removes every edge and endpoint index entry, leaving nodes
// untouched.
func (b *BadgerEngine) DeleteAllEdges() error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.DropPrefix(
		[]byte{prefixEdge},
		[]byte{prefixSourceIndex},
		[]byte{prefixTargetIndex},
	)
}

// ============================================================================
// Counts and lifecycle
// ============================================================================

// NodeCount returns the number of stored nodes.
func (b *BadgerEngine) NodeCount() (int64, error) {
	return b.countPrefix([]byte{prefixNode})
}

// EdgeCount returns the number of stored edges.
func (b *BadgerEngine) EdgeCount() (int64, error) {
	return b.countPrefix([]byte{prefixEdge})
}

func (b *BadgerEngine) countPrefix(prefix []byte) (int64, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}

	var count int64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

// Close flushes and closes the underlying BadgerDB. Further operations
// return ErrStorageClosed.
func (b *BadgerEngine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func (b *BadgerEngine) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStorageClosed
	}
	return nil
}

// ============================================================================
// Transaction helpers
// ============================================================================

// putNode writes a node and its type index entry inside a transaction.
func putNode(txn *badger.Txn, node *Node) error {
	data, err := encodeNode(node)
	if err != nil {
		return fmt.Errorf("failed to encode node: %w", err)
	}
	if err := txn.Set(nodeKey(node.ID), data); err != nil {
		return err
	}
	return txn.Set(typeIndexKey(node.Type, node.ID), []byte{})
}

// putEdge writes an edge and its endpoint index entries inside a transaction.
func putEdge(txn *badger.Txn, edge *Edge) error {
	data, err := encodeEdge(edge)
	if err != nil {
		return fmt.Errorf("failed to encode edge: %w", err)
	}
	if err := txn.Set(edgeKey(edge.ID), data); err != nil {
		return err
	}
	if err := txn.Set(sourceIndexKey(edge.Source, edge.ID), []byte{}); err != nil {
		return err
	}
	return txn.Set(targetIndexKey(edge.Target, edge.ID), []byte{})
}

// deleteEdgeInTxn removes an edge and its index entries inside a transaction.
func deleteEdgeInTxn(txn *badger.Txn, id EdgeID) error {
	item, err := txn.Get(edgeKey(id))
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var edge *Edge
	if err := item.Value(func(val []byte) error {
		var decodeErr error
		edge, decodeErr = decodeEdge(val)
		return decodeErr
	}); err != nil {
		return err
	}

	if err := txn.Delete(sourceIndexKey(edge.Source, id)); err != nil {
		return err
	}
	if err := txn.Delete(targetIndexKey(edge.Target, id)); err != nil {
		return err
	}
	return txn.Delete(edgeKey(id))
}

// scanIndexKeys iterates over keys matching a prefix, invoking fn with a
// copy of each key.
func scanIndexKeys(txn *badger.Txn, prefix []byte, fn func(key []byte)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		fn(it.Item().KeyCopy(nil))
	}
	return nil
}
