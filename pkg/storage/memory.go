package storage

import (
	"sort"
	"sync"
)

// MemoryEngine is a thread-safe in-memory implementation of Engine.
//
// Use cases:
//   - Unit testing (no disk I/O, fast cleanup)
//   - Ephemeral sessions where persistence is not wanted
//
// Features:
//   - Thread-safe: all operations use an RWMutex
//   - Indexed: maintains indexes by node type and by edge endpoint
//   - Deep copies: returns copies to prevent external mutation
//
// Performance characteristics:
//   - Node/edge lookup by ID: O(1)
//   - Lookup by type or endpoint: O(k) where k = matching entries
type MemoryEngine struct {
	mu    sync.RWMutex
	nodes map[NodeID]*Node
	edges map[EdgeID]*Edge

	// Indexes for efficient lookups
	nodesByType map[string]map[NodeID]struct{}
	edgesFrom   map[NodeID]map[EdgeID]struct{}
	edgesTo     map[NodeID]map[EdgeID]struct{}

	closed bool
}

// NewMemoryEngine creates a new in-memory storage engine with empty indexes.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		nodes:       make(map[NodeID]*Node),
		edges:       make(map[EdgeID]*Edge),
		nodesByType: make(map[string]map[NodeID]struct{}),
		edgesFrom:   make(map[NodeID]map[EdgeID]struct{}),
		edgesTo:     make(map[NodeID]map[EdgeID]struct{}),
	}
}

// CreateNode creates a new node. The node is deep-copied to prevent external
// mutations after storage. Duplicate IDs return ErrAlreadyExists.
func (m *MemoryEngine) CreateNode(node *Node) error {
	if node == nil {
		return ErrInvalidData
	}
	if node.ID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	if _, exists := m.nodes[node.ID]; exists {
		return ErrAlreadyExists
	}

	stored := copyNode(node)
	m.nodes[node.ID] = stored
	m.indexNodeType(stored)
	return nil
}

// GetNode retrieves a node by its unique ID. Returns a deep copy.
func (m *MemoryEngine) GetNode(id NodeID) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}
	node, ok := m.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyNode(node), nil
}

// UpdateNode replaces an existing node. Returns ErrNotFound if absent.
func (m *MemoryEngine) UpdateNode(node *Node) error {
	if node == nil {
		return ErrInvalidData
	}
	if node.ID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	existing, ok := m.nodes[node.ID]
	if !ok {
		return ErrNotFound
	}

	// Remove old type index entry before re-indexing
	if set := m.nodesByType[existing.Type]; set != nil {
		delete(set, node.ID)
		if len(set) == 0 {
			delete(m.nodesByType, existing.Type)
		}
	}

	stored := copyNode(node)
	m.nodes[node.ID] = stored
	m.indexNodeType(stored)
	return nil
}

// DeleteNode removes a node and cascades the delete to every edge touching it.
func (m *MemoryEngine) DeleteNode(id NodeID) error {
	if id == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	node, ok := m.nodes[id]
	if !ok {
		return ErrNotFound
	}

	// Cascade: collect every edge with this node as source or target
	for edgeID := range m.edgesFrom[id] {
		m.removeEdgeLocked(edgeID)
	}
	for edgeID := range m.edgesTo[id] {
		m.removeEdgeLocked(edgeID)
	}
	delete(m.edgesFrom, id)
	delete(m.edgesTo, id)

	if set := m.nodesByType[node.Type]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(m.nodesByType, node.Type)
		}
	}
	delete(m.nodes, id)
	return nil
}

// CreateEdge creates a new edge. Both endpoint nodes must exist.
func (m *MemoryEngine) CreateEdge(edge *Edge) error {
	if edge == nil {
		return ErrInvalidData
	}
	if edge.ID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	if _, exists := m.edges[edge.ID]; exists {
		return ErrAlreadyExists
	}
	if _, ok := m.nodes[edge.Source]; !ok {
		return ErrInvalidEdge
	}
	if _, ok := m.nodes[edge.Target]; !ok {
		return ErrInvalidEdge
	}

	stored := copyEdge(edge)
	m.edges[edge.ID] = stored
	m.indexEdge(stored)
	return nil
}

// GetEdge retrieves an edge by ID. Returns a deep copy.
func (m *MemoryEngine) GetEdge(id EdgeID) (*Edge, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}
	edge, ok := m.edges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEdge(edge), nil
}

// DeleteEdge removes an edge by ID.
func (m *MemoryEngine) DeleteEdge(id EdgeID) error {
	if id == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	if _, ok := m.edges[id]; !ok {
		return ErrNotFound
	}
	m.removeEdgeLocked(id)
	return nil
}

// GetNodesByType returns all nodes with the given type, sorted by ID for
// deterministic iteration.
func (m *MemoryEngine) GetNodesByType(nodeType string) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	set := m.nodesByType[nodeType]
	nodes := make([]*Node, 0, len(set))
	for id := range set {
		nodes = append(nodes, copyNode(m.nodes[id]))
	}
	sortNodes(nodes)
	return nodes, nil
}

// GetEdgesFrom returns all edges whose source is the given node.
func (m *MemoryEngine) GetEdgesFrom(nodeID NodeID) ([]*Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	set := m.edgesFrom[nodeID]
	edges := make([]*Edge, 0, len(set))
	for id := range set {
		edges = append(edges, copyEdge(m.edges[id]))
	}
	sortEdges(edges)
	return edges, nil
}

// GetEdgesTo returns all edges whose target is the given node.
func (m *MemoryEngine) GetEdgesTo(nodeID NodeID) ([]*Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	set := m.edgesTo[nodeID]
	edges := make([]*Edge, 0, len(set))
	for id := range set {
		edges = append(edges, copyEdge(m.edges[id]))
	}
	sortEdges(edges)
	return edges, nil
}

// AllNodes returns every node, sorted by ID.
func (m *MemoryEngine) AllNodes() ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	nodes := make([]*Node, 0, len(m.nodes))
	for _, node := range m.nodes {
		nodes = append(nodes, copyNode(node))
	}
	sortNodes(nodes)
	return nodes, nil
}

// AllEdges returns every edge, sorted by ID.
func (m *MemoryEngine) AllEdges() ([]*Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	edges := make([]*Edge, 0, len(m.edges))
	for _, edge := range m.edges {
		edges = append(edges, copyEdge(edge))
	}
	sortEdges(edges)
	return edges, nil
}

// BulkCreateNodes inserts nodes in one pass. Fails on the first invalid or
// duplicate node, leaving earlier inserts in place.
func (m *MemoryEngine) BulkCreateNodes(nodes []*Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	for _, node := range nodes {
		if node == nil {
			return ErrInvalidData
		}
		if node.ID == "" {
			return ErrInvalidID
		}
		if _, exists := m.nodes[node.ID]; exists {
			return ErrAlreadyExists
		}
		stored := copyNode(node)
		m.nodes[node.ID] = stored
		m.indexNodeType(stored)
	}
	return nil
}

// BulkCreateEdges inserts edges in one pass, validating endpoints.
func (m *MemoryEngine) BulkCreateEdges(edges []*Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	for _, edge := range edges {
		if edge == nil {
			return ErrInvalidData
		}
		if edge.ID == "" {
			return ErrInvalidID
		}
		if _, exists := m.edges[edge.ID]; exists {
			return ErrAlreadyExists
		}
		if _, ok := m.nodes[edge.Source]; !ok {
			return ErrInvalidEdge
		}
		if _, ok := m.nodes[edge.Target]; !ok {
			return ErrInvalidEdge
		}
		stored := copyEdge(edge)
		m.edges[edge.ID] = stored
		m.indexEdge(stored)
	}
	return nil
}

// DeleteAllNodes removes every node. Edges are removed as well since no edge
// can survive without its endpoints.
func (m *MemoryEngine) DeleteAllNodes() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	m.nodes = make(map[NodeID]*Node)
	m.edges = make(map[EdgeID]*Edge)
	m.nodesByType = make(map[string]map[NodeID]struct{})
	m.edgesFrom = make(map[NodeID]map[EdgeID]struct{})
	m.edgesTo = make(map[NodeID]map[EdgeID]struct{})
	return nil
}

// DeleteAllEdges removes every edge, leaving nodes untouched.
func (m *MemoryEngine) DeleteAllEdges() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	m.edges = make(map[EdgeID]*Edge)
	m.edgesFrom = make(map[NodeID]map[EdgeID]struct{})
	m.edgesTo = make(map[NodeID]map[EdgeID]struct{})
	return nil
}

// NodeCount returns the number of stored nodes.
func (m *MemoryEngine) NodeCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStorageClosed
	}
	return int64(len(m.nodes)), nil
}

// EdgeCount returns the number of stored edges.
func (m *MemoryEngine) EdgeCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStorageClosed
	}
	return int64(len(m.edges)), nil
}

// Close marks the engine closed. Further operations return ErrStorageClosed.
func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// indexNodeType adds a node to the type index. Caller must hold the write lock.
func (m *MemoryEngine) indexNodeType(node *Node) {
	if m.nodesByType[node.Type] == nil {
		m.nodesByType[node.Type] = make(map[NodeID]struct{})
	}
	m.nodesByType[node.Type][node.ID] = struct{}{}
}

// indexEdge adds an edge to the endpoint indexes. Caller must hold the write lock.
func (m *MemoryEngine) indexEdge(edge *Edge) {
	if m.edgesFrom[edge.Source] == nil {
		m.edgesFrom[edge.Source] = make(map[EdgeID]struct{})
	}
	m.edgesFrom[edge.Source][edge.ID] = struct{}{}

	if m.edgesTo[edge.Target] == nil {
		m.edgesTo[edge.Target] = make(map[EdgeID]struct{})
	}
	m.edgesTo[edge.Target][edge.ID] = struct{}{}
}

// removeEdgeLocked deletes an edge and its index entries. Caller must hold
// the write lock and have verified the edge exists.
func (m *MemoryEngine) removeEdgeLocked(id EdgeID) {
	edge, ok := m.edges[id]
	if !ok {
		return
	}
	if set := m.edgesFrom[edge.Source]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(m.edgesFrom, edge.Source)
		}
	}
	if set := m.edgesTo[edge.Target]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(m.edgesTo, edge.Target)
		}
	}
	delete(m.edges, id)
}

// copyNode returns a deep copy of a node.
func copyNode(n *Node) *Node {
	c := *n
	if n.Tags != nil {
		c.Tags = make([]string, len(n.Tags))
		copy(c.Tags, n.Tags)
	}
	if n.Embedding != nil {
		c.Embedding = make([]float32, len(n.Embedding))
		copy(c.Embedding, n.Embedding)
	}
	return &c
}

// copyEdge returns a copy of an edge.
func copyEdge(e *Edge) *Edge {
	c := *e
	return &c
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
}
