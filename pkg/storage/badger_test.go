package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *BadgerEngine {
	t.Helper()
	engine, err := NewBadgerEngineInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestBadgerEngineNodeRoundTrip(t *testing.T) {
	engine := newTestBadger(t)

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	node := &Node{
		ID:          "n1",
		Type:        "thought",
		Position:    Position{X: 42.5, Y: -7},
		Label:       "Graph databases",
		Content:     "Notes on property graphs",
		Tags:        []string{"db", "graphs"},
		Embedding:   []float32{0.5, 0.25, 0.125},
		ContentHash: "abc123",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, engine.CreateNode(node))

	got, err := engine.GetNode("n1")
	require.NoError(t, err)
	assert.Equal(t, node.Type, got.Type)
	assert.Equal(t, node.Position, got.Position)
	assert.Equal(t, node.Label, got.Label)
	assert.Equal(t, node.Content, got.Content)
	assert.Equal(t, node.Tags, got.Tags)
	assert.Equal(t, node.Embedding, got.Embedding)
	assert.Equal(t, node.ContentHash, got.ContentHash)
	assert.Equal(t, created.Unix(), got.CreatedAt.Unix())
}

func TestBadgerEngineDuplicateAndMissing(t *testing.T) {
	engine := newTestBadger(t)

	require.NoError(t, engine.CreateNode(testNode("n1", "one")))
	assert.ErrorIs(t, engine.CreateNode(testNode("n1", "again")), ErrAlreadyExists)

	_, err := engine.GetNode("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, engine.UpdateNode(testNode("ghost", "x")), ErrNotFound)
	assert.ErrorIs(t, engine.DeleteNode("ghost"), ErrNotFound)
}

func TestBadgerEngineTypeIndex(t *testing.T) {
	engine := newTestBadger(t)

	a := testNode("a", "A")
	b := testNode("b", "B")
	b.Type = "note"
	require.NoError(t, engine.CreateNode(a))
	require.NoError(t, engine.CreateNode(b))

	thoughts, err := engine.GetNodesByType("thought")
	require.NoError(t, err)
	require.Len(t, thoughts, 1)
	assert.Equal(t, NodeID("a"), thoughts[0].ID)

	// Type matching is case-insensitive
	thoughts, err = engine.GetNodesByType("Thought")
	require.NoError(t, err)
	assert.Len(t, thoughts, 1)

	// Update moves the node to the new type bucket
	a.Type = "note"
	require.NoError(t, engine.UpdateNode(a))

	thoughts, err = engine.GetNodesByType("thought")
	require.NoError(t, err)
	assert.Empty(t, thoughts)

	notes, err := engine.GetNodesByType("note")
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestBadgerEngineEdgesAndCascade(t *testing.T) {
	engine := newTestBadger(t)

	require.NoError(t, engine.CreateNode(testNode("hub", "Hub")))
	require.NoError(t, engine.CreateNode(testNode("x", "X")))
	require.NoError(t, engine.CreateNode(testNode("y", "Y")))

	assert.ErrorIs(t, engine.CreateEdge(testEdge("bad", "hub", "ghost")), ErrInvalidEdge)

	require.NoError(t, engine.CreateEdge(testEdge("out", "hub", "x")))
	require.NoError(t, engine.CreateEdge(testEdge("in", "y", "hub")))
	require.NoError(t, engine.CreateEdge(testEdge("other", "x", "y")))

	from, err := engine.GetEdgesFrom("hub")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, EdgeID("out"), from[0].ID)

	to, err := engine.GetEdgesTo("hub")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, EdgeID("in"), to[0].ID)

	require.NoError(t, engine.DeleteNode("hub"))

	_, err = engine.GetEdge("out")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = engine.GetEdge("in")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = engine.GetEdge("other")
	assert.NoError(t, err)

	count, err := engine.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBadgerEngineBulkAtomicity(t *testing.T) {
	engine := newTestBadger(t)

	require.NoError(t, engine.CreateNode(testNode("existing", "already here")))

	// Batch containing a duplicate fails and leaves nothing behind
	err := engine.BulkCreateNodes([]*Node{
		testNode("new1", "one"),
		testNode("existing", "dup"),
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = engine.GetNode("new1")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := engine.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBadgerEngineDeleteAll(t *testing.T) {
	engine := newTestBadger(t)

	require.NoError(t, engine.BulkCreateNodes([]*Node{
		testNode("a", "A"),
		testNode("b", "B"),
	}))
	require.NoError(t, engine.CreateEdge(testEdge("e", "a", "b")))

	require.NoError(t, engine.DeleteAllEdges())
	edgeCount, err := engine.EdgeCount()
	require.NoError(t, err)
	assert.Zero(t, edgeCount)

	nodeCount, err := engine.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), nodeCount)

	require.NoError(t, engine.DeleteAllNodes())
	nodeCount, err = engine.NodeCount()
	require.NoError(t, err)
	assert.Zero(t, nodeCount)
}

func TestBadgerEnginePersistence(t *testing.T) {
	dir := t.TempDir()

	engine, err := NewBadgerEngine(dir)
	require.NoError(t, err)

	require.NoError(t, engine.CreateNode(testNode("persist", "survives restart")))
	require.NoError(t, engine.Close())

	// Operations on a closed engine fail
	assert.ErrorIs(t, engine.CreateNode(testNode("late", "x")), ErrStorageClosed)

	reopened, err := NewBadgerEngine(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetNode("persist")
	require.NoError(t, err)
	assert.Equal(t, "survives restart", got.Label)
}
