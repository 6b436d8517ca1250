package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode(id NodeID, label string) *Node {
	return &Node{
		ID:        id,
		Type:      "thought",
		Position:  Position{X: 100, Y: 200},
		Label:     label,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func testEdge(id EdgeID, source, target NodeID) *Edge {
	return &Edge{
		ID:        id,
		Source:    source,
		Target:    target,
		CreatedAt: time.Now(),
	}
}

func TestMemoryEngineNodeCRUD(t *testing.T) {
	engine := NewMemoryEngine()
	defer engine.Close()

	t.Run("create and get", func(t *testing.T) {
		node := testNode("n1", "First thought")
		node.Content = "some details"
		node.Tags = []string{"ideas"}
		require.NoError(t, engine.CreateNode(node))

		got, err := engine.GetNode("n1")
		require.NoError(t, err)
		assert.Equal(t, node.Label, got.Label)
		assert.Equal(t, node.Content, got.Content)
		assert.Equal(t, node.Position, got.Position)
		assert.Equal(t, []string{"ideas"}, got.Tags)
	})

	t.Run("duplicate ID rejected", func(t *testing.T) {
		err := engine.CreateNode(testNode("n1", "dup"))
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("empty ID rejected", func(t *testing.T) {
		err := engine.CreateNode(testNode("", "no id"))
		assert.ErrorIs(t, err, ErrInvalidID)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := engine.GetNode("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		node := testNode("n1", "Renamed thought")
		require.NoError(t, engine.UpdateNode(node))

		got, err := engine.GetNode("n1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed thought", got.Label)
	})

	t.Run("update missing", func(t *testing.T) {
		err := engine.UpdateNode(testNode("ghost", "nope"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, engine.DeleteNode("n1"))
		_, err := engine.GetNode("n1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, engine.DeleteNode("n1"), ErrNotFound)
	})
}

func TestMemoryEngineReturnsCopies(t *testing.T) {
	engine := NewMemoryEngine()
	defer engine.Close()

	node := testNode("n1", "original")
	node.Embedding = []float32{0.1, 0.2}
	require.NoError(t, engine.CreateNode(node))

	// Mutating the input after create must not affect storage
	node.Label = "mutated"
	node.Embedding[0] = 99

	got, err := engine.GetNode("n1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Label)
	assert.Equal(t, float32(0.1), got.Embedding[0])

	// Mutating a returned copy must not affect storage either
	got.Label = "mutated again"
	again, err := engine.GetNode("n1")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Label)
}

func TestMemoryEngineEdges(t *testing.T) {
	engine := NewMemoryEngine()
	defer engine.Close()

	require.NoError(t, engine.CreateNode(testNode("a", "A")))
	require.NoError(t, engine.CreateNode(testNode("b", "B")))
	require.NoError(t, engine.CreateNode(testNode("c", "C")))

	t.Run("create and get", func(t *testing.T) {
		edge := testEdge("e1", "a", "b")
		edge.Label = "relates to"
		require.NoError(t, engine.CreateEdge(edge))

		got, err := engine.GetEdge("e1")
		require.NoError(t, err)
		assert.Equal(t, NodeID("a"), got.Source)
		assert.Equal(t, NodeID("b"), got.Target)
		assert.Equal(t, "relates to", got.Label)
	})

	t.Run("dangling endpoints rejected", func(t *testing.T) {
		assert.ErrorIs(t, engine.CreateEdge(testEdge("e2", "a", "ghost")), ErrInvalidEdge)
		assert.ErrorIs(t, engine.CreateEdge(testEdge("e2", "ghost", "b")), ErrInvalidEdge)
	})

	t.Run("endpoint queries", func(t *testing.T) {
		require.NoError(t, engine.CreateEdge(testEdge("e2", "a", "c")))
		require.NoError(t, engine.CreateEdge(testEdge("e3", "b", "c")))

		from, err := engine.GetEdgesFrom("a")
		require.NoError(t, err)
		assert.Len(t, from, 2)

		to, err := engine.GetEdgesTo("c")
		require.NoError(t, err)
		assert.Len(t, to, 2)

		none, err := engine.GetEdgesFrom("c")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete edge", func(t *testing.T) {
		require.NoError(t, engine.DeleteEdge("e3"))
		_, err := engine.GetEdge("e3")
		assert.ErrorIs(t, err, ErrNotFound)

		to, err := engine.GetEdgesTo("c")
		require.NoError(t, err)
		assert.Len(t, to, 1)
	})
}

func TestMemoryEngineCascadeDelete(t *testing.T) {
	engine := NewMemoryEngine()
	defer engine.Close()

	require.NoError(t, engine.CreateNode(testNode("hub", "Hub")))
	require.NoError(t, engine.CreateNode(testNode("x", "X")))
	require.NoError(t, engine.CreateNode(testNode("y", "Y")))
	require.NoError(t, engine.CreateEdge(testEdge("out", "hub", "x")))
	require.NoError(t, engine.CreateEdge(testEdge("in", "y", "hub")))
	require.NoError(t, engine.CreateEdge(testEdge("other", "x", "y")))

	require.NoError(t, engine.DeleteNode("hub"))

	// Both edges touching the hub are gone
	_, err := engine.GetEdge("out")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = engine.GetEdge("in")
	assert.ErrorIs(t, err, ErrNotFound)

	// Unrelated edge survives
	_, err = engine.GetEdge("other")
	assert.NoError(t, err)

	count, err := engine.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryEngineTypeIndex(t *testing.T) {
	engine := NewMemoryEngine()
	defer engine.Close()

	thought := testNode("t1", "a thought")
	note := testNode("note1", "a note")
	note.Type = "note"
	require.NoError(t, engine.CreateNode(thought))
	require.NoError(t, engine.CreateNode(note))

	thoughts, err := engine.GetNodesByType("thought")
	require.NoError(t, err)
	require.Len(t, thoughts, 1)
	assert.Equal(t, NodeID("t1"), thoughts[0].ID)

	// Re-typing a node moves it between index buckets
	thought.Type = "note"
	require.NoError(t, engine.UpdateNode(thought))

	thoughts, err = engine.GetNodesByType("thought")
	require.NoError(t, err)
	assert.Empty(t, thoughts)

	notes, err := engine.GetNodesByType("note")
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestMemoryEngineBulkOperations(t *testing.T) {
	engine := NewMemoryEngine()
	defer engine.Close()

	nodes := []*Node{
		testNode("n1", "one"),
		testNode("n2", "two"),
		testNode("n3", "three"),
	}
	require.NoError(t, engine.BulkCreateNodes(nodes))

	count, err := engine.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	edges := []*Edge{
		testEdge("e1", "n1", "n2"),
		testEdge("e2", "n2", "n3"),
	}
	require.NoError(t, engine.BulkCreateEdges(edges))

	all, err := engine.AllEdges()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	err = engine.BulkCreateEdges([]*Edge{testEdge("e3", "n1", "ghost")})
	assert.ErrorIs(t, err, ErrInvalidEdge)
}

func TestMemoryEngineDeleteAll(t *testing.T) {
	engine := NewMemoryEngine()
	defer engine.Close()

	require.NoError(t, engine.CreateNode(testNode("a", "A")))
	require.NoError(t, engine.CreateNode(testNode("b", "B")))
	require.NoError(t, engine.CreateEdge(testEdge("e", "a", "b")))

	t.Run("delete all edges keeps nodes", func(t *testing.T) {
		require.NoError(t, engine.DeleteAllEdges())

		edgeCount, err := engine.EdgeCount()
		require.NoError(t, err)
		assert.Zero(t, edgeCount)

		nodeCount, err := engine.NodeCount()
		require.NoError(t, err)
		assert.Equal(t, int64(2), nodeCount)
	})

	t.Run("delete all nodes clears everything", func(t *testing.T) {
		require.NoError(t, engine.CreateEdge(testEdge("e", "a", "b")))
		require.NoError(t, engine.DeleteAllNodes())

		nodeCount, err := engine.NodeCount()
		require.NoError(t, err)
		assert.Zero(t, nodeCount)

		edgeCount, err := engine.EdgeCount()
		require.NoError(t, err)
		assert.Zero(t, edgeCount)
	})
}

func TestMemoryEngineClosed(t *testing.T) {
	engine := NewMemoryEngine()
	require.NoError(t, engine.Close())

	assert.ErrorIs(t, engine.CreateNode(testNode("n", "n")), ErrStorageClosed)
	_, err := engine.GetNode("n")
	assert.ErrorIs(t, err, ErrStorageClosed)
	_, err = engine.AllNodes()
	assert.ErrorIs(t, err, ErrStorageClosed)
	_, err = engine.NodeCount()
	assert.ErrorIs(t, err, ErrStorageClosed)
}
