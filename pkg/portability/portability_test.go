package portability

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindcanvas/thoughtdb/pkg/storage"
)

func seedEngine(t *testing.T) storage.Engine {
	t.Helper()
	engine := storage.NewMemoryEngine()
	t.Cleanup(func() { engine.Close() })

	now := time.Now()
	require.NoError(t, engine.CreateNode(&storage.Node{
		ID: "n1", Type: "thought", Label: "Graph theory",
		Content: "nodes and edges", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, engine.CreateNode(&storage.Node{
		ID: "n2", Type: "thought", Label: "Vector search",
		Embedding: []float32{0.1, 0.2}, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, engine.CreateEdge(&storage.Edge{
		ID: "e1", Source: "n1", Target: "n2", Label: "related",
		CreatedAt: now,
	}))
	return engine
}

func TestExportImportRoundTrip(t *testing.T) {
	source := seedEngine(t)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(source, &buf))

	// Envelope sanity
	var bundle Bundle
	require.NoError(t, json.Unmarshal(buf.Bytes(), &bundle))
	assert.Equal(t, BundleVersion, bundle.Version)
	assert.False(t, bundle.Timestamp.IsZero())
	assert.Len(t, bundle.Nodes, 2)
	assert.Len(t, bundle.Edges, 1)

	target := storage.NewMemoryEngine()
	defer target.Close()
	require.NoError(t, ImportJSON(target, &buf))

	nodes, err := target.AllNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Graph theory", nodes[0].Label)
	assert.Equal(t, []float32{0.1, 0.2}, nodes[1].Embedding)

	edges, err := target.AllEdges()
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, storage.NodeID("n1"), edges[0].Source)
}

func TestImportReplacesExistingData(t *testing.T) {
	source := seedEngine(t)
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(source, &buf))

	target := storage.NewMemoryEngine()
	defer target.Close()
	require.NoError(t, target.CreateNode(&storage.Node{
		ID: "old", Type: "thought", Label: "pre-existing",
	}))

	require.NoError(t, ImportJSON(target, &buf))

	_, err := target.GetNode("old")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := target.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestImportInvalidBundleLeavesGraphIntact(t *testing.T) {
	engine := storage.NewMemoryEngine()
	defer engine.Close()
	require.NoError(t, engine.CreateNode(&storage.Node{
		ID: "keep", Type: "thought", Label: "must survive",
	}))

	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `{"nodes": [`},
		{"missing nodes", `{"version":"1.0","edges":[]}`},
		{"node without id", `{"nodes":[{"type":"thought","label":"x","position":{"x":0,"y":0}}]}`},
		{"duplicate node id", `{"nodes":[
			{"id":"a","type":"thought","label":"x","position":{"x":0,"y":0}},
			{"id":"a","type":"thought","label":"y","position":{"x":0,"y":0}}]}`},
		{"dangling edge", `{"nodes":[{"id":"a","type":"thought","label":"x","position":{"x":0,"y":0}}],
			"edges":[{"id":"e","source":"a","target":"ghost"}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ImportJSON(engine, strings.NewReader(tc.payload))
			assert.ErrorIs(t, err, ErrInvalidBundle)

			// Existing graph untouched after a rejected import
			_, err = engine.GetNode("keep")
			assert.NoError(t, err)
		})
	}
}

func TestExportMarkdown(t *testing.T) {
	engine := storage.NewMemoryEngine()
	defer engine.Close()
	require.NoError(t, engine.CreateNode(&storage.Node{
		ID: "n1", Type: "thought", Label: "Safe name", Content: "body text",
	}))
	require.NoError(t, engine.CreateNode(&storage.Node{
		ID: "n2", Type: "thought", Label: `What? A/B "test": 50%|more`,
	}))

	var buf bytes.Buffer
	require.NoError(t, ExportMarkdown(engine, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	names := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names[f.Name] = string(content)
	}

	assert.Equal(t, "# Safe name\n\nbody text", names["Safe name.md"])

	// Unsafe characters are replaced, not dropped
	sanitized := `What- A-B -test-- 50--more.md`
	content, ok := names[sanitized]
	require.True(t, ok, "expected sanitized filename, got %v", keys(names))
	assert.True(t, strings.HasPrefix(content, "# What? A/B"))
}

func TestExportMarkdownCollidingLabels(t *testing.T) {
	engine := storage.NewMemoryEngine()
	defer engine.Close()
	require.NoError(t, engine.CreateNode(&storage.Node{ID: "a", Type: "thought", Label: "Same"}))
	require.NoError(t, engine.CreateNode(&storage.Node{ID: "b", Type: "thought", Label: "Same"}))

	var buf bytes.Buffer
	require.NoError(t, ExportMarkdown(engine, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.NotEqual(t, zr.File[0].Name, zr.File[1].Name)
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
