// Package portability implements bulk import and export of the thought
// graph: a JSON bundle for full backups and a ZIP of markdown files for
// reading thoughts outside the app.
package portability

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/mindcanvas/thoughtdb/pkg/storage"
)

// BundleVersion identifies the JSON export format.
const BundleVersion = "1.0"

// ErrInvalidBundle indicates the import payload is not a usable export.
var ErrInvalidBundle = errors.New("invalid export bundle")

// Bundle is the JSON export envelope.
type Bundle struct {
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Nodes     []*storage.Node `json:"nodes"`
	Edges     []*storage.Edge `json:"edges"`
}

// ExportJSON writes the entire graph as a JSON bundle.
func ExportJSON(engine storage.Engine, w io.Writer) error {
	nodes, err := engine.AllNodes()
	if err != nil {
		return fmt.Errorf("failed to read nodes: %w", err)
	}
	edges, err := engine.AllEdges()
	if err != nil {
		return fmt.Errorf("failed to read edges: %w", err)
	}

	bundle := Bundle{
		Version:   BundleVersion,
		Timestamp: time.Now().UTC(),
		Nodes:     nodes,
		Edges:     edges,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(bundle)
}

// ImportJSON replaces the graph contents with a previously exported bundle.
//
// The bundle is validated before anything is deleted: a malformed payload
// leaves the existing graph untouched. Edges referencing nodes absent from
// the bundle fail the import with ErrInvalidBundle.
func ImportJSON(engine storage.Engine, r io.Reader) error {
	var bundle Bundle
	if err := json.NewDecoder(r).Decode(&bundle); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	if bundle.Nodes == nil {
		return fmt.Errorf("%w: missing nodes", ErrInvalidBundle)
	}

	nodeIDs := make(map[storage.NodeID]struct{}, len(bundle.Nodes))
	for _, node := range bundle.Nodes {
		if node == nil || node.ID == "" {
			return fmt.Errorf("%w: node without id", ErrInvalidBundle)
		}
		if _, dup := nodeIDs[node.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %s", ErrInvalidBundle, node.ID)
		}
		nodeIDs[node.ID] = struct{}{}
	}
	for _, edge := range bundle.Edges {
		if edge == nil || edge.ID == "" {
			return fmt.Errorf("%w: edge without id", ErrInvalidBundle)
		}
		if _, ok := nodeIDs[edge.Source]; !ok {
			return fmt.Errorf("%w: edge %s references unknown node %s",
				ErrInvalidBundle, edge.ID, edge.Source)
		}
		if _, ok := nodeIDs[edge.Target]; !ok {
			return fmt.Errorf("%w: edge %s references unknown node %s",
				ErrInvalidBundle, edge.ID, edge.Target)
		}
	}

	// Validation passed; now it is safe to replace the graph
	if err := engine.DeleteAllNodes(); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	if err := engine.BulkCreateNodes(bundle.Nodes); err != nil {
		return fmt.Errorf("failed to import nodes: %w", err)
	}
	if len(bundle.Edges) > 0 {
		if err := engine.BulkCreateEdges(bundle.Edges); err != nil {
			return fmt.Errorf("failed to import edges: %w", err)
		}
	}
	return nil
}

// filenameSanitizer matches characters that are unsafe in filenames.
var filenameSanitizer = regexp.MustCompile(`[/\\?%*:|"<>]`)

// ExportMarkdown writes every thought as a markdown file inside a ZIP
// archive. Filenames are derived from labels with unsafe characters
// replaced; colliding names get a numeric suffix.
func ExportMarkdown(engine storage.Engine, w io.Writer) error {
	nodes, err := engine.AllNodes()
	if err != nil {
		return fmt.Errorf("failed to read nodes: %w", err)
	}

	zw := zip.NewWriter(w)
	seen := make(map[string]int)

	for _, node := range nodes {
		name := filenameSanitizer.ReplaceAllString(node.Label, "-")
		if name == "" {
			name = string(node.ID)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s-%d", name, n)
		} else {
			seen[name] = 1
		}

		f, err := zw.Create(name + ".md")
		if err != nil {
			return fmt.Errorf("failed to create archive entry: %w", err)
		}

		content := "# " + node.Label + "\n\n" + node.Content
		if _, err := f.Write([]byte(content)); err != nil {
			return fmt.Errorf("failed to write archive entry: %w", err)
		}
	}

	return zw.Close()
}
