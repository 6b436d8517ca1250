package thoughtdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mindcanvas/thoughtdb/pkg/embed"
	"github.com/mindcanvas/thoughtdb/pkg/search"
	"github.com/mindcanvas/thoughtdb/pkg/storage"
)

// SearchResult pairs a thought with its similarity score.
type SearchResult struct {
	Thought *storage.Node
	Score   float64
}

// Search finds thoughts semantically similar to the query text.
//
// The query is embedded and matched against the session index with a high
// similarity floor, so results are few and relevant rather than many and
// vague. If the embedding provider is down, the search degrades to BM25
// keyword matching instead of failing.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vector, err := db.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, embed.ErrProviderUnavailable) {
			return db.SearchKeyword(ctx, query, limit)
		}
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := db.index.SearchVector(ctx, vector, limit, DefaultSearchFloor)
	if err != nil {
		return nil, err
	}
	return db.resolveResults(hits)
}

// SearchKeyword finds thoughts by BM25 keyword match, no embeddings needed.
func (db *DB) SearchKeyword(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	hits, err := db.index.SearchText(query, limit)
	if err != nil {
		return nil, err
	}
	return db.resolveResults(hits)
}

// RelatedTo finds thoughts similar to an existing thought.
//
// The anchor's own stored embedding is the query, so this works offline
// once embeddings exist; it returns ErrNoEmbedding for thoughts the
// provider has not embedded yet. The similarity floor is deliberately low:
// this powers a browsing panel where loose associations are welcome. The
// anchor itself is excluded from the results.
func (db *DB) RelatedTo(ctx context.Context, id storage.NodeID, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	node, err := db.storage.GetNode(id)
	if err != nil {
		return nil, err
	}
	if len(node.Embedding) == 0 || isZeroVector(node.Embedding) {
		return nil, ErrNoEmbedding
	}

	// Fetch one extra so dropping the anchor still fills the limit
	hits, err := db.index.SearchVector(ctx, node.Embedding, limit+1, DefaultRelatedFloor)
	if err != nil {
		return nil, err
	}

	filtered := hits[:0]
	for _, hit := range hits {
		if hit.ID == string(id) {
			continue
		}
		filtered = append(filtered, hit)
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return db.resolveResults(filtered)
}

// resolveResults loads the thoughts behind index hits. Hits whose thought
// vanished between indexing and lookup are skipped.
func (db *DB) resolveResults(hits []search.Result) ([]SearchResult, error) {
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		node, err := db.storage.GetNode(storage.NodeID(hit.ID))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Thought: node, Score: hit.Score})
	}
	return results, nil
}

func isZeroVector(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// ============================================================================
// Retrieval-augmented generation
// ============================================================================

// AssembleContext retrieves the k thoughts most relevant to a question and
// formats them as grounding context for the generator. A non-positive k uses
// the default search limit. Returns ErrNoContext when nothing in the graph
// is similar enough.
func (db *DB) AssembleContext(ctx context.Context, question string, k int) (string, error) {
	results, err := db.Search(ctx, question, k)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", ErrNoContext
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "Thought %d:\nLabel: %s\nContent: %s\n\n",
			i+1, r.Thought.Label, orNoContent(r.Thought.Content))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// Chat answers a question grounded in the user's own thoughts.
//
// The most relevant thoughts are retrieved and handed to the generator as
// context; the model is instructed to answer from them rather than from
// general knowledge. Returns ErrNoContext when the graph holds nothing
// relevant to the question.
func (db *DB) Chat(ctx context.Context, question string) (string, error) {
	contextBlock, err := db.AssembleContext(ctx, question, DefaultSearchLimit)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`You are a personal knowledge assistant. Answer the question using only the user's own thoughts below. If the thoughts do not contain the answer, say so.

%s

Question: %s

Answer:`, contextBlock, question)

	return db.generator.Generate(ctx, prompt)
}

// ExplainConnection asks the generator why two thoughts might be linked.
func (db *DB) ExplainConnection(ctx context.Context, source, target storage.NodeID) (string, error) {
	a, err := db.storage.GetNode(source)
	if err != nil {
		return "", err
	}
	b, err := db.storage.GetNode(target)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`You are a knowledge synthesis assistant. Below are two thoughts from a user's knowledge graph.
Explain a potential conceptual connection or insight that links these two thoughts.
Be concise but profound.

Thought 1:
Label: %s
Content: %s

Thought 2:
Label: %s
Content: %s

Connection Explanation:`,
		a.Label, orNoContent(a.Content),
		b.Label, orNoContent(b.Content))

	return db.generator.Generate(ctx, prompt)
}

// ExplainConnections asks the generator for the themes linking a group of
// thoughts. At least two thoughts are required.
func (db *DB) ExplainConnections(ctx context.Context, ids []storage.NodeID) (string, error) {
	if len(ids) < 2 {
		return "", fmt.Errorf("at least two thoughts are required to explain connections")
	}

	thoughts, err := db.formatThoughtList(ids)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`You are a knowledge synthesis assistant. Below are %d thoughts from a user's knowledge graph.
Explain the potential conceptual connections, patterns, or overarching themes that link all these thoughts together.
Identify how they relate to each other and what insights emerge from considering them as a group.
Be concise but profound.

%s

Connection Explanation:`, len(ids), thoughts)

	return db.generator.Generate(ctx, prompt)
}

// Summarize asks the generator for a summary and suggested title covering
// a cluster of thoughts.
func (db *DB) Summarize(ctx context.Context, ids []storage.NodeID) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("at least one thought is required to summarize")
	}

	thoughts, err := db.formatThoughtList(ids)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Summarize the overarching theme and key insights from the following collection of thoughts.
Provide a concise summary and a suggested title for this cluster.

Thoughts:
%s

Summary:`, thoughts)

	return db.generator.Generate(ctx, prompt)
}

// formatThoughtList loads thoughts and renders them as a numbered block.
func (db *DB) formatThoughtList(ids []storage.NodeID) (string, error) {
	var sb strings.Builder
	for i, id := range ids {
		node, err := db.storage.GetNode(id)
		if err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Thought %d:\nLabel: %s\nContent: %s",
			i+1, node.Label, orNoContent(node.Content))
	}
	return sb.String(), nil
}

func orNoContent(content string) string {
	if content == "" {
		return "No content"
	}
	return content
}
