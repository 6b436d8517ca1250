package search

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// BM25 parameters (standard values)
const (
	bm25K1 = 1.2  // Term frequency saturation
	bm25B  = 0.75 // Length normalization
)

// FulltextIndex provides BM25-based full-text search.
// It indexes documents and supports keyword search with TF-IDF scoring.
type FulltextIndex struct {
	mu sync.RWMutex

	// Document storage: docID -> original text
	documents map[string]string

	// Inverted index: term -> docID -> term frequency
	invertedIndex map[string]map[string]int

	// Document lengths: docID -> word count
	docLengths map[string]int

	// Average document length (for BM25)
	avgDocLength float64

	// Total document count
	docCount int
}

// NewFulltextIndex creates a new full-text search index.
func NewFulltextIndex() *FulltextIndex {
	return &FulltextIndex{
		documents:     make(map[string]string),
		invertedIndex: make(map[string]map[string]int),
		docLengths:    make(map[string]int),
	}
}

// Index adds or updates a document in the index.
func (f *FulltextIndex) Index(id string, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removeInternal(id)

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return
	}

	f.documents[id] = text
	f.docLengths[id] = len(tokens)
	f.docCount++

	termFreq := make(map[string]int)
	for _, token := range tokens {
		termFreq[token]++
	}

	for term, freq := range termFreq {
		if f.invertedIndex[term] == nil {
			f.invertedIndex[term] = make(map[string]int)
		}
		f.invertedIndex[term][id] = freq
	}

	f.updateAvgDocLength()
}

// Remove removes a document from the index.
func (f *FulltextIndex) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeInternal(id)
}

// removeInternal removes a document without locking.
func (f *FulltextIndex) removeInternal(id string) {
	if _, exists := f.documents[id]; !exists {
		return
	}

	text := f.documents[id]
	tokens := tokenize(text)

	termFreq := make(map[string]int)
	for _, token := range tokens {
		termFreq[token]++
	}

	for term := range termFreq {
		if docs, ok := f.invertedIndex[term]; ok {
			delete(docs, id)
			if len(docs) == 0 {
				delete(f.invertedIndex, term)
			}
		}
	}

	delete(f.documents, id)
	delete(f.docLengths, id)
	f.docCount--
	f.updateAvgDocLength()
}

// Search performs BM25 keyword search.
// Returns results sorted by BM25 score (highest first). Prefix matching is
// included with a reduced weight so that "graph" still finds "graphs".
func (f *FulltextIndex) Search(query string, limit int) []Result {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.docCount == 0 {
		return nil
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	scores := make(map[string]float64)

	for _, term := range queryTerms {
		if docs, exists := f.invertedIndex[term]; exists {
			idf := f.calculateIDF(term)
			for docID, termFreq := range docs {
				scores[docID] += idf * f.bm25TermScore(docID, termFreq)
			}
		}

		// Prefix matches count too, at reduced strength
		for indexedTerm, termDocs := range f.invertedIndex {
			if indexedTerm != term && strings.HasPrefix(indexedTerm, term) {
				idf := f.calculateIDF(indexedTerm) * 0.8
				for docID, termFreq := range termDocs {
					scores[docID] += idf * f.bm25TermScore(docID, termFreq)
				}
			}
		}
	}

	type scored struct {
		id    string
		score float64
	}
	var results []scored
	for id, score := range scores {
		results = append(results, scored{id: id, score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].id < results[j].id
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	output := make([]Result, len(results))
	for i, r := range results {
		output[i] = Result{ID: r.id, Score: r.score}
	}

	return output
}

// bm25TermScore computes the TF component of BM25 for one document.
// Caller must hold at least the read lock.
func (f *FulltextIndex) bm25TermScore(docID string, termFreq int) float64 {
	docLen := float64(f.docLengths[docID])
	tf := float64(termFreq)
	numerator := tf * (bm25K1 + 1)
	denominator := tf + bm25K1*(1-bm25B+bm25B*(docLen/f.avgDocLength))
	return numerator / denominator
}

// calculateIDF calculates the Inverse Document Frequency for a term.
// Uses the Lucene BM25 variant: log(1 + (N - df + 0.5) / (df + 0.5)),
// which keeps IDF non-negative for very common terms.
func (f *FulltextIndex) calculateIDF(term string) float64 {
	df := float64(len(f.invertedIndex[term]))
	n := float64(f.docCount)

	idf := math.Log(1 + (n-df+0.5)/(df+0.5))
	if idf < 0 {
		idf = 0
	}
	return idf
}

// updateAvgDocLength recalculates average document length.
func (f *FulltextIndex) updateAvgDocLength() {
	if f.docCount == 0 {
		f.avgDocLength = 0
		return
	}

	var total int
	for _, length := range f.docLengths {
		total += length
	}
	f.avgDocLength = float64(total) / float64(f.docCount)
}

// Count returns the number of indexed documents.
func (f *FulltextIndex) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.docCount
}

// tokenize splits text into lowercase tokens.
// Removes punctuation, single characters, and common stop words.
func tokenize(text string) []string {
	text = strings.ToLower(text)

	words := strings.FieldsFunc(text, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})

	var tokens []string
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		if isStopWord(word) {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// stopWords is a minimal list focused on truly generic words.
// Domain terms like "learning" or "query" are deliberately NOT filtered.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"with": true, "this": true, "but": true, "they": true,
	"we": true, "you": true, "your": true, "my": true, "their": true,
	"been": true, "do": true, "does": true, "did": true,
}

func isStopWord(word string) bool {
	return stopWords[word]
}
