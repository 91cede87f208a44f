package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Index stores embedded background chunks in chromem-go, an embedded
// pure-Go vector database, namespaced per companion.
type Index struct {
	db          *chromem.DB
	embedder    Embedder
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// NewIndex creates an empty index using the given embedder.
func NewIndex(embedder Embedder) *Index {
	return &Index{
		db:          chromem.NewDB(),
		embedder:    embedder,
		collections: make(map[string]*chromem.Collection),
	}
}

// collection returns the per-companion collection, creating it on first
// use. Each companion gets its own collection for namespace isolation.
func (ix *Index) collection(companionID string) (*chromem.Collection, error) {
	ix.mu.RLock()
	col, exists := ix.collections[companionID]
	ix.mu.RUnlock()
	if exists {
		return col, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	// Double-check after acquiring the write lock.
	if col, exists := ix.collections[companionID]; exists {
		return col, nil
	}

	col, err := ix.db.CreateCollection(
		"companion_"+companionID,
		nil, // no custom metadata
		nil, // embeddings are provided, cosine distance by default
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	ix.collections[companionID] = col
	return col, nil
}

// BuildIndex chunks and embeds a companion's background document into
// its collection. Called once per companion; the index is immutable
// within the chat flow. Returns the number of chunks indexed.
func (ix *Index) BuildIndex(ctx context.Context, companionID, background string) (int, error) {
	chunks := chunkDocument(background)
	if len(chunks) == 0 {
		return 0, nil
	}

	col, err := ix.collection(companionID)
	if err != nil {
		return 0, err
	}

	for i, chunk := range chunks {
		embedding, err := ix.embedder.Embed(ctx, chunk)
		if err != nil {
			return i, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		err = col.AddDocument(ctx, chromem.Document{
			ID:        fmt.Sprintf("%s-%d", companionID, i),
			Content:   chunk,
			Embedding: embedding,
			Metadata:  map[string]string{"companion_id": companionID},
		})
		if err != nil {
			return i, fmt.Errorf("add chunk %d: %w", i, err)
		}
	}

	log.Printf("[MEMORY] Indexed %d chunks for companion %s", len(chunks), companionID)
	return len(chunks), nil
}

// Search embeds query and returns up to k matches from the companion's
// collection, highest similarity first. A nil result is valid: an
// unknown companion or an empty collection yields no matches rather
// than an error.
func (ix *Index) Search(ctx context.Context, companionID, query string, k int) ([]Match, error) {
	ix.mu.RLock()
	col, exists := ix.collections[companionID]
	ix.mu.RUnlock()
	if !exists {
		return nil, nil
	}

	embedding, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// chromem-go rejects nResults larger than the collection; retry
	// with smaller limits until one fits or the collection turns out
	// to be empty.
	var results []chromem.Result
	for limit := k; limit >= 1; limit-- {
		results, err = col.QueryEmbedding(ctx, embedding, limit, nil, nil)
		if err == nil {
			break
		}
		if isTooFewDocsError(err) {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("query collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{Content: r.Content, Similarity: r.Similarity})
	}
	return matches, nil
}

func isTooFewDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
