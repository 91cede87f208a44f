package memory

import (
	"context"
	"strings"
)

// Embedder converts text to vector embeddings.
// Implementations: mock (deterministic, for tests and keyless dev),
// onnx (all-MiniLM-L6-v2, real semantic search, offline).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Match is one scored retrieval from a companion's background document.
type Match struct {
	Content    string
	Similarity float32
}

// maxChunkBytes bounds a single indexed chunk. Paragraphs are merged up
// to this size so tiny fragments don't dilute retrieval.
const maxChunkBytes = 600

// chunkDocument splits a background document into indexable chunks:
// blank-line paragraphs, merged greedily up to maxChunkBytes.
func chunkDocument(text string) []string {
	var chunks []string
	var current strings.Builder

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+1 > maxChunkBytes {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
