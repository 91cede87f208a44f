package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/solacelabs/companiond/internal/memory/embedder/mock"
)

func TestChunkDocument(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\n  \n\n", 0},
		{"single paragraph", "Aria grew up by the sea.", 1},
		{"small paragraphs merge", "One.\n\nTwo.\n\nThree.", 1},
		{"large paragraphs split", strings.Repeat("x", 500) + "\n\n" + strings.Repeat("y", 500), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(chunkDocument(tt.text)); got != tt.want {
				t.Errorf("chunkDocument(%q...) = %d chunks, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestIndexBuildAndSearch(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(mock.New())

	background := "Aria grew up in a lighthouse on the northern coast.\n\n" +
		"She paints watercolors of the sea every morning.\n\n" +
		strings.Repeat("Her favorite color is a deep ocean blue. ", 20)

	n, err := ix.BuildIndex(ctx, "aria", background)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	if n == 0 {
		t.Fatal("expected chunks to be indexed")
	}

	matches, err := ix.Search(ctx, "aria", "tell me about the lighthouse", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one match from a populated index")
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Errorf("matches not sorted by similarity: %v then %v",
				matches[i-1].Similarity, matches[i].Similarity)
		}
	}
}

func TestIndexSearchLimitClamped(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(mock.New())

	// One chunk indexed, ask for ten: chromem rejects oversized limits
	// and Search retries downward.
	if _, err := ix.BuildIndex(ctx, "aria", "A single short paragraph."); err != nil {
		t.Fatalf("build index: %v", err)
	}

	matches, err := ix.Search(ctx, "aria", "anything", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestIndexUnknownCompanionDegrades(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(mock.New())

	matches, err := ix.Search(ctx, "nobody", "query", 3)
	if err != nil {
		t.Fatalf("search on unknown companion should not error: %v", err)
	}
	if matches != nil {
		t.Fatalf("got %v, want no matches", matches)
	}
}

func TestIndexCompanionIsolation(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(mock.New())

	ix.BuildIndex(ctx, "aria", "Aria's past is all about lighthouses.")
	ix.BuildIndex(ctx, "finn", "Finn's past is all about mountains.")

	matches, err := ix.Search(ctx, "aria", "past", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, m := range matches {
		if strings.Contains(m.Content, "Finn") {
			t.Errorf("aria's search surfaced finn's chunk: %q", m.Content)
		}
	}
}
