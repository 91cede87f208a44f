//go:build !onnx

package main

import (
	"github.com/solacelabs/companiond/internal/config"
	"github.com/solacelabs/companiond/internal/memory"
	"github.com/solacelabs/companiond/internal/memory/embedder/mock"
)

// newEmbedder returns the deterministic mock embedder. Build with
// -tags onnx for real sentence embeddings.
func newEmbedder(*config.Config) (memory.Embedder, error) {
	return mock.New(), nil
}
