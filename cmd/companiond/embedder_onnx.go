//go:build onnx

package main

import (
	"github.com/solacelabs/companiond/internal/config"
	"github.com/solacelabs/companiond/internal/memory"
	"github.com/solacelabs/companiond/internal/memory/embedder/onnx"
)

// newEmbedder returns the all-MiniLM-L6-v2 embedder. Model and
// tokenizer paths come from COMPANIOND_ONNX_MODEL and
// COMPANIOND_ONNX_TOKENIZER; the onnxruntime shared library location
// from ONNXRUNTIME_LIB.
func newEmbedder(cfg *config.Config) (memory.Embedder, error) {
	return onnx.New(onnx.Config{
		ModelPath:     cfg.ONNXModelPath,
		TokenizerPath: cfg.ONNXTokenizerPath,
	})
}
