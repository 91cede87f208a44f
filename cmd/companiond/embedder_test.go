//go:build !onnx

package main

import (
	"context"
	"reflect"
	"testing"

	"github.com/solacelabs/companiond/internal/config"
)

func TestNewEmbedderDefaultBuild(t *testing.T) {
	e, err := newEmbedder(&config.Config{})
	if err != nil {
		t.Fatalf("newEmbedder: %v", err)
	}
	if e.Dimensions() != 384 {
		t.Errorf("dimensions = %d, want 384", e.Dimensions())
	}

	ctx := context.Background()
	first, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("re-embed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("default embedder must be deterministic")
	}
}
