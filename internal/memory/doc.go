// Package memory provides the semantic index over companion background
// documents.
//
// Each companion's background text is chunked, embedded, and stored in
// a per-companion collection once, at companion creation. At chat time
// the index is queried with the joined recent history (not just the
// latest utterance), so retrieval is conditioned on conversational
// context. An empty result set is valid; the context assembler simply
// omits the relevant-history section.
//
// Architecture:
//   - Embedder: text-to-vector conversion (mock for tests/dev, ONNX
//     all-MiniLM-L6-v2 behind the `onnx` build tag)
//   - Index: chromem-go backed storage and similarity search
package memory
