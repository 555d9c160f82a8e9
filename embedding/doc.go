// Package embedding turns chunk text into vectors. It normalizes the input,
// calls an ai.Embedder under a bounded retry policy, and reports exhausted or
// permanent failures as *Error values that match core.ErrEmbedding.
package embedding
