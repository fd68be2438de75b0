// Package embeddings defines the Provider interface for vector embedding
// backends.
//
// Embedding vectors power the semantic phrase search: each phrase library
// entry is embedded once at ingest and dictated queries are embedded at
// lookup time, with nearest-neighbour ranking done in Postgres via pgvector.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by a single Provider instance share the same
// dimensionality (Dimensions). Vectors from different providers or models
// must never be mixed in one similarity computation.
type Provider interface {
	// Embed computes the embedding vector for a single text string. Returns
	// a float32 slice of length Dimensions or an error if the request fails
	// or ctx is cancelled. Text passes through verbatim; any model-specific
	// prefixing is the caller's job.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes vectors for a slice of texts in one provider call.
	// The i-th result corresponds to texts[i]. On error the entire result is
	// nil; partial results are not returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector this provider
	// produces.
	Dimensions() int

	// ModelID returns the provider-specific model identifier, for logging
	// and for verifying that stored vectors match the active model.
	ModelID() string
}
