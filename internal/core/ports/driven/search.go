package driven

import (
	"context"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// KeywordIndex provides full-text search operations over chunk text.
// Backed by SQLite FTS5 (BM25 ranking).
type KeywordIndex interface {
	// Index adds or replaces a chunk in the keyword index.
	Index(ctx context.Context, chunk domain.Chunk) error

	// Delete removes a chunk from the keyword index.
	Delete(ctx context.Context, chunkID string) error

	// Search performs a keyword search and returns matching chunk IDs with
	// scores, best first.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Close releases resources.
	Close() error
}

// SearchHit represents a keyword search result.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the relevance score (BM25).
	Score float64
}
