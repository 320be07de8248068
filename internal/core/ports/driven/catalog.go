package driven

import (
	"context"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// CatalogStore persists standards documents and their chunks. It is the
// source of truth for the always-scope catalog pull: mandatory standards are
// read here directly, never through similarity search, so a retrieval outage
// can never silently omit them.
type CatalogStore interface {
	// UpsertStandard writes or replaces a standard by its StandardID.
	UpsertStandard(ctx context.Context, doc domain.StandardDocument) error

	// UpsertChunks writes chunks keyed by their content-addressed IDs.
	// Upsert is commutative per chunk ID, so concurrent re-index runs are
	// safe without locking.
	UpsertChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetStandard retrieves a standard by ID.
	// Returns domain.ErrNotFound if absent.
	GetStandard(ctx context.Context, standardID string) (*domain.StandardDocument, error)

	// GetChunk retrieves a chunk by its content-addressed ID.
	// Returns domain.ErrNotFound if absent.
	GetChunk(ctx context.Context, chunkID string) (*domain.Chunk, error)

	// ListByScope returns all standards with the given scope, for the
	// always-scope catalog pull.
	ListByScope(ctx context.Context, scope domain.AppliesScope) ([]domain.StandardDocument, error)

	// DeleteStandard removes a standard and its chunks.
	DeleteStandard(ctx context.Context, standardID string) error

	// ListChunkIDs returns the IDs of all chunks belonging to a standard,
	// used to prune stale chunks after a document shrinks.
	ListChunkIDs(ctx context.Context, standardID string) ([]string, error)

	// DeleteChunk removes a single chunk by ID.
	DeleteChunk(ctx context.Context, chunkID string) error

	// Close releases resources.
	Close() error
}
