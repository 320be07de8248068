package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
)

// Ensure CatalogStore implements the interface.
var _ driven.CatalogStore = (*CatalogStore)(nil)

// CatalogStore is an in-memory implementation of driven.CatalogStore.
type CatalogStore struct {
	mu        sync.RWMutex
	standards map[string]domain.StandardDocument
	chunks    map[string]domain.Chunk
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		standards: make(map[string]domain.StandardDocument),
		chunks:    make(map[string]domain.Chunk),
	}
}

// UpsertStandard stores or replaces a standard.
func (s *CatalogStore) UpsertStandard(_ context.Context, doc domain.StandardDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.standards[doc.StandardID] = doc
	return nil
}

// UpsertChunks stores chunks keyed by ID.
func (s *CatalogStore) UpsertChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// GetStandard retrieves a standard by ID.
func (s *CatalogStore) GetStandard(_ context.Context, standardID string) (*domain.StandardDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.standards[standardID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetChunk retrieves a chunk by ID.
func (s *CatalogStore) GetChunk(_ context.Context, chunkID string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// ListByScope returns all standards with the given scope, ordered by ID.
func (s *CatalogStore) ListByScope(_ context.Context, scope domain.AppliesScope) ([]domain.StandardDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []domain.StandardDocument
	for _, doc := range s.standards {
		if doc.Scope == scope {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].StandardID < docs[j].StandardID
	})
	return docs, nil
}

// DeleteStandard removes a standard and its chunks.
func (s *CatalogStore) DeleteStandard(_ context.Context, standardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.standards, standardID)
	for id, chunk := range s.chunks {
		if chunk.StandardID == standardID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// ListChunkIDs returns the chunk IDs of a standard in sequence order.
func (s *CatalogStore) ListChunkIDs(_ context.Context, standardID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chunks []domain.Chunk
	for _, chunk := range s.chunks {
		if chunk.StandardID == standardID {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Sequence < chunks[j].Sequence
	})
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
	}
	return ids, nil
}

// DeleteChunk removes a single chunk by ID.
func (s *CatalogStore) DeleteChunk(_ context.Context, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, chunkID)
	return nil
}

// Close is a no-op.
func (s *CatalogStore) Close() error {
	return nil
}
