package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
)

// Ensure KeywordIndex implements the interface.
var _ driven.KeywordIndex = (*KeywordIndex)(nil)

// KeywordIndex is an in-memory implementation of driven.KeywordIndex. It
// scores by counting query term occurrences, which is enough for tests; the
// production index is SQLite FTS5.
type KeywordIndex struct {
	mu    sync.RWMutex
	texts map[string]string
}

// NewKeywordIndex creates a new in-memory keyword index.
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{
		texts: make(map[string]string),
	}
}

// Index adds or replaces a chunk.
func (k *KeywordIndex) Index(_ context.Context, chunk domain.Chunk) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.texts[chunk.ID] = strings.ToLower(chunk.Text)
	return nil
}

// Delete removes a chunk.
func (k *KeywordIndex) Delete(_ context.Context, chunkID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.texts, chunkID)
	return nil
}

// Search returns chunks containing query terms, best first.
func (k *KeywordIndex) Search(_ context.Context, query string, limit int) ([]driven.SearchHit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []driven.SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	var hits []driven.SearchHit
	for id, text := range k.texts {
		score := 0.0
		for _, term := range terms {
			score += float64(strings.Count(text, term))
		}
		if score > 0 {
			hits = append(hits, driven.SearchHit{ChunkID: id, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close is a no-op.
func (k *KeywordIndex) Close() error {
	return nil
}
