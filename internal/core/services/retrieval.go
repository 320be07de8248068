package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
	"github.com/wardenlabs/warden/internal/logger"
)

// DefaultRetrievalTimeout bounds one retrieval round trip. Retrieval is
// advisory for conditional standards; a slow index must not stall the review.
const DefaultRetrievalTimeout = 10 * time.Second

// scoredChunk holds intermediate retrieval results before hydration.
type scoredChunk struct {
	chunkID string
	score   float64
	source  string // "keyword", "vector", or "merged"
}

// RetrievalService runs hybrid search over the indexed standards corpus and
// hydrates hits into full documents.
type RetrievalService struct {
	catalog          driven.CatalogStore
	keywordIndex     driven.KeywordIndex
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	timeout          time.Duration
}

// RetrievalOption configures the retrieval service.
type RetrievalOption func(*RetrievalService)

// WithRetrievalTimeout overrides the per-call timeout.
func WithRetrievalTimeout(d time.Duration) RetrievalOption {
	return func(s *RetrievalService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewRetrievalService creates a retrieval service. vectorIndex and
// embeddingService are optional (can be nil); retrieval degrades to
// keyword-only without them.
func NewRetrievalService(
	catalog driven.CatalogStore,
	keywordIndex driven.KeywordIndex,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	opts ...RetrievalOption,
) *RetrievalService {
	s := &RetrievalService{
		catalog:          catalog,
		keywordIndex:     keywordIndex,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		timeout:          DefaultRetrievalTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve runs hybrid search for the query and returns hydrated standards,
// best first. The pool is bounded by query.SemanticTopK, not query.TopK:
// applicability filtering happens downstream and must see every candidate,
// so the final TopK cap is the caller's to apply after filtering. Chunks
// whose parent document has been deleted since indexing are skipped. Returns
// domain.ErrRetrievalUnavailable when no search leg could run at all.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query domain.RetrievalQuery,
) ([]domain.RetrievedStandard, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", query.Text)

	text := strings.TrimSpace(query.Text)
	if text == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.RetrievedStandard{}, nil
	}

	topK := query.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	semanticTopK := query.SemanticTopK
	if semanticTopK <= 0 {
		semanticTopK = domain.DefaultSemanticTopK
	}
	if semanticTopK < topK {
		semanticTopK = topK
	}
	logger.Debug("TopK: %d, SemanticTopK: %d", topK, semanticTopK)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	chunks, err := s.hybridSearch(ctx, text, semanticTopK)
	if err != nil {
		logger.Warn("Retrieval failed: %v", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalUnavailable, err)
	}
	logger.Debug("Raw results: %d chunks", len(chunks))

	results, err := s.hydrateResults(ctx, chunks, semanticTopK)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}
	logger.Info("Retrieved standards: %d", len(results))

	return results, nil
}

// keywordSearch performs full-text search over chunk text.
func (s *RetrievalService) keywordSearch(ctx context.Context, query string, limit int) ([]scoredChunk, error) {
	if s.keywordIndex == nil {
		logger.Warn("Keyword search unavailable: index is nil")
		return nil, domain.ErrKeywordIndexUnavailable
	}

	hits, err := s.keywordIndex.Search(ctx, query, limit)
	if err != nil {
		logger.Warn("Keyword search error: %v", err)
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	logger.Debug("Keyword search: %d hits", len(hits))

	results := make([]scoredChunk, len(hits))
	for i, hit := range hits {
		results[i] = scoredChunk{
			chunkID: hit.ChunkID,
			score:   hit.Score,
			source:  "keyword",
		}
	}
	return results, nil
}

// vectorSearch performs semantic similarity search.
func (s *RetrievalService) vectorSearch(ctx context.Context, query string, limit int) ([]scoredChunk, error) {
	if s.vectorIndex == nil {
		logger.Warn("Vector search unavailable: vector index is nil")
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embeddingService == nil {
		logger.Warn("Vector search unavailable: embedding service is nil")
		return nil, domain.ErrEmbeddingUnavailable
	}

	embedding, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, fmt.Errorf("generate query embedding: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(embedding))

	hits, err := s.vectorIndex.Search(ctx, embedding, limit)
	if err != nil {
		logger.Warn("Vector index search failed: %v", err)
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search: %d hits", len(hits))

	results := make([]scoredChunk, len(hits))
	for i, hit := range hits {
		results[i] = scoredChunk{
			chunkID: hit.ChunkID,
			score:   hit.Similarity,
			source:  "vector",
		}
	}
	return results, nil
}

// hybridSearch runs keyword and vector search in parallel and merges the
// ranked lists with RRF. If one leg fails the other's results are used alone;
// only a double failure is an error.
func (s *RetrievalService) hybridSearch(ctx context.Context, query string, limit int) ([]scoredChunk, error) {
	var keywordResults, vectorResults []scoredChunk
	var keywordErr, vectorErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		keywordResults, keywordErr = s.keywordSearch(ctx, query, limit)
	}()

	go func() {
		defer wg.Done()
		vectorResults, vectorErr = s.vectorSearch(ctx, query, limit)
	}()

	wg.Wait()

	if keywordErr != nil && vectorErr != nil {
		logger.Warn("Hybrid search: both keyword and vector searches failed")
		return nil, fmt.Errorf("hybrid search: keyword=%w, vector=%w", keywordErr, vectorErr)
	}
	if keywordErr != nil {
		logger.Warn("Hybrid search: keyword search failed, using vector results only")
		return vectorResults, nil
	}
	if vectorErr != nil {
		logger.Warn("Hybrid search: vector search failed, using keyword results only")
		return keywordResults, nil
	}

	logger.Debug("Hybrid search: merging %d keyword + %d vector results with RRF",
		len(keywordResults), len(vectorResults))
	return reciprocalRankFusion(keywordResults, vectorResults, 60), nil
}

// Merges two ranked lists using Reciprocal Rank Fusion (RRF).
// k is the constant (typically 60) to prevent high ranks from dominating.
//
//nolint:godot // Private function - no exported name to start with.
func reciprocalRankFusion(list1, list2 []scoredChunk, k int) []scoredChunk {
	scores := make(map[string]float64)
	seen := make(map[string]bool)

	for rank, chunk := range list1 {
		scores[chunk.chunkID] += 1.0 / float64(k+rank+1)
		seen[chunk.chunkID] = true
	}
	for rank, chunk := range list2 {
		scores[chunk.chunkID] += 1.0 / float64(k+rank+1)
		seen[chunk.chunkID] = true
	}

	results := make([]scoredChunk, 0, len(seen))
	for id := range seen {
		results = append(results, scoredChunk{
			chunkID: id,
			score:   scores[id],
			source:  "merged",
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunkID < results[j].chunkID
	})

	return results
}

// hydrateResults converts chunk IDs to full RetrievedStandard objects,
// stopping once limit documents survive hydration.
func (s *RetrievalService) hydrateResults(
	ctx context.Context, chunks []scoredChunk, limit int,
) ([]domain.RetrievedStandard, error) {
	if s.catalog == nil {
		return nil, errors.New("catalog store unavailable")
	}

	results := make([]domain.RetrievedStandard, 0, limit)

	for _, sc := range chunks {
		if len(results) >= limit {
			break
		}

		chunk, err := s.catalog.GetChunk(ctx, sc.chunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Chunk was pruned since the index was built, skip it.
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", sc.chunkID, err)
		}

		doc, err := s.catalog.GetStandard(ctx, chunk.StandardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get standard %s: %w", chunk.StandardID, err)
		}

		results = append(results, domain.RetrievedStandard{
			Document:  *doc,
			ChunkID:   chunk.ID,
			ChunkText: chunk.Text,
			Score:     sc.score,
		})
	}

	return results, nil
}
