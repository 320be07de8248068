package services

import (
	"context"
	"fmt"

	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
	"github.com/wardenlabs/warden/internal/core/ports/driving"
	"github.com/wardenlabs/warden/internal/logger"
	"github.com/wardenlabs/warden/internal/standards"
)

// Ensure IndexingService implements the interface.
var _ driving.IndexService = (*IndexingService)(nil)

// embedBatchSize caps one embedding request.
const embedBatchSize = 32

// IndexingService ingests standards markdown into the catalog, keyword index
// and vector index. Chunk IDs are content-addressed, so every write is an
// idempotent upsert and re-running the indexer over unchanged files changes
// nothing.
type IndexingService struct {
	catalog          driven.CatalogStore
	keywordIndex     driven.KeywordIndex
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	chunker          *standards.Chunker
}

// NewIndexingService creates an indexing service. vectorIndex and
// embeddingService are optional (can be nil); without them documents are
// still cataloged and keyword-indexed, just not embedded.
func NewIndexingService(
	catalog driven.CatalogStore,
	keywordIndex driven.KeywordIndex,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	chunker *standards.Chunker,
) *IndexingService {
	if chunker == nil {
		chunker = standards.NewChunker()
	}
	return &IndexingService{
		catalog:          catalog,
		keywordIndex:     keywordIndex,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		chunker:          chunker,
	}
}

// IndexDirectory loads every standard under root and indexes it. Any
// malformed document aborts the run before anything is written, so the
// catalog never holds a partial load.
func (s *IndexingService) IndexDirectory(ctx context.Context, root string) (*driving.IndexReport, error) {
	logger.Section("Indexing")
	logger.Debug("Root: %s", root)

	docs, err := standards.LoadDirectory(root)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded %d standards", len(docs))

	report := &driving.IndexReport{Documents: len(docs)}

	for i := range docs {
		doc := &docs[i]
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunks := s.chunker.Chunk(doc)
		logger.Debug("Standard %s: %d chunks", doc.StandardID, len(chunks))

		stale, err := s.staleChunkIDs(ctx, doc.StandardID, chunks)
		if err != nil {
			return nil, err
		}

		if err := s.catalog.UpsertStandard(ctx, *doc); err != nil {
			return nil, fmt.Errorf("upsert standard %s: %w", doc.StandardID, err)
		}
		if err := s.catalog.UpsertChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("upsert chunks for %s: %w", doc.StandardID, err)
		}

		if s.keywordIndex != nil {
			for _, chunk := range chunks {
				if err := s.keywordIndex.Index(ctx, chunk); err != nil {
					return nil, fmt.Errorf("keyword index %s: %w", chunk.ID, err)
				}
			}
		}

		if err := s.embedChunks(ctx, chunks); err != nil {
			return nil, err
		}

		if err := s.prune(ctx, stale); err != nil {
			return nil, err
		}
		report.Pruned += len(stale)
		report.Chunks += len(chunks)
	}

	logger.Info("Indexed %d documents, %d chunks, pruned %d stale chunks",
		report.Documents, report.Chunks, report.Pruned)
	return report, nil
}

// staleChunkIDs returns previously stored chunk IDs that the new chunk set no
// longer contains. A document that shrank or was rewritten leaves stale
// chunks behind; they must go or retrieval keeps surfacing deleted text.
func (s *IndexingService) staleChunkIDs(
	ctx context.Context, standardID string, chunks []domain.Chunk,
) ([]string, error) {
	existing, err := s.catalog.ListChunkIDs(ctx, standardID)
	if err != nil {
		return nil, fmt.Errorf("list chunks for %s: %w", standardID, err)
	}
	current := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		current[c.ID] = true
	}
	var stale []string
	for _, id := range existing {
		if !current[id] {
			stale = append(stale, id)
		}
	}
	return stale, nil
}

// embedChunks generates embeddings in batches and upserts them into the
// vector index. No-op when embedding or vector storage is unavailable.
func (s *IndexingService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if s.vectorIndex == nil || s.embeddingService == nil || len(chunks) == 0 {
		return nil
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		embeddings, err := s.embeddingService.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedding batch: got %d vectors for %d texts",
				len(embeddings), len(batch))
		}

		for i, c := range batch {
			if err := s.vectorIndex.Upsert(ctx, c.ID, embeddings[i]); err != nil {
				return fmt.Errorf("vector upsert %s: %w", c.ID, err)
			}
		}
	}
	return nil
}

// prune removes stale chunks from every store.
func (s *IndexingService) prune(ctx context.Context, chunkIDs []string) error {
	for _, id := range chunkIDs {
		if err := s.catalog.DeleteChunk(ctx, id); err != nil {
			return fmt.Errorf("prune chunk %s: %w", id, err)
		}
		if s.keywordIndex != nil {
			if err := s.keywordIndex.Delete(ctx, id); err != nil {
				return fmt.Errorf("prune keyword %s: %w", id, err)
			}
		}
		if s.vectorIndex != nil {
			if err := s.vectorIndex.Delete(ctx, id); err != nil {
				return fmt.Errorf("prune vector %s: %w", id, err)
			}
		}
	}
	return nil
}
