package memory

import (
	"context"
	"testing"

	"github.com/wardenlabs/warden/internal/core/domain"
)

func TestCatalogStore(t *testing.T) {
	ctx := context.Background()
	s := NewCatalogStore()

	doc := domain.StandardDocument{
		StandardID: "std-1",
		Type:       domain.StandardTypeTeam,
		Scope:      domain.ScopeAlways,
		Title:      "T",
	}
	if err := s.UpsertStandard(ctx, doc); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := s.GetStandard(ctx, "std-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "T" {
		t.Errorf("unexpected title %q", got.Title)
	}

	if _, err := s.GetStandard(ctx, "missing"); err != domain.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	chunks := []domain.Chunk{
		{ID: "c2", StandardID: "std-1", Sequence: 1, Text: "two"},
		{ID: "c1", StandardID: "std-1", Sequence: 0, Text: "one"},
	}
	if err := s.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("upsert chunks failed: %v", err)
	}

	ids, err := s.ListChunkIDs(ctx, "std-1")
	if err != nil {
		t.Fatalf("list chunk ids failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("expected sequence order [c1 c2], got %v", ids)
	}

	if err := s.DeleteChunk(ctx, "c1"); err != nil {
		t.Fatalf("delete chunk failed: %v", err)
	}
	if _, err := s.GetChunk(ctx, "c1"); err != domain.ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	if err := s.DeleteStandard(ctx, "std-1"); err != nil {
		t.Fatalf("delete standard failed: %v", err)
	}
	if _, err := s.GetChunk(ctx, "c2"); err != domain.ErrNotFound {
		t.Errorf("expected chunks to be removed with their standard, got %v", err)
	}
}

func TestKeywordIndex(t *testing.T) {
	ctx := context.Background()
	k := NewKeywordIndex()

	if err := k.Index(ctx, domain.Chunk{ID: "c1", Text: "payment retry logic"}); err != nil {
		t.Fatal(err)
	}
	if err := k.Index(ctx, domain.Chunk{ID: "c2", Text: "logging conventions"}); err != nil {
		t.Fatal(err)
	}

	hits, err := k.Search(ctx, "payment", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "c1" {
		t.Errorf("expected c1 only, got %v", hits)
	}

	if err := k.Delete(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	hits, err = k.Search(ctx, "payment", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits after delete, got %v", hits)
	}

	hits, err = k.Search(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits for empty query, got %v", hits)
	}
}

func TestVectorIndex(t *testing.T) {
	ctx := context.Background()
	v := NewVectorIndex()

	if err := v.Upsert(ctx, "x", []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := v.Upsert(ctx, "y", []float32{0, 1}); err != nil {
		t.Fatal(err)
	}

	hits, err := v.Search(ctx, []float32{1, 0.1}, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 || hits[0].ChunkID != "x" {
		t.Errorf("expected x nearest, got %v", hits)
	}
	if hits[0].Similarity <= hits[1].Similarity {
		t.Errorf("expected descending similarity, got %v", hits)
	}

	if err := v.Delete(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	hits, err = v.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "y" {
		t.Errorf("expected y only after delete, got %v", hits)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("expected 1, got %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("expected 0 for mismatched dimensions, got %f", got)
	}
	if got := cosineSimilarity(nil, nil); got != 0 {
		t.Errorf("expected 0 for empty vectors, got %f", got)
	}
}
