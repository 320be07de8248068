// Package qdrant implements the vector index port against a Qdrant instance
// over gRPC. Chunk IDs are content-addressed UUIDs, so they double as valid
// Qdrant point IDs and upserts are idempotent.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/wardenlabs/warden/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultCollection is the collection holding standards chunk vectors.
const DefaultCollection = "warden_standards_chunks"

// Config holds the connection settings for a Qdrant instance.
type Config struct {
	Host string
	Port int

	// Collection name; DefaultCollection if empty.
	Collection string

	// VectorSize must match the embedding model's dimensions.
	VectorSize uint64
}

// Index is a Qdrant-backed vector index.
type Index struct {
	client     *qdrant.Client
	collection string
}

// NewIndex connects to Qdrant and ensures the collection exists with a
// cosine-distance vector config of the given size.
func NewIndex(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant: vector size must be set")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect: %w", err)
	}

	idx := &Index{
		client:     client,
		collection: cfg.Collection,
	}
	if err := idx.ensureCollection(ctx, cfg.VectorSize); err != nil {
		client.Close()
		return nil, err
	}

	return idx, nil
}

// ensureCollection creates the collection when absent.
func (x *Index) ensureCollection(ctx context.Context, vectorSize uint64) error {
	existing, err := x.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("qdrant: list collections: %w", err)
	}
	for _, name := range existing {
		if name == x.collection {
			return nil
		}
	}

	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", x.collection, err)
	}
	return nil
}

// Upsert inserts or replaces the vector for the given chunk ID.
func (x *Index) Upsert(ctx context.Context, chunkID string, embedding []float32) error {
	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(chunkID),
				Vectors: qdrant.NewVectors(embedding...),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %s: %w", chunkID, err)
	}
	return nil
}

// Delete removes a vector from the index.
func (x *Index) Delete(ctx context.Context, chunkID string) error {
	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(chunkID)),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete %s: %w", chunkID, err)
	}
	return nil
}

// Search finds the k nearest neighbours to the query vector.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		k = 10
	}
	limit := uint64(k)

	points, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, driven.VectorHit{
			ChunkID:    p.GetId().GetUuid(),
			Similarity: float64(p.GetScore()),
		})
	}
	return hits, nil
}

// Close releases the gRPC connection.
func (x *Index) Close() error {
	return x.client.Close()
}
