package driving

import "context"

// IndexService ingests standards documents into the search store.
type IndexService interface {
	// IndexDirectory parses, chunks, embeds and upserts every markdown
	// standard under root. Any malformed document fails the whole run.
	// Re-running against unchanged content is a no-op upsert.
	IndexDirectory(ctx context.Context, root string) (*IndexReport, error)
}

// IndexReport summarises one indexing run.
type IndexReport struct {
	// Documents is the number of standards parsed.
	Documents int

	// Chunks is the number of chunks upserted.
	Chunks int

	// Pruned is the number of stale chunks removed for shrunken documents.
	Pruned int
}
