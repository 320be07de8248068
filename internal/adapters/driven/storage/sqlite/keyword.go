package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
)

// Ensure keywordIndex implements the interface.
var _ driven.KeywordIndex = (*keywordIndex)(nil)

// keywordIndex implements full-text search over chunk text with the FTS5
// table that lives alongside the catalog. Scores are BM25, negated so that
// higher is better.
type keywordIndex struct {
	store *Store
}

// Index adds or replaces a chunk in the keyword index.
func (k *keywordIndex) Index(ctx context.Context, chunk domain.Chunk) error {
	tx, err := k.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunk_fts WHERE chunk_id = ?", chunk.ID); err != nil {
		return fmt.Errorf("clearing fts entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO chunk_fts (text, chunk_id) VALUES (?, ?)", chunk.Text, chunk.ID); err != nil {
		return fmt.Errorf("inserting fts entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes a chunk from the keyword index.
func (k *keywordIndex) Delete(ctx context.Context, chunkID string) error {
	_, err := k.store.db.ExecContext(ctx,
		"DELETE FROM chunk_fts WHERE chunk_id = ?", chunkID)
	if err != nil {
		return fmt.Errorf("deleting fts entry: %w", err)
	}
	return nil
}

// Search performs a keyword search, best first.
func (k *keywordIndex) Search(ctx context.Context, query string, limit int) ([]driven.SearchHit, error) {
	match := ftsMatchExpression(query)
	if match == "" {
		return []driven.SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := k.store.db.QueryContext(ctx, `
		SELECT chunk_id, bm25(chunk_fts) AS rank
		FROM chunk_fts
		WHERE chunk_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var hits []driven.SearchHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit driven.SearchHit
		var rank float64
		if err := rows.Scan(&hit.ChunkID, &rank); err != nil {
			return nil, fmt.Errorf("scanning fts hit: %w", err)
		}
		// bm25() reports lower-is-better; flip it.
		hit.Score = -rank
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fts hits: %w", err)
	}

	return hits, nil
}

// Close is a no-op; the underlying database belongs to the catalog store.
func (k *keywordIndex) Close() error {
	return nil
}

// ftsMatchExpression turns free-form query text into an FTS5 MATCH
// expression. Each term is double-quoted to disarm the FTS5 query syntax, and
// terms are OR'd so partial matches still rank.
func ftsMatchExpression(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " OR ")
}
