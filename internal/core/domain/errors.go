package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidStandard indicates a standards document violates the schema:
	// a missing required frontmatter field, an unknown enum value, or an
	// illegal standard_type/applies_scope combination. Fatal for the whole
	// indexing run — a malformed document is never silently skipped.
	ErrInvalidStandard = errors.New("invalid standard document")

	// ErrRetrievalUnavailable indicates the search store could not be
	// reached within the retrieval timeout. Non-fatal: always-scope
	// standards are still delivered via the catalog pull, and the review
	// proceeds with a reduced but rule-compliant context.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Vector search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrKeywordIndexUnavailable indicates the keyword index is not
	// configured. Lexical search is disabled.
	ErrKeywordIndexUnavailable = errors.New("keyword index unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not
	// configured. Semantic similarity search is disabled.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrReviewModelUnavailable indicates no review model is configured.
	ErrReviewModelUnavailable = errors.New("review model unavailable")

	// ErrReviewRejected indicates the code host refused the review
	// submission (HTTP 422): a stale comment position, or an APPROVE /
	// REQUEST_CHANGES event on the author's own pull request. Callers fall
	// back to a reduced submission rather than failing the review.
	ErrReviewRejected = errors.New("review submission rejected")
)
