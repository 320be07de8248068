package domain

// InclusionReason records why a standard made it into the review context.
type InclusionReason string

// Inclusion reasons.
const (
	// ReasonAlways marks a mandatory standard pulled directly from the
	// catalog, independent of retrieval relevance.
	ReasonAlways InclusionReason = "always"

	// ReasonAffectedFileExact marks a conditional standard whose recorded
	// affected_files contain a changed path exactly.
	ReasonAffectedFileExact InclusionReason = "affected_file_exact"

	// ReasonGlobMatch marks a conditional standard whose applies_to_globs
	// match a changed path.
	ReasonGlobMatch InclusionReason = "glob_match"
)

// RetrievedStandard is one hybrid-search hit resolved back to its parent
// standard. A document may surface through several chunks; deduplication
// happens in the applicability filter.
type RetrievedStandard struct {
	// Document is the parent standard.
	Document StandardDocument

	// ChunkID identifies the matched chunk.
	ChunkID string

	// ChunkText is the matched chunk's content.
	ChunkText string

	// Score is the fused relevance score, higher is better.
	Score float64
}

// IncludedStandard is a standard that passed the applicability filter,
// paired with the reason it was included.
type IncludedStandard struct {
	Document StandardDocument
	Reason   InclusionReason

	// ChunkText is the highest-scoring matched chunk, empty for catalog
	// pulls that never went through retrieval.
	ChunkText string

	// Score is the best relevance score seen for the document, zero for
	// pure catalog pulls.
	Score float64
}
