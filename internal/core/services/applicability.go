package services

import (
	"sort"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// FilterApplicable produces the final inclusion set from the always-scope
// catalog, the retrieved pool and the changed file set. Pure computation
// over already-fetched data.
//
// Rules, applied in order:
//  1. Every always-scope standard is included unconditionally — a direct
//     catalog pull, never a similarity match, so a low relevance score can
//     never silently omit a mandatory rule.
//  2. A conditional standard is included only if some changed path matches
//     its affected_files exactly OR matches one of its globs. The two
//     conditions are independent and OR'd; a stale or empty affected_files
//     list does not disqualify a glob match.
//  3. Every conditional hit is re-checked against the current changed file
//     set here, regardless of how it ranked in retrieval. Retrieval and
//     path matching operate on different representations; a document that
//     matched the query semantically but not the file filter is excluded.
//  4. Documents are deduplicated by standard_id, keeping the
//     highest-relevance chunk.
func FilterApplicable(
	always []domain.StandardDocument,
	retrieved []domain.RetrievedStandard,
	changed domain.ChangedFileSet,
) []domain.IncludedStandard {
	paths := changed.Paths()

	included := make(map[string]*domain.IncludedStandard)
	order := make([]string, 0, len(always)+len(retrieved))

	// Rule 1: the mandatory catalog, deterministic order.
	alwaysSorted := make([]domain.StandardDocument, len(always))
	copy(alwaysSorted, always)
	sort.Slice(alwaysSorted, func(i, j int) bool {
		return alwaysSorted[i].StandardID < alwaysSorted[j].StandardID
	})
	for _, doc := range alwaysSorted {
		if doc.Scope != domain.ScopeAlways {
			continue
		}
		if _, ok := included[doc.StandardID]; ok {
			continue
		}
		included[doc.StandardID] = &domain.IncludedStandard{
			Document: doc,
			Reason:   domain.ReasonAlways,
		}
		order = append(order, doc.StandardID)
	}

	// Rules 2-4 over the retrieved pool, best score first so the kept
	// chunk per document is the highest-relevance one.
	pool := make([]domain.RetrievedStandard, len(retrieved))
	copy(pool, retrieved)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Score > pool[j].Score
	})

	for _, hit := range pool {
		doc := hit.Document

		if doc.Scope == domain.ScopeAlways {
			// Already covered by the catalog pull; attach the best chunk
			// so the assembler can prefer the matched excerpt.
			if inc, ok := included[doc.StandardID]; ok && inc.ChunkText == "" {
				inc.ChunkText = hit.ChunkText
				inc.Score = hit.Score
			}
			continue
		}

		reason, ok := doc.MatchChangedFiles(paths)
		if !ok {
			continue
		}
		if _, dup := included[doc.StandardID]; dup {
			continue
		}
		included[doc.StandardID] = &domain.IncludedStandard{
			Document:  doc,
			Reason:    reason,
			ChunkText: hit.ChunkText,
			Score:     hit.Score,
		}
		order = append(order, doc.StandardID)
	}

	results := make([]domain.IncludedStandard, 0, len(order))
	for _, id := range order {
		results = append(results, *included[id])
	}
	return results
}
