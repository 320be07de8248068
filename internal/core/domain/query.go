package domain

import "strings"

// Retrieval query limits.
const (
	// MaxQueryChars caps the derived query text. Huge PRs and long bodies
	// are truncated deterministically, never rejected.
	MaxQueryChars = 2000

	// MaxAddedLineSamples caps how many added-line texts across the whole
	// changed file set are folded into the query, in diff order.
	MaxAddedLineSamples = 50

	// DefaultTopK is the number of standards requested in the final context.
	DefaultTopK = 10

	// DefaultSemanticTopK is the pre-filter pool size. Intentionally larger
	// than the final count because the applicability filter removes hits.
	DefaultSemanticTopK = 30
)

// ChangedFile is one file of the PR under review, with an optional sample of
// its added line texts in diff order.
type ChangedFile struct {
	// Path is the new-file path.
	Path string

	// Additions is the count of added lines reported for the file.
	Additions int

	// AddedSamples holds the added line texts in diff order. Used only to
	// enrich the retrieval query.
	AddedSamples []string
}

// ChangedFileSet is the ordered list of files changed in the PR.
type ChangedFileSet struct {
	Files []ChangedFile
}

// Paths returns the changed file paths in set order.
func (s ChangedFileSet) Paths() []string {
	paths := make([]string, len(s.Files))
	for i, f := range s.Files {
		paths[i] = f.Path
	}
	return paths
}

// RetrievalQuery is the search input derived from the PR.
type RetrievalQuery struct {
	// Text is the derived query text, at most MaxQueryChars characters.
	Text string

	// TopK is the requested number of standards in the final context.
	TopK int

	// SemanticTopK is the pre-filter pool size. Always >= TopK.
	SemanticTopK int
}

// BuildRetrievalQuery derives the query text from the PR title, body and
// changed file set. The first MaxAddedLineSamples added lines across the set
// are included in diff order; the result is capped at MaxQueryChars. The
// derivation is deterministic for a given input.
func BuildRetrievalQuery(title, body string, set ChangedFileSet, topK, semanticTopK int) RetrievalQuery {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if semanticTopK <= 0 {
		semanticTopK = DefaultSemanticTopK
	}
	if semanticTopK < topK {
		semanticTopK = topK
	}

	parts := make([]string, 0, 4)
	if title != "" {
		parts = append(parts, title)
	}
	if body != "" {
		parts = append(parts, body)
	}
	if paths := set.Paths(); len(paths) > 0 {
		parts = append(parts, strings.Join(paths, " "))
	}

	samples := make([]string, 0, MaxAddedLineSamples)
	for _, f := range set.Files {
		for _, line := range f.AddedSamples {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			samples = append(samples, line)
			if len(samples) >= MaxAddedLineSamples {
				break
			}
		}
		if len(samples) >= MaxAddedLineSamples {
			break
		}
	}
	if len(samples) > 0 {
		parts = append(parts, strings.Join(samples, " "))
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if runes := []rune(text); len(runes) > MaxQueryChars {
		text = string(runes[:MaxQueryChars])
	}

	return RetrievalQuery{
		Text:         text,
		TopK:         topK,
		SemanticTopK: semanticTopK,
	}
}
