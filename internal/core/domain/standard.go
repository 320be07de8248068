package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// StandardType categorises a standards document by its governance level.
type StandardType string

// Standard types. Corporate, team and repository standards apply to every
// review; file history and postmortem standards only apply when the changed
// files match their recorded metadata.
const (
	StandardTypeCorporate  StandardType = "corporate"
	StandardTypeTeam       StandardType = "team"
	StandardTypeRepository StandardType = "repository"
	StandardTypeFileHist   StandardType = "file_history"
	StandardTypePostmortem StandardType = "postmortem"
)

// Valid reports whether t is a known standard type.
func (t StandardType) Valid() bool {
	switch t {
	case StandardTypeCorporate, StandardTypeTeam, StandardTypeRepository,
		StandardTypeFileHist, StandardTypePostmortem:
		return true
	}
	return false
}

// AppliesScope decides whether a standard is mandatory for every review or
// conditional on the changed file set.
type AppliesScope string

// Applies scopes.
const (
	ScopeAlways      AppliesScope = "always"
	ScopeConditional AppliesScope = "conditional"
)

// Valid reports whether s is a known scope.
func (s AppliesScope) Valid() bool {
	return s == ScopeAlways || s == ScopeConditional
}

// Severity indicates how serious a violation of the standard is.
type Severity string

// Severity levels, highest first.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// StandardDocument is one governance rule set, authored as a markdown file
// with frontmatter. It is parsed at index time and never mutated at query
// time; re-indexing replaces it wholesale.
type StandardDocument struct {
	// StandardID is the unique identifier, stable across edits.
	StandardID string

	// Type is the governance level of the standard.
	Type StandardType

	// Scope decides mandatory versus file-conditional inclusion.
	Scope AppliesScope

	// Title is the human-readable title.
	Title string

	// Body is the full rule text after the frontmatter block.
	Body string

	// Tags are free-form labels used for keyword retrieval.
	Tags []string

	// AppliesToGlobs are glob patterns matched against changed file paths.
	AppliesToGlobs []string

	// AffectedFiles are exact file paths recorded against the standard.
	AffectedFiles []string

	// Severity is the severity of violating this standard.
	Severity Severity

	// SourceFile is the markdown file the standard was parsed from.
	SourceFile string

	// UpdatedAt is the last authored update.
	UpdatedAt time.Time
}

// ValidateScope enforces the type/scope invariant: always-scope standards
// must be corporate, team or repository; conditional-scope standards must be
// file_history or postmortem.
func (d *StandardDocument) ValidateScope() error {
	switch d.Scope {
	case ScopeAlways:
		switch d.Type {
		case StandardTypeCorporate, StandardTypeTeam, StandardTypeRepository:
			return nil
		}
	case ScopeConditional:
		switch d.Type {
		case StandardTypeFileHist, StandardTypePostmortem:
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown applies_scope %q", ErrInvalidStandard, d.Scope)
	}
	return fmt.Errorf("%w: standard_type %q is not valid for applies_scope %q",
		ErrInvalidStandard, d.Type, d.Scope)
}

// MatchChangedFiles reports whether any changed path matches the standard's
// affected files or globs. Exact path matches win over glob matches when
// both apply. Only meaningful for conditional-scope standards.
func (d *StandardDocument) MatchChangedFiles(paths []string) (InclusionReason, bool) {
	for _, p := range paths {
		for _, f := range d.AffectedFiles {
			if p == f {
				return ReasonAffectedFileExact, true
			}
		}
	}
	for _, p := range paths {
		for _, g := range d.AppliesToGlobs {
			// Invalid patterns never match.
			if ok, err := doublestar.Match(g, p); err == nil && ok {
				return ReasonGlobMatch, true
			}
		}
	}
	return "", false
}

// Chunk is a retrieval-sized slice of a standard's body. Chunk IDs are
// content-addressed so that re-indexing unchanged content is a no-op upsert.
type Chunk struct {
	// ID is the content-addressed chunk identifier.
	ID string

	// StandardID links to the parent StandardDocument.
	StandardID string

	// Sequence is the ordinal position within the document body.
	Sequence int

	// Text is the chunk content.
	Text string

	// Embedding is the vector representation for semantic search.
	Embedding []float32
}

// chunkNamespace is the fixed UUID namespace for content-addressed chunk IDs.
var chunkNamespace = uuid.MustParse("7a8e1c52-93b4-4f6d-a1e0-5c2f8b9d3e47")

// NewChunkID derives a deterministic chunk identifier from the parent
// standard, the chunk ordinal and the normalised chunk text. Identical
// content always yields the identical ID, which makes concurrent re-index
// runs safe without locking: same-ID overwrites only happen for
// byte-identical content.
func NewChunkID(standardID string, sequence int, text string) string {
	key := fmt.Sprintf("%s\x00%d\x00%s", standardID, sequence, NormalizeChunkText(text))
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

// NormalizeChunkText canonicalises chunk text before hashing so that
// line-ending and surrounding-whitespace differences do not change the ID.
func NormalizeChunkText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}
