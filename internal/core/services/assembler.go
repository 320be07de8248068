package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// Context assembly defaults.
const (
	// DefaultDocBudget is the per-document character budget.
	DefaultDocBudget = 2000

	// MinAlwaysExcerpt is the guaranteed excerpt length for always-scope
	// entries: boundary-seeking truncation never cuts a mandatory rule
	// below this.
	MinAlwaysExcerpt = 200
)

// categoryRank orders the assembled context: mandatory governance levels
// before situational history, so the review model sees non-negotiable rules
// first regardless of relevance score.
var categoryRank = map[domain.StandardType]int{
	domain.StandardTypeCorporate:  0,
	domain.StandardTypeTeam:       1,
	domain.StandardTypeRepository: 2,
	domain.StandardTypeFileHist:   3,
	domain.StandardTypePostmortem: 4,
}

// Assembler renders the filtered standards into the context string handed to
// the review model. Pure computation, no retries.
type Assembler struct {
	docBudget     int
	alwaysExcerpt int
}

// AssemblerOption configures the assembler.
type AssemblerOption func(*Assembler)

// WithDocBudget sets the per-document character budget.
func WithDocBudget(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.docBudget = n
		}
	}
}

// NewAssembler creates an assembler with the given options.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		docBudget:     DefaultDocBudget,
		alwaysExcerpt: MinAlwaysExcerpt,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.alwaysExcerpt > a.docBudget {
		a.alwaysExcerpt = a.docBudget
	}
	return a
}

// Assemble renders the included standards in category order. Returns the
// empty string when nothing is included.
func (a *Assembler) Assemble(included []domain.IncludedStandard) string {
	if len(included) == 0 {
		return ""
	}

	docs := make([]domain.IncludedStandard, len(included))
	copy(docs, included)
	sort.SliceStable(docs, func(i, j int) bool {
		ri, rj := categoryRank[docs[i].Document.Type], categoryRank[docs[j].Document.Type]
		if ri != rj {
			return ri < rj
		}
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].Document.StandardID < docs[j].Document.StandardID
	})

	var b strings.Builder
	b.WriteString("### Code standards\n")
	for _, inc := range docs {
		doc := inc.Document
		body := doc.Body
		if body == "" {
			body = inc.ChunkText
		}
		minKeep := 0
		if doc.Scope == domain.ScopeAlways {
			minKeep = a.alwaysExcerpt
		}
		b.WriteString(fmt.Sprintf("\n- [%s/%s] %s (%s, matched: %s)\n",
			doc.Type, doc.Severity, doc.Title, doc.StandardID, inc.Reason))
		b.WriteString(indent(truncateAtBoundary(body, a.docBudget, minKeep), "  "))
		b.WriteString("\n")
	}
	return b.String()
}

// truncateAtBoundary cuts text to at most budget characters (runes, never
// mid-rune bytes), preferring a paragraph boundary, then a sentence boundary,
// then a raw cut. A boundary below minKeep characters is rejected so
// mandatory rules keep a useful excerpt.
func truncateAtBoundary(text string, budget, minKeep int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= budget {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:budget])
	if i := strings.LastIndex(cut, "\n\n"); i >= 0 && utf8.RuneCountInString(cut[:i]) >= minKeep {
		return strings.TrimSpace(cut[:i])
	}
	if i := lastSentenceEnd(cut); i >= 0 && utf8.RuneCountInString(cut[:i]) >= minKeep {
		return strings.TrimSpace(cut[:i])
	}
	return strings.TrimSpace(cut)
}

// lastSentenceEnd returns the index just past the last sentence terminator,
// or -1 when none exists.
func lastSentenceEnd(text string) int {
	best := -1
	for _, sep := range []string{". ", ".\n", "! ", "? "} {
		if i := strings.LastIndex(text, sep); i >= 0 && i+1 > best {
			best = i + 1
		}
	}
	return best
}

// indent prefixes every line of text.
func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
