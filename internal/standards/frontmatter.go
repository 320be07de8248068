// Package standards parses markdown standards documents and splits them into
// retrieval-sized chunks with content-addressed identifiers.
package standards

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// frontmatterDelimiter separates the YAML block from the document body.
const frontmatterDelimiter = "---"

// requiredFields are the frontmatter keys every standards document must
// carry. A missing key is a hard indexing failure, not a warning.
var requiredFields = []string{
	"standard_id",
	"standard_type",
	"title",
	"applies_scope",
	"tags",
	"applies_to_globs",
	"affected_files",
	"severity",
}

// frontmatter is the typed shape of the YAML block.
type frontmatter struct {
	StandardID     string    `yaml:"standard_id"`
	StandardType   string    `yaml:"standard_type"`
	Title          string    `yaml:"title"`
	AppliesScope   string    `yaml:"applies_scope"`
	Tags           []string  `yaml:"tags"`
	AppliesToGlobs []string  `yaml:"applies_to_globs"`
	AffectedFiles  []string  `yaml:"affected_files"`
	Severity       string    `yaml:"severity"`
	UpdatedAt      time.Time `yaml:"updated_at"`
}

// ParseDocument parses one markdown standards document: a YAML frontmatter
// block between "---" delimiters followed by the rule body. Validation is
// strict schema validation against the StandardDocument shape — any missing
// required key, unknown enum value or illegal type/scope combination returns
// domain.ErrInvalidStandard.
func ParseDocument(raw []byte, sourceFile string) (*domain.StandardDocument, error) {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	if !strings.HasPrefix(text, frontmatterDelimiter+"\n") {
		return nil, fmt.Errorf("%w: %s: frontmatter block is required", domain.ErrInvalidStandard, sourceFile)
	}

	rest := text[len(frontmatterDelimiter)+1:]
	idx := strings.Index(rest, "\n"+frontmatterDelimiter+"\n")
	var block, body string
	switch {
	case idx >= 0:
		block = rest[:idx]
		body = rest[idx+len(frontmatterDelimiter)+2:]
	case strings.HasSuffix(rest, "\n"+frontmatterDelimiter):
		block = strings.TrimSuffix(rest, "\n"+frontmatterDelimiter)
	default:
		return nil, fmt.Errorf("%w: %s: unterminated frontmatter block", domain.ErrInvalidStandard, sourceFile)
	}

	// Presence check first: zero values are indistinguishable from missing
	// keys after typed decoding.
	var keys map[string]any
	if err := yaml.Unmarshal([]byte(block), &keys); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidStandard, sourceFile, err)
	}
	var missing []string
	for _, field := range requiredFields {
		if _, ok := keys[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s: missing frontmatter fields %v",
			domain.ErrInvalidStandard, sourceFile, missing)
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidStandard, sourceFile, err)
	}

	doc := &domain.StandardDocument{
		StandardID:     strings.TrimSpace(fm.StandardID),
		Type:           domain.StandardType(fm.StandardType),
		Scope:          domain.AppliesScope(fm.AppliesScope),
		Title:          strings.TrimSpace(fm.Title),
		Body:           strings.TrimSpace(body),
		Tags:           fm.Tags,
		AppliesToGlobs: fm.AppliesToGlobs,
		AffectedFiles:  fm.AffectedFiles,
		Severity:       domain.Severity(fm.Severity),
		SourceFile:     sourceFile,
		UpdatedAt:      fm.UpdatedAt,
	}

	if doc.StandardID == "" {
		return nil, fmt.Errorf("%w: %s: standard_id is empty", domain.ErrInvalidStandard, sourceFile)
	}
	if doc.Title == "" {
		return nil, fmt.Errorf("%w: %s: title is empty", domain.ErrInvalidStandard, sourceFile)
	}
	if !doc.Type.Valid() {
		return nil, fmt.Errorf("%w: %s: unknown standard_type %q",
			domain.ErrInvalidStandard, sourceFile, fm.StandardType)
	}
	if !doc.Scope.Valid() {
		return nil, fmt.Errorf("%w: %s: unknown applies_scope %q",
			domain.ErrInvalidStandard, sourceFile, fm.AppliesScope)
	}
	if !doc.Severity.Valid() {
		return nil, fmt.Errorf("%w: %s: unknown severity %q",
			domain.ErrInvalidStandard, sourceFile, fm.Severity)
	}
	if err := doc.ValidateScope(); err != nil {
		return nil, fmt.Errorf("%s: %w", sourceFile, err)
	}

	return doc, nil
}
