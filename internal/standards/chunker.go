package standards

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// DefaultMaxChunkChars is the single-chunk size threshold. Bodies below it
// become one chunk; larger bodies are split at heading and paragraph
// boundaries where possible.
const DefaultMaxChunkChars = 1800

// headingSplit matches markdown h1/h2 boundaries.
var headingSplit = regexp.MustCompile(`\n(?:#|##)\s`)

// Chunker splits standard bodies into ordered, content-addressed chunks.
type Chunker struct {
	maxChars int
}

// ChunkerOption configures the chunker.
type ChunkerOption func(*Chunker)

// WithMaxChars sets the per-chunk character threshold.
func WithMaxChars(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// NewChunker creates a chunker with the given options.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{maxChars: DefaultMaxChunkChars}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits the document body into ordered chunks. Each chunk's ID is a
// hash over (standard_id, sequence, normalised text), so an unmodified
// document re-indexed later yields byte-identical IDs.
func (c *Chunker) Chunk(doc *domain.StandardDocument) []domain.Chunk {
	texts := c.splitBody(doc.Body)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:         domain.NewChunkID(doc.StandardID, i, text),
			StandardID: doc.StandardID,
			Sequence:   i,
			Text:       text,
		})
	}
	return chunks
}

// splitBody groups heading-delimited blocks into chunks of at most maxChars
// characters, hard-splitting any single block that exceeds the threshold on
// its own. All size accounting is in runes so multibyte text is never cut
// mid-character.
func (c *Chunker) splitBody(body string) []string {
	body = domain.NormalizeChunkText(body)
	if body == "" {
		return nil
	}
	if utf8.RuneCountInString(body) <= c.maxChars {
		return []string{body}
	}

	blocks := c.splitBlocks(body)
	var chunks []string
	var current strings.Builder
	currentLen := 0 // runes in current

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, block := range blocks {
		blockLen := utf8.RuneCountInString(block)
		if currentLen > 0 && currentLen+blockLen+2 > c.maxChars {
			flush()
		}
		if blockLen > c.maxChars {
			flush()
			chunks = append(chunks, hardSplit(block, c.maxChars)...)
			continue
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(block)
		currentLen += blockLen
	}
	flush()

	return chunks
}

// hardSplit cuts a boundary-less block into maxChars-rune pieces.
func hardSplit(block string, maxChars int) []string {
	runes := []rune(block)
	parts := make([]string, 0, (len(runes)+maxChars-1)/maxChars)
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// splitBlocks cuts the body at h1/h2 headings, falling back to paragraph
// boundaries when a heading section is itself oversized.
func (c *Chunker) splitBlocks(body string) []string {
	var blocks []string
	last := 0
	for _, loc := range headingSplit.FindAllStringIndex(body, -1) {
		section := strings.TrimSpace(body[last:loc[0]])
		if section != "" {
			blocks = append(blocks, c.splitParagraphs(section)...)
		}
		last = loc[0] + 1 // keep the heading marker with its section
	}
	if section := strings.TrimSpace(body[last:]); section != "" {
		blocks = append(blocks, c.splitParagraphs(section)...)
	}
	return blocks
}

// splitParagraphs breaks an oversized section at blank lines.
func (c *Chunker) splitParagraphs(section string) []string {
	if utf8.RuneCountInString(section) <= c.maxChars {
		return []string{section}
	}
	var paragraphs []string
	for _, p := range strings.Split(section, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return []string{section}
	}
	return paragraphs
}
