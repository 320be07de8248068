// Package diff parses unified diff patch text into the tagged line records
// the diff line validator consumes.
package diff

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// hunkHeader matches "@@ -start,count +start,count @@" (counts optional).
var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// ParsePatch parses the unified diff for a single file, as returned by the
// GitHub files API, into ordered line records. Lines outside any hunk header
// (file headers, "\ No newline at end of file") are ignored. An empty patch
// yields a DiffFile with no lines.
func ParsePatch(path, patch string) domain.DiffFile {
	file := domain.DiffFile{Path: path}
	if patch == "" {
		return file
	}

	inHunk := false
	oldLine, newLine := 0, 0

	for _, raw := range strings.Split(patch, "\n") {
		if m := hunkHeader.FindStringSubmatch(raw); m != nil {
			oldLine, _ = strconv.Atoi(m[1])
			newLine, _ = strconv.Atoi(m[2])
			inHunk = true
			continue
		}
		if !inHunk || raw == "" {
			continue
		}

		switch {
		case strings.HasPrefix(raw, "+++"), strings.HasPrefix(raw, "---"):
			// File headers inside concatenated patches end the hunk.
			inHunk = false
		case strings.HasPrefix(raw, "+"):
			file.Lines = append(file.Lines, domain.DiffLine{
				Kind:      domain.LineAdded,
				NewNumber: newLine,
				Text:      raw[1:],
			})
			newLine++
		case strings.HasPrefix(raw, "-"):
			file.Lines = append(file.Lines, domain.DiffLine{
				Kind:      domain.LineRemoved,
				OldNumber: oldLine,
				Text:      raw[1:],
			})
			oldLine++
		case strings.HasPrefix(raw, " "):
			file.Lines = append(file.Lines, domain.DiffLine{
				Kind:      domain.LineContext,
				OldNumber: oldLine,
				NewNumber: newLine,
				Text:      raw[1:],
			})
			oldLine++
			newLine++
		default:
			// "\ No newline at end of file" and similar markers.
		}
	}

	return file
}

// AddedSamples returns up to max added-line texts from the patch in diff
// order, used to enrich the retrieval query.
func AddedSamples(patch string, max int) []string {
	if patch == "" || max <= 0 {
		return nil
	}
	samples := make([]string, 0, max)
	for _, raw := range strings.Split(patch, "\n") {
		if !strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "+++") {
			continue
		}
		text := strings.TrimSpace(raw[1:])
		if text == "" {
			continue
		}
		samples = append(samples, text)
		if len(samples) >= max {
			break
		}
	}
	return samples
}
