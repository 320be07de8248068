package services

import (
	"sort"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// LineValidator verifies that proposed comment targets land on added lines
// and relocates or drops the ones that do not. Built once per review from
// the parsed diffs; validation itself is pure computation with no I/O, so
// files may be validated in parallel by callers if they wish.
type LineValidator struct {
	// added maps file path to its sorted added-line numbers.
	added map[string][]int
}

// NewLineValidator builds a validator from the per-file diffs.
func NewLineValidator(files []domain.DiffFile) *LineValidator {
	added := make(map[string][]int, len(files))
	for _, f := range files {
		added[f.Path] = f.AddedLines()
	}
	return &LineValidator{added: added}
}

// Validate resolves one proposed target. The result's line number, when
// accepted or corrected, is always a member of the file's added-line set.
func (v *LineValidator) Validate(target domain.CommentTarget) domain.ValidatedTarget {
	lines, ok := v.added[target.Path]
	if !ok {
		return domain.ValidatedTarget{
			Target: target,
			State:  domain.TargetDropped,
			Reason: domain.DropFileNotInDiff,
		}
	}
	if len(lines) == 0 {
		return domain.ValidatedTarget{
			Target: target,
			State:  domain.TargetDropped,
			Reason: domain.DropNoAddedLines,
		}
	}

	// sort.SearchInts gives the bracketing candidates directly; no linear
	// scan over the diff.
	i := sort.SearchInts(lines, target.Line)
	if i < len(lines) && lines[i] == target.Line {
		return domain.ValidatedTarget{
			Target: target,
			State:  domain.TargetAccepted,
			Line:   target.Line,
		}
	}

	corrected := nearestLine(lines, i, target.Line)
	return domain.ValidatedTarget{
		Target: target,
		State:  domain.TargetCorrected,
		Line:   corrected,
	}
}

// ValidateAll resolves every target in order.
func (v *LineValidator) ValidateAll(targets []domain.CommentTarget) []domain.ValidatedTarget {
	results := make([]domain.ValidatedTarget, len(targets))
	for i, t := range targets {
		results[i] = v.Validate(t)
	}
	return results
}

// nearestLine picks the closer of the two candidates bracketing the
// insertion point i. Equal distances resolve toward the later line number:
// review comments should lean toward the code that follows them.
func nearestLine(lines []int, i, target int) int {
	switch {
	case i == 0:
		return lines[0]
	case i == len(lines):
		return lines[len(lines)-1]
	}
	before, after := lines[i-1], lines[i]
	if target-before < after-target {
		return before
	}
	return after
}
