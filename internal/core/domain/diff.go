package domain

import "sort"

// LineKind tags a diff line record.
type LineKind int

// Diff line kinds.
const (
	// LineContext is an unchanged line present on both sides.
	LineContext LineKind = iota

	// LineAdded is a line present only in the new file version. Added lines
	// are the only legal inline comment targets.
	LineAdded

	// LineRemoved is a line present only in the old file version.
	LineRemoved
)

// DiffLine is one record of a unified diff, in hunk order. NewNumber is set
// for added and context lines, OldNumber for removed and context lines.
type DiffLine struct {
	Kind      LineKind
	OldNumber int
	NewNumber int
	Text      string
}

// DiffFile is the parsed diff for a single file: an ordered sequence of
// tagged line records across all hunks.
type DiffFile struct {
	// Path is the new-file path.
	Path string

	// Lines are the hunk line records in diff order. New-file line numbers
	// are monotonically non-decreasing.
	Lines []DiffLine
}

// AddedLines returns the sorted, deduplicated set of new-file line numbers
// tagged as added. An empty result means the file has no legal comment
// targets (pure deletion, rename without content change).
func (f DiffFile) AddedLines() []int {
	seen := make(map[int]struct{})
	lines := make([]int, 0, len(f.Lines))
	for _, l := range f.Lines {
		if l.Kind != LineAdded {
			continue
		}
		if _, ok := seen[l.NewNumber]; ok {
			continue
		}
		seen[l.NewNumber] = struct{}{}
		lines = append(lines, l.NewNumber)
	}
	sort.Ints(lines)
	return lines
}

// AddedRanges collapses the added-line set into contiguous (start, end)
// ranges, used to tell the review model which lines are commentable.
func (f DiffFile) AddedRanges() [][2]int {
	lines := f.AddedLines()
	if len(lines) == 0 {
		return nil
	}

	ranges := make([][2]int, 0, len(lines))
	start, end := lines[0], lines[0]
	for _, n := range lines[1:] {
		if n == end+1 {
			end = n
			continue
		}
		ranges = append(ranges, [2]int{start, end})
		start, end = n, n
	}
	ranges = append(ranges, [2]int{start, end})
	return ranges
}

// CommentTarget is a proposed inline comment position awaiting validation.
type CommentTarget struct {
	Path string
	Line int
}

// TargetState is the outcome of validating a CommentTarget.
type TargetState int

// Target states.
const (
	// TargetAccepted means the proposed line is an added line.
	TargetAccepted TargetState = iota

	// TargetCorrected means the proposed line was relocated to the nearest
	// added line.
	TargetCorrected

	// TargetDropped means the comment has no legal position in the diff.
	TargetDropped
)

// DropReason explains why a target was dropped.
type DropReason string

// Drop reasons.
const (
	// DropNoAddedLines means the file's diff contains no added lines.
	DropNoAddedLines DropReason = "NoAddedLines"

	// DropFileNotInDiff means no diff was provided for the target's file.
	DropFileNotInDiff DropReason = "FileNotInDiff"
)

// ValidatedTarget is the result of diff line validation. For accepted and
// corrected targets Line is guaranteed to be a member of the file's
// added-line set.
type ValidatedTarget struct {
	Target CommentTarget
	State  TargetState

	// Line is the final comment line. Zero when dropped.
	Line int

	// Reason is set only when dropped.
	Reason DropReason
}
