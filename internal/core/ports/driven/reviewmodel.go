package driven

import (
	"context"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// ReviewModel turns assembled standards context plus the PR diff into review
// findings. The prompt template and model output schema live behind this
// port; the core only consumes the parsed analysis.
type ReviewModel interface {
	// Analyze reviews the PR and returns findings with proposed comment
	// targets. Proposed (file, line) pairs are unvalidated; callers must
	// run them through the diff line validator before posting.
	Analyze(ctx context.Context, req ReviewModelRequest) (*domain.ReviewAnalysis, error)

	// Close releases resources.
	Close() error
}

// ReviewModelRequest carries everything the model needs for one review.
type ReviewModelRequest struct {
	// Title and Body describe the PR.
	Title string
	Body  string

	// StandardsContext is the assembled standards text, mandatory
	// categories first.
	StandardsContext string

	// Files are the changed files with their diffs and commentable ranges.
	Files []ReviewModelFile
}

// ReviewModelFile is one changed file presented to the model.
type ReviewModelFile struct {
	Path string

	// Patch is the unified diff for the file.
	Patch string

	// AddedRanges are the contiguous commentable line ranges.
	AddedRanges [][2]int
}
