package driving

import (
	"context"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// ReviewService runs the full PR review workflow.
type ReviewService interface {
	// ReviewPull reviews the pull request at the given GitHub URL and posts
	// the results. Retrieval outages degrade the context but never fail the
	// review; individual invalid comment targets are dropped, not fatal.
	ReviewPull(ctx context.Context, pullURL string) (*ReviewResult, error)
}

// ReviewResult summarises a completed review.
type ReviewResult struct {
	// PullURL is the reviewed PR.
	PullURL string

	// ReviewID is the posted GitHub review ID, zero if posting failed.
	ReviewID int64

	// Analysis is the model's full output before target validation.
	Analysis *domain.ReviewAnalysis

	// Posted is the number of inline comments that survived validation and
	// were sent.
	Posted int

	// Dropped is the number of findings whose targets had no legal line.
	Dropped int

	// Truncated is the number of valid findings shed by the inline comment
	// cap; they still count in the review summary.
	Truncated int

	// Warnings collects non-fatal degradations (retrieval outage, skipped
	// oversized files, dropped comments).
	Warnings []string
}
