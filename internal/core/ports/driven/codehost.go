package driven

import (
	"context"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// CodeHost is the outbound port to the code hosting platform. Backed by the
// GitHub API.
type CodeHost interface {
	// GetPullRequest fetches PR details.
	GetPullRequest(ctx context.Context, ref domain.PullRef) (*domain.PullDetails, error)

	// ListChangedFiles fetches the PR's changed files with their patches.
	ListChangedFiles(ctx context.Context, ref domain.PullRef) ([]domain.PullFile, error)

	// CreateReview posts a review with inline comments and returns the
	// review ID.
	CreateReview(ctx context.Context, ref domain.PullRef, review ReviewSubmission) (int64, error)

	// CreateIssueComment posts a plain PR comment, the fallback when a
	// review cannot be created.
	CreateIssueComment(ctx context.Context, ref domain.PullRef, body string) error
}

// ReviewSubmission is a review to post.
type ReviewSubmission struct {
	// CommitID is the head commit the review applies to.
	CommitID string

	// Body is the review summary.
	Body string

	// Event is the review action.
	Event domain.ReviewEvent

	// Comments are validated inline comments. Every line is guaranteed to
	// be an added line of its file's diff.
	Comments []ReviewCommentDraft
}

// ReviewCommentDraft is one inline comment on the new side of the diff.
type ReviewCommentDraft struct {
	Path string
	Line int
	Body string
}
