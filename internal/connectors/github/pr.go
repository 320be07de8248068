package github

import (
	"context"
	"errors"
	"fmt"

	gh "github.com/google/go-github/v80/github"

	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.CodeHost = (*Client)(nil)

// listFilesPerPage is the page size for the PR files listing.
const listFilesPerPage = 100

// GetPullRequest fetches the pull request's details.
func (c *Client) GetPullRequest(ctx context.Context, ref domain.PullRef) (*domain.PullDetails, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, c.wrapError(err, "get pull request")
	}
	c.updateRateLimitFromResponse(resp)

	details := &domain.PullDetails{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		HeadSHA: pr.GetHead().GetSHA(),
		BaseSHA: pr.GetBase().GetSHA(),
		Author:  pr.GetUser().GetLogin(),
		HTMLURL: pr.GetHTMLURL(),
	}
	return details, nil
}

// ListChangedFiles fetches the PR's changed files with their patches,
// following pagination.
func (c *Client) ListChangedFiles(ctx context.Context, ref domain.PullRef) ([]domain.PullFile, error) {
	opts := &gh.ListOptions{PerPage: listFilesPerPage}

	var files []domain.PullFile
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		page, resp, err := c.gh.PullRequests.ListFiles(ctx, ref.Owner, ref.Repo, ref.Number, opts)
		if err != nil {
			return nil, c.wrapError(err, "list pull request files")
		}
		c.updateRateLimitFromResponse(resp)

		for _, f := range page {
			files = append(files, domain.PullFile{
				Path:      f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Patch:     f.GetPatch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// CreateReview posts a review with inline comments on the new side of the
// diff. A 422 response surfaces as domain.ErrReviewRejected so the caller can
// fall back to a reduced submission.
func (c *Client) CreateReview(
	ctx context.Context, ref domain.PullRef, review driven.ReviewSubmission,
) (int64, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	comments := make([]*gh.DraftReviewComment, len(review.Comments))
	for i, cm := range review.Comments {
		comments[i] = &gh.DraftReviewComment{
			Path: gh.Ptr(cm.Path),
			Line: gh.Ptr(cm.Line),
			Side: gh.Ptr("RIGHT"),
			Body: gh.Ptr(cm.Body),
		}
	}

	req := &gh.PullRequestReviewRequest{
		Body:     gh.Ptr(review.Body),
		Event:    gh.Ptr(string(review.Event)),
		Comments: comments,
	}
	if review.CommitID != "" {
		req.CommitID = gh.Ptr(review.CommitID)
	}

	posted, resp, err := c.gh.PullRequests.CreateReview(ctx, ref.Owner, ref.Repo, ref.Number, req)
	if err != nil {
		return 0, mapRejection(c.wrapError(err, "create review"))
	}
	c.updateRateLimitFromResponse(resp)

	return posted.GetID(), nil
}

// CreateIssueComment posts a plain comment on the PR's conversation thread.
func (c *Client) CreateIssueComment(ctx context.Context, ref domain.PullRef, body string) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	comment := &gh.IssueComment{Body: gh.Ptr(body)}
	_, resp, err := c.gh.Issues.CreateComment(ctx, ref.Owner, ref.Repo, ref.Number, comment)
	if err != nil {
		return c.wrapError(err, "create issue comment")
	}
	c.updateRateLimitFromResponse(resp)

	return nil
}

// mapRejection tags 422 responses with domain.ErrReviewRejected.
func mapRejection(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 422 {
		return fmt.Errorf("%w: %v", domain.ErrReviewRejected, err)
	}
	return err
}
