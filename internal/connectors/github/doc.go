// Package github implements the CodeHost port against the GitHub REST API
// using go-github.
//
// The client authenticates with a personal access token or OAuth access
// token and applies dual-strategy rate limiting: a proactive token bucket
// (~1.2 req/sec) plus reactive tracking of the X-RateLimit-* response
// headers, waiting for the reset when the remaining quota drops below a
// reserve buffer.
//
// Review submissions the API refuses with 422 (stale comment positions,
// APPROVE or REQUEST_CHANGES on the author's own pull request) are surfaced
// as domain.ErrReviewRejected so the review workflow can retry with a reduced
// submission.
package github
