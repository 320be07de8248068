package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/warden/internal/adapters/driven/storage/memory"
	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
)

const pullURL = "https://github.com/wardenlabs/warden/pull/42"

const simplePatch = "@@ -0,0 +1,3 @@\n+func pay() error {\n+\treturn chargeCard()\n+}"

// mockCodeHost implements driven.CodeHost for testing.
type mockCodeHost struct {
	pr      *domain.PullDetails
	files   []domain.PullFile
	getErr  error
	listErr error

	// reviewErrs are returned per CreateReview call in order; calls past the
	// end succeed.
	reviewErrs []error
	reviews    []driven.ReviewSubmission

	issueComments []string
	issueErr      error
}

func (m *mockCodeHost) GetPullRequest(_ context.Context, _ domain.PullRef) (*domain.PullDetails, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.pr, nil
}

func (m *mockCodeHost) ListChangedFiles(_ context.Context, _ domain.PullRef) ([]domain.PullFile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.files, nil
}

func (m *mockCodeHost) CreateReview(_ context.Context, _ domain.PullRef, review driven.ReviewSubmission) (int64, error) {
	call := len(m.reviews)
	m.reviews = append(m.reviews, review)
	if call < len(m.reviewErrs) && m.reviewErrs[call] != nil {
		return 0, m.reviewErrs[call]
	}
	return 77, nil
}

func (m *mockCodeHost) CreateIssueComment(_ context.Context, _ domain.PullRef, body string) error {
	if m.issueErr != nil {
		return m.issueErr
	}
	m.issueComments = append(m.issueComments, body)
	return nil
}

// mockReviewModel implements driven.ReviewModel for testing.
type mockReviewModel struct {
	analysis *domain.ReviewAnalysis
	err      error
	lastReq  driven.ReviewModelRequest
}

func (m *mockReviewModel) Analyze(_ context.Context, req driven.ReviewModelRequest) (*domain.ReviewAnalysis, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.analysis, nil
}

func (m *mockReviewModel) Close() error { return nil }

func testHost() *mockCodeHost {
	return &mockCodeHost{
		pr: &domain.PullDetails{
			Number:  42,
			Title:   "Add payment retry",
			Body:    "Retries failed charges.",
			HeadSHA: "abc123",
		},
		files: []domain.PullFile{
			{Path: "services/payment.go", Status: "modified", Additions: 3, Patch: simplePatch},
		},
	}
}

func rejected() error {
	return fmt.Errorf("%w: 422 unprocessable", domain.ErrReviewRejected)
}

func TestReviewPull(t *testing.T) {
	ctx := context.Background()

	t.Run("posts validated findings as inline comments", func(t *testing.T) {
		host := testHost()
		model := &mockReviewModel{analysis: &domain.ReviewAnalysis{
			Summary:        "One bug found.",
			Recommendation: domain.ReviewRequestChanges,
			Findings: []domain.Finding{
				{File: "services/payment.go", Line: 2, Severity: domain.SeverityHigh,
					Type: domain.IssueBug, Description: "Unchecked error.", Suggestion: "Handle the error."},
			},
		}}

		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, model, host)
		result, err := svc.ReviewPull(ctx, pullURL)
		require.NoError(t, err)

		assert.Equal(t, int64(77), result.ReviewID)
		assert.Equal(t, 1, result.Posted)
		assert.Zero(t, result.Dropped)

		require.Len(t, host.reviews, 1)
		review := host.reviews[0]
		assert.Equal(t, "abc123", review.CommitID)
		assert.Equal(t, domain.ReviewRequestChanges, review.Event)
		require.Len(t, review.Comments, 1)
		assert.Equal(t, "services/payment.go", review.Comments[0].Path)
		assert.Equal(t, 2, review.Comments[0].Line)
		assert.Contains(t, review.Comments[0].Body, "**high/bug**: Unchecked error.")
		assert.Contains(t, review.Comments[0].Body, "Suggestion: Handle the error.")
		assert.Contains(t, review.Body, "One bug found.")
	})

	t.Run("off-diff findings are corrected or dropped", func(t *testing.T) {
		host := testHost()
		model := &mockReviewModel{analysis: &domain.ReviewAnalysis{
			Recommendation: domain.ReviewComment,
			Findings: []domain.Finding{
				{File: "services/payment.go", Line: 99, Severity: domain.SeverityLow,
					Type: domain.IssueStyle, Description: "corrected"},
				{File: "nonexistent.go", Line: 1, Severity: domain.SeverityLow,
					Type: domain.IssueStyle, Description: "dropped"},
			},
		}}

		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, model, host)
		result, err := svc.ReviewPull(ctx, pullURL)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Posted)
		assert.Equal(t, 1, result.Dropped)
		require.Len(t, host.reviews, 1)
		require.Len(t, host.reviews[0].Comments, 1)
		// Line 99 relocates to the last added line.
		assert.Equal(t, 3, host.reviews[0].Comments[0].Line)
	})

	t.Run("rejected review retries without inline comments", func(t *testing.T) {
		host := testHost()
		host.reviewErrs = []error{rejected()}
		model := &mockReviewModel{analysis: &domain.ReviewAnalysis{
			Recommendation: domain.ReviewComment,
			Findings: []domain.Finding{
				{File: "services/payment.go", Line: 1, Severity: domain.SeverityLow,
					Type: domain.IssueStyle, Description: "d"},
			},
		}}

		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, model, host)
		result, err := svc.ReviewPull(ctx, pullURL)
		require.NoError(t, err)

		require.Len(t, host.reviews, 2)
		assert.NotEmpty(t, host.reviews[0].Comments)
		assert.Empty(t, host.reviews[1].Comments)
		assert.Zero(t, result.Posted)
		assert.Equal(t, int64(77), result.ReviewID)
	})

	t.Run("rejected event downgrades to COMMENT", func(t *testing.T) {
		host := testHost()
		host.reviewErrs = []error{rejected(), rejected()}
		model := &mockReviewModel{analysis: &domain.ReviewAnalysis{
			Recommendation: domain.ReviewRequestChanges,
		}}

		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, model, host)
		result, err := svc.ReviewPull(ctx, pullURL)
		require.NoError(t, err)

		require.Len(t, host.reviews, 3)
		assert.Equal(t, domain.ReviewRequestChanges, host.reviews[1].Event)
		assert.Equal(t, domain.ReviewComment, host.reviews[2].Event)
		assert.Equal(t, int64(77), result.ReviewID)
	})

	t.Run("falls back to a plain issue comment", func(t *testing.T) {
		host := testHost()
		host.reviewErrs = []error{rejected(), rejected(), rejected()}
		model := &mockReviewModel{analysis: &domain.ReviewAnalysis{
			Summary:        "Summary text.",
			Recommendation: domain.ReviewRequestChanges,
		}}

		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, model, host)
		result, err := svc.ReviewPull(ctx, pullURL)
		require.NoError(t, err)

		assert.Zero(t, result.ReviewID)
		require.Len(t, host.issueComments, 1)
		assert.Contains(t, host.issueComments[0], "Summary text.")
	})

	t.Run("non-rejection errors abort", func(t *testing.T) {
		host := testHost()
		host.reviewErrs = []error{errors.New("network down")}
		model := &mockReviewModel{analysis: &domain.ReviewAnalysis{Recommendation: domain.ReviewComment}}

		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, model, host)
		_, err := svc.ReviewPull(ctx, pullURL)
		require.Error(t, err)
		assert.Empty(t, host.issueComments)
	})

	t.Run("no changed files is invalid input", func(t *testing.T) {
		host := testHost()
		host.files = nil
		model := &mockReviewModel{analysis: &domain.ReviewAnalysis{}}

		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, model, host)
		_, err := svc.ReviewPull(ctx, pullURL)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("oversized PR reviews the first files only", func(t *testing.T) {
		host := testHost()
		for i := 0; i < maxReviewFiles+5; i++ {
			host.files = append(host.files, domain.PullFile{
				Path: fmt.Sprintf("file%03d.go", i), Status: "modified", Patch: simplePatch,
			})
		}
		model := &mockReviewModel{analysis: &domain.ReviewAnalysis{Recommendation: domain.ReviewApprove}}

		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, model, host)
		result, err := svc.ReviewPull(ctx, pullURL)
		require.NoError(t, err)

		assert.Len(t, model.lastReq.Files, maxReviewFiles)
		require.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0], "reviewing the first")
	})

	t.Run("removed and oversized files are excluded from the prompt", func(t *testing.T) {
		host := testHost()
		host.files = []domain.PullFile{
			{Path: "keep.go", Status: "modified", Patch: simplePatch},
			{Path: "gone.go", Status: "removed", Patch: simplePatch},
			{Path: "binary.png", Status: "modified", Patch: ""},
			{Path: "huge.go", Status: "modified", Patch: strings.Repeat("x", maxPatchChars+1)},
		}
		model := &mockReviewModel{analysis: &domain.ReviewAnalysis{Recommendation: domain.ReviewApprove}}

		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, model, host)
		result, err := svc.ReviewPull(ctx, pullURL)
		require.NoError(t, err)

		require.Len(t, model.lastReq.Files, 1)
		assert.Equal(t, "keep.go", model.lastReq.Files[0].Path)
		require.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0], "huge.go")
	})

	t.Run("mandatory standards reach the model under a retrieval outage", func(t *testing.T) {
		catalog := memory.NewCatalogStore()
		require.NoError(t, catalog.UpsertStandard(ctx, domain.StandardDocument{
			StandardID: "corp-001",
			Type:       domain.StandardTypeCorporate,
			Scope:      domain.ScopeAlways,
			Title:      "Error handling policy",
			Body:       "Always check returned errors.",
			Severity:   domain.SeverityHigh,
		}))

		retrieval := NewRetrievalService(
			catalog,
			&mockKeywordIndex{searchErr: errors.New("fts offline")},
			&mockVectorIndex{searchErr: errors.New("qdrant offline")},
			&mockEmbeddingService{embedding: []float32{0.1}},
		)

		host := testHost()
		model := &mockReviewModel{analysis: &domain.ReviewAnalysis{Recommendation: domain.ReviewApprove}}

		svc := NewReviewOrchestrator(catalog, retrieval, nil, model, host)
		result, err := svc.ReviewPull(ctx, pullURL)
		require.NoError(t, err)

		assert.Contains(t, model.lastReq.StandardsContext, "Error handling policy")
		assert.Contains(t, model.lastReq.StandardsContext, "Always check returned errors.")
		require.NotEmpty(t, result.Warnings)
		assert.Contains(t, strings.Join(result.Warnings, "\n"), "retrieval unavailable")
	})

	t.Run("inline comments are capped, highest severity first", func(t *testing.T) {
		host := testHost()
		analysis := &domain.ReviewAnalysis{Recommendation: domain.ReviewComment}
		for i := 0; i < maxInlineComments+9; i++ {
			analysis.Findings = append(analysis.Findings, domain.Finding{
				File: "services/payment.go", Line: 1 + i%3,
				Severity: domain.SeverityLow, Type: domain.IssueStyle, Description: "d",
			})
		}
		// The critical finding arrives last in model order; the cap must
		// shed low-severity findings instead.
		analysis.Findings = append(analysis.Findings, domain.Finding{
			File: "services/payment.go", Line: 1,
			Severity: domain.SeverityCritical, Type: domain.IssueBug, Description: "overflow",
		})
		model := &mockReviewModel{analysis: analysis}

		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, model, host)
		result, err := svc.ReviewPull(ctx, pullURL)
		require.NoError(t, err)

		assert.Equal(t, maxInlineComments, result.Posted)
		assert.Equal(t, 10, result.Truncated)
		assert.Zero(t, result.Dropped)

		// Highest severity sorts first, so the late critical finding is
		// the first posted comment, not a casualty of the cap.
		require.Len(t, host.reviews, 1)
		require.NotEmpty(t, host.reviews[0].Comments)
		assert.Contains(t, host.reviews[0].Comments[0].Body, "critical/bug")
	})

	t.Run("invalid pull URL", func(t *testing.T) {
		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil,
			&mockReviewModel{analysis: &domain.ReviewAnalysis{}}, testHost())
		_, err := svc.ReviewPull(ctx, "https://github.com/o/r/issues/1")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing model", func(t *testing.T) {
		svc := NewReviewOrchestrator(memory.NewCatalogStore(), nil, nil, nil, testHost())
		_, err := svc.ReviewPull(ctx, pullURL)
		assert.ErrorIs(t, err, domain.ErrReviewModelUnavailable)
	})
}

func TestCapConditionals(t *testing.T) {
	docs := []domain.IncludedStandard{
		included("corp-1", domain.StandardTypeCorporate, domain.ScopeAlways, "a", 0),
		included("team-1", domain.StandardTypeTeam, domain.ScopeAlways, "b", 0),
	}
	for i := 0; i < 12; i++ {
		docs = append(docs, included(fmt.Sprintf("pm-%02d", i),
			domain.StandardTypePostmortem, domain.ScopeConditional, "c", float64(12-i)))
	}

	got := capConditionals(docs, 10)
	require.Len(t, got, 12)

	// Mandatory entries never count against the cap; the two lowest-scored
	// conditionals are the ones shed.
	assert.Equal(t, "corp-1", got[0].Document.StandardID)
	assert.Equal(t, "team-1", got[1].Document.StandardID)
	assert.Equal(t, "pm-09", got[11].Document.StandardID)

	assert.Len(t, capConditionals(docs, 0), 14)
}
