package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
	"github.com/wardenlabs/warden/internal/core/ports/driving"
	"github.com/wardenlabs/warden/internal/diff"
	"github.com/wardenlabs/warden/internal/logger"
)

// Ensure ReviewOrchestrator implements the interface.
var _ driving.ReviewService = (*ReviewOrchestrator)(nil)

// Review workflow limits, matching the GitHub review API's practical bounds.
const (
	// maxReviewFiles caps how many changed files are reviewed. PRs larger
	// than this get the first files in API order; the rest are noted in the
	// summary.
	maxReviewFiles = 50

	// maxPatchChars skips a file's diff when its patch exceeds this, keeping
	// the model prompt bounded. The file still counts toward the changed
	// file set for applicability matching.
	maxPatchChars = 20000

	// maxInlineComments caps inline comments per review.
	maxInlineComments = 50
)

// ReviewOrchestrator runs the full review workflow: fetch the PR, retrieve
// and filter applicable standards, call the review model, validate comment
// targets against the diff, and post the result.
type ReviewOrchestrator struct {
	catalog   driven.CatalogStore
	retrieval *RetrievalService
	assembler *Assembler
	model     driven.ReviewModel
	host      driven.CodeHost
}

// NewReviewOrchestrator creates the review workflow service. retrieval may be
// nil; reviews then run on the always-scope catalog alone.
func NewReviewOrchestrator(
	catalog driven.CatalogStore,
	retrieval *RetrievalService,
	assembler *Assembler,
	model driven.ReviewModel,
	host driven.CodeHost,
) *ReviewOrchestrator {
	if assembler == nil {
		assembler = NewAssembler()
	}
	return &ReviewOrchestrator{
		catalog:   catalog,
		retrieval: retrieval,
		assembler: assembler,
		model:     model,
		host:      host,
	}
}

// ReviewPull reviews the PR at the given URL and posts the result.
func (s *ReviewOrchestrator) ReviewPull(ctx context.Context, pullURL string) (*driving.ReviewResult, error) {
	if s.model == nil {
		return nil, domain.ErrReviewModelUnavailable
	}

	ref, err := domain.ParsePullURL(pullURL)
	if err != nil {
		return nil, err
	}

	logger.Section("Review")
	logger.Info("Reviewing %s", ref)

	result := &driving.ReviewResult{PullURL: pullURL}

	pr, err := s.host.GetPullRequest(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get pull request %s: %w", ref, err)
	}

	files, err := s.host.ListChangedFiles(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("list changed files %s: %w", ref, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: pull request %s has no changed files", domain.ErrInvalidInput, ref)
	}
	if len(files) > maxReviewFiles {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("pull request has %d changed files, reviewing the first %d", len(files), maxReviewFiles))
		files = files[:maxReviewFiles]
	}

	changed, diffs, modelFiles := s.prepareFiles(files, result)

	included := s.applicableStandards(ctx, pr, changed, result)
	standardsContext := s.assembler.Assemble(included)
	logger.Debug("Standards context: %d included, %d chars", len(included), len(standardsContext))

	analysis, err := s.model.Analyze(ctx, driven.ReviewModelRequest{
		Title:            pr.Title,
		Body:             pr.Body,
		StandardsContext: standardsContext,
		Files:            modelFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("review model: %w", err)
	}
	result.Analysis = analysis
	logger.Info("Model returned %d findings, recommendation %s", len(analysis.Findings), analysis.Recommendation)

	comments := s.validateFindings(analysis.Findings, diffs, result)
	result.Posted = len(comments)

	// post resets Posted when it has to fall back to a reduced submission.
	reviewID, err := s.post(ctx, ref, pr, analysis, comments, result)
	if err != nil {
		return nil, err
	}
	result.ReviewID = reviewID

	return result, nil
}

// prepareFiles turns the host's changed files into the three views the
// workflow needs: the changed file set for retrieval and applicability, the
// parsed diffs for target validation, and the model's file list.
func (s *ReviewOrchestrator) prepareFiles(
	files []domain.PullFile, result *driving.ReviewResult,
) (domain.ChangedFileSet, []domain.DiffFile, []driven.ReviewModelFile) {
	changed := domain.ChangedFileSet{Files: make([]domain.ChangedFile, 0, len(files))}
	diffs := make([]domain.DiffFile, 0, len(files))
	modelFiles := make([]driven.ReviewModelFile, 0, len(files))

	for _, f := range files {
		changed.Files = append(changed.Files, domain.ChangedFile{
			Path:         f.Path,
			Additions:    f.Additions,
			AddedSamples: diff.AddedSamples(f.Patch, domain.MaxAddedLineSamples),
		})

		if f.Status == "removed" {
			// Deleted files have no new side to comment on.
			continue
		}
		if f.Patch == "" {
			// Binary or otherwise patch-less files.
			continue
		}
		if len(f.Patch) > maxPatchChars {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipped oversized diff for %s (%d chars)", f.Path, len(f.Patch)))
			continue
		}

		df := diff.ParsePatch(f.Path, f.Patch)
		diffs = append(diffs, df)
		modelFiles = append(modelFiles, driven.ReviewModelFile{
			Path:        f.Path,
			Patch:       f.Patch,
			AddedRanges: df.AddedRanges(),
		})
	}

	return changed, diffs, modelFiles
}

// applicableStandards pulls the always-scope catalog, runs retrieval for
// conditional standards and applies the inclusion rules. A retrieval outage
// degrades to the catalog pull alone and is recorded as a warning; a catalog
// outage only costs the mandatory set, never the whole review.
func (s *ReviewOrchestrator) applicableStandards(
	ctx context.Context,
	pr *domain.PullDetails,
	changed domain.ChangedFileSet,
	result *driving.ReviewResult,
) []domain.IncludedStandard {
	var always []domain.StandardDocument
	if s.catalog != nil {
		docs, err := s.catalog.ListByScope(ctx, domain.ScopeAlways)
		if err != nil {
			logger.Warn("Always-scope catalog pull failed: %v", err)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("always-scope catalog unavailable: %v", err))
		} else {
			always = docs
		}
	}

	query := domain.BuildRetrievalQuery(pr.Title, pr.Body, changed, 0, 0)

	var retrieved []domain.RetrievedStandard
	if s.retrieval != nil {
		hits, err := s.retrieval.Retrieve(ctx, query)
		if err != nil {
			logger.Warn("Retrieval degraded: %v", err)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("retrieval unavailable, mandatory standards only: %v", err))
		} else {
			retrieved = hits
		}
	}

	// Retrieval hands back the wider SemanticTopK pool so path matching sees
	// every candidate; the TopK cap applies to what survived the filter.
	return capConditionals(FilterApplicable(always, retrieved, changed), query.TopK)
}

// capConditionals bounds the conditional inclusions to topK, keeping the
// best-scored ones. Always-scope entries never count against the cap.
func capConditionals(included []domain.IncludedStandard, topK int) []domain.IncludedStandard {
	if topK <= 0 {
		return included
	}
	out := make([]domain.IncludedStandard, 0, len(included))
	kept := 0
	for _, inc := range included {
		if inc.Reason != domain.ReasonAlways {
			if kept >= topK {
				continue
			}
			kept++
		}
		out = append(out, inc)
	}
	return out
}

// validateFindings runs every finding's target through the diff line
// validator and renders the survivors as inline comment drafts, capped at
// maxInlineComments. Findings are processed highest severity first so the
// cap sheds the least important ones.
func (s *ReviewOrchestrator) validateFindings(
	findings []domain.Finding, diffs []domain.DiffFile, result *driving.ReviewResult,
) []driven.ReviewCommentDraft {
	validator := NewLineValidator(diffs)

	ordered := make([]domain.Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return severityRank(ordered[i].Severity) < severityRank(ordered[j].Severity)
	})

	comments := make([]driven.ReviewCommentDraft, 0, len(ordered))
	for _, finding := range ordered {
		vt := validator.Validate(finding.Target())
		switch vt.State {
		case domain.TargetDropped:
			result.Dropped++
			logger.Debug("Dropped finding at %s:%d (%s)", finding.File, finding.Line, vt.Reason)
			continue
		case domain.TargetCorrected:
			logger.Debug("Corrected finding at %s:%d -> %d", finding.File, finding.Line, vt.Line)
		}

		if len(comments) >= maxInlineComments {
			result.Truncated++
			continue
		}
		comments = append(comments, driven.ReviewCommentDraft{
			Path: finding.File,
			Line: vt.Line,
			Body: formatComment(finding),
		})
	}

	if result.Dropped > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d findings had no postable target and were dropped", result.Dropped))
	}
	if result.Truncated > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("inline comment cap reached, %d lower-severity findings kept in the summary only", result.Truncated))
	}
	return comments
}

// severityRank orders severities for the comment cap, highest first.
// Unknown severities sort last.
func severityRank(s domain.Severity) int {
	switch s {
	case domain.SeverityCritical:
		return 0
	case domain.SeverityHigh:
		return 1
	case domain.SeverityMedium:
		return 2
	case domain.SeverityLow:
		return 3
	case domain.SeverityInfo:
		return 4
	}
	return 5
}

// post submits the review, stepping down on rejection: full review with
// inline comments, then summary-only review, then COMMENT event for reviews
// the host refuses on the author's own PR, and finally a plain issue comment.
func (s *ReviewOrchestrator) post(
	ctx context.Context,
	ref domain.PullRef,
	pr *domain.PullDetails,
	analysis *domain.ReviewAnalysis,
	comments []driven.ReviewCommentDraft,
	result *driving.ReviewResult,
) (int64, error) {
	submission := driven.ReviewSubmission{
		CommitID: pr.HeadSHA,
		Body:     reviewBody(analysis, result.Warnings),
		Event:    analysis.Recommendation,
		Comments: comments,
	}
	if submission.Event == "" {
		submission.Event = domain.ReviewComment
	}

	reviewID, err := s.host.CreateReview(ctx, ref, submission)
	if err == nil {
		return reviewID, nil
	}
	if !errors.Is(err, domain.ErrReviewRejected) {
		return 0, fmt.Errorf("create review %s: %w", ref, err)
	}

	logger.Warn("Review rejected, retrying without inline comments: %v", err)
	result.Warnings = append(result.Warnings, "inline comments rejected, posted summary-only review")
	result.Posted = 0
	submission.Comments = nil

	reviewID, err = s.host.CreateReview(ctx, ref, submission)
	if err == nil {
		return reviewID, nil
	}
	if errors.Is(err, domain.ErrReviewRejected) && submission.Event != domain.ReviewComment {
		// APPROVE and REQUEST_CHANGES are refused on the author's own PR.
		logger.Warn("Review event %s rejected, retrying as COMMENT", submission.Event)
		submission.Event = domain.ReviewComment
		reviewID, err = s.host.CreateReview(ctx, ref, submission)
		if err == nil {
			result.Warnings = append(result.Warnings, "review event downgraded to COMMENT")
			return reviewID, nil
		}
	}
	if !errors.Is(err, domain.ErrReviewRejected) {
		return 0, fmt.Errorf("create review %s: %w", ref, err)
	}

	logger.Warn("Summary-only review rejected, falling back to issue comment")
	if err := s.host.CreateIssueComment(ctx, ref, submission.Body); err != nil {
		return 0, fmt.Errorf("create issue comment %s: %w", ref, err)
	}
	result.Warnings = append(result.Warnings, "review rejected, posted plain comment instead")
	return 0, nil
}

// formatComment renders one finding as an inline comment body.
func formatComment(f domain.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s/%s**: %s", f.Severity, f.Type, f.Description)
	if f.Suggestion != "" {
		fmt.Fprintf(&b, "\n\n Suggestion: %s", f.Suggestion)
	}
	return b.String()
}

// reviewBody renders the review summary.
func reviewBody(analysis *domain.ReviewAnalysis, warnings []string) string {
	var b strings.Builder
	b.WriteString(analysis.Summary)
	if b.Len() == 0 {
		b.WriteString("Automated standards review.")
	}
	if len(analysis.Findings) > 0 {
		fmt.Fprintf(&b, "\n\n%d finding(s) against the applicable standards.", len(analysis.Findings))
	}
	for _, w := range warnings {
		fmt.Fprintf(&b, "\n- note: %s", w)
	}
	return b.String()
}
