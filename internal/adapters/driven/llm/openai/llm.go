// Package openai implements the review model port against an
// OpenAI-compatible chat completions API (OpenAI, Azure OpenAI, or any
// endpoint speaking the same protocol, including Ollama's /v1 surface).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
	"github.com/wardenlabs/warden/internal/logger"
)

// Ensure ReviewModel implements the interface.
var _ driven.ReviewModel = (*ReviewModel)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second

	reviewTemperature = 0.3
	reviewMaxTokens   = 4000
)

// systemPrompt instructs the model to review diffs against the provided
// standards and answer in the fixed JSON shape.
const systemPrompt = `You are an expert code reviewer with deep knowledge of software engineering best practices, security vulnerabilities, performance optimization, and clean code principles.

Your task is to analyze code changes (diffs) from a Pull Request and provide a thorough review.

For each issue you find, provide:
1. The exact file path
2. The line number where the issue occurs - MUST be a line number that appears with a '+' prefix in the diff
3. Severity level: critical, high, medium, low, or info
4. Issue type: bug, security, performance, style, maintainability, or best_practice
5. A clear description of the issue
6. A concrete suggestion for how to fix it (with code if applicable)

CRITICAL: Line numbers MUST correspond to lines that were actually changed in the diff (marked with +).
Only comment on lines that are visible in the diff with a '+' prefix.
If you want to comment on context, pick the nearest changed line.

Guidelines:
- When code standards are provided, treat them as authoritative guidance for this review
- Focus on meaningful issues that impact code quality, security, or functionality
- ONLY use line numbers from the "Changed lines" list provided for each file
- Avoid nitpicking on minor style issues unless they significantly impact readability
- Provide actionable suggestions with example code when possible
- Consider the context of changes - don't review unchanged code

Your response must be valid JSON with this structure:
{
    "issues": [
        {
            "file": "path/to/file.go",
            "line": 42,
            "end_line": null,
            "severity": "high",
            "type": "bug",
            "description": "Description of the issue",
            "suggestion": "Suggested fix with code example"
        }
    ],
    "summary": "Overall assessment of the PR changes",
    "approval_recommendation": "COMMENT"
}

The approval_recommendation should be:
- "APPROVE" if the code is good with only minor suggestions
- "REQUEST_CHANGES" if there are critical or high severity issues that must be fixed
- "COMMENT" if there are medium/low issues or general feedback

If there are no issues, return an empty issues array with a positive summary.`

// Config holds configuration for the review model.
type Config struct {
	// APIKey is the API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// ReviewModel analyses pull request diffs via chat completions.
type ReviewModel struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// chatCompletionRequest is the /chat/completions request format.
type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature,omitempty"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

// responseFormat requests JSON-mode output.
type responseFormat struct {
	Type string `json:"type"`
}

// chatCompletionMsg is the chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// reviewResponse is the model's JSON answer.
type reviewResponse struct {
	Issues []struct {
		File        string `json:"file"`
		Line        int    `json:"line"`
		EndLine     *int   `json:"end_line"`
		Severity    string `json:"severity"`
		Type        string `json:"type"`
		Description string `json:"description"`
		Suggestion  string `json:"suggestion"`
	} `json:"issues"`
	Summary                string `json:"summary"`
	ApprovalRecommendation string `json:"approval_recommendation"`
}

// NewReviewModel creates a review model backed by an OpenAI-compatible API.
func NewReviewModel(cfg Config) (*ReviewModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ReviewModel{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Analyze reviews the PR and returns findings with proposed comment targets.
func (s *ReviewModel) Analyze(ctx context.Context, req driven.ReviewModelRequest) (*domain.ReviewAnalysis, error) {
	if len(req.Files) == 0 {
		return &domain.ReviewAnalysis{
			Summary:        "No reviewable code changes found in this PR.",
			Recommendation: domain.ReviewApprove,
		}, nil
	}

	content, err := s.chatCompletion(ctx, buildReviewPrompt(req))
	if err != nil {
		return nil, err
	}

	return parseAnalysis(content)
}

// chatCompletion sends the review conversation and returns the raw answer.
func (s *ReviewModel) chatCompletion(ctx context.Context, userPrompt string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: s.model,
		Messages: []chatCompletionMsg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:      reviewMaxTokens,
		Temperature:    reviewTemperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// buildReviewPrompt renders the request into the user message.
func buildReviewPrompt(req driven.ReviewModelRequest) string {
	var b strings.Builder

	b.WriteString("# Pull Request Review Request\n\n")
	fmt.Fprintf(&b, "## PR Title: %s\n", req.Title)
	if req.Body != "" {
		fmt.Fprintf(&b, "\n## PR Description:\n%s\n", req.Body)
	}

	if req.StandardsContext != "" {
		b.WriteString("\n## Code Standards\n")
		b.WriteString("Use the following standards as authoritative guidance for this review.\n\n")
		b.WriteString(req.StandardsContext)
		b.WriteString("\n---\n")
	}

	b.WriteString("\n## Changed Files:\n")
	for _, f := range req.Files {
		fmt.Fprintf(&b, "\n### File: %s\n", f.Path)
		if len(f.AddedRanges) > 0 {
			ranges := make([]string, len(f.AddedRanges))
			for i, r := range f.AddedRanges {
				if r[0] == r[1] {
					ranges[i] = fmt.Sprintf("%d", r[0])
				} else {
					ranges[i] = fmt.Sprintf("%d-%d", r[0], r[1])
				}
			}
			fmt.Fprintf(&b, "**Changed lines (ONLY these lines can be commented on):** %s\n", strings.Join(ranges, ", "))
		}
		fmt.Fprintf(&b, "\n#### Diff/Patch:\n```diff\n%s\n```\n", f.Patch)
	}

	b.WriteString("\nPlease review the above changes and provide your analysis in JSON format.")
	return b.String()
}

// parseAnalysis decodes the model's JSON answer. Individual malformed issues
// are skipped; an unparsable envelope is an error.
func parseAnalysis(content string) (*domain.ReviewAnalysis, error) {
	content = stripCodeFence(content)

	var resp reviewResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("parse review response: %w", err)
	}

	analysis := &domain.ReviewAnalysis{
		Summary: resp.Summary,
	}

	for _, issue := range resp.Issues {
		severity := domain.Severity(strings.ToLower(issue.Severity))
		issueType := domain.IssueType(strings.ToLower(issue.Type))
		if issue.File == "" || issue.Line <= 0 || !severity.Valid() {
			logger.Warn("Skipping malformed finding: file=%q line=%d severity=%q",
				issue.File, issue.Line, issue.Severity)
			continue
		}

		finding := domain.Finding{
			File:        issue.File,
			Line:        issue.Line,
			Severity:    severity,
			Type:        issueType,
			Description: issue.Description,
			Suggestion:  issue.Suggestion,
		}
		if issue.EndLine != nil {
			finding.EndLine = *issue.EndLine
		}
		analysis.Findings = append(analysis.Findings, finding)
	}

	switch domain.ReviewEvent(strings.ToUpper(resp.ApprovalRecommendation)) {
	case domain.ReviewApprove:
		analysis.Recommendation = domain.ReviewApprove
	case domain.ReviewRequestChanges:
		analysis.Recommendation = domain.ReviewRequestChanges
	default:
		analysis.Recommendation = domain.ReviewComment
	}

	return analysis, nil
}

// stripCodeFence removes a wrapping markdown code fence, which some models
// emit despite JSON mode.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// ModelName returns the name of the chat model being used.
func (s *ReviewModel) ModelName() string {
	return s.model
}

// Close releases resources.
func (s *ReviewModel) Close() error {
	return nil
}
