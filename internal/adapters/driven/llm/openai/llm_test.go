package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
)

func TestNewReviewModel(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewReviewModel(Config{})
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		m, err := NewReviewModel(Config{APIKey: "key"})
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, m.ModelName())
		assert.Equal(t, DefaultBaseURL, m.baseURL)
	})
}

func TestParseAnalysis(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		content := `{
			"issues": [
				{"file": "main.go", "line": 42, "end_line": 44, "severity": "HIGH",
				 "type": "Bug", "description": "Nil deref.", "suggestion": "Check nil."}
			],
			"summary": "One bug.",
			"approval_recommendation": "request_changes"
		}`
		got, err := parseAnalysis(content)
		require.NoError(t, err)
		require.Len(t, got.Findings, 1)

		f := got.Findings[0]
		assert.Equal(t, "main.go", f.File)
		assert.Equal(t, 42, f.Line)
		assert.Equal(t, 44, f.EndLine)
		assert.Equal(t, domain.SeverityHigh, f.Severity)
		assert.Equal(t, domain.IssueBug, f.Type)
		assert.Equal(t, "One bug.", got.Summary)
		assert.Equal(t, domain.ReviewRequestChanges, got.Recommendation)
	})

	t.Run("malformed issues are skipped", func(t *testing.T) {
		content := `{
			"issues": [
				{"file": "", "line": 1, "severity": "high", "type": "bug", "description": "no file"},
				{"file": "a.go", "line": 0, "severity": "high", "type": "bug", "description": "no line"},
				{"file": "a.go", "line": 5, "severity": "fatal", "type": "bug", "description": "bad severity"},
				{"file": "a.go", "line": 7, "severity": "low", "type": "style", "description": "kept"}
			],
			"summary": "s",
			"approval_recommendation": "COMMENT"
		}`
		got, err := parseAnalysis(content)
		require.NoError(t, err)
		require.Len(t, got.Findings, 1)
		assert.Equal(t, 7, got.Findings[0].Line)
	})

	t.Run("unknown recommendation defaults to COMMENT", func(t *testing.T) {
		got, err := parseAnalysis(`{"issues": [], "summary": "", "approval_recommendation": "SHIP_IT"}`)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewComment, got.Recommendation)
	})

	t.Run("unparsable envelope is an error", func(t *testing.T) {
		_, err := parseAnalysis("not json at all")
		assert.Error(t, err)
	})

	t.Run("fenced response is unwrapped", func(t *testing.T) {
		got, err := parseAnalysis("```json\n{\"issues\": [], \"summary\": \"ok\", \"approval_recommendation\": \"APPROVE\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewApprove, got.Recommendation)
	})
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading whitespace", "  ```json\n{}\n```  ", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}

func TestBuildReviewPrompt(t *testing.T) {
	req := driven.ReviewModelRequest{
		Title:            "Add retries",
		Body:             "Retries transient failures.",
		StandardsContext: "### Code standards\n- [corporate/high] Policy",
		Files: []driven.ReviewModelFile{
			{
				Path:        "svc/retry.go",
				Patch:       "@@ -1 +1,2 @@\n old\n+new",
				AddedRanges: [][2]int{{2, 2}, {10, 14}},
			},
		},
	}
	prompt := buildReviewPrompt(req)

	assert.Contains(t, prompt, "## PR Title: Add retries")
	assert.Contains(t, prompt, "Retries transient failures.")
	assert.Contains(t, prompt, "## Code Standards")
	assert.Contains(t, prompt, "[corporate/high] Policy")
	assert.Contains(t, prompt, "### File: svc/retry.go")
	assert.Contains(t, prompt, "**Changed lines (ONLY these lines can be commented on):** 2, 10-14")
	assert.Contains(t, prompt, "```diff")
}

func TestAnalyze(t *testing.T) {
	t.Run("empty file list short-circuits to approve", func(t *testing.T) {
		m, err := NewReviewModel(Config{APIKey: "key"})
		require.NoError(t, err)

		got, err := m.Analyze(context.Background(), driven.ReviewModelRequest{Title: "t"})
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewApprove, got.Recommendation)
		assert.Empty(t, got.Findings)
	})

	t.Run("round trip against a stub server", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

			var req chatCompletionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Contains(t, req.Messages[1].Content, "svc/retry.go")
			require.NotNil(t, req.ResponseFormat)
			assert.Equal(t, "json_object", req.ResponseFormat.Type)

			answer := `{"issues":[{"file":"svc/retry.go","line":2,"severity":"medium","type":"performance","description":"d","suggestion":"s"}],"summary":"ok","approval_recommendation":"COMMENT"}`
			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": answer}},
				},
			}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
		defer server.Close()

		m, err := NewReviewModel(Config{APIKey: "key", BaseURL: server.URL})
		require.NoError(t, err)

		got, err := m.Analyze(context.Background(), driven.ReviewModelRequest{
			Title: "t",
			Files: []driven.ReviewModelFile{{Path: "svc/retry.go", Patch: "+new"}},
		})
		require.NoError(t, err)
		require.Len(t, got.Findings, 1)
		assert.Equal(t, domain.SeverityMedium, got.Findings[0].Severity)
		assert.Equal(t, domain.ReviewComment, got.Recommendation)
	})

	t.Run("API error surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth"}}`))
		}))
		defer server.Close()

		m, err := NewReviewModel(Config{APIKey: "bad", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = m.Analyze(context.Background(), driven.ReviewModelRequest{
			Files: []driven.ReviewModelFile{{Path: "f", Patch: "+x"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid api key")
	})
}
