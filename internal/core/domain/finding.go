package domain

// ReviewEvent is the GitHub review action recommended by the model.
type ReviewEvent string

// Review events, matching the GitHub review API.
const (
	ReviewApprove        ReviewEvent = "APPROVE"
	ReviewRequestChanges ReviewEvent = "REQUEST_CHANGES"
	ReviewComment        ReviewEvent = "COMMENT"
)

// IssueType classifies a finding.
type IssueType string

// Issue types.
const (
	IssueBug             IssueType = "bug"
	IssueSecurity        IssueType = "security"
	IssuePerformance     IssueType = "performance"
	IssueStyle           IssueType = "style"
	IssueMaintainability IssueType = "maintainability"
	IssueBestPractice    IssueType = "best_practice"
)

// Finding is a single issue the review model reported against the diff.
// Its (File, Line) pair is a CommentTarget proposal and must pass diff line
// validation before it may be posted.
type Finding struct {
	File        string
	Line        int
	EndLine     int
	Severity    Severity
	Type        IssueType
	Description string
	Suggestion  string
}

// Target returns the finding's proposed comment target.
func (f Finding) Target() CommentTarget {
	return CommentTarget{Path: f.File, Line: f.Line}
}

// ReviewAnalysis is the complete output of the review model for one PR.
type ReviewAnalysis struct {
	Findings       []Finding
	Summary        string
	Recommendation ReviewEvent
}
