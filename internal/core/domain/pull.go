package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PullRef identifies a pull request on the code host.
type PullRef struct {
	Owner  string
	Repo   string
	Number int
}

// String renders the ref as owner/repo#number.
func (r PullRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// ParsePullURL extracts a PullRef from a GitHub pull request URL such as
// https://github.com/owner/repo/pull/123.
func ParsePullURL(raw string) (PullRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return PullRef{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" {
		return PullRef{}, fmt.Errorf("%w: not a pull request URL: %s", ErrInvalidInput, raw)
	}
	number, err := strconv.Atoi(parts[3])
	if err != nil || number <= 0 {
		return PullRef{}, fmt.Errorf("%w: invalid pull request number in %s", ErrInvalidInput, raw)
	}
	return PullRef{Owner: parts[0], Repo: parts[1], Number: number}, nil
}

// PullDetails are the PR attributes the review needs.
type PullDetails struct {
	Number  int
	Title   string
	Body    string
	HeadSHA string
	BaseSHA string
	Author  string
	HTMLURL string
}

// PullFile is one changed file of the PR as reported by the code host.
type PullFile struct {
	// Path is the new-file path.
	Path string

	// Status is added, removed, modified or renamed.
	Status string

	Additions int
	Deletions int

	// Patch is the unified diff for the file, empty for binary files.
	Patch string
}
