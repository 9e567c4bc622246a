package models

import (
	"fmt"
	"strings"
)

// ExpectedMetadata holds the SEO fields extracted from the source-of-truth text.
// An empty field was not found and is not checked.
type ExpectedMetadata struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	H1          string `json:"h1,omitempty" yaml:"h1,omitempty"`
}

// IsEmpty reports whether no field was extracted.
func (m ExpectedMetadata) IsEmpty() bool {
	return m.Title == "" && m.Description == "" && m.H1 == ""
}

// ElementInfo pinpoints a DOM node for a human. It holds no reference to the
// parsed tree. Empty fields could not be derived.
type ElementInfo struct {
	Tag         string `json:"tag,omitempty" yaml:"tag,omitempty"`
	CSSSelector string `json:"css_selector,omitempty" yaml:"css_selector,omitempty"`
	XPath       string `json:"xpath,omitempty" yaml:"xpath,omitempty"`
	Context     string `json:"context,omitempty" yaml:"context,omitempty"`
}

// IssueKind classifies an Issue.
type IssueKind string

const (
	IssueFetchFailure     IssueKind = "fetch_failure"
	IssueMismatch         IssueKind = "mismatch"
	IssueBadPhrase        IssueKind = "bad_phrase"
	IssueMetricMissing    IssueKind = "metric_missing"
	IssueBrokenLinks      IssueKind = "broken_links"
	IssueLanguageMismatch IssueKind = "language_mismatch"
)

// Issue is one human-readable finding on a page.
type Issue struct {
	Kind    IssueKind    `json:"kind" yaml:"kind"`
	Message string       `json:"message" yaml:"message"`
	Element *ElementInfo `json:"element,omitempty" yaml:"element,omitempty"`
}

func (i Issue) String() string {
	return i.Message
}

// PageResult is the outcome of verifying one page. It is not modified after
// the orchestrator returns it.
type PageResult struct {
	PageName string  `json:"page_name" yaml:"page_name"`
	URL      string  `json:"url" yaml:"url"`
	Issues   []Issue `json:"issues" yaml:"issues"`
}

// Passed is true when the page has no issues.
func (r PageResult) Passed() bool {
	return len(r.Issues) == 0
}

// AllPassed is true when every page passed.
func AllPassed(results []PageResult) bool {
	for _, r := range results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

// BrokenLink is a probe target that failed both HEAD and GET.
// Reason is either an HTTP status code or a transport error description.
// PageLevel marks the synthetic entry emitted when the page itself could not
// be fetched.
type BrokenLink struct {
	Target    string `json:"target" yaml:"target"`
	Status    int    `json:"status,omitempty" yaml:"status,omitempty"`
	Err       string `json:"error,omitempty" yaml:"error,omitempty"`
	PageLevel bool   `json:"page_level,omitempty" yaml:"page_level,omitempty"`
}

func (b BrokenLink) String() string {
	if b.PageLevel {
		if b.Err != "" {
			return "Page itself is unreachable: " + b.Err
		}
		return fmt.Sprintf("Page itself is unreachable: %d", b.Status)
	}
	if b.Err != "" {
		return fmt.Sprintf("%s (Error: %s)", b.Target, b.Err)
	}
	return fmt.Sprintf("%s (%d)", b.Target, b.Status)
}

// FormatBrokenLinks joins broken links into a single summary line.
func FormatBrokenLinks(broken []BrokenLink) string {
	parts := make([]string, len(broken))
	for i, b := range broken {
		parts[i] = b.String()
	}
	return strings.Join(parts, ", ")
}
