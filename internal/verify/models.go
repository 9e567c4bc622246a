package verify

import (
	"time"

	"github.com/dtnitsch/content-qa/models"
	"github.com/dtnitsch/content-qa/pkg/engine"
)

const (
	StatusPassed      = "passed"
	StatusIssuesFound = "issues_found"
)

// FinalOutput is the structured output for the entire run.
type FinalOutput struct {
	Status     string              `json:"status" yaml:"status"`
	RunID      string              `json:"run_id" yaml:"run_id"`
	Name       string              `json:"name" yaml:"name"`
	ReportPath string              `json:"report_path,omitempty" yaml:"report_path,omitempty"`
	Results    []models.PageResult `json:"results" yaml:"results"`
	Stats      Stats               `json:"stats" yaml:"stats"`
}

// Stats provides summary statistics for the run.
type Stats struct {
	TotalPages       int     `json:"total_pages" yaml:"total_pages"`
	Passed           int     `json:"passed" yaml:"passed"`
	Failed           int     `json:"failed" yaml:"failed"`
	TotalIssues      int     `json:"total_issues" yaml:"total_issues"`
	TotalTimeSeconds float64 `json:"total_time_seconds" yaml:"total_time_seconds"`
}

// BuildOutput summarizes run.
func BuildOutput(run *engine.Run, elapsed time.Duration) FinalOutput {
	out := FinalOutput{
		Status:     StatusPassed,
		RunID:      run.ID,
		Name:       run.Name,
		ReportPath: run.ReportPath,
		Results:    run.Results,
		Stats: Stats{
			TotalPages:       len(run.Results),
			TotalTimeSeconds: elapsed.Seconds(),
		},
	}
	if !run.Passed {
		out.Status = StatusIssuesFound
	}
	for _, r := range run.Results {
		if r.Passed() {
			out.Stats.Passed++
		} else {
			out.Stats.Failed++
		}
		out.Stats.TotalIssues += len(r.Issues)
	}
	return out
}
