// Package report renders verification results as a standalone HTML page.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/dtnitsch/content-qa/models"
	"github.com/dtnitsch/content-qa/pkg/storage"
)

var (
	ErrNoProjectName = errors.New("report: project name is required")
	ErrNoResults     = errors.New("report: no results to render")
)

var reportTmpl = template.Must(template.New("report").Parse(reportHTML))

type Generator struct {
	store  *storage.Storage
	now    func() time.Time
	logger *slog.Logger
}

func NewGenerator(store *storage.Storage, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: store, now: time.Now, logger: logger}
}

type pageView struct {
	models.PageResult
	Passed bool
}

type reportView struct {
	ProjectName string
	Generated   string
	Total       int
	Failed      int
	Pages       []pageView
}

// Generate writes report_<slug>_<timestamp>.html and returns its path.
func (g *Generator) Generate(projectName string, results []models.PageResult) (string, error) {
	if strings.TrimSpace(projectName) == "" {
		return "", ErrNoProjectName
	}
	if len(results) == 0 {
		return "", ErrNoResults
	}

	now := g.now()
	view := reportView{
		ProjectName: projectName,
		Generated:   now.Format("2006-01-02 15:04:05"),
		Total:       len(results),
	}
	for _, r := range results {
		if !r.Passed() {
			view.Failed++
		}
		view.Pages = append(view.Pages, pageView{PageResult: r, Passed: r.Passed()})
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	name := g.freeName(FileName(projectName, now))
	path, err := g.store.SaveFile(name, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	g.logger.Info("HTML report generated", "path", path)
	return path, nil
}

// freeName keeps two runs in the same second from overwriting each other.
func (g *Generator) freeName(name string) string {
	if !g.store.HasFile(name) {
		return name
	}
	base := strings.TrimSuffix(name, ".html")
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d.html", base, i)
		if !g.store.HasFile(candidate) {
			return candidate
		}
	}
}

// FileName builds the report file name for a project at t.
func FileName(projectName string, t time.Time) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(projectName)), " ", "_")
	slug = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, slug)
	return fmt.Sprintf("report_%s_%s.html", slug, t.Format("20060102_150405"))
}

const reportHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>QA Report - {{.ProjectName}}</title>
<style>
body { font-family: 'Inter', sans-serif; background: #f4f7f6; color: #333; margin: 0; padding: 40px; }
.container { max-width: 1000px; margin: auto; background: white; padding: 30px; border-radius: 12px; box-shadow: 0 4px 20px rgba(0,0,0,0.08); }
h1 { color: #1a1a1a; margin-top: 0; }
.meta { color: #666; font-size: 0.9em; margin-bottom: 30px; border-bottom: 1px solid #eee; padding-bottom: 20px; }
.card { border: 1px solid #eee; border-radius: 8px; padding: 20px; margin-bottom: 20px; }
.card.pass { border-left: 6px solid #2ecc71; }
.card.fail { border-left: 6px solid #e74c3c; }
.card-head { display: flex; justify-content: space-between; align-items: flex-start; }
.card-head h3 { margin: 0 0 5px 0; }
.status-badge { display: inline-block; padding: 4px 12px; border-radius: 20px; font-size: 0.8em; font-weight: bold; text-transform: uppercase; }
.pass .status-badge { background: #eafaf1; color: #2ecc71; }
.fail .status-badge { background: #fdf2f2; color: #e74c3c; }
.issue-list { margin-top: 15px; padding-left: 20px; color: #555; }
.issue-item { margin-bottom: 8px; }
.element { font-family: monospace; font-size: 0.85em; color: #777; margin-top: 4px; }
a { color: #3498db; text-decoration: none; }
a:hover { text-decoration: underline; }
</style>
</head>
<body>
<div class="container">
<h1>QA Automation Report</h1>
<div class="meta">
<strong>Project:</strong> {{.ProjectName}}<br>
<strong>Generated:</strong> {{.Generated}}<br>
<strong>Pages:</strong> {{.Total}} checked, {{.Failed}} failed
</div>
{{range .Pages}}
<div class="card {{if .Passed}}pass{{else}}fail{{end}}">
<div class="card-head">
<div>
<h3>{{.PageName}}</h3>
<a href="{{.URL}}" target="_blank">{{.URL}}</a>
</div>
<span class="status-badge">{{if .Passed}}PASSED{{else}}FAILED{{end}}</span>
</div>
{{- if .Issues}}
<ul class="issue-list">
{{- range .Issues}}
<li class="issue-item">{{.Message}}
{{- with .Element}}
<div class="element">
{{- if .CSSSelector}}Selector: {{.CSSSelector}}<br>{{end}}
{{- if .XPath}}XPath: {{.XPath}}<br>{{end}}
{{- if .Context}}Context: {{.Context}}{{end}}
</div>
{{- end}}
</li>
{{- end}}
</ul>
{{- end}}
</div>
{{end}}
</div>
</body>
</html>
`
