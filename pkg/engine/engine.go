// Package engine verifies live pages against a source-of-truth document.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dtnitsch/content-qa/models"
	"github.com/dtnitsch/content-qa/pkg/extractor"
	"github.com/dtnitsch/content-qa/pkg/fetcher"
	"github.com/dtnitsch/content-qa/pkg/language"
	"github.com/dtnitsch/content-qa/pkg/ticket"
)

const (
	AdHocPageName    = "Ad-Hoc Check"
	AdHocProjectName = "Ad-Hoc Run"
)

// ErrProjectNotFound is returned by RunProject for an unknown id.
var ErrProjectNotFound = errors.New("project not found")

type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Response, error)
}

type DocumentSource interface {
	FetchText(ctx context.Context, docURL string, force bool) (string, error)
}

type LinkChecker interface {
	CheckPage(ctx context.Context, pageURL string) []models.BrokenLink
}

type Ticketer interface {
	CreateTicket(ctx context.Context, projectID, description, pageURL string) (*ticket.Task, error)
	CreateTicketWithElement(ctx context.Context, projectID, title string, el *models.ElementInfo, expected, found, pageURL string) (*ticket.Task, error)
}

type Reporter interface {
	Generate(projectName string, results []models.PageResult) (string, error)
}

// Deps are the collaborators of an Engine. Only Pages is required.
type Deps struct {
	Pages    PageFetcher
	Docs     DocumentSource
	Links    LinkChecker
	Tickets  Ticketer
	Reports  Reporter
	Language language.Detector
}

// Thresholds are the fuzzy-match ratios per field.
type Thresholds struct {
	Title       float64
	Description float64
	H1          float64
	Metric      float64
}

// Options control the optional stages of a run.
type Options struct {
	CheckLinks      bool
	CheckLanguage   bool
	Ticket          bool
	TicketProjectID string
	BadPhrases      []string
	ForceFetch      bool
}

// Expectations are extracted once per run and shared by every page.
type Expectations struct {
	Text     string
	Metadata models.ExpectedMetadata
	Metrics  []string
}

// NewExpectations extracts metadata and metrics from text.
func NewExpectations(text string) *Expectations {
	return &Expectations{
		Text:     text,
		Metadata: extractor.ExtractMetadata(text),
		Metrics:  extractor.ExtractMetrics(text),
	}
}

// AdHocRequest checks one URL outside any configured project.
type AdHocRequest struct {
	URL     string
	DocURL  string
	Options Options
}

// Run is the outcome of one verification run.
type Run struct {
	ID         string              `json:"run_id" yaml:"run_id"`
	Name       string              `json:"name" yaml:"name"`
	Passed     bool                `json:"passed" yaml:"passed"`
	Results    []models.PageResult `json:"results" yaml:"results"`
	ReportPath string              `json:"report_path,omitempty" yaml:"report_path,omitempty"`
}

type Engine struct {
	cfg        *models.Config
	deps       Deps
	thresholds Thresholds
	logger     *slog.Logger
}

func New(cfg *models.Config, deps Deps, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = models.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := cfg.Settings
	return &Engine{
		cfg:  cfg,
		deps: deps,
		thresholds: Thresholds{
			Title:       s.TitleThreshold,
			Description: s.DescriptionThreshold,
			H1:          s.H1Threshold,
			Metric:      s.MetricThreshold,
		},
		logger: logger,
	}
}

// RunAdHoc verifies a single page, optionally against a document.
func (e *Engine) RunAdHoc(ctx context.Context, req AdHocRequest) *Run {
	run := e.newRun(AdHocProjectName)
	log := e.logger.With("run_id", run.ID)
	log.Info("Starting ad-hoc QA check", "url", req.URL)

	exp := e.loadExpectations(ctx, log, req.DocURL, req.Options.ForceFetch)
	run.Results = []models.PageResult{e.verifyPage(ctx, log, AdHocPageName, req.URL, exp, req.Options)}
	e.finish(log, run)
	return run
}

// RunProject verifies every configured page of a project in order.
func (e *Engine) RunProject(ctx context.Context, projectID string, opts Options) (*Run, error) {
	project, ok := e.cfg.FindProject(projectID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	run := e.newRun(project.Name)
	log := e.logger.With("run_id", run.ID, "project", project.Name)
	log.Info("Starting project QA", "pages", len(project.LivePages))

	if opts.TicketProjectID == "" {
		opts.TicketProjectID = project.BugherdProjectID
	}
	opts.BadPhrases = append(append([]string(nil), opts.BadPhrases...), project.Rules.BadPhrases...)

	exp := e.loadExpectations(ctx, log, project.GoogleDocURL, opts.ForceFetch)
	for _, page := range project.LivePages {
		run.Results = append(run.Results, e.verifyPage(ctx, log, page.Name, page.URL, exp, opts))
	}
	e.finish(log, run)
	return run, nil
}

// VerifyPage runs every stage for one page. Failures are recorded as issues.
func (e *Engine) VerifyPage(ctx context.Context, name, pageURL string, exp *Expectations, opts Options) models.PageResult {
	return e.verifyPage(ctx, e.logger, name, pageURL, exp, opts)
}

func (e *Engine) newRun(name string) *Run {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Run{ID: id.String(), Name: name}
}

func (e *Engine) loadExpectations(ctx context.Context, log *slog.Logger, docURL string, force bool) *Expectations {
	if strings.TrimSpace(docURL) == "" || e.deps.Docs == nil {
		return &Expectations{}
	}
	text, err := e.deps.Docs.FetchText(ctx, docURL, force)
	if err != nil {
		log.Warn("Could not fetch source document", "url", docURL, "error", err)
		return &Expectations{}
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("Source document is empty", "url", docURL)
		return &Expectations{}
	}
	exp := NewExpectations(text)
	log.Info("Loaded source document", "url", docURL, "metrics", len(exp.Metrics), "has_metadata", !exp.Metadata.IsEmpty())
	return exp
}

func (e *Engine) finish(log *slog.Logger, run *Run) {
	run.Passed = models.AllPassed(run.Results)

	if e.deps.Reports != nil && len(run.Results) > 0 {
		path, err := e.deps.Reports.Generate(run.Name, run.Results)
		if err != nil {
			log.Warn("Failed to write report", "error", err)
		} else {
			run.ReportPath = path
		}
	}

	issues := 0
	for _, r := range run.Results {
		issues += len(r.Issues)
	}
	if run.Passed {
		log.Info("QA check passed", "pages", len(run.Results))
	} else {
		log.Error("QA run found issues", "pages", len(run.Results), "issues", issues)
	}
}
