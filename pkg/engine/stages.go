package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/content-qa/models"
	"github.com/dtnitsch/content-qa/pkg/fuzzy"
	"github.com/dtnitsch/content-qa/pkg/language"
	"github.com/dtnitsch/content-qa/pkg/locator"
	"github.com/dtnitsch/content-qa/pkg/parser"
	"github.com/dtnitsch/content-qa/pkg/ticket"
)

const (
	missingTitle       = "Missing Title Tag"
	missingDescription = "Missing Meta Description"
	missingH1          = "Missing H1 Tag"

	ticketSnippetRunes = 100
)

// page is the state of one page while its stages run.
type page struct {
	name    string
	url     string
	doc     *goquery.Document
	content string
	issues  []models.Issue
	log     *slog.Logger
}

func (p *page) add(kind models.IssueKind, msg string, el *models.ElementInfo) {
	p.issues = append(p.issues, models.Issue{Kind: kind, Message: msg, Element: el})
}

func (e *Engine) verifyPage(ctx context.Context, log *slog.Logger, name, pageURL string, exp *Expectations, opts Options) models.PageResult {
	if exp == nil {
		exp = &Expectations{}
	}
	p := &page{name: name, url: pageURL, log: log.With("page", name, "url", pageURL)}

	if !e.fetch(ctx, p) {
		return p.result()
	}

	e.checkMetadata(ctx, p, exp.Metadata, opts)
	e.checkBadPhrases(ctx, p, opts)
	e.checkMetrics(ctx, p, exp.Metrics, opts)
	if opts.CheckLanguage {
		e.checkLanguage(p, exp.Text)
	}
	if opts.CheckLinks {
		e.checkLinks(ctx, p)
	}
	return p.result()
}

func (p *page) result() models.PageResult {
	return models.PageResult{PageName: p.name, URL: p.url, Issues: p.issues}
}

// fetch loads and parses the page. On failure the page gets its single
// unreachable issue and no other stage runs.
func (e *Engine) fetch(ctx context.Context, p *page) bool {
	resp, err := e.deps.Pages.Fetch(ctx, p.url)
	switch {
	case err != nil:
		p.log.Error("Error fetching page", "error", err)
	case !resp.OK():
		p.log.Error("Failed to reach page", "status", resp.StatusCode)
		err = fmt.Errorf("HTTP %d", resp.StatusCode)
	default:
		p.doc, err = parser.Parse(resp.Body)
		if err != nil {
			p.log.Error("Failed to parse page", "error", err)
		}
	}
	if err != nil {
		p.add(models.IssueFetchFailure, "Could not reach page: "+p.url, nil)
		return false
	}
	p.content = parser.FlattenText(p.doc)
	return true
}

func (e *Engine) checkMetadata(ctx context.Context, p *page, want models.ExpectedMetadata, opts Options) {
	if want.Title != "" {
		n, ok := parser.First(p.doc, "title")
		live := missingTitle
		if ok {
			live = strings.TrimSpace(parser.NodeText(n))
		}
		if !fuzzy.Matches(want.Title, live, e.thresholds.Title) {
			el := locator.Locate(n)
			p.add(models.IssueMismatch, fmt.Sprintf("SEO Title mismatch. Expected: '%s', Found: '%s'", want.Title, live), el)
			e.fileElementTicket(ctx, p, opts, "SEO Title Mismatch", el, want.Title, live)
		}
	}

	if want.Description != "" {
		n, ok := parser.First(p.doc, `meta[name="description"]`)
		live := missingDescription
		if ok {
			content, _ := parser.Attr(n, "content")
			live = strings.TrimSpace(content)
		}
		if !fuzzy.Matches(want.Description, live, e.thresholds.Description) {
			el := locator.Locate(n)
			p.add(models.IssueMismatch, fmt.Sprintf("Meta Description mismatch. Expected snippet of: '%.50s...'", want.Description), el)
			e.fileElementTicket(ctx, p, opts, "Meta Description Mismatch", el,
				truncate(want.Description, ticketSnippetRunes), truncate(live, ticketSnippetRunes))
		}
	}

	if want.H1 != "" {
		n, ok := parser.First(p.doc, "h1")
		live := missingH1
		if ok {
			live = strings.TrimSpace(parser.NodeText(n))
		}
		if !fuzzy.Matches(want.H1, live, e.thresholds.H1) {
			el := locator.Locate(n)
			p.add(models.IssueMismatch, fmt.Sprintf("H1 Header mismatch. Expected: '%s', Found: '%s'", want.H1, live), el)
			e.fileElementTicket(ctx, p, opts, "H1 Mismatch", el, want.H1, live)
		}
	}
}

func (e *Engine) checkBadPhrases(ctx context.Context, p *page, opts Options) {
	for _, phrase := range opts.BadPhrases {
		if phrase == "" || !strings.Contains(p.content, phrase) {
			continue
		}
		msg := fmt.Sprintf("Found copy error: '%s'", phrase)
		p.add(models.IssueBadPhrase, msg, nil)
		e.fileTicket(ctx, p, opts, msg)
	}
}

func (e *Engine) checkMetrics(ctx context.Context, p *page, metrics []string, opts Options) {
	for _, metric := range metrics {
		if fuzzy.Matches(metric, p.content, e.thresholds.Metric) {
			continue
		}
		msg := fmt.Sprintf("Metric '%s' missing or mismatch.", metric)
		p.add(models.IssueMetricMissing, msg, nil)
		e.fileTicket(ctx, p, opts, msg)
	}
}

func (e *Engine) checkLanguage(p *page, docText string) {
	if e.deps.Language == nil || strings.TrimSpace(docText) == "" {
		return
	}
	want, got, mismatch := language.Mismatch(e.deps.Language, docText, p.content)
	if mismatch {
		p.add(models.IssueLanguageMismatch, fmt.Sprintf("Language mismatch. Expected: '%s', Found: '%s'", want, got), nil)
	}
}

func (e *Engine) checkLinks(ctx context.Context, p *page) {
	if e.deps.Links == nil {
		return
	}
	broken := e.deps.Links.CheckPage(ctx, p.url)
	if len(broken) == 0 {
		return
	}
	p.add(models.IssueBrokenLinks, "Broken links: "+models.FormatBrokenLinks(broken), nil)
}

// fileTicket files msg when auto-ticketing is on. Failures are only logged.
func (e *Engine) fileTicket(ctx context.Context, p *page, opts Options, msg string) {
	if !e.ticketing(opts) {
		return
	}
	if _, err := e.deps.Tickets.CreateTicket(ctx, opts.TicketProjectID, msg, p.url); err != nil {
		e.logTicketError(p, err)
	}
}

// fileElementTicket files a mismatch when the live element exists.
func (e *Engine) fileElementTicket(ctx context.Context, p *page, opts Options, title string, el *models.ElementInfo, expected, found string) {
	if el == nil || !e.ticketing(opts) {
		return
	}
	if _, err := e.deps.Tickets.CreateTicketWithElement(ctx, opts.TicketProjectID, title, el, expected, found, p.url); err != nil {
		e.logTicketError(p, err)
	}
}

func (e *Engine) ticketing(opts Options) bool {
	return opts.Ticket && opts.TicketProjectID != "" && e.deps.Tickets != nil
}

func (e *Engine) logTicketError(p *page, err error) {
	if errors.Is(err, ticket.ErrNoAPIKey) {
		p.log.Warn("BugHerd API key missing, skipping ticket creation")
		return
	}
	p.log.Warn("Failed to create ticket", "error", err)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
