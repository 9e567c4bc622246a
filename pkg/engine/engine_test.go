package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dtnitsch/content-qa/models"
	"github.com/dtnitsch/content-qa/pkg/fetcher"
	"github.com/dtnitsch/content-qa/pkg/ticket"
)

type fakePages map[string]string

func (f fakePages) Fetch(_ context.Context, url string) (*fetcher.Response, error) {
	body, ok := f[url]
	if !ok {
		return nil, errors.New("dial tcp: no such host")
	}
	if body == "500" {
		return &fetcher.Response{StatusCode: 500, FinalURL: url}, nil
	}
	return &fetcher.Response{StatusCode: 200, Body: []byte(body), FinalURL: url}, nil
}

type fakeDocs struct {
	text string
	err  error
	urls []string
}

func (f *fakeDocs) FetchText(_ context.Context, docURL string, _ bool) (string, error) {
	f.urls = append(f.urls, docURL)
	return f.text, f.err
}

type fakeLinks struct {
	broken []models.BrokenLink
	calls  int
}

func (f *fakeLinks) CheckPage(context.Context, string) []models.BrokenLink {
	f.calls++
	return f.broken
}

type fakeTickets struct {
	plain     []string
	elements  []string
	projectID string
	err       error
}

func (f *fakeTickets) CreateTicket(_ context.Context, projectID, description, _ string) (*ticket.Task, error) {
	f.projectID = projectID
	f.plain = append(f.plain, description)
	return &ticket.Task{ID: 1}, f.err
}

func (f *fakeTickets) CreateTicketWithElement(_ context.Context, projectID, title string, el *models.ElementInfo, _, _, _ string) (*ticket.Task, error) {
	f.projectID = projectID
	f.elements = append(f.elements, title+" @ "+el.CSSSelector)
	return &ticket.Task{ID: 2}, f.err
}

type fakeReports struct {
	name    string
	results []models.PageResult
}

func (f *fakeReports) Generate(name string, results []models.PageResult) (string, error) {
	f.name = name
	f.results = results
	return "reports/" + name + ".html", nil
}

type fakeLanguage map[string]string

func (f fakeLanguage) Detect(text string) (string, bool) {
	code, ok := f[text]
	return code, ok
}

func messages(r models.PageResult) []string {
	var out []string
	for _, i := range r.Issues {
		out = append(out, i.Message)
	}
	return out
}

func newTestEngine(pages fakePages, deps Deps) *Engine {
	deps.Pages = pages
	return New(models.DefaultConfig(), deps, nil)
}

func TestVerifyPage_H1WordWindowPasses(t *testing.T) {
	pages := fakePages{"https://acme.example/": `<html><head><title>Best Widget Store</title></head><body><h1>Welcome Home</h1></body></html>`}
	e := newTestEngine(pages, Deps{})
	exp := NewExpectations("SEO Title: Best Widgets\nH1: Welcome")

	r := e.VerifyPage(context.Background(), "Home", "https://acme.example/", exp, Options{})
	for _, i := range r.Issues {
		if i.Kind == models.IssueMismatch && i.Element != nil && i.Element.Tag == "h1" {
			t.Errorf("unexpected H1 issue: %s", i.Message)
		}
	}
}

func TestVerifyPage_TitleMismatch(t *testing.T) {
	pages := fakePages{"https://acme.example/": `<html><head><title>Best Widget Store</title></head><body><h1>Welcome Home</h1></body></html>`}
	e := newTestEngine(pages, Deps{})
	exp := NewExpectations("SEO Title: Acme Plumbing Experts\nH1: Welcome")

	r := e.VerifyPage(context.Background(), "Home", "https://acme.example/", exp, Options{})
	want := []string{"SEO Title mismatch. Expected: 'Acme Plumbing Experts', Found: 'Best Widget Store'"}
	if got := messages(r); !reflect.DeepEqual(got, want) {
		t.Fatalf("issues = %v, want %v", got, want)
	}
	el := r.Issues[0].Element
	if el == nil || el.Tag != "title" || el.CSSSelector != "html > head > title" || el.Context != "Best Widget Store" {
		t.Errorf("element = %+v", el)
	}
}

func TestVerifyPage_MissingMetricReported(t *testing.T) {
	pages := fakePages{"https://acme.example/": `<html><body><p>Serving you with 10+ Years of Service</p></body></html>`}
	e := newTestEngine(pages, Deps{})
	exp := NewExpectations("Proof points: 4.9 Stars on Google, 10+ Years in business")

	r := e.VerifyPage(context.Background(), "Home", "https://acme.example/", exp, Options{})
	want := []string{"Metric '4.9 Stars' missing or mismatch."}
	if got := messages(r); !reflect.DeepEqual(got, want) {
		t.Errorf("issues = %v, want %v", got, want)
	}
	if r.Issues[0].Kind != models.IssueMetricMissing {
		t.Errorf("kind = %s", r.Issues[0].Kind)
	}
}

func TestVerifyPage_FetchFailureSkipsStages(t *testing.T) {
	tests := []struct {
		name  string
		pages fakePages
	}{
		{"transport error", fakePages{}},
		{"server error", fakePages{"https://down.example/": "500"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := &fakeLinks{broken: []models.BrokenLink{{Target: "x", Status: 404}}}
			tickets := &fakeTickets{}
			e := newTestEngine(tt.pages, Deps{Links: links, Tickets: tickets})
			exp := NewExpectations("SEO Title: Anything\n4.9 Stars")

			r := e.VerifyPage(context.Background(), "Down", "https://down.example/", exp,
				Options{CheckLinks: true, Ticket: true, TicketProjectID: "1", BadPhrases: []string{"x"}})

			want := []string{"Could not reach page: https://down.example/"}
			if got := messages(r); !reflect.DeepEqual(got, want) {
				t.Errorf("issues = %v, want %v", got, want)
			}
			if r.Issues[0].Kind != models.IssueFetchFailure {
				t.Errorf("kind = %s", r.Issues[0].Kind)
			}
			if links.calls != 0 {
				t.Errorf("link checker called %d times", links.calls)
			}
			if len(tickets.plain)+len(tickets.elements) != 0 {
				t.Error("tickets filed for unreachable page")
			}
		})
	}
}

func TestVerifyPage_MissingElements(t *testing.T) {
	pages := fakePages{"https://acme.example/": `<html><body><p>nothing</p></body></html>`}
	tickets := &fakeTickets{}
	e := newTestEngine(pages, Deps{Tickets: tickets})
	exp := NewExpectations("SEO Title: Acme\nMeta Description: The best roofs in the whole state, installed by local experts\nH1: Roofs")

	r := e.VerifyPage(context.Background(), "Home", "https://acme.example/", exp, Options{Ticket: true, TicketProjectID: "9"})
	want := []string{
		"SEO Title mismatch. Expected: 'Acme', Found: 'Missing Title Tag'",
		"Meta Description mismatch. Expected snippet of: 'The best roofs in the whole state, installed by lo...'",
		"H1 Header mismatch. Expected: 'Roofs', Found: 'Missing H1 Tag'",
	}
	if got := messages(r); !reflect.DeepEqual(got, want) {
		t.Fatalf("issues =\n%v\nwant\n%v", got, want)
	}
	for _, i := range r.Issues {
		if i.Element != nil {
			t.Errorf("issue %q has element for a missing node", i.Message)
		}
	}
	if len(tickets.elements) != 0 {
		t.Errorf("element tickets = %v, want none without a live element", tickets.elements)
	}
}

func TestVerifyPage_DescriptionLooserThreshold(t *testing.T) {
	pages := fakePages{"https://acme.example/": `<html><head><meta name="description" content="Quality roofs for the home"></head><body></body></html>`}
	e := newTestEngine(pages, Deps{})
	exp := NewExpectations("Meta Description: Quality roofing for your home")

	r := e.VerifyPage(context.Background(), "Home", "https://acme.example/", exp, Options{})
	if len(r.Issues) != 0 {
		t.Errorf("issues = %v, want none", messages(r))
	}
}

func TestVerifyPage_BadPhrasesAndTickets(t *testing.T) {
	pages := fakePages{"https://acme.example/": `<html><head><title>Wrong</title></head><body><p>Lorem ipsum dolor</p></body></html>`}
	tickets := &fakeTickets{err: ticket.ErrNoAPIKey}
	e := newTestEngine(pages, Deps{Tickets: tickets})
	exp := NewExpectations("SEO Title: Acme Roofing Company")

	r := e.VerifyPage(context.Background(), "Home", "https://acme.example/", exp,
		Options{Ticket: true, TicketProjectID: "77", BadPhrases: []string{"Lorem ipsum", "lorem", "TODO"}})

	want := []string{
		"SEO Title mismatch. Expected: 'Acme Roofing Company', Found: 'Wrong'",
		"Found copy error: 'Lorem ipsum'",
	}
	if got := messages(r); !reflect.DeepEqual(got, want) {
		t.Fatalf("issues = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(tickets.elements, []string{"SEO Title Mismatch @ html > head > title"}) {
		t.Errorf("element tickets = %v", tickets.elements)
	}
	if !reflect.DeepEqual(tickets.plain, []string{"Found copy error: 'Lorem ipsum'"}) {
		t.Errorf("plain tickets = %v", tickets.plain)
	}
	if tickets.projectID != "77" {
		t.Errorf("ticket project = %q", tickets.projectID)
	}
}

func TestVerifyPage_NoTicketsWithoutProject(t *testing.T) {
	pages := fakePages{"https://acme.example/": `<p>Lorem ipsum</p>`}
	tickets := &fakeTickets{}
	e := newTestEngine(pages, Deps{Tickets: tickets})

	e.VerifyPage(context.Background(), "Home", "https://acme.example/", nil, Options{Ticket: true, BadPhrases: []string{"Lorem ipsum"}})
	if len(tickets.plain) != 0 {
		t.Errorf("tickets filed without a project id: %v", tickets.plain)
	}
}

func TestVerifyPage_BrokenLinksAggregated(t *testing.T) {
	pages := fakePages{"https://acme.example/": `<a href="/a">a</a>`}
	links := &fakeLinks{broken: []models.BrokenLink{
		{Target: "https://acme.example/a", Status: 404},
		{Target: "https://gone.example/", Err: "timeout"},
	}}
	e := newTestEngine(pages, Deps{Links: links})

	r := e.VerifyPage(context.Background(), "Home", "https://acme.example/", nil, Options{CheckLinks: true})
	want := []string{"Broken links: https://acme.example/a (404), https://gone.example/ (Error: timeout)"}
	if got := messages(r); !reflect.DeepEqual(got, want) {
		t.Errorf("issues = %v, want %v", got, want)
	}

	links.calls = 0
	e.VerifyPage(context.Background(), "Home", "https://acme.example/", nil, Options{})
	if links.calls != 0 {
		t.Error("link checker ran without CheckLinks")
	}
}

func TestVerifyPage_Language(t *testing.T) {
	page := `<html><body>Bienvenidos a nuestra empresa</body></html>`
	pages := fakePages{"https://acme.example/": page}
	lang := fakeLanguage{"SEO Title: Welcome to our company": "en", "Bienvenidos a nuestra empresa": "es"}
	e := newTestEngine(pages, Deps{Language: lang})
	exp := &Expectations{Text: "SEO Title: Welcome to our company"}

	r := e.VerifyPage(context.Background(), "Home", "https://acme.example/", exp, Options{CheckLanguage: true})
	want := []string{"Language mismatch. Expected: 'en', Found: 'es'"}
	if got := messages(r); !reflect.DeepEqual(got, want) {
		t.Errorf("issues = %v, want %v", got, want)
	}

	r = e.VerifyPage(context.Background(), "Home", "https://acme.example/", exp, Options{})
	if len(r.Issues) != 0 {
		t.Errorf("language stage ran when not requested: %v", messages(r))
	}
}

func TestRunAdHoc(t *testing.T) {
	pages := fakePages{"https://acme.example/": `<html><body><h1>Welcome Home</h1></body></html>`}
	docs := &fakeDocs{text: "H1: Welcome"}
	reports := &fakeReports{}
	e := newTestEngine(pages, Deps{Docs: docs, Reports: reports})

	run := e.RunAdHoc(context.Background(), AdHocRequest{URL: "https://acme.example/", DocURL: "https://docs.example/d/edit"})
	if !run.Passed {
		t.Errorf("Passed = false, issues %v", run.Results)
	}
	if run.ID == "" {
		t.Error("run id empty")
	}
	if len(run.Results) != 1 || run.Results[0].PageName != AdHocPageName {
		t.Errorf("results = %+v", run.Results)
	}
	if reports.name != AdHocProjectName || run.ReportPath == "" {
		t.Errorf("report name = %q, path = %q", reports.name, run.ReportPath)
	}
	if !reflect.DeepEqual(docs.urls, []string{"https://docs.example/d/edit"}) {
		t.Errorf("doc fetches = %v", docs.urls)
	}
}

func TestRunAdHoc_DocumentFailureStillVerifies(t *testing.T) {
	pages := fakePages{"https://acme.example/": `<html><body>ok</body></html>`}
	docs := &fakeDocs{err: errors.New("403")}
	e := newTestEngine(pages, Deps{Docs: docs})

	run := e.RunAdHoc(context.Background(), AdHocRequest{URL: "https://acme.example/", DocURL: "https://docs.example/d"})
	if !run.Passed || len(run.Results) != 1 {
		t.Errorf("run = %+v", run)
	}
}

func TestRunProject(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.Projects = []models.Project{{
		ID:               "42",
		Name:             "Acme",
		GoogleDocURL:     "https://docs.example/acme/edit",
		BugherdProjectID: "1234",
		LivePages: models.LivePages{
			{Name: "Home", URL: "https://acme.example/"},
			{Name: "About", URL: "https://acme.example/about"},
			{Name: "Down", URL: "https://acme.example/down"},
		},
		Rules: models.Rules{BadPhrases: []string{"Lorem ipsum"}},
	}}
	pages := fakePages{
		"https://acme.example/":      `<html><body><h1>Welcome</h1><p>4.9 Stars</p></body></html>`,
		"https://acme.example/about": `<html><body><h1>Welcome</h1><p>Lorem ipsum</p></body></html>`,
	}
	docs := &fakeDocs{text: "H1: Welcome\nRated 4.9 Stars"}
	tickets := &fakeTickets{}
	reports := &fakeReports{}
	e := New(cfg, Deps{Pages: pages, Docs: docs, Tickets: tickets, Reports: reports}, nil)

	run, err := e.RunProject(context.Background(), "42", Options{Ticket: true})
	if err != nil {
		t.Fatalf("RunProject() error = %v", err)
	}
	if run.Passed {
		t.Error("Passed = true, want false")
	}

	var names []string
	for _, r := range run.Results {
		names = append(names, r.PageName)
	}
	if !reflect.DeepEqual(names, []string{"Home", "About", "Down"}) {
		t.Errorf("page order = %v", names)
	}
	if !run.Results[0].Passed() {
		t.Errorf("Home issues = %v", messages(run.Results[0]))
	}
	if got := messages(run.Results[1]); !reflect.DeepEqual(got, []string{"Found copy error: 'Lorem ipsum'", "Metric '4.9 Stars' missing or mismatch."}) {
		t.Errorf("About issues = %v", got)
	}
	if got := messages(run.Results[2]); !reflect.DeepEqual(got, []string{"Could not reach page: https://acme.example/down"}) {
		t.Errorf("Down issues = %v", got)
	}

	if len(docs.urls) != 1 {
		t.Errorf("document fetched %d times, want once per run", len(docs.urls))
	}
	if tickets.projectID != "1234" || len(tickets.plain) != 2 {
		t.Errorf("tickets = %+v", tickets)
	}
	if reports.name != "Acme" || len(reports.results) != 3 {
		t.Errorf("report = %q with %d results", reports.name, len(reports.results))
	}
}

func TestRunProject_Unknown(t *testing.T) {
	e := New(models.DefaultConfig(), Deps{Pages: fakePages{}}, nil)
	if _, err := e.RunProject(context.Background(), "nope", Options{}); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("RunProject() error = %v, want ErrProjectNotFound", err)
	}
}
