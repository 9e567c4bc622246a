// Package linkcheck finds the outbound links of a page and probes each one
// for reachability with a bounded pool of workers.
package linkcheck

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/content-qa/models"
	"github.com/dtnitsch/content-qa/pkg/fetcher"
)

const maxDrainBytes = 64 << 10

// PageFetcher retrieves the page whose links are checked.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Response, error)
}

// Config tunes a Checker. Zero values fall back to the package defaults.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	Workers        int
	IgnoredDomains []string
}

type Checker struct {
	pages     PageFetcher
	client    *http.Client
	userAgent string
	timeout   time.Duration
	workers   int
	ignored   []string
	logger    *slog.Logger
}

// New builds a Checker. Probes are sent through client.
func New(pages PageFetcher, client *http.Client, cfg Config, logger *slog.Logger) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = models.DefaultTimeoutSec * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = models.DefaultLinkWorkers
	}
	if cfg.IgnoredDomains == nil {
		cfg.IgnoredDomains = models.DefaultIgnoredDomains
	}
	if client == nil {
		client = fetcher.NewClient(cfg.Timeout)
	}
	if logger == nil {
		logger = slog.Default()
	}

	ignored := make([]string, 0, len(cfg.IgnoredDomains))
	for _, d := range cfg.IgnoredDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			ignored = append(ignored, d)
		}
	}

	return &Checker{
		pages:     pages,
		client:    client,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		workers:   cfg.Workers,
		ignored:   ignored,
		logger:    logger,
	}
}

// CheckPage returns the broken links of pageURL sorted by target. An empty
// result means every probed link resolved. When the page itself cannot be
// fetched the result is a single page-level entry.
func (c *Checker) CheckPage(ctx context.Context, pageURL string) []models.BrokenLink {
	c.logger.Info("Checking links", "url", pageURL)

	resp, err := c.pages.Fetch(ctx, pageURL)
	if err != nil {
		return []models.BrokenLink{{Target: pageURL, Err: err.Error(), PageLevel: true}}
	}
	if !resp.OK() {
		return []models.BrokenLink{{Target: pageURL, Status: resp.StatusCode, PageLevel: true}}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return []models.BrokenLink{{Target: pageURL, Err: err.Error(), PageLevel: true}}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return []models.BrokenLink{{Target: pageURL, Err: err.Error(), PageLevel: true}}
	}

	targets := c.Targets(base, doc)
	broken := c.probeAll(ctx, targets)
	c.logger.Info("Link check complete", "url", pageURL, "checked", len(targets), "broken", len(broken))
	return broken
}

// Targets resolves every a[href] in doc against base and returns the
// deduplicated http(s) targets, minus in-page anchors and ignored domains.
func (c *Checker) Targets(base *url.URL, doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	var targets []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if c.isIgnored(abs.Host) {
			return
		}
		abs.Fragment = ""
		abs.RawFragment = ""

		key := abs.String()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		targets = append(targets, key)
	})
	return targets
}

func (c *Checker) isIgnored(host string) bool {
	host = strings.ToLower(host)
	for _, d := range c.ignored {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// probeAll checks targets with at most c.workers concurrent probes. A failed
// probe never cancels its siblings.
func (c *Checker) probeAll(ctx context.Context, targets []string) []models.BrokenLink {
	if len(targets) == 0 {
		return nil
	}

	jobs := make(chan string)
	results := make(chan models.BrokenLink, len(targets))
	var wg sync.WaitGroup

	nw := min(c.workers, len(targets))
	wg.Add(nw)
	for i := 0; i < nw; i++ {
		go func() {
			defer wg.Done()
			for target := range jobs {
				if b, broken := c.probe(ctx, target); broken {
					results <- b
				}
			}
		}()
	}

	for _, t := range targets {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
	close(results)

	var broken []models.BrokenLink
	for b := range results {
		broken = append(broken, b)
	}
	sort.Slice(broken, func(i, j int) bool { return broken[i].Target < broken[j].Target })
	return broken
}

// probe sends HEAD and falls back to GET when HEAD errors or returns >= 400.
func (c *Checker) probe(ctx context.Context, target string) (models.BrokenLink, bool) {
	status, err := c.request(ctx, http.MethodHead, target)
	if err == nil && status < http.StatusBadRequest {
		return models.BrokenLink{}, false
	}

	status, err = c.request(ctx, http.MethodGet, target)
	if err != nil {
		c.logger.Debug("Link unreachable", "target", target, "error", err)
		return models.BrokenLink{Target: target, Err: err.Error()}, true
	}
	if status >= http.StatusBadRequest {
		c.logger.Debug("Link broken", "target", target, "status", status)
		return models.BrokenLink{Target: target, Status: status}, true
	}
	return models.BrokenLink{}, false
}

func (c *Checker) request(ctx context.Context, method, target string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	return resp.StatusCode, nil
}
