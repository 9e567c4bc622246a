// Package docsource fetches the plain text of a source-of-truth document,
// typically a published Google Doc.
package docsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/dtnitsch/content-qa/pkg/caching"
	"github.com/dtnitsch/content-qa/pkg/fetcher"
	"github.com/dtnitsch/content-qa/pkg/parser"
)

// ErrNoURL is returned for an empty document URL.
var ErrNoURL = errors.New("document URL is empty")

// PageFetcher retrieves a document over HTTP, failing on non-2xx statuses.
type PageFetcher interface {
	GetOK(ctx context.Context, url string) (*fetcher.Response, error)
}

type Source struct {
	fetcher PageFetcher
	cache   *caching.Cache
	logger  *slog.Logger
}

// New returns a Source. cache may be nil.
func New(f PageFetcher, cache *caching.Cache, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{fetcher: f, cache: cache, logger: logger}
}

// FetchText returns the text of the document at docURL. A cached copy is
// used unless force is set.
func (s *Source) FetchText(ctx context.Context, docURL string, force bool) (string, error) {
	docURL = strings.TrimSpace(docURL)
	if docURL == "" {
		return "", ErrNoURL
	}
	pubURL := PublishedURL(docURL)

	if !force {
		if text, ok := s.cache.Get(pubURL); ok {
			s.logger.Info("Using cached document", "url", pubURL)
			return text, nil
		}
	}

	resp, err := s.fetcher.GetOK(ctx, pubURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch document: %w", err)
	}

	text, err := ExtractText(resp.Body, resp.ContentType, pubURL)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(pubURL, text); err != nil {
		s.logger.Warn("Failed to cache document", "url", pubURL, "error", err)
	}
	return text, nil
}

// PublishedURL rewrites a Google Docs editor link to its published view.
func PublishedURL(docURL string) string {
	if strings.Contains(docURL, "/edit") {
		return strings.ReplaceAll(docURL, "/edit", "/pub")
	}
	return docURL
}

// ExtractText pulls readable text from a document body. Plain text is
// returned as is. For markup the published-doc container is preferred, then
// the readability main text, then the whole body.
func ExtractText(body []byte, contentType, docURL string) (string, error) {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/plain") {
		return string(body), nil
	}

	doc, err := parser.Parse(body)
	if err != nil {
		return "", err
	}

	if contents := doc.Find("div#contents"); contents.Length() > 0 {
		return parser.JoinedText(contents.First()), nil
	}

	if text := readableText(body, docURL); text != "" {
		return text, nil
	}

	return parser.JoinedText(doc.Find("body")), nil
}

func readableText(body []byte, docURL string) string {
	u, err := url.Parse(docURL)
	if err != nil {
		return ""
	}
	rp := readability.NewParser()
	article, err := rp.Parse(bytes.NewReader(body), u)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(article.TextContent), " ")
}
