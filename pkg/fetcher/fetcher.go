package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	maxBodyBytes = 10 << 20 // 10MiB
	maxRedirects = 10
)

// ErrStatus is wrapped by StatusError for non-2xx responses.
var ErrStatus = errors.New("unexpected HTTP status")

// StatusError carries the HTTP status of a failed fetch.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch HTML, status code: %d", e.Code)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Response is a fetched document. Body is decoded to UTF-8.
type Response struct {
	StatusCode  int
	Body        []byte
	FinalURL    string
	ContentType string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher builds a fetcher bounded by timeout per request.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:    NewClient(timeout),
		userAgent: userAgent,
	}
}

// NewClient returns the HTTP client shared by page fetches and link probes.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:        http.ProxyFromEnvironment,
			MaxIdleConns: 40,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: timeout,
		},
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Client exposes the underlying HTTP client.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch retrieves url. Any HTTP status is returned as a Response; only
// transport and read failures are errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	limited := io.LimitReader(resp.Body, maxBodyBytes)
	reader, err := charset.NewReader(limited, contentType)
	if err != nil {
		reader = limited
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		FinalURL:    finalURL,
		ContentType: contentType,
	}, nil
}

// GetOK fetches url and requires a 2xx status. Other statuses come back as
// a *StatusError.
func (f *Fetcher) GetOK(ctx context.Context, url string) (*Response, error) {
	resp, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return resp, nil
}
