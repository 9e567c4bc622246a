// Package ticket files issues in BugHerd.
package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dtnitsch/content-qa/models"
)

const (
	DefaultBaseURL = "https://www.bugherd.com/api/v2"
	RequesterEmail = "qa-auto@servicescalers.com"
)

// ErrNoAPIKey is returned before any request when no key is configured.
var ErrNoAPIKey = errors.New("BugHerd API key missing")

// Task is the subset of a BugHerd task the client reads back.
type Task struct {
	ID          int64  `json:"id"`
	LocalTaskID int64  `json:"local_task_id,omitempty"`
	Description string `json:"description,omitempty"`
}

type taskMetadata struct {
	URL string `json:"url,omitempty"`
}

type taskPayload struct {
	Description    string       `json:"description"`
	RequesterEmail string       `json:"requester_email"`
	Priority       string       `json:"priority"`
	Metadata       taskMetadata `json:"metadata"`
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateTicket files a task in projectID.
func (c *Client) CreateTicket(ctx context.Context, projectID, description, pageURL string) (*Task, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	body := map[string]taskPayload{
		"task": {
			Description:    description,
			RequesterEmail: RequesterEmail,
			Priority:       "normal",
			Metadata:       taskMetadata{URL: pageURL},
		},
	}
	endpoint := fmt.Sprintf("%s/projects/%s/tasks.json", c.baseURL, url.PathEscape(projectID))

	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	var resp struct {
		Task Task `json:"task"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("Unreadable task response", "project_id", projectID, "error", err)
	}
	c.logger.Info("Ticket created", "project_id", projectID, "task_id", resp.Task.ID)
	return &resp.Task, nil
}

// CreateTicketWithElement files a mismatch with the locator details of the
// offending element in the description.
func (c *Client) CreateTicketWithElement(ctx context.Context, projectID, title string, el *models.ElementInfo, expected, found, pageURL string) (*Task, error) {
	return c.CreateTicket(ctx, projectID, ElementDescription(title, el, expected, found), pageURL)
}

// CreateComment adds text to an existing task.
func (c *Client) CreateComment(ctx context.Context, projectID, taskID, text string) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	body := map[string]map[string]string{"comment": {"text": text}}
	endpoint := fmt.Sprintf("%s/projects/%s/tasks/%s/comments.json",
		c.baseURL, url.PathEscape(projectID), url.PathEscape(taskID))

	if _, err := c.post(ctx, endpoint, body); err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	c.logger.Info("Comment added", "project_id", projectID, "task_id", taskID)
	return nil
}

// ElementDescription renders a mismatch for a human triaging the ticket.
func ElementDescription(title string, el *models.ElementInfo, expected, found string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nExpected: %s\nFound: %s\n", title, expected, found)
	if el != nil {
		b.WriteString("\nElement location:\n")
		if el.Tag != "" {
			fmt.Fprintf(&b, "Tag: <%s>\n", el.Tag)
		}
		if el.CSSSelector != "" {
			fmt.Fprintf(&b, "CSS selector: %s\n", el.CSSSelector)
		}
		if el.XPath != "" {
			fmt.Fprintf(&b, "XPath: %s\n", el.XPath)
		}
		if el.Context != "" {
			fmt.Fprintf(&b, "Context: %s\n", el.Context)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, "x")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
