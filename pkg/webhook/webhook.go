// Package webhook receives BugHerd task events and runs an ad-hoc check for
// the URL attached to the task.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dtnitsch/content-qa/pkg/engine"
)

const (
	PassedComment = "✅ Automated QA check passed for this URL."
	FailedComment = "⚠️ Automated QA check found discrepancies. Please review."

	maxPayloadBytes = 1 << 20
	checkTimeout    = 5 * time.Minute
)

// Verifier runs an ad-hoc check.
type Verifier interface {
	RunAdHoc(ctx context.Context, req engine.AdHocRequest) *engine.Run
}

// Commenter posts the outcome back on the task.
type Commenter interface {
	CreateComment(ctx context.Context, projectID, taskID, text string) error
}

// ID accepts a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

type taskMetadata struct {
	URL string `json:"url"`
}

type task struct {
	ID       ID           `json:"id"`
	Metadata taskMetadata `json:"metadata"`
}

// Event is the subset of a BugHerd webhook payload the handler reads.
type Event struct {
	Event        string `json:"event"`
	ProjectID    ID     `json:"project_id"`
	ProjectIDAlt ID     `json:"projectId"`
	Task         task   `json:"task"`
}

// Project returns project_id, falling back to projectId.
func (e Event) Project() string {
	if e.ProjectID != "" {
		return string(e.ProjectID)
	}
	return string(e.ProjectIDAlt)
}

type Handler struct {
	verifier  Verifier
	commenter Commenter
	opts      engine.Options
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewHandler builds a Handler. Every check runs with opts. commenter may be
// nil.
func NewHandler(v Verifier, c Commenter, opts engine.Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{verifier: v, commenter: c, opts: opts, logger: logger}
}

// RegisterHTTP mounts the webhook routes on r.
func (h *Handler) RegisterHTTP(r chi.Router) {
	r.Post("/webhook", h.handleWebhook)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Wait blocks until every background check has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No payload"})
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
		return
	}
	if len(fields) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No payload"})
		return
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
		return
	}

	taskID := string(ev.Task.ID)
	projectID := ev.Project()
	targetURL := strings.TrimSpace(ev.Task.Metadata.URL)
	h.logger.Info("Received BugHerd webhook", "event", ev.Event, "task_id", taskID, "project_id", projectID)

	switch ev.Event {
	case "task_create", "task_update":
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "event": ev.Event})
		return
	}

	if targetURL == "" {
		h.logger.Info("Skipping task: no URL in task metadata", "task_id", taskID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "No URL in task"})
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.process(targetURL, projectID, taskID)
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "processing", "task_id": taskID})
}

// process runs detached from the request, which has already been answered.
func (h *Handler) process(targetURL, projectID, taskID string) {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	log := h.logger.With("url", targetURL, "task_id", taskID, "project_id", projectID)
	log.Info("Starting automated QA")

	run := h.verifier.RunAdHoc(ctx, engine.AdHocRequest{URL: targetURL, Options: h.opts})

	comment := FailedComment
	if run.Passed {
		comment = PassedComment
	}
	if h.commenter != nil && projectID != "" && taskID != "" {
		if err := h.commenter.CreateComment(ctx, projectID, taskID, comment); err != nil {
			log.Warn("Failed to comment on task", "error", err)
		}
	}

	outcome := "success"
	if !run.Passed {
		outcome = "issues found"
	}
	log.Info("Finished QA", "run_id", run.ID, "result", outcome)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
