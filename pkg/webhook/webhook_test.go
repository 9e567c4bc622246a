package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/dtnitsch/content-qa/pkg/engine"
)

type fakeVerifier struct {
	mu     sync.Mutex
	passed bool
	reqs   []engine.AdHocRequest
}

func (f *fakeVerifier) RunAdHoc(_ context.Context, req engine.AdHocRequest) *engine.Run {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return &engine.Run{ID: "run-1", Passed: f.passed}
}

type comment struct {
	project, task, text string
}

type fakeCommenter struct {
	mu       sync.Mutex
	comments []comment
	err      error
}

func (f *fakeCommenter) CreateComment(_ context.Context, projectID, taskID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, comment{projectID, taskID, text})
	return f.err
}

func newServer(v Verifier, c Commenter) (*Handler, http.Handler) {
	h := NewHandler(v, c, engine.Options{CheckLinks: true}, nil)
	r := chi.NewRouter()
	h.RegisterHTTP(r)
	return h, r
}

func post(t *testing.T, router http.Handler, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response %q is not a JSON object: %v", rec.Body.String(), err)
	}
	return rec.Code, out
}

func TestWebhook_TaskCreateRunsCheckAndComments(t *testing.T) {
	tests := []struct {
		name    string
		passed  bool
		body    string
		project string
		comment string
	}{
		{
			name:    "passed with numeric ids",
			passed:  true,
			body:    `{"event":"task_create","project_id":1234,"task":{"id":55,"metadata":{"url":"https://acme.example/"}}}`,
			project: "1234",
			comment: PassedComment,
		},
		{
			name:    "failed with camelCase project",
			passed:  false,
			body:    `{"event":"task_update","projectId":"77","task":{"id":"9","metadata":{"url":"https://acme.example/about"}}}`,
			project: "77",
			comment: FailedComment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVerifier{passed: tt.passed}
			c := &fakeCommenter{}
			h, router := newServer(v, c)

			code, out := post(t, router, tt.body)
			if code != http.StatusAccepted || out["status"] != "processing" || out["task_id"] == "" {
				t.Fatalf("response = %d %v", code, out)
			}
			h.Wait()

			if len(v.reqs) != 1 || !v.reqs[0].Options.CheckLinks {
				t.Fatalf("verifier requests = %+v", v.reqs)
			}
			if len(c.comments) != 1 {
				t.Fatalf("comments = %+v", c.comments)
			}
			got := c.comments[0]
			if got.project != tt.project || got.task != out["task_id"] || got.text != tt.comment {
				t.Errorf("comment = %+v", got)
			}
		})
	}
}

func TestWebhook_Ignored(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		want  string
	}{
		{"no url", `{"event":"task_create","project_id":1,"task":{"id":2,"metadata":{}}}`, "reason", "No URL in task"},
		{"no task", `{"event":"task_update","project_id":1}`, "reason", "No URL in task"},
		{"other event", `{"event":"comment_create","project_id":1,"task":{"id":2,"metadata":{"url":"https://x.example"}}}`, "event", "comment_create"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVerifier{}
			h, router := newServer(v, &fakeCommenter{})

			code, out := post(t, router, tt.body)
			h.Wait()
			if code != http.StatusOK || out["status"] != "ignored" || out[tt.field] != tt.want {
				t.Errorf("response = %d %v", code, out)
			}
			if len(v.reqs) != 0 {
				t.Error("verifier ran for ignored event")
			}
		})
	}
}

func TestWebhook_BadPayload(t *testing.T) {
	for _, body := range []string{"", "   ", "{}", "null", "not json", `{"task":`} {
		_, router := newServer(&fakeVerifier{}, nil)
		code, out := post(t, router, body)
		if code != http.StatusBadRequest || out["error"] == "" {
			t.Errorf("body %q: response = %d %v", body, code, out)
		}
	}
}

func TestWebhook_CommentFailureIsLogged(t *testing.T) {
	v := &fakeVerifier{passed: true}
	c := &fakeCommenter{err: errors.New("BugHerd down")}
	h, router := newServer(v, c)

	code, _ := post(t, router, `{"event":"task_create","project_id":1,"task":{"id":2,"metadata":{"url":"https://acme.example/"}}}`)
	h.Wait()
	if code != http.StatusAccepted || len(c.comments) != 1 {
		t.Errorf("code = %d, comments = %d", code, len(c.comments))
	}
}

func TestHealth(t *testing.T) {
	_, router := newServer(&fakeVerifier{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}
