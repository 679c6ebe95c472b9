package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stashbot/internal/lifecycle"
	"stashbot/internal/models"
	"stashbot/internal/suggest"
)

func newTaskRouter(repo *memRepo) *mux.Router {
	manager := lifecycle.NewManager(repo, nil, zap.NewNop())
	engine := suggest.NewEngine(repo)
	handler := NewTaskHandler(manager, engine)

	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/tasks").Subrouter())
	r.HandleFunc("/suggestions", handler.Suggestions).Methods("GET")
	r.HandleFunc("/suggestions/today", handler.SuggestionsToday).Methods("GET")
	return r
}

func decodeItem(t *testing.T, rec *httptest.ResponseRecorder) *models.Item {
	t.Helper()
	var body struct {
		Data *models.Item `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body.Data
}

func TestAcceptTaskEndpoint(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(pendingTask(1, "owner-1", "Submit report", nil))
	router := newTaskRouter(repo)

	req := httptest.NewRequest("POST", "/tasks/1/accept", nil)
	rec := doRequest(router, req, "owner-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	item := decodeItem(t, rec)
	if item.Task.Status != models.TaskStatusAccepted {
		t.Errorf("status = %q, expected accepted", item.Task.Status)
	}
}

func TestAcceptDoneTaskConflicts(t *testing.T) {
	t.Parallel()

	done := pendingTask(1, "owner-1", "Submit report", nil)
	done.Task.Status = models.TaskStatusDone
	router := newTaskRouter(newMemRepo(done))

	req := httptest.NewRequest("POST", "/tasks/1/accept", nil)
	rec := doRequest(router, req, "owner-1")

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, expected 409", rec.Code)
	}
}

func TestAcceptOtherOwnersTask(t *testing.T) {
	t.Parallel()

	router := newTaskRouter(newMemRepo(pendingTask(1, "owner-1", "Submit report", nil)))

	req := httptest.NewRequest("POST", "/tasks/1/accept", nil)
	rec := doRequest(router, req, "owner-2")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404 for another owner's id", rec.Code)
	}
}

func TestSnoozeTaskEndpoint(t *testing.T) {
	t.Parallel()

	deadline := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	repo := newMemRepo(pendingTask(1, "owner-1", "Submit report", &deadline))
	router := newTaskRouter(repo)

	req := httptest.NewRequest("POST", "/tasks/1/snooze", strings.NewReader(`{"hours": 48}`))
	rec := doRequest(router, req, "owner-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	item := decodeItem(t, rec)
	expected := deadline.Add(48 * time.Hour)
	if item.Task.Deadline == nil || !item.Task.Deadline.Equal(expected) {
		t.Errorf("deadline = %v, expected %v", item.Task.Deadline, expected)
	}
}

func TestSnoozeTaskEmptyBodyUsesDefault(t *testing.T) {
	t.Parallel()

	deadline := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	repo := newMemRepo(pendingTask(1, "owner-1", "Submit report", &deadline))
	router := newTaskRouter(repo)

	req := httptest.NewRequest("POST", "/tasks/1/snooze", nil)
	rec := doRequest(router, req, "owner-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	item := decodeItem(t, rec)
	expected := deadline.Add(lifecycle.DefaultSnooze)
	if item.Task.Deadline == nil || !item.Task.Deadline.Equal(expected) {
		t.Errorf("deadline = %v, expected default snooze to %v", item.Task.Deadline, expected)
	}
}

func TestCompleteTaskEndpoint(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(pendingTask(1, "owner-1", "Submit report", nil))
	router := newTaskRouter(repo)

	req := httptest.NewRequest("POST", "/tasks/1/complete", nil)
	rec := doRequest(router, req, "owner-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	item := decodeItem(t, rec)
	if item.Task.Status != models.TaskStatusDone {
		t.Errorf("status = %q, expected done", item.Task.Status)
	}
	if item.Task.CompletedAt == nil {
		t.Error("completed_at not set")
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	t.Parallel()

	deadline := time.Now().Add(time.Hour)
	high := pendingTask(1, "owner-1", "Urgent thing", &deadline)
	high.Task.Importance, high.Task.Urgency = 5, 5
	low := pendingTask(2, "owner-1", "Someday thing", nil)
	low.Task.Importance, low.Task.Urgency = 1, 1
	router := newTaskRouter(newMemRepo(high, low))

	req := httptest.NewRequest("GET", "/suggestions?limit=1", nil)
	rec := doRequest(router, req, "owner-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data []*models.Item `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].ID != 1 {
		t.Errorf("expected only the urgent task, got %v", body.Data)
	}
}

func TestSuggestionsInvalidLimit(t *testing.T) {
	t.Parallel()

	router := newTaskRouter(newMemRepo())
	req := httptest.NewRequest("GET", "/suggestions?limit=abc", nil)
	rec := doRequest(router, req, "owner-1")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", rec.Code)
	}
}
