package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"stashbot/internal/lifecycle"
	"stashbot/internal/request"
	"stashbot/internal/suggest"
)

// TaskHandler handles task lifecycle transitions and suggestions
type TaskHandler struct {
	manager *lifecycle.Manager
	engine  *suggest.Engine
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(manager *lifecycle.Manager, engine *suggest.Engine) *TaskHandler {
	return &TaskHandler{manager: manager, engine: engine}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix (e.g., from apiRouter.PathPrefix("/tasks"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id:[0-9]+}/accept", h.AcceptTask).Methods("POST")
	r.HandleFunc("/{id:[0-9]+}/snooze", h.SnoozeTask).Methods("POST")
	r.HandleFunc("/{id:[0-9]+}/complete", h.CompleteTask).Methods("POST")
}

// SnoozeRequest represents a snooze request. Hours defaults to 24 when
// omitted or zero.
type SnoozeRequest struct {
	Hours int `json:"hours,omitempty" validate:"omitempty,min=1,max=8760"`
}

// AcceptTask moves a pending task to accepted
func (h *TaskHandler) AcceptTask(w http.ResponseWriter, r *http.Request) {
	owner := request.OwnerFromContext(r.Context())
	if owner == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	id, err := parseID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid item id")
		return
	}

	item, err := h.manager.Accept(r.Context(), owner, id)
	if err != nil {
		respondServiceError(w, err, "Failed to accept task")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// SnoozeTask pushes a task's deadline forward and re-scores it
func (h *TaskHandler) SnoozeTask(w http.ResponseWriter, r *http.Request) {
	owner := request.OwnerFromContext(r.Context())
	if owner == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	id, err := parseID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid item id")
		return
	}

	// The body is optional; an empty one means the default snooze.
	var req SnoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if req.Hours < 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Hours must be positive")
		return
	}

	item, err := h.manager.Snooze(r.Context(), owner, id, time.Duration(req.Hours)*time.Hour)
	if err != nil {
		respondServiceError(w, err, "Failed to snooze task")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// CompleteTask moves a task to done
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	owner := request.OwnerFromContext(r.Context())
	if owner == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	id, err := parseID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid item id")
		return
	}

	item, err := h.manager.Complete(r.Context(), owner, id)
	if err != nil {
		respondServiceError(w, err, "Failed to complete task")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// Suggestions returns the top active tasks by effective priority
func (h *TaskHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	owner := request.OwnerFromContext(r.Context())
	if owner == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid limit")
			return
		}
		limit = parsed
	}

	tasks, err := h.engine.Suggest(r.Context(), owner, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute suggestions")
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// SuggestionsToday returns tasks due today or above the high-priority
// threshold
func (h *TaskHandler) SuggestionsToday(w http.ResponseWriter, r *http.Request) {
	owner := request.OwnerFromContext(r.Context())
	if owner == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	tasks, err := h.engine.SuggestToday(r.Context(), owner)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute suggestions")
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}
