package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stashbot/internal/database"
	"stashbot/internal/events"
	"stashbot/internal/models"
	"stashbot/internal/pipeline"
	"stashbot/internal/request"
	"stashbot/internal/search"
	"stashbot/internal/suggest"
	"stashbot/internal/validation"
)

const (
	// MaxItemTextLength is the maximum length for ingested text
	MaxItemTextLength = 10000
	// MaxClearIDs bounds one clear request
	MaxClearIDs = 100
)

// ItemHandler handles item ingestion, listing, search, and removal
type ItemHandler struct {
	pipeline  *pipeline.Pipeline
	engine    *suggest.Engine
	index     *search.Index
	itemRepo  database.ItemRepositoryInterface
	publisher events.Publisher
	logger    *zap.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(p *pipeline.Pipeline, engine *suggest.Engine, index *search.Index, itemRepo database.ItemRepositoryInterface, publisher events.Publisher, logger *zap.Logger) *ItemHandler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ItemHandler{
		pipeline:  p,
		engine:    engine,
		index:     index,
		itemRepo:  itemRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// RegisterRoutes registers item routes on the given router
// The router should already have the /items prefix (e.g., from apiRouter.PathPrefix("/items"))
func (h *ItemHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.IngestItem).Methods("POST")
	r.HandleFunc("", h.ListItems).Methods("GET")
	r.HandleFunc("/clear", h.ClearItems).Methods("POST")
	r.HandleFunc("/{id:[0-9]+}", h.GetItem).Methods("GET")
	r.HandleFunc("/{id:[0-9]+}", h.DeleteItem).Methods("DELETE")
}

// IngestRequest represents an ingest request
type IngestRequest struct {
	Text string `json:"text" validate:"required,min=1,max=10000"`
}

// ClearItemsRequest represents a bulk removal request. Either All or a
// non-empty IDs list must be set.
type ClearItemsRequest struct {
	Kind string  `json:"kind" validate:"required,item_kind"`
	All  bool    `json:"all,omitempty"`
	IDs  []int64 `json:"ids,omitempty"`
}

// ClearItemsResponse reports how many items were removed
type ClearItemsResponse struct {
	Deleted int64 `json:"deleted"`
}

// IngestItem accepts raw text and runs it through the classification pipeline
func (h *ItemHandler) IngestItem(w http.ResponseWriter, r *http.Request) {
	owner := request.OwnerFromContext(r.Context())
	if owner == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	var req IngestRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	item, err := h.pipeline.Ingest(r.Context(), owner, req.Text)
	if err != nil {
		respondServiceError(w, err, "Failed to ingest item")
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// ListItems lists the owner's items with pagination and optional
// kind/status filters
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	owner := request.OwnerFromContext(r.Context())
	if owner == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	var kind *models.Kind
	if k := r.URL.Query().Get("kind"); k != "" {
		if err := validation.ValidateKind(k); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		kEnum := models.Kind(k)
		kind = &kEnum
	}

	status := models.StatusFilterAll
	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateStatusFilter(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		status = models.StatusFilter(s)
	}

	pageResult, err := h.engine.List(r.Context(), owner, kind, status, page)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve items")
		return
	}

	respondJSON(w, http.StatusOK, pageResult)
}

// GetItem returns a single item by id
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.itemRepo.GetByOwnerID(r.Context(), owner, id)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// DeleteItem removes a single item by id
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.itemRepo.GetByOwnerID(r.Context(), owner, id)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve item")
		return
	}

	deleted, err := h.itemRepo.DeleteByIDs(r.Context(), owner, item.Kind, []int64{id})
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete item")
		return
	}
	if deleted == 0 {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Item not found")
		return
	}

	h.publishDeleted(r.Context(), owner, item.Kind, deleted)
	respondJSON(w, http.StatusOK, ClearItemsResponse{Deleted: deleted})
}

// ClearItems removes items of one kind, either all of them or an
// explicit id list
func (h *ItemHandler) ClearItems(w http.ResponseWriter, r *http.Request) {
	owner := request.OwnerFromContext(r.Context())
	if owner == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	var req ClearItemsRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: kind must be 'task', 'idea', or 'note'")
		return
	}
	if req.All == (len(req.IDs) > 0) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Specify either all=true or a non-empty ids list")
		return
	}
	if len(req.IDs) > MaxClearIDs {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("At most %d ids per request", MaxClearIDs))
		return
	}

	kind := models.Kind(req.Kind)
	var deleted int64
	var err error
	if req.All {
		deleted, err = h.itemRepo.DeleteAllOfKind(r.Context(), owner, kind)
	} else {
		deleted, err = h.itemRepo.DeleteByIDs(r.Context(), owner, kind, req.IDs)
	}
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to clear items")
		return
	}

	h.publishDeleted(r.Context(), owner, kind, deleted)
	respondJSON(w, http.StatusOK, ClearItemsResponse{Deleted: deleted})
}

// SearchItems answers keyword queries over the owner's items
func (h *ItemHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	owner := request.OwnerFromContext(r.Context())
	if owner == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	matches, err := h.index.Search(r.Context(), owner, r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, err, "Failed to search items")
		return
	}

	respondJSON(w, http.StatusOK, matches)
}

func (h *ItemHandler) publishDeleted(ctx context.Context, owner string, kind models.Kind, count int64) {
	if count == 0 {
		return
	}
	event := events.NewEvent(events.EventItemsDeleted, owner, 0, kind)
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("event_publish_failed",
			zap.String("event_type", string(events.EventItemsDeleted)),
			zap.Error(err),
		)
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
