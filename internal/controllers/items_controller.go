package controllers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/openarchive/reviewflow/internal/actions"
	"github.com/openarchive/reviewflow/internal/domain"
	"github.com/openarchive/reviewflow/internal/engine"
	"github.com/openarchive/reviewflow/internal/models"
)

// WorkflowService is the slice of the engine the HTTP layer calls.
type WorkflowService interface {
	Submit(ctx context.Context, itemID, collectionID, workflowName string) (*domain.WorkflowItem, *engine.ExecuteResult, error)
	Claim(ctx context.Context, workflowItemID int64, stepID, principal string) (*domain.ClaimedTask, error)
	Unclaim(ctx context.Context, claimedTaskID int64, principal string) error
	Execute(ctx context.Context, workflowItemID int64, stepID, actionID, principal string, input actions.Input) (*engine.ExecuteResult, error)
	Abort(ctx context.Context, workflowItemID int64, principal, reason string) error
	Item(ctx context.Context, workflowItemID int64) (*domain.WorkflowItem, error)
	Events(ctx context.Context, workflowItemID int64) ([]domain.WorkflowEvent, error)
	PoolTasks(ctx context.Context, principal string) ([]domain.PoolTask, error)
	ClaimedTasks(ctx context.Context, principal string) ([]domain.ClaimedTask, error)
}

// WorkflowItemsController holds dependencies for workflow item HTTP endpoints.
type WorkflowItemsController struct {
	Service WorkflowService
}

func NewWorkflowItemsController(service WorkflowService) *WorkflowItemsController {
	return &WorkflowItemsController{Service: service}
}

func (c *WorkflowItemsController) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.ItemID == "" || req.CollectionID == "" || req.Workflow == "" {
		http.Error(w, "itemId, collectionId and workflow are required", http.StatusBadRequest)
		return
	}

	item, result, err := c.Service.Submit(r.Context(), req.ItemID, req.CollectionID, req.Workflow)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	resp := models.SubmitResponse{
		Archived: result.Archived,
		Rejected: result.Rejected,
	}
	if item != nil {
		resp.ID = item.ID
		resp.ExternalID = item.ExternalID
		resp.StepID = item.StepID
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (c *WorkflowItemsController) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := c.Service.Item(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load workflow item", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		http.Error(w, "workflow item not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapItemToApi(item))
}

func (c *WorkflowItemsController) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	events, err := c.Service.Events(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load workflow events", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	apiEvents := make([]models.WorkflowEventResponse, 0, len(events))
	for _, ev := range events {
		apiEvents = append(apiEvents, models.WorkflowEventResponse{
			ID:             ev.ID,
			WorkflowItemID: ev.WorkflowItemID,
			PrincipalID:    ev.PrincipalID,
			Type:           ev.Type,
			StepID:         ev.StepID,
			Text:           ev.Text,
			DateTime:       ev.DateTime,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiEvents)
}

func (c *WorkflowItemsController) handleAbort(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	reason := r.URL.Query().Get("reason")
	if err := c.Service.Abort(r.Context(), id, principalFrom(r), reason); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.OkResponse{OK: true})
}

func mapItemToApi(item *domain.WorkflowItem) models.WorkflowItemResponse {
	return models.WorkflowItemResponse{
		ID:             item.ID,
		ExternalID:     item.ExternalID,
		ItemID:         item.ItemID,
		CollectionID:   item.CollectionID,
		WorkflowName:   item.WorkflowName,
		StepID:         item.StepID,
		MultipleFiles:  item.MultipleFiles,
		MultipleTitles: item.MultipleTitles,
		Created:        item.Created,
		Modified:       item.Modified,
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "id is an integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
