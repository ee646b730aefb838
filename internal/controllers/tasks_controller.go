package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/openarchive/reviewflow/internal/domain"
	"github.com/openarchive/reviewflow/internal/models"
)

// TasksController holds dependencies for task pool HTTP endpoints.
type TasksController struct {
	Service WorkflowService
}

func NewTasksController(service WorkflowService) *TasksController {
	return &TasksController{Service: service}
}

func (c *TasksController) handleListPoolTasks(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r)
	tasks, err := c.Service.PoolTasks(r.Context(), principal)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list pool tasks", "principal_id", principal, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	apiTasks := make([]models.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		apiTasks = append(apiTasks, mapPoolTaskToApi(t))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.TaskListResponse{Results: len(apiTasks), Tasks: apiTasks})
}

func (c *TasksController) handleListClaimedTasks(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r)
	tasks, err := c.Service.ClaimedTasks(r.Context(), principal)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list claimed tasks", "principal_id", principal, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	apiTasks := make([]models.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		apiTasks = append(apiTasks, mapClaimedTaskToApi(t))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.TaskListResponse{Results: len(apiTasks), Tasks: apiTasks})
}

func (c *TasksController) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req models.ClaimRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.WorkflowItemID == 0 || req.StepID == "" {
		http.Error(w, "workflowItemId and stepId are required", http.StatusBadRequest)
		return
	}
	task, err := c.Service.Claim(r.Context(), req.WorkflowItemID, req.StepID, principalFrom(r))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapClaimedTaskToApi(*task))
}

func (c *TasksController) handleUnclaim(w http.ResponseWriter, r *http.Request) {
	var req models.UnclaimRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.ClaimedTaskID == 0 {
		http.Error(w, "claimedTaskId is required", http.StatusBadRequest)
		return
	}
	if err := c.Service.Unclaim(r.Context(), req.ClaimedTaskID, principalFrom(r)); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.OkResponse{OK: true})
}

func (c *TasksController) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req models.ExecuteRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.WorkflowItemID == 0 || req.StepID == "" || req.ActionID == "" {
		http.Error(w, "workflowItemId, stepId and actionId are required", http.StatusBadRequest)
		return
	}

	result, err := c.Service.Execute(r.Context(), req.WorkflowItemID, req.StepID, req.ActionID, principalFrom(r), req.Input)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	resp := models.ExecuteResponse{
		Outcome:      result.Result.Outcome,
		Page:         result.Result.Page,
		FieldErrors:  result.Result.FieldErrors,
		Transitioned: result.Transitioned,
		StepID:       result.CurrentStepID,
		Archived:     result.Archived,
		Rejected:     result.Rejected,
	}
	w.Header().Set("Content-Type", "application/json")
	if len(resp.FieldErrors) > 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(resp)
}

func mapPoolTaskToApi(t domain.PoolTask) models.TaskResponse {
	created := t.Created
	return models.TaskResponse{
		ID:             t.ID,
		WorkflowItemID: t.WorkflowItemID,
		StepID:         t.StepID,
		ActionID:       t.ActionID,
		PrincipalID:    t.PrincipalID,
		Created:        &created,
	}
}

func mapClaimedTaskToApi(t domain.ClaimedTask) models.TaskResponse {
	claimed := t.Claimed
	return models.TaskResponse{
		ID:             t.ID,
		WorkflowItemID: t.WorkflowItemID,
		StepID:         t.StepID,
		ActionID:       t.ActionID,
		PrincipalID:    t.PrincipalID,
		Claimed:        &claimed,
	}
}
