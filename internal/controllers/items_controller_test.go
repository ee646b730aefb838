package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/openarchive/reviewflow/internal/domain"
	"github.com/openarchive/reviewflow/internal/engine"
	"github.com/openarchive/reviewflow/internal/models"
)

func TestSubmitReturnsNewItem(t *testing.T) {
	mux := newTestMux(&MockService{})
	rec := doJSON(t, mux, http.MethodPost, "/api/workflowitems", "sam",
		`{"itemId":"item-1","collectionId":"col-1","workflow":"collection-review"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.SubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != 1 || resp.StepID != "review" || resp.Archived {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSubmitImmediateArchive(t *testing.T) {
	svc := &MockService{
		SubmitFunc: func(ctx context.Context, itemID, collectionID, workflowName string) (*domain.WorkflowItem, *engine.ExecuteResult, error) {
			return nil, &engine.ExecuteResult{Archived: true, Transitioned: true}, nil
		},
	}
	rec := doJSON(t, newTestMux(svc), http.MethodPost, "/api/workflowitems", "sam",
		`{"itemId":"item-1","collectionId":"col-1","workflow":"zero-step"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp models.SubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Archived || resp.ID != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSubmitValidation(t *testing.T) {
	mux := newTestMux(&MockService{})
	rec := doJSON(t, mux, http.MethodPost, "/api/workflowitems", "sam", `{"itemId":"item-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodPost, "/api/workflowitems", "sam", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d", rec.Code)
	}
}

func TestGetItem(t *testing.T) {
	now := time.Now()
	svc := &MockService{
		ItemFunc: func(ctx context.Context, workflowItemID int64) (*domain.WorkflowItem, error) {
			if workflowItemID != 42 {
				return nil, nil
			}
			return &domain.WorkflowItem{ID: 42, ExternalID: "ext-42", ItemID: "item-1", CollectionID: "col-1",
				WorkflowName: "collection-review", StepID: "review", Created: now, Modified: now}, nil
		},
	}
	mux := newTestMux(svc)

	rec := doJSON(t, mux, http.MethodGet, "/api/workflowitems/42", "sam", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp models.WorkflowItemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ExternalID != "ext-42" || resp.StepID != "review" {
		t.Fatalf("unexpected response %+v", resp)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/workflowitems/7", "sam", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing item, got %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/workflowitems/notanumber", "sam", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", rec.Code)
	}
}

func TestGetEvents(t *testing.T) {
	svc := &MockService{
		EventsFunc: func(ctx context.Context, workflowItemID int64) ([]domain.WorkflowEvent, error) {
			return []domain.WorkflowEvent{
				{ID: 1, WorkflowItemID: workflowItemID, PrincipalID: "sam", Type: domain.EventSubmit, StepID: "review"},
				{ID: 2, WorkflowItemID: workflowItemID, PrincipalID: "alice", Type: domain.EventClaim, StepID: "review"},
			}, nil
		},
	}
	rec := doJSON(t, newTestMux(svc), http.MethodGet, "/api/workflowitems/1/events", "sam", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp []models.WorkflowEventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 || resp[0].Type != domain.EventSubmit {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAbortForwardsReason(t *testing.T) {
	var gotReason, gotPrincipal string
	svc := &MockService{
		AbortFunc: func(ctx context.Context, workflowItemID int64, principal, reason string) error {
			gotPrincipal, gotReason = principal, reason
			return nil
		},
	}
	rec := doJSON(t, newTestMux(svc), http.MethodPost, "/api/workflowitems/1/abort?reason=withdrawn", "sam", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotPrincipal != "sam" || gotReason != "withdrawn" {
		t.Fatalf("expected principal and reason forwarded, got %q %q", gotPrincipal, gotReason)
	}
}
