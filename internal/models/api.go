package models

import "time"

// SubmitRequest starts a workflow for an item being submitted to a collection.
type SubmitRequest struct {
	ItemID       string `json:"itemId"`
	CollectionID string `json:"collectionId"`
	Workflow     string `json:"workflow"`
}

type SubmitResponse struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"externalId"`
	StepID     string `json:"stepId"`
	Archived   bool   `json:"archived"`
	Rejected   bool   `json:"rejected"`
}

type ClaimRequest struct {
	WorkflowItemID int64  `json:"workflowItemId"`
	StepID         string `json:"stepId"`
}

type UnclaimRequest struct {
	ClaimedTaskID int64 `json:"claimedTaskId"`
}

// ExecuteRequest runs a processing action against a claimed task. Input carries
// the form fields the action reads, for example "decision" or "reason".
type ExecuteRequest struct {
	WorkflowItemID int64             `json:"workflowItemId"`
	StepID         string            `json:"stepId"`
	ActionID       string            `json:"actionId"`
	Input          map[string]string `json:"input,omitempty"`
}

type ExecuteResponse struct {
	Outcome      string            `json:"outcome,omitempty"`
	Page         string            `json:"page,omitempty"`
	FieldErrors  map[string]string `json:"fieldErrors,omitempty"`
	Transitioned bool              `json:"transitioned"`
	StepID       string            `json:"stepId,omitempty"`
	Archived     bool              `json:"archived"`
	Rejected     bool              `json:"rejected"`
}

type WorkflowItemResponse struct {
	ID             int64     `json:"id"`
	ExternalID     string    `json:"externalId"`
	ItemID         string    `json:"itemId"`
	CollectionID   string    `json:"collectionId"`
	WorkflowName   string    `json:"workflow"`
	StepID         string    `json:"stepId"`
	MultipleFiles  bool      `json:"multipleFiles"`
	MultipleTitles bool      `json:"multipleTitles"`
	Created        time.Time `json:"created"`
	Modified       time.Time `json:"modified"`
}

type TaskResponse struct {
	ID             int64      `json:"id"`
	WorkflowItemID int64      `json:"workflowItemId"`
	StepID         string     `json:"stepId"`
	ActionID       string     `json:"actionId"`
	PrincipalID    string     `json:"principalId"`
	Created        *time.Time `json:"created,omitempty"`
	Claimed        *time.Time `json:"claimed,omitempty"`
}

type TaskListResponse struct {
	Results int            `json:"results"`
	Tasks   []TaskResponse `json:"tasks"`
}

type WorkflowEventResponse struct {
	ID             int64     `json:"id"`
	WorkflowItemID int64     `json:"workflowItemId"`
	PrincipalID    string    `json:"principalId"`
	Type           string    `json:"type"`
	StepID         string    `json:"stepId"`
	Text           string    `json:"text,omitempty"`
	DateTime       time.Time `json:"dateTime"`
}

type OkResponse struct {
	OK bool `json:"ok"`
}
