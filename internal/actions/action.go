// Package actions defines the pluggable units of work inside a workflow
// step. A UserSelectionAction decides who may work the step; a
// ProcessingAction does the review work once a task is claimed. Concrete
// actions are registered by id and bound to steps by configuration.
package actions

import (
	"context"

	"github.com/openarchive/reviewflow/internal/definition"
	"github.com/openarchive/reviewflow/internal/domain"
)

// Input carries the acting principal's form values into an action.
type Input map[string]string

// ResultKind discriminates the possible outcomes of executing an action.
type ResultKind int

const (
	ResultOutcome ResultKind = iota // completed; Outcome selects the transition
	ResultError                     // validation failure; re-present, no state change
	ResultCancel                    // actor backed out; claim reverts to the pool
	ResultPage                      // multi-page action not finished yet
)

// Result is what an action execution produced.
type Result struct {
	Kind        ResultKind
	Outcome     string
	Page        string
	FieldErrors map[string]string
}

// Outcome reports a completed action with the given outcome code.
func Outcome(code string) Result {
	return Result{Kind: ResultOutcome, Outcome: code}
}

// Invalid reports a validation failure with per-field messages.
func Invalid(fields map[string]string) Result {
	return Result{Kind: ResultError, FieldErrors: fields}
}

// Cancel reports that the actor abandoned the task.
func Cancel() Result {
	return Result{Kind: ResultCancel}
}

// Page reports that a multi-page action still needs the named page.
func Page(id string) Result {
	return Result{Kind: ResultPage, Page: id}
}

// ProcessingAction is a unit of review logic executed by the principal who
// claimed the task. Activate is invoked once when the step becomes current
// and must be idempotent. IsAuthorized is re-checked on every execution,
// even when the actor already holds the claim.
type ProcessingAction interface {
	Name() string
	Activate(ctx context.Context, item *domain.WorkflowItem) error
	Execute(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition, principal string, input Input) (Result, error)
	IsAuthorized(ctx context.Context, principal string, item *domain.WorkflowItem) (bool, error)
}

// UserSelectionAction decides which principals may work a step. Most steps
// defer to the configured role; custom selections may derive the set from
// the submission itself.
type UserSelectionAction interface {
	Name() string
	Activate(ctx context.Context, item *domain.WorkflowItem) error
	EligiblePrincipals(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition) ([]string, error)
	IsAuthorized(ctx context.Context, principal string, item *domain.WorkflowItem) (bool, error)
}

// ItemStore is the slice of the platform's item repository that actions
// need: metadata reads and writes plus the uploaded-files check used by
// rule-driven approval.
type ItemStore interface {
	GetItem(ctx context.Context, itemID string) (map[string]string, error)
	UpdateMetadata(ctx context.Context, itemID string, changes map[string]string) error
	HasUploadedFiles(ctx context.Context, itemID string) (bool, error)
}
