package actions

import (
	"context"
	"strings"

	"github.com/openarchive/reviewflow/internal/definition"
	"github.com/openarchive/reviewflow/internal/domain"
)

// Outcome codes produced by the built-in processing actions.
const (
	OutcomeApprove  = "approve"
	OutcomeReject   = "reject"
	OutcomeComplete = "complete"
)

// Form fields read by the built-in processing actions.
const (
	FieldDecision = "decision"
	FieldReason   = "reason"
	FieldPage     = "page"
)

// ReviewAction is the standard accept/reject decision. A rejection needs a
// reason, which travels with the item back to the submitter as provenance.
type ReviewAction struct{}

func NewReviewAction() *ReviewAction { return &ReviewAction{} }

func (a *ReviewAction) Name() string { return "review" }

func (a *ReviewAction) Activate(ctx context.Context, item *domain.WorkflowItem) error {
	return nil
}

func (a *ReviewAction) Execute(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition, principal string, input Input) (Result, error) {
	switch input[FieldDecision] {
	case "approve":
		return Outcome(OutcomeApprove), nil
	case "reject":
		if strings.TrimSpace(input[FieldReason]) == "" {
			return Invalid(map[string]string{FieldReason: "a rejection reason is required"}), nil
		}
		return Outcome(OutcomeReject), nil
	case "cancel":
		return Cancel(), nil
	case "":
		return Invalid(map[string]string{FieldDecision: "a decision is required"}), nil
	}
	return Invalid(map[string]string{FieldDecision: "unknown decision " + input[FieldDecision]}), nil
}

func (a *ReviewAction) IsAuthorized(ctx context.Context, principal string, item *domain.WorkflowItem) (bool, error) {
	return principal != "", nil
}

// EditMetadataAction applies reviewer corrections to the item's metadata.
// Fields arrive prefixed with "metadata."; the remaining pages of the edit
// form are requested via the page field until the reviewer finishes.
type EditMetadataAction struct {
	items ItemStore
}

func NewEditMetadataAction(items ItemStore) *EditMetadataAction {
	return &EditMetadataAction{items: items}
}

func (a *EditMetadataAction) Name() string { return "edit-metadata" }

func (a *EditMetadataAction) Activate(ctx context.Context, item *domain.WorkflowItem) error {
	return nil
}

func (a *EditMetadataAction) Execute(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition, principal string, input Input) (Result, error) {
	if input[FieldDecision] == "cancel" {
		return Cancel(), nil
	}

	changes := make(map[string]string)
	for key, value := range input {
		if field, ok := strings.CutPrefix(key, "metadata."); ok {
			changes[field] = value
		}
	}
	if len(changes) > 0 {
		if err := a.items.UpdateMetadata(ctx, item.ItemID, changes); err != nil {
			return Result{}, err
		}
	}

	if page := input[FieldPage]; page != "" {
		return Page(page), nil
	}
	return Outcome(OutcomeComplete), nil
}

func (a *EditMetadataAction) IsAuthorized(ctx context.Context, principal string, item *domain.WorkflowItem) (bool, error) {
	return principal != "", nil
}

// AutoApproveAction approves or rejects without reviewer involvement based
// on a rule over the submission; currently whether files were uploaded.
// Steps using it are marked automatic in the definition.
type AutoApproveAction struct {
	items        ItemStore
	requireFiles bool
}

func NewAutoApproveAction(items ItemStore, requireFiles bool) *AutoApproveAction {
	return &AutoApproveAction{items: items, requireFiles: requireFiles}
}

func (a *AutoApproveAction) Name() string { return "auto-approve" }

func (a *AutoApproveAction) Activate(ctx context.Context, item *domain.WorkflowItem) error {
	return nil
}

func (a *AutoApproveAction) Execute(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition, principal string, input Input) (Result, error) {
	if !a.requireFiles {
		return Outcome(OutcomeApprove), nil
	}
	hasFiles, err := a.items.HasUploadedFiles(ctx, item.ItemID)
	if err != nil {
		return Result{}, err
	}
	if hasFiles {
		return Outcome(OutcomeApprove), nil
	}
	return Outcome(OutcomeReject), nil
}

func (a *AutoApproveAction) IsAuthorized(ctx context.Context, principal string, item *domain.WorkflowItem) (bool, error) {
	// Executed by the engine itself, never claimed by a reviewer.
	return true, nil
}
