package actions

import (
	"context"
	"strings"

	"github.com/openarchive/reviewflow/internal/definition"
	"github.com/openarchive/reviewflow/internal/domain"
)

// ResolveFunc resolves the configured role of a step to concrete principal
// ids. The engine's role resolver is plugged in here so selection actions
// stay free of persistence concerns.
type ResolveFunc func(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition) ([]string, error)

// RoleMembersSelection is the default user selection: every member of the
// step's resolved role may claim the task.
type RoleMembersSelection struct {
	resolve ResolveFunc
}

func NewRoleMembersSelection(resolve ResolveFunc) *RoleMembersSelection {
	return &RoleMembersSelection{resolve: resolve}
}

func (s *RoleMembersSelection) Name() string { return "role-members" }

// Activate is a no-op; task creation and notification are owned by the
// task pool manager.
func (s *RoleMembersSelection) Activate(ctx context.Context, item *domain.WorkflowItem) error {
	return nil
}

func (s *RoleMembersSelection) EligiblePrincipals(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition) ([]string, error) {
	return s.resolve(ctx, item, step)
}

func (s *RoleMembersSelection) IsAuthorized(ctx context.Context, principal string, item *domain.WorkflowItem) (bool, error) {
	return principal != "", nil
}

// AssignedReviewerSelection lets the submitter pin reviewers on the item
// itself: a metadata field carries a comma-separated list of principal ids
// that alone may work the step.
type AssignedReviewerSelection struct {
	items ItemStore
	field string
}

func NewAssignedReviewerSelection(items ItemStore, field string) *AssignedReviewerSelection {
	return &AssignedReviewerSelection{items: items, field: field}
}

func (s *AssignedReviewerSelection) Name() string { return "assigned-reviewer" }

func (s *AssignedReviewerSelection) Activate(ctx context.Context, item *domain.WorkflowItem) error {
	return nil
}

func (s *AssignedReviewerSelection) EligiblePrincipals(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition) ([]string, error) {
	metadata, err := s.items.GetItem(ctx, item.ItemID)
	if err != nil {
		return nil, err
	}
	raw := metadata[s.field]
	if raw == "" {
		return nil, nil
	}
	var principals []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			principals = append(principals, p)
		}
	}
	return principals, nil
}

func (s *AssignedReviewerSelection) IsAuthorized(ctx context.Context, principal string, item *domain.WorkflowItem) (bool, error) {
	principals, err := s.EligiblePrincipals(ctx, item, nil)
	if err != nil {
		return false, err
	}
	for _, p := range principals {
		if p == principal {
			return true, nil
		}
	}
	return false, nil
}
