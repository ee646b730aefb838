package engine

import (
	"context"

	"github.com/openarchive/reviewflow/internal/definition"
)

// ProgressTracker keeps the per-step sign-off bookkeeping for steps that
// need approval from more than one principal before they transition.
type ProgressTracker struct{}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// RecordFinished marks the principal's share of the step as done. Marking
// twice is harmless; quorum counts distinct principals.
func (t *ProgressTracker) RecordFinished(ctx context.Context, repos Repos, workflowItemID int64, stepID, principal string) error {
	return repos.InProgress().MarkFinished(ctx, workflowItemID, stepID, principal)
}

// QuorumMet reports whether enough distinct principals have finished their
// share. For an all-eligible rule the bar is the size of the eligible set
// as resolved now, so a principal leaving the reviewer group lowers it.
func (t *ProgressTracker) QuorumMet(ctx context.Context, repos Repos, workflowItemID int64, step *definition.StepDefinition, eligibleCount int) (bool, error) {
	records, err := repos.InProgress().FindByItemStep(ctx, workflowItemID, step.ID)
	if err != nil {
		return false, err
	}

	finished := make(map[string]bool)
	for _, rec := range records {
		if rec.Finished {
			finished[rec.PrincipalID] = true
		}
	}

	if step.Quorum.All {
		return len(finished) >= eligibleCount, nil
	}
	return len(finished) >= step.Quorum.Count, nil
}
