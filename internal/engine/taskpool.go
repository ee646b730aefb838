package engine

import (
	"context"
	"log/slog"

	"github.com/openarchive/reviewflow/internal/actions"
	"github.com/openarchive/reviewflow/internal/definition"
	"github.com/openarchive/reviewflow/internal/domain"
)

// TaskPoolManager owns the pool/claimed task lifecycle for the current
// step of a workflow item. Claiming is the one concurrency-critical
// operation: it compare-and-swaps pool rows into a claimed row inside a
// single transaction, so exactly one of any number of racing claimants
// wins.
type TaskPoolManager struct {
	store    Store
	registry *actions.Registry
	notify   NotificationSink
	clock    Clock
}

func NewTaskPoolManager(store Store, registry *actions.Registry, notify NotificationSink, clock Clock) *TaskPoolManager {
	return &TaskPoolManager{store: store, registry: registry, notify: notify, clock: clock}
}

// OpenStep activates the step's user selection action, resolves the
// eligible principals and creates one pool task per principal. Runs inside
// the engine's transition transaction. Idempotent: when tasks already
// exist for the step (a re-activation after a transient failure) nothing
// is created and nobody is re-notified.
func (m *TaskPoolManager) OpenStep(ctx context.Context, repos Repos, item *domain.WorkflowItem, step *definition.StepDefinition) error {
	if step.Automatic {
		return nil
	}

	existing, err := repos.PoolTasks().FindByItemStep(ctx, item.ID, step.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	selection, err := m.registry.Selection(step.SelectionActionID)
	if err != nil {
		return err
	}
	if err := selection.Activate(ctx, item); err != nil {
		return err
	}
	eligible, err := selection.EligiblePrincipals(ctx, item, step)
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		return &RoleResolutionError{CollectionID: item.CollectionID, RoleID: step.RoleID}
	}

	actionID := step.ProcessingActionIDs[0]
	for _, principal := range eligible {
		task := &domain.PoolTask{
			WorkflowItemID: item.ID,
			StepID:         step.ID,
			ActionID:       actionID,
			PrincipalID:    principal,
			Created:        m.clock.Now(),
		}
		if _, err := repos.PoolTasks().Create(ctx, task); err != nil {
			return err
		}
	}

	if err := m.notify.Notify(ctx, eligible, item, step.ID); err != nil {
		slog.WarnContext(ctx, "Task notification failed",
			"workflow_item_id", item.ID, "step_id", step.ID, "error", err)
	}
	return nil
}

// Claim converts the principal's pool availability into an exclusive
// claimed task. Eligibility is re-derived here, never taken from the pool
// row. Single-approver steps remove every pool row on claim; multi-
// approver steps remove only the claimant's, leaving the others free to
// claim their own share.
func (m *TaskPoolManager) Claim(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition, principal string) (*domain.ClaimedTask, error) {
	var claimed *domain.ClaimedTask
	err := m.store.WithTx(ctx, func(repos Repos) error {
		selection, err := m.registry.Selection(step.SelectionActionID)
		if err != nil {
			return err
		}
		eligible, err := selection.EligiblePrincipals(ctx, item, step)
		if err != nil {
			return err
		}
		if !containsPrincipal(eligible, principal) {
			return ErrNotEligible
		}

		held, err := repos.ClaimedTasks().FindByItemStepPrincipal(ctx, item.ID, step.ID, principal)
		if err != nil {
			return err
		}
		if held != nil {
			return ErrAlreadyClaimed
		}

		var removed int64
		if step.MultipleApprovers {
			removed, err = repos.PoolTasks().DeleteForPrincipal(ctx, item.ID, step.ID, principal)
		} else {
			removed, err = repos.PoolTasks().DeleteAll(ctx, item.ID, step.ID)
		}
		if err != nil {
			return err
		}
		if removed == 0 {
			others, err := repos.ClaimedTasks().FindByItemStep(ctx, item.ID, step.ID)
			if err != nil {
				return err
			}
			if len(others) > 0 {
				return ErrAlreadyClaimed
			}
			return ErrNoSuchPoolTask
		}

		task := &domain.ClaimedTask{
			WorkflowItemID: item.ID,
			StepID:         step.ID,
			ActionID:       step.ProcessingActionIDs[0],
			PrincipalID:    principal,
			Claimed:        m.clock.Now(),
		}
		id, err := repos.ClaimedTasks().Create(ctx, task)
		if err != nil {
			return err
		}
		task.ID = id

		if step.MultipleApprovers {
			rec := &domain.InProgressUser{
				WorkflowItemID: item.ID,
				StepID:         step.ID,
				PrincipalID:    principal,
			}
			if _, err := repos.InProgress().Save(ctx, rec); err != nil {
				return err
			}
		}

		_, err = repos.Events().Save(ctx, &domain.WorkflowEvent{
			WorkflowItemID: item.ID,
			PrincipalID:    principal,
			Type:           domain.EventClaim,
			StepID:         step.ID,
			DateTime:       m.clock.Now(),
		})
		if err != nil {
			return err
		}
		claimed = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Unclaim deletes the claimed task and restores the equivalent pool
// availability in the same transaction, so no observer sees the task
// neither pooled nor claimed.
func (m *TaskPoolManager) Unclaim(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition, task *domain.ClaimedTask) error {
	return m.store.WithTx(ctx, func(repos Repos) error {
		if err := m.Release(ctx, repos, item, step, task); err != nil {
			return err
		}
		_, err := repos.Events().Save(ctx, &domain.WorkflowEvent{
			WorkflowItemID: item.ID,
			PrincipalID:    task.PrincipalID,
			Type:           domain.EventUnclaim,
			StepID:         step.ID,
			DateTime:       m.clock.Now(),
		})
		return err
	})
}

// Release reverts a claimed task to the pool within the caller's
// transaction. Used by Unclaim and by action cancellation; other
// principals' independent claims on the same step are untouched.
func (m *TaskPoolManager) Release(ctx context.Context, repos Repos, item *domain.WorkflowItem, step *definition.StepDefinition, task *domain.ClaimedTask) error {
	removed, err := repos.ClaimedTasks().Delete(ctx, task.ID)
	if err != nil {
		return err
	}
	// The claim was read before this transaction began. When a competing
	// approval met quorum in between, the step is closed and its task rows
	// are gone; recreating pool rows now would orphan them.
	if removed == 0 {
		return ErrNoSuchPoolTask
	}

	// A single-approver claim removed every principal's pool row, so the
	// release must restore the whole eligible set, not just the claimant.
	principals := []string{task.PrincipalID}
	if !step.MultipleApprovers {
		selection, err := m.registry.Selection(step.SelectionActionID)
		if err != nil {
			return err
		}
		principals, err = selection.EligiblePrincipals(ctx, item, step)
		if err != nil {
			return err
		}
	}

	for _, principal := range principals {
		pool := &domain.PoolTask{
			WorkflowItemID: item.ID,
			StepID:         step.ID,
			ActionID:       task.ActionID,
			PrincipalID:    principal,
			Created:        m.clock.Now(),
		}
		if _, err := repos.PoolTasks().Create(ctx, pool); err != nil {
			return err
		}
	}
	return nil
}

// CloseStep removes every pool, claimed and in-progress row for the step,
// regardless of owner. Called once the step's outcome is decided, inside
// the transition transaction, before the engine advances.
func (m *TaskPoolManager) CloseStep(ctx context.Context, repos Repos, workflowItemID int64, stepID string) error {
	if _, err := repos.PoolTasks().DeleteAll(ctx, workflowItemID, stepID); err != nil {
		return err
	}
	if _, err := repos.ClaimedTasks().DeleteAll(ctx, workflowItemID, stepID); err != nil {
		return err
	}
	return repos.InProgress().DeleteAll(ctx, workflowItemID, stepID)
}

func containsPrincipal(principals []string, principal string) bool {
	for _, p := range principals {
		if p == principal {
			return true
		}
	}
	return false
}
