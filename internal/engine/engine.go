package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openarchive/reviewflow/internal/actions"
	"github.com/openarchive/reviewflow/internal/definition"
	"github.com/openarchive/reviewflow/internal/domain"
)

// Automatic steps may cascade; a routing mistake must not recurse forever.
const maxChainedTransitions = 25

// Engine drives the submission review state machine: it accepts items into
// a workflow, mediates claim/unclaim, evaluates action outcomes and moves
// items between steps or into the archive. Every transition runs under one
// store transaction, so readers observe an item fully in its old step or
// fully in its new state, never partially.
type Engine struct {
	store           Store
	defs            *definition.Registry
	registry        *actions.Registry
	resolver        *RoleResolver
	items           ItemRepository
	pool            *TaskPoolManager
	progress        *ProgressTracker
	clock           Clock
	systemPrincipal string
}

func NewEngine(store Store, defs *definition.Registry, registry *actions.Registry, resolver *RoleResolver,
	items ItemRepository, notify NotificationSink, clock Clock, systemPrincipal string) *Engine {
	return &Engine{
		store:           store,
		defs:            defs,
		registry:        registry,
		resolver:        resolver,
		items:           items,
		pool:            NewTaskPoolManager(store, registry, notify, clock),
		progress:        NewProgressTracker(),
		clock:           clock,
		systemPrincipal: systemPrincipal,
	}
}

// Resolver exposes the role resolver so selection actions can be wired to
// it at startup.
func (e *Engine) Resolver() *RoleResolver { return e.resolver }

// ExecuteResult reports what an Execute call did: the action's own result
// plus whether the item moved on and where it ended up.
type ExecuteResult struct {
	Result        actions.Result
	Transitioned  bool
	CurrentStepID string
	Archived      bool
	Rejected      bool
}

// Submit accepts a submission into the named workflow. The item enters the
// first step; a zero-step workflow archives it immediately. Returns nil
// when the item went straight to a terminal state.
func (e *Engine) Submit(ctx context.Context, itemID, collectionID, workflowName string) (*domain.WorkflowItem, *ExecuteResult, error) {
	def, err := e.defs.Get(workflowName)
	if err != nil {
		return nil, nil, err
	}

	first := def.FirstStep()
	if first == nil {
		if err := e.items.Archive(ctx, itemID); err != nil {
			return nil, nil, transitionFailed(err)
		}
		slog.InfoContext(ctx, "Zero-step workflow, item archived on submit",
			"item_id", itemID, "workflow", workflowName)
		return nil, &ExecuteResult{Archived: true}, nil
	}

	hasFiles, err := e.items.HasUploadedFiles(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}

	item := &domain.WorkflowItem{
		ExternalID:    uuid.NewString(),
		ItemID:        itemID,
		CollectionID:  collectionID,
		WorkflowName:  workflowName,
		StepID:        first.ID,
		MultipleFiles: hasFiles,
		Created:       e.clock.Now(),
		Modified:      e.clock.Now(),
	}

	var out ExecuteResult
	err = e.store.WithTx(ctx, func(repos Repos) error {
		id, err := repos.WorkflowItems().Save(ctx, item)
		if err != nil {
			return transitionFailed(err)
		}
		item.ID = id

		if _, err := repos.Events().Save(ctx, &domain.WorkflowEvent{
			WorkflowItemID: item.ID,
			PrincipalID:    e.systemPrincipal,
			Type:           domain.EventSubmit,
			StepID:         first.ID,
			Text:           "entered workflow " + workflowName,
			DateTime:       e.clock.Now(),
		}); err != nil {
			return transitionFailed(err)
		}

		if err := e.pool.OpenStep(ctx, repos, item, first); err != nil {
			return err
		}
		if first.Automatic {
			return e.runAutomaticStep(ctx, repos, def, item, first, &out, 0)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	slog.InfoContext(ctx, "Submission entered workflow",
		"workflow_item_id", item.ID, "item_id", itemID, "workflow", workflowName, "step_id", item.StepID)
	if out.Archived || out.Rejected {
		return nil, &out, nil
	}
	out.CurrentStepID = item.StepID
	return item, &out, nil
}

// Claim gives the principal exclusive ownership of the step's task.
func (e *Engine) Claim(ctx context.Context, workflowItemID int64, stepID, principal string) (*domain.ClaimedTask, error) {
	item, step, err := e.currentStep(ctx, workflowItemID)
	if err != nil {
		return nil, err
	}
	// A claim against anything but the current step races a transition
	// that already committed; the pool rows are gone.
	if step.ID != stepID {
		return nil, ErrNoSuchPoolTask
	}
	task, err := e.pool.Claim(ctx, item, step, principal)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Task claimed",
		"workflow_item_id", item.ID, "step_id", step.ID, "principal_id", principal)
	return task, nil
}

// Unclaim releases the principal's claimed task back to the pool.
func (e *Engine) Unclaim(ctx context.Context, claimedTaskID int64, principal string) error {
	task, err := e.store.ClaimedTasks().FindByID(ctx, claimedTaskID)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrNoSuchPoolTask
	}
	if task.PrincipalID != principal {
		return ErrUnauthorizedTransition
	}
	item, step, err := e.currentStep(ctx, task.WorkflowItemID)
	if err != nil {
		return err
	}
	if step.ID != task.StepID {
		return ErrNoSuchPoolTask
	}
	return e.pool.Unclaim(ctx, item, step, task)
}

// Execute runs the named processing action for the principal's claimed
// task and applies the outcome: validation errors and pages leave all task
// state untouched, a cancel returns the claim to the pool, and an outcome
// code routes the item per the step's transition table. Multi-approver
// steps transition only once quorum is met; earlier sign-offs are recorded
// and the step stays active.
func (e *Engine) Execute(ctx context.Context, workflowItemID int64, stepID, actionID, principal string, input actions.Input) (*ExecuteResult, error) {
	item, step, err := e.currentStep(ctx, workflowItemID)
	if err != nil {
		return nil, err
	}
	if step.ID != stepID {
		return nil, ErrUnknownStep
	}
	if !step.HasProcessingAction(actionID) {
		return nil, ErrUnknownAction
	}
	if step.Automatic {
		return nil, ErrUnauthorizedTransition
	}
	def, err := e.defs.Get(item.WorkflowName)
	if err != nil {
		return nil, err
	}

	claimed, err := e.store.ClaimedTasks().FindByItemStepPrincipal(ctx, item.ID, step.ID, principal)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return nil, ErrUnauthorizedTransition
	}

	// Eligibility is re-derived on every execution: a principal removed
	// from the role mid-task loses the claim, which rolls back to the pool
	// for the remaining eligible set.
	if err := e.checkStillEligible(ctx, item, step, claimed, principal); err != nil {
		return nil, err
	}

	var out ExecuteResult
	err = e.store.WithTx(ctx, func(repos Repos) error {
		result, err := e.runChain(ctx, item, step, actionID, principal, input)
		if err != nil {
			return err
		}
		out.Result = result
		out.CurrentStepID = step.ID

		switch result.Kind {
		case actions.ResultError, actions.ResultPage:
			// Re-presented to the same actor; no task or claim change.
			return nil

		case actions.ResultCancel:
			return e.pool.Release(ctx, repos, item, step, claimed)

		case actions.ResultOutcome:
			if step.MultipleApprovers {
				done, err := e.recordApproval(ctx, repos, item, step, claimed, principal)
				if err != nil {
					return err
				}
				if !done {
					return nil
				}
			}
			return e.applyOutcome(ctx, repos, def, item, step, result.Outcome, principal, input, &out, 0)
		}
		return fmt.Errorf("action %s returned unknown result kind %d", actionID, result.Kind)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PoolTasks lists the tasks the principal could claim.
func (e *Engine) PoolTasks(ctx context.Context, principal string) ([]domain.PoolTask, error) {
	return e.store.PoolTasks().FindByPrincipal(ctx, principal)
}

// ClaimedTasks lists the tasks the principal currently owns.
func (e *Engine) ClaimedTasks(ctx context.Context, principal string) ([]domain.ClaimedTask, error) {
	return e.store.ClaimedTasks().FindByPrincipal(ctx, principal)
}

// Item returns one workflow item by id.
func (e *Engine) Item(ctx context.Context, workflowItemID int64) (*domain.WorkflowItem, error) {
	return e.store.WorkflowItems().FindByID(ctx, workflowItemID)
}

// Events returns the audit trail of one workflow item.
func (e *Engine) Events(ctx context.Context, workflowItemID int64) ([]domain.WorkflowEvent, error) {
	return e.store.Events().FindAllByItem(ctx, workflowItemID)
}

// Abort withdraws an item from review entirely: all task state for the
// current step is torn down and the item returns to the submitter's
// workspace.
func (e *Engine) Abort(ctx context.Context, workflowItemID int64, principal, reason string) error {
	item, step, err := e.currentStep(ctx, workflowItemID)
	if err != nil {
		return err
	}
	err = e.store.WithTx(ctx, func(repos Repos) error {
		if err := e.pool.CloseStep(ctx, repos, item.ID, step.ID); err != nil {
			return transitionFailed(err)
		}
		if err := e.items.ReturnToWorkspace(ctx, item.ItemID, reason); err != nil {
			return transitionFailed(err)
		}
		if _, err := repos.Events().Save(ctx, &domain.WorkflowEvent{
			WorkflowItemID: item.ID,
			PrincipalID:    principal,
			Type:           domain.EventAbort,
			StepID:         step.ID,
			Text:           reason,
			DateTime:       e.clock.Now(),
		}); err != nil {
			return transitionFailed(err)
		}
		if err := repos.WorkflowItems().Delete(ctx, item.ID); err != nil {
			return transitionFailed(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Workflow item aborted",
		"workflow_item_id", workflowItemID, "principal_id", principal)
	return nil
}

func (e *Engine) currentStep(ctx context.Context, workflowItemID int64) (*domain.WorkflowItem, *definition.StepDefinition, error) {
	item, err := e.store.WorkflowItems().FindByID(ctx, workflowItemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, fmt.Errorf("no workflow item %d", workflowItemID)
	}
	def, err := e.defs.Get(item.WorkflowName)
	if err != nil {
		return nil, nil, err
	}
	step, err := def.StepByID(item.StepID)
	if err != nil {
		return nil, nil, err
	}
	return item, step, nil
}

// checkStillEligible re-derives the eligible set and, when the principal
// dropped out of it, commits the claim's return to the pool before
// reporting ErrNotEligible.
func (e *Engine) checkStillEligible(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition, claimed *domain.ClaimedTask, principal string) error {
	selection, err := e.registry.Selection(step.SelectionActionID)
	if err != nil {
		return err
	}
	eligible, err := selection.EligiblePrincipals(ctx, item, step)
	if err != nil {
		return err
	}
	if containsPrincipal(eligible, principal) {
		return nil
	}
	releaseErr := e.store.WithTx(ctx, func(repos Repos) error {
		return e.pool.Release(ctx, repos, item, step, claimed)
	})
	if releaseErr != nil {
		slog.ErrorContext(ctx, "Failed to release claim of ineligible principal",
			"workflow_item_id", item.ID, "step_id", step.ID, "principal_id", principal, "error", releaseErr)
	}
	return ErrNotEligible
}

// runChain executes the step's processing actions from the requested one
// onward. The first non-outcome result short-circuits the chain; the last
// outcome code is the step's outcome.
func (e *Engine) runChain(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition, fromActionID, principal string, input actions.Input) (actions.Result, error) {
	start := 0
	for i, id := range step.ProcessingActionIDs {
		if id == fromActionID {
			start = i
			break
		}
	}

	var result actions.Result
	for _, id := range step.ProcessingActionIDs[start:] {
		action, err := e.registry.Processing(id)
		if err != nil {
			return actions.Result{}, err
		}
		authorized, err := action.IsAuthorized(ctx, principal, item)
		if err != nil {
			return actions.Result{}, err
		}
		if !authorized {
			return actions.Result{}, ErrUnauthorizedTransition
		}
		result, err = action.Execute(ctx, item, step, principal, input)
		if err != nil {
			return actions.Result{}, err
		}
		if result.Kind != actions.ResultOutcome {
			return result, nil
		}
	}
	return result, nil
}

// recordApproval books the principal's sign-off, retires their claim, and
// reports whether quorum is now met. Duplicate sign-offs from the same
// principal do not advance the count.
func (e *Engine) recordApproval(ctx context.Context, repos Repos, item *domain.WorkflowItem, step *definition.StepDefinition, claimed *domain.ClaimedTask, principal string) (bool, error) {
	if err := e.progress.RecordFinished(ctx, repos, item.ID, step.ID, principal); err != nil {
		return false, transitionFailed(err)
	}
	removed, err := repos.ClaimedTasks().Delete(ctx, claimed.ID)
	if err != nil {
		return false, transitionFailed(err)
	}
	if removed == 0 {
		// A competing approval closed the step after this claim was read.
		return false, ErrNoSuchPoolTask
	}
	if _, err := repos.Events().Save(ctx, &domain.WorkflowEvent{
		WorkflowItemID: item.ID,
		PrincipalID:    principal,
		Type:           domain.EventApproval,
		StepID:         step.ID,
		DateTime:       e.clock.Now(),
	}); err != nil {
		return false, transitionFailed(err)
	}

	// The eligible count must come from the step's own selection action,
	// the same source claiming uses. Steps whose selection is not
	// role-based have no collection role to resolve.
	selection, err := e.registry.Selection(step.SelectionActionID)
	if err != nil {
		return false, err
	}
	eligible, err := selection.EligiblePrincipals(ctx, item, step)
	if err != nil {
		return false, err
	}
	met, err := e.progress.QuorumMet(ctx, repos, item.ID, step, len(eligible))
	if err != nil {
		return false, transitionFailed(err)
	}
	return met, nil
}

// applyOutcome routes the step's outcome: tear down the step's task state,
// then advance, return, archive or reject. Runs inside the caller's
// transaction so a failure anywhere rolls the whole transition back.
func (e *Engine) applyOutcome(ctx context.Context, repos Repos, def *definition.WorkflowDefinition, item *domain.WorkflowItem, step *definition.StepDefinition, code, principal string, input actions.Input, out *ExecuteResult, depth int) error {
	if depth > maxChainedTransitions {
		return fmt.Errorf("workflow %s: more than %d chained automatic transitions", def.Name, maxChainedTransitions)
	}

	transition, ok := step.Outcomes[code]
	if !ok {
		return fmt.Errorf("step %s outcome %s: %w", step.ID, code, ErrUnknownOutcome)
	}

	if err := e.pool.CloseStep(ctx, repos, item.ID, step.ID); err != nil {
		return transitionFailed(err)
	}

	switch transition.Kind {
	case definition.TransitionStep, definition.TransitionReturn:
		next, err := def.StepByID(transition.StepID)
		if err != nil {
			return err
		}
		if err := repos.WorkflowItems().UpdateStep(ctx, item.ID, next.ID, e.clock.Now()); err != nil {
			return transitionFailed(err)
		}
		if _, err := repos.Events().Save(ctx, &domain.WorkflowEvent{
			WorkflowItemID: item.ID,
			PrincipalID:    principal,
			Type:           domain.EventTransit,
			StepID:         step.ID,
			Text:           fmt.Sprintf("outcome %s: %s -> %s", code, step.ID, next.ID),
			DateTime:       e.clock.Now(),
		}); err != nil {
			return transitionFailed(err)
		}
		item.StepID = next.ID
		out.Transitioned = true
		out.CurrentStepID = next.ID
		slog.InfoContext(ctx, "Workflow item transitioned",
			"workflow_item_id", item.ID, "from", step.ID, "to", next.ID, "outcome", code)

		if err := e.pool.OpenStep(ctx, repos, item, next); err != nil {
			return err
		}
		if next.Automatic {
			return e.runAutomaticStep(ctx, repos, def, item, next, out, depth+1)
		}
		return nil

	case definition.TransitionArchive:
		if err := e.items.Archive(ctx, item.ItemID); err != nil {
			return transitionFailed(err)
		}
		if _, err := repos.Events().Save(ctx, &domain.WorkflowEvent{
			WorkflowItemID: item.ID,
			PrincipalID:    principal,
			Type:           domain.EventArchive,
			StepID:         step.ID,
			Text:           "item archived",
			DateTime:       e.clock.Now(),
		}); err != nil {
			return transitionFailed(err)
		}
		if err := repos.WorkflowItems().Delete(ctx, item.ID); err != nil {
			return transitionFailed(err)
		}
		out.Transitioned = true
		out.Archived = true
		slog.InfoContext(ctx, "Workflow item archived", "workflow_item_id", item.ID, "item_id", item.ItemID)
		return nil

	case definition.TransitionReject:
		reason := input[actions.FieldReason]
		if err := e.items.ReturnToWorkspace(ctx, item.ItemID, reason); err != nil {
			return transitionFailed(err)
		}
		if _, err := repos.Events().Save(ctx, &domain.WorkflowEvent{
			WorkflowItemID: item.ID,
			PrincipalID:    principal,
			Type:           domain.EventReject,
			StepID:         step.ID,
			Text:           reason,
			DateTime:       e.clock.Now(),
		}); err != nil {
			return transitionFailed(err)
		}
		if err := repos.WorkflowItems().Delete(ctx, item.ID); err != nil {
			return transitionFailed(err)
		}
		out.Transitioned = true
		out.Rejected = true
		slog.InfoContext(ctx, "Workflow item rejected to submitter",
			"workflow_item_id", item.ID, "item_id", item.ItemID, "reason", reason)
		return nil
	}
	return fmt.Errorf("step %s outcome %s: unknown transition kind %d", step.ID, code, transition.Kind)
}

// runAutomaticStep executes an automatic step's whole chain as the system
// principal within the current transaction and applies its outcome.
func (e *Engine) runAutomaticStep(ctx context.Context, repos Repos, def *definition.WorkflowDefinition, item *domain.WorkflowItem, step *definition.StepDefinition, out *ExecuteResult, depth int) error {
	result, err := e.runChain(ctx, item, step, step.ProcessingActionIDs[0], e.systemPrincipal, nil)
	if err != nil {
		return err
	}
	if result.Kind != actions.ResultOutcome {
		return fmt.Errorf("automatic step %s produced a non-outcome result", step.ID)
	}
	out.Result = result
	return e.applyOutcome(ctx, repos, def, item, step, result.Outcome, e.systemPrincipal, nil, out, depth+1)
}
