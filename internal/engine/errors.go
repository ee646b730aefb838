package engine

import (
	"errors"
	"fmt"
)

// Contention and authorization failures callers are expected to recover
// from, plus configuration problems that are fatal until an administrator
// intervenes.
var (
	// ErrAlreadyClaimed: another principal converted the pool task first.
	// Expected under contention; callers re-fetch the pool list.
	ErrAlreadyClaimed = errors.New("task already claimed")

	// ErrNotEligible: the principal is not in the step's resolved role.
	// Eligibility is re-derived at claim and execute time, never cached.
	ErrNotEligible = errors.New("principal not eligible for step")

	// ErrNoSuchPoolTask: the step holds no pool task to claim, typically
	// because the step already transitioned.
	ErrNoSuchPoolTask = errors.New("no pool task to claim")

	// ErrUnauthorizedTransition: the acting principal holds no claim for
	// the step (and the step is not automatic). No state is mutated.
	ErrUnauthorizedTransition = errors.New("principal does not hold a task for this step")

	// ErrUnknownStep: the request names a step that is not the item's
	// current step.
	ErrUnknownStep = errors.New("not the item's current step")

	// ErrUnknownAction: the request names an action outside the step's
	// configured chain.
	ErrUnknownAction = errors.New("action not configured for step")

	// ErrUnknownOutcome: the action produced an outcome code with no
	// routing entry. A configuration error, not retried.
	ErrUnknownOutcome = errors.New("no transition configured for outcome")

	// ErrTransitionFailed wraps persistence failures during a transition.
	// The whole transition rolled back; callers may retry the action.
	ErrTransitionFailed = errors.New("workflow transition failed")
)

// RoleResolutionError means no group is configured for a (collection, role)
// pair that a step needs reviewers from. Fatal configuration error; the
// workflow item stays in its last valid state.
type RoleResolutionError struct {
	CollectionID string
	RoleID       string
}

func (e *RoleResolutionError) Error() string {
	return fmt.Sprintf("no role %q configured for collection %q", e.RoleID, e.CollectionID)
}

func transitionFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrTransitionFailed, err)
}
