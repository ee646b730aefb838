// Package definition holds the immutable workflow configuration: ordered
// step definitions, their actions, roles, quorum rules and outcome routing.
// Definitions are loaded from YAML at process start and never mutated.
package definition

import "fmt"

// TransitionKind says where an outcome code routes a workflow item.
type TransitionKind int

const (
	TransitionStep    TransitionKind = iota // advance to a later step
	TransitionReturn                        // return to an earlier step
	TransitionArchive                       // hand the item to the archive
	TransitionReject                        // send the item back to the submitter
)

// Transition is one resolved entry of a step's outcome routing table.
type Transition struct {
	Kind   TransitionKind
	StepID string // set for TransitionStep and TransitionReturn
}

// QuorumRule says how many distinct sign-offs finish a multi-approver step.
type QuorumRule struct {
	All   bool
	Count int
}

// StepDefinition is one stage of a workflow: a role, a user-selection
// action, an ordered chain of processing actions and an outcome routing
// table. Immutable during a run.
type StepDefinition struct {
	ID                  string
	Ordinal             int
	RoleID              string
	RequiresUI          bool
	Automatic           bool // executed by the engine without a human claim
	SelectionActionID   string
	ProcessingActionIDs []string
	MultipleApprovers   bool
	Quorum              QuorumRule
	Outcomes            map[string]Transition
}

// HasProcessingAction reports whether the step's chain contains actionID.
func (s *StepDefinition) HasProcessingAction(actionID string) bool {
	for _, id := range s.ProcessingActionIDs {
		if id == actionID {
			return true
		}
	}
	return false
}

// WorkflowDefinition is an ordered list of steps identified by a name that
// collections bind to.
type WorkflowDefinition struct {
	Name  string
	Steps []StepDefinition

	SourceFile string
	Checksum   string
}

// FirstStep returns the entry step, or nil for a zero-step workflow.
func (w *WorkflowDefinition) FirstStep() *StepDefinition {
	if len(w.Steps) == 0 {
		return nil
	}
	return &w.Steps[0]
}

// StepByID returns the step with the given id.
func (w *WorkflowDefinition) StepByID(id string) (*StepDefinition, error) {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i], nil
		}
	}
	return nil, fmt.Errorf("workflow %s has no step %q", w.Name, id)
}
