package definition

import (
	"fmt"
	"strings"
)

// ActionCatalog reports which action ids a validator should accept. The
// action registry satisfies this.
type ActionCatalog interface {
	HasSelectionAction(id string) bool
	HasProcessingAction(id string) bool
}

// Validator checks cross-step consistency of a parsed workflow definition
// before it is admitted to the registry. Definition problems are fatal at
// startup rather than surfacing mid-run as broken transitions.
type Validator struct {
	catalog ActionCatalog
}

func NewValidator(catalog ActionCatalog) *Validator {
	return &Validator{catalog: catalog}
}

// Validate returns the list of problems found, empty when the definition
// is usable.
func (v *Validator) Validate(def *WorkflowDefinition) []string {
	var problems []string

	seen := make(map[string]bool, len(def.Steps))
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.ID == "" {
			problems = append(problems, fmt.Sprintf("step %d: missing id", i))
			continue
		}
		if seen[step.ID] {
			problems = append(problems, fmt.Sprintf("duplicate step id %q", step.ID))
		}
		seen[step.ID] = true

		if step.RoleID == "" && !step.Automatic {
			problems = append(problems, fmt.Sprintf("step %q: role is required unless the step is automatic", step.ID))
		}
		if step.SelectionActionID == "" && !step.Automatic {
			problems = append(problems, fmt.Sprintf("step %q: selection action is required unless the step is automatic", step.ID))
		}
		if step.SelectionActionID != "" && !v.catalog.HasSelectionAction(step.SelectionActionID) {
			problems = append(problems, fmt.Sprintf("step %q: unknown selection action %q", step.ID, step.SelectionActionID))
		}
		if len(step.ProcessingActionIDs) == 0 {
			problems = append(problems, fmt.Sprintf("step %q: at least one processing action is required", step.ID))
		}
		for _, id := range step.ProcessingActionIDs {
			if !v.catalog.HasProcessingAction(id) {
				problems = append(problems, fmt.Sprintf("step %q: unknown processing action %q", step.ID, id))
			}
		}
		if len(step.Outcomes) == 0 {
			problems = append(problems, fmt.Sprintf("step %q: no outcomes configured", step.ID))
		}
		if step.MultipleApprovers && step.Automatic {
			problems = append(problems, fmt.Sprintf("step %q: automatic steps cannot require multiple approvers", step.ID))
		}
	}

	// Outcome targets must name existing steps, and return targets must
	// point at earlier steps so routing cannot loop forward.
	for i := range def.Steps {
		step := &def.Steps[i]
		for code, tr := range step.Outcomes {
			switch tr.Kind {
			case TransitionStep, TransitionReturn:
				target, err := def.StepByID(tr.StepID)
				if err != nil {
					problems = append(problems, fmt.Sprintf("step %q outcome %q: dangling target %q", step.ID, code, tr.StepID))
					continue
				}
				if tr.Kind == TransitionReturn && target.Ordinal >= step.Ordinal {
					problems = append(problems, fmt.Sprintf("step %q outcome %q: return target %q is not an earlier step", step.ID, code, tr.StepID))
				}
			}
		}
	}

	return problems
}

// ValidateAll validates every definition and returns one error naming all
// problems across all files.
func (v *Validator) ValidateAll(defs []WorkflowDefinition) error {
	var problems []string
	for i := range defs {
		for _, p := range v.Validate(&defs[i]) {
			problems = append(problems, fmt.Sprintf("%s: %s", defs[i].Name, p))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid workflow definitions:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
