package actions

import "fmt"

// Registry maps configuration ids to concrete actions. Built once at
// startup, read-only afterwards; step definitions reference actions by the
// ids registered here.
type Registry struct {
	selection  map[string]UserSelectionAction
	processing map[string]ProcessingAction
}

func NewRegistry() *Registry {
	return &Registry{
		selection:  make(map[string]UserSelectionAction),
		processing: make(map[string]ProcessingAction),
	}
}

// RegisterSelection adds a user-selection action under its name.
func (r *Registry) RegisterSelection(a UserSelectionAction) {
	r.selection[a.Name()] = a
}

// RegisterProcessing adds a processing action under its name.
func (r *Registry) RegisterProcessing(a ProcessingAction) {
	r.processing[a.Name()] = a
}

// Selection returns the user-selection action registered under id.
func (r *Registry) Selection(id string) (UserSelectionAction, error) {
	a, ok := r.selection[id]
	if !ok {
		return nil, fmt.Errorf("no user selection action registered as %q", id)
	}
	return a, nil
}

// Processing returns the processing action registered under id.
func (r *Registry) Processing(id string) (ProcessingAction, error) {
	a, ok := r.processing[id]
	if !ok {
		return nil, fmt.Errorf("no processing action registered as %q", id)
	}
	return a, nil
}

func (r *Registry) HasSelectionAction(id string) bool {
	_, ok := r.selection[id]
	return ok
}

func (r *Registry) HasProcessingAction(id string) bool {
	_, ok := r.processing[id]
	return ok
}
