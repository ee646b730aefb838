package definition

import "fmt"

// Registry is the process-lifetime set of workflow definitions, built once
// at startup and read-only afterwards.
type Registry struct {
	byName map[string]*WorkflowDefinition
}

// NewRegistry indexes definitions by name. Duplicate names are rejected.
func NewRegistry(defs []WorkflowDefinition) (*Registry, error) {
	byName := make(map[string]*WorkflowDefinition, len(defs))
	for i := range defs {
		def := &defs[i]
		if _, ok := byName[def.Name]; ok {
			return nil, fmt.Errorf("duplicate workflow definition %q (from %s)", def.Name, def.SourceFile)
		}
		byName[def.Name] = def
	}
	return &Registry{byName: byName}, nil
}

// Get returns the definition with the given name.
func (r *Registry) Get(name string) (*WorkflowDefinition, error) {
	def, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("no workflow definition named %q", name)
	}
	return def, nil
}

// Names lists the registered definition names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
