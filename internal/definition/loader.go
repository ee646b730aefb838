package definition

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlWorkflow is the on-disk shape of a workflow definition file.
type yamlWorkflow struct {
	Name  string     `yaml:"name"`
	Steps []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	ID         string            `yaml:"id"`
	Role       string            `yaml:"role"`
	RequiresUI bool              `yaml:"requires_ui"`
	Automatic  bool              `yaml:"automatic"`
	Selection  string            `yaml:"selection"`
	Actions    []string          `yaml:"actions"`
	Quorum     string            `yaml:"quorum"` // "", "all" or a count
	Outcomes   map[string]string `yaml:"outcomes"`
}

// Loader scans directories for YAML workflow definition files and parses
// them. Checksums are recorded so operators can tell which file revision a
// running process loaded.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// LoadAll recursively scans directories for *.yaml and *.yml files and
// parses each into a WorkflowDefinition.
func (l *Loader) LoadAll(directories []string) ([]WorkflowDefinition, error) {
	var defs []WorkflowDefinition

	for _, dir := range directories {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}

			def, err := l.LoadFile(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			defs = append(defs, def)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning directory %s: %w", dir, err)
		}
	}

	return defs, nil
}

// LoadFile loads and parses a single YAML workflow definition file.
func (l *Loader) LoadFile(path string) (WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WorkflowDefinition{}, fmt.Errorf("reading %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return WorkflowDefinition{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	def.Checksum = fmt.Sprintf("%x", sha256.Sum256(data))
	def.SourceFile = path
	return def, nil
}

// Parse converts raw YAML into a WorkflowDefinition. Structural problems
// (bad quorum, bad outcome target syntax) fail here; cross-step consistency
// is the validator's job.
func Parse(data []byte) (WorkflowDefinition, error) {
	var raw yamlWorkflow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return WorkflowDefinition{}, err
	}
	if raw.Name == "" {
		return WorkflowDefinition{}, fmt.Errorf("workflow name is required")
	}

	def := WorkflowDefinition{Name: raw.Name}
	for i, rs := range raw.Steps {
		step := StepDefinition{
			ID:                  rs.ID,
			Ordinal:             i,
			RoleID:              rs.Role,
			RequiresUI:          rs.RequiresUI,
			Automatic:           rs.Automatic,
			SelectionActionID:   rs.Selection,
			ProcessingActionIDs: rs.Actions,
			Outcomes:            make(map[string]Transition, len(rs.Outcomes)),
		}

		quorum, multiple, err := parseQuorum(rs.Quorum)
		if err != nil {
			return WorkflowDefinition{}, fmt.Errorf("step %q: %w", rs.ID, err)
		}
		step.Quorum = quorum
		step.MultipleApprovers = multiple

		for code, target := range rs.Outcomes {
			tr, err := parseTransition(target)
			if err != nil {
				return WorkflowDefinition{}, fmt.Errorf("step %q outcome %q: %w", rs.ID, code, err)
			}
			step.Outcomes[code] = tr
		}
		def.Steps = append(def.Steps, step)
	}
	return def, nil
}

func parseQuorum(raw string) (QuorumRule, bool, error) {
	switch raw {
	case "":
		return QuorumRule{}, false, nil
	case "all":
		return QuorumRule{All: true}, true, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return QuorumRule{}, false, fmt.Errorf("quorum must be %q or a positive count, got %q", "all", raw)
	}
	return QuorumRule{Count: n}, true, nil
}

func parseTransition(target string) (Transition, error) {
	switch {
	case target == "archive":
		return Transition{Kind: TransitionArchive}, nil
	case target == "reject":
		return Transition{Kind: TransitionReject}, nil
	case strings.HasPrefix(target, "step:"):
		id := strings.TrimPrefix(target, "step:")
		if id == "" {
			return Transition{}, fmt.Errorf("empty step target")
		}
		return Transition{Kind: TransitionStep, StepID: id}, nil
	case strings.HasPrefix(target, "return:"):
		id := strings.TrimPrefix(target, "return:")
		if id == "" {
			return Transition{}, fmt.Errorf("empty return target")
		}
		return Transition{Kind: TransitionReturn, StepID: id}, nil
	}
	return Transition{}, fmt.Errorf("unknown transition target %q", target)
}
