package definition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	selection  map[string]bool
	processing map[string]bool
}

func (c *fakeCatalog) HasSelectionAction(id string) bool  { return c.selection[id] }
func (c *fakeCatalog) HasProcessingAction(id string) bool { return c.processing[id] }

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		selection:  map[string]bool{"role-members": true},
		processing: map[string]bool{"review": true, "edit-metadata": true},
	}
}

func TestValidateAcceptsWellFormedDefinition(t *testing.T) {
	def, err := Parse([]byte(reviewWorkflowYAML))
	require.NoError(t, err)

	problems := NewValidator(testCatalog()).Validate(&def)
	assert.Empty(t, problems)
}

func TestValidateDuplicateStepIDs(t *testing.T) {
	def, err := Parse([]byte(`
name: wf
steps:
  - id: review
    role: r
    selection: role-members
    actions: [review]
    outcomes:
      approve: archive
  - id: review
    role: r
    selection: role-members
    actions: [review]
    outcomes:
      approve: archive
`))
	require.NoError(t, err)

	problems := NewValidator(testCatalog()).Validate(&def)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "duplicate step id")
}

func TestValidateRequiresRoleAndSelectionForManualSteps(t *testing.T) {
	def, err := Parse([]byte(`
name: wf
steps:
  - id: s1
    actions: [review]
    outcomes:
      approve: archive
`))
	require.NoError(t, err)

	problems := NewValidator(testCatalog()).Validate(&def)
	assert.Len(t, problems, 2)
}

func TestValidateAutomaticStepNeedsNoRole(t *testing.T) {
	def, err := Parse([]byte(`
name: wf
steps:
  - id: s1
    automatic: true
    actions: [review]
    outcomes:
      approve: archive
`))
	require.NoError(t, err)

	problems := NewValidator(testCatalog()).Validate(&def)
	assert.Empty(t, problems)
}

func TestValidateUnknownActions(t *testing.T) {
	def, err := Parse([]byte(`
name: wf
steps:
  - id: s1
    role: r
    selection: hand-picked
    actions: [review, notarize]
    outcomes:
      approve: archive
`))
	require.NoError(t, err)

	problems := NewValidator(testCatalog()).Validate(&def)
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0], "unknown selection action")
	assert.Contains(t, problems[1], "unknown processing action")
}

func TestValidateAutomaticMultiApproverConflict(t *testing.T) {
	def, err := Parse([]byte(`
name: wf
steps:
  - id: s1
    automatic: true
    actions: [review]
    quorum: all
    outcomes:
      approve: archive
`))
	require.NoError(t, err)

	problems := NewValidator(testCatalog()).Validate(&def)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "multiple approvers")
}

func TestValidateDanglingAndForwardReturnTargets(t *testing.T) {
	def, err := Parse([]byte(`
name: wf
steps:
  - id: s1
    role: r
    selection: role-members
    actions: [review]
    outcomes:
      approve: step:nowhere
      back: return:s2
  - id: s2
    role: r
    selection: role-members
    actions: [review]
    outcomes:
      approve: archive
`))
	require.NoError(t, err)

	problems := NewValidator(testCatalog()).Validate(&def)
	require.Len(t, problems, 2)
	joined := strings.Join(problems, "\n")
	assert.Contains(t, joined, "dangling target")
	assert.Contains(t, joined, "not an earlier step")
}

func TestValidateAllNamesTheWorkflow(t *testing.T) {
	def, err := Parse([]byte(`
name: broken
steps:
  - id: s1
    role: r
    selection: role-members
    actions: [review]
    outcomes: {}
`))
	require.NoError(t, err)

	err = NewValidator(testCatalog()).ValidateAll([]WorkflowDefinition{def})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "no outcomes configured")
}
