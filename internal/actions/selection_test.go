package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openarchive/reviewflow/internal/definition"
	"github.com/openarchive/reviewflow/internal/domain"
)

func TestRoleMembersSelectionDelegatesToResolver(t *testing.T) {
	s := NewRoleMembersSelection(func(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition) ([]string, error) {
		return []string{"alice", "bob"}, nil
	})

	principals, err := s.EligiblePrincipals(context.Background(), testItem(), &definition.StepDefinition{ID: "review"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, principals)
}

func TestAssignedReviewerSelectionParsesMetadataField(t *testing.T) {
	store := &fakeItemStore{metadata: map[string]string{
		"workflow.reviewers": "alice, bob ,,carol",
	}}
	s := NewAssignedReviewerSelection(store, "workflow.reviewers")

	principals, err := s.EligiblePrincipals(context.Background(), testItem(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, principals)

	ok, err := s.IsAuthorized(context.Background(), "bob", testItem())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsAuthorized(context.Background(), "mallory", testItem())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssignedReviewerSelectionEmptyField(t *testing.T) {
	s := NewAssignedReviewerSelection(&fakeItemStore{metadata: map[string]string{}}, "workflow.reviewers")

	principals, err := s.EligiblePrincipals(context.Background(), testItem(), nil)
	require.NoError(t, err)
	assert.Empty(t, principals)
}

func TestRegistryLookups(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterProcessing(NewReviewAction())
	reg.RegisterSelection(NewRoleMembersSelection(nil))

	assert.True(t, reg.HasProcessingAction("review"))
	assert.True(t, reg.HasSelectionAction("role-members"))
	assert.False(t, reg.HasProcessingAction("notarize"))

	a, err := reg.Processing("review")
	require.NoError(t, err)
	assert.Equal(t, "review", a.Name())

	_, err = reg.Processing("notarize")
	require.Error(t, err)

	_, err = reg.Selection("hand-picked")
	require.Error(t, err)
}
