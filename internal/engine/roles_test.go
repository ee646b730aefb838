package engine_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/openarchive/reviewflow/internal/definition"
	"github.com/openarchive/reviewflow/internal/domain"
	"github.com/openarchive/reviewflow/internal/engine"
	"github.com/openarchive/reviewflow/internal/storage/inmem"
)

func resolverFixture(t *testing.T, groups *engine.StaticGroupDirectory) (*engine.RoleResolver, *inmem.Store, *domain.WorkflowItem) {
	t.Helper()
	store := inmem.New()
	item := &domain.WorkflowItem{ItemID: "item-1", CollectionID: "col-1", WorkflowName: "wf", StepID: "review"}
	id, err := store.WorkflowItems().Save(context.Background(), item)
	if err != nil {
		t.Fatalf("save item: %v", err)
	}
	item.ID = id
	return engine.NewRoleResolver(groups), store, item
}

func TestResolveCollectionRoleFlattensNestedGroups(t *testing.T) {
	groups := &engine.StaticGroupDirectory{
		Principals: map[string][]string{
			"staff":      {"alice"},
			"librarians": {"bob", "alice"},
			"curators":   {"carol"},
		},
		Nested: map[string][]string{
			"staff": {"librarians", "curators"},
		},
	}
	resolver, store, item := resolverFixture(t, groups)
	if _, err := store.Roles().SaveCollectionRole(context.Background(), &domain.CollectionRole{
		CollectionID: "col-1", RoleID: "reviewer", GroupID: "staff",
	}); err != nil {
		t.Fatalf("save role: %v", err)
	}

	step := &definition.StepDefinition{ID: "review", RoleID: "reviewer"}
	got, err := resolver.EligiblePrincipals(context.Background(), store, step, item)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveSurvivesGroupCycles(t *testing.T) {
	groups := &engine.StaticGroupDirectory{
		Principals: map[string][]string{
			"a": {"alice"},
			"b": {"bob"},
		},
		Nested: map[string][]string{
			"a": {"b"},
			"b": {"a"},
		},
	}
	resolver, store, item := resolverFixture(t, groups)
	if _, err := store.Roles().SaveCollectionRole(context.Background(), &domain.CollectionRole{
		CollectionID: "col-1", RoleID: "reviewer", GroupID: "a",
	}); err != nil {
		t.Fatalf("save role: %v", err)
	}

	step := &definition.StepDefinition{ID: "review", RoleID: "reviewer"}
	got, err := resolver.EligiblePrincipals(context.Background(), store, step, item)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"alice", "bob"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveUnconfiguredRole(t *testing.T) {
	resolver, store, item := resolverFixture(t, &engine.StaticGroupDirectory{})

	step := &definition.StepDefinition{ID: "review", RoleID: "reviewer"}
	_, err := resolver.EligiblePrincipals(context.Background(), store, step, item)

	var roleErr *engine.RoleResolutionError
	if !errors.As(err, &roleErr) {
		t.Fatalf("expected RoleResolutionError, got %v", err)
	}
	if roleErr.CollectionID != "col-1" || roleErr.RoleID != "reviewer" {
		t.Fatalf("unexpected error detail %+v", roleErr)
	}
}

func TestResolveUnconfiguredRoleOnAutomaticStep(t *testing.T) {
	resolver, store, item := resolverFixture(t, &engine.StaticGroupDirectory{})

	step := &definition.StepDefinition{ID: "gate", Automatic: true}
	got, err := resolver.EligiblePrincipals(context.Background(), store, step, item)
	if err != nil {
		t.Fatalf("expected automatic steps to tolerate missing roles, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no principals, got %v", got)
	}
}

func TestResolveItemRolePinsMixGroupsAndPrincipals(t *testing.T) {
	groups := &engine.StaticGroupDirectory{
		Principals: map[string][]string{
			"external-experts": {"frank", "grace"},
			"staff":            {"alice"},
		},
	}
	resolver, store, item := resolverFixture(t, groups)

	// Collection role exists but the pins must take precedence.
	if _, err := store.Roles().SaveCollectionRole(context.Background(), &domain.CollectionRole{
		CollectionID: "col-1", RoleID: "reviewer", GroupID: "staff",
	}); err != nil {
		t.Fatalf("save role: %v", err)
	}
	for _, pin := range []domain.WorkflowItemRole{
		{WorkflowItemID: item.ID, RoleID: "reviewer", GroupID: "external-experts"},
		{WorkflowItemID: item.ID, RoleID: "reviewer", PrincipalID: "eve"},
	} {
		p := pin
		if _, err := store.Roles().SaveItemRole(context.Background(), &p); err != nil {
			t.Fatalf("save pin: %v", err)
		}
	}

	step := &definition.StepDefinition{ID: "review", RoleID: "reviewer"}
	got, err := resolver.EligiblePrincipals(context.Background(), store, step, item)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"eve", "frank", "grace"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
