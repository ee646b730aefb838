package engine

import (
	"context"
	"sort"

	"github.com/openarchive/reviewflow/internal/definition"
	"github.com/openarchive/reviewflow/internal/domain"
)

// RoleResolver maps a step's configured role id to the concrete set of
// principals that may work the step for a given submission. Per-item role
// pins are consulted before the collection-wide configuration.
type RoleResolver struct {
	groups GroupDirectory
}

func NewRoleResolver(groups GroupDirectory) *RoleResolver {
	return &RoleResolver{groups: groups}
}

// EligiblePrincipals resolves the eligible set for (step, item), reading
// role configuration through repos so callers inside a transaction see
// their own consistency scope. Returns a RoleResolutionError when nothing
// is configured and the step is not automatic.
func (r *RoleResolver) EligiblePrincipals(ctx context.Context, repos Repos, step *definition.StepDefinition, item *domain.WorkflowItem) ([]string, error) {
	itemRoles, err := repos.Roles().FindItemRoles(ctx, item.ID, step.RoleID)
	if err != nil {
		return nil, err
	}
	if len(itemRoles) > 0 {
		return r.flattenItemRoles(ctx, itemRoles)
	}

	role, err := repos.Roles().FindCollectionRole(ctx, item.CollectionID, step.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		if step.Automatic {
			return nil, nil
		}
		return nil, &RoleResolutionError{CollectionID: item.CollectionID, RoleID: step.RoleID}
	}
	return r.flattenGroup(ctx, role.GroupID)
}

func (r *RoleResolver) flattenItemRoles(ctx context.Context, roles []domain.WorkflowItemRole) ([]string, error) {
	set := make(map[string]bool)
	for _, role := range roles {
		if role.PrincipalID != "" {
			set[role.PrincipalID] = true
			continue
		}
		members, err := r.flattenGroup(ctx, role.GroupID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			set[m] = true
		}
	}
	return sortedSet(set), nil
}

// flattenGroup walks nested group membership breadth-first. The visited
// set guards against cyclic group graphs.
func (r *RoleResolver) flattenGroup(ctx context.Context, groupID string) ([]string, error) {
	set := make(map[string]bool)
	visited := map[string]bool{groupID: true}
	queue := []string{groupID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		principals, nested, err := r.groups.Members(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, p := range principals {
			set[p] = true
		}
		for _, g := range nested {
			if !visited[g] {
				visited[g] = true
				queue = append(queue, g)
			}
		}
	}
	return sortedSet(set), nil
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// StaticGroupDirectory is a fixed in-memory group graph, used by tests and
// by deployments that configure membership at startup.
type StaticGroupDirectory struct {
	Principals map[string][]string // groupID -> direct principal members
	Nested     map[string][]string // groupID -> direct nested groups
}

func (d *StaticGroupDirectory) Members(ctx context.Context, groupID string) ([]string, []string, error) {
	return d.Principals[groupID], d.Nested[groupID], nil
}
