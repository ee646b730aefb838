package domain

// CollectionRole binds a step's abstract role id to a concrete principal
// group for one collection. Read-only to the engine; maintained by
// collection administration.
type CollectionRole struct {
	ID           int64
	CollectionID string
	RoleID       string
	GroupID      string
}

// WorkflowItemRole pins a role for a single submission, overriding the
// CollectionRole. Either GroupID or PrincipalID is set.
type WorkflowItemRole struct {
	ID             int64
	WorkflowItemID int64
	RoleID         string
	GroupID        string
	PrincipalID    string
}
