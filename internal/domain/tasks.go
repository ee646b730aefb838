package domain

import "time"

// PoolTask advertises an unclaimed task to one eligible principal. A step
// opening creates one row per eligible principal; claiming or closing the
// step removes them.
type PoolTask struct {
	ID             int64
	WorkflowItemID int64
	StepID         string
	ActionID       string
	PrincipalID    string
	Created        time.Time
}

// ClaimedTask is the exclusive-ownership record produced by claiming a
// PoolTask. At most one row may exist per (workflow item, step, principal).
type ClaimedTask struct {
	ID             int64
	WorkflowItemID int64
	StepID         string
	ActionID       string
	PrincipalID    string
	Claimed        time.Time
}

// InProgressUser records a principal's share of a step that needs sign-off
// from more than one principal before it transitions.
type InProgressUser struct {
	ID             int64
	WorkflowItemID int64
	StepID         string
	PrincipalID    string
	Finished       bool
}
