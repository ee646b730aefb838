package domain

import "time"

// WorkflowItem is the runtime record of one submission moving through a
// workflow. The underlying content item stays owned by the item repository
// and is referenced by ItemID only; when the item is archived or rejected
// the WorkflowItem row is deleted and ownership moves on.
type WorkflowItem struct {
	ID             int64
	ExternalID     string
	ItemID         string
	CollectionID   string
	WorkflowName   string
	StepID         string
	MultipleFiles  bool
	MultipleTitles bool
	Created        time.Time
	Modified       time.Time
}
