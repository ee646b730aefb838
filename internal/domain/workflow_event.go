package domain

import "time"

// Event types recorded against a workflow item.
const (
	EventSubmit   = "SUBMIT"
	EventClaim    = "CLAIM"
	EventUnclaim  = "UNCLAIM"
	EventApproval = "APPROVAL"
	EventTransit  = "TRANSITION"
	EventArchive  = "ARCHIVE"
	EventReject   = "REJECT"
	EventAbort    = "ABORT"
)

// WorkflowEvent is one audit-trail entry for a workflow item: submissions,
// claims, partial approvals, transitions and terminal outcomes.
type WorkflowEvent struct {
	ID             int64
	WorkflowItemID int64
	PrincipalID    string
	Type           string
	StepID         string
	Text           string
	DateTime       time.Time
}
