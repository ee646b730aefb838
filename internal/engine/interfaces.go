package engine

import (
	"context"
	"time"

	"github.com/openarchive/reviewflow/internal/domain"
)

// WorkflowItemRepo defines persistence for workflow items.
type WorkflowItemRepo interface {
	Save(ctx context.Context, item *domain.WorkflowItem) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.WorkflowItem, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.WorkflowItem, error)
	UpdateStep(ctx context.Context, id int64, stepID string, modified time.Time) error
	Delete(ctx context.Context, id int64) error
}

// PoolTaskRepo defines persistence for unclaimed tasks. The delete methods
// report rows affected so claiming can compare-and-swap: deleting zero
// rows means another principal got there first.
type PoolTaskRepo interface {
	Create(ctx context.Context, task *domain.PoolTask) (int64, error)
	FindByItemStep(ctx context.Context, workflowItemID int64, stepID string) ([]domain.PoolTask, error)
	FindByPrincipal(ctx context.Context, principalID string) ([]domain.PoolTask, error)
	DeleteForPrincipal(ctx context.Context, workflowItemID int64, stepID, principalID string) (int64, error)
	DeleteAll(ctx context.Context, workflowItemID int64, stepID string) (int64, error)
}

// ClaimedTaskRepo defines persistence for claimed tasks. Delete reports
// rows affected so releases can detect a claim that a competing
// transition already removed.
type ClaimedTaskRepo interface {
	Create(ctx context.Context, task *domain.ClaimedTask) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.ClaimedTask, error)
	FindByItemStep(ctx context.Context, workflowItemID int64, stepID string) ([]domain.ClaimedTask, error)
	FindByItemStepPrincipal(ctx context.Context, workflowItemID int64, stepID, principalID string) (*domain.ClaimedTask, error)
	FindByPrincipal(ctx context.Context, principalID string) ([]domain.ClaimedTask, error)
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteAll(ctx context.Context, workflowItemID int64, stepID string) (int64, error)
}

// InProgressRepo defines persistence for multi-approver bookkeeping.
type InProgressRepo interface {
	Save(ctx context.Context, rec *domain.InProgressUser) (int64, error)
	MarkFinished(ctx context.Context, workflowItemID int64, stepID, principalID string) error
	FindByItemStep(ctx context.Context, workflowItemID int64, stepID string) ([]domain.InProgressUser, error)
	DeleteAll(ctx context.Context, workflowItemID int64, stepID string) error
}

// RoleRepo defines persistence for the static role configuration. Lookups
// return nil (no error) when nothing is configured.
type RoleRepo interface {
	FindCollectionRole(ctx context.Context, collectionID, roleID string) (*domain.CollectionRole, error)
	SaveCollectionRole(ctx context.Context, role *domain.CollectionRole) (int64, error)
	FindItemRoles(ctx context.Context, workflowItemID int64, roleID string) ([]domain.WorkflowItemRole, error)
	SaveItemRole(ctx context.Context, role *domain.WorkflowItemRole) (int64, error)
	DeleteItemRole(ctx context.Context, id int64) error
}

// EventRepo defines persistence for the audit trail.
type EventRepo interface {
	Save(ctx context.Context, event *domain.WorkflowEvent) (int64, error)
	FindAllByItem(ctx context.Context, workflowItemID int64) ([]domain.WorkflowEvent, error)
}

// Repos bundles the entity repositories bound to one consistency scope:
// either auto-commit access or a single transaction.
type Repos interface {
	WorkflowItems() WorkflowItemRepo
	PoolTasks() PoolTaskRepo
	ClaimedTasks() ClaimedTaskRepo
	InProgress() InProgressRepo
	Roles() RoleRepo
	Events() EventRepo
}

// Store is the persistence collaborator. WithTx runs fn against
// transaction-bound repositories and commits only if fn returns nil; any
// error rolls back every write made inside fn. The Store's transaction
// discipline is the engine's sole mutual-exclusion mechanism, so the
// engine stays correct across multiple server instances.
type Store interface {
	Repos
	WithTx(ctx context.Context, fn func(repos Repos) error) error
}

// ItemRepository is the slice of the platform's content store the engine
// needs: terminal-state handoff plus the flags consulted on submission.
type ItemRepository interface {
	Archive(ctx context.Context, itemID string) error
	ReturnToWorkspace(ctx context.Context, itemID string, reason string) error
	HasUploadedFiles(ctx context.Context, itemID string) (bool, error)
}

// NotificationSink receives fire-and-forget task notifications. Failures
// are logged by the caller and never block or fail a transition.
type NotificationSink interface {
	Notify(ctx context.Context, principalIDs []string, item *domain.WorkflowItem, stepID string) error
}

// GroupDirectory exposes group membership: direct principals plus nested
// groups, which the role resolver flattens.
type GroupDirectory interface {
	Members(ctx context.Context, groupID string) (principals []string, groups []string, err error)
}
