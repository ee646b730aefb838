// Package inmem is a map-backed implementation of the engine's Store,
// used by unit tests and by ephemeral deployments. Transactions are
// serialized by a mutex and roll back by restoring a snapshot, which gives
// the same observable semantics as the SQL store: a failed transaction
// leaves no trace, and racing claims resolve to exactly one winner.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openarchive/reviewflow/internal/domain"
	"github.com/openarchive/reviewflow/internal/engine"
)

type state struct {
	nextID          int64
	items           map[int64]domain.WorkflowItem
	pool            map[int64]domain.PoolTask
	claimed         map[int64]domain.ClaimedTask
	progress        map[int64]domain.InProgressUser
	collectionRoles map[int64]domain.CollectionRole
	itemRoles       map[int64]domain.WorkflowItemRole
	events          map[int64]domain.WorkflowEvent
}

func newState() state {
	return state{
		items:           make(map[int64]domain.WorkflowItem),
		pool:            make(map[int64]domain.PoolTask),
		claimed:         make(map[int64]domain.ClaimedTask),
		progress:        make(map[int64]domain.InProgressUser),
		collectionRoles: make(map[int64]domain.CollectionRole),
		itemRoles:       make(map[int64]domain.WorkflowItemRole),
		events:          make(map[int64]domain.WorkflowEvent),
	}
}

func (s state) clone() state {
	out := state{nextID: s.nextID}
	out.items = cloneMap(s.items)
	out.pool = cloneMap(s.pool)
	out.claimed = cloneMap(s.claimed)
	out.progress = cloneMap(s.progress)
	out.collectionRoles = cloneMap(s.collectionRoles)
	out.itemRoles = cloneMap(s.itemRoles)
	out.events = cloneMap(s.events)
	return out
}

func cloneMap[V any](m map[int64]V) map[int64]V {
	out := make(map[int64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store implements engine.Store in memory. txMu serializes transactions,
// which is what makes racing claims resolve to one winner; mu guards the
// state maps for individual operations.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	s    state
}

func New() *Store {
	return &Store{s: newState()}
}

func (st *Store) WorkflowItems() engine.WorkflowItemRepo { return &itemRepo{view{st}} }
func (st *Store) PoolTasks() engine.PoolTaskRepo         { return &poolRepo{view{st}} }
func (st *Store) ClaimedTasks() engine.ClaimedTaskRepo   { return &claimedRepo{view{st}} }
func (st *Store) InProgress() engine.InProgressRepo      { return &progressRepo{view{st}} }
func (st *Store) Roles() engine.RoleRepo                 { return &roleRepo{view{st}} }
func (st *Store) Events() engine.EventRepo               { return &eventRepo{view{st}} }

// WithTx runs fn with transactions serialized. On error the
// pre-transaction snapshot is restored, so a failed transaction leaves no
// trace, matching the SQL store's rollback.
func (st *Store) WithTx(ctx context.Context, fn func(repos engine.Repos) error) error {
	st.txMu.Lock()
	defer st.txMu.Unlock()

	st.mu.Lock()
	snapshot := st.s.clone()
	st.mu.Unlock()

	if err := fn(st); err != nil {
		st.mu.Lock()
		st.s = snapshot
		st.mu.Unlock()
		return err
	}
	return nil
}

// view is one repo's access to the store; every operation takes the state
// mutex briefly.
type view struct {
	store *Store
}

func (v view) lock() func() {
	v.store.mu.Lock()
	return v.store.mu.Unlock
}

func (v view) nextID() int64 {
	v.store.s.nextID++
	return v.store.s.nextID
}

type itemRepo struct{ view }

func (r *itemRepo) Save(ctx context.Context, item *domain.WorkflowItem) (int64, error) {
	defer r.lock()()
	item.ID = r.nextID()
	r.store.s.items[item.ID] = *item
	return item.ID, nil
}

func (r *itemRepo) FindByID(ctx context.Context, id int64) (*domain.WorkflowItem, error) {
	defer r.lock()()
	if item, ok := r.store.s.items[id]; ok {
		return &item, nil
	}
	return nil, nil
}

func (r *itemRepo) FindByExternalID(ctx context.Context, externalID string) (*domain.WorkflowItem, error) {
	defer r.lock()()
	for _, item := range r.store.s.items {
		if item.ExternalID == externalID {
			return &item, nil
		}
	}
	return nil, nil
}

func (r *itemRepo) UpdateStep(ctx context.Context, id int64, stepID string, modified time.Time) error {
	defer r.lock()()
	if item, ok := r.store.s.items[id]; ok {
		item.StepID = stepID
		item.Modified = modified
		r.store.s.items[id] = item
	}
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id int64) error {
	defer r.lock()()
	delete(r.store.s.items, id)
	return nil
}

type poolRepo struct{ view }

func (r *poolRepo) Create(ctx context.Context, task *domain.PoolTask) (int64, error) {
	defer r.lock()()
	task.ID = r.nextID()
	r.store.s.pool[task.ID] = *task
	return task.ID, nil
}

func (r *poolRepo) FindByItemStep(ctx context.Context, workflowItemID int64, stepID string) ([]domain.PoolTask, error) {
	defer r.lock()()
	var tasks []domain.PoolTask
	for _, task := range r.store.s.pool {
		if task.WorkflowItemID == workflowItemID && task.StepID == stepID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *poolRepo) FindByPrincipal(ctx context.Context, principalID string) ([]domain.PoolTask, error) {
	defer r.lock()()
	var tasks []domain.PoolTask
	for _, task := range r.store.s.pool {
		if task.PrincipalID == principalID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *poolRepo) DeleteForPrincipal(ctx context.Context, workflowItemID int64, stepID, principalID string) (int64, error) {
	defer r.lock()()
	var removed int64
	for id, task := range r.store.s.pool {
		if task.WorkflowItemID == workflowItemID && task.StepID == stepID && task.PrincipalID == principalID {
			delete(r.store.s.pool, id)
			removed++
		}
	}
	return removed, nil
}

func (r *poolRepo) DeleteAll(ctx context.Context, workflowItemID int64, stepID string) (int64, error) {
	defer r.lock()()
	var removed int64
	for id, task := range r.store.s.pool {
		if task.WorkflowItemID == workflowItemID && task.StepID == stepID {
			delete(r.store.s.pool, id)
			removed++
		}
	}
	return removed, nil
}

type claimedRepo struct{ view }

func (r *claimedRepo) Create(ctx context.Context, task *domain.ClaimedTask) (int64, error) {
	defer r.lock()()
	task.ID = r.nextID()
	r.store.s.claimed[task.ID] = *task
	return task.ID, nil
}

func (r *claimedRepo) FindByID(ctx context.Context, id int64) (*domain.ClaimedTask, error) {
	defer r.lock()()
	if task, ok := r.store.s.claimed[id]; ok {
		return &task, nil
	}
	return nil, nil
}

func (r *claimedRepo) FindByItemStep(ctx context.Context, workflowItemID int64, stepID string) ([]domain.ClaimedTask, error) {
	defer r.lock()()
	var tasks []domain.ClaimedTask
	for _, task := range r.store.s.claimed {
		if task.WorkflowItemID == workflowItemID && task.StepID == stepID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *claimedRepo) FindByItemStepPrincipal(ctx context.Context, workflowItemID int64, stepID, principalID string) (*domain.ClaimedTask, error) {
	defer r.lock()()
	for _, task := range r.store.s.claimed {
		if task.WorkflowItemID == workflowItemID && task.StepID == stepID && task.PrincipalID == principalID {
			return &task, nil
		}
	}
	return nil, nil
}

func (r *claimedRepo) FindByPrincipal(ctx context.Context, principalID string) ([]domain.ClaimedTask, error) {
	defer r.lock()()
	var tasks []domain.ClaimedTask
	for _, task := range r.store.s.claimed {
		if task.PrincipalID == principalID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *claimedRepo) Delete(ctx context.Context, id int64) (int64, error) {
	defer r.lock()()
	if _, ok := r.store.s.claimed[id]; !ok {
		return 0, nil
	}
	delete(r.store.s.claimed, id)
	return 1, nil
}

func (r *claimedRepo) DeleteAll(ctx context.Context, workflowItemID int64, stepID string) (int64, error) {
	defer r.lock()()
	var removed int64
	for id, task := range r.store.s.claimed {
		if task.WorkflowItemID == workflowItemID && task.StepID == stepID {
			delete(r.store.s.claimed, id)
			removed++
		}
	}
	return removed, nil
}

type progressRepo struct{ view }

func (r *progressRepo) Save(ctx context.Context, rec *domain.InProgressUser) (int64, error) {
	defer r.lock()()
	for _, existing := range r.store.s.progress {
		if existing.WorkflowItemID == rec.WorkflowItemID && existing.StepID == rec.StepID && existing.PrincipalID == rec.PrincipalID {
			return existing.ID, nil
		}
	}
	rec.ID = r.nextID()
	r.store.s.progress[rec.ID] = *rec
	return rec.ID, nil
}

func (r *progressRepo) MarkFinished(ctx context.Context, workflowItemID int64, stepID, principalID string) error {
	defer r.lock()()
	for id, rec := range r.store.s.progress {
		if rec.WorkflowItemID == workflowItemID && rec.StepID == stepID && rec.PrincipalID == principalID {
			rec.Finished = true
			r.store.s.progress[id] = rec
		}
	}
	return nil
}

func (r *progressRepo) FindByItemStep(ctx context.Context, workflowItemID int64, stepID string) ([]domain.InProgressUser, error) {
	defer r.lock()()
	var records []domain.InProgressUser
	for _, rec := range r.store.s.progress {
		if rec.WorkflowItemID == workflowItemID && rec.StepID == stepID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *progressRepo) DeleteAll(ctx context.Context, workflowItemID int64, stepID string) error {
	defer r.lock()()
	for id, rec := range r.store.s.progress {
		if rec.WorkflowItemID == workflowItemID && rec.StepID == stepID {
			delete(r.store.s.progress, id)
		}
	}
	return nil
}

type roleRepo struct{ view }

func (r *roleRepo) FindCollectionRole(ctx context.Context, collectionID, roleID string) (*domain.CollectionRole, error) {
	defer r.lock()()
	for _, role := range r.store.s.collectionRoles {
		if role.CollectionID == collectionID && role.RoleID == roleID {
			return &role, nil
		}
	}
	return nil, nil
}

func (r *roleRepo) SaveCollectionRole(ctx context.Context, role *domain.CollectionRole) (int64, error) {
	defer r.lock()()
	role.ID = r.nextID()
	r.store.s.collectionRoles[role.ID] = *role
	return role.ID, nil
}

func (r *roleRepo) FindItemRoles(ctx context.Context, workflowItemID int64, roleID string) ([]domain.WorkflowItemRole, error) {
	defer r.lock()()
	var roles []domain.WorkflowItemRole
	for _, role := range r.store.s.itemRoles {
		if role.WorkflowItemID == workflowItemID && role.RoleID == roleID {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (r *roleRepo) SaveItemRole(ctx context.Context, role *domain.WorkflowItemRole) (int64, error) {
	defer r.lock()()
	role.ID = r.nextID()
	r.store.s.itemRoles[role.ID] = *role
	return role.ID, nil
}

func (r *roleRepo) DeleteItemRole(ctx context.Context, id int64) error {
	defer r.lock()()
	delete(r.store.s.itemRoles, id)
	return nil
}

type eventRepo struct{ view }

func (r *eventRepo) Save(ctx context.Context, event *domain.WorkflowEvent) (int64, error) {
	defer r.lock()()
	event.ID = r.nextID()
	r.store.s.events[event.ID] = *event
	return event.ID, nil
}

func (r *eventRepo) FindAllByItem(ctx context.Context, workflowItemID int64) ([]domain.WorkflowEvent, error) {
	defer r.lock()()
	var events []domain.WorkflowEvent
	for _, event := range r.store.s.events {
		if event.WorkflowItemID == workflowItemID {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}
