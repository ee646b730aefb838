package sqllite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openarchive/reviewflow/internal/domain"
	"github.com/openarchive/reviewflow/internal/engine"
	"github.com/openarchive/reviewflow/internal/repository"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
	CREATE TABLE workflow_item (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT NOT NULL UNIQUE,
		item_id TEXT NOT NULL,
		collection_id TEXT NOT NULL,
		workflow_name TEXT NOT NULL,
		step_id TEXT NOT NULL,
		multiple_files BOOLEAN NOT NULL DEFAULT 0,
		multiple_titles BOOLEAN NOT NULL DEFAULT 0,
		created TIMESTAMP NOT NULL,
		modified TIMESTAMP NOT NULL
	);
	CREATE TABLE pool_task (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workflow_item_id INTEGER NOT NULL,
		step_id TEXT NOT NULL,
		action_id TEXT NOT NULL,
		principal_id TEXT NOT NULL,
		created TIMESTAMP NOT NULL,
		UNIQUE (workflow_item_id, step_id, principal_id)
	);
	CREATE TABLE claimed_task (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workflow_item_id INTEGER NOT NULL,
		step_id TEXT NOT NULL,
		action_id TEXT NOT NULL,
		principal_id TEXT NOT NULL,
		claimed TIMESTAMP NOT NULL,
		UNIQUE (workflow_item_id, step_id, principal_id)
	);
	CREATE TABLE in_progress_user (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workflow_item_id INTEGER NOT NULL,
		step_id TEXT NOT NULL,
		principal_id TEXT NOT NULL,
		finished BOOLEAN NOT NULL DEFAULT 0,
		UNIQUE (workflow_item_id, step_id, principal_id)
	);
	CREATE TABLE collection_role (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_id TEXT NOT NULL,
		role_id TEXT NOT NULL,
		group_id TEXT NOT NULL,
		UNIQUE (collection_id, role_id)
	);
	CREATE TABLE workflow_item_role (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workflow_item_id INTEGER NOT NULL,
		role_id TEXT NOT NULL,
		group_id TEXT NOT NULL DEFAULT '',
		principal_id TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE workflow_event (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workflow_item_id INTEGER NOT NULL,
		principal_id TEXT NOT NULL,
		type TEXT NOT NULL,
		step_id TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		date_time TIMESTAMP NOT NULL
	);
`

func setupStore(t *testing.T) *repository.SQLStore {
	t.Helper()
	t.Setenv("RFLOW_DATABASE_TYPE", "SQLLITE")

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "reviewflow-test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return repository.NewSQLStore(db)
}

func saveItem(t *testing.T, store *repository.SQLStore, externalID string) *domain.WorkflowItem {
	t.Helper()
	now := time.Now().UTC()
	item := &domain.WorkflowItem{
		ExternalID:   externalID,
		ItemID:       "item-1",
		CollectionID: "col-1",
		WorkflowName: "collection-review",
		StepID:       "review",
		Created:      now,
		Modified:     now,
	}
	id, err := store.WorkflowItems().Save(context.Background(), item)
	if err != nil {
		t.Fatalf("Failed to save workflow item: %v", err)
	}
	item.ID = id
	return item
}

func TestWorkflowItemRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	item := saveItem(t, store, "ext-1")

	found, err := store.WorkflowItems().FindByID(ctx, item.ID)
	if err != nil || found == nil {
		t.Fatalf("FindByID: %v %v", found, err)
	}
	if found.ExternalID != "ext-1" || found.StepID != "review" {
		t.Fatalf("unexpected item %+v", found)
	}

	byExt, err := store.WorkflowItems().FindByExternalID(ctx, "ext-1")
	if err != nil || byExt == nil || byExt.ID != item.ID {
		t.Fatalf("FindByExternalID: %v %v", byExt, err)
	}

	stamp := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if err := store.WorkflowItems().UpdateStep(ctx, item.ID, "edit", stamp); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	found, _ = store.WorkflowItems().FindByID(ctx, item.ID)
	if found.StepID != "edit" {
		t.Fatalf("expected step edit, got %s", found.StepID)
	}
	if !found.Modified.UTC().Equal(stamp) {
		t.Fatalf("expected modified %v, got %v", stamp, found.Modified)
	}

	if err := store.WorkflowItems().Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	found, err = store.WorkflowItems().FindByID(ctx, item.ID)
	if err != nil || found != nil {
		t.Fatalf("expected the item gone, got %v %v", found, err)
	}
}

func TestPoolTaskCompareAndSwap(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	item := saveItem(t, store, "ext-1")

	for _, principal := range []string{"alice", "bob"} {
		_, err := store.PoolTasks().Create(ctx, &domain.PoolTask{
			WorkflowItemID: item.ID, StepID: "review", ActionID: "review",
			PrincipalID: principal, Created: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Create pool task: %v", err)
		}
	}

	n, err := store.PoolTasks().DeleteAll(ctx, item.ID, "review")
	if err != nil || n != 2 {
		t.Fatalf("expected two rows removed, got %d %v", n, err)
	}
	// The losing side of the race sees zero rows affected.
	n, err = store.PoolTasks().DeleteAll(ctx, item.ID, "review")
	if err != nil || n != 0 {
		t.Fatalf("expected zero rows on repeat delete, got %d %v", n, err)
	}
}

func TestClaimedTaskUniquePerPrincipal(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	item := saveItem(t, store, "ext-1")

	task := &domain.ClaimedTask{
		WorkflowItemID: item.ID, StepID: "review", ActionID: "review",
		PrincipalID: "alice", Claimed: time.Now().UTC(),
	}
	if _, err := store.ClaimedTasks().Create(ctx, task); err != nil {
		t.Fatalf("Create claimed task: %v", err)
	}
	// The unique constraint backs the single-claim invariant at the
	// storage level.
	if _, err := store.ClaimedTasks().Create(ctx, &domain.ClaimedTask{
		WorkflowItemID: item.ID, StepID: "review", ActionID: "review",
		PrincipalID: "alice", Claimed: time.Now().UTC(),
	}); err == nil {
		t.Fatalf("expected a duplicate claim to violate the unique constraint")
	}

	found, err := store.ClaimedTasks().FindByItemStepPrincipal(ctx, item.ID, "review", "alice")
	if err != nil || found == nil {
		t.Fatalf("FindByItemStepPrincipal: %v %v", found, err)
	}
	byPrincipal, err := store.ClaimedTasks().FindByPrincipal(ctx, "alice")
	if err != nil || len(byPrincipal) != 1 {
		t.Fatalf("FindByPrincipal: %v %v", byPrincipal, err)
	}
}

func TestInProgressQuorumBookkeeping(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	item := saveItem(t, store, "ext-1")

	for _, principal := range []string{"alice", "bob"} {
		if _, err := store.InProgress().Save(ctx, &domain.InProgressUser{
			WorkflowItemID: item.ID, StepID: "review", PrincipalID: principal,
		}); err != nil {
			t.Fatalf("Save in-progress: %v", err)
		}
	}
	// Saving the same principal twice is a no-op, not an error.
	if _, err := store.InProgress().Save(ctx, &domain.InProgressUser{
		WorkflowItemID: item.ID, StepID: "review", PrincipalID: "alice",
	}); err != nil {
		t.Fatalf("expected repeat save tolerated, got %v", err)
	}

	if err := store.InProgress().MarkFinished(ctx, item.ID, "review", "alice"); err != nil {
		t.Fatalf("MarkFinished: %v", err)
	}
	recs, err := store.InProgress().FindByItemStep(ctx, item.ID, "review")
	if err != nil || len(recs) != 2 {
		t.Fatalf("FindByItemStep: %v %v", recs, err)
	}
	var finished int
	for _, rec := range recs {
		if rec.Finished {
			finished++
		}
	}
	if finished != 1 {
		t.Fatalf("expected one finished record, got %d", finished)
	}

	if err := store.InProgress().DeleteAll(ctx, item.ID, "review"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	recs, _ = store.InProgress().FindByItemStep(ctx, item.ID, "review")
	if len(recs) != 0 {
		t.Fatalf("expected all records gone, got %d", len(recs))
	}
}

func TestRoleConfiguration(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	item := saveItem(t, store, "ext-1")

	if _, err := store.Roles().SaveCollectionRole(ctx, &domain.CollectionRole{
		CollectionID: "col-1", RoleID: "reviewer", GroupID: "reviewers-grp",
	}); err != nil {
		t.Fatalf("SaveCollectionRole: %v", err)
	}
	role, err := store.Roles().FindCollectionRole(ctx, "col-1", "reviewer")
	if err != nil || role == nil || role.GroupID != "reviewers-grp" {
		t.Fatalf("FindCollectionRole: %v %v", role, err)
	}
	missing, err := store.Roles().FindCollectionRole(ctx, "col-1", "editor")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for an unconfigured role, got %v %v", missing, err)
	}

	pinID, err := store.Roles().SaveItemRole(ctx, &domain.WorkflowItemRole{
		WorkflowItemID: item.ID, RoleID: "reviewer", PrincipalID: "eve",
	})
	if err != nil {
		t.Fatalf("SaveItemRole: %v", err)
	}
	pins, err := store.Roles().FindItemRoles(ctx, item.ID, "reviewer")
	if err != nil || len(pins) != 1 || pins[0].PrincipalID != "eve" {
		t.Fatalf("FindItemRoles: %v %v", pins, err)
	}
	if err := store.Roles().DeleteItemRole(ctx, pinID); err != nil {
		t.Fatalf("DeleteItemRole: %v", err)
	}
	pins, _ = store.Roles().FindItemRoles(ctx, item.ID, "reviewer")
	if len(pins) != 0 {
		t.Fatalf("expected the pin removed")
	}
}

func TestEventsOrderedByInsertion(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	item := saveItem(t, store, "ext-1")

	for _, typ := range []string{domain.EventSubmit, domain.EventClaim, domain.EventTransit} {
		if _, err := store.Events().Save(ctx, &domain.WorkflowEvent{
			WorkflowItemID: item.ID, PrincipalID: "alice", Type: typ,
			StepID: "review", DateTime: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("Save event: %v", err)
		}
	}

	events, err := store.Events().FindAllByItem(ctx, item.ID)
	if err != nil || len(events) != 3 {
		t.Fatalf("FindAllByItem: %v %v", events, err)
	}
	want := []string{domain.EventSubmit, domain.EventClaim, domain.EventTransit}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Fatalf("expected order %v, got %+v", want, events)
		}
	}
}

func TestWithTxRollsBackAllWrites(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(repos engine.Repos) error {
		now := time.Now().UTC()
		id, err := repos.WorkflowItems().Save(ctx, &domain.WorkflowItem{
			ExternalID: "ext-tx", ItemID: "item-1", CollectionID: "col-1",
			WorkflowName: "collection-review", StepID: "review", Created: now, Modified: now,
		})
		if err != nil {
			return err
		}
		if _, err := repos.PoolTasks().Create(ctx, &domain.PoolTask{
			WorkflowItemID: id, StepID: "review", ActionID: "review",
			PrincipalID: "alice", Created: now,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the fn error back, got %v", err)
	}

	item, err := store.WorkflowItems().FindByExternalID(ctx, "ext-tx")
	if err != nil || item != nil {
		t.Fatalf("expected the item rolled back, got %v %v", item, err)
	}
	tasks, err := store.PoolTasks().FindByPrincipal(ctx, "alice")
	if err != nil || len(tasks) != 0 {
		t.Fatalf("expected the pool task rolled back, got %v %v", tasks, err)
	}
}
