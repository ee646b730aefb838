package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openarchive/reviewflow/internal/engine"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// the same repository code serves auto-commit access and transactions.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlRepos bundles the repositories over one Querier.
type sqlRepos struct {
	q Querier
}

func (r *sqlRepos) WorkflowItems() engine.WorkflowItemRepo { return &WorkflowItemRepository{q: r.q} }
func (r *sqlRepos) PoolTasks() engine.PoolTaskRepo         { return &PoolTaskRepository{q: r.q} }
func (r *sqlRepos) ClaimedTasks() engine.ClaimedTaskRepo   { return &ClaimedTaskRepository{q: r.q} }
func (r *sqlRepos) InProgress() engine.InProgressRepo      { return &InProgressRepository{q: r.q} }
func (r *sqlRepos) Roles() engine.RoleRepo                 { return &RoleRepository{q: r.q} }
func (r *sqlRepos) Events() engine.EventRepo               { return &WorkflowEventRepository{q: r.q} }

// SQLStore implements engine.Store over database/sql. One transaction per
// WithTx call is the engine's only commit boundary: everything written
// inside fn becomes visible together or not at all.
type SQLStore struct {
	sqlRepos
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{sqlRepos: sqlRepos{q: db}, db: db}
}

func (s *SQLStore) WithTx(ctx context.Context, fn func(repos engine.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&sqlRepos{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// insertReturningID runs an insert and reports the generated id, using
// RETURNING where the dialect supports it and LastInsertId elsewhere.
func insertReturningID(ctx context.Context, q Querier, base string, vals ...any) (int64, error) {
	if supportsReturning() {
		var id int64
		err := q.QueryRowContext(ctx, base+" RETURNING id", vals...).Scan(&id)
		return id, err
	}
	res, err := q.ExecContext(ctx, base, vals...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
