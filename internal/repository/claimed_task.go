package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openarchive/reviewflow/internal/domain"
)

// ClaimedTaskRepository persists exclusive task ownership. The unique key
// on (workflow_item_id, step_id, principal_id) backs the at-most-one-claim
// invariant at the storage level.
type ClaimedTaskRepository struct {
	q Querier
}

const claimedTaskColumns = ` id, workflow_item_id, step_id, action_id, principal_id, claimed `

func (r *ClaimedTaskRepository) Create(ctx context.Context, task *domain.ClaimedTask) (int64, error) {
	vals := []any{task.WorkflowItemID, task.StepID, task.ActionID, task.PrincipalID, task.Claimed.UTC()}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO claimed_task (
		workflow_item_id, step_id, action_id, principal_id, claimed
	) VALUES (` + strings.Join(pps, ", ") + `)`

	id, err := insertReturningID(ctx, r.q, base, vals...)
	if err != nil {
		return 0, err
	}
	task.ID = id
	return id, nil
}

func (r *ClaimedTaskRepository) FindByID(ctx context.Context, id int64) (*domain.ClaimedTask, error) {
	query := `
		SELECT ` + claimedTaskColumns + `
		FROM claimed_task WHERE id = ` + placeholder(1) + `
	`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

func (r *ClaimedTaskRepository) FindByItemStep(ctx context.Context, workflowItemID int64, stepID string) ([]domain.ClaimedTask, error) {
	query := `
		SELECT ` + claimedTaskColumns + `
		FROM claimed_task
		WHERE workflow_item_id = ` + placeholder(1) + ` AND step_id = ` + placeholder(2) + `
		ORDER BY id
	`
	return r.scanAll(ctx, query, workflowItemID, stepID)
}

func (r *ClaimedTaskRepository) FindByItemStepPrincipal(ctx context.Context, workflowItemID int64, stepID, principalID string) (*domain.ClaimedTask, error) {
	query := `
		SELECT ` + claimedTaskColumns + `
		FROM claimed_task
		WHERE workflow_item_id = ` + placeholder(1) + ` AND step_id = ` + placeholder(2) + ` AND principal_id = ` + placeholder(3) + `
	`
	return r.scanOne(r.q.QueryRowContext(ctx, query, workflowItemID, stepID, principalID))
}

func (r *ClaimedTaskRepository) FindByPrincipal(ctx context.Context, principalID string) ([]domain.ClaimedTask, error) {
	query := `
		SELECT ` + claimedTaskColumns + `
		FROM claimed_task
		WHERE principal_id = ` + placeholder(1) + `
		ORDER BY claimed
	`
	return r.scanAll(ctx, query, principalID)
}

func (r *ClaimedTaskRepository) Delete(ctx context.Context, id int64) (int64, error) {
	query := `DELETE FROM claimed_task WHERE id = ` + placeholder(1)
	res, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ClaimedTaskRepository) DeleteAll(ctx context.Context, workflowItemID int64, stepID string) (int64, error) {
	query := `
		DELETE FROM claimed_task
		WHERE workflow_item_id = ` + placeholder(1) + ` AND step_id = ` + placeholder(2) + `
	`
	res, err := r.q.ExecContext(ctx, query, workflowItemID, stepID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ClaimedTaskRepository) scanOne(row *sql.Row) (*domain.ClaimedTask, error) {
	var task domain.ClaimedTask
	err := row.Scan(
		&task.ID,
		&task.WorkflowItemID,
		&task.StepID,
		&task.ActionID,
		&task.PrincipalID,
		&task.Claimed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *ClaimedTaskRepository) scanAll(ctx context.Context, query string, args ...any) ([]domain.ClaimedTask, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.ClaimedTask
	for rows.Next() {
		var task domain.ClaimedTask
		if err := rows.Scan(
			&task.ID,
			&task.WorkflowItemID,
			&task.StepID,
			&task.ActionID,
			&task.PrincipalID,
			&task.Claimed,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
