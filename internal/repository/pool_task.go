package repository

import (
	"context"
	"strings"

	"github.com/openarchive/reviewflow/internal/domain"
)

// PoolTaskRepository persists unclaimed task availability. The delete
// methods report rows affected; the task pool manager's claim relies on
// that for its compare-and-swap.
type PoolTaskRepository struct {
	q Querier
}

const poolTaskColumns = ` id, workflow_item_id, step_id, action_id, principal_id, created `

func (r *PoolTaskRepository) Create(ctx context.Context, task *domain.PoolTask) (int64, error) {
	vals := []any{task.WorkflowItemID, task.StepID, task.ActionID, task.PrincipalID, task.Created.UTC()}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO pool_task (
		workflow_item_id, step_id, action_id, principal_id, created
	) VALUES (` + strings.Join(pps, ", ") + `)`

	id, err := insertReturningID(ctx, r.q, base, vals...)
	if err != nil {
		return 0, err
	}
	task.ID = id
	return id, nil
}

func (r *PoolTaskRepository) FindByItemStep(ctx context.Context, workflowItemID int64, stepID string) ([]domain.PoolTask, error) {
	query := `
		SELECT ` + poolTaskColumns + `
		FROM pool_task
		WHERE workflow_item_id = ` + placeholder(1) + ` AND step_id = ` + placeholder(2) + `
		ORDER BY id
	`
	return r.scanAll(ctx, query, workflowItemID, stepID)
}

func (r *PoolTaskRepository) FindByPrincipal(ctx context.Context, principalID string) ([]domain.PoolTask, error) {
	query := `
		SELECT ` + poolTaskColumns + `
		FROM pool_task
		WHERE principal_id = ` + placeholder(1) + `
		ORDER BY created
	`
	return r.scanAll(ctx, query, principalID)
}

func (r *PoolTaskRepository) DeleteForPrincipal(ctx context.Context, workflowItemID int64, stepID, principalID string) (int64, error) {
	query := `
		DELETE FROM pool_task
		WHERE workflow_item_id = ` + placeholder(1) + ` AND step_id = ` + placeholder(2) + ` AND principal_id = ` + placeholder(3) + `
	`
	res, err := r.q.ExecContext(ctx, query, workflowItemID, stepID, principalID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PoolTaskRepository) DeleteAll(ctx context.Context, workflowItemID int64, stepID string) (int64, error) {
	query := `
		DELETE FROM pool_task
		WHERE workflow_item_id = ` + placeholder(1) + ` AND step_id = ` + placeholder(2) + `
	`
	res, err := r.q.ExecContext(ctx, query, workflowItemID, stepID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PoolTaskRepository) scanAll(ctx context.Context, query string, args ...any) ([]domain.PoolTask, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.PoolTask
	for rows.Next() {
		var task domain.PoolTask
		if err := rows.Scan(
			&task.ID,
			&task.WorkflowItemID,
			&task.StepID,
			&task.ActionID,
			&task.PrincipalID,
			&task.Created,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
