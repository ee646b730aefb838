package repository

import (
	"context"
	"strings"

	"github.com/openarchive/reviewflow/internal/config"
	"github.com/openarchive/reviewflow/internal/domain"
)

// InProgressRepository persists multi-approver sign-off bookkeeping.
type InProgressRepository struct {
	q Querier
}

// Save inserts the principal's in-progress record, leaving an existing one
// untouched so a re-claim after unclaim keeps the earlier state.
func (r *InProgressRepository) Save(ctx context.Context, rec *domain.InProgressUser) (int64, error) {
	vals := []any{rec.WorkflowItemID, rec.StepID, rec.PrincipalID, rec.Finished}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO in_progress_user (
		workflow_item_id, step_id, principal_id, finished
	) VALUES (` + strings.Join(pps, ", ") + `)`
	if config.GetSystemSettingString(config.DATABASE_TYPE) == config.DATABASE_TYPE_MYSQL {
		base += ` ON DUPLICATE KEY UPDATE principal_id = principal_id`
	} else {
		base += ` ON CONFLICT (workflow_item_id, step_id, principal_id) DO NOTHING`
	}

	res, err := r.q.ExecContext(ctx, base, vals...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		// Postgres reports no LastInsertId; the id is not needed by callers.
		return 0, nil
	}
	rec.ID = id
	return id, nil
}

func (r *InProgressRepository) MarkFinished(ctx context.Context, workflowItemID int64, stepID, principalID string) error {
	query := `
		UPDATE in_progress_user
		SET finished = ` + placeholder(1) + `
		WHERE workflow_item_id = ` + placeholder(2) + ` AND step_id = ` + placeholder(3) + ` AND principal_id = ` + placeholder(4) + `
	`
	_, err := r.q.ExecContext(ctx, query, true, workflowItemID, stepID, principalID)
	return err
}

func (r *InProgressRepository) FindByItemStep(ctx context.Context, workflowItemID int64, stepID string) ([]domain.InProgressUser, error) {
	query := `
		SELECT id, workflow_item_id, step_id, principal_id, finished
		FROM in_progress_user
		WHERE workflow_item_id = ` + placeholder(1) + ` AND step_id = ` + placeholder(2) + `
		ORDER BY id
	`
	rows, err := r.q.QueryContext(ctx, query, workflowItemID, stepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.InProgressUser
	for rows.Next() {
		var rec domain.InProgressUser
		if err := rows.Scan(&rec.ID, &rec.WorkflowItemID, &rec.StepID, &rec.PrincipalID, &rec.Finished); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *InProgressRepository) DeleteAll(ctx context.Context, workflowItemID int64, stepID string) error {
	query := `
		DELETE FROM in_progress_user
		WHERE workflow_item_id = ` + placeholder(1) + ` AND step_id = ` + placeholder(2) + `
	`
	_, err := r.q.ExecContext(ctx, query, workflowItemID, stepID)
	return err
}
