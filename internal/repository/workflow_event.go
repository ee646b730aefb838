package repository

import (
	"context"
	"strings"

	"github.com/openarchive/reviewflow/internal/domain"
)

// WorkflowEventRepository persists the per-item audit trail. Events are
// kept after the workflow item row is deleted so terminal outcomes stay
// traceable.
type WorkflowEventRepository struct {
	q Querier
}

func (r *WorkflowEventRepository) Save(ctx context.Context, event *domain.WorkflowEvent) (int64, error) {
	vals := []any{event.WorkflowItemID, event.PrincipalID, event.Type, event.StepID, event.Text, event.DateTime.UTC()}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflow_event (
		workflow_item_id, principal_id, type, step_id, text, date_time
	) VALUES (` + strings.Join(pps, ", ") + `)`

	id, err := insertReturningID(ctx, r.q, base, vals...)
	if err != nil {
		return 0, err
	}
	event.ID = id
	return id, nil
}

func (r *WorkflowEventRepository) FindAllByItem(ctx context.Context, workflowItemID int64) ([]domain.WorkflowEvent, error) {
	query := `
		SELECT id, workflow_item_id, principal_id, type, step_id, text, date_time
		FROM workflow_event
		WHERE workflow_item_id = ` + placeholder(1) + `
		ORDER BY id
	`
	rows, err := r.q.QueryContext(ctx, query, workflowItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.WorkflowEvent
	for rows.Next() {
		var event domain.WorkflowEvent
		if err := rows.Scan(
			&event.ID,
			&event.WorkflowItemID,
			&event.PrincipalID,
			&event.Type,
			&event.StepID,
			&event.Text,
			&event.DateTime,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
