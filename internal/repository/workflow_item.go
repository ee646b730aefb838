package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/openarchive/reviewflow/internal/domain"
)

// WorkflowItemRepository persists the runtime state of submissions in
// review.
type WorkflowItemRepository struct {
	q Querier
}

const workflowItemColumns = ` id, external_id, item_id, collection_id, workflow_name, step_id,
		       multiple_files, multiple_titles, created, modified `

func (r *WorkflowItemRepository) Save(ctx context.Context, item *domain.WorkflowItem) (int64, error) {
	vals := []any{item.ExternalID, item.ItemID, item.CollectionID, item.WorkflowName, item.StepID,
		item.MultipleFiles, item.MultipleTitles, item.Created.UTC(), item.Modified.UTC()}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflow_item (
		external_id, item_id, collection_id, workflow_name, step_id,
		multiple_files, multiple_titles, created, modified
	) VALUES (` + strings.Join(pps, ", ") + `)`

	id, err := insertReturningID(ctx, r.q, base, vals...)
	if err != nil {
		return 0, err
	}
	item.ID = id
	return id, nil
}

func (r *WorkflowItemRepository) FindByID(ctx context.Context, id int64) (*domain.WorkflowItem, error) {
	query := `
		SELECT ` + workflowItemColumns + `
		FROM workflow_item WHERE id = ` + placeholder(1) + `
	`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

func (r *WorkflowItemRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.WorkflowItem, error) {
	query := `
		SELECT ` + workflowItemColumns + `
		FROM workflow_item WHERE external_id = ` + placeholder(1) + `
	`
	return r.scanOne(r.q.QueryRowContext(ctx, query, externalID))
}

func (r *WorkflowItemRepository) UpdateStep(ctx context.Context, id int64, stepID string, modified time.Time) error {
	query := `
		UPDATE workflow_item
		SET step_id = ` + placeholder(1) + `, modified = ` + placeholder(2) + `
		WHERE id = ` + placeholder(3) + `
	`
	_, err := r.q.ExecContext(ctx, query, stepID, modified.UTC(), id)
	return err
}

func (r *WorkflowItemRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM workflow_item WHERE id = ` + placeholder(1)
	_, err := r.q.ExecContext(ctx, query, id)
	return err
}

func (r *WorkflowItemRepository) scanOne(row *sql.Row) (*domain.WorkflowItem, error) {
	var item domain.WorkflowItem
	err := row.Scan(
		&item.ID,
		&item.ExternalID,
		&item.ItemID,
		&item.CollectionID,
		&item.WorkflowName,
		&item.StepID,
		&item.MultipleFiles,
		&item.MultipleTitles,
		&item.Created,
		&item.Modified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
