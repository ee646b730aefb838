package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openarchive/reviewflow/internal/domain"
)

// RoleRepository persists the static role configuration: collection-wide
// role bindings and per-item overrides.
type RoleRepository struct {
	q Querier
}

func (r *RoleRepository) FindCollectionRole(ctx context.Context, collectionID, roleID string) (*domain.CollectionRole, error) {
	query := `
		SELECT id, collection_id, role_id, group_id
		FROM collection_role
		WHERE collection_id = ` + placeholder(1) + ` AND role_id = ` + placeholder(2) + `
	`
	var role domain.CollectionRole
	err := r.q.QueryRowContext(ctx, query, collectionID, roleID).Scan(
		&role.ID, &role.CollectionID, &role.RoleID, &role.GroupID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepository) SaveCollectionRole(ctx context.Context, role *domain.CollectionRole) (int64, error) {
	vals := []any{role.CollectionID, role.RoleID, role.GroupID}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO collection_role (
		collection_id, role_id, group_id
	) VALUES (` + strings.Join(pps, ", ") + `)`

	id, err := insertReturningID(ctx, r.q, base, vals...)
	if err != nil {
		return 0, err
	}
	role.ID = id
	return id, nil
}

func (r *RoleRepository) FindItemRoles(ctx context.Context, workflowItemID int64, roleID string) ([]domain.WorkflowItemRole, error) {
	query := `
		SELECT id, workflow_item_id, role_id, group_id, principal_id
		FROM workflow_item_role
		WHERE workflow_item_id = ` + placeholder(1) + ` AND role_id = ` + placeholder(2) + `
		ORDER BY id
	`
	rows, err := r.q.QueryContext(ctx, query, workflowItemID, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.WorkflowItemRole
	for rows.Next() {
		var role domain.WorkflowItemRole
		if err := rows.Scan(&role.ID, &role.WorkflowItemID, &role.RoleID, &role.GroupID, &role.PrincipalID); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) SaveItemRole(ctx context.Context, role *domain.WorkflowItemRole) (int64, error) {
	vals := []any{role.WorkflowItemID, role.RoleID, role.GroupID, role.PrincipalID}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflow_item_role (
		workflow_item_id, role_id, group_id, principal_id
	) VALUES (` + strings.Join(pps, ", ") + `)`

	id, err := insertReturningID(ctx, r.q, base, vals...)
	if err != nil {
		return 0, err
	}
	role.ID = id
	return id, nil
}

func (r *RoleRepository) DeleteItemRole(ctx context.Context, id int64) error {
	query := `DELETE FROM workflow_item_role WHERE id = ` + placeholder(1)
	_, err := r.q.ExecContext(ctx, query, id)
	return err
}
