package engine

import (
	"context"
	"log/slog"

	"github.com/openarchive/reviewflow/internal/domain"
)

// SlogNotificationSink logs task notifications instead of delivering them.
// The default sink for deployments that wire delivery elsewhere.
type SlogNotificationSink struct{}

func (SlogNotificationSink) Notify(ctx context.Context, principalIDs []string, item *domain.WorkflowItem, stepID string) error {
	slog.InfoContext(ctx, "Task available for claim",
		"workflow_item_id", item.ID, "step_id", stepID, "principals", principalIDs)
	return nil
}
