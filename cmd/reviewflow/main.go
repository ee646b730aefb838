package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/openarchive/reviewflow/internal/engine"
	"github.com/openarchive/reviewflow/pkg/reviewflow"
)

func main() {

	//you may do your own logger setup here or use this default one with slog
	reviewflow.SetupLogger()

	//a standalone deployment keeps item state in memory; production hosts
	//wire their own repository platform here
	items := newLocalItemPlatform()

	groups := &engine.StaticGroupDirectory{
		Principals: map[string][]string{
			"reviewers": {"alice", "bob"},
			"editors":   {"carol"},
		},
	}

	if err := reviewflow.Start(reviewflow.Options{
		Items:  items,
		Store:  items,
		Groups: groups,
	}); err != nil {
		slog.Error("Engine exited with error", "error", err)
	}
}

// localItemPlatform is a toy repository backend for running the engine
// standalone. Items live in memory and are lost on restart.
type localItemPlatform struct {
	mu       sync.Mutex
	metadata map[string]map[string]string
	archived map[string]bool
}

func newLocalItemPlatform() *localItemPlatform {
	return &localItemPlatform{
		metadata: make(map[string]map[string]string),
		archived: make(map[string]bool),
	}
}

func (p *localItemPlatform) Archive(ctx context.Context, itemID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.archived[itemID] = true
	slog.InfoContext(ctx, "Item archived", "item_id", itemID)
	return nil
}

func (p *localItemPlatform) ReturnToWorkspace(ctx context.Context, itemID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.archived, itemID)
	slog.InfoContext(ctx, "Item returned to workspace", "item_id", itemID, "reason", reason)
	return nil
}

func (p *localItemPlatform) HasUploadedFiles(ctx context.Context, itemID string) (bool, error) {
	return false, nil
}

func (p *localItemPlatform) GetItem(ctx context.Context, itemID string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	meta := make(map[string]string, len(p.metadata[itemID]))
	for k, v := range p.metadata[itemID] {
		meta[k] = v
	}
	return meta, nil
}

func (p *localItemPlatform) UpdateMetadata(ctx context.Context, itemID string, changes map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	meta := p.metadata[itemID]
	if meta == nil {
		meta = make(map[string]string)
		p.metadata[itemID] = meta
	}
	for k, v := range changes {
		meta[k] = v
	}
	return nil
}
