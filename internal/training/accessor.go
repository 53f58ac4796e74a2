package training

import (
	"context"

	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Material is everything an organization has authored for the assistant.
type Material struct {
	Entries   []Entry
	Knowledge []string
}

// ByType groups active entries by data type, preserving order.
func (m Material) ByType() map[DataType][]Entry {
	out := make(map[DataType][]Entry)
	for _, e := range m.Entries {
		out[e.DataType] = append(out[e.DataType], e)
	}
	return out
}

// Accessor loads training material for prompt assembly.
type Accessor struct {
	store     Store
	knowledge KnowledgeBase
	logger    *logging.Logger
}

// NewAccessor wires the training store with an optional knowledge base.
func NewAccessor(store Store, knowledge KnowledgeBase, logger *logging.Logger) *Accessor {
	if store == nil {
		panic("training: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Accessor{store: store, knowledge: knowledge, logger: logger}
}

// Load returns active training entries and knowledge-base snippets. A
// knowledge base failure is logged and yields no snippets; a store failure
// is returned.
func (a *Accessor) Load(ctx context.Context, orgID string) (Material, error) {
	entries, err := a.store.ListActive(ctx, orgID)
	if err != nil {
		return Material{}, err
	}
	m := Material{Entries: entries}
	if a.knowledge == nil {
		return m, nil
	}
	kb, err := a.knowledge.List(ctx, orgID)
	if err != nil {
		a.logger.Warn("knowledge base unavailable", "org_id", orgID, "error", err)
		return m, nil
	}
	m.Knowledge = kb
	return m, nil
}
