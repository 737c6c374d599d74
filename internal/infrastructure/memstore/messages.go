package memstore

import (
	"context"
	"sync"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/pipeline"
)

// MessageIndex is an in-memory record of the outbound message per
// (tenant, poll, chat) triple.
type MessageIndex struct {
	mu      sync.RWMutex
	records map[string]pipeline.ExistingMessage
}

func NewMessageIndex() *MessageIndex {
	return &MessageIndex{records: make(map[string]pipeline.ExistingMessage)}
}

func indexKey(tenantID, pollID, chatID string) string {
	return tenantID + ":" + pollID + ":" + chatID
}

// Record stores the outbound message for a (tenant, poll, chat) triple.
func (m *MessageIndex) Record(ctx context.Context, tenantID, pollID, chatID, messageID string, selectedOptionIDs []string) error {
	_ = ctx
	ids := append([]string(nil), selectedOptionIDs...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[indexKey(tenantID, pollID, chatID)] = pipeline.ExistingMessage{ID: messageID, SelectedOptionIDs: ids}
	return nil
}

// FindExisting implements pipeline.MessageFinder.
func (m *MessageIndex) FindExisting(ctx context.Context, query pipeline.MessageQuery) (*pipeline.ExistingMessage, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[indexKey(query.TenantID, query.PollID, query.ChatID)]
	if !ok {
		return nil, nil
	}
	out := pipeline.ExistingMessage{
		ID:                rec.ID,
		SelectedOptionIDs: append([]string(nil), rec.SelectedOptionIDs...),
	}
	return &out, nil
}
