// Package memstore is an in-memory poll.Store used for development and
// tests. It keeps the same version-conditioned upsert semantics as the
// durable stores.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
)

type record struct {
	payload []byte
	version int64
}

// Store holds serialized poll states keyed by poll id.
type Store struct {
	mu      sync.RWMutex
	records map[string]record
}

func New() *Store {
	return &Store{records: make(map[string]record)}
}

func (s *Store) Load(ctx context.Context, pollID string) (*poll.State, error) {
	_ = ctx
	s.mu.RLock()
	rec, ok := s.records[pollID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var state poll.State
	if err := json.Unmarshal(rec.payload, &state); err != nil {
		return nil, fmt.Errorf("failed to decode poll state: %w", err)
	}
	state.Version = rec.version
	return &state, nil
}

func (s *Store) Save(ctx context.Context, state *poll.State) error {
	_ = ctx
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode poll state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[state.PollID]; ok && rec.version != state.Version {
		return poll.ErrVersionConflict
	}
	state.Version++
	s.records[state.PollID] = record{payload: payload, version: state.Version}
	return nil
}
