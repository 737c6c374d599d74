// Package redisstore backs the poll-state store and its collaborators with
// Redis. State writes use optimistic locking (WATCH) so the version check
// holds across processes.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
)

const (
	stateKeyPrefix    = "poll_state:"
	metadataKeyPrefix = "poll_metadata:"
)

// Store implements poll.Store on Redis.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func stateKey(pollID string) string {
	return stateKeyPrefix + pollID
}

func (s *Store) Load(ctx context.Context, pollID string) (*poll.State, error) {
	payload, err := s.client.Get(ctx, stateKey(pollID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state poll.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to decode poll state %s: %w", pollID, err)
	}
	return &state, nil
}

func (s *Store) Save(ctx context.Context, state *poll.State) error {
	key := stateKey(state.PollID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if state.Version != 0 {
				return poll.ErrVersionConflict
			}
		case err != nil:
			return err
		default:
			var stored poll.State
			if err := json.Unmarshal(current, &stored); err != nil {
				return fmt.Errorf("failed to decode stored poll state %s: %w", state.PollID, err)
			}
			if stored.Version != state.Version {
				return poll.ErrVersionConflict
			}
		}

		state.Version++
		payload, err := json.Marshal(state)
		if err != nil {
			state.Version--
			return fmt.Errorf("failed to encode poll state %s: %w", state.PollID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			state.Version--
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return poll.ErrVersionConflict
	}
	return err
}

// MetadataProvider reads externally published poll metadata from Redis.
// Brokers push metadata under poll_metadata:<pollId> when the poll is sent.
type MetadataProvider struct {
	client *redis.Client
}

func NewMetadataProvider(client *redis.Client) *MetadataProvider {
	return &MetadataProvider{client: client}
}

func (p *MetadataProvider) Lookup(ctx context.Context, pollID string) (*poll.Metadata, error) {
	payload, err := p.client.Get(ctx, metadataKeyPrefix+pollID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var metadata poll.Metadata
	if err := json.Unmarshal(payload, &metadata); err != nil {
		return nil, fmt.Errorf("failed to decode poll metadata %s: %w", pollID, err)
	}
	return &metadata, nil
}
