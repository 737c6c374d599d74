package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lastEventKeyPrefix = "poll_last_event:"

// LastEvents keeps the most recent processed outcome per poll under
// poll_last_event:<pollId>, for operators chasing a specific poll without
// trawling logs.
type LastEvents struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLastEvents(client *redis.Client, ttl time.Duration) *LastEvents {
	return &LastEvents{client: client, ttl: ttl}
}

// RecordLast overwrites the poll's last-event key with the outcome.
func (l *LastEvents) RecordLast(ctx context.Context, pollID string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode last event %s: %w", pollID, err)
	}
	return l.client.Set(ctx, lastEventKeyPrefix+pollID, payload, l.ttl).Err()
}

// LastEvent returns the stored outcome, or nil when none was recorded.
func (l *LastEvents) LastEvent(ctx context.Context, pollID string) (json.RawMessage, error) {
	payload, err := l.client.Get(ctx, lastEventKeyPrefix+pollID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(payload), nil
}
