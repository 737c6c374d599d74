package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/pipeline"
)

const messageKeyPrefix = "poll_message:"

// MessageIndex records which outbound message currently represents a poll in
// a chat, and what selection its content reflects. Outbound rewriters update
// the record after every rewrite; the pipeline reads it to decide whether an
// inbox fallback is still required.
type MessageIndex struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMessageIndex(client *redis.Client, ttl time.Duration) *MessageIndex {
	return &MessageIndex{client: client, ttl: ttl}
}

type messageRecord struct {
	ID                string   `json:"id"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

func messageKey(tenantID, pollID, chatID string) string {
	return messageKeyPrefix + tenantID + ":" + pollID + ":" + chatID
}

// Record stores the outbound message for a (tenant, poll, chat) triple.
func (m *MessageIndex) Record(ctx context.Context, tenantID, pollID, chatID, messageID string, selectedOptionIDs []string) error {
	payload, err := json.Marshal(messageRecord{ID: messageID, SelectedOptionIDs: selectedOptionIDs})
	if err != nil {
		return fmt.Errorf("failed to encode message record: %w", err)
	}
	return m.client.Set(ctx, messageKey(tenantID, pollID, chatID), payload, m.ttl).Err()
}

// FindExisting implements pipeline.MessageFinder.
func (m *MessageIndex) FindExisting(ctx context.Context, query pipeline.MessageQuery) (*pipeline.ExistingMessage, error) {
	payload, err := m.client.Get(ctx, messageKey(query.TenantID, query.PollID, query.ChatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec messageRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode message record: %w", err)
	}
	return &pipeline.ExistingMessage{ID: rec.ID, SelectedOptionIDs: rec.SelectedOptionIDs}, nil
}
