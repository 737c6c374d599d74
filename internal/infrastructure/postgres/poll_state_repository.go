package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
)

// PollStateRepository implements poll.Store on Postgres. Records are upserted
// under a poll-derived key; the version column makes the upsert conditional
// so concurrent writers cannot silently overwrite each other.
type PollStateRepository struct {
	pool *pgxpool.Pool
}

func NewPollStateRepository(pool *pgxpool.Pool) *PollStateRepository {
	return &PollStateRepository{pool: pool}
}

func stateKey(pollID string) string {
	return "poll_state:" + pollID
}

func (r *PollStateRepository) Load(ctx context.Context, pollID string) (*poll.State, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT payload, version FROM poll_states WHERE key=$1
	`, stateKey(pollID))

	var payload []byte
	var version int64
	if err := row.Scan(&payload, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var state poll.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to decode poll state %s: %w", pollID, err)
	}
	state.Version = version
	return &state, nil
}

func (r *PollStateRepository) Save(ctx context.Context, state *poll.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode poll state %s: %w", state.PollID, err)
	}

	if state.Version == 0 {
		tag, err := r.pool.Exec(ctx, `
			INSERT INTO poll_states (key, poll_id, payload, version, updated_at)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (key) DO NOTHING
		`, stateKey(state.PollID), state.PollID, payload, state.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return poll.ErrVersionConflict
		}
		state.Version = 1
		return nil
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE poll_states
		SET payload=$2, version=version+1, updated_at=$3
		WHERE key=$1 AND version=$4
	`, stateKey(state.PollID), payload, state.UpdatedAt, state.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return poll.ErrVersionConflict
	}
	state.Version++
	return nil
}
