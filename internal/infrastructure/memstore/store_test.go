package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
)

func TestStore_LoadAbsent(t *testing.T) {
	store := New()

	state, err := store.Load(context.Background(), "poll-1")

	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	state := poll.NewState("poll-1")
	state.Votes["u@x"] = poll.VoteEntry{OptionIDs: []string{"opt-1"}}
	state.Aggregates = poll.ComputeAggregates(state.Votes)

	require.NoError(t, store.Save(ctx, state))
	assert.Equal(t, int64(1), state.Version)

	loaded, err := store.Load(ctx, "poll-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(1), loaded.Version)
	assert.Equal(t, []string{"opt-1"}, loaded.Votes["u@x"].OptionIDs)
	assert.Equal(t, 1, loaded.Aggregates.TotalVoters)
}

func TestStore_VersionConflict(t *testing.T) {
	store := New()
	ctx := context.Background()

	first := poll.NewState("poll-1")
	require.NoError(t, store.Save(ctx, first))

	// A writer holding a stale version must lose.
	stale := poll.NewState("poll-1")
	err := store.Save(ctx, stale)
	assert.ErrorIs(t, err, poll.ErrVersionConflict)

	// The winner can keep writing.
	require.NoError(t, store.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)
}

func TestStore_LoadReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()

	state := poll.NewState("poll-1")
	state.Votes["u@x"] = poll.VoteEntry{OptionIDs: []string{"opt-1"}}
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "poll-1")
	require.NoError(t, err)
	loaded.Votes["u@x"] = poll.VoteEntry{OptionIDs: []string{"tampered"}}

	fresh, err := store.Load(ctx, "poll-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"opt-1"}, fresh.Votes["u@x"].OptionIDs)
}
