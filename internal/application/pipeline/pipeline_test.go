package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/vote"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
)

type applierFunc func(ctx context.Context, event *poll.VoteEvent) (*vote.Result, error)

func (f applierFunc) Apply(ctx context.Context, event *poll.VoteEvent) (*vote.Result, error) {
	return f(ctx, event)
}

type finderFunc func(ctx context.Context, query MessageQuery) (*ExistingMessage, error)

func (f finderFunc) FindExisting(ctx context.Context, query MessageQuery) (*ExistingMessage, error) {
	return f(ctx, query)
}

func strPtr(s string) *string { return &s }

func newPipeline(t *testing.T, votes Applier, messages MessageFinder) *Pipeline {
	t.Helper()
	p, err := New(votes, messages, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func appliedState(event *poll.VoteEvent, tenantID string, selected ...poll.SelectedOption) *vote.Result {
	state := poll.NewState(event.PollID)
	if tenantID != "" {
		state.Context.TenantID = &tenantID
	}
	ids := make([]string, 0, len(selected))
	for _, s := range selected {
		ids = append(ids, s.ID)
	}
	state.Votes[event.VoterJID] = poll.VoteEntry{
		OptionIDs:       ids,
		SelectedOptions: selected,
		MessageID:       event.MessageID,
		Timestamp:       event.Timestamp,
	}
	state.Aggregates = poll.ComputeAggregates(state.Votes)
	return &vote.Result{Updated: true, State: state, SelectedOptions: selected}
}

func TestPipeline_Validate(t *testing.T) {
	p := newPipeline(t, nil, nil)

	t.Run("missing payload", func(t *testing.T) {
		v := p.Validate(nil)
		assert.False(t, v.OK)
		assert.Equal(t, ReasonMissingPayload, v.Reason)

		v = p.Validate([]byte("   \n"))
		assert.Equal(t, ReasonMissingPayload, v.Reason)
	})

	t.Run("malformed json", func(t *testing.T) {
		v := p.Validate([]byte("{not json"))
		assert.False(t, v.OK)
		assert.Equal(t, ReasonSchemaError, v.Reason)
		assert.NotEmpty(t, v.Issues)
	})

	t.Run("schema violation", func(t *testing.T) {
		v := p.Validate([]byte(`{"pollId": "poll-1"}`))
		assert.False(t, v.OK)
		assert.Equal(t, ReasonSchemaError, v.Reason)
		assert.NotEmpty(t, v.Issues)
	})

	t.Run("valid event", func(t *testing.T) {
		v := p.Validate([]byte(`{"pollId": "poll-1", "voterJid": "u@x", "optionIds": ["opt-1"]}`))
		require.True(t, v.OK)
		require.NotNil(t, v.Event)
		assert.Equal(t, "poll-1", v.Event.PollID)
		assert.Equal(t, []string{"opt-1"}, v.Event.OptionIDs)
	})
}

func TestPipeline_Ingest_Invalid(t *testing.T) {
	votes := applierFunc(func(context.Context, *poll.VoteEvent) (*vote.Result, error) {
		t.Fatal("invalid payload must not reach persistence")
		return nil, nil
	})
	p := newPipeline(t, votes, nil)

	outcome, err := p.Ingest(context.Background(), []byte(`{"voterJid": "u@x"}`), "")

	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, outcome.Status)
	assert.Equal(t, ReasonSchemaError, outcome.Reason)
}

func TestPipeline_Process_StatusAndCandidates(t *testing.T) {
	event := &poll.VoteEvent{
		PollID:                "poll-1",
		VoterJID:              "u@x",
		MessageID:             strPtr("msg-1"),
		PollCreationMessageID: strPtr("creation-1"),
		OptionIDs:             []string{"opt-1"},
	}

	t.Run("persisted", func(t *testing.T) {
		votes := applierFunc(func(_ context.Context, e *poll.VoteEvent) (*vote.Result, error) {
			return appliedState(e, "tenant-1", poll.SelectedOption{ID: "opt-1"}), nil
		})
		p := newPipeline(t, votes, nil)

		outcome, err := p.Process(context.Background(), event, "")

		require.NoError(t, err)
		assert.Equal(t, StatusPersisted, outcome.Status)
		assert.Equal(t, []string{"msg-1", "creation-1", "poll-1"}, outcome.CandidateMessageIDs)
	})

	t.Run("duplicate", func(t *testing.T) {
		votes := applierFunc(func(_ context.Context, e *poll.VoteEvent) (*vote.Result, error) {
			result := appliedState(e, "tenant-1", poll.SelectedOption{ID: "opt-1"})
			result.Updated = false
			return result, nil
		})
		p := newPipeline(t, votes, nil)

		outcome, err := p.Process(context.Background(), event, "")

		require.NoError(t, err)
		assert.Equal(t, StatusDuplicate, outcome.Status)
		assert.Equal(t, []string{"msg-1", "creation-1", "poll-1"}, outcome.CandidateMessageIDs)
	})
}

func TestPipeline_Process_PersistenceFailurePropagates(t *testing.T) {
	storeErr := errors.New("upsert failed")
	votes := applierFunc(func(context.Context, *poll.VoteEvent) (*vote.Result, error) {
		return nil, storeErr
	})
	p := newPipeline(t, votes, nil)

	_, err := p.Process(context.Background(), &poll.VoteEvent{PollID: "poll-1", VoterJID: "u@x"}, "")

	assert.ErrorIs(t, err, storeErr)
}

func TestPipeline_RewriteDecision(t *testing.T) {
	event := &poll.VoteEvent{
		PollID:    "poll-1",
		VoterJID:  "5511999999999",
		MessageID: strPtr("msg-1"),
		Timestamp: strPtr("1700000000"),
		OptionIDs: []string{"opt-1"},
	}

	t.Run("missing tenant", func(t *testing.T) {
		votes := applierFunc(func(_ context.Context, e *poll.VoteEvent) (*vote.Result, error) {
			return appliedState(e, "", poll.SelectedOption{ID: "opt-1"}), nil
		})
		p := newPipeline(t, votes, nil)

		outcome, err := p.Process(context.Background(), event, "")

		require.NoError(t, err)
		assert.Equal(t, RewriteStatusMissingTenant, outcome.Rewrite.Status)
		assert.Equal(t, []string{"msg-1", "poll-1"}, outcome.Rewrite.MessageIDs)
	})

	t.Run("tenant from context", func(t *testing.T) {
		votes := applierFunc(func(_ context.Context, e *poll.VoteEvent) (*vote.Result, error) {
			return appliedState(e, "tenant-ctx", poll.SelectedOption{ID: "opt-1", Title: strPtr("A")}), nil
		})
		p := newPipeline(t, votes, nil)

		outcome, err := p.Process(context.Background(), event, "")

		require.NoError(t, err)
		rewrite := outcome.Rewrite
		assert.Equal(t, RewriteStatusRewrite, rewrite.Status)
		assert.Equal(t, "tenant-ctx", rewrite.TenantID)
		assert.Equal(t, "5511999999999@s.whatsapp.net", rewrite.ChatID)
		assert.Equal(t, []string{"opt-1"}, rewrite.Vote.OptionIDs)
		assert.Equal(t, 1, rewrite.Aggregates.TotalVoters)
	})

	t.Run("override beats context", func(t *testing.T) {
		votes := applierFunc(func(_ context.Context, e *poll.VoteEvent) (*vote.Result, error) {
			return appliedState(e, "tenant-ctx", poll.SelectedOption{ID: "opt-1"}), nil
		})
		p := newPipeline(t, votes, nil)

		outcome, err := p.Process(context.Background(), event, "tenant-override")

		require.NoError(t, err)
		assert.Equal(t, "tenant-override", outcome.Rewrite.TenantID)
	})

	t.Run("vote snapshot synthesized when state has no entry", func(t *testing.T) {
		votes := applierFunc(func(_ context.Context, e *poll.VoteEvent) (*vote.Result, error) {
			state := poll.NewState(e.PollID)
			state.Context.TenantID = strPtr("tenant-1")
			return &vote.Result{
				Updated:         false,
				State:           state,
				SelectedOptions: []poll.SelectedOption{{ID: "opt-1"}},
			}, nil
		})
		p := newPipeline(t, votes, nil)

		outcome, err := p.Process(context.Background(), event, "")

		require.NoError(t, err)
		assert.Equal(t, []string{"opt-1"}, outcome.Rewrite.Vote.OptionIDs)
		assert.Equal(t, event.MessageID, outcome.Rewrite.Vote.MessageID)
	})
}

func TestPipeline_FallbackDecision(t *testing.T) {
	event := &poll.VoteEvent{
		PollID:    "poll-1",
		VoterJID:  "u@x",
		OptionIDs: []string{"opt-1"},
	}
	votes := applierFunc(func(_ context.Context, e *poll.VoteEvent) (*vote.Result, error) {
		return appliedState(e, "tenant-1", poll.SelectedOption{ID: "opt-1"}), nil
	})

	t.Run("existing message up to date", func(t *testing.T) {
		finder := finderFunc(func(_ context.Context, query MessageQuery) (*ExistingMessage, error) {
			assert.Equal(t, "tenant-1", query.TenantID)
			assert.Equal(t, "poll-1", query.PollID)
			return &ExistingMessage{ID: "out-1", SelectedOptionIDs: []string{"opt-1"}}, nil
		})
		p := newPipeline(t, votes, finder)

		outcome, err := p.Process(context.Background(), event, "")

		require.NoError(t, err)
		assert.Equal(t, FallbackStatusSkip, outcome.Fallback.Status)
		assert.Equal(t, ReasonUpToDate, outcome.Fallback.Reason)
		assert.Equal(t, "out-1", outcome.Fallback.ExistingMessageID)
	})

	t.Run("existing message outdated", func(t *testing.T) {
		finder := finderFunc(func(context.Context, MessageQuery) (*ExistingMessage, error) {
			return &ExistingMessage{ID: "out-1", SelectedOptionIDs: []string{"opt-2"}}, nil
		})
		p := newPipeline(t, votes, finder)

		outcome, err := p.Process(context.Background(), event, "")

		require.NoError(t, err)
		assert.Equal(t, FallbackStatusRequireInbox, outcome.Fallback.Status)
		assert.Equal(t, "out-1", outcome.Fallback.ExistingMessageID)
	})

	t.Run("no existing message", func(t *testing.T) {
		finder := finderFunc(func(context.Context, MessageQuery) (*ExistingMessage, error) {
			return nil, nil
		})
		p := newPipeline(t, votes, finder)

		outcome, err := p.Process(context.Background(), event, "")

		require.NoError(t, err)
		assert.Equal(t, FallbackStatusRequireInbox, outcome.Fallback.Status)
		assert.Empty(t, outcome.Fallback.ExistingMessageID)
	})

	t.Run("lookup failure does not block the decision", func(t *testing.T) {
		finder := finderFunc(func(context.Context, MessageQuery) (*ExistingMessage, error) {
			return nil, errors.New("lookup timeout")
		})
		p := newPipeline(t, votes, finder)

		outcome, err := p.Process(context.Background(), event, "")

		require.NoError(t, err)
		assert.Equal(t, FallbackStatusRequireInbox, outcome.Fallback.Status)
		assert.Equal(t, "lookup timeout", outcome.Fallback.LookupError)
	})

	t.Run("missing tenant", func(t *testing.T) {
		noTenant := applierFunc(func(_ context.Context, e *poll.VoteEvent) (*vote.Result, error) {
			return appliedState(e, "", poll.SelectedOption{ID: "opt-1"}), nil
		})
		p := newPipeline(t, noTenant, nil)

		outcome, err := p.Process(context.Background(), event, "")

		require.NoError(t, err)
		assert.Equal(t, FallbackStatusMissingTenant, outcome.Fallback.Status)
	})
}

func TestNormalizeChatID(t *testing.T) {
	assert.Equal(t, "5511999999999@s.whatsapp.net", normalizeChatID(&poll.VoteEvent{VoterJID: "5511999999999"}))
	assert.Equal(t, "u@x", normalizeChatID(&poll.VoteEvent{VoterJID: "u@x"}))
	assert.Equal(t, "123@g.us", normalizeChatID(&poll.VoteEvent{VoterJID: "u@x", ChatID: strPtr("123@g.us")}))
	assert.Equal(t, "123@s.whatsapp.net", normalizeChatID(&poll.VoteEvent{VoterJID: "u@x", ChatID: strPtr("123")}))
}
