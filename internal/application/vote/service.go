// Package vote implements the poll-vote state machine: resolving a voter's
// selection (decrypting it when necessary), deciding idempotently whether an
// incoming event changes persisted state, and producing the next state.
package vote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
)

// VoteDecrypter is the messaging-platform cryptographic primitive. Failures
// of any kind are treated as "no encrypted selection available".
type VoteDecrypter interface {
	DecryptVote(ctx context.Context, payload, iv []byte, creatorJID, messageID string, secret []byte, voterJID string) ([][]byte, error)
}

// SecretSource supplies fallback poll message secrets when neither the event,
// the metadata lookup, nor previous state carries key material.
type SecretSource interface {
	SecretFor(ctx context.Context, pollID string) ([]byte, error)
}

var ErrIncompleteEvent = errors.New("vote event missing pollId or voterJid")

// Service applies vote events to poll state.
type Service struct {
	store     poll.Store
	metadata  poll.MetadataProvider
	decrypter VoteDecrypter
	secrets   SecretSource
	locks     keyedMutex
	logger    zerolog.Logger
}

// NewService creates a vote service. metadata, decrypter, and secrets may be
// nil; the service then degrades to the information the event itself carries.
func NewService(
	store poll.Store,
	metadata poll.MetadataProvider,
	decrypter VoteDecrypter,
	secrets SecretSource,
	logger zerolog.Logger,
) *Service {
	return &Service{
		store:     store,
		metadata:  metadata,
		decrypter: decrypter,
		secrets:   secrets,
		logger:    logger.With().Str("service", "vote").Logger(),
	}
}

// Result reports the outcome of applying a vote event.
type Result struct {
	Updated         bool
	State           *poll.State
	SelectedOptions []poll.SelectedOption
}

// Apply merges a vote event into the poll's persisted state. Redelivery of an
// identical event is a true no-op: no write, no aggregate recompute. Events
// for the same poll are serialized through an in-process per-poll lock; the
// store additionally enforces a version-conditioned upsert.
func (s *Service) Apply(ctx context.Context, event *poll.VoteEvent) (*Result, error) {
	if event == nil || event.PollID == "" || event.VoterJID == "" {
		return nil, ErrIncompleteEvent
	}

	unlock := s.locks.Lock(event.PollID)
	defer unlock()

	existing, err := s.store.Load(ctx, event.PollID)
	if err != nil {
		return nil, fmt.Errorf("failed to load poll state: %w", err)
	}
	state := existing
	if state == nil {
		state = poll.NewState(event.PollID)
	}

	var metadata *poll.Metadata
	if s.metadata != nil {
		metadata, err = s.metadata.Lookup(ctx, event.PollID)
		if err != nil {
			s.logger.Warn().Err(err).Str("poll_id", event.PollID).Msg("poll metadata lookup failed")
			metadata = nil
		}
	}
	var metaOptions []poll.EventOption
	if metadata != nil {
		metaOptions = metadata.Options
	}

	mergedContext := poll.MergeContext(state.Context, metadata, event)
	mergedOptions := poll.MergeOptions(state.Options, metaOptions, event.Options)

	prevEntry, hadPrev := state.Votes[event.VoterJID]
	var prev *poll.VoteEntry
	if hadPrev {
		prev = &prevEntry
	}

	selectedIDs := s.resolveSelection(ctx, event, prev, mergedOptions, metaOptions, mergedContext)
	selectedOptions := renderSelection(selectedIDs, event, mergedOptions)

	// Redelivery of an identical event converges without side effects. The
	// first event that makes selection detail available is deliberately not
	// a no-op even when everything else is unchanged, so titles can be
	// backfilled.
	if existing != nil && hadPrev &&
		poll.SameIDSet(prevEntry.OptionIDs, selectedIDs) &&
		equalStrPtr(prevEntry.MessageID, event.MessageID) &&
		equalStrPtr(prevEntry.Timestamp, event.Timestamp) &&
		poll.EqualContexts(mergedContext, state.Context) &&
		len(prevEntry.SelectedOptions) > 0 {
		s.logger.Debug().
			Str("poll_id", event.PollID).
			Str("voter_jid", event.VoterJID).
			Msg("vote event is a no-op")
		return &Result{Updated: false, State: existing, SelectedOptions: prevEntry.SelectedOptions}, nil
	}

	entry := poll.VoteEntry{
		OptionIDs:       selectedIDs,
		SelectedOptions: selectedOptions,
		MessageID:       event.MessageID,
		Timestamp:       event.Timestamp,
		Encrypted:       encryptedFromEvent(event),
	}
	if entry.Encrypted == nil && hadPrev {
		entry.Encrypted = prevEntry.Encrypted
	}

	state.Votes[event.VoterJID] = entry
	state.Options = mergedOptions
	state.Context = mergedContext
	state.Aggregates = poll.ComputeAggregates(state.Votes)
	if event.BrokerAggregates != nil {
		state.BrokerAggregates = event.BrokerAggregates
	}
	state.UpdatedAt = time.Now().UTC()

	if err := s.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save poll state: %w", err)
	}

	s.logger.Info().
		Str("poll_id", event.PollID).
		Str("voter_jid", event.VoterJID).
		Strs("option_ids", selectedIDs).
		Int("total_voters", state.Aggregates.TotalVoters).
		Msg("vote applied")

	return &Result{Updated: true, State: state, SelectedOptions: selectedOptions}, nil
}

func encryptedFromEvent(event *poll.VoteEvent) *poll.EncryptedVote {
	if event.EncPayload == nil || *event.EncPayload == "" || event.EncIV == nil || *event.EncIV == "" {
		return nil
	}
	return &poll.EncryptedVote{
		EncPayload: *event.EncPayload,
		EncIV:      *event.EncIV,
		Ciphertext: *event.EncPayload,
	}
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
