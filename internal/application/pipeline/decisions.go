package pipeline

import (
	"context"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/vote"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
)

// RewriteStatus tags the outbound-message rewrite decision.
type RewriteStatus string

const (
	RewriteStatusRewrite       RewriteStatus = "rewrite"
	RewriteStatusMissingTenant RewriteStatus = "missingTenant"
)

// RewriteDecision instructs the caller to update the outbound message with
// the current poll snapshot. MissingTenant is a legitimate transient state:
// retry once tenant context is known.
type RewriteDecision struct {
	Status   RewriteStatus
	TenantID string
	ChatID   string

	MessageID       *string
	MessageIDs      []string
	PollID          string
	VoterJID        string
	SelectedOptions []poll.SelectedOption
	Timestamp       *string
	Question        *string
	Aggregates      poll.Aggregates
	Options         []poll.Option
	Vote            poll.VoteEntry
}

// FallbackStatus tags the inbox fallback decision.
type FallbackStatus string

const (
	FallbackStatusSkip          FallbackStatus = "skip"
	FallbackStatusRequireInbox  FallbackStatus = "requireInbox"
	FallbackStatusMissingTenant FallbackStatus = "missingTenant"
)

// Reason for skipping the inbox fallback.
const ReasonUpToDate = "up_to_date"

// FallbackDecision reports whether an inbox notification is still required.
type FallbackDecision struct {
	Status            FallbackStatus
	Reason            string
	ChatID            string
	ExistingMessageID string

	// LookupError captures a message-lookup failure for observability; the
	// decision proceeds as if no message was found.
	LookupError string
}

func (p *Pipeline) decideRewrite(event *poll.VoteEvent, result *vote.Result, tenantID string, candidates []string) *RewriteDecision {
	chatID := normalizeChatID(event)
	if tenantID == "" {
		return &RewriteDecision{
			Status:     RewriteStatusMissingTenant,
			ChatID:     chatID,
			MessageIDs: candidates,
			PollID:     event.PollID,
			VoterJID:   event.VoterJID,
		}
	}

	decision := &RewriteDecision{
		Status:          RewriteStatusRewrite,
		TenantID:        tenantID,
		ChatID:          chatID,
		MessageID:       event.MessageID,
		MessageIDs:      candidates,
		PollID:          event.PollID,
		VoterJID:        event.VoterJID,
		SelectedOptions: result.SelectedOptions,
		Timestamp:       event.Timestamp,
		Vote:            voteSnapshot(event, result),
	}
	if result.State != nil {
		decision.Question = result.State.Context.Question
		decision.Aggregates = result.State.Aggregates
		decision.Options = result.State.Options
	}
	return decision
}

func (p *Pipeline) decideFallback(ctx context.Context, event *poll.VoteEvent, result *vote.Result, tenantID string, candidates []string) *FallbackDecision {
	chatID := normalizeChatID(event)
	if tenantID == "" {
		return &FallbackDecision{Status: FallbackStatusMissingTenant, ChatID: chatID}
	}

	decision := &FallbackDecision{ChatID: chatID}

	var existing *ExistingMessage
	if p.messages != nil {
		found, err := p.messages.FindExisting(ctx, MessageQuery{
			TenantID:    tenantID,
			PollID:      event.PollID,
			ChatID:      chatID,
			Identifiers: candidates,
		})
		if err != nil {
			// Lookup failures never block the decision; match as absent.
			p.logger.Warn().Err(err).Str("poll_id", event.PollID).Msg("message lookup failed")
			decision.LookupError = err.Error()
		} else {
			existing = found
		}
	}

	newSelection := selectionIDs(result.SelectedOptions)
	var storedSelection []string
	if existing != nil {
		decision.ExistingMessageID = existing.ID
		storedSelection = existing.SelectedOptionIDs
	}

	if existing != nil && poll.SameIDSet(storedSelection, newSelection) {
		decision.Status = FallbackStatusSkip
		decision.Reason = ReasonUpToDate
		return decision
	}

	decision.Status = FallbackStatusRequireInbox
	return decision
}

// voteSnapshot is the vote record sent downstream: the newly written entry
// when one exists, otherwise one synthesized from the resolved selection.
func voteSnapshot(event *poll.VoteEvent, result *vote.Result) poll.VoteEntry {
	if result.State != nil {
		if entry, ok := result.State.Votes[event.VoterJID]; ok {
			return entry
		}
	}
	return poll.VoteEntry{
		OptionIDs:       selectionIDs(result.SelectedOptions),
		SelectedOptions: result.SelectedOptions,
		MessageID:       event.MessageID,
		Timestamp:       event.Timestamp,
	}
}

func selectionIDs(selected []poll.SelectedOption) []string {
	ids := make([]string, 0, len(selected))
	for _, s := range selected {
		ids = append(ids, s.ID)
	}
	return poll.NormalizeIDs(ids)
}

// normalizeChatID canonicalizes the voter's chat identifier: bare digits get
// the default user-channel suffix, already-addressed values pass through.
func normalizeChatID(event *poll.VoteEvent) string {
	id := event.VoterJID
	if event.ChatID != nil && *event.ChatID != "" {
		id = *event.ChatID
	}
	if isDigits(id) {
		return id + "@s.whatsapp.net"
	}
	return id
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
