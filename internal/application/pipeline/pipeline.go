// Package pipeline sequences an inbound vote event through validation,
// persistence, and downstream action selection. It consumes and produces
// plain data structures only; transport and storage stay outside.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/vote"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/telemetry"
	"github.com/alangsilva86/leadengine-corban-sub002/schemas"
)

const schemaURL = "https://leadengine.dev/schemas/poll-vote-event.json"

// Applier persists vote events; implemented by the vote service.
type Applier interface {
	Apply(ctx context.Context, event *poll.VoteEvent) (*vote.Result, error)
}

// MessageQuery identifies the outbound message that may already reflect a
// poll selection.
type MessageQuery struct {
	TenantID    string
	PollID      string
	ChatID      string
	Identifiers []string
}

// ExistingMessage is a previously sent outbound message and the selection its
// stored metadata reflects.
type ExistingMessage struct {
	ID                string
	SelectedOptionIDs []string
}

// MessageFinder is the message-lookup collaborator. A nil result with a nil
// error means no candidate message exists.
type MessageFinder interface {
	FindExisting(ctx context.Context, query MessageQuery) (*ExistingMessage, error)
}

// Status is the terminal outcome of the persistence stage.
type Status string

const (
	StatusInvalid   Status = "invalid"
	StatusDuplicate Status = "duplicate"
	StatusPersisted Status = "persisted"
)

// Validation reasons.
const (
	ReasonMissingPayload = "missing_payload"
	ReasonSchemaError    = "schema_error"
)

// Outcome is the full pipeline result for one inbound event.
type Outcome struct {
	Status Status
	Reason string
	Issues []string

	Event               *poll.VoteEvent
	State               *poll.State
	SelectedOptions     []poll.SelectedOption
	CandidateMessageIDs []string

	Rewrite  *RewriteDecision
	Fallback *FallbackDecision
}

// Pipeline wires the stages together.
type Pipeline struct {
	votes    Applier
	messages MessageFinder
	schema   *jsonschema.Schema
	logger   zerolog.Logger
}

// New builds a pipeline, compiling the embedded vote-event schema.
func New(votes Applier, messages MessageFinder, logger zerolog.Logger) (*Pipeline, error) {
	raw, err := schemas.FS.ReadFile(schemas.PollVoteEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to read vote event schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add vote event schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile vote event schema: %w", err)
	}

	return &Pipeline{
		votes:    votes,
		messages: messages,
		schema:   schema,
		logger:   logger.With().Str("service", "pipeline").Logger(),
	}, nil
}

// Validation is the result of the validate stage. Schema problems are
// reported, never thrown.
type Validation struct {
	OK     bool
	Reason string
	Issues []string
	Event  *poll.VoteEvent
}

// Validate checks the raw webhook payload against the vote-event schema and
// decodes it.
func (p *Pipeline) Validate(raw []byte) Validation {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Validation{Reason: ReasonMissingPayload}
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return Validation{Reason: ReasonSchemaError, Issues: []string{err.Error()}}
	}

	if err := p.schema.Validate(value); err != nil {
		return Validation{Reason: ReasonSchemaError, Issues: schemaIssues(err)}
	}

	var event poll.VoteEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return Validation{Reason: ReasonSchemaError, Issues: []string{err.Error()}}
	}
	return Validation{OK: true, Event: &event}
}

// Ingest runs an inbound payload through every stage. Validation problems
// produce an invalid Outcome with a nil error; only persistence failures
// return a non-nil error, for the caller to retry.
func (p *Pipeline) Ingest(ctx context.Context, raw []byte, tenantOverride string) (*Outcome, error) {
	validation := p.Validate(raw)
	if !validation.OK {
		telemetry.EventsTotal.WithLabelValues(string(StatusInvalid)).Inc()
		p.logger.Warn().
			Str("reason", validation.Reason).
			Strs("issues", validation.Issues).
			Msg("rejected vote event")
		return &Outcome{Status: StatusInvalid, Reason: validation.Reason, Issues: validation.Issues}, nil
	}
	return p.Process(ctx, validation.Event, tenantOverride)
}

// Process runs an already decoded event through persistence and the
// downstream decisions.
func (p *Pipeline) Process(ctx context.Context, event *poll.VoteEvent, tenantOverride string) (*Outcome, error) {
	result, err := p.votes.Apply(ctx, event)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Status:              StatusPersisted,
		Event:               event,
		State:               result.State,
		SelectedOptions:     result.SelectedOptions,
		CandidateMessageIDs: event.CandidateMessageIDs(),
	}
	if !result.Updated {
		outcome.Status = StatusDuplicate
	}
	telemetry.EventsTotal.WithLabelValues(string(outcome.Status)).Inc()

	tenantID := resolveTenant(tenantOverride, result.State)
	outcome.Rewrite = p.decideRewrite(event, result, tenantID, outcome.CandidateMessageIDs)
	outcome.Fallback = p.decideFallback(ctx, event, result, tenantID, outcome.CandidateMessageIDs)

	telemetry.RewriteDecisionsTotal.WithLabelValues(string(outcome.Rewrite.Status)).Inc()
	telemetry.FallbackDecisionsTotal.WithLabelValues(string(outcome.Fallback.Status)).Inc()

	p.logger.Info().
		Str("poll_id", event.PollID).
		Str("voter_jid", event.VoterJID).
		Str("status", string(outcome.Status)).
		Str("rewrite", string(outcome.Rewrite.Status)).
		Str("fallback", string(outcome.Fallback.Status)).
		Msg("vote event processed")

	return outcome, nil
}

// resolveTenant picks the tenant: explicit override first, then the poll's
// merged context. Empty means the caller must retry once tenant context is
// known.
func resolveTenant(override string, state *poll.State) string {
	if override != "" {
		return override
	}
	if state != nil && state.Context.TenantID != nil {
		return *state.Context.TenantID
	}
	return ""
}

func schemaIssues(err error) []string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	basic := ve.BasicOutput()
	issues := make([]string, 0, len(basic.Errors))
	for _, e := range basic.Errors {
		if e.Error == "" {
			continue
		}
		if e.InstanceLocation != "" {
			issues = append(issues, e.InstanceLocation+": "+e.Error)
			continue
		}
		issues = append(issues, e.Error)
	}
	return issues
}
