// Package poll holds the persisted poll-vote state and the pure merge and
// tally rules applied to it. Everything here is side-effect free; persistence
// and lookups live behind the collaborator interfaces in repository.go.
package poll

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrVersionConflict is returned by stores when a conditional upsert
	// loses against a concurrent write for the same poll.
	ErrVersionConflict = errors.New("poll state version conflict")
)

// Option is one choice of a poll. Title and Index are merged from multiple
// untrusted sources and may stay unknown.
type Option struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
	Index *int    `json:"index"`
}

// SelectedOption is a rendered display record of one selected choice,
// snapshotted at write time so later metadata changes do not rewrite history.
type SelectedOption struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
}

// EncryptedVote retains the opaque ciphertext delivered with a vote so a
// later event lacking an explicit selection can still be resolved.
type EncryptedVote struct {
	EncPayload string `json:"encPayload"`
	EncIV      string `json:"encIv"`
	Ciphertext string `json:"ciphertext,omitempty"`
}

// VoteEntry is the current selection of a single voter. Each write replaces
// the whole entry; there is no partial merge within an entry.
type VoteEntry struct {
	OptionIDs       []string         `json:"optionIds"`
	SelectedOptions []SelectedOption `json:"selectedOptions"`
	MessageID       *string          `json:"messageId"`
	Timestamp       *string          `json:"timestamp"`
	Encrypted       *EncryptedVote   `json:"encryptedVote,omitempty"`
}

// Aggregates are the derived tallies. They are always a pure function of the
// vote map and are recomputed wholesale on every state-changing write.
type Aggregates struct {
	TotalVoters  int            `json:"totalVoters"`
	TotalVotes   int            `json:"totalVotes"`
	OptionTotals map[string]int `json:"optionTotals"`
}

// MessageKey identifies the outbound message that created the poll.
type MessageKey struct {
	ID          *string `json:"id,omitempty"`
	RemoteJID   *string `json:"remoteJid,omitempty"`
	Participant *string `json:"participant,omitempty"`
	FromMe      *bool   `json:"fromMe,omitempty"`
}

// Context carries the poll-level metadata merged field-by-field from the
// incoming event, the external metadata lookup, and previous state.
type Context struct {
	TenantID               *string     `json:"tenantId,omitempty"`
	InstanceID             *string     `json:"instanceId,omitempty"`
	Question               *string     `json:"question,omitempty"`
	SelectableOptionsCount *int        `json:"selectableOptionsCount,omitempty"`
	AllowMultipleAnswers   *bool       `json:"allowMultipleAnswers,omitempty"`
	CreationMessageID      *string     `json:"creationMessageId,omitempty"`
	CreationMessageKey     *MessageKey `json:"creationMessageKey,omitempty"`
	MessageSecret          *string     `json:"messageSecret,omitempty"`
	MessageSecretVersion   *int        `json:"messageSecretVersion,omitempty"`
}

// State is the unit of persistence, one per pollId.
type State struct {
	PollID           string               `json:"pollId"`
	Options          []Option             `json:"options"`
	Votes            map[string]VoteEntry `json:"votes"`
	Aggregates       Aggregates           `json:"aggregates"`
	BrokerAggregates *Aggregates          `json:"brokerAggregates,omitempty"`
	Context          Context              `json:"context"`
	UpdatedAt        time.Time            `json:"updatedAt"`

	// Version supports conditional upserts at the storage boundary. Zero
	// means the state has never been persisted.
	Version int64 `json:"version"`
}

// NewState returns the implicit empty state created on the first vote event
// for a poll.
func NewState(pollID string) *State {
	return &State{
		PollID: pollID,
		Votes:  map[string]VoteEntry{},
		Aggregates: Aggregates{
			OptionTotals: map[string]int{},
		},
	}
}

// NormalizeIDs trims and de-duplicates option ids, preserving order and case.
func NormalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SameIDSet reports whether two id lists contain the same set of ids,
// regardless of order or duplicates.
func SameIDSet(a, b []string) bool {
	na, nb := NormalizeIDs(a), NormalizeIDs(b)
	if len(na) != len(nb) {
		return false
	}
	set := make(map[string]struct{}, len(na))
	for _, id := range na {
		set[id] = struct{}{}
	}
	for _, id := range nb {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
