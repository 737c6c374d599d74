package poll

// EventOption is an option record as delivered by a vote event. Sources are
// inconsistent about which field carries the human-readable title, so every
// known alias is kept and resolved in order.
type EventOption struct {
	ID          string  `json:"id"`
	Selected    bool    `json:"selected,omitempty"`
	Title       *string `json:"title,omitempty"`
	OptionName  *string `json:"optionName,omitempty"`
	Name        *string `json:"name,omitempty"`
	Text        *string `json:"text,omitempty"`
	Description *string `json:"description,omitempty"`
	Index       *int    `json:"index,omitempty"`
}

// DisplayTitle resolves the first non-empty title alias.
func (o EventOption) DisplayTitle() *string {
	for _, candidate := range []*string{o.Title, o.OptionName, o.Name, o.Text, o.Description} {
		if candidate != nil && *candidate != "" {
			return candidate
		}
	}
	return nil
}

// VoteEvent is an inbound third-party vote event, schema-validated before it
// reaches the engine.
type VoteEvent struct {
	PollID    string  `json:"pollId"`
	VoterJID  string  `json:"voterJid"`
	ChatID    *string `json:"chatId,omitempty"`
	MessageID *string `json:"messageId,omitempty"`
	Timestamp *string `json:"timestamp,omitempty"`

	OptionIDs       []string         `json:"optionIds,omitempty"`
	Options         []EventOption    `json:"options,omitempty"`
	SelectedOptions []SelectedOption `json:"selectedOptions,omitempty"`

	EncPayload *string `json:"encPayload,omitempty"`
	EncIV      *string `json:"encIv,omitempty"`

	TenantID               *string     `json:"tenantId,omitempty"`
	InstanceID             *string     `json:"instanceId,omitempty"`
	Question               *string     `json:"question,omitempty"`
	SelectableOptionsCount *int        `json:"selectableOptionsCount,omitempty"`
	AllowMultipleAnswers   *bool       `json:"allowMultipleAnswers,omitempty"`
	PollCreationMessageID  *string     `json:"pollCreationMessageId,omitempty"`
	PollCreationMessageKey *MessageKey `json:"pollCreationMessageKey,omitempty"`
	MessageSecret          *string     `json:"messageSecret,omitempty"`
	MessageSecretVersion   *int        `json:"messageSecretVersion,omitempty"`

	// BrokerAggregates are externally reported counts, stored verbatim for
	// cross-checking and never merged into the derived aggregates.
	BrokerAggregates *Aggregates `json:"brokerAggregates,omitempty"`
}

// Metadata is the result of the external poll-metadata lookup.
type Metadata struct {
	Options                []EventOption `json:"options,omitempty"`
	Question               *string       `json:"question,omitempty"`
	SelectableOptionsCount *int          `json:"selectableOptionsCount,omitempty"`
	AllowMultipleAnswers   *bool         `json:"allowMultipleAnswers,omitempty"`
	CreationMessageID      *string       `json:"creationMessageId,omitempty"`
	CreationMessageKey     *MessageKey   `json:"creationMessageKey,omitempty"`
	MessageSecret          *string       `json:"messageSecret,omitempty"`
	MessageSecretVersion   *int          `json:"messageSecretVersion,omitempty"`
	TenantID               *string       `json:"tenantId,omitempty"`
	InstanceID             *string       `json:"instanceId,omitempty"`
}

// CandidateMessageIDs returns the de-duplicated union of identifiers that may
// locate the outbound message representing this poll in chat history.
func (e *VoteEvent) CandidateMessageIDs() []string {
	candidates := make([]string, 0, 4)
	if e.MessageID != nil {
		candidates = append(candidates, *e.MessageID)
	}
	if e.PollCreationMessageID != nil {
		candidates = append(candidates, *e.PollCreationMessageID)
	}
	if e.PollCreationMessageKey != nil && e.PollCreationMessageKey.ID != nil {
		candidates = append(candidates, *e.PollCreationMessageKey.ID)
	}
	candidates = append(candidates, e.PollID)
	return NormalizeIDs(candidates)
}
