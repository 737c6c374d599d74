package poll

import "reflect"

// MergeContext resolves the poll context field-by-field: the incoming event
// wins over the metadata lookup, which wins over the previously persisted
// value. Fields without a newer value keep the previous one.
func MergeContext(existing Context, metadata *Metadata, event *VoteEvent) Context {
	merged := existing

	if metadata != nil {
		mergeStr(&merged.TenantID, metadata.TenantID)
		mergeStr(&merged.InstanceID, metadata.InstanceID)
		mergeStr(&merged.Question, metadata.Question)
		mergeInt(&merged.SelectableOptionsCount, metadata.SelectableOptionsCount)
		mergeBool(&merged.AllowMultipleAnswers, metadata.AllowMultipleAnswers)
		mergeStr(&merged.CreationMessageID, metadata.CreationMessageID)
		mergeKey(&merged.CreationMessageKey, metadata.CreationMessageKey)
		mergeStr(&merged.MessageSecret, metadata.MessageSecret)
		mergeInt(&merged.MessageSecretVersion, metadata.MessageSecretVersion)
	}

	if event != nil {
		mergeStr(&merged.TenantID, event.TenantID)
		mergeStr(&merged.InstanceID, event.InstanceID)
		mergeStr(&merged.Question, event.Question)
		mergeInt(&merged.SelectableOptionsCount, event.SelectableOptionsCount)
		mergeBool(&merged.AllowMultipleAnswers, event.AllowMultipleAnswers)
		mergeStr(&merged.CreationMessageID, event.PollCreationMessageID)
		mergeKey(&merged.CreationMessageKey, event.PollCreationMessageKey)
		mergeStr(&merged.MessageSecret, event.MessageSecret)
		mergeInt(&merged.MessageSecretVersion, event.MessageSecretVersion)
	}

	return merged
}

// EqualContexts reports field-wise equality of two contexts.
func EqualContexts(a, b Context) bool {
	return reflect.DeepEqual(a, b)
}

// CreatorJID derives the poll creator address from the creation message key,
// preferring the group participant over the remote chat address.
func (c Context) CreatorJID() *string {
	if c.CreationMessageKey == nil {
		return nil
	}
	if p := c.CreationMessageKey.Participant; p != nil && *p != "" {
		return p
	}
	if r := c.CreationMessageKey.RemoteJID; r != nil && *r != "" {
		return r
	}
	return nil
}

func mergeStr(dst **string, src *string) {
	if src != nil && *src != "" {
		*dst = src
	}
}

func mergeInt(dst **int, src *int) {
	if src != nil {
		*dst = src
	}
}

func mergeBool(dst **bool, src *bool) {
	if src != nil {
		*dst = src
	}
}

func mergeKey(dst **MessageKey, src *MessageKey) {
	if src != nil {
		*dst = src
	}
}
