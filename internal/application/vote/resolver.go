package vote

import (
	"context"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
)

// resolveSelection determines the voter's chosen option ids. Explicit ids in
// the event are the primary path; otherwise the previous entry's retained
// ciphertext is decrypted. Every failure degrades to an empty selection.
func (s *Service) resolveSelection(
	ctx context.Context,
	event *poll.VoteEvent,
	prev *poll.VoteEntry,
	catalog []poll.Option,
	metaOptions []poll.EventOption,
	pollCtx poll.Context,
) []string {
	explicit := make([]string, 0, len(event.OptionIDs)+len(event.Options))
	explicit = append(explicit, event.OptionIDs...)
	for _, o := range event.Options {
		if o.Selected && o.ID != "" {
			explicit = append(explicit, o.ID)
		}
	}
	if explicit = poll.NormalizeIDs(explicit); len(explicit) > 0 {
		return explicit
	}

	if prev == nil || prev.Encrypted == nil {
		return nil
	}
	ids, ok := s.decryptSelection(ctx, event, prev.Encrypted, catalog, metaOptions, pollCtx)
	if !ok {
		return nil
	}
	return ids
}

// renderSelection builds the display snapshot for the resolved ids. Title
// precedence per id: explicit event-provided selected-option record, then the
// incoming option record, then the merged catalog, then no title.
func renderSelection(ids []string, event *poll.VoteEvent, catalog []poll.Option) []poll.SelectedOption {
	if len(ids) == 0 {
		return nil
	}
	out := make([]poll.SelectedOption, 0, len(ids))
	for _, id := range ids {
		out = append(out, poll.SelectedOption{ID: id, Title: resolveTitle(id, event, catalog)})
	}
	return out
}

func resolveTitle(id string, event *poll.VoteEvent, catalog []poll.Option) *string {
	for _, rec := range event.SelectedOptions {
		if rec.ID == id && rec.Title != nil && *rec.Title != "" {
			return rec.Title
		}
	}
	for _, o := range event.Options {
		if o.ID == id {
			if title := o.DisplayTitle(); title != nil {
				return title
			}
		}
	}
	if o := poll.FindOption(catalog, id); o != nil && o.Title != nil && *o.Title != "" {
		return o.Title
	}
	return nil
}
