package poll

import "sort"

// MergeOptions unifies option metadata from existing state, the external
// metadata lookup, and the incoming event into one canonically ordered list.
// Title precedence per id: event > metadata > existing. Index precedence:
// event > metadata > existing > unset. The merge is pure and idempotent.
func MergeOptions(existing []Option, metadata []EventOption, incoming []EventOption) []Option {
	byID := make(map[string]*Option)
	order := make([]string, 0, len(existing)+len(metadata)+len(incoming))

	upsert := func(id string) *Option {
		if opt, ok := byID[id]; ok {
			return opt
		}
		opt := &Option{ID: id}
		byID[id] = opt
		order = append(order, id)
		return opt
	}

	for _, o := range existing {
		opt := upsert(o.ID)
		if o.Title != nil && *o.Title != "" {
			opt.Title = o.Title
		}
		if o.Index != nil {
			opt.Index = o.Index
		}
	}

	// Metadata overrides existing, the incoming event overrides both.
	for _, layer := range [][]EventOption{metadata, incoming} {
		for _, o := range layer {
			if o.ID == "" {
				continue
			}
			opt := upsert(o.ID)
			if title := o.DisplayTitle(); title != nil {
				opt.Title = title
			}
			if o.Index != nil {
				opt.Index = o.Index
			}
		}
	}

	merged := make([]Option, 0, len(order))
	for _, id := range order {
		merged = append(merged, *byID[id])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		switch {
		case a.Index != nil && b.Index != nil && *a.Index != *b.Index:
			return *a.Index < *b.Index
		case a.Index != nil && b.Index == nil:
			return true
		case a.Index == nil && b.Index != nil:
			return false
		default:
			return a.ID < b.ID
		}
	})

	return merged
}

// FindOption returns the option with the given id, or nil.
func FindOption(options []Option, id string) *Option {
	for i := range options {
		if options[i].ID == id {
			return &options[i]
		}
	}
	return nil
}
