package poll

import "context"

// Store defines the persistence boundary for poll state. Save has upsert
// semantics keyed by a poll-derived identifier and must be conditional on
// State.Version, returning ErrVersionConflict when a concurrent write won.
type Store interface {
	Load(ctx context.Context, pollID string) (*State, error)
	Save(ctx context.Context, state *State) error
}

// MetadataProvider looks up externally held poll metadata. A nil result with
// a nil error means no metadata is known for the poll.
type MetadataProvider interface {
	Lookup(ctx context.Context, pollID string) (*Metadata, error)
}
