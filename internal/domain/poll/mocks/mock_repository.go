package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
)

// MockStore is a mock implementation of poll.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context, pollID string) (*poll.State, error) {
	args := m.Called(ctx, pollID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*poll.State), args.Error(1)
}

func (m *MockStore) Save(ctx context.Context, state *poll.State) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// MockMetadataProvider is a mock implementation of poll.MetadataProvider
type MockMetadataProvider struct {
	mock.Mock
}

func (m *MockMetadataProvider) Lookup(ctx context.Context, pollID string) (*poll.Metadata, error) {
	args := m.Called(ctx, pollID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*poll.Metadata), args.Error(1)
}
