package jukebox

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListAvailable(ctx context.Context) ([]PlaylistInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]PlaylistInfo), args.Error(1)
}

func (m *MockCatalog) ResolveID(ctx context.Context, raw string) (string, error) {
	args := m.Called(ctx, raw)
	return args.String(0), args.Error(1)
}

func (m *MockCatalog) LoadSongs(ctx context.Context, id string) ([]Song, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Song), args.Error(1)
}

// MockPresence records expectations for presence lookups. MembersOf applies
// the predicate to the identities returned by the "Members" expectation.
type MockPresence struct {
	mock.Mock
}

func (m *MockPresence) MembersOf(ctx context.Context, channel string, keep func(id string) bool) int {
	args := m.Called(ctx, channel)
	n := 0
	for _, id := range args.Get(0).([]string) {
		if keep(id) {
			n++
		}
	}
	return n
}

func (m *MockPresence) IsMuted(ctx context.Context, id string) bool {
	args := m.Called(ctx, id)
	return args.Bool(0)
}

func (m *MockPresence) IdleTime(ctx context.Context, id string) (time.Duration, bool) {
	args := m.Called(ctx, id)
	return args.Get(0).(time.Duration), args.Bool(1)
}

func (m *MockPresence) DisplayName(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockPresence) IsChannelDefinitelyEmpty(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, call Call, commandLine string) (string, error) {
	args := m.Called(ctx, call, commandLine)
	return args.String(0), args.Error(1)
}

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Broadcast(ctx context.Context, text string) {
	m.Called(ctx, text)
}

func (m *MockMessenger) SendTo(ctx context.Context, id, text string) {
	m.Called(ctx, id, text)
}
