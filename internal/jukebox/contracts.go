package jukebox

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that found nothing.
var ErrNotFound = errors.New("not found")

// Catalog exposes the stored playlists.
type Catalog interface {
	ListAvailable(ctx context.Context) ([]PlaylistInfo, error)
	// ResolveID maps a user supplied id to its canonical form or ErrNotFound.
	ResolveID(ctx context.Context, raw string) (string, error)
	LoadSongs(ctx context.Context, id string) ([]Song, error)
}

// Queue is the play queue. Played items and the current one are stable in
// History, upcoming items may be removed. CurrentIndex equals len(History())
// once every item has been consumed.
type Queue interface {
	IsPlaying() bool
	History() []QueueItem
	CurrentIndex() int
	Enqueue(ctx context.Context, item QueueItem) error
	Advance(ctx context.Context, invoker string) error
}

// Presence answers questions about the listeners in voice channels.
type Presence interface {
	MembersOf(ctx context.Context, channel string, keep func(id string) bool) int
	IsMuted(ctx context.Context, id string) bool
	// IdleTime reports false when no idle data is known for the listener.
	IdleTime(ctx context.Context, id string) (time.Duration, bool)
	DisplayName(ctx context.Context, id string) (string, error)
	IsChannelDefinitelyEmpty(ctx context.Context) bool
}

// CommandRunner executes a raw command line on behalf of a caller.
type CommandRunner interface {
	Run(ctx context.Context, call Call, commandLine string) (string, error)
}

// Messenger is the outbound chat channel.
type Messenger interface {
	Broadcast(ctx context.Context, text string)
	SendTo(ctx context.Context, id, text string)
}

// NameOf resolves a display name, falling back to the raw identity.
func NameOf(ctx context.Context, p Presence, id string) string {
	if p == nil || id == "" {
		return id
	}
	name, err := p.DisplayName(ctx, id)
	if err != nil || name == "" {
		return id
	}
	return name
}
