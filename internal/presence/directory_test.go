package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

func TestDirectoryMembership(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory("bot", "lobby")

	d.Join("alice", "Alice", "lobby")
	d.Join("bob", "", "afk")
	d.Join("bob", "", "lobby")

	assert.Equal(t, 3, d.MembersOf(ctx, "lobby", nil))
	assert.Equal(t, 2, d.MembersOf(ctx, "lobby", func(id string) bool { return id != "bot" }))

	name, err := d.DisplayName(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", name)

	_, err = d.DisplayName(ctx, "nobody")
	assert.ErrorIs(t, err, jukebox.ErrNotFound)

	assert.True(t, d.Leave("alice"))
	assert.False(t, d.Leave("alice"))
	assert.False(t, d.Leave("bot"))
	assert.Len(t, d.List(), 2)
}

func TestDirectoryMuteAndIdle(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory("bot", "lobby")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	d.Join("alice", "Alice", "lobby")
	_, known := d.IdleTime(ctx, "alice")
	assert.False(t, known)

	require.True(t, d.Touch("alice"))
	now = now.Add(5 * time.Minute)
	idle, known := d.IdleTime(ctx, "alice")
	assert.True(t, known)
	assert.Equal(t, 5*time.Minute, idle)

	assert.False(t, d.IsMuted(ctx, "alice"))
	assert.True(t, d.SetMuted("alice", true))
	assert.True(t, d.IsMuted(ctx, "alice"))
	assert.False(t, d.SetMuted("ghost", true))
	assert.False(t, d.Touch("ghost"))
}

func TestIsChannelDefinitelyEmpty(t *testing.T) {
	ctx := context.Background()

	d := NewDirectory("bot", "")
	assert.False(t, d.IsChannelDefinitelyEmpty(ctx))

	d = NewDirectory("bot", "lobby")
	assert.True(t, d.IsChannelDefinitelyEmpty(ctx))

	d.Join("alice", "Alice", "lobby")
	assert.False(t, d.IsChannelDefinitelyEmpty(ctx))

	d.Join("alice", "Alice", "afk")
	assert.True(t, d.IsChannelDefinitelyEmpty(ctx))
}
