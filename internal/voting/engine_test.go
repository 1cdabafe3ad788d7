package voting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/chat"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/events"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

const channel = "lobby"

func call(invoker string) jukebox.Call {
	return jukebox.Call{Invoker: invoker, Channel: channel}
}

func newPresence(members ...string) *jukebox.MockPresence {
	p := &jukebox.MockPresence{}
	p.On("MembersOf", mock.Anything, channel).Return(members).Maybe()
	p.On("IsMuted", mock.Anything, "muted").Return(true).Maybe()
	p.On("IsMuted", mock.Anything, mock.Anything).Return(false).Maybe()
	p.On("IdleTime", mock.Anything, "idle").Return(idleLimit, true).Maybe()
	p.On("IdleTime", mock.Anything, "unknown").Return(time.Duration(0), false).Maybe()
	p.On("IdleTime", mock.Anything, mock.Anything).Return(time.Second, true).Maybe()
	p.On("DisplayName", mock.Anything, "alice").Return("Alice", nil).Maybe()
	p.On("DisplayName", mock.Anything, mock.Anything).Return("", jukebox.ErrNotFound).Maybe()
	return p
}

type fixture struct {
	engine *Engine
	runner *jukebox.MockRunner
	chat   *chat.Channel
	events []events.VoteChanged
}

func newFixture(presence jukebox.Presence) *fixture {
	f := &fixture{runner: &jukebox.MockRunner{}, chat: chat.NewChannel(0, nil, nil)}
	sink := events.SinkFunc(func(_ context.Context, ev events.Event) {
		if vc, ok := ev.(events.VoteChanged); ok {
			f.events = append(f.events, vc)
		}
	})
	f.engine = New(presence, f.runner, f.chat, "bot", WithEvents(sink))
	return f
}

func (f *fixture) texts() []string {
	var out []string
	for _, m := range f.chat.Recent() {
		out = append(out, m.Text)
	}
	return out
}

func TestQuorum(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 1, 3: 1, 4: 2, 5: 2, 6: 3, 9: 4}
	for eligible, want := range cases {
		assert.Equal(t, want, quorum(eligible), "eligible=%d", eligible)
	}
}

func TestVotePassesAtQuorum(t *testing.T) {
	ctx := context.Background()
	f := newFixture(newPresence("bot", "alice", "bob", "carol", "dave"))
	f.runner.On("Run", mock.Anything, call("alice"), "pause").Return("Playback paused.", nil).Once()

	require.NoError(t, f.engine.CastVote(ctx, "alice", channel, "pause", ""))
	active := f.engine.Active()
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].Needed)
	assert.Equal(t, []string{"alice"}, active[0].Voters)

	require.NoError(t, f.engine.CastVote(ctx, "bob", channel, "pause", ""))
	assert.Empty(t, f.engine.Active())
	f.runner.AssertExpectations(t)

	assert.Equal(t, []string{
		`Alice started a vote for "pause" (1/2).`,
		`bob voted for "pause" (2/2).`,
		`The vote for "pause" passed (2/2), executing.`,
		"Playback paused.",
	}, f.texts())

	require.Len(t, f.events, 3)
	assert.Equal(t, events.VoteAdded, f.events[0].Action)
	assert.Equal(t, events.VoteAdded, f.events[1].Action)
	assert.Equal(t, events.VoteCompleted, f.events[2].Action)
	assert.Equal(t, 2, f.events[2].VoterCount)
}

func TestLoneListenerPassesImmediately(t *testing.T) {
	f := newFixture(newPresence("bot", "alice"))
	f.runner.On("Run", mock.Anything, call("alice"), "skip 2").Return("", nil).Once()

	require.NoError(t, f.engine.CastVote(context.Background(), "alice", channel, "Skip", "2"))
	assert.Empty(t, f.engine.Active())
	f.runner.AssertExpectations(t)
}

func TestToggleWithdrawsBallot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(newPresence("alice", "bob", "carol", "dave", "erin", "frank"))

	require.NoError(t, f.engine.CastVote(ctx, "alice", channel, "stop", ""))
	require.NoError(t, f.engine.CastVote(ctx, "bob", channel, "stop", ""))
	require.NoError(t, f.engine.CastVote(ctx, "bob", channel, "stop", ""))

	active := f.engine.Active()
	require.Len(t, active, 1)
	assert.Equal(t, []string{"alice"}, active[0].Voters)
	assert.Equal(t, `bob withdrew a vote for "stop" (1/3).`, f.texts()[2])

	require.NoError(t, f.engine.CastVote(ctx, "alice", channel, "stop", ""))
	assert.Empty(t, f.engine.Active())
	assert.Equal(t, `The vote for "stop" has been cancelled.`, f.texts()[3])
	assert.Equal(t, events.VoteRemoved, f.events[len(f.events)-1].Action)
	assert.Zero(t, f.events[len(f.events)-1].VoterCount)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestVoteValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(newPresence("alice", "bob", "carol", "dave"))

	err := f.engine.CastVote(ctx, "alice", channel, "volume", "")
	assert.ErrorIs(t, err, ErrNotVotable)

	err = f.engine.CastVote(ctx, "alice", channel, "pause", "now")
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.Contains(t, err.Error(), "!vote pause")

	err = f.engine.CastVote(ctx, "alice", channel, "front", " ")
	assert.ErrorIs(t, err, ErrInvalidArguments)

	err = f.engine.CastVote(ctx, "alice", channel, "skip", "many")
	assert.ErrorIs(t, err, ErrInvalidArguments)

	assert.Empty(t, f.engine.Active())
	assert.Empty(t, f.texts())
}

func TestVoteAlreadyInProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(newPresence("alice", "bob", "carol", "dave"))

	require.NoError(t, f.engine.CastVote(ctx, "alice", channel, "front", "song-a"))
	err := f.engine.CastVote(ctx, "bob", channel, "front", "song-b")
	require.ErrorIs(t, err, ErrVoteAlreadyInProgress)
	assert.Contains(t, err.Error(), "front song-a")

	active := f.engine.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "song-a", active[0].Args)
	assert.Equal(t, []string{"alice"}, active[0].Voters)
}

func TestEligibilityExcludesSelfMutedAndIdle(t *testing.T) {
	f := newFixture(newPresence("bot", "muted", "idle", "unknown", "alice", "bob", "carol", "dave"))

	require.NoError(t, f.engine.CastVote(context.Background(), "alice", channel, "clear", ""))
	active := f.engine.Active()
	require.Len(t, active, 1)
	// unknown, alice, bob, carol, dave
	assert.Equal(t, 2, active[0].Needed)
}

func TestResourceEndCancelsBoundVotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(newPresence("alice", "bob", "carol", "dave"))

	require.NoError(t, f.engine.CastVote(ctx, "alice", channel, "skip", ""))
	require.NoError(t, f.engine.CastVote(ctx, "alice", channel, "previous", ""))
	require.NoError(t, f.engine.CastVote(ctx, "alice", channel, "pause", ""))

	f.engine.OnResourceEnd(ctx)

	active := f.engine.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "pause", active[0].Command)

	texts := f.texts()
	assert.Equal(t, []string{
		`The vote for "previous" has been cancelled because the song ended.`,
		`The vote for "skip" has been cancelled because the song ended.`,
	}, texts[len(texts)-2:])
}

func TestFailedActionIsReported(t *testing.T) {
	ctx := context.Background()

	t.Run("CommandError", func(t *testing.T) {
		f := newFixture(newPresence("alice"))
		f.runner.On("Run", mock.Anything, call("alice"), "previous").
			Return("", &jukebox.CommandError{Command: "previous", Msg: "there is no previous song"})

		require.NoError(t, f.engine.CastVote(ctx, "alice", channel, "previous", ""))
		texts := f.texts()
		assert.Equal(t, `Could not execute "previous": there is no previous song`, texts[len(texts)-1])
		assert.Empty(t, f.engine.Active())
	})

	t.Run("Unexpected", func(t *testing.T) {
		f := newFixture(newPresence("alice"))
		f.runner.On("Run", mock.Anything, call("alice"), "clear").Return("", errors.New("socket closed"))

		require.NoError(t, f.engine.CastVote(ctx, "alice", channel, "clear", ""))
		texts := f.texts()
		assert.Equal(t, `An unexpected error occurred while executing "clear".`, texts[len(texts)-1])
		assert.NotContains(t, texts[len(texts)-1], "socket")
	})
}
