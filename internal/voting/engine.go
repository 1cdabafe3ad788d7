// Package voting lets the listeners of a channel approve disruptive
// playback commands together.
package voting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/events"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

// idleLimit excludes listeners idle for this long from the quorum base.
const idleLimit = 10 * time.Minute

var (
	ErrNotVotable            = errors.New("command cannot be voted on")
	ErrInvalidArguments      = errors.New("invalid arguments")
	ErrVoteAlreadyInProgress = errors.New("a vote for this command is already running")
)

type record struct {
	id        string
	command   string
	args      string
	channel   string
	voters    map[string]struct{}
	needed    int
	lifecycle Lifecycle
	createdAt time.Time
	action    func(ctx context.Context) (string, error)
}

func (r *record) line() string {
	if r.args == "" {
		return r.command
	}
	return r.command + " " + r.args
}

// Snapshot is a read-only view of a running vote.
type Snapshot struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Args      string    `json:"args,omitempty"`
	Voters    []string  `json:"voters"`
	Needed    int       `json:"needed"`
	CreatedAt time.Time `json:"createdAt"`
}

type Engine struct {
	presence jukebox.Presence
	runner   jukebox.CommandRunner
	chat     jukebox.Messenger
	sink     events.Sink
	logger   *zap.Logger
	self     string
	now      func() time.Time

	votes map[string]*record
}

type Option func(*Engine)

func WithEvents(sink events.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine. self is the service's own identity, which never
// counts towards the quorum.
func New(presence jukebox.Presence, runner jukebox.CommandRunner, chat jukebox.Messenger, self string, opts ...Option) *Engine {
	e := &Engine{
		presence: presence,
		runner:   runner,
		chat:     chat,
		sink:     events.Discard,
		logger:   zap.NewNop(),
		self:     self,
		now:      time.Now,
		votes:    make(map[string]*record),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "voting"))
	return e
}

// CastVote starts a vote or toggles the invoker's ballot on the running one.
func (e *Engine) CastVote(ctx context.Context, invoker, channel, command, args string) error {
	policy, ok := Lookup(command)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotVotable, command)
	}
	args = strings.TrimSpace(args)

	rec, live := e.votes[policy.Name]
	if !live {
		return e.start(ctx, policy, invoker, channel, args)
	}
	if args != "" {
		return fmt.Errorf("%w: %s", ErrVoteAlreadyInProgress, rec.line())
	}
	e.toggle(ctx, rec, invoker)
	return nil
}

// OnResourceEnd cancels every vote bound to the song that just ended.
func (e *Engine) OnResourceEnd(ctx context.Context) {
	for _, name := range e.sortedCommands() {
		rec := e.votes[name]
		if rec.lifecycle != CancelledOnResourceEnd {
			continue
		}
		delete(e.votes, name)
		e.logger.Info("vote cancelled by song end", zap.String("command", rec.line()), zap.Int("voters", len(rec.voters)))
		e.chat.Broadcast(ctx, fmt.Sprintf("The vote for %q has been cancelled because the song ended.", rec.line()))
		e.publish(ctx, rec, 0, events.VoteRemoved)
	}
}

// Active lists the running votes ordered by command name.
func (e *Engine) Active() []Snapshot {
	out := make([]Snapshot, 0, len(e.votes))
	for _, name := range e.sortedCommands() {
		rec := e.votes[name]
		voters := make([]string, 0, len(rec.voters))
		for v := range rec.voters {
			voters = append(voters, v)
		}
		sort.Strings(voters)
		out = append(out, Snapshot{
			ID:        rec.id,
			Command:   rec.command,
			Args:      rec.args,
			Voters:    voters,
			Needed:    rec.needed,
			CreatedAt: rec.createdAt,
		})
	}
	return out
}

func (e *Engine) start(ctx context.Context, policy Policy, invoker, channel, args string) error {
	if !policy.Accepts(args) {
		return fmt.Errorf("%w: usage is %s", ErrInvalidArguments, policy.Usage)
	}

	eligible := e.presence.MembersOf(ctx, channel, func(id string) bool {
		return e.eligible(ctx, id)
	})

	rec := &record{
		id:        uuid.NewString(),
		command:   policy.Name,
		args:      args,
		channel:   channel,
		voters:    map[string]struct{}{invoker: {}},
		needed:    quorum(eligible),
		lifecycle: policy.Lifecycle,
		createdAt: e.now(),
	}
	call := jukebox.Call{Invoker: invoker, Channel: channel}
	line := rec.line()
	rec.action = func(ctx context.Context) (string, error) {
		return e.runner.Run(ctx, call, line)
	}
	e.votes[policy.Name] = rec

	e.logger.Info("vote started",
		zap.String("vote_id", rec.id),
		zap.String("command", line),
		zap.String("invoker", invoker),
		zap.Int("eligible", eligible),
		zap.Int("needed", rec.needed))
	e.chat.Broadcast(ctx, fmt.Sprintf("%s started a vote for %q (%d/%d).",
		jukebox.NameOf(ctx, e.presence, invoker), line, len(rec.voters), rec.needed))
	e.publish(ctx, rec, len(rec.voters), events.VoteAdded)

	e.checkAndFire(ctx, rec)
	return nil
}

func (e *Engine) toggle(ctx context.Context, rec *record, invoker string) {
	name := jukebox.NameOf(ctx, e.presence, invoker)

	if _, voted := rec.voters[invoker]; voted {
		delete(rec.voters, invoker)
		if len(rec.voters) == 0 {
			delete(e.votes, rec.command)
			e.logger.Info("vote withdrawn by last voter", zap.String("command", rec.line()))
			e.chat.Broadcast(ctx, fmt.Sprintf("The vote for %q has been cancelled.", rec.line()))
			e.publish(ctx, rec, 0, events.VoteRemoved)
			return
		}
		e.chat.Broadcast(ctx, fmt.Sprintf("%s withdrew a vote for %q (%d/%d).", name, rec.line(), len(rec.voters), rec.needed))
		e.publish(ctx, rec, len(rec.voters), events.VoteRemoved)
		return
	}

	rec.voters[invoker] = struct{}{}
	e.chat.Broadcast(ctx, fmt.Sprintf("%s voted for %q (%d/%d).", name, rec.line(), len(rec.voters), rec.needed))
	e.publish(ctx, rec, len(rec.voters), events.VoteAdded)
	e.checkAndFire(ctx, rec)
}

// checkAndFire runs the action once quorum is met. The record is removed
// first so the action can never trigger the same vote again.
func (e *Engine) checkAndFire(ctx context.Context, rec *record) {
	if len(rec.voters) < rec.needed {
		return
	}
	if e.votes[rec.command] == rec {
		delete(e.votes, rec.command)
	}

	line := rec.line()
	e.logger.Info("vote passed", zap.String("vote_id", rec.id), zap.String("command", line), zap.Int("voters", len(rec.voters)))
	e.chat.Broadcast(ctx, fmt.Sprintf("The vote for %q passed (%d/%d), executing.", line, len(rec.voters), rec.needed))
	e.publish(ctx, rec, len(rec.voters), events.VoteCompleted)

	result, err := rec.action(ctx)
	if err != nil {
		var cmdErr *jukebox.CommandError
		if errors.As(err, &cmdErr) {
			e.logger.Warn("voted command failed", zap.String("command", line), zap.Error(err))
			e.chat.Broadcast(ctx, fmt.Sprintf("Could not execute %q: %s", line, cmdErr.Msg))
			return
		}
		e.logger.Error("voted command failed unexpectedly", zap.String("command", line), zap.Error(err))
		e.chat.Broadcast(ctx, fmt.Sprintf("An unexpected error occurred while executing %q.", line))
		return
	}
	if result != "" {
		e.chat.Broadcast(ctx, result)
	}
}

// eligible excludes the service itself, muted listeners and listeners idle
// for idleLimit. Missing idle data counts as active.
func (e *Engine) eligible(ctx context.Context, id string) bool {
	if id == e.self {
		return false
	}
	if e.presence.IsMuted(ctx, id) {
		return false
	}
	idle, known := e.presence.IdleTime(ctx, id)
	return !known || idle < idleLimit
}

func (e *Engine) publish(ctx context.Context, rec *record, voters int, action events.VoteAction) {
	e.sink.Publish(ctx, events.VoteChanged{
		VoteID:     rec.id,
		Command:    rec.command,
		VoterCount: voters,
		Needed:     rec.needed,
		Action:     action,
	})
}

func (e *Engine) sortedCommands() []string {
	names := make([]string, 0, len(e.votes))
	for name := range e.votes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func quorum(eligible int) int {
	return max(eligible/2, 1)
}
