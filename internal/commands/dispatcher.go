// Package commands parses chat commands and runs them one at a time
// against the autofill and voting engines.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/autofill"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/queue"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/voting"
)

var (
	ErrNotACommand     = errors.New("commands start with !")
	ErrUnknownCommand  = errors.New("unknown command")
	unexpectedErrorMsg = "An unexpected error occurred."
)

// ActivityTracker records listener activity for idle detection.
type ActivityTracker interface {
	Touch(id string) bool
}

// Dispatcher serializes every command and playback event. Queue hooks run
// inside the caller's critical section and reach the engines directly.
type Dispatcher struct {
	mu       sync.Mutex
	autofill *autofill.Engine
	voting   *voting.Engine
	runner   jukebox.CommandRunner
	queue    *queue.Queue
	chat     jukebox.Messenger
	activity ActivityTracker
	logger   *zap.Logger
}

func NewDispatcher(af *autofill.Engine, vt *voting.Engine, runner jukebox.CommandRunner, q *queue.Queue, chat jukebox.Messenger, activity ActivityTracker, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		autofill: af,
		voting:   vt,
		runner:   runner,
		queue:    q,
		chat:     chat,
		activity: activity,
		logger:   logger.With(zap.String("component", "dispatcher")),
	}
	q.SetHooks(queue.Hooks{
		OnFinished: d.resourceEnded,
		OnStopped:  d.playbackStopped,
	})
	return d
}

// Handle runs one chat command. Errors are reported to the invoker before
// being returned.
func (d *Dispatcher) Handle(ctx context.Context, call jukebox.Call, text string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.activity != nil {
		d.activity.Touch(call.Invoker)
	}
	reply, whisper, err := d.handle(ctx, call, text)
	if err != nil {
		d.report(ctx, call, err)
		return "", err
	}
	if whisper && reply != "" {
		d.chat.SendTo(ctx, call.Invoker, reply)
	}
	return reply, nil
}

func (d *Dispatcher) handle(ctx context.Context, call jukebox.Call, text string) (string, bool, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return "", false, ErrNotACommand
	}
	name, args := splitCommand(text)

	switch name {
	case "":
		return "", false, ErrNotACommand
	case "autofill":
		return d.handleAutofill(ctx, call, args)
	case "vote":
		if args == "" {
			return d.votesText(), true, nil
		}
		command, rest, _ := strings.Cut(args, " ")
		return "", false, d.voting.CastVote(ctx, call.Invoker, call.Channel, command, strings.TrimSpace(rest))
	case "votes":
		return d.votesText(), true, nil
	case "pause", "previous", "stop", "clear", "front", "skip":
		reply, err := d.runner.Run(ctx, call, text)
		if err != nil {
			return "", false, err
		}
		if reply != "" {
			d.chat.Broadcast(ctx, reply)
		}
		return reply, false, nil
	default:
		return "", false, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}

// handleAutofill treats "status" and "off" as keywords, never as playlist
// ids. The catalog refuses to create playlists with those ids.
func (d *Dispatcher) handleAutofill(ctx context.Context, call jukebox.Call, args string) (string, bool, error) {
	switch strings.ToLower(args) {
	case "status":
		return d.autofill.StatusText(ctx), true, nil
	case "off":
		d.autofill.Disable(ctx, call.Invoker)
		return "Autofill disabled.", false, nil
	}
	msg, err := d.autofill.Configure(ctx, call.Invoker, strings.Fields(args))
	return msg, false, err
}

// Configure is the HTTP entry point to autofill configuration.
func (d *Dispatcher) Configure(ctx context.Context, issuer string, playlists []string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.autofill.Configure(ctx, issuer, playlists)
}

func (d *Dispatcher) DisableAutofill(ctx context.Context, issuer string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.autofill.Disable(ctx, issuer)
}

func (d *Dispatcher) AutofillStatus() autofill.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.autofill.Status()
}

func (d *Dispatcher) CastVote(ctx context.Context, call jukebox.Call, command, args string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activity != nil {
		d.activity.Touch(call.Invoker)
	}
	return d.voting.CastVote(ctx, call.Invoker, call.Channel, command, args)
}

func (d *Dispatcher) Votes() []voting.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.voting.Active()
}

// PlaybackFinished ends the current song as if it played to the end.
func (d *Dispatcher) PlaybackFinished(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Finish(ctx)
}

// PlaybackStopped reports that the player went idle without a song ending.
func (d *Dispatcher) PlaybackStopped(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playbackStopped(ctx)
}

// Tick advances the player clock.
func (d *Dispatcher) Tick(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue.Tick(ctx)
}

// StartTicker starts a background worker that checks for finished songs
// and advances the queue.
func (d *Dispatcher) StartTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.Tick(ctx)
			}
		}
	}()
}

func (d *Dispatcher) resourceEnded(ctx context.Context) {
	d.voting.OnResourceEnd(ctx)
	d.autofill.OnPlaybackStopped(ctx)
}

func (d *Dispatcher) playbackStopped(ctx context.Context) {
	d.autofill.OnPlaybackStopped(ctx)
}

func (d *Dispatcher) votesText() string {
	votes := d.voting.Active()
	if len(votes) == 0 {
		return "There are no running votes."
	}
	var b strings.Builder
	b.WriteString("Running votes:")
	for _, v := range votes {
		line := v.Command
		if v.Args != "" {
			line += " " + v.Args
		}
		fmt.Fprintf(&b, "\n%s (%d/%d)", line, len(v.Voters), v.Needed)
	}
	return b.String()
}

func (d *Dispatcher) report(ctx context.Context, call jukebox.Call, err error) {
	if msg, ok := UserMessage(err); ok {
		d.logger.Info("command rejected", zap.String("invoker", call.Invoker), zap.Error(err))
		d.chat.SendTo(ctx, call.Invoker, msg)
		return
	}
	d.logger.Error("command failed", zap.String("invoker", call.Invoker), zap.String("channel", call.Channel), zap.Error(err))
	d.chat.SendTo(ctx, call.Invoker, unexpectedErrorMsg)
}

// UserMessage returns the chat-safe text for expected errors.
func UserMessage(err error) (string, bool) {
	var cmdErr *jukebox.CommandError
	switch {
	case errors.Is(err, autofill.ErrInvalidPlaylist),
		errors.Is(err, autofill.ErrInternal),
		errors.Is(err, voting.ErrNotVotable),
		errors.Is(err, voting.ErrInvalidArguments),
		errors.Is(err, voting.ErrVoteAlreadyInProgress),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, ErrNotACommand):
		return capitalize(err.Error()), true
	case errors.As(err, &cmdErr):
		return capitalize(cmdErr.Error()), true
	}
	return "", false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
