package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/queue"
)

// Runner executes playback command lines against the queue.
type Runner struct {
	queue  *queue.Queue
	logger *zap.Logger
}

var _ jukebox.CommandRunner = (*Runner)(nil)

func NewRunner(q *queue.Queue, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{queue: q, logger: logger.With(zap.String("component", "runner"))}
}

func (r *Runner) Run(ctx context.Context, call jukebox.Call, commandLine string) (string, error) {
	name, args := splitCommand(commandLine)
	r.logger.Info("run command", zap.String("command", name), zap.String("args", args), zap.String("invoker", call.Invoker))

	switch name {
	case "pause":
		paused, err := r.queue.TogglePause()
		if err != nil {
			return "", fail(name, err)
		}
		if paused {
			return "Playback paused.", nil
		}
		return "Playback resumed.", nil

	case "previous":
		if err := r.queue.Previous(ctx); err != nil {
			return "", fail(name, err)
		}
		return "Playing the previous song.", nil

	case "stop":
		if err := r.queue.Stop(ctx); err != nil {
			return "", fail(name, err)
		}
		return "Playback stopped.", nil

	case "clear":
		n := r.queue.Clear()
		return fmt.Sprintf("Removed %d upcoming song(s).", n), nil

	case "front":
		if args == "" {
			return "", &jukebox.CommandError{Command: name, Msg: "a song is required"}
		}
		item := jukebox.QueueItem{
			Song:        jukebox.Song{ResourceID: args, Title: args},
			Contributor: call.Invoker,
		}
		if err := r.queue.Front(ctx, item); err != nil {
			return "", fail(name, err)
		}
		return fmt.Sprintf("%q will play next.", args), nil

	case "skip":
		n := 1
		if args != "" {
			v, err := strconv.Atoi(args)
			if err != nil || v < 1 {
				return "", &jukebox.CommandError{Command: name, Msg: "count must be a positive number"}
			}
			n = v
		}
		if err := r.queue.Skip(ctx, call.Invoker, n); err != nil {
			return "", fail(name, err)
		}
		return fmt.Sprintf("Skipped %d song(s).", n), nil

	default:
		return "", &jukebox.CommandError{Command: name, Msg: "unknown command"}
	}
}

func fail(command string, err error) error {
	return &jukebox.CommandError{Command: command, Msg: err.Error()}
}

// splitCommand returns the lower-cased first word and the raw remainder.
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "!"))
	name, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(rest)
}
