// Package queue is an in-memory play queue with a simulated player clock.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

var (
	ErrUnplayable     = errors.New("song cannot be played")
	ErrNothingPlaying = errors.New("nothing is playing")
	ErrNoPrevious     = errors.New("there is no previous song")
)

// Hooks are called after the queue lock has been released. OnFinished fires
// when the current song ended (naturally or by skip/previous), OnStopped when
// playback stopped without a song ending, including rejected enqueues.
type Hooks struct {
	OnFinished func(ctx context.Context)
	OnStopped  func(ctx context.Context)
}

type Queue struct {
	mu      sync.Mutex
	items   []jukebox.QueueItem
	index   int
	playing bool
	paused  bool
	// played is the position accumulated before the last resume.
	played    time.Duration
	resumedAt time.Time

	hooks  Hooks
	now    func() time.Time
	logger *zap.Logger
}

func New(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		now:    time.Now,
		logger: logger.With(zap.String("component", "queue")),
	}
}

// SetHooks installs the playback listeners. Only one set is active.
func (q *Queue) SetHooks(h Hooks) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.hooks = h
}

// State is a snapshot for display.
type State struct {
	Items    []jukebox.QueueItem `json:"items"`
	Index    int                 `json:"index"`
	Playing  bool                `json:"playing"`
	Paused   bool                `json:"paused"`
	Position time.Duration       `json:"-"`
}

// MarshalJSON adds the position in milliseconds.
func (s State) MarshalJSON() ([]byte, error) {
	type plain State
	return json.Marshal(struct {
		plain
		PositionMs int64 `json:"positionMs"`
	}{plain(s), s.Position.Milliseconds()})
}

func (q *Queue) Snapshot() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return State{
		Items:    append([]jukebox.QueueItem(nil), q.items...),
		Index:    q.index,
		Playing:  q.playing,
		Paused:   q.paused,
		Position: q.positionLocked(),
	}
}

func (q *Queue) IsPlaying() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing
}

func (q *Queue) History() []jukebox.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]jukebox.QueueItem(nil), q.items...)
}

func (q *Queue) CurrentIndex() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.index
}

// Current returns the item at the current index, if any.
func (q *Queue) Current() (jukebox.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.index >= len(q.items) {
		return jukebox.QueueItem{}, false
	}
	return q.items[q.index], true
}

// Enqueue appends an item. When the queue was exhausted and idle the new
// item starts playing. A rejected item raises OnStopped before returning.
func (q *Queue) Enqueue(ctx context.Context, item jukebox.QueueItem) error {
	if item.Song.ResourceID == "" {
		q.logger.Warn("rejected unplayable item", zap.String("title", item.Song.Title))
		q.fire(ctx, q.stoppedHook())
		return ErrUnplayable
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	if !q.playing && q.index == len(q.items)-1 {
		q.startLocked()
	}
	q.mu.Unlock()

	q.logger.Debug("enqueued", zap.String("resource", item.Song.ResourceID), zap.String("contributor", item.Contributor))
	return nil
}

// Front inserts an item right after the current one.
func (q *Queue) Front(ctx context.Context, item jukebox.QueueItem) error {
	if item.Song.ResourceID == "" {
		return ErrUnplayable
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	at := q.index + 1
	if q.index >= len(q.items) {
		at = len(q.items)
	}
	q.items = append(q.items, jukebox.QueueItem{})
	copy(q.items[at+1:], q.items[at:])
	q.items[at] = item
	if !q.playing && q.index == at {
		q.startLocked()
	}
	return nil
}

// Advance moves to the next item.
func (q *Queue) Advance(ctx context.Context, invoker string) error {
	return q.Skip(ctx, invoker, 1)
}

// Skip moves n items forward and reports the current song as finished.
func (q *Queue) Skip(ctx context.Context, invoker string, n int) error {
	if n < 1 {
		n = 1
	}
	q.mu.Lock()
	if q.index >= len(q.items) {
		q.mu.Unlock()
		return ErrNothingPlaying
	}
	q.index += n
	if q.index > len(q.items) {
		q.index = len(q.items)
	}
	q.moveLocked()
	hook := q.hooks.OnFinished
	q.mu.Unlock()

	q.logger.Info("skipped", zap.String("invoker", invoker), zap.Int("count", n))
	q.fire(ctx, hook)
	return nil
}

// Previous steps back one item and starts it.
func (q *Queue) Previous(ctx context.Context) error {
	q.mu.Lock()
	if q.index == 0 {
		q.mu.Unlock()
		return ErrNoPrevious
	}
	q.index--
	q.moveLocked()
	hook := q.hooks.OnFinished
	q.mu.Unlock()

	q.fire(ctx, hook)
	return nil
}

// TogglePause pauses or resumes playback and returns the new paused flag.
func (q *Queue) TogglePause() (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.playing {
		return false, ErrNothingPlaying
	}
	if q.paused {
		q.paused = false
		q.resumedAt = q.now()
	} else {
		q.played = q.positionLocked()
		q.paused = true
	}
	return q.paused, nil
}

// Stop halts playback, keeping the queue position.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.playing {
		q.mu.Unlock()
		return ErrNothingPlaying
	}
	q.playing = false
	q.paused = false
	q.played = 0
	hook := q.hooks.OnStopped
	q.mu.Unlock()

	q.fire(ctx, hook)
	return nil
}

// Clear drops every upcoming item and returns how many were removed.
// Played items and the current one stay in the history.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	keep := q.index + 1
	if keep > len(q.items) {
		keep = len(q.items)
	}
	removed := len(q.items) - keep
	q.items = q.items[:keep]
	return removed
}

// Tick finishes the current song once its duration has elapsed.
func (q *Queue) Tick(ctx context.Context) {
	q.mu.Lock()
	if !q.playing || q.paused || q.index >= len(q.items) {
		q.mu.Unlock()
		return
	}
	d := q.items[q.index].Song.Duration
	if d <= 0 || q.positionLocked() < d {
		q.mu.Unlock()
		return
	}
	finished := q.items[q.index].Song.ResourceID
	q.index++
	q.moveLocked()
	hook := q.hooks.OnFinished
	q.mu.Unlock()

	q.logger.Debug("song finished", zap.String("resource", finished))
	q.fire(ctx, hook)
}

// Finish ends the current song immediately, as if its duration elapsed.
func (q *Queue) Finish(ctx context.Context) error {
	return q.Skip(ctx, "", 1)
}

func (q *Queue) moveLocked() {
	if q.index < len(q.items) {
		q.startLocked()
		return
	}
	q.playing = false
	q.paused = false
	q.played = 0
}

func (q *Queue) startLocked() {
	q.playing = true
	q.paused = false
	q.played = 0
	q.resumedAt = q.now()
}

func (q *Queue) positionLocked() time.Duration {
	if !q.playing {
		return 0
	}
	if q.paused {
		return q.played
	}
	return q.played + q.now().Sub(q.resumedAt)
}

func (q *Queue) stoppedHook() func(context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hooks.OnStopped
}

func (q *Queue) fire(ctx context.Context, hook func(context.Context)) {
	if hook != nil {
		hook(ctx)
	}
}
