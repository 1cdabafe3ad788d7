// Package autofill keeps the play queue filled with random songs from the
// playlist catalog once every queued item has been played.
package autofill

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/events"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

type Engine struct {
	catalog  jukebox.Catalog
	queue    jukebox.Queue
	presence jukebox.Presence
	chat     jukebox.Messenger
	sink     events.Sink
	logger   *zap.Logger
	intn     func(n int) int

	state *state
	// stopping guards OnPlaybackStopped against re-entry from the queue.
	stopping bool
}

type Option func(*Engine)

// WithRand replaces the uniform random source, intn(n) must return [0, n).
func WithRand(intn func(n int) int) Option {
	return func(e *Engine) { e.intn = intn }
}

func WithEvents(sink events.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func New(catalog jukebox.Catalog, queue jukebox.Queue, presence jukebox.Presence, chat jukebox.Messenger, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		queue:    queue,
		presence: presence,
		chat:     chat,
		sink:     events.Discard,
		logger:   zap.NewNop(),
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "autofill"))
	return e
}

// Configure enables, reconfigures or disables autofill depending on the
// current state and the given playlist ids, then starts playback when the
// player is idle. It returns the announced status text.
func (e *Engine) Configure(ctx context.Context, issuer string, playlistIDs []string) (string, error) {
	ids, err := e.resolve(ctx, playlistIDs)
	if err != nil {
		return "", err
	}

	next := e.transition(issuer, ids)
	if next == nil {
		e.state = nil
		msg := fmt.Sprintf("%s disabled autofill.", jukebox.NameOf(ctx, e.presence, issuer))
		e.logger.Info("autofill disabled", zap.String("issuer", issuer))
		e.announce(ctx, msg, "disabled")
		return msg, nil
	}

	pending, err := e.draw(ctx, next)
	if err != nil {
		return "", err
	}
	next.pending = &pending
	e.state = next
	e.logger.Info("autofill configured",
		zap.String("issuer", issuer),
		zap.Strings("playlists", next.filter),
		zap.String("pending", pending.Song.ResourceID))

	if !e.queue.IsPlaying() {
		e.OnPlaybackStopped(ctx)
	}

	msg := e.changeText(ctx, issuer)
	e.announce(ctx, msg, "configured")
	return msg, nil
}

// Disable turns autofill off unconditionally.
func (e *Engine) Disable(ctx context.Context, issuer string) {
	e.state = nil
	e.logger.Info("autofill disabled", zap.String("issuer", issuer))
	e.announce(ctx, fmt.Sprintf("%s disabled autofill.", jukebox.NameOf(ctx, e.presence, issuer)), "disabled")
}

// OnPlaybackStopped enqueues the pending song once the queue has been fully
// consumed. Nested calls while one is running return immediately.
func (e *Engine) OnPlaybackStopped(ctx context.Context) {
	if e.stopping {
		e.logger.Debug("playback stopped while already filling, ignoring")
		return
	}
	e.stopping = true
	defer func() { e.stopping = false }()

	if e.state == nil {
		return
	}
	if e.queue.CurrentIndex() != len(e.queue.History()) {
		return
	}

	if e.presence.IsChannelDefinitelyEmpty(ctx) {
		e.logger.Info("voice channel is empty, disabling autofill")
		e.state = nil
		e.announce(ctx, "Autofill has been disabled because nobody is listening.", "channel empty")
		return
	}

	for attempt := 1; attempt <= enqueueAttempts; attempt++ {
		err := e.playNext(ctx)
		if err == nil {
			return
		}
		e.logger.Warn("autofill attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if e.state == nil {
			return
		}
	}

	e.logger.Error("autofill gave up", zap.Int("attempts", enqueueAttempts))
	e.state = nil
	e.announce(ctx, fmt.Sprintf("Autofill could not queue a song after %d attempts and has been disabled.", enqueueAttempts), "retries exhausted")
}

// DrawRandom draws a song with the current filter without touching state.
func (e *Engine) DrawRandom(ctx context.Context) (jukebox.QueueItem, error) {
	if e.state == nil {
		return e.draw(ctx, &state{})
	}
	return e.draw(ctx, e.state)
}

func (e *Engine) Status() Status {
	if e.state == nil {
		return Status{}
	}
	s := Status{
		Enabled:   true,
		Playlists: append([]string(nil), e.state.filter...),
		Issuer:    e.state.issuer,
	}
	if e.state.pending != nil {
		song := e.state.pending.Song
		s.Pending = &song
	}
	return s
}

// StatusText renders the status for chat.
func (e *Engine) StatusText(ctx context.Context) string {
	if e.state == nil {
		return "Autofill is disabled."
	}
	return fmt.Sprintf("Autofill is enabled %s (last changed by %s).",
		e.sourceText(), jukebox.NameOf(ctx, e.presence, e.state.issuer))
}

func (e *Engine) playNext(ctx context.Context) error {
	st := e.state
	item := st.pending
	st.pending = nil
	if item == nil {
		drawn, err := e.draw(ctx, st)
		if err != nil {
			return err
		}
		item = &drawn
	}

	if err := e.queue.Enqueue(ctx, *item); err != nil {
		return fmt.Errorf("enqueue %q: %w", item.Song.ResourceID, err)
	}
	e.logger.Info("autofill queued song",
		zap.String("resource", item.Song.ResourceID),
		zap.String("title", item.Song.Title))

	if e.state != st {
		return nil
	}
	next, err := e.draw(ctx, st)
	if err != nil {
		// the next exhaustion draws on demand
		e.logger.Warn("pre-draw failed", zap.Error(err))
		return nil
	}
	st.pending = &next
	return nil
}

func (e *Engine) draw(ctx context.Context, st *state) (jukebox.QueueItem, error) {
	all, err := e.catalog.ListAvailable(ctx)
	if err != nil {
		return jukebox.QueueItem{}, fmt.Errorf("list playlists: %w", err)
	}

	var playlists []jukebox.PlaylistInfo
	total := 0
	for _, p := range all {
		if p.SongCount <= 0 || !st.allows(p.ID) {
			continue
		}
		playlists = append(playlists, p)
		total += p.SongCount
	}
	if total == 0 {
		return jukebox.QueueItem{}, fmt.Errorf("%w: no songs available", ErrInternal)
	}

	history := e.queue.History()
	var found *jukebox.QueueItem
	for attempt := 1; attempt <= drawAttempts; attempt++ {
		pl, offset := locate(playlists, e.intn(total))
		songs, err := e.catalog.LoadSongs(ctx, pl.ID)
		if err != nil {
			e.logger.Warn("could not load playlist", zap.String("playlist", pl.ID), zap.Error(err))
			continue
		}
		if len(songs) != pl.SongCount {
			e.logger.Warn("playlist song count mismatch, catalog may be corrupted",
				zap.String("playlist", pl.ID),
				zap.Int("expected", pl.SongCount),
				zap.Int("actual", len(songs)))
		}
		if offset >= len(songs) {
			continue
		}

		playlistID := pl.ID
		item := jukebox.QueueItem{
			ID:          uuid.NewString(),
			Song:        songs[offset],
			PlaylistID:  &playlistID,
			Contributor: st.issuer,
		}
		found = &item
		if !recentlyPlayed(history, item.Song) {
			return item, nil
		}
		e.logger.Debug("drew a recently played song", zap.String("resource", item.Song.ResourceID), zap.Int("attempt", attempt))
	}

	if found == nil {
		e.logger.Error("could not resolve any song", zap.Int("songs", total))
		return jukebox.QueueItem{}, fmt.Errorf("%w: could not resolve a song from %d candidates", ErrInternal, total)
	}
	return *found, nil
}

func (e *Engine) resolve(ctx context.Context, raw []string) ([]string, error) {
	var ids []string
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		id, err := e.catalog.ResolveID(ctx, r)
		if errors.Is(err, jukebox.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPlaylist, r)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve playlist %q: %w", r, err)
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// transition returns the next state or nil when autofill must turn off.
func (e *Engine) transition(issuer string, ids []string) *state {
	cur := e.state
	switch {
	case cur == nil && len(ids) == 0:
		return &state{issuer: issuer}
	case cur == nil:
		return &state{filter: ids, issuer: issuer}
	case cur.filter == nil && len(ids) == 0:
		return nil
	case len(ids) > 0:
		return &state{filter: ids, issuer: issuer}
	default:
		return &state{issuer: issuer}
	}
}

func (e *Engine) changeText(ctx context.Context, issuer string) string {
	name := jukebox.NameOf(ctx, e.presence, issuer)
	if e.state == nil {
		return fmt.Sprintf("%s tried to enable autofill, but it has been disabled again.", name)
	}
	return fmt.Sprintf("%s enabled autofill %s.", name, e.sourceText())
}

func (e *Engine) sourceText() string {
	if e.state.filter == nil {
		return "from all playlists"
	}
	return "from playlists " + strings.Join(e.state.filter, ", ")
}

func (e *Engine) announce(ctx context.Context, msg, reason string) {
	e.chat.Broadcast(ctx, msg)
	e.sink.Publish(ctx, e.Status().event(reason))
}

func locate(playlists []jukebox.PlaylistInfo, index int) (jukebox.PlaylistInfo, int) {
	for _, p := range playlists {
		if index < p.SongCount {
			return p, index
		}
		index -= p.SongCount
	}
	last := playlists[len(playlists)-1]
	return last, last.SongCount - 1
}

// recentlyPlayed scans the trailing window newest first.
func recentlyPlayed(history []jukebox.QueueItem, song jukebox.Song) bool {
	stop := len(history) - historyWindow
	if stop < 0 {
		stop = 0
	}
	for i := len(history) - 1; i >= stop; i-- {
		if history[i].Song.ResourceID == song.ResourceID {
			return true
		}
	}
	return false
}
