// Package httpapi is the HTTP surface of the jukebox: chat command entry,
// engine state, player and presence signals, playlist management and the
// dashboard feed.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/chat"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/commands"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/presence"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/queue"
)

const (
	headerUser    = "X-User-Id"
	headerChannel = "X-Channel-Id"
)

// PlaylistStore is the writable playlist catalog.
type PlaylistStore interface {
	jukebox.Catalog
	CreatePlaylist(ctx context.Context, id, name string) error
	AddSong(ctx context.Context, playlistID string, song jukebox.Song) error
	DeletePlaylist(ctx context.Context, id string) error
}

type Deps struct {
	Dispatcher *commands.Dispatcher
	Queue      *queue.Queue
	Listeners  *presence.Directory
	Chat       *chat.Channel
	Playlists  PlaylistStore
	// Feed serves the dashboard websocket, nil disables /ws.
	Feed   http.HandlerFunc
	Logger *zap.Logger
}

type Server struct {
	Deps
	logger *zap.Logger
}

func NewRouter(deps Deps, middlewares ...func(http.Handler) http.Handler) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{Deps: deps, logger: logger.With(zap.String("component", "http"))}

	r := chi.NewRouter()
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"service": "jukebox",
		})
	})

	r.Post("/commands", s.handleCommand)

	r.Get("/autofill", s.handleGetAutofill)
	r.Put("/autofill", s.handlePutAutofill)
	r.Delete("/autofill", s.handleDeleteAutofill)

	r.Get("/votes", s.handleListVotes)
	r.Post("/votes/{command}", s.handleVote)

	r.Get("/queue", s.handleGetQueue)
	r.Post("/queue/finished", s.handleFinished)

	r.Get("/listeners", s.handleListListeners)
	r.Put("/listeners/{id}", s.handlePutListener)
	r.Delete("/listeners/{id}", s.handleDeleteListener)
	r.Post("/listeners/{id}/activity", s.handleActivity)

	r.Get("/chat", s.handleChat)

	r.Get("/playlists", s.handleListPlaylists)
	r.Put("/playlists/{id}", s.handlePutPlaylist)
	r.Delete("/playlists/{id}", s.handleDeletePlaylist)
	r.Get("/playlists/{id}/songs", s.handleListSongs)
	r.Post("/playlists/{id}/songs", s.handleAddSong)

	if s.Feed != nil {
		r.Get("/ws", s.Feed)
	}

	return r
}

// DefaultMiddlewares is the stack used in production.
func DefaultMiddlewares(logger *zap.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60 * time.Second),
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func zapRequest(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
}
