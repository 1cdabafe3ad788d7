package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

type commandRequest struct {
	Text string `json:"text"`
}

type autofillRequest struct {
	Playlists []string `json:"playlists"`
}

type voteRequest struct {
	Args string `json:"args"`
}

type listenerRequest struct {
	Name    string `json:"name"`
	Channel string `json:"channel"`
	Muted   bool   `json:"muted"`
}

type playlistRequest struct {
	Name string `json:"name"`
}

// caller resolves the invoking identity from the request headers. The
// channel defaults to the listener's current one.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (jukebox.Call, bool) {
	id := strings.TrimSpace(r.Header.Get(headerUser))
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing "+headerUser)
		return jukebox.Call{}, false
	}
	ch := strings.TrimSpace(r.Header.Get(headerChannel))
	if ch == "" {
		ch, _ = s.Listeners.ChannelOf(id)
	}
	return jukebox.Call{Invoker: id, Channel: ch}, true
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	call, ok := s.caller(w, r)
	if !ok {
		return
	}
	var body commandRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	reply, err := s.Dispatcher.Handle(r.Context(), call, body.Text)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reply": reply})
}

func (s *Server) handleGetAutofill(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Dispatcher.AutofillStatus())
}

func (s *Server) handlePutAutofill(w http.ResponseWriter, r *http.Request) {
	call, ok := s.caller(w, r)
	if !ok {
		return
	}
	var body autofillRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := s.Dispatcher.Configure(r.Context(), call.Invoker, body.Playlists)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"status":  s.Dispatcher.AutofillStatus(),
	})
}

func (s *Server) handleDeleteAutofill(w http.ResponseWriter, r *http.Request) {
	call, ok := s.caller(w, r)
	if !ok {
		return
	}
	s.Dispatcher.DisableAutofill(r.Context(), call.Invoker)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Dispatcher.Votes()})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	call, ok := s.caller(w, r)
	if !ok {
		return
	}
	var body voteRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	if err := s.Dispatcher.CastVote(r.Context(), call, chi.URLParam(r, "command"), body.Args); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Dispatcher.Votes()})
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Queue.Snapshot())
}

func (s *Server) handleFinished(w http.ResponseWriter, r *http.Request) {
	if err := s.Dispatcher.PlaybackFinished(r.Context()); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Queue.Snapshot())
}

func (s *Server) handleListListeners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Listeners.List()})
}

func (s *Server) handlePutListener(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body listenerRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Channel) == "" {
		writeError(w, http.StatusBadRequest, "channel is required")
		return
	}

	s.Listeners.Join(id, body.Name, body.Channel)
	s.Listeners.SetMuted(id, body.Muted)
	s.logger.Debug("listener updated", zap.String("listener", id), zap.String("channel", body.Channel))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteListener(w http.ResponseWriter, r *http.Request) {
	if !s.Listeners.Leave(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "listener not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if !s.Listeners.Touch(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "listener not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Chat.Public()})
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	items, err := s.Playlists.ListAvailable(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []jukebox.PlaylistInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handlePutPlaylist(w http.ResponseWriter, r *http.Request) {
	var body playlistRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.Playlists.CreatePlaylist(r.Context(), chi.URLParam(r, "id"), body.Name); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.Playlists.DeletePlaylist(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	id, err := s.Playlists.ResolveID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	songs, err := s.Playlists.LoadSongs(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if songs == nil {
		songs = []jukebox.Song{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "items": songs})
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	var song jukebox.Song
	if err := decodeJSON(r, &song); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.Playlists.AddSong(r.Context(), chi.URLParam(r, "id"), song); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
