package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/autofill"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/catalog"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/commands"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/queue"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/voting"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusOf maps a domain error to its HTTP status. Zero means unexpected.
func statusOf(err error) int {
	var cmdErr *jukebox.CommandError
	switch {
	case errors.Is(err, jukebox.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, voting.ErrVoteAlreadyInProgress),
		errors.Is(err, queue.ErrNothingPlaying),
		errors.Is(err, queue.ErrNoPrevious),
		errors.As(err, &cmdErr):
		return http.StatusConflict
	case errors.Is(err, autofill.ErrInvalidPlaylist),
		errors.Is(err, voting.ErrNotVotable),
		errors.Is(err, voting.ErrInvalidArguments),
		errors.Is(err, commands.ErrNotACommand),
		errors.Is(err, commands.ErrUnknownCommand),
		errors.Is(err, catalog.ErrInvalidPlaylist),
		errors.Is(err, catalog.ErrInvalidSong),
		errors.Is(err, catalog.ErrReservedID):
		return http.StatusBadRequest
	case errors.Is(err, autofill.ErrInternal):
		return http.StatusServiceUnavailable
	}
	return 0
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if status := statusOf(err); status != 0 {
		writeError(w, status, err.Error())
		return
	}
	s.logger.Error("request failed", zapRequest(r, err)...)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
