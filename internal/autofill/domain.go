package autofill

import (
	"errors"
	"slices"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/events"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

const (
	// historyWindow is how many trailing queue entries are checked for repeats.
	historyWindow = 250
	// drawAttempts bounds the redraws of a duplicate song.
	drawAttempts = 5
	// enqueueAttempts bounds the take-enqueue-predraw cycle on exhaustion.
	enqueueAttempts = 10
)

var (
	ErrInvalidPlaylist = errors.New("invalid playlist")
	ErrInternal        = errors.New("autofill internal error")
)

// state is the live autofill configuration. A nil *state means disabled.
type state struct {
	// filter holds canonical playlist ids; nil means every playlist.
	filter  []string
	issuer  string
	pending *jukebox.QueueItem
}

func (s *state) allows(playlistID string) bool {
	if s.filter == nil {
		return true
	}
	return slices.Contains(s.filter, playlistID)
}

// Status is a read-only snapshot of the engine configuration.
type Status struct {
	Enabled   bool          `json:"enabled"`
	Playlists []string      `json:"playlists,omitempty"`
	Issuer    string        `json:"issuer,omitempty"`
	Pending   *jukebox.Song `json:"pending,omitempty"`
}

func (s Status) event(reason string) events.AutofillStateChanged {
	ev := events.AutofillStateChanged{
		Enabled:   s.Enabled,
		Playlists: s.Playlists,
		Issuer:    s.Issuer,
		Reason:    reason,
	}
	if s.Pending != nil {
		ev.Pending = s.Pending.ResourceID
	}
	return ev
}
