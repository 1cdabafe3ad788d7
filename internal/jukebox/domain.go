package jukebox

import (
	"encoding/json"
	"fmt"
	"time"
)

// Song is a playable resource reference. Two songs are the same song when
// their ResourceID matches.
type Song struct {
	ResourceID string        `json:"resourceId"`
	Title      string        `json:"title"`
	Artist     string        `json:"artist,omitempty"`
	Duration   time.Duration `json:"-"`
}

type songJSON struct {
	ResourceID string `json:"resourceId"`
	Title      string `json:"title"`
	Artist     string `json:"artist,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// MarshalJSON writes the duration in milliseconds.
func (s Song) MarshalJSON() ([]byte, error) {
	return json.Marshal(songJSON{
		ResourceID: s.ResourceID,
		Title:      s.Title,
		Artist:     s.Artist,
		DurationMs: s.Duration.Milliseconds(),
	})
}

func (s *Song) UnmarshalJSON(data []byte) error {
	var v songJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Song{
		ResourceID: v.ResourceID,
		Title:      v.Title,
		Artist:     v.Artist,
		Duration:   time.Duration(v.DurationMs) * time.Millisecond,
	}
	return nil
}

// QueueItem is a song that is (or will be) part of the play queue.
type QueueItem struct {
	ID          string  `json:"id"`
	Song        Song    `json:"song"`
	PlaylistID  *string `json:"playlistId,omitempty"`
	Contributor string  `json:"contributor"`
}

// PlaylistInfo is the catalog summary of one playlist.
type PlaylistInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SongCount int    `json:"songCount"`
}

// Call identifies who invoked a command and from which channel.
type Call struct {
	Invoker string
	Channel string
}

// CommandError is returned by a CommandRunner when the command itself failed.
// Its message is safe to show in chat.
type CommandError struct {
	Command string
	Msg     string
}

func (e *CommandError) Error() string {
	if e.Command == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Msg)
}
