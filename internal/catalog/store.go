package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

var (
	ErrInvalidPlaylist = errors.New("playlist id and name are required")
	ErrInvalidSong     = errors.New("invalid song")
	ErrReservedID      = errors.New("playlist id is reserved")
)

// reservedIDs are the !autofill keywords, which could never be selected as
// playlists from chat.
var reservedIDs = []string{"off", "status"}

// LoadError is returned when the songs of a playlist could not be read.
type LoadError struct {
	PlaylistID string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load playlist %s: %v", e.PlaylistID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type Store struct {
	db     DB
	logger *zap.Logger
}

var _ jukebox.Catalog = (*Store)(nil)

func New(db DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "catalog"))}
}

func (s *Store) ListAvailable(ctx context.Context) ([]jukebox.PlaylistInfo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.name, COUNT(ps.position)
		FROM playlists p
		LEFT JOIN playlist_songs ps ON ps.playlist_id = p.id
		GROUP BY p.id, p.name
		ORDER BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var out []jukebox.PlaylistInfo
	for rows.Next() {
		var (
			p     jukebox.PlaylistInfo
			count int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &count); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		p.SongCount = int(count)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return out, nil
}

// ResolveID matches an id case-insensitively and returns the stored form.
func (s *Store) ResolveID(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", jukebox.ErrNotFound
	}
	var id string
	err := s.db.QueryRow(ctx, `SELECT id FROM playlists WHERE lower(id) = lower($1)`, raw).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", jukebox.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve playlist %q: %w", raw, err)
	}
	return id, nil
}

func (s *Store) LoadSongs(ctx context.Context, id string) ([]jukebox.Song, error) {
	rows, err := s.db.Query(ctx, `
		SELECT resource_id, title, artist, duration_ms
		FROM playlist_songs
		WHERE playlist_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, &LoadError{PlaylistID: id, Err: err}
	}
	defer rows.Close()

	var songs []jukebox.Song
	for rows.Next() {
		var (
			song jukebox.Song
			ms   int64
		)
		if err := rows.Scan(&song.ResourceID, &song.Title, &song.Artist, &ms); err != nil {
			return nil, &LoadError{PlaylistID: id, Err: err}
		}
		song.Duration = time.Duration(ms) * time.Millisecond
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{PlaylistID: id, Err: err}
	}
	return songs, nil
}

// CreatePlaylist inserts a playlist or renames an existing one.
func (s *Store) CreatePlaylist(ctx context.Context, id, name string) error {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" || name == "" {
		return ErrInvalidPlaylist
	}
	if slices.Contains(reservedIDs, strings.ToLower(id)) {
		return fmt.Errorf("%w: %s", ErrReservedID, id)
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO playlists (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, id, name)
	if err != nil {
		return fmt.Errorf("create playlist %s: %w", id, err)
	}
	s.logger.Info("playlist saved", zap.String("playlist", id))
	return nil
}

// AddSong appends a song to the end of a playlist.
func (s *Store) AddSong(ctx context.Context, playlistID string, song jukebox.Song) error {
	if strings.TrimSpace(song.ResourceID) == "" {
		return fmt.Errorf("%w: resource id is required", ErrInvalidSong)
	}
	if song.Title == "" {
		song.Title = song.ResourceID
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO playlist_songs (playlist_id, position, resource_id, title, artist, duration_ms)
		SELECT p.id,
		       COALESCE((SELECT MAX(position) + 1 FROM playlist_songs WHERE playlist_id = p.id), 0),
		       $2, $3, $4, $5
		FROM playlists p
		WHERE p.id = $1
	`, playlistID, song.ResourceID, song.Title, song.Artist, song.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("add song to %s: %w", playlistID, err)
	}
	if tag.RowsAffected() == 0 {
		return jukebox.ErrNotFound
	}
	return nil
}

// DeletePlaylist removes a playlist and its songs.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return jukebox.ErrNotFound
	}
	s.logger.Info("playlist deleted", zap.String("playlist", id))
	return nil
}
