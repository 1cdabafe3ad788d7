package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

func setupMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return New(mock, zap.NewNop()), mock
}

func TestListAvailable(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT p.id, p.name, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "count"}).
			AddRow("rock", "Rock", int64(3)).
			AddRow("empty", "Nothing yet", int64(0)))

	got, err := s.ListAvailable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []jukebox.PlaylistInfo{
		{ID: "rock", Name: "Rock", SongCount: 3},
		{ID: "empty", Name: "Nothing yet", SongCount: 0},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAvailableQueryError(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT p.id").WillReturnError(errors.New("connection refused"))

	_, err := s.ListAvailable(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestResolveID(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()

	t.Run("CaseInsensitive", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM playlists WHERE lower").
			WithArgs("ROCK").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("rock"))

		id, err := s.ResolveID(context.Background(), " ROCK ")
		require.NoError(t, err)
		assert.Equal(t, "rock", id)
	})

	t.Run("Unknown", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM playlists WHERE lower").
			WithArgs("jazz").
			WillReturnError(pgx.ErrNoRows)

		_, err := s.ResolveID(context.Background(), "jazz")
		assert.ErrorIs(t, err, jukebox.ErrNotFound)
	})

	t.Run("Blank", func(t *testing.T) {
		_, err := s.ResolveID(context.Background(), "  ")
		assert.ErrorIs(t, err, jukebox.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadSongs(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT resource_id, title, artist, duration_ms").
		WithArgs("rock").
		WillReturnRows(pgxmock.NewRows([]string{"resource_id", "title", "artist", "duration_ms"}).
			AddRow("yt:1", "First", "Band", int64(180000)).
			AddRow("yt:2", "Second", "", int64(0)))

	songs, err := s.LoadSongs(context.Background(), "rock")
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, jukebox.Song{ResourceID: "yt:1", Title: "First", Artist: "Band", Duration: 3 * time.Minute}, songs[0])
	assert.Equal(t, "yt:2", songs[1].ResourceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadSongsError(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT resource_id").
		WithArgs("rock").
		WillReturnError(errors.New("timeout"))

	_, err := s.LoadSongs(context.Background(), "rock")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "rock", loadErr.PlaylistID)
}

func TestCreatePlaylist(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO playlists").
			WithArgs("rock", "Rock").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, s.CreatePlaylist(context.Background(), "rock", " Rock "))
	})

	t.Run("MissingName", func(t *testing.T) {
		err := s.CreatePlaylist(context.Background(), "rock", "")
		assert.ErrorIs(t, err, ErrInvalidPlaylist)
	})

	t.Run("ReservedID", func(t *testing.T) {
		for _, id := range []string{"off", "Status"} {
			err := s.CreatePlaylist(context.Background(), id, "Keyword")
			assert.ErrorIs(t, err, ErrReservedID)
		}
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddSong(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO playlist_songs").
			WithArgs("rock", "yt:1", "yt:1", "", int64(1500)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := s.AddSong(context.Background(), "rock", jukebox.Song{ResourceID: "yt:1", Duration: 1500 * time.Millisecond})
		require.NoError(t, err)
	})

	t.Run("UnknownPlaylist", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO playlist_songs").
			WithArgs("jazz", "yt:1", "Song", "", int64(0)).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		err := s.AddSong(context.Background(), "jazz", jukebox.Song{ResourceID: "yt:1", Title: "Song"})
		assert.ErrorIs(t, err, jukebox.ErrNotFound)
	})

	t.Run("NoResource", func(t *testing.T) {
		err := s.AddSong(context.Background(), "rock", jukebox.Song{Title: "Song"})
		assert.ErrorIs(t, err, ErrInvalidSong)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePlaylist(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM playlists").
		WithArgs("rock").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, s.DeletePlaylist(context.Background(), "rock"), jukebox.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutoMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS playlists").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS playlist_songs").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE UNIQUE INDEX IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, AutoMigrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}
