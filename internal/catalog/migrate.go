package catalog

import (
	"context"
	"fmt"
)

func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS playlists (
          id          TEXT PRIMARY KEY,
          name        TEXT NOT NULL,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return fmt.Errorf("migrate playlists: %w", err)
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS playlist_songs (
          playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
          position    INT NOT NULL,
          resource_id TEXT NOT NULL,
          title       TEXT NOT NULL,
          artist      TEXT NOT NULL DEFAULT '',
          duration_ms BIGINT NOT NULL DEFAULT 0,
          PRIMARY KEY (playlist_id, position)
      )
    `); err != nil {
		return fmt.Errorf("migrate playlist_songs: %w", err)
	}

	if _, err := db.Exec(ctx, `
      CREATE UNIQUE INDEX IF NOT EXISTS playlists_lower_id_idx ON playlists (lower(id))
    `); err != nil {
		return fmt.Errorf("migrate playlist index: %w", err)
	}
	return nil
}
