package database

import (
	"context"
	"fmt"
	"music-api-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS Song (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	artists_text TEXT NOT NULL DEFAULT '',
	duration_text TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	liked_at INTEGER,
	total_play_time_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS Artist (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	timestamp INTEGER,
	bookmarked_at INTEGER
);

CREATE TABLE IF NOT EXISTS Album (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	year TEXT NOT NULL DEFAULT '',
	authors_text TEXT NOT NULL DEFAULT '',
	timestamp INTEGER,
	bookmarked_at INTEGER
);

CREATE TABLE IF NOT EXISTS Playlist (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	browse_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS SongPlaylistMap (
	song_id TEXT NOT NULL REFERENCES Song(id) ON DELETE CASCADE,
	playlist_id INTEGER NOT NULL REFERENCES Playlist(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	PRIMARY KEY (song_id, playlist_id)
);

CREATE TABLE IF NOT EXISTS SongArtistMap (
	song_id TEXT NOT NULL REFERENCES Song(id) ON DELETE CASCADE,
	artist_id TEXT NOT NULL REFERENCES Artist(id) ON DELETE CASCADE,
	PRIMARY KEY (song_id, artist_id)
);

CREATE TABLE IF NOT EXISTS SongAlbumMap (
	song_id TEXT NOT NULL REFERENCES Song(id) ON DELETE CASCADE,
	album_id TEXT NOT NULL REFERENCES Album(id) ON DELETE CASCADE,
	position INTEGER,
	PRIMARY KEY (song_id, album_id)
);

CREATE TABLE IF NOT EXISTS SearchQuery (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS Event (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	song_id TEXT NOT NULL REFERENCES Song(id) ON DELETE CASCADE,
	timestamp INTEGER NOT NULL,
	play_time INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS Format (
	song_id TEXT PRIMARY KEY REFERENCES Song(id) ON DELETE CASCADE,
	itag INTEGER NOT NULL DEFAULT 0,
	mime_type TEXT NOT NULL DEFAULT '',
	bitrate INTEGER NOT NULL DEFAULT 0,
	content_length INTEGER NOT NULL DEFAULT 0,
	last_modified INTEGER NOT NULL DEFAULT 0,
	loudness_db REAL
);

CREATE INDEX IF NOT EXISTS idx_event_song_id ON Event(song_id);
CREATE INDEX IF NOT EXISTS idx_song_playlist_map_playlist_id ON SongPlaylistMap(playlist_id);
CREATE INDEX IF NOT EXISTS idx_song_artist_map_artist_id ON SongArtistMap(artist_id);
`

// migrate creates any missing tables. It is idempotent and also runs after a restore.
func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Debugf("%s Schema up to date", logcolors.LogDatabaseMigrate)
	return nil
}
