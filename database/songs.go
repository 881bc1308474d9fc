package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const songColumns = "id, title, artists_text, duration_text, thumbnail_url, liked_at, total_play_time_ms"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (Song, error) {
	var s Song
	var likedAt sql.NullInt64
	if err := row.Scan(&s.ID, &s.Title, &s.ArtistsText, &s.DurationText, &s.ThumbnailURL, &likedAt, &s.TotalPlayTimeMs); err != nil {
		return s, err
	}
	s.LikedAt = fromMillis(likedAt)
	return s, nil
}

func scanSongs(rows *sql.Rows) ([]Song, error) {
	defer rows.Close()

	songs := []Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

// UpsertSong inserts a song or refreshes its metadata. Like state and
// accumulated play time are never touched. Artist and album rows and their
// associations are merged in the same transaction.
func (d *DB) UpsertSong(ctx context.Context, rec SongRecord) error {
	if rec.ID == "" || rec.Title == "" {
		return ErrInvalidSong
	}
	now := time.Now().UnixMilli()

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO Song (id, title, artists_text, duration_text, thumbnail_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artists_text = excluded.artists_text,
			duration_text = excluded.duration_text,
			thumbnail_url = excluded.thumbnail_url`,
			rec.ID, rec.Title, rec.ArtistsText, rec.DurationText, rec.ThumbnailURL)
		if err != nil {
			return err
		}

		for _, artist := range rec.Artists {
			if artist.ID == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO Artist (id, name, timestamp) VALUES (?, ?, ?)", artist.ID, artist.Name, now); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO SongArtistMap (song_id, artist_id) VALUES (?, ?)", rec.ID, artist.ID); err != nil {
				return err
			}
		}

		if rec.Album != nil && rec.Album.ID != "" {
			if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO Album (id, title, authors_text, timestamp) VALUES (?, ?, ?, ?)", rec.Album.ID, rec.Album.Title, rec.ArtistsText, now); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO SongAlbumMap (song_id, album_id) VALUES (?, ?)", rec.ID, rec.Album.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert song %s: %w", rec.ID, err)
	}

	d.tracker.notify(TableSong, TableArtist, TableAlbum, TableSongArtistMap, TableSongAlbumMap)
	return nil
}

// RecordPlay logs a play event and adds playTime to the song's total, atomically.
func (d *DB) RecordPlay(ctx context.Context, songID string, playTime time.Duration) error {
	return d.RecordPlayAt(ctx, songID, playTime, time.Now())
}

// RecordPlayAt is RecordPlay with an explicit event timestamp.
func (d *DB) RecordPlayAt(ctx context.Context, songID string, playTime time.Duration, at time.Time) error {
	ms := playTime.Milliseconds()

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE Song SET total_play_time_ms = total_play_time_ms + ? WHERE id = ?", ms, songID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrSongNotFound
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO Event (song_id, timestamp, play_time) VALUES (?, ?, ?)", songID, at.UnixMilli(), ms)
		return err
	})
	if err != nil {
		return fmt.Errorf("record play for %s: %w", songID, err)
	}

	d.tracker.notify(TableSong, TableEvent)
	return nil
}

// Like sets (or clears, when likedAt is nil) the like timestamp and reports
// how many rows changed. Zero means the song is not cached yet.
func (d *DB) Like(ctx context.Context, songID string, likedAt *time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, "UPDATE Song SET liked_at = ? WHERE id = ?", toMillis(likedAt), songID)
	if err != nil {
		return 0, fmt.Errorf("like %s: %w", songID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		d.tracker.notify(TableSong)
	}
	return n, nil
}

// LikedAt returns when the song was liked, or nil.
func (d *DB) LikedAt(ctx context.Context, songID string) (*time.Time, error) {
	var likedAt sql.NullInt64
	err := d.db.QueryRowContext(ctx, "SELECT liked_at FROM Song WHERE id = ?", songID).Scan(&likedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromMillis(likedAt), nil
}

// Song returns one cached song.
func (d *DB) Song(ctx context.Context, id string) (*Song, error) {
	s, err := scanSong(d.db.QueryRowContext(ctx, "SELECT "+songColumns+" FROM Song WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Songs lists cached songs.
func (d *DB) Songs(ctx context.Context, q SongQuery) ([]Song, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+songColumns+" FROM Song"+q.where()+q.orderBy())
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	return scanSongs(rows)
}

// ObserveSongs streams Songs(q) now and after every change to the Song table.
func (d *DB) ObserveSongs(ctx context.Context, q SongQuery) <-chan []Song {
	return Observe(ctx, d, []Table{TableSong}, func(ctx context.Context) ([]Song, error) {
		return d.Songs(ctx, q)
	})
}

// Trending returns the songs with the most play time, weighting each event
// down by how many days ago it happened.
func (d *DB) Trending(ctx context.Context, now time.Time, limit int) ([]Song, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := d.db.QueryContext(ctx, `
	SELECT Song.id, Song.title, Song.artists_text, Song.duration_text, Song.thumbnail_url, Song.liked_at, Song.total_play_time_ms
	FROM Event JOIN Song ON Song.id = Event.song_id
	GROUP BY Event.song_id
	ORDER BY SUM(CAST(Event.play_time AS REAL) / (((? - Event.timestamp) / 86400000) + 1)) DESC
	LIMIT ?`, now.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("query trending: %w", err)
	}
	return scanSongs(rows)
}

// ArtistSongs lists the cached songs associated with an artist.
func (d *DB) ArtistSongs(ctx context.Context, artistID string) ([]Song, error) {
	rows, err := d.db.QueryContext(ctx, `
	SELECT Song.id, Song.title, Song.artists_text, Song.duration_text, Song.thumbnail_url, Song.liked_at, Song.total_play_time_ms
	FROM Song JOIN SongArtistMap ON Song.id = SongArtistMap.song_id
	WHERE SongArtistMap.artist_id = ?
	ORDER BY Song.rowid DESC`, artistID)
	if err != nil {
		return nil, fmt.Errorf("query artist songs: %w", err)
	}
	return scanSongs(rows)
}

// Artists lists cached artists with how many cached songs each has.
func (d *DB) Artists(ctx context.Context) ([]Artist, error) {
	rows, err := d.db.QueryContext(ctx, `
	SELECT Artist.id, Artist.name, Artist.thumbnail_url, COUNT(SongArtistMap.song_id)
	FROM Artist LEFT JOIN SongArtistMap ON Artist.id = SongArtistMap.artist_id
	GROUP BY Artist.id
	ORDER BY Artist.name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("query artists: %w", err)
	}
	defer rows.Close()

	artists := []Artist{}
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.ThumbnailURL, &a.SongCount); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// EventsCount returns the number of recorded play events.
func (d *DB) EventsCount(ctx context.Context) (int64, error) {
	var n int64
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM Event").Scan(&n)
	return n, err
}

// ClearEvents deletes every play event. Accumulated play time is kept.
func (d *DB) ClearEvents(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM Event"); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	d.tracker.notify(TableEvent)
	return nil
}

// ClearEventsFor deletes the play events of one song.
func (d *DB) ClearEventsFor(ctx context.Context, songID string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM Event WHERE song_id = ?", songID); err != nil {
		return fmt.Errorf("clear events for %s: %w", songID, err)
	}
	d.tracker.notify(TableEvent)
	return nil
}

// DeleteUnreferencedSongs removes songs that are not liked, never played,
// have no events and belong to no playlist. It returns how many were removed.
func (d *DB) DeleteUnreferencedSongs(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
	DELETE FROM Song
	WHERE liked_at IS NULL
		AND total_play_time_ms = 0
		AND id NOT IN (SELECT song_id FROM SongPlaylistMap)
		AND id NOT IN (SELECT song_id FROM Event)`)
	if err != nil {
		return 0, fmt.Errorf("delete unreferenced songs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		d.tracker.notify(TableSong, TableSongArtistMap, TableSongAlbumMap, TableFormat)
	}
	return n, nil
}
