package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreatePlaylist creates a playlist and returns its id.
func (d *DB) CreatePlaylist(ctx context.Context, name, browseID string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrInvalidName
	}
	res, err := d.db.ExecContext(ctx, "INSERT INTO Playlist (name, browse_id) VALUES (?, ?)", name, browseID)
	if err != nil {
		return 0, fmt.Errorf("create playlist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	d.tracker.notify(TablePlaylist)
	return id, nil
}

// RenamePlaylist changes a playlist's name.
func (d *DB) RenamePlaylist(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	res, err := d.db.ExecContext(ctx, "UPDATE Playlist SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("rename playlist %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlaylistNotFound
	}
	d.tracker.notify(TablePlaylist)
	return nil
}

// DeletePlaylist deletes a playlist. Its song memberships cascade; the songs stay.
func (d *DB) DeletePlaylist(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM Playlist WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete playlist %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlaylistNotFound
	}
	d.tracker.notify(TablePlaylist, TableSongPlaylistMap)
	return nil
}

// Playlists lists playlists with their song counts, newest first.
func (d *DB) Playlists(ctx context.Context) ([]PlaylistPreview, error) {
	rows, err := d.db.QueryContext(ctx, `
	SELECT Playlist.id, Playlist.name, Playlist.browse_id, COUNT(SongPlaylistMap.song_id)
	FROM Playlist LEFT JOIN SongPlaylistMap ON Playlist.id = SongPlaylistMap.playlist_id
	GROUP BY Playlist.id
	ORDER BY Playlist.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []PlaylistPreview{}
	for rows.Next() {
		var p PlaylistPreview
		if err := rows.Scan(&p.ID, &p.Name, &p.BrowseID, &p.SongCount); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// ObservePlaylists streams the playlist previews, re-emitting whenever a
// playlist or a membership changes.
func (d *DB) ObservePlaylists(ctx context.Context) <-chan []PlaylistPreview {
	return Observe(ctx, d, []Table{TablePlaylist, TableSongPlaylistMap}, d.Playlists)
}

// PlaylistSongs lists a playlist's songs in position order.
func (d *DB) PlaylistSongs(ctx context.Context, playlistID int64) ([]Song, error) {
	if err := d.playlistExists(ctx, d.db, playlistID); err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, `
	SELECT Song.id, Song.title, Song.artists_text, Song.duration_text, Song.thumbnail_url, Song.liked_at, Song.total_play_time_ms
	FROM SongPlaylistMap JOIN Song ON Song.id = SongPlaylistMap.song_id
	WHERE SongPlaylistMap.playlist_id = ?
	ORDER BY SongPlaylistMap.position ASC`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("query playlist songs: %w", err)
	}
	return scanSongs(rows)
}

// AddToPlaylist appends a cached song to a playlist. Adding a song that is
// already a member is a no-op.
func (d *DB) AddToPlaylist(ctx context.Context, playlistID int64, songID string) error {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if err := d.playlistExists(ctx, tx, playlistID); err != nil {
			return err
		}
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM Song WHERE id = ?", songID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSongNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO SongPlaylistMap (song_id, playlist_id, position)
		SELECT ?, ?, COALESCE(MAX(position) + 1, 0) FROM SongPlaylistMap WHERE playlist_id = ?
		ON CONFLICT(song_id, playlist_id) DO NOTHING`, songID, playlistID, playlistID)
		return err
	})
	if err != nil {
		return fmt.Errorf("add %s to playlist %d: %w", songID, playlistID, err)
	}

	d.tracker.notify(TableSongPlaylistMap)
	return nil
}

// RemoveFromPlaylist removes a song from a playlist and closes the gap in positions.
func (d *DB) RemoveFromPlaylist(ctx context.Context, playlistID int64, songID string) error {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var position int64
		err := tx.QueryRowContext(ctx, "SELECT position FROM SongPlaylistMap WHERE playlist_id = ? AND song_id = ?", playlistID, songID).Scan(&position)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSongNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM SongPlaylistMap WHERE playlist_id = ? AND song_id = ?", playlistID, songID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE SongPlaylistMap SET position = position - 1 WHERE playlist_id = ? AND position > ?", playlistID, position)
		return err
	})
	if err != nil {
		return fmt.Errorf("remove %s from playlist %d: %w", songID, playlistID, err)
	}

	d.tracker.notify(TableSongPlaylistMap)
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *DB) playlistExists(ctx context.Context, q queryRower, id int64) error {
	var exists int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM Playlist WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPlaylistNotFound
	}
	return err
}
