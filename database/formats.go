package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertFormat records the stream format last resolved for a cached song.
// Formats of songs that are not cached are rejected with ErrSongNotFound.
func (d *DB) UpsertFormat(ctx context.Context, f Format) error {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM Song WHERE id = ?", f.SongID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSongNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
	INSERT INTO Format (song_id, itag, mime_type, bitrate, content_length, last_modified, loudness_db)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(song_id) DO UPDATE SET
		itag = excluded.itag,
		mime_type = excluded.mime_type,
		bitrate = excluded.bitrate,
		content_length = excluded.content_length,
		last_modified = excluded.last_modified,
		loudness_db = excluded.loudness_db`,
		f.SongID, f.Itag, f.MimeType, f.Bitrate, f.ContentLength, f.LastModified, f.LoudnessDB)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert format for %s: %w", f.SongID, err)
	}
	d.tracker.notify(TableFormat)
	return nil
}

// Format returns the recorded format of a song.
func (d *DB) Format(ctx context.Context, songID string) (*Format, error) {
	var f Format
	var loudness sql.NullFloat64
	err := d.db.QueryRowContext(ctx, `
	SELECT song_id, itag, mime_type, bitrate, content_length, last_modified, loudness_db
	FROM Format WHERE song_id = ?`, songID).
		Scan(&f.SongID, &f.Itag, &f.MimeType, &f.Bitrate, &f.ContentLength, &f.LastModified, &loudness)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, err
	}
	if loudness.Valid {
		f.LoudnessDB = &loudness.Float64
	}
	return &f, nil
}
