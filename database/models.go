package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrSongNotFound     = errors.New("song not found")
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrInvalidSong      = errors.New("song id and title are required")
	ErrInvalidName      = errors.New("playlist name is required")
)

// Song is a cached song row.
type Song struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	ArtistsText     string     `json:"artistsText,omitempty"`
	DurationText    string     `json:"durationText,omitempty"`
	ThumbnailURL    string     `json:"thumbnailUrl,omitempty"`
	LikedAt         *time.Time `json:"likedAt,omitempty"`
	TotalPlayTimeMs int64      `json:"totalPlayTimeMs"`
}

// ArtistRef links a song to an artist by browse id.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AlbumRef links a song to an album by browse id.
type AlbumRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SongRecord is what gets written by UpsertSong: the song's metadata plus
// the artist and album rows it should be associated with.
type SongRecord struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	ArtistsText  string      `json:"artistsText,omitempty"`
	DurationText string      `json:"durationText,omitempty"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
	Artists      []ArtistRef `json:"artists,omitempty"`
	Album        *AlbumRef   `json:"album,omitempty"`
}

// Artist is a cached artist row.
type Artist struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	SongCount    int64  `json:"songCount"`
}

// Playlist is a local playlist.
type Playlist struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	BrowseID string `json:"browseId,omitempty"`
}

// PlaylistPreview is a playlist with its song count.
type PlaylistPreview struct {
	Playlist
	SongCount int64 `json:"songCount"`
}

// SearchQuery is a remembered search.
type SearchQuery struct {
	ID    int64  `json:"id"`
	Query string `json:"query"`
}

// Event is one recorded play.
type Event struct {
	ID         int64     `json:"id"`
	SongID     string    `json:"songId"`
	Timestamp  time.Time `json:"timestamp"`
	PlayTimeMs int64     `json:"playTimeMs"`
}

// Format is the audio stream format last used for a song.
type Format struct {
	SongID        string   `json:"songId"`
	Itag          int      `json:"itag"`
	MimeType      string   `json:"mimeType"`
	Bitrate       int64    `json:"bitrate"`
	ContentLength int64    `json:"contentLength,omitempty"`
	LastModified  int64    `json:"lastModified,omitempty"`
	LoudnessDB    *float64 `json:"loudnessDb,omitempty"`
}

// SongFilter restricts which songs a query returns.
type SongFilter string

const (
	FilterAll    SongFilter = "all"
	FilterPlayed SongFilter = "played"
	FilterLiked  SongFilter = "liked"
)

// SongSortBy selects the ordering column.
type SongSortBy string

const (
	SortByDateAdded SongSortBy = "date_added"
	SortByPlayTime  SongSortBy = "play_time"
	SortByTitle     SongSortBy = "title"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// SongQuery describes a filtered, sorted song listing.
type SongQuery struct {
	Filter SongFilter
	SortBy SongSortBy
	Order  SortOrder
}

// ParseSongQuery validates query string values. Empty values take defaults:
// all songs, newest first.
func ParseSongQuery(filter, sortBy, order string) (SongQuery, error) {
	q := SongQuery{Filter: FilterAll, SortBy: SortByDateAdded, Order: Descending}

	switch SongFilter(filter) {
	case "":
	case FilterAll, FilterPlayed, FilterLiked:
		q.Filter = SongFilter(filter)
	default:
		return q, fmt.Errorf("unknown filter %q", filter)
	}

	switch SongSortBy(sortBy) {
	case "":
	case SortByDateAdded, SortByPlayTime, SortByTitle:
		q.SortBy = SongSortBy(sortBy)
	default:
		return q, fmt.Errorf("unknown sort %q", sortBy)
	}

	switch SortOrder(order) {
	case "":
	case Ascending, Descending:
		q.Order = SortOrder(order)
	default:
		return q, fmt.Errorf("unknown order %q", order)
	}

	return q, nil
}

func (q SongQuery) where() string {
	switch q.Filter {
	case FilterPlayed:
		return " WHERE total_play_time_ms > 0"
	case FilterLiked:
		return " WHERE liked_at IS NOT NULL"
	default:
		return ""
	}
}

func (q SongQuery) orderBy() string {
	column := "rowid"
	switch q.SortBy {
	case SortByPlayTime:
		column = "total_play_time_ms"
	case SortByTitle:
		column = "title COLLATE NOCASE"
	}
	direction := "DESC"
	if q.Order == Ascending {
		direction = "ASC"
	}
	return " ORDER BY " + column + " " + direction
}

func toMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
