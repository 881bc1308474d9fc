package cachesync

import (
	"music-api-go/database"
	"music-api-go/services/innertube"
)

// SongRecord converts a playable catalog item into the row UpsertSong writes.
// Only songs and videos are playable; other kinds report false.
func SongRecord(item innertube.Item) (database.SongRecord, bool) {
	switch it := item.(type) {
	case *innertube.SongItem:
		if it == nil || it.ID == "" || it.Info.Name == "" {
			return database.SongRecord{}, false
		}
		rec := database.SongRecord{
			ID:           it.ID,
			Title:        it.Info.Name,
			ArtistsText:  it.AuthorsText(),
			DurationText: it.DurationText,
			ThumbnailURL: thumbnailURL(it.Thumbnail),
			Artists:      artistRefs(it.Authors),
		}
		if it.Album != nil && it.Album.BrowseID() != "" {
			rec.Album = &database.AlbumRef{ID: it.Album.BrowseID(), Title: it.Album.Name}
		}
		return rec, true

	case *innertube.VideoItem:
		if it == nil || it.ID == "" || it.Info.Name == "" {
			return database.SongRecord{}, false
		}
		return database.SongRecord{
			ID:           it.ID,
			Title:        it.Info.Name,
			ArtistsText:  it.AuthorsText(),
			DurationText: it.DurationText,
			ThumbnailURL: thumbnailURL(it.Thumbnail),
			Artists:      artistRefs(it.Authors),
		}, true
	}
	return database.SongRecord{}, false
}

// FormatRecord converts a resolved player response into a Format row.
func FormatRecord(media *innertube.PlayableMedia) (database.Format, bool) {
	if media == nil || media.Format == nil || media.VideoID == "" {
		return database.Format{}, false
	}
	f := database.Format{
		SongID:        media.VideoID,
		Itag:          media.Format.Itag,
		MimeType:      media.Format.MimeType,
		Bitrate:       media.Format.Bitrate,
		ContentLength: media.Format.ContentLength,
		LastModified:  media.Format.LastModified,
	}
	if media.LoudnessDB != 0 {
		loudness := media.LoudnessDB
		f.LoudnessDB = &loudness
	}
	return f, true
}

func artistRefs(authors []innertube.Info) []database.ArtistRef {
	var refs []database.ArtistRef
	for _, a := range authors {
		if id := a.BrowseID(); id != "" {
			refs = append(refs, database.ArtistRef{ID: id, Name: a.Name})
		}
	}
	return refs
}

func thumbnailURL(t *innertube.Thumbnail) string {
	if t == nil {
		return ""
	}
	return t.URL
}
