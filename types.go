package main

import (
	"encoding/json"
	"music-api-go/services/innertube"
	"music-api-go/services/pager"
)

// PlayRequest is the body of POST /songs/{id}/play
type PlayRequest struct {
	Item       json.RawMessage `json:"item"`
	PlayTimeMs int64           `json:"playTimeMs"`
}

// LikeRequest is the body of POST /songs/{id}/like
type LikeRequest struct {
	Item  json.RawMessage `json:"item"`
	Liked bool            `json:"liked"`
}

// PlaylistSongRequest is the body of POST /library/playlists/{id}/songs
type PlaylistSongRequest struct {
	Item json.RawMessage `json:"item"`
}

// PlaylistRequest is the body for creating or renaming a playlist
type PlaylistRequest struct {
	Name     string `json:"name"`
	BrowseID string `json:"browseId,omitempty"`
}

// SearchHistorySetting is the body and response of /settings/search-history
type SearchHistorySetting struct {
	Paused bool `json:"paused"`
}

// SyncAccepted is returned by fire-and-forget sync triggers
type SyncAccepted struct {
	Queued bool `json:"queued"`
}

// SearchAllResponse is an accumulated search
type SearchAllResponse struct {
	*pager.Result[innertube.Item]
	Partial bool   `json:"partial"`
	Error   string `json:"error,omitempty"`
}

// PlaylistResponse is a playlist header plus one page or all of its songs
type PlaylistResponse struct {
	Header       innertube.PlaylistHeader `json:"header"`
	Songs        []*innertube.SongItem    `json:"songs"`
	Continuation string                   `json:"continuation,omitempty"`
	StopReason   pager.StopReason         `json:"stopReason,omitempty"`
	Partial      bool                     `json:"partial,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

// QuickPicksResponse is the related feed of the top trending local song
type QuickPicksResponse struct {
	SeedSongID string             `json:"seedSongId,omitempty"`
	Related    *innertube.Related `json:"related"`
}

// DatabaseStats summarizes the local cache
type DatabaseStats struct {
	Path         string `json:"path"`
	Songs        int    `json:"songs"`
	LikedSongs   int    `json:"likedSongs"`
	Playlists    int    `json:"playlists"`
	Events       int64  `json:"events"`
	SearchCount  int64  `json:"searchQueries"`
	LiveQueries  int    `json:"liveQueries"`
	BackupCount  int    `json:"backups"`
	HistoryPause bool   `json:"searchHistoryPaused"`
}

// decodeItem reads a catalog item posted back by the UI. Videos carry
// "type":"video"; everything else is read as a song.
func decodeItem(raw json.RawMessage) (innertube.Item, error) {
	if len(raw) == 0 {
		return nil, badRequest("item is required")
	}
	var head struct {
		Type innertube.ItemKind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, badRequest("invalid item: %v", err)
	}

	var item innertube.Item
	switch head.Type {
	case innertube.KindVideo:
		item = &innertube.VideoItem{}
	case innertube.KindSong, "":
		item = &innertube.SongItem{}
	default:
		return nil, badRequest("item of type %q is not playable", head.Type)
	}
	if err := json.Unmarshal(raw, item); err != nil {
		return nil, badRequest("invalid item: %v", err)
	}
	return item, nil
}
