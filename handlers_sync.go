package main

import (
	"encoding/json"
	"music-api-go/database"
	"music-api-go/services/cachesync"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid body: %v", err)
	}
	return nil
}

// songRecordFrom validates a posted item against the {id} path segment and
// converts it into the row the cache writes.
func songRecordFrom(r *http.Request, raw json.RawMessage) (database.SongRecord, error) {
	item, err := decodeItem(raw)
	if err != nil {
		return database.SongRecord{}, err
	}
	rec, ok := cachesync.SongRecord(item)
	if !ok {
		return database.SongRecord{}, badRequest("item needs an id and a title")
	}
	if id, ok := mux.Vars(r)["id"]; ok && id != rec.ID {
		return database.SongRecord{}, badRequest("item id %q does not match path id %q", rec.ID, id)
	}
	return rec, nil
}

func accepted(w http.ResponseWriter, r *http.Request, queued bool) {
	Respond(w, r).Status(http.StatusAccepted, SyncAccepted{Queued: queued})
}

// playSongHandler caches the song and records a play.
func playSongHandler(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := decodeBody(r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if req.PlayTimeMs < 0 {
		Respond(w, r).Fail(badRequest("playTimeMs must not be negative"))
		return
	}
	rec, err := songRecordFrom(r, req.Item)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}

	accepted(w, r, syncPolicy.OnPlay(rec, time.Duration(req.PlayTimeMs)*time.Millisecond))
}

// likeSongHandler sets or clears the like, caching the song first if needed.
func likeSongHandler(w http.ResponseWriter, r *http.Request) {
	var req LikeRequest
	if err := decodeBody(r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	rec, err := songRecordFrom(r, req.Item)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}

	var likedAt *time.Time
	if req.Liked {
		now := time.Now()
		likedAt = &now
	}
	accepted(w, r, syncPolicy.OnLike(rec, likedAt))
}

// addPlaylistSongHandler caches the song and appends it to a local playlist.
func addPlaylistSongHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		Respond(w, r).Fail(badRequest("invalid playlist id"))
		return
	}
	var req PlaylistSongRequest
	if err := decodeBody(r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	item, err := decodeItem(req.Item)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	rec, ok := cachesync.SongRecord(item)
	if !ok {
		Respond(w, r).Fail(badRequest("item needs an id and a title"))
		return
	}

	accepted(w, r, syncPolicy.OnAddToPlaylist(rec, playlistID))
}
