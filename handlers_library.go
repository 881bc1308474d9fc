package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"music-api-go/database"
	"music-api-go/logcolors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// streamHeartbeat keeps idle event streams alive through proxies.
var streamHeartbeat = 30 * time.Second

func songQueryFrom(r *http.Request) (database.SongQuery, error) {
	q := r.URL.Query()
	sq, err := database.ParseSongQuery(q.Get("filter"), q.Get("sort"), q.Get("order"))
	if err != nil {
		return sq, badRequest("%v", err)
	}
	return sq, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", name)
	}
	return n, nil
}

func playlistIDFrom(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, badRequest("invalid playlist id")
	}
	return id, nil
}

func songsHandler(w http.ResponseWriter, r *http.Request) {
	q, err := songQueryFrom(r)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	songs, err := library.Songs(r.Context(), q)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(songs)
}

// streamSnapshots writes each value from updates as one Server-Sent Event
// until the stream or the client goes away.
func streamSnapshots[T any](w http.ResponseWriter, r *http.Request, updates <-chan T) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		Respond(w, r).Fail(errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case v, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(v)
			if err != nil {
				log.Errorf("%s Failed to encode snapshot: %v", logcolors.LogLiveQuery, err)
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func songsStreamHandler(w http.ResponseWriter, r *http.Request) {
	q, err := songQueryFrom(r)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	log.Debugf("%s Song stream opened (%s/%s/%s)", logcolors.LogLiveQuery, q.Filter, q.SortBy, q.Order)
	streamSnapshots(w, r, library.ObserveSongs(r.Context(), q))
}

func playlistsStreamHandler(w http.ResponseWriter, r *http.Request) {
	streamSnapshots(w, r, library.ObservePlaylists(r.Context()))
}

func songHandler(w http.ResponseWriter, r *http.Request) {
	song, err := library.Song(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(song)
}

func searchLibraryHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	songs, err := library.SearchSongs(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(songs)
}

func trendingHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	songs, err := library.Trending(r.Context(), time.Now(), limit)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(songs)
}

func artistsHandler(w http.ResponseWriter, r *http.Request) {
	artists, err := library.Artists(r.Context())
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(artists)
}

func artistSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := library.ArtistSongs(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(songs)
}

func historyHandler(w http.ResponseWriter, r *http.Request) {
	queries, err := library.SearchQueries(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(queries)
}

func deleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	query, err := url.PathUnescape(mux.Vars(r)["query"])
	if err != nil {
		Respond(w, r).Fail(badRequest("invalid query"))
		return
	}
	deleted, err := library.DeleteSearchQuery(r.Context(), query)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if !deleted {
		Respond(w, r).Error(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("query %q is not in the history", query)})
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"deleted": query})
}

func playlistsHandler(w http.ResponseWriter, r *http.Request) {
	playlists, err := library.Playlists(r.Context())
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(playlists)
}

func createPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if err := decodeBody(r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	id, err := library.CreatePlaylist(r.Context(), req.Name, req.BrowseID)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).Status(http.StatusCreated, database.Playlist{ID: id, Name: req.Name, BrowseID: req.BrowseID})
}

func renamePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := playlistIDFrom(r)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	var req PlaylistRequest
	if err := decodeBody(r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if err := library.RenamePlaylist(r.Context(), id, req.Name); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"id": id, "name": req.Name})
}

func deletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := playlistIDFrom(r)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if err := library.DeletePlaylist(r.Context(), id); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"deleted": id})
}

func playlistSongsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := playlistIDFrom(r)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	songs, err := library.PlaylistSongs(r.Context(), id)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(songs)
}

func removePlaylistSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := playlistIDFrom(r)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	songID := mux.Vars(r)["songId"]
	if err := library.RemoveFromPlaylist(r.Context(), id, songID); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"playlistId": id, "removed": songID})
}

func getSearchHistorySetting(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(SearchHistorySetting{Paused: syncPolicy.SearchHistoryPaused()})
}

func setSearchHistorySetting(w http.ResponseWriter, r *http.Request) {
	var req SearchHistorySetting
	if err := decodeBody(r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	syncPolicy.SetSearchHistoryPaused(req.Paused)
	Respond(w, r).JSON(req)
}
