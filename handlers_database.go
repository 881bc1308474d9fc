package main

import (
	"fmt"
	"music-api-go/database"
	"music-api-go/logcolors"
	"music-api-go/middleware"
	"music-api-go/services/notifier"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// authorized gates maintenance endpoints. With no API key configured the
// server is single-user and every caller is trusted.
func authorized(w http.ResponseWriter, r *http.Request) bool {
	key := conf.Configuration.APIKey
	if key == "" || middleware.ValidKey(r.Header.Get("X-API-Key"), key) {
		return true
	}
	Respond(w, r).Error(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	return false
}

func clearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}
	if err := library.ClearHistory(r.Context()); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"message": "Search history cleared"})
}

func clearEventsHandler(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}
	if err := library.ClearEvents(r.Context()); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"message": "Playback events cleared"})
}

func clearSongEventsHandler(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}
	songID := mux.Vars(r)["songId"]
	if err := library.ClearEventsFor(r.Context(), songID); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"message": fmt.Sprintf("Playback events cleared for %s", songID)})
}

func cleanupHandler(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}
	removed, err := library.DeleteUnreferencedSongs(r.Context())
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	log.Infof("%s Cleanup removed %d unreferenced songs", logcolors.LogDatabase, removed)
	Respond(w, r).JSON(map[string]interface{}{"removed": removed})
}

func checkpointHandler(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}
	res, err := library.Checkpoint(r.Context())
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(res)
}

func backupDatabaseHandler(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}
	backupPath, err := library.Backup(r.Context())
	if err != nil {
		log.Errorf("%s Failed to create backup: %v", logcolors.LogDatabaseBackup, err)
		notifier.PublishDatabaseBackupFailed(err)
		Respond(w, r).Error(http.StatusInternalServerError, map[string]interface{}{
			"error": fmt.Sprintf("Failed to create backup: %v", err),
		})
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"message":     "Backup created successfully",
		"backup_path": backupPath,
	})
}

func listDatabaseBackupsHandler(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}
	backups, err := library.ListBackups()
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"count":   len(backups),
		"backups": backups,
	})
}

func restoreDatabaseHandler(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}
	fileName := r.URL.Query().Get("file")
	if fileName == "" {
		Respond(w, r).Fail(badRequest("file is required"))
		return
	}
	if err := library.Restore(r.Context(), fileName); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	notifier.PublishDatabaseRestored(fileName)
	Respond(w, r).JSON(map[string]interface{}{
		"message":       "Database restored successfully",
		"restored_from": fileName,
	})
}

func deleteDatabaseBackupHandler(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}
	fileName := mux.Vars(r)["file"]
	if err := library.DeleteBackup(fileName); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"deleted": fileName})
}

func databaseStatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := library.Songs(ctx, database.SongQuery{Filter: database.FilterAll, SortBy: database.SortByDateAdded, Order: database.Descending})
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	liked := 0
	for _, s := range all {
		if s.LikedAt != nil {
			liked++
		}
	}
	playlists, err := library.Playlists(ctx)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	events, err := library.EventsCount(ctx)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	queries, err := library.QueriesCount(ctx)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	backups, err := library.ListBackups()
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}

	Respond(w, r).JSON(DatabaseStats{
		Path:         library.Path(),
		Songs:        len(all),
		LikedSongs:   liked,
		Playlists:    len(playlists),
		Events:       events,
		SearchCount:  queries,
		LiveQueries:  library.LiveQueries(),
		BackupCount:  len(backups),
		HistoryPause: syncPolicy.SearchHistoryPaused(),
	})
}
