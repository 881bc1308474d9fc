package main

import (
	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// Catalog endpoints, served through the response cache where idempotent
	router.HandleFunc("/search", searchHandler).Methods("GET")
	router.HandleFunc("/search/all", searchAllHandler).Methods("GET")
	router.HandleFunc("/suggestions", suggestionsHandler).Methods("GET")
	router.HandleFunc("/browse/{browseId}", browseHandler).Methods("GET")
	router.HandleFunc("/playlist/continuation", playlistContinuationHandler).Methods("GET")
	router.HandleFunc("/playlist/{browseId}", playlistHandler).Methods("GET")
	router.HandleFunc("/next/{videoId}", nextHandler).Methods("GET")
	router.HandleFunc("/related/{videoId}", relatedHandler).Methods("GET")
	router.HandleFunc("/player/{videoId}", playerHandler).Methods("GET")
	router.HandleFunc("/quickpicks", quickPicksHandler).Methods("GET")

	// Cache sync triggers - fire-and-forget, answer 202
	router.HandleFunc("/songs/{id}/play", playSongHandler).Methods("POST")
	router.HandleFunc("/songs/{id}/like", likeSongHandler).Methods("POST")
	router.HandleFunc("/library/playlists/{id}/songs", addPlaylistSongHandler).Methods("POST")

	// Local library
	router.HandleFunc("/library/songs", songsHandler).Methods("GET")
	router.HandleFunc("/library/songs/stream", songsStreamHandler).Methods("GET")
	router.HandleFunc("/library/songs/search", searchLibraryHandler).Methods("GET")
	router.HandleFunc("/library/songs/{id}", songHandler).Methods("GET")
	router.HandleFunc("/library/trending", trendingHandler).Methods("GET")
	router.HandleFunc("/library/artists", artistsHandler).Methods("GET")
	router.HandleFunc("/library/artists/{id}/songs", artistSongsHandler).Methods("GET")
	router.HandleFunc("/library/history", historyHandler).Methods("GET")
	router.HandleFunc("/library/history/{query}", deleteHistoryHandler).Methods("DELETE")
	router.HandleFunc("/library/playlists", playlistsHandler).Methods("GET")
	router.HandleFunc("/library/playlists", createPlaylistHandler).Methods("POST")
	router.HandleFunc("/library/playlists/stream", playlistsStreamHandler).Methods("GET")
	router.HandleFunc("/library/playlists/{id}", renamePlaylistHandler).Methods("PATCH")
	router.HandleFunc("/library/playlists/{id}", deletePlaylistHandler).Methods("DELETE")
	router.HandleFunc("/library/playlists/{id}/songs", playlistSongsHandler).Methods("GET")
	router.HandleFunc("/library/playlists/{id}/songs/{songId}", removePlaylistSongHandler).Methods("DELETE")

	router.HandleFunc("/settings/search-history", getSearchHistorySetting).Methods("GET")
	router.HandleFunc("/settings/search-history", setSearchHistorySetting).Methods("POST")

	// Database maintenance endpoints
	router.HandleFunc("/database/history/clear", clearHistoryHandler).Methods("POST")
	router.HandleFunc("/database/events/clear", clearEventsHandler).Methods("POST")
	router.HandleFunc("/database/events/clear/{songId}", clearSongEventsHandler).Methods("POST")
	router.HandleFunc("/database/cleanup", cleanupHandler).Methods("POST")
	router.HandleFunc("/database/checkpoint", checkpointHandler).Methods("POST")
	router.HandleFunc("/database/backup", backupDatabaseHandler).Methods("POST")
	router.HandleFunc("/database/backups", listDatabaseBackupsHandler).Methods("GET")
	router.HandleFunc("/database/backups/{file}", deleteDatabaseBackupHandler).Methods("DELETE")
	router.HandleFunc("/database/restore", restoreDatabaseHandler).Methods("POST")
	router.HandleFunc("/database/stats", databaseStatsHandler).Methods("GET")

	// Response cache endpoints
	router.HandleFunc("/cache/clear", clearCache).Methods("POST")
	router.HandleFunc("/cache/backups", listCacheBackups).Methods("GET")
	router.HandleFunc("/cache/restore", restoreCache).Methods("POST")

	// Health and stats endpoints
	router.HandleFunc("/health", getHealthStatus)
	router.HandleFunc("/stats", getStats)

	// Circuit breaker endpoints
	router.HandleFunc("/circuit-breaker", getCircuitBreakerStatus)
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreaker).Methods("POST")

	// Help endpoint
	router.HandleFunc("/", helpHandler)
}
