package main

import (
	"fmt"
	"music-api-go/circuitbreaker"
	"music-api-go/logcolors"
	"music-api-go/stats"
	"net/http"

	log "github.com/sirupsen/logrus"
)

func getStats(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}

	snapshot := stats.Get().Snapshot()

	if responseCache != nil {
		numKeys, sizeInKB := responseCache.Stats()
		snapshot["cache_storage"] = map[string]interface{}{
			"keys":    numKeys,
			"size_kb": sizeInKB,
			"size_mb": float64(sizeInKB) / 1024,
		}
	}

	cb := catalog.Breaker()
	snapshot["circuit_breaker"] = map[string]interface{}{
		"state":              cb.State().String(),
		"failures":           cb.Failures(),
		"cooldown_remaining": cb.TimeUntilRetry().String(),
	}

	if syncPolicy != nil {
		snapshot["sync_queue"] = map[string]interface{}{
			"dropped":               syncPolicy.Dropped(),
			"search_history_paused": syncPolicy.SearchHistoryPaused(),
		}
	}

	Respond(w, r).JSON(snapshot)
}

// getHealthStatus reports degraded while the upstream circuit is open and
// unhealthy when the local database stops answering.
func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	cb := catalog.Breaker()
	health := map[string]interface{}{
		"status":          "ok",
		"circuit_breaker": cb.State().String(),
	}

	if cb.State() == circuitbreaker.StateOpen {
		health["status"] = "degraded"
		health["circuit_breaker_retry_in"] = cb.TimeUntilRetry().String()
	}

	if _, err := library.EventsCount(r.Context()); err != nil {
		health["status"] = "unhealthy"
		health["error"] = fmt.Sprintf("database unavailable: %v", err)
		Respond(w, r).Error(http.StatusServiceUnavailable, health)
		return
	}

	Respond(w, r).JSON(health)
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}

	cb := catalog.Breaker()
	Respond(w, r).JSON(map[string]interface{}{
		"state":            cb.State().String(),
		"failures":         cb.Failures(),
		"time_until_retry": cb.TimeUntilRetry().String(),
		"status":           cb.Status(),
		"config": map[string]interface{}{
			"threshold":    conf.Configuration.CircuitBreakerThreshold,
			"cooldown_sec": conf.Configuration.CircuitBreakerCooldownSecs,
		},
	})
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}

	catalog.Breaker().Reset()
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Circuit breaker reset to CLOSED state",
	})
}

// clearCache backs the response cache up before emptying it.
func clearCache(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}

	backupPath, err := responseCache.Backup()
	if err != nil {
		log.Errorf("%s Failed to back up cache before clearing: %v", logcolors.LogCacheClear, err)
		Respond(w, r).Error(http.StatusInternalServerError, map[string]interface{}{
			"error": fmt.Sprintf("Failed to back up cache: %v", err),
		})
		return
	}
	if err := responseCache.Clear(); err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, map[string]interface{}{
			"error":       fmt.Sprintf("Backup created but failed to clear cache: %v", err),
			"backup_path": backupPath,
		})
		return
	}

	log.Infof("%s Cache cleared successfully, backup at: %s", logcolors.LogCacheClear, backupPath)
	Respond(w, r).JSON(map[string]interface{}{
		"message":     "Cache cleared successfully",
		"backup_path": backupPath,
	})
}

func listCacheBackups(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}

	backups, err := responseCache.ListBackups()
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"count":   len(backups),
		"backups": backups,
	})
}

func restoreCache(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}

	fileName := r.URL.Query().Get("file")
	if fileName == "" {
		Respond(w, r).Fail(badRequest("file is required"))
		return
	}
	if err := responseCache.Restore(fileName); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"message":       "Cache restored successfully",
		"restored_from": fileName,
	})
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"catalog": map[string]string{
			"GET /search?q=&filter=&continuation=": "One page of search results (filter: song, video, album, artist, community_playlist, featured_playlist)",
			"GET /search/all?q=&filter=":           "Every page of a search, merged in server order",
			"GET /suggestions?input=":              "Search suggestions",
			"GET /browse/{browseId}?params=":       "Sections of a browse page such as home or explore",
			"GET /playlist/{browseId}?all=":        "Playlist header and songs",
			"GET /playlist/continuation?token=":    "Next page of playlist songs",
			"GET /next/{videoId}?continuation=":    "Radio queue page",
			"GET /related/{videoId}":               "Related songs, playlists, albums and artists",
			"GET /player/{videoId}":                "Playable stream descriptor",
			"GET /quickpicks":                      "Related feed seeded by the most trending local song",
		},
		"sync": map[string]string{
			"POST /songs/{id}/play":             "Cache the song and record a play: {item, playTimeMs}",
			"POST /songs/{id}/like":             "Like or unlike: {item, liked}",
			"POST /library/playlists/{id}/songs": "Cache the song and add it to a playlist: {item}",
		},
		"library": map[string]string{
			"GET /library/songs?filter=&sort=&order=": "Cached songs (filter: all, played, liked; sort: date_added, play_time, title)",
			"GET /library/songs/stream":               "Cached songs as Server-Sent Events",
			"GET /library/songs/search?q=":            "Fuzzy search over cached songs",
			"GET /library/trending":                   "Songs ranked by recent play time",
			"GET /library/history":                    "Search history",
			"GET /library/playlists":                  "Local playlists",
		},
		"ops": map[string]string{
			"GET /health":           "Health check",
			"GET /stats":            "Server statistics",
			"GET /circuit-breaker":  "Upstream circuit breaker state",
			"GET /database/backups": "Local database backups",
			"POST /cache/clear":     "Back up and clear the response cache",
		},
	})
}
