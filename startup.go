package main

import (
	"context"
	"fmt"
	"music-api-go/cache"
	"music-api-go/circuitbreaker"
	"music-api-go/database"
	"music-api-go/logcolors"
	"music-api-go/middleware"
	"music-api-go/services/cachesync"
	"music-api-go/services/innertube"
	"music-api-go/services/notifier"
	"music-api-go/stats"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	statsAutoSaveInterval = 5 * time.Minute
	cacheJanitorInterval  = 10 * time.Minute
	limiterIdleTimeout    = 10 * time.Minute
	alertCooldown         = 30 * time.Minute
)

func setupNotifiers() []notifier.Notifier {
	var notifiers []notifier.Notifier

	if topic := conf.Configuration.NotifierNtfyTopic; topic != "" {
		ntfyNotifier := &notifier.NtfyNotifier{
			Topic:  topic,
			Server: conf.Configuration.NotifierNtfyServer,
		}
		notifiers = append(notifiers, ntfyNotifier)
		log.Infof("%s Ntfy.sh notifier enabled", logcolors.LogNotifier)
	}

	return notifiers
}

// startAlertHandler forwards bus events to the configured notifiers.
func startAlertHandler() {
	notifiers := setupNotifiers()
	if len(notifiers) == 0 {
		log.Infof("%s No notifiers configured, alerts will only be logged", logcolors.LogNotifier)
		return
	}

	handler := notifier.NewAlertHandler(notifier.AlertConfig{
		Notifiers:        notifiers,
		CooldownDuration: alertCooldown,
	})
	handler.Start(notifier.GetEventBus())
	log.Infof("%s Alert handler started with %d notifier(s)", logcolors.LogNotifier, len(notifiers))
}

func setupResponseCache(stop <-chan struct{}) (*cache.ResponseCache, error) {
	rc, err := cache.New(
		conf.Configuration.ResponseCachePath,
		conf.Configuration.ResponseCacheBackupPath,
		conf.FeatureFlags.CacheCompression,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open response cache: %w", err)
	}
	rc.StartJanitor(cacheJanitorInterval, stop)
	return rc, nil
}

func setupDatabase() (*database.DB, error) {
	db, err := database.Open(conf.Configuration.DatabasePath, database.Options{
		BackupPath: conf.Configuration.DatabaseBackupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func setupCatalog() *innertube.Client {
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:      "Innertube",
		Threshold: conf.Configuration.CircuitBreakerThreshold,
		Cooldown:  conf.CircuitBreakerCooldown(),
	})

	return innertube.New(innertube.Options{
		BaseURL:  conf.Configuration.InnertubeBaseURL,
		APIKey:   conf.Configuration.InnertubeAPIKey,
		Language: conf.Configuration.InnertubeLanguage,
		Region:   conf.Configuration.InnertubeRegion,
		Timeout:  conf.RequestTimeout(),
		Breaker:  breaker,
	})
}

func setupSyncPolicy(ctx context.Context, store cachesync.Store) *cachesync.Policy {
	policy := cachesync.New(store, cachesync.Options{
		QueueSize:          conf.Configuration.SyncQueueSize,
		Workers:            conf.Configuration.SyncWorkers,
		PauseSearchHistory: conf.FeatureFlags.PauseSearchHistory,
	})
	policy.Start(ctx)
	return policy
}

// setupStatsStore restores persisted counters. Stats are best effort, so a
// failure only disables persistence.
func setupStatsStore() *stats.Store {
	store, err := stats.NewStore(conf.Configuration.StatsPath)
	if err != nil {
		log.Warnf("%s Failed to open stats store, stats will not persist: %v", logcolors.LogStats, err)
		return nil
	}
	if err := store.Load(); err != nil {
		log.Warnf("%s Failed to load persisted stats: %v", logcolors.LogStats, err)
	}
	store.StartAutoSave(statsAutoSaveInterval)
	return store
}

// statsMiddleware records request counts, status codes and latency.
func statsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		s := stats.Get()
		s.RecordRequest(r.URL.Path)
		s.RecordStatusCode(rec.StatusCode)
		if !strings.HasSuffix(r.URL.Path, "/stream") {
			s.RecordResponseTime(time.Since(start), r.URL.Path)
		}
	})
}
