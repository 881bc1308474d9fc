package main

import (
	"context"
	"errors"
	"music-api-go/cache"
	"music-api-go/config"
	"music-api-go/database"
	"music-api-go/logcolors"
	"music-api-go/middleware"
	"music-api-go/services/cachesync"
	"music-api-go/services/innertube"
	"music-api-go/services/notifier"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var conf = config.Get()

var (
	responseCache *cache.ResponseCache
	library       *database.DB
	catalog       *innertube.Client
	syncPolicy    *cachesync.Policy
)

const shutdownTimeout = 10 * time.Second

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel) // Set to InfoLevel (change to DebugLevel for detailed logs)

	err := godotenv.Load()
	if err != nil {
		log.Warn("Error loading .env file, using environment variables")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startAlertHandler()

	var err error
	responseCache, err = setupResponseCache(ctx.Done())
	if err != nil {
		notifier.PublishServerStartupFailed("response cache", err)
		log.Fatalf("%s %v", logcolors.LogCacheInit, err)
	}

	library, err = setupDatabase()
	if err != nil {
		notifier.PublishServerStartupFailed("database", err)
		log.Fatalf("%s %v", logcolors.LogDatabase, err)
	}

	catalog = setupCatalog()

	// Sync tasks run on their own context so shutdown can drain them
	// after the listener stops.
	syncPolicy = setupSyncPolicy(context.Background(), library)

	statsStore := setupStatsStore()

	router := mux.NewRouter()
	setupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key", middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	limiter := middleware.NewIPRateLimiter(
		rate.Limit(conf.Configuration.RateLimitPerSecond), conf.Configuration.RateLimitBurstLimit,
		rate.Limit(conf.Configuration.CachedRateLimitPerSecond), conf.Configuration.CachedRateLimitBurstLimit,
	)
	limiter.StartCleanup(time.Minute, limiterIdleTimeout, ctx.Done())

	var handler http.Handler = router
	handler = middleware.RateLimitMiddleware(limiter, conf.Configuration.APIKey)(handler)
	handler = middleware.APIKeyMiddleware(conf.Configuration.APIKey, conf.Configuration.APIKeyRequired, []string{"/", "/health"})(handler)
	handler = statsMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = c.Handler(handler)

	// No write timeout: live query streams stay open indefinitely.
	server := &http.Server{
		Addr:              ":" + conf.Configuration.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Infof("%s Server listening on port %s", logcolors.LogServer, conf.Configuration.Port)
		notifier.PublishServerStarted(conf.Configuration.Port, library.Path())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			notifier.PublishServerStartupFailed("http", err)
			log.Errorf("%s %v", logcolors.LogServer, err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Infof("%s Shutting down", logcolors.LogServer)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("%s Graceful shutdown failed: %v", logcolors.LogServer, err)
	}

	syncPolicy.Stop()
	if err := library.Close(); err != nil {
		log.Warnf("%s Failed to close database: %v", logcolors.LogDatabase, err)
	}
	if err := responseCache.Close(); err != nil {
		log.Warnf("%s Failed to close response cache: %v", logcolors.LogCache, err)
	}
	if statsStore != nil {
		statsStore.Close()
	}
}
