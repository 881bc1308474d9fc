package main

import (
	"context"
	"encoding/json"
	"music-api-go/logcolors"
	"music-api-go/middleware"
	"music-api-go/stats"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// buildCacheKey joins an endpoint name and its normalized arguments.
func buildCacheKey(endpoint string, parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return endpoint + ":" + strings.Join(normalized, "|")
}

// getCachedResponse returns a cached body, recording the hit or miss.
func getCachedResponse(key string) ([]byte, bool) {
	if responseCache == nil || !conf.FeatureFlags.ResponseCache {
		return nil, false
	}
	body, ok := responseCache.Get(key)
	if ok {
		stats.Get().RecordCacheHit()
		log.Debugf("%s Hit for %s", logcolors.LogCache, key)
	} else {
		stats.Get().RecordCacheMiss()
	}
	return body, ok
}

func setCachedResponse(key string, body []byte, ttl time.Duration) {
	if responseCache == nil || !conf.FeatureFlags.ResponseCache {
		return
	}
	if err := responseCache.Set(key, body, ttl); err != nil {
		log.Warnf("%s Failed to cache %s: %v", logcolors.LogCache, key, err)
	}
}

// partialResult is implemented by responses that may stop before every
// continuation was followed. Partial responses are served but never cached.
type partialResult interface {
	IsPartial() bool
}

// serveCached answers from the response cache, or runs fetch and caches its
// JSON encoding for ttl. Clients on the cached rate limit tier never reach
// fetch.
func serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, fetch func(ctx context.Context) (interface{}, error)) {
	if body, ok := getCachedResponse(key); ok {
		Respond(w, r).SetCacheStatus("HIT").Raw(body)
		return
	}

	if middleware.CacheOnly(r.Context()) {
		Respond(w, r).SetCacheStatus("MISS").SetRetryAfter(1).Fail(errCacheOnly)
		return
	}

	data, err := fetch(r.Context())
	if err != nil {
		Respond(w, r).SetCacheStatus("MISS").Fail(err)
		return
	}

	body, err := json.Marshal(data)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	body = append(body, '\n')
	if p, ok := data.(partialResult); ok && p.IsPartial() {
		stats.Get().RecordPartialResult()
		Respond(w, r).SetCacheStatus("MISS").Raw(body)
		return
	}
	setCachedResponse(key, body, ttl)
	Respond(w, r).SetCacheStatus("MISS").Raw(body)
}

// requireUpstream rejects cache-only clients before an uncacheable upstream call.
func requireUpstream(w http.ResponseWriter, r *http.Request) bool {
	if middleware.CacheOnly(r.Context()) {
		Respond(w, r).SetRetryAfter(1).Fail(errCacheOnly)
		return false
	}
	return true
}
