package stats

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds all server statistics with atomic counters
type Stats struct {
	// Server info
	StartTime time.Time

	// Request counters
	TotalRequests    atomic.Int64
	CatalogRequests  atomic.Int64
	LibraryRequests  atomic.Int64
	DatabaseRequests atomic.Int64
	StatsRequests    atomic.Int64
	HealthRequests   atomic.Int64
	OtherRequests    atomic.Int64

	// Response cache performance
	CacheHits   atomic.Int64
	CacheMisses atomic.Int64

	// Rate limiting
	RateLimitNormal   atomic.Int64 // Requests served under normal rate limit
	RateLimitCached   atomic.Int64 // Requests served under cached-only tier
	RateLimitExceeded atomic.Int64 // Requests rejected (429)

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Cache sync tasks
	SyncTasksDone    atomic.Int64
	SyncTasksFailed  atomic.Int64
	SyncTasksDropped atomic.Int64

	// Partial accumulations (a continuation failed mid-way)
	PartialResults atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64

	// Catalog endpoint response times (microseconds)
	catalogResponseTime  atomic.Int64
	catalogResponseCount atomic.Int64

	// Upstream failures keyed by innertube endpoint
	upstreamFailures sync.Map // map[string]*atomic.Int64
}

// Global stats instance
var global = &Stats{
	StartTime: time.Now(),
}

func init() {
	// Initialize min to a high value
	global.minResponseTime.Store(int64(^uint64(0) >> 1)) // Max int64
}

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// catalogPrefixes are the route prefixes served from the upstream catalog.
var catalogPrefixes = []string{"/search", "/suggestions", "/browse", "/playlist", "/next", "/related", "/player", "/quickpicks"}

// EndpointGroup buckets a request path for counting.
func EndpointGroup(path string) string {
	switch {
	case path == "/stats":
		return "stats"
	case path == "/health":
		return "health"
	case strings.HasPrefix(path, "/library"), strings.HasPrefix(path, "/songs"), strings.HasPrefix(path, "/settings"):
		return "library"
	case strings.HasPrefix(path, "/database"):
		return "database"
	}
	for _, p := range catalogPrefixes {
		if strings.HasPrefix(path, p) {
			return "catalog"
		}
	}
	return "other"
}

// RecordRequest records a request to a specific endpoint
func (s *Stats) RecordRequest(path string) {
	s.TotalRequests.Add(1)
	switch EndpointGroup(path) {
	case "catalog":
		s.CatalogRequests.Add(1)
	case "library":
		s.LibraryRequests.Add(1)
	case "database":
		s.DatabaseRequests.Add(1)
	case "stats":
		s.StatsRequests.Add(1)
	case "health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordCacheHit records a cache hit
func (s *Stats) RecordCacheHit() {
	s.CacheHits.Add(1)
}

// RecordCacheMiss records a cache miss
func (s *Stats) RecordCacheMiss() {
	s.CacheMisses.Add(1)
}

// RecordRateLimit records rate limit tier usage
func (s *Stats) RecordRateLimit(tier string) {
	switch tier {
	case "normal":
		s.RateLimitNormal.Add(1)
	case "cached":
		s.RateLimitCached.Add(1)
	case "exceeded":
		s.RateLimitExceeded.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordSyncTask records the outcome of a cache sync task.
func (s *Stats) RecordSyncTask(err error) {
	if err != nil {
		s.SyncTasksFailed.Add(1)
		return
	}
	s.SyncTasksDone.Add(1)
}

// RecordSyncDropped records a sync task rejected by a full queue.
func (s *Stats) RecordSyncDropped() {
	s.SyncTasksDropped.Add(1)
}

// RecordPartialResult records an accumulation that stopped on a failed continuation.
func (s *Stats) RecordPartialResult() {
	s.PartialResults.Add(1)
}

// RecordUpstreamFailure counts a failed innertube request.
func (s *Stats) RecordUpstreamFailure(endpoint string) {
	counter, _ := s.upstreamFailures.LoadOrStore(endpoint, &atomic.Int64{})
	counter.(*atomic.Int64).Add(1)
}

// UpstreamFailuresSnapshot returns failure counts per upstream endpoint.
func (s *Stats) UpstreamFailuresSnapshot() map[string]int64 {
	out := make(map[string]int64)
	s.upstreamFailures.Range(func(key, value any) bool {
		out[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return out
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration, path string) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	// Update min/max atomically
	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}

	if EndpointGroup(path) == "catalog" {
		s.catalogResponseTime.Add(us)
		s.catalogResponseCount.Add(1)
	}
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns the cache hit rate as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.CacheHits.Load()
	misses := s.CacheMisses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == int64(^uint64(0)>>1) {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// AvgCatalogResponseTime returns the average response time of catalog requests
func (s *Stats) AvgCatalogResponseTime() time.Duration {
	count := s.catalogResponseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.catalogResponseTime.Load()/count) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":    s.TotalRequests.Load(),
			"catalog":  s.CatalogRequests.Load(),
			"library":  s.LibraryRequests.Load(),
			"database": s.DatabaseRequests.Load(),
			"stats":    s.StatsRequests.Load(),
			"health":   s.HealthRequests.Load(),
			"other":    s.OtherRequests.Load(),
		},
		"cache": map[string]interface{}{
			"hits":     s.CacheHits.Load(),
			"misses":   s.CacheMisses.Load(),
			"hit_rate": s.CacheHitRate(),
		},
		"rate_limiting": map[string]interface{}{
			"normal_tier": s.RateLimitNormal.Load(),
			"cached_tier": s.RateLimitCached.Load(),
			"exceeded":    s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"sync": map[string]interface{}{
			"done":    s.SyncTasksDone.Load(),
			"failed":  s.SyncTasksFailed.Load(),
			"dropped": s.SyncTasksDropped.Load(),
		},
		"upstream": map[string]interface{}{
			"failures":        s.UpstreamFailuresSnapshot(),
			"partial_results": s.PartialResults.Load(),
		},
		"response_times": map[string]interface{}{
			"avg":         s.AvgResponseTime().String(),
			"min":         s.MinResponseTime().String(),
			"max":         s.MaxResponseTime().String(),
			"avg_catalog": s.AvgCatalogResponseTime().String(),
		},
	}
}
