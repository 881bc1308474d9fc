package middleware

import (
	"context"
	"fmt"
	"math"
	"music-api-go/logcolors"
	"music-api-go/stats"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Tier names which rate limit bucket admitted a request.
type Tier string

const (
	TierNormal   Tier = "normal"
	TierCached   Tier = "cached"
	TierBypass   Tier = "bypass"
	TierExceeded Tier = "exceeded"
)

type tierKey struct{}

// TierFrom returns the tier RateLimitMiddleware admitted the request under.
func TierFrom(ctx context.Context) Tier {
	tier, _ := ctx.Value(tierKey{}).(Tier)
	return tier
}

// CacheOnly reports whether the request may only be answered from a cache.
// Requests over the normal tier are still served, but never hit upstream.
func CacheOnly(ctx context.Context) bool {
	return TierFrom(ctx) == TierCached
}

// WithTier returns ctx carrying tier. Handler tests use it to simulate the
// cached tier without draining a limiter.
func WithTier(ctx context.Context, tier Tier) context.Context {
	return context.WithValue(ctx, tierKey{}, tier)
}

// LimiterPair holds both normal and cached tier limiters for an IP
type LimiterPair struct {
	Normal   *rate.Limiter
	Cached   *rate.Limiter
	lastSeen time.Time
}

// GetNormalTokens returns the number of tokens available in the normal tier
func (lp *LimiterPair) GetNormalTokens() int {
	return int(math.Floor(lp.Normal.Tokens()))
}

// GetCachedTokens returns the number of tokens available in the cached tier
func (lp *LimiterPair) GetCachedTokens() int {
	return int(math.Floor(lp.Cached.Tokens()))
}

// IPRateLimiter manages two-tier rate limiting per client IP
type IPRateLimiter struct {
	ips         map[string]*LimiterPair
	mu          sync.Mutex
	normalRate  rate.Limit
	normalBurst int
	cachedRate  rate.Limit
	cachedBurst int
}

// GetNormalLimit returns the normal tier burst limit
func (i *IPRateLimiter) GetNormalLimit() int {
	return i.normalBurst
}

// GetCachedLimit returns the cached tier burst limit
func (i *IPRateLimiter) GetCachedLimit() int {
	return i.cachedBurst
}

// NewIPRateLimiter creates a new two-tier rate limiter
func NewIPRateLimiter(normalRate rate.Limit, normalBurst int, cachedRate rate.Limit, cachedBurst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:         make(map[string]*LimiterPair),
		normalRate:  normalRate,
		normalBurst: normalBurst,
		cachedRate:  cachedRate,
		cachedBurst: cachedBurst,
	}
}

// AddIP installs a fresh limiter pair for ip, replacing any existing one.
func (i *IPRateLimiter) AddIP(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.addLocked(ip)
}

func (i *IPRateLimiter) addLocked(ip string) *LimiterPair {
	pair := &LimiterPair{
		Normal:   rate.NewLimiter(i.normalRate, i.normalBurst),
		Cached:   rate.NewLimiter(i.cachedRate, i.cachedBurst),
		lastSeen: time.Now(),
	}
	i.ips[ip] = pair
	return pair
}

// GetLimiter returns the limiter pair for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()

	pair, exists := i.ips[ip]
	if !exists {
		return i.addLocked(ip)
	}
	pair.lastSeen = time.Now()
	return pair
}

// Prune forgets IPs not seen for idle and returns how many were removed.
// A pruned IP starts again with full buckets.
func (i *IPRateLimiter) Prune(idle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	removed := 0
	for ip, pair := range i.ips {
		if pair.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			removed++
		}
	}
	return removed
}

// StartCleanup prunes idle IPs every interval until stop is closed.
func (i *IPRateLimiter) StartCleanup(interval, idle time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := i.Prune(idle); n > 0 {
					log.Debugf("%s Pruned %d idle clients", logcolors.LogRateLimit, n)
				}
			case <-stop:
				return
			}
		}
	}()
}

// ClientIP strips the port from r.RemoteAddr so one client maps to one bucket
// across connections.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware admits requests under the normal tier, then under the
// cached tier (marking them cache-only), and rejects the rest with 429.
// A valid API key bypasses both tiers.
func RateLimitMiddleware(limiter *IPRateLimiter, apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ValidKey(r.Header.Get("X-API-Key"), apiKey) {
				w.Header().Set("X-RateLimit-Bypass", "true")
				next.ServeHTTP(w, r.WithContext(WithTier(r.Context(), TierBypass)))
				return
			}

			ip := ClientIP(r)
			limiters := limiter.GetLimiter(ip)

			if limiters.Normal.Allow() {
				stats.Get().RecordRateLimit(string(TierNormal))
				setRateLimitHeaders(w, TierNormal, limiter.GetNormalLimit(), limiters.GetNormalTokens())
				next.ServeHTTP(w, r.WithContext(WithTier(r.Context(), TierNormal)))
				return
			}

			if limiters.Cached.Allow() {
				stats.Get().RecordRateLimit(string(TierCached))
				setRateLimitHeaders(w, TierCached, limiter.GetCachedLimit(), limiters.GetCachedTokens())
				log.Debugf("%s IP %s exceeded normal tier, using cached tier", logcolors.LogRateLimit, ip)
				next.ServeHTTP(w, r.WithContext(WithTier(r.Context(), TierCached)))
				return
			}

			stats.Get().RecordRateLimit(string(TierExceeded))
			log.Warnf("%s IP %s exceeded both rate limit tiers", logcolors.LogRateLimit, ip)
			setRateLimitHeaders(w, TierExceeded, limiter.GetCachedLimit(), 0)
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, tier Tier, limit, remaining int) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	w.Header().Set("X-RateLimit-Type", string(tier))
}
