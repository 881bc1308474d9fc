package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestIPRateLimiter_Limits(t *testing.T) {
	tests := []struct {
		name                     string
		normalBurst, cachedBurst int
	}{
		{"defaults", 5, 20},
		{"single request tiers", 1, 1},
		{"generous cached tier", 2, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewIPRateLimiter(rate.Limit(1), tt.normalBurst, rate.Limit(10), tt.cachedBurst)
			if rl.GetNormalLimit() != tt.normalBurst {
				t.Errorf("Expected normal limit %d, got %d", tt.normalBurst, rl.GetNormalLimit())
			}
			if rl.GetCachedLimit() != tt.cachedBurst {
				t.Errorf("Expected cached limit %d, got %d", tt.cachedBurst, rl.GetCachedLimit())
			}

			pair := rl.GetLimiter("10.0.0.1")
			if pair.GetNormalTokens() != tt.normalBurst || pair.GetCachedTokens() != tt.cachedBurst {
				t.Errorf("Expected full buckets %d/%d, got %d/%d",
					tt.normalBurst, tt.cachedBurst, pair.GetNormalTokens(), pair.GetCachedTokens())
			}
		})
	}
}

func TestGetLimiter_OneBucketPerClient(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(0.001), 2, rate.Limit(0.001), 2)

	first := rl.GetLimiter("10.0.0.1")
	first.Normal.Allow()

	if again := rl.GetLimiter("10.0.0.1"); again != first {
		t.Error("Expected the same limiter pair for a returning client")
	}
	if other := rl.GetLimiter("10.0.0.2"); other == first || other.GetNormalTokens() != 2 {
		t.Error("Expected a fresh limiter pair for another client")
	}

	// AddIP resets the client's buckets
	if fresh := rl.AddIP("10.0.0.1"); fresh == first || fresh.GetNormalTokens() != 2 {
		t.Error("Expected AddIP to install full buckets")
	}
}

func TestLimiterPair_TierExhaustion(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(0.001), 1, rate.Limit(0.001), 2)
	pair := rl.GetLimiter("10.0.0.3")

	steps := []struct {
		tier  string
		allow bool
	}{
		{"normal", true},
		{"normal", false},
		{"cached", true},
		{"cached", true},
		{"cached", false},
	}
	for i, step := range steps {
		limiter := pair.Normal
		if step.tier == "cached" {
			limiter = pair.Cached
		}
		if got := limiter.Allow(); got != step.allow {
			t.Errorf("Step %d (%s): expected allow=%v, got %v", i, step.tier, step.allow, got)
		}
	}
	if pair.GetNormalTokens() != 0 || pair.GetCachedTokens() != 0 {
		t.Errorf("Expected both tiers drained, got %d/%d", pair.GetNormalTokens(), pair.GetCachedTokens())
	}
}

func TestLimiterPair_Refill(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(20), 1, rate.Limit(20), 1)
	pair := rl.GetLimiter("10.0.0.4")

	if !pair.Normal.Allow() || pair.Normal.Allow() {
		t.Fatal("Expected exactly one request in the burst")
	}
	time.Sleep(100 * time.Millisecond)
	if !pair.Normal.Allow() {
		t.Error("Expected the normal tier to refill")
	}
}

func TestPrune(t *testing.T) {
	rl := NewIPRateLimiter(1, 1, 1, 1)
	rl.GetLimiter("10.0.0.1")
	stale := rl.GetLimiter("10.0.0.2")
	stale.lastSeen = time.Now().Add(-time.Hour)

	if removed := rl.Prune(time.Minute); removed != 1 {
		t.Errorf("Expected 1 pruned client, got %d", removed)
	}
	if _, exists := rl.ips["10.0.0.2"]; exists {
		t.Error("Expected stale client to be pruned")
	}
	if _, exists := rl.ips["10.0.0.1"]; !exists {
		t.Error("Expected active client to be kept")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.168.1.1:5000", "192.168.1.1"},
		{"[::1]:8080", "::1"},
		{"no-port", "no-port"},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if got := ClientIP(req); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRateLimitMiddleware_Tiers(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(0.001), 1, rate.Limit(0.001), 1)
	var tiers []Tier
	handler := RateLimitMiddleware(rl, "secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tiers = append(tiers, TierFrom(r.Context()))
	}))

	statuses := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/search?q=x", nil)
		req.RemoteAddr = "192.168.1.9:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK || statuses[2] != http.StatusTooManyRequests {
		t.Errorf("Expected [200 200 429], got %v", statuses)
	}
	if len(tiers) != 2 || tiers[0] != TierNormal || tiers[1] != TierCached {
		t.Errorf("Expected [normal cached], got %v", tiers)
	}

	// The key bypasses both exhausted tiers.
	req := httptest.NewRequest("GET", "/search?q=x", nil)
	req.RemoteAddr = "192.168.1.9:1234"
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("X-RateLimit-Bypass") != "true" {
		t.Errorf("Expected bypass with a valid key, got %d", rec.Code)
	}
	if !CacheOnly(WithTier(context.Background(), TierCached)) {
		t.Error("Expected cached tier to be cache-only")
	}
}

func TestRateLimitMiddleware_Headers(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(0.001), 2, rate.Limit(0.001), 1)
	handler := RateLimitMiddleware(rl, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	expected := []struct {
		status    int
		tier      string
		limit     string
		remaining string
	}{
		{http.StatusOK, "normal", "2", "1"},
		{http.StatusOK, "normal", "2", "0"},
		{http.StatusOK, "cached", "1", "0"},
		{http.StatusTooManyRequests, "exceeded", "1", "0"},
	}
	for i, want := range expected {
		req := httptest.NewRequest("GET", "/quickpicks", nil)
		req.RemoteAddr = "10.0.0.5:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != want.status {
			t.Errorf("Request %d: expected status %d, got %d", i+1, want.status, rec.Code)
		}
		h := rec.Header()
		if h.Get("X-RateLimit-Type") != want.tier || h.Get("X-RateLimit-Limit") != want.limit || h.Get("X-RateLimit-Remaining") != want.remaining {
			t.Errorf("Request %d: expected %s %s/%s, got %s %s/%s", i+1, want.tier, want.remaining, want.limit,
				h.Get("X-RateLimit-Type"), h.Get("X-RateLimit-Remaining"), h.Get("X-RateLimit-Limit"))
		}
	}
}
