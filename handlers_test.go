package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"music-api-go/cache"
	"music-api-go/circuitbreaker"
	"music-api-go/database"
	"music-api-go/middleware"
	"music-api-go/services/cachesync"
	"music-api-go/services/innertube"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

type obj = map[string]interface{}

// searchRow is the smallest song row the catalog decoder accepts.
func searchRow(videoID, title string) obj {
	watch := obj{"watchEndpoint": obj{"videoId": videoID}}
	return obj{"musicResponsiveListItemRenderer": obj{
		"flexColumns": []obj{
			{"musicResponsiveListItemFlexColumnRenderer": obj{"text": obj{"runs": []obj{{"text": title, "navigationEndpoint": watch}}}}},
		},
		"navigationEndpoint": watch,
	}}
}

func nextData(token string) []obj {
	if token == "" {
		return nil
	}
	return []obj{{"nextContinuationData": obj{"continuation": token}}}
}

func searchBody(token string, rows ...obj) obj {
	return obj{"contents": obj{"tabbedSearchResultsRenderer": obj{"tabs": []obj{{
		"tabRenderer": obj{"content": obj{"sectionListRenderer": obj{"contents": []obj{
			{"musicShelfRenderer": obj{"contents": rows, "continuations": nextData(token)}},
		}}}},
	}}}}}
}

func suggestionsBody(queries ...string) obj {
	var contents []obj
	for _, q := range queries {
		contents = append(contents, obj{"searchSuggestionRenderer": obj{
			"navigationEndpoint": obj{"searchEndpoint": obj{"query": q}},
		}})
	}
	return obj{"contents": []obj{{"searchSuggestionsSectionRenderer": obj{"contents": contents}}}}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// testEnv holds the fake catalog upstream and a router over fresh stores.
type testEnv struct {
	router   *mux.Router
	upstream *httptest.Server
	calls    atomic.Int64
}

// setupTestEnvironment points every handler global at temporary stores and
// a fake catalog served by upstream.
func setupTestEnvironment(t *testing.T, breakerThreshold int, upstream func(w http.ResponseWriter, r *http.Request, body obj)) *testEnv {
	t.Helper()

	env := &testEnv{}
	env.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.calls.Add(1)
		var body obj
		json.NewDecoder(r.Body).Decode(&body)
		upstream(w, r, body)
	}))
	t.Cleanup(env.upstream.Close)

	tmpDir := t.TempDir()

	var err error
	responseCache, err = cache.New(filepath.Join(tmpDir, "responses.db"), filepath.Join(tmpDir, "cache_backups"), false)
	if err != nil {
		t.Fatalf("Failed to create test cache: %v", err)
	}
	library, err = database.Open(filepath.Join(tmpDir, "music.db"), database.Options{BackupPath: filepath.Join(tmpDir, "db_backups")})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if breakerThreshold <= 0 {
		breakerThreshold = 100
	}
	catalog = innertube.New(innertube.Options{
		BaseURL:    env.upstream.URL,
		APIKey:     "test-key",
		HTTPClient: env.upstream.Client(),
		Breaker:    circuitbreaker.New(circuitbreaker.Config{Name: "test", Threshold: breakerThreshold, Cooldown: time.Minute}),
	})

	syncPolicy = cachesync.New(library, cachesync.Options{Workers: 1})
	syncPolicy.Start(context.Background())

	t.Cleanup(func() {
		syncPolicy.Stop()
		library.Close()
		responseCache.Close()
	})

	env.router = mux.NewRouter()
	setupRoutes(env.router)
	return env
}

func (env *testEnv) do(method, target, body string, ctxFn func(context.Context) context.Context) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	if ctxFn != nil {
		r = r.WithContext(ctxFn(r.Context()))
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	return w
}

// drainSync waits for every queued cache write to land.
func drainSync() {
	syncPolicy.Stop()
}

func TestSearchHandler_RecordsHistory(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {
		writeJSON(w, searchBody("tok1", searchRow("a1", "One"), searchRow("a2", "Two")))
	})

	w := env.do("GET", "/search?q=daft+punk", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var page struct {
		Items        []obj  `json:"items"`
		Continuation string `json:"continuation"`
	}
	json.NewDecoder(w.Body).Decode(&page)
	if len(page.Items) != 2 || page.Continuation != "tok1" {
		t.Errorf("Expected 2 items and a continuation, got %d items and %q", len(page.Items), page.Continuation)
	}

	// Continuation pages are not new searches.
	env.do("GET", "/search?continuation=tok1", "", nil)

	drainSync()
	queries, err := library.SearchQueries(context.Background(), "")
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(queries) != 1 || queries[0].Query != "daft punk" {
		t.Errorf("Expected only the initial query in history, got %+v", queries)
	}
}

func TestSearchHandler_PausedHistory(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {
		writeJSON(w, searchBody("", searchRow("a1", "One")))
	})

	w := env.do("POST", "/settings/search-history", `{"paused":true}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 pausing history, got %d", w.Code)
	}
	env.do("GET", "/search?q=secret", "", nil)

	drainSync()
	if n, _ := library.QueriesCount(context.Background()); n != 0 {
		t.Errorf("Expected no history while paused, got %d queries", n)
	}
}

func TestSearchHandler_Validation(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {
		writeJSON(w, searchBody(""))
	})

	tests := []struct {
		name   string
		target string
	}{
		{"missing query", "/search"},
		{"unknown filter", "/search?q=x&filter=podcast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do("GET", tt.target, "", nil); w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
		})
	}
	if env.calls.Load() != 0 {
		t.Errorf("Expected no upstream calls for invalid requests, got %d", env.calls.Load())
	}
}

func TestSearchAllHandler_PartialResult(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {
		if body["continuation"] == "tok1" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, searchBody("tok1", searchRow("a1", "One"), searchRow("a2", "Two")))
	})

	w := env.do("GET", "/search/all?q=foo", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected partial success as 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Items      []obj  `json:"items"`
		StopReason string `json:"stopReason"`
		Partial    bool   `json:"partial"`
		Error      string `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Items) != 2 {
		t.Errorf("Expected the first page's 2 items, got %d", len(resp.Items))
	}
	if !resp.Partial || resp.Error == "" {
		t.Errorf("Expected partial with an error, got partial=%v error=%q", resp.Partial, resp.Error)
	}
}

func browseBody(title, token string) obj {
	return obj{"contents": obj{"singleColumnBrowseResultsRenderer": obj{"tabs": []obj{{
		"tabRenderer": obj{"content": obj{"sectionListRenderer": obj{
			"contents": []obj{{"musicShelfRenderer": obj{
				"title":    obj{"runs": []obj{{"text": title}}},
				"contents": []obj{searchRow("b1", "One")},
			}}},
			"continuations": nextData(token),
		}}}},
	}}}}
}

func TestBrowseHandler_PartialResultNotCached(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {
		if body["continuation"] == "tok1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, browseBody("Quick picks", "tok1"))
	})

	for i := 0; i < 2; i++ {
		w := env.do("GET", "/browse/FEmusic_home", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected partial success as 200, got %d: %s", w.Code, w.Body.String())
		}
		if got := w.Header().Get("X-Cache-Status"); got != "MISS" {
			t.Errorf("Expected MISS on request %d, got %q", i+1, got)
		}

		var resp struct {
			Sections   []obj  `json:"sections"`
			StopReason string `json:"stopReason"`
			Partial    bool   `json:"partial"`
			Error      string `json:"error"`
		}
		json.NewDecoder(w.Body).Decode(&resp)
		if len(resp.Sections) != 1 {
			t.Errorf("Expected the first page's section, got %d", len(resp.Sections))
		}
		if !resp.Partial || resp.StopReason != "fetch_failed" || resp.Error == "" {
			t.Errorf("Expected a reported partial result, got %+v", resp)
		}
	}
	if env.calls.Load() != 4 {
		t.Errorf("Expected both requests to reach upstream, got %d calls", env.calls.Load())
	}
}

func TestBrowseHandler_CompleteResultCached(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {
		writeJSON(w, browseBody("Moods", ""))
	})

	env.do("GET", "/browse/FEmusic_explore", "", nil)
	second := env.do("GET", "/browse/FEmusic_explore", "", nil)
	if got := second.Header().Get("X-Cache-Status"); got != "HIT" {
		t.Errorf("Expected HIT for a complete page, got %q", got)
	}
	if env.calls.Load() != 1 {
		t.Errorf("Expected one upstream call, got %d", env.calls.Load())
	}
}

func TestRelatedHandler_NoRelatedTab(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {
		writeJSON(w, obj{})
	})

	w := env.do("GET", "/related/abc", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) == "null" {
		t.Fatal("Expected an empty object, got null")
	}
	var resp struct {
		Songs []obj `json:"songs"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Songs == nil || len(resp.Songs) != 0 {
		t.Errorf("Expected an empty songs list, got %v", resp.Songs)
	}
}

func TestSuggestionsHandler_CachesResponse(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {
		writeJSON(w, suggestionsBody("daft punk", "daft punk discovery"))
	})

	first := env.do("GET", "/suggestions?input=daft", "", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", first.Code)
	}
	if got := first.Header().Get("X-Cache-Status"); got != "MISS" {
		t.Errorf("Expected MISS on first request, got %q", got)
	}

	second := env.do("GET", "/suggestions?input=DAFT", "", nil)
	if got := second.Header().Get("X-Cache-Status"); got != "HIT" {
		t.Errorf("Expected HIT on second request, got %q", got)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("Expected cached body to match, got %q and %q", first.Body.String(), second.Body.String())
	}
	if env.calls.Load() != 1 {
		t.Errorf("Expected one upstream call, got %d", env.calls.Load())
	}
}

func TestCachedTier_ServesOnlyCachedResponses(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {
		writeJSON(w, suggestionsBody("daft punk"))
	})
	cachedTier := func(ctx context.Context) context.Context {
		return middleware.WithTier(ctx, middleware.TierCached)
	}

	w := env.do("GET", "/suggestions?input=daft", "", cachedTier)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 on a cache miss, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After on cache-only rejection")
	}
	if w := env.do("GET", "/search?q=daft", "", cachedTier); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 for an uncacheable call, got %d", w.Code)
	}
	if env.calls.Load() != 0 {
		t.Fatalf("Expected no upstream calls, got %d", env.calls.Load())
	}

	env.do("GET", "/suggestions?input=daft", "", nil)
	w = env.do("GET", "/suggestions?input=daft", "", cachedTier)
	if w.Code != http.StatusOK || w.Header().Get("X-Cache-Status") != "HIT" {
		t.Errorf("Expected cached tier to get a HIT, got %d / %q", w.Code, w.Header().Get("X-Cache-Status"))
	}
}

func TestCircuitOpen_FailsFast(t *testing.T) {
	env := setupTestEnvironment(t, 1, func(w http.ResponseWriter, r *http.Request, body obj) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if w := env.do("GET", "/search?q=x", "", nil); w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502 from a failing upstream, got %d", w.Code)
	}

	w := env.do("GET", "/search?q=x", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 once the circuit opens, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After while the circuit is open")
	}
	if env.calls.Load() != 1 {
		t.Errorf("Expected the open circuit to skip upstream, got %d calls", env.calls.Load())
	}

	health := env.do("GET", "/health", "", nil)
	var resp map[string]interface{}
	json.NewDecoder(health.Body).Decode(&resp)
	if resp["status"] != "degraded" {
		t.Errorf("Expected degraded health, got %v", resp["status"])
	}
}

const songItem = `{"type":"song","id":"abc","info":{"name":"Around the World"},"authors":[{"name":"Daft Punk"}]}`

func TestPlaySongHandler(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {})

	tests := []struct {
		name     string
		target   string
		body     string
		expected int
	}{
		{"accepted", "/songs/abc/play", `{"item":` + songItem + `,"playTimeMs":30000}`, http.StatusAccepted},
		{"mismatched id", "/songs/other/play", `{"item":` + songItem + `,"playTimeMs":1000}`, http.StatusBadRequest},
		{"negative play time", "/songs/abc/play", `{"item":` + songItem + `,"playTimeMs":-1}`, http.StatusBadRequest},
		{"missing item", "/songs/abc/play", `{"playTimeMs":1000}`, http.StatusBadRequest},
		{"malformed body", "/songs/abc/play", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do("POST", tt.target, tt.body, nil); w.Code != tt.expected {
				t.Errorf("Expected %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
		})
	}

	drainSync()
	song, err := library.Song(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Expected the played song to be cached: %v", err)
	}
	if song.TotalPlayTimeMs != 30000 {
		t.Errorf("Expected 30000ms of play time, got %d", song.TotalPlayTimeMs)
	}
}

func TestLikeSongHandler_UncachedSong(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {})

	w := env.do("POST", "/songs/abc/like", `{"item":`+songItem+`,"liked":true}`, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	var resp SyncAccepted
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Queued {
		t.Error("Expected the like to be queued")
	}

	drainSync()
	likedAt, err := library.LikedAt(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Failed to read like: %v", err)
	}
	if likedAt == nil {
		t.Error("Expected the song to be inserted liked")
	}
}

func TestAddPlaylistSongHandler(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {})

	w := env.do("POST", "/library/playlists", `{"name":"Road Trip"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	json.NewDecoder(w.Body).Decode(&created)

	target := "/library/playlists/" + jsonInt(created.ID) + "/songs"
	if w := env.do("POST", target, `{"item":`+songItem+`}`, nil); w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}

	drainSync()
	songs, err := library.PlaylistSongs(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Failed to list playlist: %v", err)
	}
	if len(songs) != 1 || songs[0].ID != "abc" {
		t.Errorf("Expected abc in the playlist, got %+v", songs)
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestCreatePlaylistHandler_BlankName(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {})

	if w := env.do("POST", "/library/playlists", `{"name":"   "}`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a blank name, got %d", w.Code)
	}
}

func TestSongHandler_NotFound(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {})

	if w := env.do("GET", "/library/songs/missing", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestSongsStreamHandler(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {})
	if err := library.UpsertSong(context.Background(), database.SongRecord{ID: "abc", Title: "Around the World"}); err != nil {
		t.Fatalf("Failed to seed song: %v", err)
	}

	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/library/songs/stream", nil)
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %q", got)
	}

	// The first event is the current snapshot.
	readSnapshot := func(scanner *bufio.Scanner) []database.Song {
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var songs []database.Song
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &songs); err != nil {
				t.Fatalf("Failed to decode event: %v", err)
			}
			return songs
		}
		t.Fatalf("Stream ended early: %v", scanner.Err())
		return nil
	}

	scanner := bufio.NewScanner(resp.Body)
	if songs := readSnapshot(scanner); len(songs) != 1 || songs[0].ID != "abc" {
		t.Fatalf("Expected initial snapshot with abc, got %+v", songs)
	}

	if err := library.UpsertSong(context.Background(), database.SongRecord{ID: "def", Title: "One More Time"}); err != nil {
		t.Fatalf("Failed to add song: %v", err)
	}
	if songs := readSnapshot(scanner); len(songs) != 2 {
		t.Errorf("Expected a fresh snapshot with 2 songs, got %+v", songs)
	}
}

func TestMaintenanceEndpoints_RequireKey(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {})

	original := conf.Configuration.APIKey
	conf.Configuration.APIKey = "secret"
	defer func() { conf.Configuration.APIKey = original }()

	tests := []struct {
		name     string
		key      string
		expected int
	}{
		{"no key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusUnauthorized},
		{"valid key", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/database/history/clear", nil)
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, r)
			if w.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestDatabaseBackupAndRestore(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {})
	ctx := context.Background()
	library.UpsertSong(ctx, database.SongRecord{ID: "abc", Title: "Around the World"})

	w := env.do("POST", "/database/backup", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	backups, err := library.ListBackups()
	if err != nil || len(backups) != 1 {
		t.Fatalf("Expected one backup, got %v (%v)", backups, err)
	}

	library.UpsertSong(ctx, database.SongRecord{ID: "def", Title: "One More Time"})

	if w := env.do("POST", "/database/restore?file=../etc/passwd", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a traversal name, got %d", w.Code)
	}
	if w := env.do("POST", "/database/restore?file="+backups[0].FileName, "", nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 restoring, got %d: %s", w.Code, w.Body.String())
	}
	if _, err := library.Song(ctx, "def"); err == nil {
		t.Error("Expected the song added after the backup to be gone")
	}
}

func TestClearCacheHandler(t *testing.T) {
	env := setupTestEnvironment(t, 0, func(w http.ResponseWriter, r *http.Request, body obj) {
		writeJSON(w, suggestionsBody("daft punk"))
	})

	env.do("GET", "/suggestions?input=daft", "", nil)
	if w := env.do("POST", "/cache/clear", "", nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w := env.do("GET", "/suggestions?input=daft", "", nil)
	if got := w.Header().Get("X-Cache-Status"); got != "MISS" {
		t.Errorf("Expected MISS after clearing, got %q", got)
	}
	if backups, _ := responseCache.ListBackups(); len(backups) != 1 {
		t.Errorf("Expected a backup before clearing, got %d", len(backups))
	}
}
