package innertube

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Builders for renderer fixtures. They produce the same nesting the catalog
// returns so the decoding path is exercised end to end.

type obj = map[string]any

func text(s string) obj {
	return obj{"text": s}
}

func sep() obj {
	return text(" • ")
}

func browseRun(s, browseID, pageType string) obj {
	return obj{"text": s, "navigationEndpoint": browseEndpoint(browseID, pageType)}
}

func runs(rs ...obj) obj {
	return obj{"runs": rs}
}

func watchEndpoint(videoID string) obj {
	return obj{"watchEndpoint": obj{"videoId": videoID}}
}

func browseEndpoint(browseID, pageType string) obj {
	return obj{"browseEndpoint": obj{
		"browseId": browseID,
		"browseEndpointContextSupportedConfigs": obj{
			"browseEndpointContextMusicConfig": obj{"pageType": pageType},
		},
	}}
}

func flex(r obj) obj {
	return obj{"musicResponsiveListItemFlexColumnRenderer": obj{"text": r}}
}

func fixed(r obj) obj {
	return obj{"musicResponsiveListItemFixedColumnRenderer": obj{"text": r}}
}

// songRow is a search row: title column plus "authors • album • duration".
func songRow(videoID, title string) obj {
	return obj{"musicResponsiveListItemRenderer": obj{
		"flexColumns": []obj{
			flex(runs(obj{"text": title, "navigationEndpoint": watchEndpoint(videoID)})),
			flex(runs(browseRun("Artist", "UC1", PageTypeArtist), sep(), browseRun("Album", "MPRE1", PageTypeAlbum), sep(), text("3:21"))),
		},
		"navigationEndpoint": watchEndpoint(videoID),
	}}
}

// brokenRow has no title column and cannot be mapped.
func brokenRow() obj {
	return obj{"musicResponsiveListItemRenderer": obj{
		"navigationEndpoint": watchEndpoint("zzz"),
	}}
}

// trackRow is a playlist row with one field per column.
func trackRow(videoID, title string) obj {
	return obj{"musicResponsiveListItemRenderer": obj{
		"flexColumns": []obj{
			flex(runs(text(title))),
			flex(runs(browseRun("Artist", "UC1", PageTypeArtist))),
			flex(runs(browseRun("Album", "MPRE1", PageTypeAlbum))),
		},
		"fixedColumns":     []obj{fixed(runs(text("4:05")))},
		"playlistItemData": obj{"videoId": videoID},
	}}
}

func continuations(token string) []obj {
	if token == "" {
		return nil
	}
	return []obj{{"nextContinuationData": obj{"continuation": token}}}
}

func searchResponse(token string, rows ...obj) obj {
	return obj{"contents": obj{"tabbedSearchResultsRenderer": obj{"tabs": []obj{{
		"tabRenderer": obj{"content": obj{"sectionListRenderer": obj{"contents": []obj{
			{"musicShelfRenderer": obj{"contents": rows, "continuations": continuations(token)}},
		}}}},
	}}}}}
}

func searchContinuationResponse(token string, rows ...obj) obj {
	return obj{"continuationContents": obj{
		"musicShelfContinuation": obj{"contents": rows, "continuations": continuations(token)},
	}}
}

// recordedRequest is what the fake upstream saw.
type recordedRequest struct {
	Path      string
	Query     map[string][]string
	Header    http.Header
	Body      map[string]any
	FieldMask string
}

// fakeUpstream replies with handler and records every request.
type fakeUpstream struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeUpstream(t *testing.T, handler func(w http.ResponseWriter, req recordedRequest)) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec := recordedRequest{
			Path:      r.URL.Path,
			Query:     r.URL.Query(),
			Header:    r.Header.Clone(),
			FieldMask: r.Header.Get("X-Goog-FieldMask"),
		}
		_ = json.Unmarshal(raw, &rec.Body)

		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()

		handler(w, rec)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeUpstream) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(f *fakeUpstream) *Client {
	return New(Options{BaseURL: f.URL, APIKey: "test-key", HTTPClient: f.Client()})
}

// clientName reads context.client.clientName from a recorded body.
func clientName(body map[string]any) string {
	ctx, _ := body["context"].(map[string]any)
	client, _ := ctx["client"].(map[string]any)
	name, _ := client["clientName"].(string)
	return name
}
