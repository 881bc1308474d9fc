package main

import (
	"context"
	"music-api-go/logcolors"
	"music-api-go/services/cachesync"
	"music-api-go/services/innertube"
	"music-api-go/services/pager"
	"music-api-go/stats"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func pagerOptions(label string) pager.Options {
	return pager.Options{MaxPages: conf.Configuration.MaxContinuationPages, Label: label}
}

func parseFilter(r *http.Request) (innertube.SearchFilter, error) {
	name := r.URL.Query().Get("filter")
	filter, ok := innertube.ParseSearchFilter(name)
	if !ok {
		return "", badRequest("unknown filter %q", name)
	}
	return filter, nil
}

// searchHandler returns one search page. A fresh query is remembered in the
// search history; continuation requests are not.
func searchHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	token := r.URL.Query().Get("continuation")
	filter, err := parseFilter(r)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if query == "" && token == "" {
		Respond(w, r).Fail(badRequest("q or continuation is required"))
		return
	}
	if !requireUpstream(w, r) {
		return
	}

	var page *pager.Page[innertube.Item]
	if token != "" {
		page, err = catalog.SearchContinuation(r.Context(), token, filter)
	} else {
		page, err = catalog.Search(r.Context(), query, filter)
	}
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}

	if token == "" && syncPolicy != nil {
		syncPolicy.OnSearch(query)
	}
	Respond(w, r).JSON(page)
}

// searchAllHandler follows every continuation of a search. A continuation
// failure still answers 200 with what was gathered and partial set.
func searchAllHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	filter, err := parseFilter(r)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if query == "" {
		Respond(w, r).Fail(badRequest("q is required"))
		return
	}
	if !requireUpstream(w, r) {
		return
	}

	result, err := catalog.SearchAll(r.Context(), query, filter, pagerOptions("search "+query))
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}

	if syncPolicy != nil {
		syncPolicy.OnSearch(query)
	}
	resp := SearchAllResponse{Result: result, Partial: result.Partial()}
	if result.Err != nil {
		stats.Get().RecordPartialResult()
		resp.Error = result.Err.Error()
	}
	Respond(w, r).JSON(resp)
}

func suggestionsHandler(w http.ResponseWriter, r *http.Request) {
	input := strings.TrimSpace(r.URL.Query().Get("input"))
	if input == "" {
		Respond(w, r).JSON(map[string]interface{}{"suggestions": []string{}})
		return
	}

	serveCached(w, r, buildCacheKey("suggestions", input), conf.SuggestionsCacheTTL(), func(ctx context.Context) (interface{}, error) {
		suggestions, err := catalog.SearchSuggestions(ctx, input)
		if err != nil {
			return nil, err
		}
		if suggestions == nil {
			suggestions = []string{}
		}
		return map[string]interface{}{"suggestions": suggestions}, nil
	})
}

func browseHandler(w http.ResponseWriter, r *http.Request) {
	browseID := mux.Vars(r)["browseId"]
	params := r.URL.Query().Get("params")

	serveCached(w, r, buildCacheKey("browse", browseID, params), conf.ResponseCacheTTL(), func(ctx context.Context) (interface{}, error) {
		return catalog.BrowseAll(ctx, browseID, params, pagerOptions("browse "+browseID))
	})
}

// playlistHandler returns the playlist header and its first song page, or
// every page with ?all=true.
func playlistHandler(w http.ResponseWriter, r *http.Request) {
	browseID := mux.Vars(r)["browseId"]
	all := r.URL.Query().Get("all") == "true"
	if !requireUpstream(w, r) {
		return
	}

	if !all {
		page, err := catalog.PlaylistPage(r.Context(), browseID)
		if err != nil {
			Respond(w, r).Fail(err)
			return
		}
		resp := PlaylistResponse{Header: page.Header, Songs: []*innertube.SongItem{}}
		if page.Songs != nil {
			resp.Songs = page.Songs.Items
			resp.Continuation = page.Songs.Continuation
		}
		Respond(w, r).JSON(resp)
		return
	}

	header, result, err := catalog.PlaylistAll(r.Context(), browseID, pagerOptions("playlist "+browseID))
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	resp := PlaylistResponse{Header: *header, Songs: []*innertube.SongItem{}}
	if result != nil {
		resp.Songs = result.Items
		resp.Continuation = result.Continuation
		resp.StopReason = result.StopReason
		resp.Partial = result.Partial()
		if result.Err != nil {
			stats.Get().RecordPartialResult()
			resp.Error = result.Err.Error()
		}
	}
	Respond(w, r).JSON(resp)
}

func playlistContinuationHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		Respond(w, r).Fail(badRequest("token is required"))
		return
	}
	if !requireUpstream(w, r) {
		return
	}

	page, err := catalog.PlaylistContinuation(r.Context(), token)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(page)
}

// nextHandler returns one page of the radio queue seeded by a video.
func nextHandler(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["videoId"]
	q := r.URL.Query()
	if !requireUpstream(w, r) {
		return
	}

	body := innertube.NewNextBody(catalog.WebContext(), videoID, q.Get("playlistId"))
	body.Params = q.Get("params")

	var page *pager.Page[*innertube.SongItem]
	var err error
	if token := q.Get("continuation"); token != "" {
		body.Continuation = token
		page, err = catalog.NextContinuation(r.Context(), body)
	} else {
		page, err = catalog.Next(r.Context(), body)
	}
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(page)
}

func relatedHandler(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["videoId"]

	serveCached(w, r, buildCacheKey("related", videoID), conf.ResponseCacheTTL(), func(ctx context.Context) (interface{}, error) {
		return catalog.Related(ctx, videoID)
	})
}

// playerHandler resolves the stream for a video and records its format for
// songs already in the local cache.
func playerHandler(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["videoId"]
	if !requireUpstream(w, r) {
		return
	}

	media, err := catalog.Player(r.Context(), videoID, r.URL.Query().Get("playlistId"))
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}

	if format, ok := cachesync.FormatRecord(media); ok && syncPolicy != nil {
		syncPolicy.OnFormat(format)
	}
	Respond(w, r).JSON(media)
}

// quickPicksHandler builds the home feed from the most trending local song.
func quickPicksHandler(w http.ResponseWriter, r *http.Request) {
	trending, err := library.Trending(r.Context(), time.Now(), 1)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if len(trending) == 0 {
		log.Debugf("%s No listening history yet, quick picks are empty", logcolors.LogInnertube)
		Respond(w, r).JSON(QuickPicksResponse{})
		return
	}

	seed := trending[0].ID
	serveCached(w, r, buildCacheKey("quickpicks", seed), conf.ResponseCacheTTL(), func(ctx context.Context) (interface{}, error) {
		related, err := catalog.Related(ctx, seed)
		if err != nil {
			return nil, err
		}
		return QuickPicksResponse{SeedSongID: seed, Related: related}, nil
	})
}
