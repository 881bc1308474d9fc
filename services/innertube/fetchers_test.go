package innertube

import (
	"context"
	"errors"
	"fmt"
	"music-api-go/services/pager"
	"net/http"
	"testing"
)

func rows(prefix string, n int, row func(id, title string) obj) []obj {
	out := make([]obj, n)
	for i := range out {
		out[i] = row(fmt.Sprintf("%s%d", prefix, i), fmt.Sprintf("Song %d", i))
	}
	return out
}

func TestSearchAll_FollowsSingleContinuation(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		if req.Body["continuation"] == "tok1" {
			writeJSON(w, searchContinuationResponse("", rows("b", 5, songRow)...))
			return
		}
		writeJSON(w, searchResponse("tok1", rows("a", 20, songRow)...))
	})

	result, err := newTestClient(up).SearchAll(context.Background(), "foo", FilterSong, pager.Options{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Items) != 25 {
		t.Fatalf("Expected 25 items, got %d", len(result.Items))
	}
	if result.Items[0].Key() != "a0" || result.Items[20].Key() != "b0" {
		t.Errorf("Expected initial page before continuation, got %s then %s", result.Items[0].Key(), result.Items[20].Key())
	}
	if result.Continuation != "" || result.StopReason != pager.StopExhausted {
		t.Errorf("Expected exhausted result, got continuation %q, reason %s", result.Continuation, result.StopReason)
	}
	if up.last().FieldMask != searchContinuationMask {
		t.Errorf("Expected continuation mask on second request, got %q", up.last().FieldMask)
	}
}

func TestSearchAll_ContinuationFailureKeepsFirstPage(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		if req.Body["continuation"] == "tok1" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, searchResponse("tok1", rows("a", 20, songRow)...))
	})

	result, err := newTestClient(up).SearchAll(context.Background(), "foo", FilterSong, pager.Options{})
	if err != nil {
		t.Fatalf("Expected partial success, got %v", err)
	}
	if len(result.Items) != 20 {
		t.Errorf("Expected 20 items, got %d", len(result.Items))
	}
	if result.StopReason != pager.StopFetchFailed || !errors.Is(result.Err, ErrTransport) {
		t.Errorf("Expected fetch_failed with a transport error, got %s / %v", result.StopReason, result.Err)
	}
}

func TestSearch_FilterSelectsVariant(t *testing.T) {
	albumRow := obj{"musicResponsiveListItemRenderer": obj{
		"flexColumns": []obj{
			flex(runs(text("Some Album"))),
			flex(runs(text("Album"), sep(), browseRun("Artist", "UC1", PageTypeArtist), sep(), text("2021"))),
		},
		"navigationEndpoint": browseEndpoint("MPRE9", PageTypeAlbum),
	}}
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		writeJSON(w, searchResponse("", albumRow))
	})

	page, err := newTestClient(up).Search(context.Background(), "album", FilterAlbum)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(page.Items))
	}
	album, ok := page.Items[0].(*AlbumItem)
	if !ok {
		t.Fatalf("Expected *AlbumItem, got %T", page.Items[0])
	}
	if album.ID != "MPRE9" || album.Year != "2021" {
		t.Errorf("Expected MPRE9 from 2021, got %s from %s", album.ID, album.Year)
	}
	if len(album.Authors) != 1 || album.Authors[0].Name != "Artist" {
		t.Errorf("Expected author Artist, got %+v", album.Authors)
	}
}

func TestPlaylist_PageAndContinuation(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		if tok, ok := req.Query["ctoken"]; ok {
			if tok[0] != "ptok" || req.Query["continuation"][0] != "ptok" || req.Query["type"][0] != "next" {
				t.Errorf("Unexpected continuation query %v", req.Query)
			}
			writeJSON(w, obj{"continuationContents": obj{"musicPlaylistShelfContinuation": obj{
				"contents": rows("p2-", 2, trackRow),
			}}})
			return
		}
		writeJSON(w, obj{
			"header": obj{"musicDetailHeaderRenderer": obj{
				"title":          runs(text("Road Trip")),
				"subtitle":       runs(text("Playlist"), sep(), browseRun("Someone", "UC9", PageTypeArtist), sep(), text("2023")),
				"secondSubtitle": runs(text("52 songs")),
			}},
			"contents": obj{"singleColumnBrowseResultsRenderer": obj{"tabs": []obj{{
				"tabRenderer": obj{"content": obj{"sectionListRenderer": obj{"contents": []obj{
					{"musicPlaylistShelfRenderer": obj{
						"contents":      rows("p1-", 3, trackRow),
						"continuations": continuations("ptok"),
					}},
				}}}},
			}}}},
		})
	})
	c := newTestClient(up)

	header, result, err := c.PlaylistAll(context.Background(), "VLPL1", pager.Options{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if header.Title != "Road Trip" || header.Year != "2023" || header.SongCountText != "52 songs" {
		t.Errorf("Unexpected header %+v", header)
	}
	if len(header.Authors) != 1 || header.Authors[0].BrowseID() != "UC9" {
		t.Errorf("Expected author UC9, got %+v", header.Authors)
	}
	if len(result.Items) != 5 {
		t.Fatalf("Expected 5 songs, got %d", len(result.Items))
	}
	song := result.Items[3]
	if song.ID != "p2-0" || song.DurationText != "4:05" || song.Album == nil || song.Album.BrowseID() != "MPRE1" {
		t.Errorf("Unexpected mapped track %+v", song)
	}
	if up.last().Path != "/browse" {
		t.Errorf("Expected continuation against /browse, got %s", up.last().Path)
	}
}

func TestPlaylistAll_NoSongShelf(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		writeJSON(w, obj{"header": obj{"musicDetailHeaderRenderer": obj{"title": runs(text("Empty"))}}})
	})

	header, result, err := newTestClient(up).PlaylistAll(context.Background(), "VLPL0", pager.Options{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if header.Title != "Empty" {
		t.Errorf("Expected header title Empty, got %q", header.Title)
	}
	if result != nil {
		t.Errorf("Expected nil result without a song shelf, got %+v", result)
	}
	if up.count() != 1 {
		t.Errorf("Expected no continuation requests, got %d requests", up.count())
	}
}

func panelVideo(videoID, title string) obj {
	return obj{"playlistPanelVideoRenderer": obj{
		"title":              runs(text(title)),
		"longBylineText":     runs(browseRun("Artist", "UC1", PageTypeArtist), sep(), browseRun("Album", "MPRE1", PageTypeAlbum), sep(), text("2019")),
		"lengthText":         runs(text("2:58")),
		"navigationEndpoint": watchEndpoint(videoID),
	}}
}

func TestNextAll_RadioContinuation(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		if req.Body["continuation"] == "rtok" {
			writeJSON(w, obj{"continuationContents": obj{"playlistPanelContinuation": obj{
				"contents": rows("r2-", 2, panelVideo),
			}}})
			return
		}
		writeJSON(w, obj{"contents": obj{"singleColumnMusicWatchNextResultsRenderer": obj{"tabbedRenderer": obj{
			"watchNextTabbedResultsRenderer": obj{"tabs": []obj{{
				"tabRenderer": obj{"content": obj{"musicQueueRenderer": obj{"content": obj{
					"playlistPanelRenderer": obj{
						"contents":      rows("r1-", 3, panelVideo),
						"continuations": []obj{{"nextRadioContinuationData": obj{"continuation": "rtok"}}},
					},
				}}}},
			}}},
		}}}})
	})

	body := NewNextBody(DefaultWeb, "seed", "RDAMVMseed")
	result, err := newTestClient(up).NextAll(context.Background(), body, pager.Options{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Items) != 5 {
		t.Fatalf("Expected 5 queue entries, got %d", len(result.Items))
	}
	first := result.Items[0]
	if first.ID != "r1-0" || first.DurationText != "2:58" || first.Album == nil {
		t.Errorf("Unexpected first entry %+v", first)
	}
	if len(first.Authors) != 1 || first.Authors[0].Name != "Artist" {
		t.Errorf("Expected author Artist, got %+v", first.Authors)
	}

	req := up.last()
	if req.Body["isAudioOnly"] != true || req.Body["tunerSettingValue"] != "AUTOMIX_SETTING_NORMAL" {
		t.Errorf("Expected audio-only automix defaults, got %v", req.Body)
	}
	if req.Body["playlistId"] != "RDAMVMseed" {
		t.Errorf("Expected playlistId to be carried into continuations, got %v", req.Body["playlistId"])
	}
}

func TestRelated(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		switch req.Path {
		case "/next":
			if req.FieldMask != nextTabsMask {
				t.Errorf("Expected tabs mask, got %q", req.FieldMask)
			}
			writeJSON(w, obj{"contents": obj{"singleColumnMusicWatchNextResultsRenderer": obj{"tabbedRenderer": obj{
				"watchNextTabbedResultsRenderer": obj{"tabs": []obj{
					{"tabRenderer": obj{"title": "Up next"}},
					{"tabRenderer": obj{"title": "Lyrics"}},
					{"tabRenderer": obj{"title": "Related", "endpoint": browseEndpoint("MPTRt_rel", "")}},
				}},
			}}}})
		case "/browse":
			if req.Body["browseId"] != "MPTRt_rel" {
				t.Errorf("Expected browse of related tab, got %v", req.Body["browseId"])
			}
			carousel := func(title string, contents ...obj) obj {
				return obj{"musicCarouselShelfRenderer": obj{
					"header":   obj{"musicCarouselShelfBasicHeaderRenderer": obj{"title": runs(text(title))}},
					"contents": contents,
				}}
			}
			twoRow := func(id, title, pageType string) obj {
				return obj{"musicTwoRowItemRenderer": obj{
					"title":              runs(text(title)),
					"subtitle":           runs(text("Someone"), sep(), text("2020")),
					"navigationEndpoint": browseEndpoint(id, pageType),
				}}
			}
			writeJSON(w, obj{"contents": obj{"sectionListRenderer": obj{"contents": []obj{
				carousel("You might also like", trackRow("s1", "One"), trackRow("s2", "Two"), brokenRow()),
				carousel("Recommended playlists", twoRow("VLPL1", "Mix", PageTypePlaylist)),
				carousel("Similar artists", twoRow("UC2", "Other", PageTypeArtist)),
				carousel("Artist Name", twoRow("MPRE2", "Record", PageTypeAlbum)),
			}}}})
		}
	})

	related, err := newTestClient(up).Related(context.Background(), "seed")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if related == nil {
		t.Fatal("Expected related content, got nil")
	}
	if len(related.Songs) != 2 {
		t.Errorf("Expected 2 songs, got %d", len(related.Songs))
	}
	if len(related.Playlists) != 1 || related.Playlists[0].ID != "VLPL1" {
		t.Errorf("Unexpected playlists %+v", related.Playlists)
	}
	if len(related.Artists) != 1 || related.Artists[0].ID != "UC2" {
		t.Errorf("Unexpected artists %+v", related.Artists)
	}
	if len(related.Albums) != 1 || related.Albums[0].Year != "2020" {
		t.Errorf("Unexpected albums %+v", related.Albums)
	}
}

func TestRelated_NoRelatedTab(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		writeJSON(w, obj{})
	})

	related, err := newTestClient(up).Related(context.Background(), "seed")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if related == nil {
		t.Fatal("Expected an empty Related, got nil")
	}
	if related.Songs == nil || len(related.Songs) != 0 || len(related.Playlists) != 0 || len(related.Albums) != 0 || len(related.Artists) != 0 {
		t.Errorf("Expected empty non-nil groups, got %+v", related)
	}
	if up.count() != 1 {
		t.Errorf("Expected no browse request, got %d requests", up.count())
	}
}

func TestPlayer(t *testing.T) {
	tests := []struct {
		name       string
		response   obj
		wantErr    bool
		wantItag   int
		wantStatus string
	}{
		{
			name: "picks highest bitrate audio",
			response: obj{
				"playabilityStatus": obj{"status": "OK"},
				"playerConfig":      obj{"audioConfig": obj{"loudnessDb": -5.5}},
				"streamingData": obj{
					"expiresInSeconds": "21540",
					"adaptiveFormats": []obj{
						{"itag": 137, "mimeType": "video/mp4", "bitrate": 4000000},
						{"itag": 140, "mimeType": "audio/mp4", "bitrate": 130000, "contentLength": "3456789", "lastModified": "1690000000000"},
						{"itag": 251, "mimeType": "audio/webm; codecs=\"opus\"", "bitrate": 150000, "approxDurationMs": "210000"},
					},
				},
				"videoDetails": obj{"videoId": "v1", "title": "Title", "author": "Artist", "lengthSeconds": "210"},
			},
			wantItag:   251,
			wantStatus: "OK",
		},
		{
			name:     "unplayable",
			response: obj{"playabilityStatus": obj{"status": "LOGIN_REQUIRED", "reason": "Sign in"}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
				writeJSON(w, tt.response)
			})

			media, err := newTestClient(up).Player(context.Background(), "v1", "")

			req := up.last()
			if name := clientName(req.Body); name != "ANDROID_MUSIC" {
				t.Errorf("Expected ANDROID_MUSIC context, got %q", name)
			}
			if ua := req.Header.Get("User-Agent"); ua != androidUserAgent {
				t.Errorf("Expected android user agent, got %q", ua)
			}

			if tt.wantErr {
				var pe *PlaybackError
				if !errors.As(err, &pe) {
					t.Fatalf("Expected *PlaybackError, got %v", err)
				}
				if pe.Status != "LOGIN_REQUIRED" || pe.Reason != "Sign in" {
					t.Errorf("Unexpected playback error %+v", pe)
				}
				if errors.Is(err, ErrTransport) || errors.Is(err, ErrParse) {
					t.Error("Expected playback errors to be distinct from fetch failures")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if media.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, media.Status)
			}
			if media.Format == nil || media.Format.Itag != tt.wantItag {
				t.Fatalf("Expected itag %d, got %+v", tt.wantItag, media.Format)
			}
			if media.Format.ApproxDurationMs != 210000 {
				t.Errorf("Expected string-encoded duration to decode, got %d", media.Format.ApproxDurationMs)
			}
			if media.Format.LoudnessDB != -5.5 {
				t.Errorf("Expected loudness to fall back to the audio config, got %f", media.Format.LoudnessDB)
			}
			if media.LengthSeconds != 210 || media.ExpiresAt.IsZero() {
				t.Errorf("Expected length and expiry, got %d / %v", media.LengthSeconds, media.ExpiresAt)
			}
		})
	}
}

func TestSearchSuggestions(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		suggestion := func(q string) obj {
			return obj{"searchSuggestionRenderer": obj{"navigationEndpoint": obj{"searchEndpoint": obj{"query": q}}}}
		}
		writeJSON(w, obj{"contents": []obj{{
			"searchSuggestionsSectionRenderer": obj{"contents": []obj{
				suggestion("foo fighters"), {"historySuggestionRenderer": obj{}}, suggestion("foals"),
			}},
		}}})
	})

	got, err := newTestClient(up).SearchSuggestions(context.Background(), "fo")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "foo fighters" || got[1] != "foals" {
		t.Errorf("Expected [foo fighters foals], got %v", got)
	}
	req := up.last()
	if req.Path != "/music/get_search_suggestions" || req.Body["input"] != "fo" {
		t.Errorf("Unexpected request %s %v", req.Path, req.Body)
	}
}

func TestBrowse_Sections(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		writeJSON(w, obj{"contents": obj{"singleColumnBrowseResultsRenderer": obj{"tabs": []obj{{
			"tabRenderer": obj{"content": obj{"sectionListRenderer": obj{
				"contents": []obj{
					{"musicCarouselShelfRenderer": obj{
						"header": obj{"musicCarouselShelfBasicHeaderRenderer": obj{"title": runs(text("New releases"))}},
						"contents": []obj{
							{"musicTwoRowItemRenderer": obj{"title": runs(text("LP")), "navigationEndpoint": browseEndpoint("MPRE3", PageTypeAlbum)}},
							{"musicTwoRowItemRenderer": obj{"title": runs(text("Hit")), "navigationEndpoint": watchEndpoint("v9")}},
						},
					}},
					{"gridRenderer": obj{
						"header": obj{"gridHeaderRenderer": obj{"title": runs(text("Moods"))}},
						"items": []obj{
							{"musicTwoRowItemRenderer": obj{"title": runs(text("Chill")), "navigationEndpoint": browseEndpoint("VLPLchill", PageTypePlaylist)}},
						},
					}},
					{"musicCarouselShelfRenderer": obj{}},
				},
				"continuations": continuations("btok"),
			}}},
		}}}}})
	})

	page, err := newTestClient(up).Browse(context.Background(), "FEmusic_home", "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(page.Sections) != 2 {
		t.Fatalf("Expected untitled section to be dropped, got %d sections", len(page.Sections))
	}
	if page.Sections[0].Title != "New releases" || len(page.Sections[0].Items) != 2 {
		t.Errorf("Unexpected first section %+v", page.Sections[0])
	}
	if page.Sections[0].Items[1].Kind() != KindSong {
		t.Errorf("Expected watch card to map to a song, got %s", page.Sections[0].Items[1].Kind())
	}
	if page.Sections[1].Items[0].Kind() != KindPlaylist {
		t.Errorf("Expected grid card to map to a playlist, got %s", page.Sections[1].Items[0].Kind())
	}
	if page.Continuation != "btok" {
		t.Errorf("Expected continuation btok, got %q", page.Continuation)
	}
}

func browseSectionsResponse(title, token string) obj {
	return obj{"contents": obj{"singleColumnBrowseResultsRenderer": obj{"tabs": []obj{{
		"tabRenderer": obj{"content": obj{"sectionListRenderer": obj{
			"contents": []obj{
				{"musicCarouselShelfRenderer": obj{
					"header":   obj{"musicCarouselShelfBasicHeaderRenderer": obj{"title": runs(text(title))}},
					"contents": []obj{{"musicTwoRowItemRenderer": obj{"title": runs(text("Hit")), "navigationEndpoint": watchEndpoint("v1")}}},
				}},
			},
			"continuations": continuations(token),
		}}}},
	}}}}
}

func TestBrowseAll_ContinuationFailureIsPartial(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		if req.Body["continuation"] == "tok1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, browseSectionsResponse("Quick picks", "tok1"))
	})

	page, err := newTestClient(up).BrowseAll(context.Background(), "FEmusic_home", "", pager.Options{})
	if err != nil {
		t.Fatalf("Expected partial success, got error %v", err)
	}
	if len(page.Sections) != 1 || page.Sections[0].Title != "Quick picks" {
		t.Errorf("Expected the first page's section, got %+v", page.Sections)
	}
	if !page.Partial || !page.IsPartial() {
		t.Error("Expected the page to be marked partial")
	}
	if page.StopReason != pager.StopFetchFailed {
		t.Errorf("Expected stop reason %s, got %s", pager.StopFetchFailed, page.StopReason)
	}
	if page.Error == "" {
		t.Error("Expected the continuation failure to be reported")
	}
	if page.Continuation != "tok1" {
		t.Errorf("Expected the failed token to be kept, got %q", page.Continuation)
	}
}

func TestBrowseAll_Exhausted(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, req recordedRequest) {
		writeJSON(w, browseSectionsResponse("Moods", ""))
	})

	page, err := newTestClient(up).BrowseAll(context.Background(), "FEmusic_explore", "", pager.Options{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if page.Partial || page.Error != "" {
		t.Errorf("Expected a complete page, got partial=%v error=%q", page.Partial, page.Error)
	}
	if page.StopReason != pager.StopExhausted {
		t.Errorf("Expected stop reason %s, got %s", pager.StopExhausted, page.StopReason)
	}
}
