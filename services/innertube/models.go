package innertube

import "strings"

// Wire shapes of the catalog's renderer tree. Every nested renderer is a
// pointer or slice so that absent nodes decode to nil instead of failing.

type Runs struct {
	Runs []Run `json:"runs"`
}

type Run struct {
	Text               string              `json:"text"`
	NavigationEndpoint *NavigationEndpoint `json:"navigationEndpoint,omitempty"`
}

// Text concatenates every run.
func (r *Runs) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, run := range r.Runs {
		b.WriteString(run.Text)
	}
	return b.String()
}

// First returns the first run, or nil.
func (r *Runs) First() *Run {
	if r == nil || len(r.Runs) == 0 {
		return nil
	}
	return &r.Runs[0]
}

const runSeparator = " • "

// SplitBySeparator groups runs between " • " separator runs.
func (r *Runs) SplitBySeparator() [][]Run {
	if r == nil {
		return nil
	}
	var groups [][]Run
	var current []Run
	for _, run := range r.Runs {
		if run.Text == runSeparator {
			groups = append(groups, current)
			current = nil
			continue
		}
		current = append(current, run)
	}
	if len(current) > 0 || len(groups) > 0 {
		groups = append(groups, current)
	}
	return groups
}

type NavigationEndpoint struct {
	WatchEndpoint         *WatchEndpoint         `json:"watchEndpoint,omitempty"`
	WatchPlaylistEndpoint *WatchPlaylistEndpoint `json:"watchPlaylistEndpoint,omitempty"`
	BrowseEndpoint        *BrowseEndpoint        `json:"browseEndpoint,omitempty"`
	SearchEndpoint        *SearchEndpoint        `json:"searchEndpoint,omitempty"`
}

func (e *NavigationEndpoint) videoID() string {
	if e == nil || e.WatchEndpoint == nil {
		return ""
	}
	return e.WatchEndpoint.VideoID
}

func (e *NavigationEndpoint) browseID() string {
	if e == nil || e.BrowseEndpoint == nil {
		return ""
	}
	return e.BrowseEndpoint.BrowseID
}

func (e *NavigationEndpoint) pageType() string {
	if e == nil {
		return ""
	}
	return e.BrowseEndpoint.PageType()
}

type WatchEndpoint struct {
	VideoID                            string                              `json:"videoId,omitempty"`
	PlaylistID                         string                              `json:"playlistId,omitempty"`
	PlaylistSetVideoID                 string                              `json:"playlistSetVideoId,omitempty"`
	Params                             string                              `json:"params,omitempty"`
	Index                              *int                                `json:"index,omitempty"`
	WatchEndpointMusicSupportedConfigs *WatchEndpointMusicSupportedConfigs `json:"watchEndpointMusicSupportedConfigs,omitempty"`
}

type WatchEndpointMusicSupportedConfigs struct {
	WatchEndpointMusicConfig *WatchEndpointMusicConfig `json:"watchEndpointMusicConfig,omitempty"`
}

type WatchEndpointMusicConfig struct {
	MusicVideoType string `json:"musicVideoType,omitempty"`
}

type WatchPlaylistEndpoint struct {
	PlaylistID string `json:"playlistId,omitempty"`
	Params     string `json:"params,omitempty"`
}

type BrowseEndpoint struct {
	BrowseID                              string                                 `json:"browseId,omitempty"`
	Params                                string                                 `json:"params,omitempty"`
	BrowseEndpointContextSupportedConfigs *BrowseEndpointContextSupportedConfigs `json:"browseEndpointContextSupportedConfigs,omitempty"`
}

type BrowseEndpointContextSupportedConfigs struct {
	BrowseEndpointContextMusicConfig *struct {
		PageType string `json:"pageType"`
	} `json:"browseEndpointContextMusicConfig,omitempty"`
}

// Page types carried by browse endpoints.
const (
	PageTypeAlbum    = "MUSIC_PAGE_TYPE_ALBUM"
	PageTypeArtist   = "MUSIC_PAGE_TYPE_ARTIST"
	PageTypePlaylist = "MUSIC_PAGE_TYPE_PLAYLIST"
)

func (b *BrowseEndpoint) PageType() string {
	if b == nil || b.BrowseEndpointContextSupportedConfigs == nil ||
		b.BrowseEndpointContextSupportedConfigs.BrowseEndpointContextMusicConfig == nil {
		return ""
	}
	return b.BrowseEndpointContextSupportedConfigs.BrowseEndpointContextMusicConfig.PageType
}

type SearchEndpoint struct {
	Query  string `json:"query"`
	Params string `json:"params,omitempty"`
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type Thumbnails struct {
	Thumbnails []Thumbnail `json:"thumbnails"`
}

// Largest returns the widest thumbnail, or nil.
func (t *Thumbnails) Largest() *Thumbnail {
	if t == nil || len(t.Thumbnails) == 0 {
		return nil
	}
	best := t.Thumbnails[0]
	for _, th := range t.Thumbnails[1:] {
		if th.Width > best.Width {
			best = th
		}
	}
	return &best
}

type ThumbnailRenderer struct {
	MusicThumbnailRenderer *struct {
		Thumbnail *Thumbnails `json:"thumbnail"`
	} `json:"musicThumbnailRenderer"`
	CroppedSquareThumbnailRenderer *struct {
		Thumbnail *Thumbnails `json:"thumbnail"`
	} `json:"croppedSquareThumbnailRenderer"`
}

func (t *ThumbnailRenderer) largest() *Thumbnail {
	if t == nil {
		return nil
	}
	if t.MusicThumbnailRenderer != nil {
		return t.MusicThumbnailRenderer.Thumbnail.Largest()
	}
	if t.CroppedSquareThumbnailRenderer != nil {
		return t.CroppedSquareThumbnailRenderer.Thumbnail.Largest()
	}
	return nil
}

type Continuation struct {
	NextContinuationData      *ContinuationData `json:"nextContinuationData,omitempty"`
	NextRadioContinuationData *ContinuationData `json:"nextRadioContinuationData,omitempty"`
}

type ContinuationData struct {
	Continuation string `json:"continuation"`
}

// firstContinuation returns the token of the first continuation entry, or "".
func firstContinuation(cs []Continuation) string {
	if len(cs) == 0 {
		return ""
	}
	c := cs[0]
	if c.NextContinuationData != nil {
		return c.NextContinuationData.Continuation
	}
	if c.NextRadioContinuationData != nil {
		return c.NextRadioContinuationData.Continuation
	}
	return ""
}

// Columns of a responsive list item. Flex and fixed columns share a shape
// under different keys.
type ListItemColumn struct {
	Flex  *ColumnRenderer `json:"musicResponsiveListItemFlexColumnRenderer,omitempty"`
	Fixed *ColumnRenderer `json:"musicResponsiveListItemFixedColumnRenderer,omitempty"`
}

type ColumnRenderer struct {
	Text *Runs `json:"text"`
}

func (c ListItemColumn) runs() *Runs {
	if c.Flex != nil {
		return c.Flex.Text
	}
	if c.Fixed != nil {
		return c.Fixed.Text
	}
	return nil
}

type MusicResponsiveListItemRenderer struct {
	FlexColumns        []ListItemColumn    `json:"flexColumns"`
	FixedColumns       []ListItemColumn    `json:"fixedColumns"`
	Thumbnail          *ThumbnailRenderer  `json:"thumbnail"`
	NavigationEndpoint *NavigationEndpoint `json:"navigationEndpoint"`
	PlaylistItemData   *struct {
		VideoID            string `json:"videoId"`
		PlaylistSetVideoID string `json:"playlistSetVideoId"`
	} `json:"playlistItemData"`
	Badges []struct {
		MusicInlineBadgeRenderer *struct {
			Icon *struct {
				IconType string `json:"iconType"`
			} `json:"icon"`
		} `json:"musicInlineBadgeRenderer"`
	} `json:"badges"`
}

// flexRuns returns the runs of flex column i, or nil.
func (r *MusicResponsiveListItemRenderer) flexRuns(i int) *Runs {
	if r == nil || i >= len(r.FlexColumns) {
		return nil
	}
	return r.FlexColumns[i].runs()
}

func (r *MusicResponsiveListItemRenderer) fixedRuns(i int) *Runs {
	if r == nil || i >= len(r.FixedColumns) {
		return nil
	}
	return r.FixedColumns[i].runs()
}

func (r *MusicResponsiveListItemRenderer) explicit() bool {
	for _, b := range r.Badges {
		if b.MusicInlineBadgeRenderer != nil && b.MusicInlineBadgeRenderer.Icon != nil &&
			b.MusicInlineBadgeRenderer.Icon.IconType == "MUSIC_EXPLICIT_BADGE" {
			return true
		}
	}
	return false
}

type MusicTwoRowItemRenderer struct {
	NavigationEndpoint *NavigationEndpoint `json:"navigationEndpoint"`
	ThumbnailRenderer  *ThumbnailRenderer  `json:"thumbnailRenderer"`
	Title              *Runs               `json:"title"`
	Subtitle           *Runs               `json:"subtitle"`
}

type PlaylistPanelVideoRenderer struct {
	Title              *Runs               `json:"title"`
	LongBylineText     *Runs               `json:"longBylineText"`
	ShortBylineText    *Runs               `json:"shortBylineText"`
	LengthText         *Runs               `json:"lengthText"`
	NavigationEndpoint *NavigationEndpoint `json:"navigationEndpoint"`
	Thumbnail          *Thumbnails         `json:"thumbnail"`
	VideoID            string              `json:"videoId"`
}

type MusicShelfContent struct {
	MusicResponsiveListItemRenderer *MusicResponsiveListItemRenderer `json:"musicResponsiveListItemRenderer,omitempty"`
}

// MusicShelfRenderer also decodes musicPlaylistShelfRenderer and both
// continuation variants since they share a shape.
type MusicShelfRenderer struct {
	Title         *Runs               `json:"title,omitempty"`
	PlaylistID    string              `json:"playlistId,omitempty"`
	Contents      []MusicShelfContent `json:"contents"`
	Continuations []Continuation      `json:"continuations"`
}

type MusicCarouselShelfRenderer struct {
	Header *struct {
		MusicCarouselShelfBasicHeaderRenderer *struct {
			Title     *Runs `json:"title"`
			Strapline *Runs `json:"strapline"`
		} `json:"musicCarouselShelfBasicHeaderRenderer"`
	} `json:"header"`
	Contents []struct {
		MusicTwoRowItemRenderer         *MusicTwoRowItemRenderer         `json:"musicTwoRowItemRenderer,omitempty"`
		MusicResponsiveListItemRenderer *MusicResponsiveListItemRenderer `json:"musicResponsiveListItemRenderer,omitempty"`
	} `json:"contents"`
}

func (c *MusicCarouselShelfRenderer) title() string {
	if c == nil || c.Header == nil || c.Header.MusicCarouselShelfBasicHeaderRenderer == nil {
		return ""
	}
	return c.Header.MusicCarouselShelfBasicHeaderRenderer.Title.Text()
}

type GridRenderer struct {
	Header *struct {
		GridHeaderRenderer *struct {
			Title *Runs `json:"title"`
		} `json:"gridHeaderRenderer"`
	} `json:"header"`
	Items []struct {
		MusicTwoRowItemRenderer *MusicTwoRowItemRenderer `json:"musicTwoRowItemRenderer,omitempty"`
	} `json:"items"`
}

func (g *GridRenderer) title() string {
	if g == nil || g.Header == nil || g.Header.GridHeaderRenderer == nil {
		return ""
	}
	return g.Header.GridHeaderRenderer.Title.Text()
}

type SectionListContent struct {
	MusicShelfRenderer         *MusicShelfRenderer         `json:"musicShelfRenderer,omitempty"`
	MusicPlaylistShelfRenderer *MusicShelfRenderer         `json:"musicPlaylistShelfRenderer,omitempty"`
	MusicCarouselShelfRenderer *MusicCarouselShelfRenderer `json:"musicCarouselShelfRenderer,omitempty"`
	GridRenderer               *GridRenderer               `json:"gridRenderer,omitempty"`
}

type SectionListRenderer struct {
	Contents      []SectionListContent `json:"contents"`
	Continuations []Continuation       `json:"continuations"`
}

type PlaylistPanelRenderer struct {
	Contents []struct {
		PlaylistPanelVideoRenderer *PlaylistPanelVideoRenderer `json:"playlistPanelVideoRenderer,omitempty"`
	} `json:"contents"`
	Continuations []Continuation `json:"continuations"`
}

type Tabs struct {
	Tabs []Tab `json:"tabs"`
}

// tab returns the renderer of tab i, or nil.
func (t *Tabs) tab(i int) *TabRenderer {
	if t == nil || i < 0 || i >= len(t.Tabs) {
		return nil
	}
	return t.Tabs[i].TabRenderer
}

type Tab struct {
	TabRenderer *TabRenderer `json:"tabRenderer"`
}

type TabRenderer struct {
	Title    string              `json:"title,omitempty"`
	Endpoint *NavigationEndpoint `json:"endpoint,omitempty"`
	Content  *struct {
		SectionListRenderer *SectionListRenderer `json:"sectionListRenderer,omitempty"`
		MusicQueueRenderer  *struct {
			Content *struct {
				PlaylistPanelRenderer *PlaylistPanelRenderer `json:"playlistPanelRenderer"`
			} `json:"content"`
		} `json:"musicQueueRenderer,omitempty"`
	} `json:"content,omitempty"`
}

func (t *TabRenderer) sectionList() *SectionListRenderer {
	if t == nil || t.Content == nil {
		return nil
	}
	return t.Content.SectionListRenderer
}

func (t *TabRenderer) playlistPanel() *PlaylistPanelRenderer {
	if t == nil || t.Content == nil || t.Content.MusicQueueRenderer == nil ||
		t.Content.MusicQueueRenderer.Content == nil {
		return nil
	}
	return t.Content.MusicQueueRenderer.Content.PlaylistPanelRenderer
}

type ContinuationContents struct {
	MusicShelfContinuation         *MusicShelfRenderer    `json:"musicShelfContinuation,omitempty"`
	MusicPlaylistShelfContinuation *MusicShelfRenderer    `json:"musicPlaylistShelfContinuation,omitempty"`
	SectionListContinuation        *SectionListRenderer   `json:"sectionListContinuation,omitempty"`
	PlaylistPanelContinuation      *PlaylistPanelRenderer `json:"playlistPanelContinuation,omitempty"`
}

// ContinuationResponse is the reply to any continuation request.
type ContinuationResponse struct {
	ContinuationContents *ContinuationContents `json:"continuationContents"`
}

type SearchResponse struct {
	Contents *struct {
		TabbedSearchResultsRenderer *Tabs `json:"tabbedSearchResultsRenderer"`
	} `json:"contents"`
}

type MusicDetailHeaderRenderer struct {
	Title          *Runs              `json:"title"`
	Subtitle       *Runs              `json:"subtitle"`
	SecondSubtitle *Runs              `json:"secondSubtitle"`
	Description    *Runs              `json:"description"`
	Thumbnail      *ThumbnailRenderer `json:"thumbnail"`
}

type BrowseResponse struct {
	Contents *struct {
		SingleColumnBrowseResultsRenderer *Tabs                `json:"singleColumnBrowseResultsRenderer"`
		SectionListRenderer               *SectionListRenderer `json:"sectionListRenderer"`
	} `json:"contents"`
	Header *struct {
		MusicDetailHeaderRenderer         *MusicDetailHeaderRenderer `json:"musicDetailHeaderRenderer"`
		MusicImmersiveHeaderRenderer      *MusicDetailHeaderRenderer `json:"musicImmersiveHeaderRenderer"`
		MusicEditablePlaylistDetailHeader *struct {
			Header *struct {
				MusicDetailHeaderRenderer *MusicDetailHeaderRenderer `json:"musicDetailHeaderRenderer"`
			} `json:"header"`
		} `json:"musicEditablePlaylistDetailHeaderRenderer"`
	} `json:"header"`
	ContinuationContents *ContinuationContents `json:"continuationContents"`
}

func (b *BrowseResponse) detailHeader() *MusicDetailHeaderRenderer {
	if b == nil || b.Header == nil {
		return nil
	}
	if b.Header.MusicDetailHeaderRenderer != nil {
		return b.Header.MusicDetailHeaderRenderer
	}
	if b.Header.MusicImmersiveHeaderRenderer != nil {
		return b.Header.MusicImmersiveHeaderRenderer
	}
	if e := b.Header.MusicEditablePlaylistDetailHeader; e != nil && e.Header != nil {
		return e.Header.MusicDetailHeaderRenderer
	}
	return nil
}

// sectionList returns the first tab's section list, or the top-level one.
func (b *BrowseResponse) sectionList() *SectionListRenderer {
	if b == nil || b.Contents == nil {
		return nil
	}
	if sl := b.Contents.SingleColumnBrowseResultsRenderer.tab(0).sectionList(); sl != nil {
		return sl
	}
	return b.Contents.SectionListRenderer
}

type NextResponse struct {
	Contents *struct {
		SingleColumnMusicWatchNextResultsRenderer *struct {
			TabbedRenderer *struct {
				WatchNextTabbedResultsRenderer *Tabs `json:"watchNextTabbedResultsRenderer"`
			} `json:"tabbedRenderer"`
		} `json:"singleColumnMusicWatchNextResultsRenderer"`
	} `json:"contents"`
	ContinuationContents *ContinuationContents `json:"continuationContents"`
}

func (n *NextResponse) tabs() *Tabs {
	if n == nil || n.Contents == nil || n.Contents.SingleColumnMusicWatchNextResultsRenderer == nil ||
		n.Contents.SingleColumnMusicWatchNextResultsRenderer.TabbedRenderer == nil {
		return nil
	}
	return n.Contents.SingleColumnMusicWatchNextResultsRenderer.TabbedRenderer.WatchNextTabbedResultsRenderer
}

type SearchSuggestionsResponse struct {
	Contents []struct {
		SearchSuggestionsSectionRenderer *struct {
			Contents []struct {
				SearchSuggestionRenderer *struct {
					NavigationEndpoint *NavigationEndpoint `json:"navigationEndpoint"`
				} `json:"searchSuggestionRenderer"`
			} `json:"contents"`
		} `json:"searchSuggestionsSectionRenderer"`
	} `json:"contents"`
}

type PlayerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	} `json:"playabilityStatus"`
	PlayerConfig *struct {
		AudioConfig *struct {
			LoudnessDB              float64 `json:"loudnessDb"`
			PerceptualLoudnessDB    float64 `json:"perceptualLoudnessDb"`
			EnablePerFormatLoudness bool    `json:"enablePerFormatLoudness"`
		} `json:"audioConfig"`
	} `json:"playerConfig"`
	StreamingData *struct {
		ExpiresInSeconds string         `json:"expiresInSeconds"`
		AdaptiveFormats  []StreamFormat `json:"adaptiveFormats"`
	} `json:"streamingData"`
	VideoDetails *struct {
		VideoID       string `json:"videoId"`
		Title         string `json:"title"`
		Author        string `json:"author"`
		LengthSeconds string `json:"lengthSeconds"`
	} `json:"videoDetails"`
}

// StreamFormat is one adaptive stream offered by the player endpoint.
// The catalog encodes several integers as strings.
type StreamFormat struct {
	Itag             int     `json:"itag"`
	URL              string  `json:"url,omitempty"`
	MimeType         string  `json:"mimeType"`
	Bitrate          int64   `json:"bitrate"`
	AverageBitrate   int64   `json:"averageBitrate,omitempty"`
	ContentLength    int64   `json:"contentLength,string,omitempty"`
	LastModified     int64   `json:"lastModified,string,omitempty"`
	ApproxDurationMs int64   `json:"approxDurationMs,string,omitempty"`
	AudioQuality     string  `json:"audioQuality,omitempty"`
	LoudnessDB       float64 `json:"loudnessDb,omitempty"`
}
