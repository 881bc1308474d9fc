package innertube

import (
	"context"
	"music-api-go/services/pager"
)

const (
	nextMask             = "contents.singleColumnMusicWatchNextResultsRenderer.tabbedRenderer.watchNextTabbedResultsRenderer.tabs.tabRenderer.content.musicQueueRenderer.content.playlistPanelRenderer(continuations,contents." + playlistPanelVideoMask + ")"
	nextContinuationMask = "continuationContents.playlistPanelContinuation(continuations,contents." + playlistPanelVideoMask + ")"
	nextTabsMask         = "contents.singleColumnMusicWatchNextResultsRenderer.tabbedRenderer.watchNextTabbedResultsRenderer.tabs.tabRenderer(endpoint,title)"
	relatedMask          = "contents.sectionListRenderer.contents.musicCarouselShelfRenderer(header.musicCarouselShelfBasicHeaderRenderer(title,strapline),contents(" + listItemMask + "," + twoRowItemMask + "))"
)

// relatedTabIndex is the position of the "Related" tab in the watch-next panel.
const relatedTabIndex = 2

// Related groups the recommendations shown next to a song.
type Related struct {
	Songs     []*SongItem     `json:"songs"`
	Playlists []*PlaylistItem `json:"playlists"`
	Albums    []*AlbumItem    `json:"albums"`
	Artists   []*ArtistItem   `json:"artists"`
}

// Next fetches the first page of the radio queue described by body.
func (c *Client) Next(ctx context.Context, body NextBody) (*pager.Page[*SongItem], error) {
	body.Context = c.web
	body.Continuation = ""

	var resp NextResponse
	if err := c.post(ctx, EndpointNext, c.web, body, nextMask, nil, &resp); err != nil {
		return nil, err
	}

	tabs := resp.tabs()
	if tabs == nil {
		return panelPage(nil), nil
	}
	return panelPage(tabs.tab(0).playlistPanel()), nil
}

// NextContinuation fetches the radio page addressed by body.Continuation.
func (c *Client) NextContinuation(ctx context.Context, body NextBody) (*pager.Page[*SongItem], error) {
	body.Context = c.web

	var resp NextResponse
	if err := c.post(ctx, EndpointNext, c.web, body, nextContinuationMask, nil, &resp); err != nil {
		return nil, err
	}

	if resp.ContinuationContents == nil {
		return panelPage(nil), nil
	}
	return panelPage(resp.ContinuationContents.PlaylistPanelContinuation), nil
}

// NextAll fetches the radio queue and follows its continuations.
func (c *Client) NextAll(ctx context.Context, body NextBody, opts pager.Options) (*pager.Result[*SongItem], error) {
	if opts.Label == "" {
		opts.Label = "next " + body.VideoID
	}
	return pager.FetchAll(ctx,
		func(ctx context.Context) (*pager.Page[*SongItem], error) {
			return c.Next(ctx, body)
		},
		func(ctx context.Context, token string) (*pager.Page[*SongItem], error) {
			cont := body
			cont.Continuation = token
			return c.NextContinuation(ctx, cont)
		},
		opts,
	)
}

// Related fetches the recommendations for videoID. It returns an empty Related
// when the watch-next panel carries no related tab.
func (c *Client) Related(ctx context.Context, videoID string) (*Related, error) {
	body := NewNextBody(c.web, videoID, "")

	var next NextResponse
	if err := c.post(ctx, EndpointNext, c.web, body, nextTabsMask, nil, &next); err != nil {
		return nil, err
	}

	related := &Related{
		Songs:     []*SongItem{},
		Playlists: []*PlaylistItem{},
		Albums:    []*AlbumItem{},
		Artists:   []*ArtistItem{},
	}

	tab := next.tabs().tab(relatedTabIndex)
	if tab == nil {
		return related, nil
	}
	browseID := tab.Endpoint.browseID()
	if browseID == "" {
		return related, nil
	}

	var resp BrowseResponse
	browse := BrowseBody{Context: c.web, BrowseID: browseID}
	if err := c.post(ctx, EndpointBrowse, c.web, browse, relatedMask, nil, &resp); err != nil {
		return nil, err
	}

	if resp.Contents == nil || resp.Contents.SectionListRenderer == nil {
		return related, nil
	}

	for _, content := range resp.Contents.SectionListRenderer.Contents {
		carousel := content.MusicCarouselShelfRenderer
		if carousel == nil {
			continue
		}
		switch carousel.title() {
		case "You might also like":
			for _, entry := range carousel.Contents {
				if song, ok := SongFromColumns(entry.MusicResponsiveListItemRenderer); ok {
					related.Songs = append(related.Songs, song)
				}
			}
		case "Recommended playlists":
			for _, entry := range carousel.Contents {
				if p, ok := PlaylistFromTwoRow(entry.MusicTwoRowItemRenderer); ok {
					related.Playlists = append(related.Playlists, p)
				}
			}
		case "Similar artists":
			for _, entry := range carousel.Contents {
				if a, ok := ArtistFromTwoRow(entry.MusicTwoRowItemRenderer); ok {
					related.Artists = append(related.Artists, a)
				}
			}
		default:
			// The album shelf is titled after the artist, so match on content.
			for _, entry := range carousel.Contents {
				if entry.MusicTwoRowItemRenderer == nil ||
					entry.MusicTwoRowItemRenderer.NavigationEndpoint.pageType() != PageTypeAlbum {
					continue
				}
				if a, ok := AlbumFromTwoRow(entry.MusicTwoRowItemRenderer); ok {
					related.Albums = append(related.Albums, a)
				}
			}
		}
	}
	return related, nil
}

func panelPage(panel *PlaylistPanelRenderer) *pager.Page[*SongItem] {
	page := &pager.Page[*SongItem]{Items: []*SongItem{}}
	if panel == nil {
		return page
	}
	for _, content := range panel.Contents {
		if song, ok := SongFromPanel(content.PlaylistPanelVideoRenderer); ok {
			page.Items = append(page.Items, song)
		}
	}
	page.Continuation = firstContinuation(panel.Continuations)
	return page
}
