package innertube

import (
	"context"
	"music-api-go/services/pager"
)

// Field masks trim replies down to what the mappers read.
const (
	listItemMask           = "musicResponsiveListItemRenderer(flexColumns,fixedColumns,thumbnail,navigationEndpoint,playlistItemData,badges)"
	twoRowItemMask         = "musicTwoRowItemRenderer(thumbnailRenderer,title,subtitle,navigationEndpoint)"
	playlistPanelVideoMask = "playlistPanelVideoRenderer(title,navigationEndpoint,longBylineText,shortBylineText,thumbnail,lengthText,videoId)"

	searchMask             = "contents.tabbedSearchResultsRenderer.tabs.tabRenderer.content.sectionListRenderer.contents.musicShelfRenderer(continuations,contents." + listItemMask + ")"
	searchContinuationMask = "continuationContents.musicShelfContinuation(continuations,contents." + listItemMask + ")"
)

// Search returns the first page of results for query. The filter decides
// which item variant rows are mapped to. Rows that cannot be mapped are skipped.
func (c *Client) Search(ctx context.Context, query string, filter SearchFilter) (*pager.Page[Item], error) {
	if filter == "" {
		filter = FilterSong
	}
	body := SearchBody{Context: c.web, Query: query, Params: string(filter)}

	var resp SearchResponse
	if err := c.post(ctx, EndpointSearch, c.web, body, searchMask, nil, &resp); err != nil {
		return nil, err
	}

	var shelf *MusicShelfRenderer
	if resp.Contents != nil {
		if sl := resp.Contents.TabbedSearchResultsRenderer.tab(0).sectionList(); sl != nil {
			for i := len(sl.Contents) - 1; i >= 0; i-- {
				if sl.Contents[i].MusicShelfRenderer != nil {
					shelf = sl.Contents[i].MusicShelfRenderer
					break
				}
			}
		}
	}
	return searchPage(filter.Kind(), shelf), nil
}

// SearchContinuation fetches the page addressed by token. The filter must be
// the one the seed page was requested with.
func (c *Client) SearchContinuation(ctx context.Context, token string, filter SearchFilter) (*pager.Page[Item], error) {
	if filter == "" {
		filter = FilterSong
	}
	body := ContinuationBody{Context: c.web, Continuation: token}

	var resp ContinuationResponse
	if err := c.post(ctx, EndpointSearch, c.web, body, searchContinuationMask, nil, &resp); err != nil {
		return nil, err
	}

	var shelf *MusicShelfRenderer
	if resp.ContinuationContents != nil {
		shelf = resp.ContinuationContents.MusicShelfContinuation
	}
	return searchPage(filter.Kind(), shelf), nil
}

// SearchAll follows every continuation of a search, bounded by opts.
func (c *Client) SearchAll(ctx context.Context, query string, filter SearchFilter, opts pager.Options) (*pager.Result[Item], error) {
	if opts.Label == "" {
		opts.Label = "search " + query
	}
	return pager.FetchAll(ctx,
		func(ctx context.Context) (*pager.Page[Item], error) {
			return c.Search(ctx, query, filter)
		},
		func(ctx context.Context, token string) (*pager.Page[Item], error) {
			return c.SearchContinuation(ctx, token, filter)
		},
		opts,
	)
}

func searchPage(kind ItemKind, shelf *MusicShelfRenderer) *pager.Page[Item] {
	page := &pager.Page[Item]{Items: []Item{}}
	if shelf == nil {
		return page
	}
	for _, content := range shelf.Contents {
		if item, ok := ItemFromSearchRow(kind, content.MusicResponsiveListItemRenderer); ok {
			page.Items = append(page.Items, item)
		}
	}
	page.Continuation = firstContinuation(shelf.Continuations)
	return page
}
