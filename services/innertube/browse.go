package innertube

import (
	"context"
	"music-api-go/services/pager"
	"net/url"
)

const (
	playlistContinuationMask = "continuationContents.musicPlaylistShelfContinuation(continuations,contents." + listItemMask + ")"
	browseSectionsMask       = "header,contents.singleColumnBrowseResultsRenderer.tabs.tabRenderer.content.sectionListRenderer(continuations,contents(musicCarouselShelfRenderer(header,contents(" + listItemMask + "," + twoRowItemMask + ")),gridRenderer(header,items." + twoRowItemMask + "),musicShelfRenderer(title,contents." + listItemMask + ")))"
	browseContinuationMask   = "continuationContents.sectionListContinuation(continuations,contents(musicCarouselShelfRenderer(header,contents(" + listItemMask + "," + twoRowItemMask + ")),gridRenderer(header,items." + twoRowItemMask + "),musicShelfRenderer(title,contents." + listItemMask + ")))"
)

// PlaylistHeader describes a playlist or album page.
type PlaylistHeader struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Authors       []Info     `json:"authors,omitempty"`
	Year          string     `json:"year,omitempty"`
	SongCountText string     `json:"songCountText,omitempty"`
	Description   string     `json:"description,omitempty"`
	Thumbnail     *Thumbnail `json:"thumbnail,omitempty"`
}

// PlaylistPage is the header and the first page of songs of a playlist or
// album. Songs is nil when the page has no song shelf.
type PlaylistPage struct {
	Header PlaylistHeader         `json:"header"`
	Songs  *pager.Page[*SongItem] `json:"songs"`
}

// Section is one titled shelf of a browse page.
type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// BrowsePage is a home, explore or artist page. StopReason and Partial are
// only set by BrowseAll.
type BrowsePage struct {
	Title        string           `json:"title,omitempty"`
	Sections     []Section        `json:"sections"`
	Continuation string           `json:"continuation,omitempty"`
	StopReason   pager.StopReason `json:"stopReason,omitempty"`
	Partial      bool             `json:"partial,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// IsPartial reports whether section accumulation stopped early.
func (p *BrowsePage) IsPartial() bool {
	return p.Partial
}

// PlaylistPage fetches the header and first songs of a playlist or album.
func (c *Client) PlaylistPage(ctx context.Context, browseID string) (*PlaylistPage, error) {
	body := BrowseBody{Context: c.web, BrowseID: browseID}

	var resp BrowseResponse
	if err := c.post(ctx, EndpointBrowse, c.web, body, "", nil, &resp); err != nil {
		return nil, err
	}

	page := &PlaylistPage{Header: playlistHeader(browseID, resp.detailHeader())}

	sl := resp.sectionList()
	if sl == nil {
		return page, nil
	}
	for _, content := range sl.Contents {
		shelf := content.MusicPlaylistShelfRenderer
		if shelf == nil {
			shelf = content.MusicShelfRenderer
		}
		if shelf != nil {
			page.Songs = songPage(shelf)
			break
		}
	}
	return page, nil
}

// PlaylistContinuation fetches the next songs of a playlist.
func (c *Client) PlaylistContinuation(ctx context.Context, token string) (*pager.Page[*SongItem], error) {
	body := ContinuationBody{Context: c.web, Continuation: token}
	query := url.Values{
		"continuation": {token},
		"ctoken":       {token},
		"type":         {"next"},
	}

	var resp ContinuationResponse
	if err := c.post(ctx, EndpointBrowse, c.web, body, playlistContinuationMask, query, &resp); err != nil {
		return nil, err
	}

	var shelf *MusicShelfRenderer
	if cc := resp.ContinuationContents; cc != nil {
		shelf = cc.MusicPlaylistShelfContinuation
		if shelf == nil {
			shelf = cc.MusicShelfContinuation
		}
	}
	if shelf == nil {
		return &pager.Page[*SongItem]{Items: []*SongItem{}}, nil
	}
	return songPage(shelf), nil
}

// PlaylistAll fetches a playlist and follows every song continuation. The
// result is nil when the playlist has no song shelf.
func (c *Client) PlaylistAll(ctx context.Context, browseID string, opts pager.Options) (*PlaylistHeader, *pager.Result[*SongItem], error) {
	page, err := c.PlaylistPage(ctx, browseID)
	if err != nil {
		return nil, nil, err
	}
	if opts.Label == "" {
		opts.Label = "playlist " + browseID
	}
	result, err := pager.Accumulate(ctx, page.Songs, c.PlaylistContinuation, opts)
	if err != nil {
		return nil, nil, err
	}
	return &page.Header, result, nil
}

// Browse fetches the titled sections of a browse page such as home or explore.
func (c *Client) Browse(ctx context.Context, browseID, params string) (*BrowsePage, error) {
	body := BrowseBody{Context: c.web, BrowseID: browseID, Params: params}

	var resp BrowseResponse
	if err := c.post(ctx, EndpointBrowse, c.web, body, browseSectionsMask, nil, &resp); err != nil {
		return nil, err
	}

	page := &BrowsePage{Sections: []Section{}}
	if h := resp.detailHeader(); h != nil {
		page.Title = h.Title.Text()
	}
	if sl := resp.sectionList(); sl != nil {
		page.Sections = sections(sl.Contents)
		page.Continuation = firstContinuation(sl.Continuations)
	}
	return page, nil
}

// BrowseContinuation fetches further sections of a browse page.
func (c *Client) BrowseContinuation(ctx context.Context, token string) (*pager.Page[Section], error) {
	body := ContinuationBody{Context: c.web, Continuation: token}
	query := url.Values{
		"continuation": {token},
		"ctoken":       {token},
		"type":         {"next"},
	}

	var resp ContinuationResponse
	if err := c.post(ctx, EndpointBrowse, c.web, body, browseContinuationMask, query, &resp); err != nil {
		return nil, err
	}

	page := &pager.Page[Section]{Items: []Section{}}
	if resp.ContinuationContents != nil && resp.ContinuationContents.SectionListContinuation != nil {
		sl := resp.ContinuationContents.SectionListContinuation
		page.Items = sections(sl.Contents)
		page.Continuation = firstContinuation(sl.Continuations)
	}
	return page, nil
}

// BrowseAll fetches a browse page and every section continuation after it.
func (c *Client) BrowseAll(ctx context.Context, browseID, params string, opts pager.Options) (*BrowsePage, error) {
	first, err := c.Browse(ctx, browseID, params)
	if err != nil {
		return nil, err
	}
	if opts.Label == "" {
		opts.Label = "browse " + browseID
	}
	seed := &pager.Page[Section]{Items: first.Sections, Continuation: first.Continuation}
	result, err := pager.Accumulate(ctx, seed, c.BrowseContinuation, opts)
	if err != nil {
		return nil, err
	}
	page := &BrowsePage{
		Title:        first.Title,
		Sections:     result.Items,
		Continuation: result.Continuation,
		StopReason:   result.StopReason,
		Partial:      result.Partial(),
	}
	if result.Err != nil {
		page.Error = result.Err.Error()
	}
	return page, nil
}

func songPage(shelf *MusicShelfRenderer) *pager.Page[*SongItem] {
	page := &pager.Page[*SongItem]{Items: []*SongItem{}}
	for _, content := range shelf.Contents {
		if song, ok := SongFromColumns(content.MusicResponsiveListItemRenderer); ok {
			page.Items = append(page.Items, song)
		}
	}
	page.Continuation = firstContinuation(shelf.Continuations)
	return page
}

func playlistHeader(browseID string, h *MusicDetailHeaderRenderer) PlaylistHeader {
	header := PlaylistHeader{ID: browseID}
	if h == nil {
		return header
	}
	header.Title = h.Title.Text()
	header.Description = h.Description.Text()
	header.Thumbnail = h.Thumbnail.largest()
	if h.SecondSubtitle != nil {
		if first := h.SecondSubtitle.First(); first != nil {
			header.SongCountText = first.Text
		}
	}

	// "Playlist • Author • 2023" or "Album • Artist • 2023"
	groups := h.Subtitle.SplitBySeparator()
	if len(groups) >= 2 {
		header.Authors = infosFromRuns(groups[1])
	}
	if len(groups) >= 3 {
		header.Year = runsText(groups[len(groups)-1])
	}
	return header
}

// sections maps section list contents into titled shelves. Untitled shelves
// and unmappable entries are dropped.
func sections(contents []SectionListContent) []Section {
	out := []Section{}
	for _, content := range contents {
		var section Section
		switch {
		case content.MusicCarouselShelfRenderer != nil:
			carousel := content.MusicCarouselShelfRenderer
			section.Title = carousel.title()
			for _, entry := range carousel.Contents {
				if item, ok := ItemFromTwoRow(entry.MusicTwoRowItemRenderer); ok {
					section.Items = append(section.Items, item)
				} else if song, ok := SongFromColumns(entry.MusicResponsiveListItemRenderer); ok {
					section.Items = append(section.Items, song)
				}
			}
		case content.GridRenderer != nil:
			section.Title = content.GridRenderer.title()
			for _, entry := range content.GridRenderer.Items {
				if item, ok := ItemFromTwoRow(entry.MusicTwoRowItemRenderer); ok {
					section.Items = append(section.Items, item)
				}
			}
		case content.MusicShelfRenderer != nil:
			section.Title = content.MusicShelfRenderer.Title.Text()
			for _, entry := range content.MusicShelfRenderer.Contents {
				if song, ok := SongFromColumns(entry.MusicResponsiveListItemRenderer); ok {
					section.Items = append(section.Items, song)
				}
			}
		}
		if section.Title == "" {
			continue
		}
		if section.Items == nil {
			section.Items = []Item{}
		}
		out = append(out, section)
	}
	return out
}
