package innertube

import "strings"

// ItemKind discriminates the catalog item variants.
type ItemKind string

const (
	KindSong     ItemKind = "song"
	KindVideo    ItemKind = "video"
	KindAlbum    ItemKind = "album"
	KindArtist   ItemKind = "artist"
	KindPlaylist ItemKind = "playlist"
)

// Item is one mapped catalog entity. Key is stable across requests: the
// videoId for songs and videos, the browseId otherwise.
type Item interface {
	Key() string
	Kind() ItemKind
}

// Info is a display name with the endpoint it links to, if any.
type Info struct {
	Name     string              `json:"name"`
	Endpoint *NavigationEndpoint `json:"endpoint,omitempty"`
}

// BrowseID returns the browse target of the info, or "".
func (i Info) BrowseID() string {
	return i.Endpoint.browseID()
}

type SongItem struct {
	Type         ItemKind   `json:"type"`
	ID           string     `json:"id"`
	Info         Info       `json:"info"`
	Authors      []Info     `json:"authors,omitempty"`
	Album        *Info      `json:"album,omitempty"`
	DurationText string     `json:"durationText,omitempty"`
	Thumbnail    *Thumbnail `json:"thumbnail,omitempty"`
	Explicit     bool       `json:"explicit,omitempty"`
}

func (s *SongItem) Key() string    { return s.ID }
func (s *SongItem) Kind() ItemKind { return KindSong }

// AuthorsText joins author names the way the catalog displays them.
func (s *SongItem) AuthorsText() string {
	return joinInfos(s.Authors)
}

type VideoItem struct {
	Type         ItemKind   `json:"type"`
	ID           string     `json:"id"`
	Info         Info       `json:"info"`
	Authors      []Info     `json:"authors,omitempty"`
	ViewsText    string     `json:"viewsText,omitempty"`
	DurationText string     `json:"durationText,omitempty"`
	Thumbnail    *Thumbnail `json:"thumbnail,omitempty"`
}

func (v *VideoItem) Key() string    { return v.ID }
func (v *VideoItem) Kind() ItemKind { return KindVideo }

func (v *VideoItem) AuthorsText() string {
	return joinInfos(v.Authors)
}

type AlbumItem struct {
	Type      ItemKind   `json:"type"`
	ID        string     `json:"id"`
	Info      Info       `json:"info"`
	Authors   []Info     `json:"authors,omitempty"`
	Year      string     `json:"year,omitempty"`
	Thumbnail *Thumbnail `json:"thumbnail,omitempty"`
}

func (a *AlbumItem) Key() string    { return a.ID }
func (a *AlbumItem) Kind() ItemKind { return KindAlbum }

type ArtistItem struct {
	Type                 ItemKind   `json:"type"`
	ID                   string     `json:"id"`
	Info                 Info       `json:"info"`
	SubscribersCountText string     `json:"subscribersCountText,omitempty"`
	Thumbnail            *Thumbnail `json:"thumbnail,omitempty"`
}

func (a *ArtistItem) Key() string    { return a.ID }
func (a *ArtistItem) Kind() ItemKind { return KindArtist }

type PlaylistItem struct {
	Type          ItemKind   `json:"type"`
	ID            string     `json:"id"`
	Info          Info       `json:"info"`
	Authors       []Info     `json:"authors,omitempty"`
	SongCountText string     `json:"songCountText,omitempty"`
	Thumbnail     *Thumbnail `json:"thumbnail,omitempty"`
}

func (p *PlaylistItem) Key() string    { return p.ID }
func (p *PlaylistItem) Kind() ItemKind { return KindPlaylist }

func infosFromRuns(runs []Run) []Info {
	if len(runs) == 0 {
		return nil
	}
	out := make([]Info, 0, len(runs))
	for _, r := range runs {
		out = append(out, Info{Name: r.Text, Endpoint: r.NavigationEndpoint})
	}
	return out
}

func infoFromRun(r *Run) Info {
	if r == nil {
		return Info{}
	}
	return Info{Name: r.Text, Endpoint: r.NavigationEndpoint}
}

func joinInfos(infos []Info) string {
	var b strings.Builder
	for _, i := range infos {
		b.WriteString(i.Name)
	}
	return b.String()
}

func runsText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

func groupAt(groups [][]Run, i int) []Run {
	if i < 0 || i >= len(groups) {
		return nil
	}
	return groups[i]
}

func isAlbumGroup(group []Run) bool {
	return len(group) > 0 && group[0].NavigationEndpoint.pageType() == PageTypeAlbum
}

// listItemVideoID prefers the row's watch endpoint, then playlistItemData,
// then the title run's endpoint.
func listItemVideoID(r *MusicResponsiveListItemRenderer) string {
	if id := r.NavigationEndpoint.videoID(); id != "" {
		return id
	}
	if r.PlaylistItemData != nil && r.PlaylistItemData.VideoID != "" {
		return r.PlaylistItemData.VideoID
	}
	if first := r.flexRuns(0).First(); first != nil {
		return first.NavigationEndpoint.videoID()
	}
	return ""
}

// SongFromSearchRow maps a song row of a filtered search shelf. The subtitle
// reads "authors • album • duration" with the album group optional.
func SongFromSearchRow(r *MusicResponsiveListItemRenderer) (*SongItem, bool) {
	if r == nil {
		return nil, false
	}
	id := listItemVideoID(r)
	title := r.flexRuns(0).First()
	if id == "" || title == nil {
		return nil, false
	}

	song := &SongItem{
		Type:      KindSong,
		ID:        id,
		Info:      infoFromRun(title),
		Thumbnail: r.Thumbnail.largest(),
		Explicit:  r.explicit(),
	}

	groups := r.flexRuns(1).SplitBySeparator()
	last := len(groups) - 1
	if last >= 0 {
		song.DurationText = runsText(groups[last])
		authorsIdx := last - 1
		if album := groupAt(groups, last-1); isAlbumGroup(album) {
			info := infoFromRun(&album[0])
			song.Album = &info
			authorsIdx = last - 2
		}
		song.Authors = infosFromRuns(groupAt(groups, authorsIdx))
	}
	return song, true
}

// VideoFromSearchRow maps "authors • views • duration" video rows.
func VideoFromSearchRow(r *MusicResponsiveListItemRenderer) (*VideoItem, bool) {
	if r == nil {
		return nil, false
	}
	id := listItemVideoID(r)
	title := r.flexRuns(0).First()
	if id == "" || title == nil {
		return nil, false
	}

	video := &VideoItem{
		Type:      KindVideo,
		ID:        id,
		Info:      infoFromRun(title),
		Thumbnail: r.Thumbnail.largest(),
	}
	groups := r.flexRuns(1).SplitBySeparator()
	last := len(groups) - 1
	if last >= 0 {
		video.DurationText = runsText(groups[last])
		video.ViewsText = runsText(groupAt(groups, last-1))
		video.Authors = infosFromRuns(groupAt(groups, last-2))
	}
	return video, true
}

// AlbumFromSearchRow maps "type • authors • year" album rows.
func AlbumFromSearchRow(r *MusicResponsiveListItemRenderer) (*AlbumItem, bool) {
	if r == nil {
		return nil, false
	}
	id := r.NavigationEndpoint.browseID()
	title := r.flexRuns(0).First()
	if id == "" || title == nil {
		return nil, false
	}

	album := &AlbumItem{
		Type:      KindAlbum,
		ID:        id,
		Info:      Info{Name: title.Text, Endpoint: r.NavigationEndpoint},
		Thumbnail: r.Thumbnail.largest(),
	}
	groups := r.flexRuns(1).SplitBySeparator()
	last := len(groups) - 1
	if last >= 0 {
		album.Year = runsText(groups[last])
		album.Authors = infosFromRuns(groupAt(groups, last-1))
	}
	return album, true
}

// ArtistFromSearchRow maps artist rows; the subtitle ends with the subscriber count.
func ArtistFromSearchRow(r *MusicResponsiveListItemRenderer) (*ArtistItem, bool) {
	if r == nil {
		return nil, false
	}
	id := r.NavigationEndpoint.browseID()
	name := r.flexRuns(0).First()
	if id == "" || name == nil {
		return nil, false
	}

	artist := &ArtistItem{
		Type:      KindArtist,
		ID:        id,
		Info:      Info{Name: name.Text, Endpoint: r.NavigationEndpoint},
		Thumbnail: r.Thumbnail.largest(),
	}
	groups := r.flexRuns(1).SplitBySeparator()
	if len(groups) > 0 {
		artist.SubscribersCountText = runsText(groups[len(groups)-1])
	}
	return artist, true
}

// PlaylistFromSearchRow maps "authors • song count" playlist rows.
func PlaylistFromSearchRow(r *MusicResponsiveListItemRenderer) (*PlaylistItem, bool) {
	if r == nil {
		return nil, false
	}
	id := r.NavigationEndpoint.browseID()
	name := r.flexRuns(0).First()
	if id == "" || name == nil {
		return nil, false
	}

	playlist := &PlaylistItem{
		Type:      KindPlaylist,
		ID:        id,
		Info:      Info{Name: name.Text, Endpoint: r.NavigationEndpoint},
		Thumbnail: r.Thumbnail.largest(),
	}
	groups := r.flexRuns(1).SplitBySeparator()
	last := len(groups) - 1
	if last >= 0 {
		playlist.SongCountText = runsText(groups[last])
		playlist.Authors = infosFromRuns(groupAt(groups, last-1))
	}
	return playlist, true
}

// ItemFromSearchRow maps a search row according to the kind the filter produces.
func ItemFromSearchRow(kind ItemKind, r *MusicResponsiveListItemRenderer) (Item, bool) {
	switch kind {
	case KindSong:
		if s, ok := SongFromSearchRow(r); ok {
			return s, true
		}
	case KindVideo:
		if v, ok := VideoFromSearchRow(r); ok {
			return v, true
		}
	case KindAlbum:
		if a, ok := AlbumFromSearchRow(r); ok {
			return a, true
		}
	case KindArtist:
		if a, ok := ArtistFromSearchRow(r); ok {
			return a, true
		}
	case KindPlaylist:
		if p, ok := PlaylistFromSearchRow(r); ok {
			return p, true
		}
	}
	return nil, false
}

// SongFromColumns maps track rows of playlists, albums and related shelves,
// where each flex column holds one field: title, authors, album.
func SongFromColumns(r *MusicResponsiveListItemRenderer) (*SongItem, bool) {
	if r == nil {
		return nil, false
	}
	id := listItemVideoID(r)
	title := r.flexRuns(0).First()
	if id == "" || title == nil {
		return nil, false
	}

	song := &SongItem{
		Type:         KindSong,
		ID:           id,
		Info:         infoFromRun(title),
		Thumbnail:    r.Thumbnail.largest(),
		Explicit:     r.explicit(),
		DurationText: r.fixedRuns(0).Text(),
	}
	if authors := r.flexRuns(1); authors != nil {
		song.Authors = infosFromRuns(authors.Runs)
	}
	if album := r.flexRuns(2).First(); album != nil && album.NavigationEndpoint.browseID() != "" {
		info := infoFromRun(album)
		song.Album = &info
	}
	return song, true
}

// SongFromPanel maps a radio queue entry. The long byline reads
// "authors • album • year".
func SongFromPanel(r *PlaylistPanelVideoRenderer) (*SongItem, bool) {
	if r == nil {
		return nil, false
	}
	id := r.NavigationEndpoint.videoID()
	if id == "" {
		id = r.VideoID
	}
	title := r.Title.First()
	if id == "" || title == nil {
		return nil, false
	}

	song := &SongItem{
		Type:         KindSong,
		ID:           id,
		Info:         Info{Name: title.Text, Endpoint: r.NavigationEndpoint},
		Thumbnail:    r.Thumbnail.Largest(),
		DurationText: r.LengthText.Text(),
	}
	groups := r.LongBylineText.SplitBySeparator()
	song.Authors = infosFromRuns(groupAt(groups, 0))
	if album := groupAt(groups, 1); isAlbumGroup(album) {
		info := infoFromRun(&album[0])
		song.Album = &info
	}
	return song, true
}

// SongFromTwoRow maps a carousel card that plays a video.
func SongFromTwoRow(r *MusicTwoRowItemRenderer) (*SongItem, bool) {
	if r == nil {
		return nil, false
	}
	id := r.NavigationEndpoint.videoID()
	title := r.Title.First()
	if id == "" || title == nil {
		return nil, false
	}
	song := &SongItem{
		Type:      KindSong,
		ID:        id,
		Info:      Info{Name: title.Text, Endpoint: r.NavigationEndpoint},
		Thumbnail: r.ThumbnailRenderer.largest(),
	}
	if r.Subtitle != nil {
		song.Authors = infosFromRuns(r.Subtitle.Runs)
	}
	return song, true
}

// AlbumFromTwoRow maps an album card; the subtitle ends with the year.
func AlbumFromTwoRow(r *MusicTwoRowItemRenderer) (*AlbumItem, bool) {
	if r == nil {
		return nil, false
	}
	id := r.NavigationEndpoint.browseID()
	title := r.Title.First()
	if id == "" || title == nil {
		return nil, false
	}
	album := &AlbumItem{
		Type:      KindAlbum,
		ID:        id,
		Info:      Info{Name: title.Text, Endpoint: r.NavigationEndpoint},
		Thumbnail: r.ThumbnailRenderer.largest(),
	}
	groups := r.Subtitle.SplitBySeparator()
	last := len(groups) - 1
	if last >= 0 {
		album.Year = runsText(groups[last])
		album.Authors = infosFromRuns(groupAt(groups, last-1))
	}
	return album, true
}

func ArtistFromTwoRow(r *MusicTwoRowItemRenderer) (*ArtistItem, bool) {
	if r == nil {
		return nil, false
	}
	id := r.NavigationEndpoint.browseID()
	name := r.Title.First()
	if id == "" || name == nil {
		return nil, false
	}
	return &ArtistItem{
		Type:                 KindArtist,
		ID:                   id,
		Info:                 Info{Name: name.Text, Endpoint: r.NavigationEndpoint},
		SubscribersCountText: r.Subtitle.Text(),
		Thumbnail:            r.ThumbnailRenderer.largest(),
	}, true
}

func PlaylistFromTwoRow(r *MusicTwoRowItemRenderer) (*PlaylistItem, bool) {
	if r == nil {
		return nil, false
	}
	id := r.NavigationEndpoint.browseID()
	name := r.Title.First()
	if id == "" || name == nil {
		return nil, false
	}
	playlist := &PlaylistItem{
		Type:      KindPlaylist,
		ID:        id,
		Info:      Info{Name: name.Text, Endpoint: r.NavigationEndpoint},
		Thumbnail: r.ThumbnailRenderer.largest(),
	}
	groups := r.Subtitle.SplitBySeparator()
	last := len(groups) - 1
	if last >= 1 {
		playlist.SongCountText = runsText(groups[last])
		playlist.Authors = infosFromRuns(groups[last-1])
	} else if last == 0 {
		playlist.Authors = infosFromRuns(groups[0])
	}
	return playlist, true
}

// ItemFromTwoRow picks the variant from the card's endpoint.
func ItemFromTwoRow(r *MusicTwoRowItemRenderer) (Item, bool) {
	if r == nil {
		return nil, false
	}
	if r.NavigationEndpoint.videoID() != "" {
		if s, ok := SongFromTwoRow(r); ok {
			return s, true
		}
		return nil, false
	}
	switch r.NavigationEndpoint.pageType() {
	case PageTypeAlbum:
		if a, ok := AlbumFromTwoRow(r); ok {
			return a, true
		}
	case PageTypeArtist:
		if a, ok := ArtistFromTwoRow(r); ok {
			return a, true
		}
	case PageTypePlaylist:
		if p, ok := PlaylistFromTwoRow(r); ok {
			return p, true
		}
	}
	return nil, false
}
