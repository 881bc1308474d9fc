package innertube

// SearchFilter narrows a search to one result kind. Its value is the opaque
// params string the catalog expects.
type SearchFilter string

const (
	FilterSong              SearchFilter = "EgWKAQIIAWoKEAkQBRAKEAMQBA%3D%3D"
	FilterVideo             SearchFilter = "EgWKAQIQAWoKEAkQChAFEAMQBA%3D%3D"
	FilterAlbum             SearchFilter = "EgWKAQIYAWoKEAkQChAFEAMQBA%3D%3D"
	FilterArtist            SearchFilter = "EgWKAQIgAWoKEAkQChAFEAMQBA%3D%3D"
	FilterCommunityPlaylist SearchFilter = "EgeKAQQoAEABagoQAxAEEAoQCRAF"
	FilterFeaturedPlaylist  SearchFilter = "EgeKAQQoADgBagwQDhAKEAMQBRAJEAQ%3D"
)

var filterNames = map[string]SearchFilter{
	"song":               FilterSong,
	"video":              FilterVideo,
	"album":              FilterAlbum,
	"artist":             FilterArtist,
	"community_playlist": FilterCommunityPlaylist,
	"featured_playlist":  FilterFeaturedPlaylist,
}

// ParseSearchFilter maps a filter name (song, video, album, artist,
// community_playlist, featured_playlist) to its filter. Empty means song.
func ParseSearchFilter(name string) (SearchFilter, bool) {
	if name == "" {
		return FilterSong, true
	}
	f, ok := filterNames[name]
	return f, ok
}

// Kind returns the item kind produced by searches with this filter.
func (f SearchFilter) Kind() ItemKind {
	switch f {
	case FilterVideo:
		return KindVideo
	case FilterAlbum:
		return KindAlbum
	case FilterArtist:
		return KindArtist
	case FilterCommunityPlaylist, FilterFeaturedPlaylist:
		return KindPlaylist
	default:
		return KindSong
	}
}

type SearchBody struct {
	Context Context `json:"context"`
	Query   string  `json:"query"`
	Params  string  `json:"params,omitempty"`
}

type BrowseBody struct {
	Context  Context `json:"context"`
	BrowseID string  `json:"browseId"`
	Params   string  `json:"params,omitempty"`
}

type ContinuationBody struct {
	Context      Context `json:"context"`
	Continuation string  `json:"continuation"`
}

type SearchSuggestionsBody struct {
	Context Context `json:"context"`
	Input   string  `json:"input"`
}

type PlayerBody struct {
	Context    Context `json:"context"`
	VideoID    string  `json:"videoId"`
	PlaylistID string  `json:"playlistId,omitempty"`
}

// NextBody requests the watch-next panel (radio queue and related tabs) of a video.
type NextBody struct {
	Context                            Context                             `json:"context"`
	VideoID                            string                              `json:"videoId,omitempty"`
	PlaylistID                         string                              `json:"playlistId,omitempty"`
	Params                             string                              `json:"params,omitempty"`
	PlaylistSetVideoID                 string                              `json:"playlistSetVideoId,omitempty"`
	Index                              *int                                `json:"index,omitempty"`
	IsAudioOnly                        bool                                `json:"isAudioOnly"`
	TunerSettingValue                  string                              `json:"tunerSettingValue"`
	Continuation                       string                              `json:"continuation,omitempty"`
	WatchEndpointMusicSupportedConfigs *WatchEndpointMusicSupportedConfigs `json:"watchEndpointMusicSupportedConfigs,omitempty"`
}

// NewNextBody builds a NextBody with the audio-only defaults the web client sends.
func NewNextBody(ctx Context, videoID, playlistID string) NextBody {
	return NextBody{
		Context:           ctx,
		VideoID:           videoID,
		PlaylistID:        playlistID,
		IsAudioOnly:       true,
		TunerSettingValue: "AUTOMIX_SETTING_NORMAL",
		WatchEndpointMusicSupportedConfigs: &WatchEndpointMusicSupportedConfigs{
			WatchEndpointMusicConfig: &WatchEndpointMusicConfig{MusicVideoType: "MUSIC_VIDEO_TYPE_ATV"},
		},
	}
}
