package innertube

// Context identifies the calling client to the catalog. It is embedded in every request body.
type Context struct {
	Client ClientInfo `json:"client"`
}

// ClientInfo is the client identity block of a Context.
type ClientInfo struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	Platform          string `json:"platform,omitempty"`
	HL                string `json:"hl,omitempty"`
	GL                string `json:"gl,omitempty"`
	VisitorData       string `json:"visitorData,omitempty"`
	AndroidSDKVersion int    `json:"androidSdkVersion,omitempty"`
	OSName            string `json:"osName,omitempty"`
	OSVersion         string `json:"osVersion,omitempty"`
}

const (
	webClientName     = "WEB_REMIX"
	webClientVersion  = "1.20220918"
	androidClientName = "ANDROID_MUSIC"
	androidVersion    = "5.28.1"
	androidUserAgent  = "com.google.android.apps.youtube.music/" + androidVersion + " (Linux; U; Android 11) gzip"
	webUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/105.0.0.0 Safari/537.36"
)

// DefaultWeb is the web music client with an English/US locale.
var DefaultWeb = Context{
	Client: ClientInfo{
		ClientName:    webClientName,
		ClientVersion: webClientVersion,
		Platform:      "DESKTOP",
		HL:            "en",
		GL:            "US",
	},
}

// DefaultAndroid is the Android music client. The player endpoint only returns
// directly playable stream URLs for this client.
var DefaultAndroid = Context{
	Client: ClientInfo{
		ClientName:        androidClientName,
		ClientVersion:     androidVersion,
		AndroidSDKVersion: 30,
		OSName:            "Android",
		OSVersion:         "11",
		HL:                "en",
		GL:                "US",
	},
}

// DefaultWebWithLocale is DefaultWeb with a caller-chosen language and region.
// Empty values keep the defaults.
func DefaultWebWithLocale(hl, gl string) Context {
	ctx := DefaultWeb
	if hl != "" {
		ctx.Client.HL = hl
	}
	if gl != "" {
		ctx.Client.GL = gl
	}
	return ctx
}

func (c Context) userAgent() string {
	if c.Client.ClientName == androidClientName {
		return androidUserAgent
	}
	return webUserAgent
}
