package innertube

import (
	"context"
	"strconv"
	"strings"
	"time"
)

const playerMask = "playabilityStatus.status,playabilityStatus.reason,playerConfig.audioConfig,streamingData.adaptiveFormats,streamingData.expiresInSeconds,videoDetails.videoId,videoDetails.title,videoDetails.author,videoDetails.lengthSeconds"

// PlayableMedia describes the stream selected for a video.
type PlayableMedia struct {
	VideoID       string        `json:"videoId"`
	Title         string        `json:"title,omitempty"`
	Author        string        `json:"author,omitempty"`
	LengthSeconds int64         `json:"lengthSeconds,omitempty"`
	Status        string        `json:"status"`
	Format        *StreamFormat `json:"format,omitempty"`
	LoudnessDB    float64       `json:"loudnessDb"`
	ExpiresAt     time.Time     `json:"expiresAt,omitempty"`
}

// Player resolves the playable audio stream of videoID. It always uses the
// Android client context. A playability status other than OK yields a
// *PlaybackError.
func (c *Client) Player(ctx context.Context, videoID, playlistID string) (*PlayableMedia, error) {
	body := PlayerBody{Context: c.android, VideoID: videoID, PlaylistID: playlistID}

	var resp PlayerResponse
	if err := c.post(ctx, EndpointPlayer, c.android, body, playerMask, nil, &resp); err != nil {
		return nil, err
	}

	status := ""
	reason := ""
	if resp.PlayabilityStatus != nil {
		status = resp.PlayabilityStatus.Status
		reason = resp.PlayabilityStatus.Reason
	}
	if status != "OK" {
		return nil, &PlaybackError{VideoID: videoID, Status: status, Reason: reason}
	}

	media := &PlayableMedia{VideoID: videoID, Status: status}
	if d := resp.VideoDetails; d != nil {
		media.Title = d.Title
		media.Author = d.Author
		media.LengthSeconds, _ = strconv.ParseInt(d.LengthSeconds, 10, 64)
	}
	if pc := resp.PlayerConfig; pc != nil && pc.AudioConfig != nil {
		media.LoudnessDB = pc.AudioConfig.LoudnessDB
	}
	if sd := resp.StreamingData; sd != nil {
		media.Format = bestAudioFormat(sd.AdaptiveFormats)
		if secs, err := strconv.ParseInt(sd.ExpiresInSeconds, 10, 64); err == nil && secs > 0 {
			media.ExpiresAt = time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
	if media.Format != nil && media.Format.LoudnessDB == 0 {
		media.Format.LoudnessDB = media.LoudnessDB
	}
	return media, nil
}

// bestAudioFormat picks the audio-only format with the highest bitrate.
func bestAudioFormat(formats []StreamFormat) *StreamFormat {
	var best *StreamFormat
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}
