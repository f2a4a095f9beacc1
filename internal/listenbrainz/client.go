// Package listenbrainz is a minimal read-only client for the ListenBrainz
// API: listen history pages and the playing-now endpoint, flattened into
// play events.
package listenbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stardust/internal/analytics"
)

const (
	DefaultAPIURL = "https://api.listenbrainz.org"

	// MaxPageSize is the server-side cap on count per listens request.
	MaxPageSize = 1000
)

type Client struct {
	Token     string
	Username  string
	APIURL    string
	UserAgent string
	HTTP      *http.Client
	Limiter   *RateLimiter
}

func (c Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c Client) apiURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	return DefaultAPIURL
}

type listensResponse struct {
	Payload struct {
		Count   int      `json:"count"`
		Listens []Listen `json:"listens"`
	} `json:"payload"`

	Code  int    `json:"code"`
	Error string `json:"error"`
}

type Listen struct {
	ListenedAt    int64         `json:"listened_at"`
	TrackMetadata TrackMetadata `json:"track_metadata"`
}

type TrackMetadata struct {
	ArtistName     string          `json:"artist_name"`
	TrackName      string          `json:"track_name"`
	ReleaseName    string          `json:"release_name"`
	AdditionalInfo *AdditionalInfo `json:"additional_info"`
	MBIDMapping    *MBIDMapping    `json:"mbid_mapping"`
}

type AdditionalInfo struct {
	DurationMS       int64  `json:"duration_ms"`
	RecordingMBID    string `json:"recording_mbid"`
	ReleaseGroupMBID string `json:"release_group_mbid"`
}

// MBIDMapping is the server-side resolution of a listen against the
// MusicBrainz database. When present it is more trustworthy than whatever
// the submitting player put in additional_info.
type MBIDMapping struct {
	RecordingMBID    string `json:"recording_mbid"`
	ReleaseGroupMBID string `json:"release_group_mbid"`
}

type Page struct {
	Listens []Listen
	Count   int
}

// GetListensPage fetches up to count listens strictly older than maxTS.
// Pass maxTS = 0 to start from the newest listen. The caller pages by
// feeding the oldest returned listened_at back in as the next maxTS.
func (c Client) GetListensPage(ctx context.Context, maxTS int64, count int) (Page, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))
	if maxTS > 0 {
		q.Set("max_ts", strconv.FormatInt(maxTS, 10))
	}

	var r listensResponse
	if err := c.doGet(ctx, "/1/user/"+url.PathEscape(c.Username)+"/listens", q, &r); err != nil {
		return Page{}, err
	}
	if r.Code != 0 && r.Code != http.StatusOK {
		return Page{}, APIError{Code: r.Code, Message: r.Error}
	}
	return Page{Listens: r.Payload.Listens, Count: r.Payload.Count}, nil
}

type playingNowResponse struct {
	Payload struct {
		Count   int `json:"count"`
		Listens []struct {
			TrackMetadata TrackMetadata `json:"track_metadata"`
			PlayingNow    bool          `json:"playing_now"`
		} `json:"listens"`
	} `json:"payload"`

	Code  int    `json:"code"`
	Error string `json:"error"`
}

// GetPlayingNow returns the listen currently playing, or nil when nothing is.
func (c Client) GetPlayingNow(ctx context.Context) (*Listen, error) {
	var r playingNowResponse
	if err := c.doGet(ctx, "/1/user/"+url.PathEscape(c.Username)+"/playing-now", url.Values{}, &r); err != nil {
		return nil, err
	}
	if r.Code != 0 && r.Code != http.StatusOK {
		return nil, APIError{Code: r.Code, Message: r.Error}
	}
	if len(r.Payload.Listens) == 0 {
		return nil, nil
	}
	return &Listen{TrackMetadata: r.Payload.Listens[0].TrackMetadata}, nil
}

func (c Client) doGet(ctx context.Context, path string, q url.Values, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	u := c.apiURL() + path
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Token "+c.Token)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if c.Limiter != nil {
		c.Limiter.Observe(resp.Header)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return HTTPError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode listenbrainz response: %w", err)
	}
	return nil
}

// Event flattens a listen into a play event. The server's mbid_mapping
// wins over player-submitted identifiers.
func (l Listen) Event() analytics.PlayEvent {
	md := l.TrackMetadata
	ev := analytics.PlayEvent{
		Artist:     md.ArtistName,
		Track:      md.TrackName,
		Release:    md.ReleaseName,
		ListenedAt: l.ListenedAt,
	}
	if ai := md.AdditionalInfo; ai != nil {
		ev.RecordingMBID = ai.RecordingMBID
		ev.ReleaseGroupMBID = ai.ReleaseGroupMBID
		ev.DurationMS = ai.DurationMS
	}
	if m := md.MBIDMapping; m != nil {
		if m.RecordingMBID != "" {
			ev.RecordingMBID = m.RecordingMBID
		}
		if m.ReleaseGroupMBID != "" {
			ev.ReleaseGroupMBID = m.ReleaseGroupMBID
		}
	}
	return ev
}
