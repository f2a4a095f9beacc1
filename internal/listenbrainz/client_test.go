package listenbrainz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetListensPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/user/bowiefan/listens", r.URL.Path)
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		assert.Equal(t, "100", r.URL.Query().Get("count"))
		assert.Equal(t, "1700000000", r.URL.Query().Get("max_ts"))
		w.Write([]byte(`{"payload":{"count":1,"listens":[
			{"listened_at":1699999000,"track_metadata":{
				"artist_name":"David Bowie","track_name":"Heroes","release_name":"Heroes",
				"additional_info":{"duration_ms":371000,"recording_mbid":"rec-player"},
				"mbid_mapping":{"recording_mbid":"rec-mapped","release_group_mbid":"rg-mapped"}}}
		]}}`))
	}))
	defer srv.Close()

	c := Client{Token: "secret", Username: "bowiefan", APIURL: srv.URL}
	p, err := c.GetListensPage(context.Background(), 1_700_000_000, 100)
	require.NoError(t, err)
	require.Len(t, p.Listens, 1)

	ev := p.Listens[0].Event()
	assert.Equal(t, "David Bowie", ev.Artist)
	assert.Equal(t, int64(1_699_999_000), ev.ListenedAt)
	assert.Equal(t, int64(371_000), ev.DurationMS)
	// Server-side mapping wins over what the player submitted.
	assert.Equal(t, "rec-mapped", ev.RecordingMBID)
	assert.Equal(t, "rg-mapped", ev.ReleaseGroupMBID)
}

func TestGetListensPageHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := Client{Username: "bowiefan", APIURL: srv.URL}
	_, err := c.GetListensPage(context.Background(), 0, 100)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestGetPlayingNow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/user/bowiefan/playing-now", r.URL.Path)
		w.Write([]byte(`{"payload":{"count":1,"listens":[
			{"playing_now":true,"track_metadata":{"artist_name":"David Bowie","track_name":"Sound and Vision"}}
		]}}`))
	}))
	defer srv.Close()

	c := Client{Username: "bowiefan", APIURL: srv.URL}
	l, err := c.GetPlayingNow(context.Background())
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "Sound and Vision", l.TrackMetadata.TrackName)
	assert.Zero(t, l.ListenedAt)
}

func TestGetPlayingNowEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"payload":{"count":0,"listens":[]}}`))
	}))
	defer srv.Close()

	c := Client{Username: "bowiefan", APIURL: srv.URL}
	l, err := c.GetPlayingNow(context.Background())
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestEventDefaultsWithoutInfo(t *testing.T) {
	l := Listen{ListenedAt: 42}
	ev := l.Event()
	assert.Zero(t, ev.DurationMS)
	assert.Empty(t, ev.RecordingMBID)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(HTTPError{StatusCode: 503}))
	assert.True(t, IsRetryable(HTTPError{StatusCode: 429}))
	assert.False(t, IsRetryable(HTTPError{StatusCode: 404}))
	assert.True(t, IsRetryable(APIError{Code: 429}))
	assert.False(t, IsRetryable(APIError{Code: 400}))
	assert.False(t, IsRetryable(context.Canceled))
}

func TestRateLimiterHoldsOnExhaustion(t *testing.T) {
	rl := NewRateLimiter(1000, 1000)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	var slept time.Duration
	rl.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset-In", "7")
	rl.Observe(h)

	require.NoError(t, rl.Wait(context.Background()))
	assert.Equal(t, 7*time.Second, slept)

	// Budget restored: no hold.
	slept = 0
	h.Set("X-RateLimit-Remaining", "50")
	rl.Observe(h)
	require.NoError(t, rl.Wait(context.Background()))
	assert.Zero(t, slept)
}

func TestRateLimiterIgnoresMissingHeaders(t *testing.T) {
	rl := NewRateLimiter(1000, 1000)
	rl.Observe(http.Header{})

	var slept time.Duration
	rl.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}
	require.NoError(t, rl.Wait(context.Background()))
	assert.Zero(t, slept)
}
