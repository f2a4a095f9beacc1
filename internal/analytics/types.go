// Package analytics derives dashboard metrics from a catalog-filtered play
// event log. Compute is a pure function of (events, index, now, basis); it
// never reads a clock and never persists anything.
package analytics

// PlayEvent is one observed playback. RecordingMBID carries the resolved
// recording identifier when the feed supplied one (mapped metadata preferred
// over native); empty means the event cannot be classified strictly.
type PlayEvent struct {
	Artist           string `json:"artist"`
	Track            string `json:"track"`
	Release          string `json:"release,omitempty"`
	ListenedAt       int64  `json:"listened_at"`
	RecordingMBID    string `json:"recording_mbid,omitempty"`
	DurationMS       int64  `json:"duration_ms,omitempty"`
	ReleaseGroupMBID string `json:"release_group_mbid,omitempty"`
}

// Basis selects which instantaneous listening rate the projections are
// extrapolated from.
type Basis string

const (
	BasisDay   Basis = "DAY"
	BasisWeek  Basis = "WEEK"
	BasisMonth Basis = "MONTH"
	BasisYear  Basis = "YEAR"
)

// ParseBasis normalizes a reporting-basis string, defaulting to DAY.
func ParseBasis(s string) Basis {
	switch Basis(s) {
	case BasisWeek, BasisMonth, BasisYear:
		return Basis(s)
	default:
		return BasisDay
	}
}

// PeriodMetric holds one counter per rolling window.
type PeriodMetric[T any] struct {
	LastHour T `json:"last_hour"`
	Today    T `json:"today"`
	Week     T `json:"week"`
	Month    T `json:"month"`
	Year     T `json:"year"`
	Total    T `json:"total"`
}

// AlbumRank is one entry of a top-albums list: completion is the
// distinct-recordings / track-count ratio for the period.
type AlbumRank struct {
	Title      string  `json:"title"`
	Completion float64 `json:"completion"`
	Minutes    int64   `json:"minutes"`
}

// TrackRank is one entry of a top-tracks list.
type TrackRank struct {
	Title   string `json:"title"`
	Plays   int    `json:"plays"`
	Minutes int64  `json:"minutes"`
}

// DayStats summarizes one listening day (05:00-anchored bucket).
type DayStats struct {
	DateLabel       string      `json:"date_label"`
	Timestamp       int64       `json:"timestamp"`
	AlbumsCompleted float64     `json:"albums_completed"`
	Minutes         int64       `json:"minutes"`
	Scrobbles       int         `json:"scrobbles"`
	FavoriteAlbum   string      `json:"favorite_album,omitempty"`
	TopAlbums       []AlbumRank `json:"top_albums"`
	TopTracks       []TrackRank `json:"top_tracks"`
	Badge           string      `json:"badge,omitempty"`
}

// MonthlyWrapped summarizes one UTC calendar month.
type MonthlyWrapped struct {
	Year           int         `json:"year"`
	Month          int         `json:"month"`
	MonthName      string      `json:"month_name"`
	TotalScrobbles int         `json:"total_scrobbles"`
	TotalMinutes   int64       `json:"total_minutes"`
	TopAlbum       string      `json:"top_album,omitempty"`
	TopTrack       string      `json:"top_track,omitempty"`
	TopAlbums      []AlbumRank `json:"top_albums"`
	TopTracks      []TrackRank `json:"top_tracks"`
	Days           []DayStats  `json:"days"`
	Badge          string      `json:"badge,omitempty"`
}

// Insight is a small derived callout for the dashboard.
type Insight struct {
	Title       string `json:"title"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// SongPick is the "song of the day" selection.
type SongPick struct {
	Track string `json:"track"`
	Album string `json:"album"`
}

type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int `json:"count"`
}

type MonthCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AlbumCompletion is one bar of the album-completion chart; Ratio is capped
// at 1.0 here even though per-period sums are not.
type AlbumCompletion struct {
	Title    string  `json:"title"`
	Ratio    float64 `json:"ratio"`
	ImageURL string  `json:"image_url,omitempty"`
}

// DiscoveryPoint marks the first time a recording id was seen; Unique is the
// cumulative distinct count at that instant.
type DiscoveryPoint struct {
	Timestamp int64 `json:"timestamp"`
	Unique    int   `json:"unique"`
}

// GridDay is one cell of the 30-day consistency grid.
type GridDay struct {
	Timestamp int64 `json:"timestamp"`
	Count     int   `json:"count"`
}

// AlbumPlays weights an album by raw scrobble count.
type AlbumPlays struct {
	Title    string `json:"title"`
	Count    int    `json:"count"`
	ImageURL string `json:"image_url,omitempty"`
}

// ForgottenTrack is a track idle for at least 30 days with more than two
// lifetime plays.
type ForgottenTrack struct {
	Title    string `json:"title"`
	IdleDays int64  `json:"idle_days"`
	Plays    int    `json:"plays"`
}

// DashboardMetrics is the engine's output, consumed by presentation code.
type DashboardMetrics struct {
	Counts      PeriodMetric[int]     `json:"counts"`
	Albums      PeriodMetric[float64] `json:"albums"`
	Minutes     PeriodMetric[int64]   `json:"minutes"`
	Projections map[Basis]int64       `json:"projections"`

	LastListenDisplay  string    `json:"last_listen_display,omitempty"`
	FavoriteAlbumToday string    `json:"favorite_album_today,omitempty"`
	SongOfTheDay       *SongPick `json:"song_of_the_day,omitempty"`

	History  []DayStats       `json:"history"`
	Wrapped  []MonthlyWrapped `json:"wrapped"`
	Insights []Insight        `json:"insights"`

	YearlyDistribution   []YearCount       `json:"yearly_distribution"`
	AlbumCompletion      []AlbumCompletion `json:"album_completion"`
	MonthlyVolume        []MonthCount      `json:"monthly_volume"`
	TrackTimeLeaderboard []TrackRank       `json:"track_time_leaderboard"`
	HourlyActivity       []HourCount       `json:"hourly_activity"`
	TypeDistribution     []TypeCount       `json:"type_distribution"`
	DiscoveryTimeline    []DiscoveryPoint  `json:"discovery_timeline"`
	ConsistencyGrid      []GridDay         `json:"consistency_grid"`
	AlbumWeight          []AlbumPlays      `json:"album_weight"`
	ForgottenClassics    []ForgottenTrack  `json:"forgotten_classics"`
}

// Badge labels. Exactly one day is the peak session and at most one the
// runner-up; months follow the same two-tier scheme.
const (
	BadgePeakSession    = "PEAK SESSION"
	BadgeHighActivity   = "HIGH ACTIVITY"
	BadgeMilestoneMonth = "MILESTONE MONTH"
	BadgeTopPeriod      = "TOP PERIOD"
)
