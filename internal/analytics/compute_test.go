package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stardust/internal/catalog"
)

// 2024-03-15 12:00:00 UTC; the listening day opened at 05:00 (1710478800).
const (
	testNow        = int64(1710504000)
	testTodayStart = int64(1710478800)
)

func testTime() time.Time { return time.Unix(testNow, 0).UTC() }

func computeIndex() *catalog.Index {
	return catalog.BuildIndex(catalog.Catalog{
		"rg-low": {
			Title:      "Low",
			Type:       "Album",
			TrackCount: 3,
			Tracks: []catalog.Recording{
				{ID: "rec-speed", Title: "Speed of Life"},
				{ID: "rec-glass", Title: "Breaking Glass"},
				{ID: "rec-sound", Title: "Sound and Vision"},
			},
		},
		"rg-heroes": {
			Title:      "Heroes",
			Type:       "Album",
			TrackCount: 2,
			ImageURL:   "https://img.example/heroes",
			Tracks: []catalog.Recording{
				{ID: "rec-h1", Title: "Heroes"},
				{ID: "rec-h2", Title: "Moss Garden"},
			},
		},
		"rg-single": {
			Title:      "TVC 15",
			Type:       "Single",
			TrackCount: 1,
			Tracks:     []catalog.Recording{{ID: "rec-tvc", Title: "TVC 15"}},
		},
		"rg-cap": {
			Title:      "Stage",
			Type:       "Album",
			TrackCount: 2,
			Tracks: []catalog.Recording{
				{ID: "rec-c1", Title: "Warszawa (Live)"},
				{ID: "rec-c2", Title: "Station to Station (Live)"},
				{ID: "rec-c3", Title: "Fame (Live)"},
			},
		},
	})
}

func play(ts int64, recID, track string, durMS int64) PlayEvent {
	return PlayEvent{Artist: "David Bowie", Track: track, ListenedAt: ts, RecordingMBID: recID, DurationMS: durMS}
}

func TestComputeEmptyIsStructured(t *testing.T) {
	for _, m := range []DashboardMetrics{
		Compute(nil, computeIndex(), testTime(), BasisDay),
		Compute([]PlayEvent{play(testNow, "rec-h1", "Heroes", 180_000)}, catalog.BuildIndex(catalog.Catalog{}), testTime(), BasisDay),
	} {
		assert.Zero(t, m.Counts.Total)
		assert.Len(t, m.Projections, 4)
		assert.Zero(t, m.Projections[BasisYear])
		assert.Len(t, m.HourlyActivity, 24)
		assert.Len(t, m.ConsistencyGrid, 30)
		assert.Len(t, m.MonthlyVolume, 12)
		assert.NotNil(t, m.History)
		assert.Empty(t, m.History)
		assert.NotNil(t, m.Wrapped)
	}
}

func TestComputeSingleDay(t *testing.T) {
	events := []PlayEvent{
		play(testTodayStart+1200, "rec-h1", "Heroes", 180_000),
		play(testTodayStart+6000, "rec-h2", "Moss Garden", 200_000),
	}
	m := Compute(events, computeIndex(), testTime(), BasisDay)

	assert.Equal(t, 2, m.Counts.Today)
	assert.Equal(t, 2, m.Counts.Total)
	assert.Equal(t, 0, m.Counts.LastHour, "morning plays are outside the rolling hour at noon")
	assert.Equal(t, int64(6), m.Minutes.Today)
	assert.Equal(t, int64(6), m.Minutes.Total)

	// Both recordings of a two-track album: exactly one album completed.
	assert.Equal(t, 1.0, m.Albums.Today)
	assert.Equal(t, 1.0, m.Albums.Total)
	assert.Equal(t, "Heroes", m.FavoriteAlbumToday)

	require.Len(t, m.History, 1)
	d := m.History[0]
	assert.Equal(t, testTodayStart, d.Timestamp)
	assert.Equal(t, 2, d.Scrobbles)
	assert.Equal(t, int64(6), d.Minutes)
	assert.Equal(t, 1.0, d.AlbumsCompleted)
	assert.Equal(t, BadgePeakSession, d.Badge)

	// 6 minutes over the 7 elapsed hours of the listening day.
	assert.Equal(t, int64(21), m.Projections[BasisDay])
	assert.Equal(t, int64(144), m.Projections[BasisWeek])

	require.Len(t, m.TypeDistribution, 1)
	assert.Equal(t, TypeCount{Type: "Album", Count: 2}, m.TypeDistribution[0])

	assert.Equal(t, 1, m.HourlyActivity[5].Count)
	assert.Equal(t, 1, m.HourlyActivity[6].Count)

	require.NotEmpty(t, m.AlbumCompletion)
	assert.Equal(t, AlbumCompletion{Title: "Heroes", Ratio: 1.0, ImageURL: "https://img.example/heroes"}, m.AlbumCompletion[0])

	require.Len(t, m.AlbumWeight, 1)
	assert.Equal(t, AlbumPlays{Title: "Heroes", Count: 2, ImageURL: "https://img.example/heroes"}, m.AlbumWeight[0])

	require.Len(t, m.ConsistencyGrid, 30)
	assert.Equal(t, testTodayStart, m.ConsistencyGrid[29].Timestamp)
	assert.Equal(t, 2, m.ConsistencyGrid[29].Count)

	require.Len(t, m.Wrapped, 1)
	assert.Equal(t, BadgeMilestoneMonth, m.Wrapped[0].Badge)
	assert.Empty(t, m.Insights, "a single month has no runner-up")
}

func TestComputeDefaultDuration(t *testing.T) {
	m := Compute([]PlayEvent{play(testTodayStart+60, "rec-h1", "Heroes", 0)}, computeIndex(), testTime(), BasisDay)
	// 210s default, floored to whole minutes.
	assert.Equal(t, int64(3), m.Minutes.Total)
}

func TestComputeLastListenDisplay(t *testing.T) {
	m := Compute([]PlayEvent{play(testNow-7200, "rec-h1", "Heroes", 180_000)}, computeIndex(), testTime(), BasisDay)
	assert.Equal(t, "2 hours ago", m.LastListenDisplay)
}

func TestProjectionsYearBasis(t *testing.T) {
	// 600 minutes listened over the 600000 seconds since the first event.
	first := testNow - 600_000
	events := make([]PlayEvent, 0, 100)
	for i := 0; i < 100; i++ {
		events = append(events, play(first+int64(i)*60, "rec-speed", "Speed of Life", 360_000))
	}
	m := Compute(events, computeIndex(), testTime(), BasisYear)

	assert.Equal(t, int64(86), m.Projections[BasisDay])
	assert.Equal(t, int64(605), m.Projections[BasisWeek])
	assert.Equal(t, int64(2592), m.Projections[BasisMonth])
	assert.Equal(t, int64(31536), m.Projections[BasisYear])
}

func TestDayBadges(t *testing.T) {
	events := []PlayEvent{
		// Two days ago: 9 minutes, the peak.
		play(testTodayStart-2*86400+600, "rec-speed", "Speed of Life", 180_000),
		play(testTodayStart-2*86400+900, "rec-glass", "Breaking Glass", 180_000),
		play(testTodayStart-2*86400+1200, "rec-sound", "Sound and Vision", 180_000),
		// Yesterday: 3 minutes.
		play(testTodayStart-86400+600, "rec-h1", "Heroes", 180_000),
		// Today: 6 minutes, the runner-up.
		play(testTodayStart+600, "rec-h1", "Heroes", 180_000),
		play(testTodayStart+900, "rec-h2", "Moss Garden", 180_000),
	}
	m := Compute(events, computeIndex(), testTime(), BasisDay)

	require.Len(t, m.History, 3)
	assert.Equal(t, BadgeHighActivity, m.History[0].Badge)
	assert.Empty(t, m.History[1].Badge)
	assert.Equal(t, BadgePeakSession, m.History[2].Badge)

	total := 0
	for _, d := range m.History {
		total += d.Scrobbles
	}
	assert.Equal(t, m.Counts.Total, total)

	// Same input, same output, badges included.
	assert.Equal(t, m, Compute(events, computeIndex(), testTime(), BasisDay))
}

func TestDiscoveryTimeline(t *testing.T) {
	events := []PlayEvent{
		play(testTodayStart+100, "rec-speed", "Speed of Life", 180_000),
		play(testTodayStart+200, "rec-speed", "Speed of Life", 180_000),
		play(testTodayStart+300, "rec-glass", "Breaking Glass", 180_000),
		play(testTodayStart+400, "rec-speed", "Speed of Life", 180_000),
		play(testTodayStart+500, "rec-sound", "Sound and Vision", 180_000),
	}
	m := Compute(events, computeIndex(), testTime(), BasisDay)

	require.Len(t, m.DiscoveryTimeline, 3)
	for i, p := range m.DiscoveryTimeline {
		assert.Equal(t, i+1, p.Unique)
	}
	assert.True(t, m.DiscoveryTimeline[0].Timestamp < m.DiscoveryTimeline[2].Timestamp)
}

func TestForgottenClassicsAndSongOfTheDay(t *testing.T) {
	old := testNow - 40*86400
	events := []PlayEvent{
		// Three old plays: rested long enough and played often enough.
		play(old, "rec-speed", "Speed of Life", 180_000),
		play(old+300, "rec-speed", "Speed of Life", 180_000),
		play(old+600, "rec-speed", "Speed of Life", 180_000),
		// Two old plays: not past the lifetime-plays bar.
		play(old+900, "rec-glass", "Breaking Glass", 180_000),
		play(old+1200, "rec-glass", "Breaking Glass", 180_000),
		// Recent play: not rested.
		play(testTodayStart+600, "rec-h1", "Heroes", 180_000),
	}
	m := Compute(events, computeIndex(), testTime(), BasisDay)

	require.Len(t, m.ForgottenClassics, 1)
	f := m.ForgottenClassics[0]
	assert.Equal(t, "Speed of Life", f.Title)
	assert.Equal(t, 3, f.Plays)
	assert.GreaterOrEqual(t, f.IdleDays, int64(30))

	require.NotNil(t, m.SongOfTheDay)
	assert.Equal(t, &SongPick{Track: "Speed of Life", Album: "Low"}, m.SongOfTheDay)
}

func TestSongOfTheDayFallbackDeterministic(t *testing.T) {
	events := []PlayEvent{play(testTodayStart+600, "rec-h1", "Heroes", 180_000)}
	a := Compute(events, computeIndex(), testTime(), BasisDay)
	b := Compute(events, computeIndex(), testTime(), BasisDay)

	require.NotNil(t, a.SongOfTheDay)
	assert.Equal(t, a.SongOfTheDay, b.SongOfTheDay)
	assert.NotEmpty(t, a.SongOfTheDay.Album)
}

func TestCompletionUncappedPerDayCappedInChart(t *testing.T) {
	events := []PlayEvent{
		play(testTodayStart+100, "rec-c1", "Warszawa (Live)", 180_000),
		play(testTodayStart+200, "rec-c2", "Station to Station (Live)", 180_000),
		play(testTodayStart+300, "rec-c3", "Fame (Live)", 180_000),
	}
	m := Compute(events, computeIndex(), testTime(), BasisDay)

	// Three distinct recordings against a declared track count of two.
	require.Len(t, m.History, 1)
	assert.Equal(t, 1.5, m.History[0].AlbumsCompleted)
	assert.Equal(t, 1.5, m.Albums.Total)

	require.NotEmpty(t, m.AlbumCompletion)
	assert.Equal(t, 1.0, m.AlbumCompletion[0].Ratio)
}

func TestWrappedAcrossMonths(t *testing.T) {
	feb := int64(1707559200) // 2024-02-10 10:00 UTC
	events := []PlayEvent{
		play(feb, "rec-tvc", "TVC 15", 180_000),
		play(testTodayStart+600, "rec-h1", "Heroes", 180_000),
		play(testTodayStart+900, "rec-h2", "Moss Garden", 180_000),
	}
	m := Compute(events, computeIndex(), testTime(), BasisDay)

	require.Len(t, m.Wrapped, 2)
	mar, febW := m.Wrapped[0], m.Wrapped[1]

	assert.Equal(t, "March", mar.MonthName)
	assert.Equal(t, 2, mar.TotalScrobbles)
	assert.Equal(t, int64(6), mar.TotalMinutes)
	assert.Equal(t, "Heroes", mar.TopAlbum)
	assert.Equal(t, BadgeMilestoneMonth, mar.Badge)
	require.Len(t, mar.Days, 1)

	assert.Equal(t, "February", febW.MonthName)
	assert.Equal(t, BadgeTopPeriod, febW.Badge)

	// The February play is outside the rolling 30-day window but inside the year.
	assert.Equal(t, 2, m.Counts.Month)
	assert.Equal(t, 3, m.Counts.Year)

	require.Len(t, m.Insights, 1)
	assert.Equal(t, "2nd Most Active Month", m.Insights[0].Title)
	assert.Equal(t, "February 2024", m.Insights[0].Value)

	total := 0
	for _, mc := range m.MonthlyVolume {
		total += mc.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, m.MonthlyVolume[11].Count)
}

func TestComputeUnsortedInput(t *testing.T) {
	events := []PlayEvent{
		play(testTodayStart+900, "rec-h2", "Moss Garden", 180_000),
		play(testTodayStart+600, "rec-h1", "Heroes", 180_000),
	}
	m := Compute(events, computeIndex(), testTime(), BasisDay)

	require.Len(t, m.DiscoveryTimeline, 2)
	assert.Equal(t, testTodayStart+600, m.DiscoveryTimeline[0].Timestamp)
	assert.Contains(t, m.LastListenDisplay, "ago")
}
