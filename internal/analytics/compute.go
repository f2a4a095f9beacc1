package analytics

import (
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"stardust/internal/catalog"
)

// defaultDurationMS stands in for events that arrived without a duration, so
// undated historical plays still contribute to minute totals.
const defaultDurationMS = 210_000

const (
	topPerDay        = 5
	topPerMonth      = 10
	chartTopN        = 10
	discoveryKeepN   = 20
	gridDays         = 30
	volumeMonths     = 12
	forgottenIdleMin = 30 // days
	forgottenPlayMin = 2  // lifetime plays must exceed this
)

// resolved is one classified event with its catalog-derived fields.
type resolved struct {
	ts         int64
	recID      string
	rgID       string
	track      string
	album      string // release-group title, never the raw event release
	rgType     string
	artURL     string
	trackCount int
	durMS      int64
	minutes    int64
}

// periodAcc accumulates one day or one calendar month. Both buckets are fed
// through the same update routine, selected by explicit key lookup.
type periodAcc struct {
	scrobbles    int
	ms           int64
	albumCounts  map[string]int
	trackCounts  map[string]int
	albumMinutes map[string]int64
	trackMinutes map[string]int64

	// distinct recordings heard per album, for the completion ratio
	albumRecordings map[string]map[string]struct{}
	albumTrackCount map[string]int
}

func newPeriodAcc() *periodAcc {
	return &periodAcc{
		albumCounts:     make(map[string]int),
		trackCounts:     make(map[string]int),
		albumMinutes:    make(map[string]int64),
		trackMinutes:    make(map[string]int64),
		albumRecordings: make(map[string]map[string]struct{}),
		albumTrackCount: make(map[string]int),
	}
}

func (a *periodAcc) apply(r resolved) {
	a.scrobbles++
	a.ms += r.durMS
	a.albumCounts[r.album]++
	a.trackCounts[r.track]++
	a.albumMinutes[r.album] += r.minutes
	a.trackMinutes[r.track] += r.minutes
	set, ok := a.albumRecordings[r.album]
	if !ok {
		set = make(map[string]struct{})
		a.albumRecordings[r.album] = set
	}
	set[r.recID] = struct{}{}
	a.albumTrackCount[r.album] = r.trackCount
}

// Compute derives the full dashboard from the event log using the strict
// identifier classifier. It is a pure function: same inputs, same output.
func Compute(events []PlayEvent, idx *catalog.Index, now time.Time, basis Basis) DashboardMetrics {
	return ComputeWith(NewStrictClassifier(idx), events, idx, now, basis)
}

// ComputeWith is Compute with an explicit classifier variant.
func ComputeWith(cls Classifier, events []PlayEvent, idx *catalog.Index, now time.Time, basis Basis) DashboardMetrics {
	w := windowsAt(now.UTC())

	m := DashboardMetrics{
		Projections:          zeroProjections(),
		History:              []DayStats{},
		Wrapped:              []MonthlyWrapped{},
		Insights:             []Insight{},
		YearlyDistribution:   []YearCount{},
		AlbumCompletion:      []AlbumCompletion{},
		TrackTimeLeaderboard: []TrackRank{},
		TypeDistribution:     []TypeCount{},
		DiscoveryTimeline:    []DiscoveryPoint{},
		AlbumWeight:          []AlbumPlays{},
		ForgottenClassics:    []ForgottenTrack{},
	}
	m.HourlyActivity = emptyHourly()
	m.MonthlyVolume = emptyVolume(w.now)
	m.ConsistencyGrid = emptyGrid(w.todayStart)

	if idx == nil || idx.Empty() {
		return m
	}

	classified := classify(cls, idx, events)
	if len(classified) == 0 {
		return m
	}
	sort.SliceStable(classified, func(i, j int) bool { return classified[i].ts < classified[j].ts })

	dayAccs := make(map[int64]*periodAcc)
	monthAccs := make(map[int]*periodAcc)

	yearCounts := make(map[int]int)
	hourCounts := make([]int, 24)
	typeCounts := make(map[string]int)
	rgHeard := make(map[string]map[string]struct{})
	trackTotalMin := make(map[string]int64)
	seenRecordings := make(map[string]struct{})
	discovery := []DiscoveryPoint{}
	albumPlays := make(map[string]int)
	albumArt := make(map[string]string)
	trackLastSeen := make(map[string]int64)
	trackLifetime := make(map[string]int)
	trackAlbum := make(map[string]string)

	for _, r := range classified {
		dayKey := DayStart(r.ts)
		day, ok := dayAccs[dayKey]
		if !ok {
			day = newPeriodAcc()
			dayAccs[dayKey] = day
		}
		monthKey := calendarMonthKey(r.ts)
		month, ok := monthAccs[monthKey]
		if !ok {
			month = newPeriodAcc()
			monthAccs[monthKey] = month
		}
		day.apply(r)
		month.apply(r)

		if r.ts > w.hourStart {
			m.Counts.LastHour++
			m.Minutes.LastHour += r.minutes
		}
		if r.ts >= w.todayStart {
			m.Counts.Today++
			m.Minutes.Today += r.minutes
		}
		if r.ts >= w.weekStart {
			m.Counts.Week++
			m.Minutes.Week += r.minutes
		}
		if r.ts >= w.monthStart {
			m.Counts.Month++
			m.Minutes.Month += r.minutes
		}
		if r.ts >= w.yearStart {
			m.Counts.Year++
			m.Minutes.Year += r.minutes
		}
		m.Counts.Total++
		m.Minutes.Total += r.minutes

		t := time.Unix(r.ts, 0).UTC()
		yearCounts[t.Year()]++
		hourCounts[t.Hour()]++
		typeCounts[r.rgType]++

		heard, ok := rgHeard[r.rgID]
		if !ok {
			heard = make(map[string]struct{})
			rgHeard[r.rgID] = heard
		}
		heard[r.recID] = struct{}{}

		trackTotalMin[r.track] += r.minutes

		if _, seen := seenRecordings[r.recID]; !seen {
			seenRecordings[r.recID] = struct{}{}
			discovery = append(discovery, DiscoveryPoint{Timestamp: r.ts, Unique: len(seenRecordings)})
		}

		albumPlays[r.album]++
		if r.artURL != "" {
			albumArt[r.album] = r.artURL
		}

		trackLifetime[r.track]++
		if r.ts > trackLastSeen[r.track] {
			trackLastSeen[r.track] = r.ts
		}
		trackAlbum[r.track] = r.album
	}

	m.History = buildHistory(dayAccs)
	assignDayBadges(m.History)
	m.Wrapped = buildWrapped(monthAccs, m.History)
	assignMonthBadges(m.Wrapped)

	for _, d := range m.History {
		m.Albums.Total += d.AlbumsCompleted
		if d.Timestamp >= w.weekStart {
			m.Albums.Week += d.AlbumsCompleted
		}
		if d.Timestamp >= w.monthStart {
			m.Albums.Month += d.AlbumsCompleted
		}
		if d.Timestamp >= w.yearStart {
			m.Albums.Year += d.AlbumsCompleted
		}
		if d.Timestamp == w.todayStart {
			m.Albums.Today = d.AlbumsCompleted
			m.FavoriteAlbumToday = d.FavoriteAlbum
		}
	}

	last := classified[len(classified)-1]
	m.LastListenDisplay = humanize.RelTime(time.Unix(last.ts, 0).UTC(), now.UTC(), "ago", "from now")

	m.Projections = projections(m, w, classified[0].ts, basis)

	m.YearlyDistribution = yearlyDistribution(yearCounts)
	m.HourlyActivity = hourlyActivity(hourCounts)
	m.TypeDistribution = typeDistribution(typeCounts)
	m.AlbumCompletion = albumCompletionChart(idx, rgHeard)
	m.TrackTimeLeaderboard = trackLeaderboard(trackTotalMin)
	m.DiscoveryTimeline = tailDiscovery(discovery)
	m.ConsistencyGrid = consistencyGrid(dayAccs, w.todayStart)
	m.MonthlyVolume = monthlyVolume(classified, w.now)
	m.AlbumWeight = albumWeight(albumPlays, albumArt)
	m.ForgottenClassics = forgottenClassics(trackLastSeen, trackLifetime, w.now)
	m.SongOfTheDay = songOfTheDay(idx, trackLastSeen, trackLifetime, trackAlbum, now.UTC())
	m.Insights = buildInsights(m.Wrapped)

	return m
}

// classify resolves the catalog-member subset of the event log. A classifier
// hit whose release group is then missing from the index would mean the index
// and classifier disagree; that is a programming error upstream and the event
// is dropped rather than guessed at.
func classify(cls Classifier, idx *catalog.Index, events []PlayEvent) []resolved {
	out := make([]resolved, 0, len(events))
	for _, ev := range events {
		c, ok := cls.Classify(ev)
		if !ok {
			continue
		}
		rg, ok := idx.ReleaseGroup(c.ReleaseGroupID)
		if !ok {
			continue
		}
		durMS := ev.DurationMS
		if durMS <= 0 {
			durMS = defaultDurationMS
		}
		album := rg.Title
		if album == "" {
			album = "Unknown"
		}
		out = append(out, resolved{
			ts:         ev.ListenedAt,
			recID:      c.RecordingID,
			rgID:       c.ReleaseGroupID,
			track:      ev.Track,
			album:      album,
			rgType:     rg.Type,
			artURL:     rg.ImageURL,
			trackCount: rg.TrackCount,
			durMS:      durMS,
			minutes:    durMS / 60_000,
		})
	}
	return out
}

func zeroProjections() map[Basis]int64 {
	return map[Basis]int64{BasisDay: 0, BasisWeek: 0, BasisMonth: 0, BasisYear: 0}
}

// projections extrapolates the basis-selected rate (minutes per second) to
// day/week/month/year horizons.
func projections(m DashboardMetrics, w windows, firstTS int64, basis Basis) map[Basis]int64 {
	var velocity float64
	switch basis {
	case BasisWeek:
		velocity = float64(m.Minutes.Week) / float64(secondsPerWeek)
	case BasisMonth:
		velocity = float64(m.Minutes.Month) / float64(secondsPerMonth)
	case BasisYear:
		elapsed := w.now - firstTS
		if elapsed < 1 {
			elapsed = 1
		}
		velocity = float64(m.Minutes.Total) / float64(elapsed)
	default:
		elapsed := w.now - w.todayStart
		if elapsed < 1 {
			elapsed = 1
		}
		velocity = float64(m.Minutes.Today) / float64(elapsed)
	}
	return map[Basis]int64{
		BasisDay:   roundMinutes(velocity * secondsPerDay),
		BasisWeek:  roundMinutes(velocity * secondsPerWeek),
		BasisMonth: roundMinutes(velocity * secondsPerMonth),
		BasisYear:  roundMinutes(velocity * secondsPerYear),
	}
}

func roundMinutes(v float64) int64 {
	if v < 0 {
		return 0
	}
	return int64(v + 0.5)
}
