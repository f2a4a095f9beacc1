package analytics

import (
	"fmt"
	"sort"
	"time"
)

// completionOf is the period completion ratio for one album: distinct
// recordings heard over the release group's track count. Uncapped; per-period
// sums may exceed 1.0 when several albums are in play.
func (a *periodAcc) completionOf(album string) float64 {
	count := a.albumTrackCount[album]
	if count <= 0 {
		return 0
	}
	return float64(len(a.albumRecordings[album])) / float64(count)
}

// totalCompletion sums the fractional completion of every album in the period.
func (a *periodAcc) totalCompletion() float64 {
	total := 0.0
	for album := range a.albumCounts {
		total += a.completionOf(album)
	}
	return total
}

// topAlbums ranks the period's albums by completion ratio descending, ties by
// minutes then title for a stable order.
func (a *periodAcc) topAlbums(n int) []AlbumRank {
	items := make([]AlbumRank, 0, len(a.albumCounts))
	for album := range a.albumCounts {
		items = append(items, AlbumRank{
			Title:      album,
			Completion: a.completionOf(album),
			Minutes:    a.albumMinutes[album],
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Completion != items[j].Completion {
			return items[i].Completion > items[j].Completion
		}
		if items[i].Minutes != items[j].Minutes {
			return items[i].Minutes > items[j].Minutes
		}
		return items[i].Title < items[j].Title
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

// topTracks ranks by play count descending, ties by cumulative minutes
// descending, then title.
func (a *periodAcc) topTracks(n int) []TrackRank {
	items := make([]TrackRank, 0, len(a.trackCounts))
	for track, plays := range a.trackCounts {
		items = append(items, TrackRank{Title: track, Plays: plays, Minutes: a.trackMinutes[track]})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Plays != items[j].Plays {
			return items[i].Plays > items[j].Plays
		}
		if items[i].Minutes != items[j].Minutes {
			return items[i].Minutes > items[j].Minutes
		}
		return items[i].Title < items[j].Title
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

// buildHistory turns the day accumulators into DayStats, newest first.
func buildHistory(dayAccs map[int64]*periodAcc) []DayStats {
	days := make([]DayStats, 0, len(dayAccs))
	for start, acc := range dayAccs {
		d := DayStats{
			DateLabel:       dayLabel(start),
			Timestamp:       start,
			AlbumsCompleted: acc.totalCompletion(),
			Minutes:         acc.ms / 60_000,
			Scrobbles:       acc.scrobbles,
			TopAlbums:       acc.topAlbums(topPerDay),
			TopTracks:       acc.topTracks(topPerDay),
		}
		if len(d.TopAlbums) > 0 {
			d.FavoriteAlbum = d.TopAlbums[0].Title
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Timestamp > days[j].Timestamp })
	return days
}

// assignDayBadges marks the most and second-most active days by minutes.
// The resort is stable over the newest-first history, so the more recent day
// wins a tie. Re-running on unchanged input places the same badges.
func assignDayBadges(days []DayStats) {
	if len(days) == 0 {
		return
	}
	order := make([]int, len(days))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return days[order[a]].Minutes > days[order[b]].Minutes })
	days[order[0]].Badge = BadgePeakSession
	if len(order) > 1 {
		days[order[1]].Badge = BadgeHighActivity
	}
}

// buildWrapped turns the calendar-month accumulators into MonthlyWrapped
// records, newest first. Each month carries the DayStats whose listening-day
// start falls inside it.
func buildWrapped(monthAccs map[int]*periodAcc, history []DayStats) []MonthlyWrapped {
	months := make([]MonthlyWrapped, 0, len(monthAccs))
	for key, acc := range monthAccs {
		year, month := key/100, key%100
		w := MonthlyWrapped{
			Year:           year,
			Month:          month,
			MonthName:      time.Month(month).String(),
			TotalScrobbles: acc.scrobbles,
			TotalMinutes:   acc.ms / 60_000,
			TopAlbums:      acc.topAlbums(topPerMonth),
			TopTracks:      acc.topTracks(topPerMonth),
			Days:           []DayStats{},
		}
		if len(w.TopAlbums) > 0 {
			w.TopAlbum = w.TopAlbums[0].Title
		}
		if len(w.TopTracks) > 0 {
			w.TopTrack = w.TopTracks[0].Title
		}
		for _, d := range history {
			if calendarMonthKey(d.Timestamp) == key {
				w.Days = append(w.Days, d)
			}
		}
		months = append(months, w)
	}
	sort.Slice(months, func(i, j int) bool {
		if months[i].Year != months[j].Year {
			return months[i].Year > months[j].Year
		}
		return months[i].Month > months[j].Month
	})
	return months
}

// assignMonthBadges mirrors the day scheme over total minutes.
func assignMonthBadges(months []MonthlyWrapped) {
	if len(months) == 0 {
		return
	}
	order := make([]int, len(months))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return months[order[a]].TotalMinutes > months[order[b]].TotalMinutes
	})
	months[order[0]].Badge = BadgeMilestoneMonth
	if len(order) > 1 {
		months[order[1]].Badge = BadgeTopPeriod
	}
}

func buildInsights(wrapped []MonthlyWrapped) []Insight {
	insights := []Insight{}
	if len(wrapped) > 1 {
		byMinutes := make([]MonthlyWrapped, len(wrapped))
		copy(byMinutes, wrapped)
		sort.SliceStable(byMinutes, func(i, j int) bool { return byMinutes[i].TotalMinutes > byMinutes[j].TotalMinutes })
		second := byMinutes[1]
		insights = append(insights, Insight{
			Title:       "2nd Most Active Month",
			Value:       fmt.Sprintf("%s %d", second.MonthName, second.Year),
			Description: fmt.Sprintf("Time: %dh", second.TotalMinutes/60),
		})
	}
	return insights
}
