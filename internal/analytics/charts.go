package analytics

import (
	"hash/fnv"
	"sort"
	"time"

	"stardust/internal/catalog"
)

func yearlyDistribution(yearCounts map[int]int) []YearCount {
	out := make([]YearCount, 0, len(yearCounts))
	for year, count := range yearCounts {
		out = append(out, YearCount{Year: year, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func emptyHourly() []HourCount {
	out := make([]HourCount, 24)
	for h := range out {
		out[h].Hour = h
	}
	return out
}

func hourlyActivity(hourCounts []int) []HourCount {
	out := emptyHourly()
	for h, count := range hourCounts {
		out[h].Count = count
	}
	return out
}

// typeDistribution buckets classified events by release type. A release group
// without a type counts under "Unknown" so the histogram total stays equal to
// the classified-event total.
func typeDistribution(typeCounts map[string]int) []TypeCount {
	out := make([]TypeCount, 0, len(typeCounts))
	for typ, count := range typeCounts {
		if typ == "" {
			typ = "Unknown"
		}
		out = append(out, TypeCount{Type: typ, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// albumCompletionChart reports every release group with at least one heard
// recording, capped at 1.0, top 10 by ratio.
func albumCompletionChart(idx *catalog.Index, rgHeard map[string]map[string]struct{}) []AlbumCompletion {
	out := make([]AlbumCompletion, 0, len(rgHeard))
	for rgID, heard := range rgHeard {
		rg, ok := idx.ReleaseGroup(rgID)
		if !ok || rg.TrackCount <= 0 {
			continue
		}
		ratio := float64(len(heard)) / float64(rg.TrackCount)
		if ratio > 1 {
			ratio = 1
		}
		out = append(out, AlbumCompletion{Title: rg.Title, Ratio: ratio, ImageURL: rg.ImageURL})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ratio != out[j].Ratio {
			return out[i].Ratio > out[j].Ratio
		}
		return out[i].Title < out[j].Title
	})
	if len(out) > chartTopN {
		out = out[:chartTopN]
	}
	return out
}

func trackLeaderboard(trackTotalMin map[string]int64) []TrackRank {
	out := make([]TrackRank, 0, len(trackTotalMin))
	for track, minutes := range trackTotalMin {
		out = append(out, TrackRank{Title: track, Minutes: minutes})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		return out[i].Title < out[j].Title
	})
	if len(out) > chartTopN {
		out = out[:chartTopN]
	}
	return out
}

// tailDiscovery keeps the last 20 discovery points in chronological order.
func tailDiscovery(points []DiscoveryPoint) []DiscoveryPoint {
	if len(points) > discoveryKeepN {
		points = points[len(points)-discoveryKeepN:]
	}
	return points
}

func emptyGrid(todayStart int64) []GridDay {
	out := make([]GridDay, 0, gridDays)
	for i := gridDays - 1; i >= 0; i-- {
		out = append(out, GridDay{Timestamp: todayStart - int64(i)*secondsPerDay})
	}
	return out
}

// consistencyGrid covers the last 30 listening-day buckets, oldest to newest,
// zero for silent days.
func consistencyGrid(dayAccs map[int64]*periodAcc, todayStart int64) []GridDay {
	out := emptyGrid(todayStart)
	for i := range out {
		if acc, ok := dayAccs[out[i].Timestamp]; ok {
			out[i].Count = acc.scrobbles
		}
	}
	return out
}

func emptyVolume(now int64) []MonthCount {
	out := make([]MonthCount, 0, volumeMonths)
	for i := volumeMonths - 1; i >= 0; i-- {
		end := now - int64(i)*secondsPerMonth
		out = append(out, MonthCount{Label: time.Unix(end, 0).UTC().Format("Jan")})
	}
	return out
}

// monthlyVolume approximates the last 12 months as 30-day steps back from now.
func monthlyVolume(classified []resolved, now int64) []MonthCount {
	out := emptyVolume(now)
	for _, r := range classified {
		age := now - r.ts
		if age < 0 || age >= volumeMonths*secondsPerMonth {
			continue
		}
		bucket := volumeMonths - 1 - int(age/secondsPerMonth)
		out[bucket].Count++
	}
	return out
}

func albumWeight(albumPlays map[string]int, albumArt map[string]string) []AlbumPlays {
	out := make([]AlbumPlays, 0, len(albumPlays))
	for album, count := range albumPlays {
		out = append(out, AlbumPlays{Title: album, Count: count, ImageURL: albumArt[album]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Title < out[j].Title
	})
	if len(out) > chartTopN {
		out = out[:chartTopN]
	}
	return out
}

func forgottenClassics(lastSeen map[string]int64, lifetime map[string]int, now int64) []ForgottenTrack {
	out := []ForgottenTrack{}
	for track, seen := range lastSeen {
		idleDays := (now - seen) / secondsPerDay
		if idleDays < forgottenIdleMin || lifetime[track] <= forgottenPlayMin {
			continue
		}
		out = append(out, ForgottenTrack{Title: track, IdleDays: idleDays, Plays: lifetime[track]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plays != out[j].Plays {
			return out[i].Plays > out[j].Plays
		}
		return out[i].Title < out[j].Title
	})
	if len(out) > chartTopN {
		out = out[:chartTopN]
	}
	return out
}

// songOfTheDay prefers the most-played track that has rested for 30 days.
// With no rested candidate it falls back to hashing the calendar date into
// the catalog, so the pick is stable for a given day and catalog size.
func songOfTheDay(idx *catalog.Index, lastSeen map[string]int64, lifetime map[string]int, trackAlbum map[string]string, now time.Time) *SongPick {
	cutoff := now.Unix() - forgottenIdleMin*secondsPerDay
	best := ""
	bestPlays := 0
	for track, seen := range lastSeen {
		if seen >= cutoff {
			continue
		}
		plays := lifetime[track]
		if plays > bestPlays || (plays == bestPlays && (best == "" || track < best)) {
			best = track
			bestPlays = plays
		}
	}
	if best != "" {
		return &SongPick{Track: best, Album: trackAlbum[best]}
	}

	rgIDs := idx.ReleaseGroupIDs()
	if len(rgIDs) == 0 {
		return nil
	}
	h := fnv.New64a()
	h.Write([]byte(now.Format("2006-01-02")))
	sum := h.Sum64()
	rg, _ := idx.ReleaseGroup(rgIDs[sum%uint64(len(rgIDs))])
	if len(rg.Tracks) == 0 {
		return nil
	}
	track := rg.Tracks[(sum/uint64(len(rgIDs)))%uint64(len(rg.Tracks))]
	return &SongPick{Track: track.Title, Album: rg.Title}
}
