// Package nowplaying resolves live, possibly ambiguous play events against
// the catalog and tracks elapsed playback time across polls.
package nowplaying

import (
	"stardust/internal/analytics"
	"stardust/internal/catalog"
)

// Match is a resolved live event.
type Match struct {
	RecordingID    string
	ReleaseGroupID string
}

// MatchEvent maps a live event to a catalog recording: identifier first, then
// normalized track name with an album-continuity bias. Live feeds arrive
// before a settled canonical mapping exists, so precision here is
// intentionally lower than in the historical classifier.
func MatchEvent(ev analytics.PlayEvent, idx *catalog.Index, lastAlbumHint string) (Match, bool) {
	if ev.RecordingMBID != "" {
		if rgID, ok := idx.ResolveRecording(ev.RecordingMBID); ok {
			return Match{RecordingID: ev.RecordingMBID, ReleaseGroupID: rgID}, true
		}
	}
	cands := idx.CandidatesFor(ev.Track)
	if len(cands) == 0 {
		return Match{}, false
	}
	if lastAlbumHint != "" {
		for _, c := range cands {
			if c.ReleaseGroupID == lastAlbumHint {
				return Match{RecordingID: c.RecordingID, ReleaseGroupID: c.ReleaseGroupID}, true
			}
		}
	}
	return Match{RecordingID: cands[0].RecordingID, ReleaseGroupID: cands[0].ReleaseGroupID}, true
}
