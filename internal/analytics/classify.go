package analytics

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"stardust/internal/catalog"
)

// Classification resolves a play event to a catalog recording and its
// owning release group.
type Classification struct {
	RecordingID    string
	ReleaseGroupID string
}

// Classifier decides catalog membership of a play event. Two variants exist:
// the strict identifier-only classifier used once a maintained catalog is
// present, and the legacy heuristic classifier kept for feeds that predate a
// trusted mapping. Callers choose one deliberately.
type Classifier interface {
	Classify(ev PlayEvent) (Classification, bool)
}

// StrictClassifier resolves strictly by recording identifier. Events without
// one are never classified, even when the textual fields look like a match:
// precision over recall once a curated catalog exists.
type StrictClassifier struct {
	idx *catalog.Index
}

func NewStrictClassifier(idx *catalog.Index) StrictClassifier {
	return StrictClassifier{idx: idx}
}

func (c StrictClassifier) Classify(ev PlayEvent) (Classification, bool) {
	if ev.RecordingMBID == "" {
		return Classification{}, false
	}
	rgID, ok := c.idx.ResolveRecording(ev.RecordingMBID)
	if !ok {
		// Not this artist. A miss is expected, not a fault.
		return Classification{}, false
	}
	return Classification{RecordingID: ev.RecordingMBID, ReleaseGroupID: rgID}, true
}

// HeuristicClassifier admits events whose artist name matches the tracked
// artist by containment or Jaro-Winkler similarity, then resolves ids
// best-effort: recording identifier first, name-index candidates second.
// Events it cannot resolve to a catalog recording are still dropped, since
// downstream aggregation needs a release group.
type HeuristicClassifier struct {
	idx       *catalog.Index
	artist    string
	threshold float64
	sim       *metrics.JaroWinkler
}

func NewHeuristicClassifier(idx *catalog.Index, artistName string, threshold float64) HeuristicClassifier {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return HeuristicClassifier{
		idx:       idx,
		artist:    strings.ToLower(strings.TrimSpace(artistName)),
		threshold: threshold,
		sim:       metrics.NewJaroWinkler(),
	}
}

func (c HeuristicClassifier) Classify(ev PlayEvent) (Classification, bool) {
	if !c.matchesArtist(ev.Artist) {
		return Classification{}, false
	}
	if ev.RecordingMBID != "" {
		if rgID, ok := c.idx.ResolveRecording(ev.RecordingMBID); ok {
			return Classification{RecordingID: ev.RecordingMBID, ReleaseGroupID: rgID}, true
		}
	}
	if cands := c.idx.CandidatesFor(ev.Track); len(cands) > 0 {
		return Classification{RecordingID: cands[0].RecordingID, ReleaseGroupID: cands[0].ReleaseGroupID}, true
	}
	return Classification{}, false
}

func (c HeuristicClassifier) matchesArtist(name string) bool {
	if c.artist == "" {
		return false
	}
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}
	if strings.Contains(n, c.artist) {
		return true
	}
	return strutil.Similarity(n, c.artist, c.sim) >= c.threshold
}
