package catalog

import "strings"

// Candidate is one (recording, release group) pair a normalized track name
// can resolve to.
type Candidate struct {
	RecordingID    string
	ReleaseGroupID string
}

// Index is the derived lookup structure: read-only for the lifetime of one
// catalog load.
type Index struct {
	recordingToRG map[string]string
	releaseGroups map[string]ReleaseGroup
	byName        map[string][]Candidate

	rgOrder []string // sorted release-group ids, for deterministic picks
}

// BuildIndex derives the three lookup maps from the catalog. A recording id
// appearing in more than one release group is accepted data skew:
// last write wins, in sorted release-group order.
func BuildIndex(c Catalog) *Index {
	idx := &Index{
		recordingToRG: make(map[string]string),
		releaseGroups: make(map[string]ReleaseGroup, len(c)),
		byName:        make(map[string][]Candidate),
		rgOrder:       c.ReleaseGroupIDs(),
	}
	for _, rgID := range idx.rgOrder {
		rg := c[rgID]
		idx.releaseGroups[rgID] = rg
		for _, t := range rg.Tracks {
			if t.ID == "" {
				continue
			}
			idx.recordingToRG[t.ID] = rgID
			name := NormalizeName(t.Title)
			idx.byName[name] = append(idx.byName[name], Candidate{RecordingID: t.ID, ReleaseGroupID: rgID})
		}
	}
	return idx
}

// NormalizeName lowercases a track title for fallback lookups.
func NormalizeName(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// ResolveRecording returns the release-group id owning the recording.
func (idx *Index) ResolveRecording(recordingID string) (string, bool) {
	rgID, ok := idx.recordingToRG[recordingID]
	return rgID, ok
}

// ReleaseGroup returns the release group for the given id.
func (idx *Index) ReleaseGroup(rgID string) (ReleaseGroup, bool) {
	rg, ok := idx.releaseGroups[rgID]
	return rg, ok
}

// CandidatesFor returns the fallback candidates for a raw track name.
func (idx *Index) CandidatesFor(trackName string) []Candidate {
	return idx.byName[NormalizeName(trackName)]
}

// ReleaseGroupIDs returns the indexed release-group ids in sorted order.
func (idx *Index) ReleaseGroupIDs() []string {
	return idx.rgOrder
}

// Recordings returns the number of distinct recordings indexed.
func (idx *Index) Recordings() int {
	return len(idx.recordingToRG)
}

// Empty reports whether the index classifies nothing.
func (idx *Index) Empty() bool {
	return len(idx.recordingToRG) == 0
}
