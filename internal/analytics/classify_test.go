package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stardust/internal/catalog"
)

func classifierIndex() *catalog.Index {
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
	})
}

func TestStrictClassifierRequiresIdentifier(t *testing.T) {
	cls := NewStrictClassifier(classifierIndex())

	// A perfect textual match without an identifier is not enough.
	_, ok := cls.Classify(PlayEvent{Artist: "David Bowie", Track: "Sound and Vision"})
	assert.False(t, ok)

	c, ok := cls.Classify(PlayEvent{Track: "whatever", RecordingMBID: "rec-sound"})
	require.True(t, ok)
	assert.Equal(t, Classification{RecordingID: "rec-sound", ReleaseGroupID: "rg-low"}, c)

	_, ok = cls.Classify(PlayEvent{RecordingMBID: "rec-other-artist"})
	assert.False(t, ok)
}

func TestHeuristicClassifierArtistContainment(t *testing.T) {
	cls := NewHeuristicClassifier(classifierIndex(), "David Bowie", 0)

	c, ok := cls.Classify(PlayEvent{Artist: "David Bowie & Brian Eno", Track: "Sound and Vision"})
	require.True(t, ok)
	assert.Equal(t, "rg-low", c.ReleaseGroupID)

	_, ok = cls.Classify(PlayEvent{Artist: "Iggy Pop", Track: "Sound and Vision"})
	assert.False(t, ok)
}

func TestHeuristicClassifierSimilarity(t *testing.T) {
	cls := NewHeuristicClassifier(classifierIndex(), "David Bowie", 0.85)

	// A close misspelling still matches.
	_, ok := cls.Classify(PlayEvent{Artist: "David Bowi", Track: "Breaking Glass"})
	assert.True(t, ok)

	_, ok = cls.Classify(PlayEvent{Artist: "The Beatles", Track: "Breaking Glass"})
	assert.False(t, ok)
}

func TestHeuristicClassifierPrefersIdentifier(t *testing.T) {
	cls := NewHeuristicClassifier(classifierIndex(), "David Bowie", 0)

	c, ok := cls.Classify(PlayEvent{Artist: "David Bowie", Track: "misnamed", RecordingMBID: "rec-glass"})
	require.True(t, ok)
	assert.Equal(t, "rec-glass", c.RecordingID)
}

func TestHeuristicClassifierUnresolvedDropped(t *testing.T) {
	cls := NewHeuristicClassifier(classifierIndex(), "David Bowie", 0)

	// Right artist, but the track maps to nothing in the catalog.
	_, ok := cls.Classify(PlayEvent{Artist: "David Bowie", Track: "Modern Love"})
	assert.False(t, ok)
}
