// Package catalog loads the curated artist catalog and builds the lookup
// index the analytics engine classifies against.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Recording is one catalog track. ID is a MusicBrainz recording MBID.
type Recording struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	DurationMS int64  `json:"duration_ms"`
}

// ReleaseGroup groups the releases/masterings of one album. Completion is
// measured against TrackCount.
type ReleaseGroup struct {
	Title      string      `json:"title"`
	Type       string      `json:"type,omitempty"`
	TrackCount int         `json:"track_count"`
	ImageURL   string      `json:"image_url,omitempty"`
	Tracks     []Recording `json:"tracks"`
}

// Catalog maps release-group MBID to its release group.
type Catalog map[string]ReleaseGroup

// Load reads a catalog JSON file produced by the lookup builder.
func Load(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return c, nil
}

// ReleaseGroupIDs returns the catalog's release-group ids in sorted order.
// Deterministic iteration matters for the date-hashed fallback picks.
func (c Catalog) ReleaseGroupIDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
