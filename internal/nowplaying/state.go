package nowplaying

import "stardust/internal/analytics"

// Record is a persisted playback checkpoint so elapsed time survives
// restarts.
type Record struct {
	Identity  string
	StartedAt int64
}

// RecordStore persists the single active playback record. The sqlite store
// satisfies this.
type RecordStore interface {
	LoadPlayback() (Record, bool, error)
	SavePlayback(Record) error
	ClearPlayback() error
}

// State is the tracker's playback state. A zero State is idle.
type State struct {
	Identity  string
	StartedAt int64
}

func (s State) Idle() bool { return s.Identity == "" }

// Tracker reconciles successive now-playing polls into a continuous
// playback state.
type Tracker struct {
	store RecordStore
}

func NewTracker(store RecordStore) *Tracker {
	return &Tracker{store: store}
}

// Observe folds one poll result into the tracker state. A nil match means
// silence: the persisted record is cleared and the tracker goes idle.
//
// On a track change the start time is restored in order of preference:
// the persisted record if it names the same recording, then the most
// recent history event for that recording, and finally a fresh start at
// now which is persisted. While the same track keeps playing, an earlier
// matching history event corrects the start backwards (the scrobble for
// the current track often lands mid-play).
func (t *Tracker) Observe(cur State, m *Match, history []analytics.PlayEvent, now int64) (State, error) {
	if m == nil {
		if !cur.Idle() {
			if err := t.store.ClearPlayback(); err != nil {
				return cur, err
			}
		}
		return State{}, nil
	}

	if cur.Identity == m.RecordingID {
		if ts, ok := latestEventFor(history, m.RecordingID); ok && ts < cur.StartedAt {
			cur.StartedAt = ts
			if err := t.store.SavePlayback(Record{Identity: cur.Identity, StartedAt: ts}); err != nil {
				return cur, err
			}
		}
		return cur, nil
	}

	next := State{Identity: m.RecordingID, StartedAt: now}
	if rec, ok, err := t.store.LoadPlayback(); err != nil {
		return cur, err
	} else if ok && rec.Identity == m.RecordingID {
		next.StartedAt = rec.StartedAt
		return next, nil
	}
	if ts, ok := latestEventFor(history, m.RecordingID); ok {
		next.StartedAt = ts
		return next, nil
	}
	if err := t.store.SavePlayback(Record{Identity: next.Identity, StartedAt: next.StartedAt}); err != nil {
		return cur, err
	}
	return next, nil
}

func latestEventFor(history []analytics.PlayEvent, recordingID string) (int64, bool) {
	var best int64
	found := false
	for _, ev := range history {
		if ev.RecordingMBID != recordingID {
			continue
		}
		if !found || ev.ListenedAt > best {
			best = ev.ListenedAt
			found = true
		}
	}
	return best, found
}
