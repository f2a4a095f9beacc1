package store

import (
	"bufio"
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"stardust/internal/analytics"
	"stardust/internal/listenbrainz"
	"stardust/internal/nowplaying"
)

//go:embed schema.sql
var schemaFS embed.FS

type Store struct {
	DB          *sql.DB
	RawJSONL    *os.File
	RawJSONLBuf *bufio.Writer
}

type OpenOptions struct {
	DataDir string
}

func Open(ctx context.Context, opt OpenOptions) (*Store, error) {
	if err := os.MkdirAll(opt.DataDir, 0o755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(opt.DataDir, "stardust.sqlite")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, string(schemaBytes)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	rawPath := filepath.Join(opt.DataDir, "listens.raw.jsonl")
	rawF, err := os.OpenFile(rawPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{DB: db, RawJSONL: rawF, RawJSONLBuf: bufio.NewWriterSize(rawF, 1024*1024)}, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	if s.RawJSONLBuf != nil {
		_ = s.RawJSONLBuf.Flush()
	}
	if s.RawJSONL != nil {
		_ = s.RawJSONL.Close()
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
	return nil
}

type RawEnvelope struct {
	FetchedAt time.Time           `json:"fetched_at"`
	Listen    listenbrainz.Listen `json:"listen"`
}

func (s *Store) AppendRaw(l listenbrainz.Listen) error {
	e := RawEnvelope{FetchedAt: time.Now().UTC(), Listen: l}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := s.RawJSONLBuf.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}

// StableSourceHash is the dedupe key for a listen.
func StableSourceHash(listenedAt int64, artist, track, release string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%s", listenedAt, artist, track, release)))
	return hex.EncodeToString(h[:])
}

type InsertResult struct {
	Inserted int
	Ignored  int
}

func (s *Store) InsertListen(ctx context.Context, ev analytics.PlayEvent) (InsertResult, error) {
	if ev.ListenedAt == 0 {
		// playing-now listens have no timestamp and are not history
		return InsertResult{Ignored: 1}, nil
	}

	hash := StableSourceHash(ev.ListenedAt, ev.Artist, ev.Track, ev.Release)

	res, err := s.DB.ExecContext(ctx, `
INSERT OR IGNORE INTO listens(
  listened_at, track_name, artist_name, release_name,
  recording_mbid, release_group_mbid, duration_ms,
  source_hash
) VALUES(?,?,?,?,?,?,?,?)
`,
		ev.ListenedAt, ev.Track, ev.Artist, nullIfEmpty(ev.Release),
		nullIfEmpty(ev.RecordingMBID), nullIfEmpty(ev.ReleaseGroupMBID), nullIfZero(ev.DurationMS),
		hash,
	)
	if err != nil {
		return InsertResult{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return InsertResult{Ignored: 1}, nil
	}
	return InsertResult{Inserted: 1}, nil
}

func (s *Store) MaxListenedAt(ctx context.Context) (int64, error) {
	var v sql.NullInt64
	if err := s.DB.QueryRowContext(ctx, `SELECT MAX(listened_at) FROM listens`).Scan(&v); err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, nil
	}
	return v.Int64, nil
}

func (s *Store) Stats(ctx context.Context) (count int64, minTS int64, maxTS int64, err error) {
	var c sql.NullInt64
	var min sql.NullInt64
	var max sql.NullInt64
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*), MIN(listened_at), MAX(listened_at) FROM listens`).Scan(&c, &min, &max); err != nil {
		return 0, 0, 0, err
	}
	return c.Int64, min.Int64, max.Int64, nil
}

// AllEvents loads the full listen history, oldest first.
func (s *Store) AllEvents(ctx context.Context) ([]analytics.PlayEvent, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT listened_at, track_name, artist_name,
       COALESCE(release_name, ''), COALESCE(recording_mbid, ''),
       COALESCE(release_group_mbid, ''), COALESCE(duration_ms, 0)
FROM listens ORDER BY listened_at ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []analytics.PlayEvent
	for rows.Next() {
		var ev analytics.PlayEvent
		if err := rows.Scan(&ev.ListenedAt, &ev.Track, &ev.Artist, &ev.Release, &ev.RecordingMBID, &ev.ReleaseGroupMBID, &ev.DurationMS); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecentEvents loads up to n newest listens, still oldest first within the
// slice.
func (s *Store) RecentEvents(ctx context.Context, n int) ([]analytics.PlayEvent, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT listened_at, track_name, artist_name,
       COALESCE(release_name, ''), COALESCE(recording_mbid, ''),
       COALESCE(release_group_mbid, ''), COALESCE(duration_ms, 0)
FROM listens ORDER BY listened_at DESC LIMIT ?
`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []analytics.PlayEvent
	for rows.Next() {
		var ev analytics.PlayEvent
		if err := rows.Scan(&ev.ListenedAt, &ev.Track, &ev.Artist, &ev.Release, &ev.RecordingMBID, &ev.ReleaseGroupMBID, &ev.DurationMS); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (s *Store) LoadPlayback() (nowplaying.Record, bool, error) {
	var rec nowplaying.Record
	err := s.DB.QueryRow(`SELECT identity, started_at FROM playback_state WHERE id = 1`).Scan(&rec.Identity, &rec.StartedAt)
	if err == sql.ErrNoRows {
		return nowplaying.Record{}, false, nil
	}
	if err != nil {
		return nowplaying.Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) SavePlayback(rec nowplaying.Record) error {
	_, err := s.DB.Exec(`
INSERT INTO playback_state(id, identity, started_at) VALUES(1, ?, ?)
ON CONFLICT(id) DO UPDATE SET identity = excluded.identity, started_at = excluded.started_at
`, rec.Identity, rec.StartedAt)
	return err
}

func (s *Store) ClearPlayback() error {
	_, err := s.DB.Exec(`DELETE FROM playback_state WHERE id = 1`)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
