package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"stardust/internal/analytics"
	"stardust/internal/catalog"
	"stardust/internal/config"
	"stardust/internal/listenbrainz"
	"stardust/internal/logx"
	"stardust/internal/nowplaying"
	"stardust/internal/store"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return 2
	}
	cmd := args[0]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage(os.Stdout)
		return 0
	}
	if cmd == "version" || cmd == "--version" || cmd == "-version" {
		fmt.Fprintln(os.Stdout, version)
		return 0
	}

	// subcommand flag parsing (single shared flagset for now)
	subArgs := args[1:]
	for _, a := range subArgs {
		if a == "--help" || a == "-h" || a == "-help" {
			usage(os.Stdout)
			return 0
		}
	}

	req := config.Requirements{}
	switch cmd {
	case "backfill", "sync":
		req.RequireUsername = true
	case "now":
		req.RequireUsername = true
		req.RequireCatalog = true
	case "stats":
		req.RequireCatalog = true
	case "verify":
		// local only
	default:
		fmt.Fprintln(os.Stderr, "error: unknown command:", cmd)
		usage(os.Stderr)
		return 2
	}

	c, err := config.FromFlags(subArgs, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	log := logx.Logger{Out: os.Stderr, Verbose: c.Verbose}

	ctx := context.Background()
	s, err := store.Open(ctx, store.OpenOptions{DataDir: c.DataDir})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer s.Close()

	switch cmd {
	case "backfill":
		return cmdBackfill(ctx, log, newClient(c), s)
	case "sync":
		return cmdSync(ctx, log, newClient(c), s)
	case "now":
		return cmdNow(ctx, log, newClient(c), s, c)
	case "stats":
		return cmdStats(ctx, log, s, c)
	case "verify":
		return cmdVerify(ctx, log, s)
	default:
		fmt.Fprintln(os.Stderr, "error: unknown command:", cmd)
		usage(os.Stderr)
		return 2
	}
}

func newClient(c config.Config) listenbrainz.Client {
	return listenbrainz.Client{
		Token:     c.Token,
		Username:  c.Username,
		APIURL:    c.APIURL,
		UserAgent: c.UserAgent,
		Limiter:   listenbrainz.NewRateLimiter(5, 5),
	}
}

func usage(w *os.File) {
	fmt.Fprint(w, `stardust

Usage:
  stardust <command> [flags]

Commands:
  backfill   Fetch the full listen history and store (raw JSONL + SQLite)
  sync       Fetch new listens since the last run
  now        Show the currently playing track and elapsed playback time
  stats      Compute dashboard metrics from the stored history (JSON)
  verify     Print basic DB stats
  version    Print version

Flags (common):
  --config <path>        Config file (default: XDG config dir)
  --env-file <path>      Load env vars from a file
  --token <token>        ListenBrainz user token (or set STARDUST_TOKEN)
  --user <username>      ListenBrainz username (or set STARDUST_USER)
  --api-url <url>        ListenBrainz API base URL
  --data-dir <path>      Data directory (default: XDG data dir)
  --catalog <path>       Catalog JSON file (or set STARDUST_CATALOG)
  --basis <basis>        Projection basis: DAY, WEEK, MONTH or YEAR
  --match-artist <name>  Classify by artist-name heuristic instead of strict identifiers
  --verbose              Verbose logging (prints per-page progress)
  --user-agent <ua>      HTTP User-Agent

Help:
  stardust --help
`)
}

// fetchPage retries transient fetch failures a few times before giving up.
func fetchPage(ctx context.Context, log logx.Logger, client listenbrainz.Client, cursor int64) (listenbrainz.Page, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		p, err := client.GetListensPage(ctx, cursor, listenbrainz.MaxPageSize)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if !listenbrainz.IsRetryable(err) {
			return listenbrainz.Page{}, err
		}
		log.Warnf("fetch failed (attempt %d/3): %v", attempt, err)
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}
	return listenbrainz.Page{}, lastErr
}

func cmdBackfill(ctx context.Context, log logx.Logger, client listenbrainz.Client, s *store.Store) int {
	inserted := 0
	ignored := 0
	var cursor int64
	page := 0
	lastProgress := time.Now()

	for {
		p, err := fetchPage(ctx, log, client, cursor)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		if len(p.Listens) == 0 {
			break
		}
		page++

		for _, l := range p.Listens {
			res, err := s.InsertListen(ctx, l.Event())
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				return 1
			}
			if res.Inserted > 0 {
				// Store raw once per unique listen; avoids ballooning JSONL on reruns.
				if err := s.AppendRaw(l); err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
					return 1
				}
			}
			inserted += res.Inserted
			ignored += res.Ignored
		}
		if err := s.RawJSONLBuf.Flush(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}

		log.Debugf("backfill: page %d (inserted=%d ignored=%d)", page, inserted, ignored)
		if !log.Verbose && time.Since(lastProgress) > 15*time.Second {
			log.Infof("backfill: page %d (inserted=%d ignored=%d)", page, inserted, ignored)
			lastProgress = time.Now()
		}

		// Listens arrive newest first; page down past the oldest ts seen.
		cursor = p.Listens[len(p.Listens)-1].ListenedAt
	}

	log.Infof("backfill done: inserted=%d ignored=%d", inserted, ignored)
	return 0
}

func cmdSync(ctx context.Context, log logx.Logger, client listenbrainz.Client, s *store.Store) int {
	maxSeen, err := s.MaxListenedAt(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	log.Infof("sync: max_listened_at=%d", maxSeen)

	inserted := 0
	ignored := 0
	var cursor int64
	page := 0
	stop := false
	lastProgress := time.Now()

	for {
		p, err := fetchPage(ctx, log, client, cursor)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		if len(p.Listens) == 0 {
			break
		}
		page++

		for _, l := range p.Listens {
			res, err := s.InsertListen(ctx, l.Event())
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				return 1
			}
			if res.Inserted > 0 {
				if err := s.AppendRaw(l); err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
					return 1
				}
			}
			inserted += res.Inserted
			ignored += res.Ignored

			if maxSeen != 0 && l.ListenedAt <= maxSeen {
				stop = true
			}
		}
		if err := s.RawJSONLBuf.Flush(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}

		log.Debugf("sync: page %d (inserted=%d ignored=%d)", page, inserted, ignored)
		if !log.Verbose && time.Since(lastProgress) > 15*time.Second {
			log.Infof("sync: page %d (inserted=%d ignored=%d)", page, inserted, ignored)
			lastProgress = time.Now()
		}
		if stop {
			break
		}
		cursor = p.Listens[len(p.Listens)-1].ListenedAt
	}

	log.Infof("sync done: inserted=%d ignored=%d", inserted, ignored)
	return 0
}

func cmdStats(ctx context.Context, log logx.Logger, s *store.Store, c config.Config) int {
	cat, err := catalog.Load(c.CatalogPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	idx := catalog.BuildIndex(cat)

	events, err := s.AllEvents(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	log.Debugf("stats: %d events, %d release groups", len(events), len(cat))

	now := time.Now().UTC()
	basis := analytics.ParseBasis(c.Basis)

	var m analytics.DashboardMetrics
	if c.MatchArtist != "" {
		m = analytics.ComputeWith(analytics.NewHeuristicClassifier(idx, c.MatchArtist, 0), events, idx, now, basis)
	} else {
		m = analytics.Compute(events, idx, now, basis)
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	fmt.Fprintln(os.Stdout, string(b))
	return 0
}

func cmdNow(ctx context.Context, log logx.Logger, client listenbrainz.Client, s *store.Store, c config.Config) int {
	cat, err := catalog.Load(c.CatalogPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	idx := catalog.BuildIndex(cat)

	history, err := s.RecentEvents(ctx, 500)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	cur := nowplaying.State{}
	if rec, ok, err := s.LoadPlayback(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	} else if ok {
		cur = nowplaying.State{Identity: rec.Identity, StartedAt: rec.StartedAt}
	}

	l, err := client.GetPlayingNow(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	var match *nowplaying.Match
	if l != nil {
		ev := l.Event()
		if m, ok := nowplaying.MatchEvent(ev, idx, lastAlbumHint(history, idx)); ok {
			match = &m
		} else {
			log.Debugf("now: %q not in catalog", ev.Track)
		}
	}

	now := time.Now().UTC().Unix()
	next, err := nowplaying.NewTracker(s).Observe(cur, match, history, now)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	if next.Idle() {
		fmt.Fprintln(os.Stdout, "nothing playing")
		return 0
	}

	title := match.RecordingID
	album := ""
	if rg, ok := idx.ReleaseGroup(match.ReleaseGroupID); ok {
		album = rg.Title
		for _, tr := range rg.Tracks {
			if tr.ID == match.RecordingID {
				title = tr.Title
				break
			}
		}
	}
	elapsed := time.Duration(now-next.StartedAt) * time.Second
	fmt.Fprintf(os.Stdout, "now playing: %s (%s) elapsed %s\n", title, album, elapsed)
	return 0
}

// lastAlbumHint resolves the most recent classified listen's release group,
// used to bias ambiguous track-name matches toward album continuity.
func lastAlbumHint(history []analytics.PlayEvent, idx *catalog.Index) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].RecordingMBID == "" {
			continue
		}
		if rgID, ok := idx.ResolveRecording(history[i].RecordingMBID); ok {
			return rgID
		}
	}
	return ""
}

func cmdVerify(ctx context.Context, log logx.Logger, s *store.Store) int {
	count, minTS, maxTS, err := s.Stats(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	_ = log // reserved for future diagnostics
	fmt.Fprintf(os.Stdout, "listens: count=%d min_ts=%d max_ts=%d\n", count, minTS, maxTS)
	return 0
}
