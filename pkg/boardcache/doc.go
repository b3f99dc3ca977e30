// Package boardcache keeps a private Advent of Code leaderboard in memory and
// refreshes it on a fixed interval, so a web frontend can serve it without
// hitting the rate-limited upstream on every request.
//
// # Quick Start
//
// Create a cache, hand it the credentials and read from it:
//
//	c, err := boardcache.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	c.Initialize(ctx, os.Getenv("AOC_LEADERBOARD_CODE"), os.Getenv("AOC_SESSION_COOKIE"))
//
//	if lb := c.Data(); lb != nil {
//	    for _, m := range lb.Standings() {
//	        fmt.Println(m.DisplayName(), m.LocalScore)
//	    }
//	}
//
// Initialize performs one fetch and waits for it, then refreshes every
// interval (15 minutes by default) until Stop or Close.
//
// # Stale Data
//
// A failed refresh never discards the last good leaderboard. Err reports what
// went wrong and Data keeps returning the previous payload:
//
//	if msg := c.Err(); msg != "" {
//	    log.Printf("serving stale data: %s", msg)
//	}
//
// Age returns AgeUnknown until the first successful fetch.
//
// # Overlapping Refreshes
//
// Refresh returns false without doing anything when another refresh is
// already in flight. Overlapping ticks are dropped, not queued.
//
// # Options
//
// Use functional options to replace collaborators:
//
//	c, err := boardcache.New(
//	    boardcache.WithInterval(5*time.Minute),
//	    boardcache.WithOnRefresh(func(r boardcache.RefreshResult) {
//	        log.Printf("refresh: %s", r.Outcome)
//	    }),
//	)
//
// # Configuration
//
// Load configuration from a JSON file with environment overrides:
//
//	c, err := boardcache.NewFromFile("boardcache.json")
//
// Or start from the defaults:
//
//	cfg := boardcache.Config()
//	cfg.Redis.Enabled = true
//	c, err := boardcache.NewFromConfig(cfg)
//
// # Thread Safety
//
// All read accessors are non-blocking and safe for concurrent use.
package boardcache
