// Package pg provides PostgreSQL connection management and migrations for
// the rate-limiting engine's durable fallback store.
//
// Connect builds a pgxpool with sizing from Config and verifies connectivity
// with a retried ping, so a misconfigured or unreachable database fails at
// startup instead of at request time. Migrate applies the embedded goose
// migrations that create the rate_limit_counters table, and is idempotent
// across restarts. The returned pool is handed to
// ratelimiter.NewPostgresStore.
//
// Typical startup wiring, with configuration loaded through the config
// package's environment-tagged fields:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, logger); err != nil {
//		return err
//	}
//	store, err := ratelimiter.NewPostgresStore(pool)
package pg
