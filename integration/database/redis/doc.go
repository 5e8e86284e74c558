// Package redis provides Redis client initialization and health checking for
// the rate-limiting engine's primary counter store.
//
// Connect validates the connection URL, establishes a client, and verifies
// connectivity with a retried ping before returning, so a misconfigured or
// unreachable Redis fails at startup instead of at request time. The
// returned client is handed to ratelimiter.NewRedisStore.
//
// Configuration is loaded through environment-tagged fields, typically via
// the config package:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//
// Both redis:// and rediss:// (TLS) URL schemes are supported. Errors are
// exposed as package sentinels checkable with errors.Is.
package redis
