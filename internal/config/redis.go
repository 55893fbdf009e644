package config

// Redis backs the optional infrastructure around the session API: the
// token-bucket rate limiter on join endpoints and the response cache on
// the public menu routes.  Both are conveniences, not dependencies, so a
// missing or unreachable Redis never stops the server from starting.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from REDIS_* environment variables and
// verifies it with a short ping.  It returns nil when Redis is not
// configured or not reachable; callers treat a nil client as "run
// without rate limiting and caching".
//
// REDIS_ADDR takes a full host:port.  REDIS_HOST plus REDIS_PORT
// override it when both are set.
func NewRedisClient() *redis.Client {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host := envStr("REDIS_HOST", ""); host != "" {
		addr = host + ":" + envStr("REDIS_PORT", "6379")
	}

	opts := &redis.Options{
		Addr:     addr,
		Password: envStr("REDIS_PASSWORD", ""),
		DB:       envInt("REDIS_DB", 0),
	}
	if envBool("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
