package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// One client serves every keyspace the store keeps in Redis:
//
//	carrito:invitado:<uuid>      guest carts (JSON, no TTL)
//	actividad                    last activity per owner key (zset, unix ms)
//	auth:revocado:<uuid>         token revocation watermark (unix ms)
//	dist_v2:<origen>:<zip>       cached distance lookups
//	jobs:<name>, dlq:jobs:<name> background jobs and their dead letters

// redisPingTimeout bounds the startup connectivity check.
const redisPingTimeout = 5 * time.Second

// NewRedis parses redisURL and refuses to return a client that cannot reach
// the server.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: url inválida: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return rdb, nil
}
