package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistanciaCacheTTL is how long a looked-up distance is trusted.
const DistanciaCacheTTL = 30 * 24 * time.Hour

// DistanciaCacheRepository caches distance lookups per origin/destination postal code.
type DistanciaCacheRepository interface {
	// Get returns ok=false on a cache miss.
	Get(ctx context.Context, origen, zip string) (km float64, ok bool, err error)
	Set(ctx context.Context, origen, zip string, km float64) error
}

type distanciaCacheRepo struct{ rdb *redis.Client }

func NewDistanciaCacheRepository(rdb *redis.Client) DistanciaCacheRepository {
	return &distanciaCacheRepo{rdb: rdb}
}

func distanciaKey(origen, zip string) string { return "dist_v2:" + origen + ":" + zip }

func (r *distanciaCacheRepo) Get(ctx context.Context, origen, zip string) (float64, bool, error) {
	raw, err := r.rdb.Get(ctx, distanciaKey(origen, zip)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	km, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return km, true, nil
}

func (r *distanciaCacheRepo) Set(ctx context.Context, origen, zip string, km float64) error {
	return r.rdb.Set(ctx, distanciaKey(origen, zip), strconv.FormatFloat(km, 'f', 3, 64), DistanciaCacheTTL).Err()
}
