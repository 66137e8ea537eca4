package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const actividadKey = "actividad"

// ActividadRepository records the last qualifying activity per cart owner in
// a sorted set (member = owner key, score = unix ms).
type ActividadRepository interface {
	Touch(ctx context.Context, ownerKey string, at time.Time) error
	Remove(ctx context.Context, ownerKey string) error
	// Get returns ok=false when the owner has no recorded activity.
	Get(ctx context.Context, ownerKey string) (time.Time, bool, error)
	// Inactivos lists owners whose last activity is at or before the cutoff.
	Inactivos(ctx context.Context, cutoff time.Time) ([]string, error)
}

type actividadRepo struct{ rdb *redis.Client }

func NewActividadRepository(rdb *redis.Client) ActividadRepository { return &actividadRepo{rdb: rdb} }

func (r *actividadRepo) Touch(ctx context.Context, ownerKey string, at time.Time) error {
	return r.rdb.ZAdd(ctx, actividadKey, redis.Z{Score: float64(at.UnixMilli()), Member: ownerKey}).Err()
}

func (r *actividadRepo) Remove(ctx context.Context, ownerKey string) error {
	return r.rdb.ZRem(ctx, actividadKey, ownerKey).Err()
}

func (r *actividadRepo) Get(ctx context.Context, ownerKey string) (time.Time, bool, error) {
	score, err := r.rdb.ZScore(ctx, actividadKey, ownerKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(int64(score)), true, nil
}

func (r *actividadRepo) Inactivos(ctx context.Context, cutoff time.Time) ([]string, error) {
	return r.rdb.ZRangeByScore(ctx, actividadKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
}
