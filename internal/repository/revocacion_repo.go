package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const revocadoPrefix = "auth:revocado:"

// RevocacionRepository marks every token of an identity issued up to a point
// in time as revoked. The key expires together with the longest-lived token.
type RevocacionRepository interface {
	Revocar(ctx context.Context, usuarioID uuid.UUID, at time.Time, ttl time.Duration) error
	// RevocadoDesde returns the zero time when nothing was revoked.
	RevocadoDesde(ctx context.Context, usuarioID uuid.UUID) (time.Time, error)
}

type revocacionRepo struct{ rdb *redis.Client }

func NewRevocacionRepository(rdb *redis.Client) RevocacionRepository {
	return &revocacionRepo{rdb: rdb}
}

func (r *revocacionRepo) Revocar(ctx context.Context, usuarioID uuid.UUID, at time.Time, ttl time.Duration) error {
	return r.rdb.Set(ctx, revocadoPrefix+usuarioID.String(), at.UnixMilli(), ttl).Err()
}

func (r *revocacionRepo) RevocadoDesde(ctx context.Context, usuarioID uuid.UUID) (time.Time, error) {
	raw, err := r.rdb.Get(ctx, revocadoPrefix+usuarioID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
