package repository

import (
	"context"
	"encoding/json"
	"errors"

	"tienda/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const guestCartPrefix = "carrito:invitado:"

// GuestCartRepository keeps guest carts in Redis, one JSON document per
// guest session. Keys carry no TTL; idle carts are reaped by the inactivity cron.
type GuestCartRepository interface {
	// Get returns an empty cart when the guest has none.
	Get(ctx context.Context, guestID uuid.UUID) (model.CartState, error)
	Save(ctx context.Context, guestID uuid.UUID, cart model.CartState) error
	Delete(ctx context.Context, guestID uuid.UUID) error
}

type guestCartRepo struct{ rdb *redis.Client }

func NewGuestCartRepository(rdb *redis.Client) GuestCartRepository { return &guestCartRepo{rdb: rdb} }

func guestCartKey(id uuid.UUID) string { return guestCartPrefix + id.String() }

func (r *guestCartRepo) Get(ctx context.Context, guestID uuid.UUID) (model.CartState, error) {
	raw, err := r.rdb.Get(ctx, guestCartKey(guestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.CartState{}, nil
	}
	if err != nil {
		return model.CartState{}, err
	}
	var cart model.CartState
	if err := json.Unmarshal(raw, &cart); err != nil {
		return model.CartState{}, err
	}
	return cart, nil
}

func (r *guestCartRepo) Save(ctx context.Context, guestID uuid.UUID, cart model.CartState) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, guestCartKey(guestID), raw, 0).Err()
}

func (r *guestCartRepo) Delete(ctx context.Context, guestID uuid.UUID) error {
	return r.rdb.Del(ctx, guestCartKey(guestID)).Err()
}
