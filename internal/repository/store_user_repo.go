package repository

import (
	"context"
	"time"

	"tienda/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StoreUserRepository stores storefront customers together with their bound
// cart document and favorites.
type StoreUserRepository interface {
	Create(ctx context.Context, u *model.StoreUser) error
	FindByEmail(ctx context.Context, email string) (*model.StoreUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.StoreUser, error)
	// GetCart returns an empty CartState for a user that never saved one.
	GetCart(ctx context.Context, id uuid.UUID) (model.CartState, error)
	SaveCart(ctx context.Context, id uuid.UUID, cart model.CartState) error
	// SaveMergedCart writes the cart produced by login reconciliation and stamps merged_at.
	SaveMergedCart(ctx context.Context, id uuid.UUID, cart model.CartState, at time.Time) error
	UpdateFavoritos(ctx context.Context, id uuid.UUID, favs []model.Favorito) error
}

type storeUserRepo struct{ db *gorm.DB }

func NewStoreUserRepository(db *gorm.DB) StoreUserRepository { return &storeUserRepo{db: db} }

func (r *storeUserRepo) Create(ctx context.Context, u *model.StoreUser) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *storeUserRepo) FindByEmail(ctx context.Context, email string) (*model.StoreUser, error) {
	var u model.StoreUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *storeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StoreUser, error) {
	var u model.StoreUser
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *storeUserRepo) GetCart(ctx context.Context, id uuid.UUID) (model.CartState, error) {
	var u model.StoreUser
	err := r.db.WithContext(ctx).Select("id", "cart").First(&u, "id = ?", id).Error
	if err != nil {
		return model.CartState{}, err
	}
	return u.Cart, nil
}

func (r *storeUserRepo) SaveCart(ctx context.Context, id uuid.UUID, cart model.CartState) error {
	return r.updates(ctx, id, &model.StoreUser{Cart: cart}, "cart", "updated_at")
}

func (r *storeUserRepo) SaveMergedCart(ctx context.Context, id uuid.UUID, cart model.CartState, at time.Time) error {
	return r.updates(ctx, id, &model.StoreUser{Cart: cart, MergedAt: &at}, "cart", "merged_at", "updated_at")
}

func (r *storeUserRepo) UpdateFavoritos(ctx context.Context, id uuid.UUID, favs []model.Favorito) error {
	return r.updates(ctx, id, &model.StoreUser{Favoritos: favs}, "favoritos", "updated_at")
}

// updates writes the selected columns through the struct so the json
// serializer is applied; Select forces zero values (an empty cart) through.
func (r *storeUserRepo) updates(ctx context.Context, id uuid.UUID, u *model.StoreUser, cols ...string) error {
	u.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&model.StoreUser{ID: id}).Select(cols).Updates(u)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
