package repository

import (
	"context"

	"tienda/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromoRepository interface {
	Create(ctx context.Context, p *model.PromoCode) error
	// FindActiveByCode expects an already normalised code.
	FindActiveByCode(ctx context.Context, code string) (*model.PromoCode, error)
	// IncrementUsageTx bumps usage_count only while the code is still
	// applicable. Returns false when the guard rejected the update.
	IncrementUsageTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
}

type promoRepo struct{ db *gorm.DB }

func NewPromoRepository(db *gorm.DB) PromoRepository { return &promoRepo{db: db} }

func (r *promoRepo) Create(ctx context.Context, p *model.PromoCode) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *promoRepo) FindActiveByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	var p model.PromoCode
	err := r.db.WithContext(ctx).Where("code = ? AND active = true", code).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promoRepo) IncrementUsageTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.PromoCode{}).
		Where("id = ? AND active = true AND (usage_limit = 0 OR usage_count < usage_limit)", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	return res.RowsAffected > 0, res.Error
}
