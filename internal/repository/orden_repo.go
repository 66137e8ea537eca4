package repository

import (
	"context"

	"tienda/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrdenRepository interface {
	// NextNumeroTx atomically increments and returns the identity's order counter.
	NextNumeroTx(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID) (int, error)
	CreateTx(ctx context.Context, tx *gorm.DB, o *model.Orden) error
	FindByID(ctx context.Context, id string) (*model.Orden, error)
	ListByUsuario(ctx context.Context, usuarioID uuid.UUID) ([]model.Orden, error)
	MarcarConfirmado(ctx context.Context, id string) error
}

type ordenRepo struct{ db *gorm.DB }

func NewOrdenRepository(db *gorm.DB) OrdenRepository { return &ordenRepo{db: db} }

func (r *ordenRepo) NextNumeroTx(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID) (int, error) {
	var n int
	err := conn(ctx, r.db, tx).Raw(`
		INSERT INTO order_counters (usuario_id, count) VALUES (?, 1)
		ON CONFLICT (usuario_id) DO UPDATE SET count = order_counters.count + 1
		RETURNING count`, usuarioID).Scan(&n).Error
	return n, err
}

func (r *ordenRepo) CreateTx(ctx context.Context, tx *gorm.DB, o *model.Orden) error {
	return conn(ctx, r.db, tx).Create(o).Error
}

func (r *ordenRepo) FindByID(ctx context.Context, id string) (*model.Orden, error) {
	var o model.Orden
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *ordenRepo) ListByUsuario(ctx context.Context, usuarioID uuid.UUID) ([]model.Orden, error) {
	var out []model.Orden
	err := r.db.WithContext(ctx).Where("usuario_id = ?", usuarioID).Order("numero DESC").Find(&out).Error
	return out, err
}

func (r *ordenRepo) MarcarConfirmado(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Orden{}).Where("id = ?", id).Update("confirmado", true).Error
}
