package repository

import (
	"context"
	"errors"

	"tienda/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductoRepository defines the data access contract for products and their
// inventory slots. Services depend on this interface, not on the concrete
// GORM implementation, enabling unit testing via in-memory stubs.
type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	// FindByID loads the product with its variants and every stock slot.
	FindByID(ctx context.Context, id string) (*model.Producto, error)
	// FindSlot returns gorm.ErrRecordNotFound when the slot does not exist.
	FindSlot(ctx context.Context, productoID, sizeKey string) (*model.StockSlot, error)
	UpsertSlot(ctx context.Context, s *model.StockSlot) error

	// ReservarTx moves cantidad units from disponible to reservado, only if
	// disponible stays >= 0. Returns false when nothing was updated.
	ReservarTx(ctx context.Context, tx *gorm.DB, productoID, sizeKey string, cantidad int) (bool, error)
	// LiberarTx moves up to cantidad reserved units back to disponible and
	// returns how many moved. Never more than the slot holds in reservado;
	// a missing slot releases nothing.
	LiberarTx(ctx context.Context, tx *gorm.DB, productoID, sizeKey string, cantidad int) (int, error)
	// ConsumirReservaTx turns cantidad reserved units into sold units.
	// Returns false when the slot holds fewer reserved units than requested.
	ConsumirReservaTx(ctx context.Context, tx *gorm.DB, productoID, sizeKey string, cantidad int) (bool, error)

	SetDestacado(ctx context.Context, id string, destacado bool) error
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productoRepo) FindByID(ctx context.Context, id string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).
		Preload("Variantes", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC") }).
		Preload("Slots").
		Where("id = ? AND activo = true", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) FindSlot(ctx context.Context, productoID, sizeKey string) (*model.StockSlot, error) {
	var s model.StockSlot
	err := r.db.WithContext(ctx).
		Where("producto_id = ? AND size_key = ?", productoID, sizeKey).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *productoRepo) UpsertSlot(ctx context.Context, s *model.StockSlot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "producto_id"}, {Name: "size_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"disponible", "reservado", "updated_at"}),
	}).Create(s).Error
}

func (r *productoRepo) ReservarTx(ctx context.Context, tx *gorm.DB, productoID, sizeKey string, cantidad int) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.StockSlot{}).
		Where("producto_id = ? AND size_key = ? AND disponible >= ?", productoID, sizeKey, cantidad).
		Updates(map[string]interface{}{
			"disponible": gorm.Expr("disponible - ?", cantidad),
			"reservado":  gorm.Expr("reservado + ?", cantidad),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *productoRepo) LiberarTx(ctx context.Context, tx *gorm.DB, productoID, sizeKey string, cantidad int) (int, error) {
	if tx == nil {
		var n int
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			n, err = r.LiberarTx(ctx, tx, productoID, sizeKey, cantidad)
			return err
		})
		return n, err
	}

	var s model.StockSlot
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("producto_id = ? AND size_key = ?", productoID, sizeKey).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	// only units a cart actually holds go back
	n := min(cantidad, s.Reservado)
	if n == 0 {
		return 0, nil
	}
	err = tx.WithContext(ctx).Model(&model.StockSlot{}).
		Where("producto_id = ? AND size_key = ?", productoID, sizeKey).
		Updates(map[string]interface{}{
			"disponible": gorm.Expr("disponible + ?", n),
			"reservado":  gorm.Expr("reservado - ?", n),
		}).Error
	return n, err
}

func (r *productoRepo) ConsumirReservaTx(ctx context.Context, tx *gorm.DB, productoID, sizeKey string, cantidad int) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.StockSlot{}).
		Where("producto_id = ? AND size_key = ? AND reservado >= ?", productoID, sizeKey, cantidad).
		Update("reservado", gorm.Expr("reservado - ?", cantidad))
	return res.RowsAffected > 0, res.Error
}

func (r *productoRepo) SetDestacado(ctx context.Context, id string, destacado bool) error {
	res := r.db.WithContext(ctx).Model(&model.Producto{}).Where("id = ?", id).Update("destacado", destacado)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
