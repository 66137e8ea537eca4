package infra

import (
	"fmt"

	"tienda/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the
// schema up to date.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates all tables and applies the patches GORM
// cannot express. Integration tests call it directly on a fresh container.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Producto{},
		&model.Variante{},
		&model.StockSlot{},
		&model.StoreUser{},
		&model.PromoCode{},
		&model.OrderCounter{},
		&model.Orden{},
		&model.MovimientoStock{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own. Each one is guarded so re-running on a patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// stock counters never go negative, whatever the caller does
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventario_disponible') THEN
		    ALTER TABLE inventario ADD CONSTRAINT chk_inventario_disponible CHECK (disponible >= 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventario_reservado') THEN
		    ALTER TABLE inventario ADD CONSTRAINT chk_inventario_reservado CHECK (reservado >= 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_promo_usage') THEN
		    ALTER TABLE promo_codes ADD CONSTRAINT chk_promo_usage
		      CHECK (usage_limit = 0 OR usage_count <= usage_limit);
		  END IF;
		END $$`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_ordenes_usuario_numero ON ordenes (usuario_id, numero)`,
		`CREATE INDEX IF NOT EXISTS idx_movimientos_referencia ON movimientos_stock (referencia)`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
