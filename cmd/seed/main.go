// cmd/seed/main.go: carga catálogo, stock, promo y admin de demo.
// Uso: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"os"

	"tienda/internal/config"
	"tienda/internal/infra"
	"tienda/internal/model"
	"tienda/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	ctx := context.Background()

	productos := repository.NewProductoRepository(db)
	for _, p := range catalogo() {
		slots := p.Slots
		p.Slots = nil
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&p).Error; err != nil {
			log.Fatal().Err(err).Str("producto", p.ID).Msg("insert producto")
		}
		for i := range slots {
			if err := productos.UpsertSlot(ctx, &slots[i]); err != nil {
				log.Fatal().Err(err).Str("size_key", slots[i].SizeKey).Msg("upsert stock")
			}
		}
	}

	promo := model.PromoCode{Code: "SUMMER10", DiscountPercentage: decimal.NewFromInt(10), UsageLimit: 100, Active: true}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&promo).Error; err != nil {
		log.Fatal().Err(err).Msg("insert promo")
	}

	if err := seedAdmin(ctx, db, "admin@tienda.local", "tienda2026"); err != nil {
		log.Fatal().Err(err).Msg("insert admin")
	}
	fmt.Println("✅ Catálogo, promo SUMMER10 y admin@tienda.local cargados")
}

func seedAdmin(ctx context.Context, db *gorm.DB, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	u := model.StoreUser{Email: email, PasswordHash: string(hash), Nombre: "Admin", Rol: "admin"}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "rol"}),
	}).Create(&u).Error
}

func slot(key model.SizeKey, n int) model.StockSlot {
	return model.StockSlot{ProductoID: key.ProductoID, SizeKey: key.String(), Disponible: n}
}

func catalogo() []model.Producto {
	return []model.Producto{
		{
			ID: "playera-basica", Nombre: "Playera básica", Precio: decimal.NewFromInt(249),
			Categoria: "playeras", Destacado: true, Activo: true,
			Slots: []model.StockSlot{
				slot(model.NewFlatKey("playera-basica", "L"), 10),
				slot(model.NewFlatKey("playera-basica", "XL"), 6),
				slot(model.NewFlatKey("playera-basica", "2XL"), 2),
			},
		},
		{
			ID: "sudadera-oversize", Nombre: "Sudadera oversize", Precio: decimal.NewFromInt(699),
			Categoria: "sudaderas", Activo: true,
			Variantes: []model.Variante{
				{ID: "negro", ProductoID: "sudadera-oversize", Color: "Negro", Orden: 0},
				{ID: "arena", ProductoID: "sudadera-oversize", Color: "Arena", Orden: 1},
			},
			Slots: []model.StockSlot{
				slot(model.NewVariantKey("sudadera-oversize", "negro", "L"), 4),
				slot(model.NewVariantKey("sudadera-oversize", "negro", "XL"), 1),
				slot(model.NewVariantKey("sudadera-oversize", "arena", "L"), 3),
			},
		},
		{
			ID: "gorra", Nombre: "Gorra bordada", Precio: decimal.NewFromInt(299),
			Categoria: "accesorios", Activo: true,
			Slots: []model.StockSlot{slot(model.NewFlatKey("gorra", "unitalla"), 25)},
		},
	}
}
