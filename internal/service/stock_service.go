package service

import (
	"context"
	"errors"
	"fmt"

	"tienda/internal/model"
	"tienda/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StockService is the only way inventory slots change outside an order
// transaction. Every successful change leaves a MovimientoStock row.
type StockService interface {
	// Disponible returns the reservable units of a slot, 0 when the variant
	// or slot does not exist. ErrNotFound only when the product is missing.
	Disponible(ctx context.Context, key model.SizeKey) (int, error)
	// Ajustar applies a signed delta to disponible: negative reserves, positive
	// releases. A release never fails on stock grounds but moves back at most
	// what the slot holds reserved.
	Ajustar(ctx context.Context, key model.SizeKey, delta int, ref string) error
	Reservar(ctx context.Context, key model.SizeKey, cantidad int, ref string) error
	Liberar(ctx context.Context, key model.SizeKey, cantidad int, ref string) error
}

type stockService struct {
	tx          repository.Transactor
	productos   repository.ProductoRepository
	movimientos repository.MovimientoStockRepository
}

func NewStockService(tx repository.Transactor, productos repository.ProductoRepository, movimientos repository.MovimientoStockRepository) StockService {
	return &stockService{tx: tx, productos: productos, movimientos: movimientos}
}

var errSinStock = errors.New("sin stock suficiente")

func (s *stockService) Disponible(ctx context.Context, key model.SizeKey) (int, error) {
	p, err := s.productos.FindByID(ctx, key.ProductoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("stock: leer producto %s: %w", key.ProductoID, err)
	}
	if key.Kind() == model.SizeVariant {
		if p.FindVariante(key.VarianteID) == nil {
			return 0, nil
		}
		return p.VariantInventory(key.VarianteID)[key.Talla], nil
	}
	return p.Inventory()[key.String()], nil
}

func (s *stockService) Reservar(ctx context.Context, key model.SizeKey, cantidad int, ref string) error {
	if cantidad <= 0 {
		return ErrCantidadInvalida
	}
	return s.Ajustar(ctx, key, -cantidad, ref)
}

func (s *stockService) Liberar(ctx context.Context, key model.SizeKey, cantidad int, ref string) error {
	if cantidad <= 0 {
		return ErrCantidadInvalida
	}
	return s.Ajustar(ctx, key, cantidad, ref)
}

func (s *stockService) Ajustar(ctx context.Context, key model.SizeKey, delta int, ref string) error {
	if delta == 0 {
		return nil
	}
	raw := key.String()
	tipo := model.MovLiberacion
	if delta < 0 {
		tipo = model.MovReserva
	}

	applied := delta
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		if delta < 0 {
			ok, err := s.productos.ReservarTx(ctx, tx, key.ProductoID, raw, -delta)
			if err != nil {
				return err
			}
			if !ok {
				return errSinStock
			}
		} else {
			n, err := s.productos.LiberarTx(ctx, tx, key.ProductoID, raw, delta)
			if err != nil {
				return err
			}
			applied = n
			if n == 0 {
				return nil
			}
		}
		return s.movimientos.CreateTx(ctx, tx, &model.MovimientoStock{
			ID:         uuid.New(),
			ProductoID: key.ProductoID,
			SizeKey:    raw,
			Tipo:       tipo,
			Cantidad:   applied,
			Referencia: ref,
		})
	})

	if errors.Is(err, errSinStock) {
		// re-read so the caller can tell the user exactly how much is left
		restantes, rerr := s.Disponible(ctx, key)
		if rerr != nil {
			return rerr
		}
		return &InsufficientStockError{Restantes: restantes}
	}
	if err != nil {
		return fmt.Errorf("stock: ajustar %s en %d: %w", raw, delta, err)
	}

	if applied != delta {
		log.Warn().Str("size_key", raw).Int("pedido", delta).Int("liberado", applied).Str("ref", ref).
			Msg("stock: liberación mayor que lo reservado, recortada")
		return nil
	}
	log.Debug().Str("size_key", raw).Int("delta", delta).Str("ref", ref).Msg("stock: ajuste aplicado")
	return nil
}
