package service

import (
	"context"
	"errors"
	"fmt"

	"tienda/internal/dto"
	"tienda/internal/model"
	"tienda/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notificador queues the post-order confirmation. Failures never fail the order.
type Notificador interface {
	EnqueueConfirmacion(ctx context.Context, ordenID string) error
}

type CheckoutService interface {
	RealizarPedido(ctx context.Context, usuarioID uuid.UUID, req dto.RealizarPedidoRequest) (*dto.OrdenResponse, error)
	ListarPedidos(ctx context.Context, usuarioID uuid.UUID) ([]dto.OrdenResponse, error)
}

type checkoutService struct {
	tx          repository.Transactor
	ordenes     repository.OrdenRepository
	productos   repository.ProductoRepository
	promos      repository.PromoRepository
	movimientos repository.MovimientoStockRepository
	carrito     CarritoService
	envio       EnvioService
	notificador Notificador
}

func NewCheckoutService(
	tx repository.Transactor,
	ordenes repository.OrdenRepository,
	productos repository.ProductoRepository,
	promos repository.PromoRepository,
	movimientos repository.MovimientoStockRepository,
	carrito CarritoService,
	envio EnvioService,
	notificador Notificador,
) CheckoutService {
	return &checkoutService{
		tx:          tx,
		ordenes:     ordenes,
		productos:   productos,
		promos:      promos,
		movimientos: movimientos,
		carrito:     carrito,
		envio:       envio,
		notificador: notificador,
	}
}

// ── RealizarPedido ────────────────────────────────────────────────────────────
// One transaction:
//   1. validate every line's size key before any statement is issued
//   2. increment the identity's order counter → id <uid>__orden<N>
//   3. insert the order with the cart snapshot
//   4. turn each line's reservation into an order-attributed decrement
//   5. count one use of the applied promo, if any
// Any failure rolls everything back; cart and stock stay as they were.

func (s *checkoutService) RealizarPedido(ctx context.Context, usuarioID uuid.UUID, req dto.RealizarPedidoRequest) (*dto.OrdenResponse, error) {
	cotizacion, err := s.envio.Cotizar(ctx, req.Envio.Metodo, req.Envio.CodigoPostal)
	if err != nil {
		return nil, err
	}

	var orden model.Orden
	err = s.carrito.ConsumirCarrito(ctx, usuarioID, func(cart model.CartState) error {
		if len(cart.Items) == 0 {
			return ErrCarritoVacio
		}

		keys := make([]model.SizeKey, len(cart.Items))
		for i, it := range cart.Items {
			k, err := model.ParseSizeKey(it.Size)
			if err != nil || k.ProductoID != it.ProductoID {
				return abort("validar carrito", &MalformedCartItemError{Item: nombreItem(it)})
			}
			keys[i] = k
		}

		subtotal := cart.Subtotal()
		descuento := cart.Descuento()
		orden = model.Orden{
			UsuarioID:     usuarioID,
			ClienteNombre: req.Envio.Nombre,
			ClienteEmail:  req.Envio.Email,
			ClienteTel:    req.Envio.Telefono,
			MetodoEnvio:   req.Envio.Metodo,
			EstacionMetro: req.Envio.EstacionMetro,
			MetodoPago:    req.MetodoPago,
			Items:         cart.Clone().Items,
			Subtotal:      subtotal,
			Descuento:     descuento,
			CostoEnvio:    cotizacion.Costo,
			Total:         subtotal.Sub(descuento).Add(cotizacion.Costo),
			Promo:         cart.Promo,
			Estado:        model.EstadoPendiente,
		}

		return s.tx.Transaction(ctx, func(tx *gorm.DB) error {
			n, err := s.ordenes.NextNumeroTx(ctx, tx, usuarioID)
			if err != nil {
				return abort("numerar pedido", err)
			}
			orden.Numero = n
			orden.ID = model.OrdenID(usuarioID, n)

			if err := s.ordenes.CreateTx(ctx, tx, &orden); err != nil {
				return abort("registrar pedido", err)
			}

			for i, it := range cart.Items {
				ok, err := s.productos.ConsumirReservaTx(ctx, tx, keys[i].ProductoID, it.Size, it.Cantidad)
				if err != nil {
					return abort("descontar stock", err)
				}
				if !ok {
					return abort("descontar stock", fmt.Errorf("reserva insuficiente para %s", it.Size))
				}
				mov := &model.MovimientoStock{
					ID:         uuid.New(),
					ProductoID: keys[i].ProductoID,
					SizeKey:    it.Size,
					Tipo:       model.MovPedido,
					Cantidad:   it.Cantidad,
					Referencia: orden.ID,
				}
				if err := s.movimientos.CreateTx(ctx, tx, mov); err != nil {
					return abort("registrar movimiento", err)
				}
			}

			if cart.Promo != nil {
				ok, err := s.promos.IncrementUsageTx(ctx, tx, cart.Promo.ID)
				if err != nil {
					return abort("aplicar promoción", err)
				}
				if !ok {
					return abort("aplicar promoción", ErrPromoAgotada)
				}
			}
			return nil
		})
	})
	if err != nil {
		var abortErr *TransactionAbortError
		if errors.As(err, &abortErr) {
			log.Warn().Err(err).Str("usuario_id", usuarioID.String()).Str("paso", abortErr.Paso).
				Msg("checkout: pedido revertido")
		}
		return nil, err
	}

	log.Info().Str("orden_id", orden.ID).Str("total", orden.Total.StringFixed(2)).Msg("checkout: pedido registrado")

	// best-effort, fire & forget
	if s.notificador != nil {
		if err := s.notificador.EnqueueConfirmacion(ctx, orden.ID); err != nil {
			log.Warn().Err(err).Str("orden_id", orden.ID).Msg("checkout: no se pudo encolar la confirmación")
		}
	}
	return dto.NewOrdenResponse(&orden), nil
}

func (s *checkoutService) ListarPedidos(ctx context.Context, usuarioID uuid.UUID) ([]dto.OrdenResponse, error) {
	ordenes, err := s.ordenes.ListByUsuario(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.OrdenResponse, len(ordenes))
	for i := range ordenes {
		resp[i] = *dto.NewOrdenResponse(&ordenes[i])
	}
	return resp, nil
}

func nombreItem(it model.CartItem) string {
	if it.Nombre != "" {
		return it.Nombre
	}
	return it.ProductoID
}
