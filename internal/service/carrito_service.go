package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tienda/internal/dto"
	"tienda/internal/model"
	"tienda/internal/repository"
	"tienda/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// CarritoService owns every cart. Guest carts are read and written through
// Redis on each edit; bound carts live in an in-memory session table and are
// persisted to the user record by a debouncer. All mutating operations on one
// owner run one at a time.
type CarritoService interface {
	Obtener(ctx context.Context, owner model.CartOwner) (*dto.CarritoResponse, error)
	AgregarItem(ctx context.Context, owner model.CartOwner, req dto.AgregarItemRequest) (*dto.CarritoResponse, error)
	// ActualizarCantidad with cantidad <= 0 removes the line.
	ActualizarCantidad(ctx context.Context, owner model.CartOwner, size string, cantidad int) (*dto.CarritoResponse, error)
	EliminarItem(ctx context.Context, owner model.CartOwner, size string) (*dto.CarritoResponse, error)
	// Vaciar deletes the cart, then releases every line concurrently. The
	// cart stays deleted when some releases fail; those failures are returned
	// joined. If the delete fails nothing is released.
	Vaciar(ctx context.Context, owner model.CartOwner) error
	// VaciarPorInactividad clears the persisted cart (the remote one for an
	// identity) and releases its lines, logging and skipping failed ones.
	VaciarPorInactividad(ctx context.Context, owner model.CartOwner) error

	SetPromo(ctx context.Context, owner model.CartOwner, promo *model.PromoAplicada) (*dto.CarritoResponse, error)
	// ConsumirCarrito runs fn with the identity's cart under its lock. When fn
	// succeeds the cart is emptied without restoring stock and saved at once.
	ConsumirCarrito(ctx context.Context, usuarioID uuid.UUID, fn func(model.CartState) error) error

	// Bloquear takes the per-owner lock; callers must release it.
	Bloquear(owner model.CartOwner) (unlock func())
	// InstalarSesion makes cart the active bound cart and schedules its save.
	InstalarSesion(usuarioID uuid.UUID, cart model.CartState)
	Flush(ctx context.Context, usuarioID uuid.UUID) error
	// CerrarSesion flushes pending writes and drops the in-memory cart.
	// The persisted cart stays for the next sign-in.
	CerrarSesion(ctx context.Context, usuarioID uuid.UUID) error
	// Close flushes every pending save, for shutdown.
	Close(ctx context.Context) error
}

type carritoService struct {
	stock     StockService
	productos repository.ProductoRepository
	usuarios  repository.StoreUserRepository
	invitados repository.GuestCartRepository
	saver     *worker.Debouncer
	locks     *ownerLocks
	now       func() time.Time

	// per process: one API instance owns the bound sessions
	mu       sync.RWMutex
	sesiones map[uuid.UUID]model.CartState
}

func NewCarritoService(
	stock StockService,
	productos repository.ProductoRepository,
	usuarios repository.StoreUserRepository,
	invitados repository.GuestCartRepository,
	debounce time.Duration,
) CarritoService {
	s := &carritoService{
		stock:     stock,
		productos: productos,
		usuarios:  usuarios,
		invitados: invitados,
		locks:     newOwnerLocks(),
		now:       time.Now,
		sesiones:  make(map[uuid.UUID]model.CartState),
	}
	s.saver = worker.NewDebouncer(debounce, s.guardarSesion)
	return s
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *carritoService) Obtener(ctx context.Context, owner model.CartOwner) (*dto.CarritoResponse, error) {
	var cart model.CartState
	err := s.locks.With(owner.Key(), func() error {
		var err error
		cart, err = s.cargar(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return respuesta(cart), nil
}

// cargar returns a private copy of the owner's cart. A bound cart missing
// from the session table (e.g. after a restart) is loaded from the user record.
func (s *carritoService) cargar(ctx context.Context, owner model.CartOwner) (model.CartState, error) {
	if owner.IsGuest() {
		cart, err := s.invitados.Get(ctx, owner.GuestID)
		if err != nil {
			return model.CartState{}, fmt.Errorf("carrito: leer carrito invitado: %w", err)
		}
		return cart, nil
	}

	s.mu.RLock()
	cart, ok := s.sesiones[owner.UsuarioID]
	s.mu.RUnlock()
	if ok {
		return cart.Clone(), nil
	}

	remote, err := s.usuarios.GetCart(ctx, owner.UsuarioID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartState{}, ErrNotFound
	}
	if err != nil {
		return model.CartState{}, fmt.Errorf("carrito: leer carrito remoto: %w", err)
	}
	s.mu.Lock()
	s.sesiones[owner.UsuarioID] = remote.Clone()
	s.mu.Unlock()
	return remote, nil
}

// guardar makes cart the owner's current cart. Guest carts are written
// immediately; bound carts go to the session table and a debounced save.
func (s *carritoService) guardar(ctx context.Context, owner model.CartOwner, cart model.CartState) error {
	if owner.IsGuest() {
		if err := s.invitados.Save(ctx, owner.GuestID, cart); err != nil {
			return fmt.Errorf("carrito: guardar carrito invitado: %w", err)
		}
		return nil
	}
	s.InstalarSesion(owner.UsuarioID, cart)
	return nil
}

// guardarSesion is the debouncer callback. It reads the session at fire time;
// a dropped session means the identity signed out and was already flushed.
func (s *carritoService) guardarSesion(ctx context.Context, key string) error {
	uid, err := uuid.Parse(key)
	if err != nil {
		return err
	}
	s.mu.RLock()
	cart, ok := s.sesiones[uid]
	if ok {
		cart = cart.Clone()
	}
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := s.usuarios.SaveCart(ctx, uid, cart); err != nil {
		return fmt.Errorf("carrito: guardar carrito de %s: %w", uid, err)
	}
	log.Debug().Str("owner", key).Int("items", len(cart.Items)).Msg("carrito: guardado remoto")
	return nil
}

// ── Mutations ─────────────────────────────────────────────────────────────────

func (s *carritoService) AgregarItem(ctx context.Context, owner model.CartOwner, req dto.AgregarItemRequest) (*dto.CarritoResponse, error) {
	if req.Cantidad <= 0 {
		return nil, ErrCantidadInvalida
	}
	p, err := s.productos.FindByID(ctx, req.ProductoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("carrito: leer producto: %w", err)
	}

	key := model.NewFlatKey(p.ID, req.Talla)
	imagen := primera(p.Imagenes)
	if req.VarianteID != "" {
		v := p.FindVariante(req.VarianteID)
		if v == nil {
			return nil, ErrNotFound
		}
		key = model.NewVariantKey(p.ID, v.ID, req.Talla)
		if img := primera(v.Imagenes); img != "" {
			imagen = img
		}
	}
	size := key.String()

	var cart model.CartState
	err = s.locks.With(owner.Key(), func() error {
		cart, err = s.cargar(ctx, owner)
		if err != nil {
			return err
		}

		disponible, err := s.stock.Disponible(ctx, key)
		if err != nil {
			return err
		}
		idx := cart.Find(size)
		enCarrito := 0
		if idx >= 0 {
			enCarrito = cart.Items[idx].Cantidad
		}
		// units this cart already holds count as available to grow its own line
		reservable := disponible + enCarrito
		if reservable <= 0 {
			return ErrOutOfStock
		}
		if enCarrito+req.Cantidad > reservable {
			return &InsufficientStockError{Restantes: reservable - enCarrito}
		}

		if err := s.stock.Reservar(ctx, key, req.Cantidad, owner.Key()); err != nil {
			return err
		}

		if idx >= 0 {
			cart.Items[idx].Cantidad += req.Cantidad
		} else {
			cart.Items = append(cart.Items, model.CartItem{
				ProductoID: p.ID,
				Nombre:     p.Nombre,
				Precio:     p.Precio,
				Size:       size,
				Cantidad:   req.Cantidad,
				Imagen:     imagen,
				CreatedAt:  s.now(),
			})
		}
		return s.guardarOCompensar(ctx, owner, cart, key, -req.Cantidad)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("owner", owner.Key()).Str("size_key", size).Int("cantidad", req.Cantidad).Msg("carrito: item agregado")
	return respuesta(cart), nil
}

func (s *carritoService) ActualizarCantidad(ctx context.Context, owner model.CartOwner, size string, cantidad int) (*dto.CarritoResponse, error) {
	if cantidad <= 0 {
		return s.EliminarItem(ctx, owner, size)
	}
	key, err := model.ParseSizeKey(size)
	if err != nil {
		return nil, &MalformedCartItemError{Item: size}
	}

	var cart model.CartState
	err = s.locks.With(owner.Key(), func() error {
		cart, err = s.cargar(ctx, owner)
		if err != nil {
			return err
		}
		idx := cart.Find(size)
		if idx < 0 {
			return ErrItemNoEnCarrito
		}
		delta := cantidad - cart.Items[idx].Cantidad
		if delta == 0 {
			return nil
		}
		if delta > 0 {
			disponible, err := s.stock.Disponible(ctx, key)
			if err != nil {
				return err
			}
			if delta > disponible {
				return &InsufficientStockError{Restantes: disponible}
			}
		}
		// positive delta reserves more, negative releases the difference
		if err := s.stock.Ajustar(ctx, key, -delta, owner.Key()); err != nil {
			return err
		}
		cart.Items[idx].Cantidad = cantidad
		return s.guardarOCompensar(ctx, owner, cart, key, -delta)
	})
	if err != nil {
		return nil, err
	}
	return respuesta(cart), nil
}

func (s *carritoService) EliminarItem(ctx context.Context, owner model.CartOwner, size string) (*dto.CarritoResponse, error) {
	key, err := model.ParseSizeKey(size)
	if err != nil {
		return nil, &MalformedCartItemError{Item: size}
	}

	var cart model.CartState
	err = s.locks.With(owner.Key(), func() error {
		cart, err = s.cargar(ctx, owner)
		if err != nil {
			return err
		}
		idx := cart.Find(size)
		if idx < 0 {
			return ErrItemNoEnCarrito
		}
		q := cart.Items[idx].Cantidad
		if err := s.stock.Liberar(ctx, key, q, owner.Key()); err != nil {
			return err
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return s.guardarOCompensar(ctx, owner, cart, key, q)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("owner", owner.Key()).Str("size_key", size).Msg("carrito: item eliminado")
	return respuesta(cart), nil
}

// guardarOCompensar saves cart; if the write fails the stock change already
// applied (applied = the delta on disponible) is reverted so nothing of the
// failed edit survives.
func (s *carritoService) guardarOCompensar(ctx context.Context, owner model.CartOwner, cart model.CartState, key model.SizeKey, applied int) error {
	err := s.guardar(ctx, owner, cart)
	if err == nil {
		return nil
	}
	if cerr := s.stock.Ajustar(ctx, key, -applied, owner.Key()); cerr != nil {
		log.Error().Err(cerr).Str("owner", owner.Key()).Str("size_key", key.String()).
			Msg("carrito: no se pudo revertir el stock tras fallo al guardar")
	}
	return err
}

func (s *carritoService) Vaciar(ctx context.Context, owner model.CartOwner) error {
	return s.locks.With(owner.Key(), func() error {
		cart, err := s.cargar(ctx, owner)
		if err != nil {
			return err
		}
		// the empty cart is stored before any unit goes back, so a failed
		// write leaves both the cart and its reservations as they were
		if err := s.borrar(ctx, owner); err != nil {
			return fmt.Errorf("carrito: vaciar: %w", err)
		}
		return s.liberarTodo(ctx, owner, cart.Items)
	})
}

// liberarTodo releases every line concurrently. One failed release never
// stops the others; all failures are returned joined.
func (s *carritoService) liberarTodo(ctx context.Context, owner model.CartOwner, items []model.CartItem) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, it := range items {
		it := it
		g.Go(func() error {
			key, err := model.ParseSizeKey(it.Size)
			if err == nil {
				err = s.stock.Liberar(ctx, key, it.Cantidad, owner.Key())
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("liberar %s: %w", it.Size, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// borrar deletes the owner's cart from wherever it is stored. A bound cart
// is emptied through the debouncer so a save already running with the old
// items cannot overwrite it. If the write fails the session is put back.
func (s *carritoService) borrar(ctx context.Context, owner model.CartOwner) error {
	if owner.IsGuest() {
		return s.invitados.Delete(ctx, owner.GuestID)
	}
	uid := owner.UsuarioID
	s.mu.Lock()
	prev, had := s.sesiones[uid]
	s.sesiones[uid] = model.CartState{}
	s.mu.Unlock()

	if err := s.saver.Save(ctx, uid.String()); err != nil {
		s.mu.Lock()
		if had {
			s.sesiones[uid] = prev
		} else {
			delete(s.sesiones, uid)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *carritoService) VaciarPorInactividad(ctx context.Context, owner model.CartOwner) error {
	return s.locks.With(owner.Key(), func() error {
		var cart model.CartState
		if owner.IsGuest() {
			var err error
			if cart, err = s.invitados.Get(ctx, owner.GuestID); err != nil {
				return fmt.Errorf("carrito: leer carrito invitado: %w", err)
			}
		} else {
			// the persisted cart is the one to restore, so make it current first
			if err := s.saver.Flush(ctx, owner.UsuarioID.String()); err != nil {
				log.Warn().Err(err).Str("owner", owner.Key()).Msg("carrito: flush antes de limpieza falló")
			}
			var err error
			cart, err = s.usuarios.GetCart(ctx, owner.UsuarioID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("carrito: leer carrito remoto: %w", err)
			}
		}

		if err := s.borrar(ctx, owner); err != nil {
			// nothing released: the stored cart still owns its units
			return fmt.Errorf("carrito: borrar por inactividad: %w", err)
		}
		for _, it := range cart.Items {
			key, err := model.ParseSizeKey(it.Size)
			if err == nil {
				err = s.stock.Liberar(ctx, key, it.Cantidad, owner.Key())
			}
			if err != nil {
				log.Error().Err(err).Str("owner", owner.Key()).Str("size_key", it.Size).
					Msg("carrito: no se pudo restaurar stock por inactividad")
			}
		}
		return nil
	})
}

func (s *carritoService) SetPromo(ctx context.Context, owner model.CartOwner, promo *model.PromoAplicada) (*dto.CarritoResponse, error) {
	var cart model.CartState
	err := s.locks.With(owner.Key(), func() error {
		var err error
		if cart, err = s.cargar(ctx, owner); err != nil {
			return err
		}
		cart.Promo = promo
		return s.guardar(ctx, owner, cart)
	})
	if err != nil {
		return nil, err
	}
	return respuesta(cart), nil
}

func (s *carritoService) ConsumirCarrito(ctx context.Context, usuarioID uuid.UUID, fn func(model.CartState) error) error {
	owner := model.OwnerUsuario(usuarioID)
	return s.locks.With(owner.Key(), func() error {
		cart, err := s.cargar(ctx, owner)
		if err != nil {
			return err
		}
		if err := fn(cart); err != nil {
			return err
		}
		// stock was consumed by the order; only the cart goes away
		if err := s.borrar(ctx, owner); err != nil {
			// the order owns those units now; keep retrying the empty cart
			log.Error().Err(err).Str("owner", owner.Key()).Msg("carrito: no se pudo guardar el carrito vacío tras el pedido")
			s.InstalarSesion(usuarioID, model.CartState{})
		}
		return nil
	})
}

// ── Session lifecycle ─────────────────────────────────────────────────────────

func (s *carritoService) Bloquear(owner model.CartOwner) func() {
	return s.locks.Lock(owner.Key())
}

func (s *carritoService) InstalarSesion(usuarioID uuid.UUID, cart model.CartState) {
	s.mu.Lock()
	s.sesiones[usuarioID] = cart.Clone()
	s.mu.Unlock()
	s.saver.Schedule(usuarioID.String())
}

func (s *carritoService) Flush(ctx context.Context, usuarioID uuid.UUID) error {
	return s.saver.Flush(ctx, usuarioID.String())
}

func (s *carritoService) CerrarSesion(ctx context.Context, usuarioID uuid.UUID) error {
	unlock := s.Bloquear(model.OwnerUsuario(usuarioID))
	defer unlock()
	if err := s.saver.Flush(ctx, usuarioID.String()); err != nil {
		return fmt.Errorf("carrito: flush al cerrar sesión: %w", err)
	}
	s.mu.Lock()
	delete(s.sesiones, usuarioID)
	s.mu.Unlock()
	return nil
}

func (s *carritoService) Close(ctx context.Context) error {
	return s.saver.Close(ctx)
}

func respuesta(cart model.CartState) *dto.CarritoResponse {
	r := dto.NewCarritoResponse(cart)
	return &r
}

func primera(imgs []string) string {
	if len(imgs) == 0 {
		return ""
	}
	return imgs[0]
}
