package service

import (
	"context"
	"fmt"
	"time"

	"tienda/internal/model"
	"tienda/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Reconciliador hands a guest cart over to an identity at sign-in.
type Reconciliador struct {
	carrito   CarritoService
	usuarios  repository.StoreUserRepository
	invitados repository.GuestCartRepository
	now       func() time.Time
}

func NewReconciliador(carrito CarritoService, usuarios repository.StoreUserRepository, invitados repository.GuestCartRepository) *Reconciliador {
	return &Reconciliador{carrito: carrito, usuarios: usuarios, invitados: invitados, now: time.Now}
}

// Fusionar merges two carts by size key. Lines are seeded from remote in
// order; guest quantities are added onto matching lines and the remaining
// guest lines are appended as-is. Stock for every line is already reserved.
func Fusionar(guest, remote []model.CartItem) []model.CartItem {
	out := make([]model.CartItem, 0, len(remote)+len(guest))
	idx := make(map[string]int, len(remote)+len(guest))
	for _, it := range remote {
		if i, ok := idx[it.Size]; ok {
			out[i].Cantidad += it.Cantidad
			continue
		}
		idx[it.Size] = len(out)
		out = append(out, it)
	}
	for _, it := range guest {
		if i, ok := idx[it.Size]; ok {
			out[i].Cantidad += it.Cantidad
			continue
		}
		idx[it.Size] = len(out)
		out = append(out, it)
	}
	return out
}

// AlIniciarSesion merges the guest cart (if any) into the identity's remote
// cart and installs the result as the active bound cart.
//
// The guest key is deleted before the merge is written: if anything after
// that fails the guest lines may be lost, but they are never applied twice.
func (r *Reconciliador) AlIniciarSesion(ctx context.Context, usuarioID uuid.UUID, guestID *uuid.UUID) (model.CartState, error) {
	unlock := r.carrito.Bloquear(model.OwnerUsuario(usuarioID))
	defer unlock()

	// a session left over on this process must be on disk before we read it
	if err := r.carrito.Flush(ctx, usuarioID); err != nil {
		log.Warn().Err(err).Str("usuario_id", usuarioID.String()).Msg("reconciliador: flush previo falló")
	}

	var guest model.CartState
	if guestID != nil {
		unlockGuest := r.carrito.Bloquear(model.OwnerGuest(*guestID))
		defer unlockGuest()

		var err error
		guest, err = r.invitados.Get(ctx, *guestID)
		if err != nil {
			return model.CartState{}, fmt.Errorf("reconciliador: leer carrito invitado: %w", err)
		}
		if err := r.invitados.Delete(ctx, *guestID); err != nil {
			return model.CartState{}, fmt.Errorf("reconciliador: borrar carrito invitado: %w", err)
		}
	}

	remote, err := r.usuarios.GetCart(ctx, usuarioID)
	if err != nil {
		return model.CartState{}, fmt.Errorf("reconciliador: leer carrito remoto: %w", err)
	}

	if len(guest.Items) == 0 && guest.Promo == nil {
		r.carrito.InstalarSesion(usuarioID, remote)
		return remote, nil
	}

	merged := model.CartState{Items: Fusionar(guest.Items, remote.Items), Promo: remote.Promo}
	if merged.Promo == nil {
		merged.Promo = guest.Promo
	}
	if err := r.usuarios.SaveMergedCart(ctx, usuarioID, merged, r.now()); err != nil {
		// the session's debounced save retries the write
		log.Error().Err(err).Str("usuario_id", usuarioID.String()).Msg("reconciliador: no se pudo guardar el carrito fusionado")
	}
	r.carrito.InstalarSesion(usuarioID, merged)

	log.Info().
		Str("usuario_id", usuarioID.String()).
		Int("items_invitado", len(guest.Items)).
		Int("items_fusionados", len(merged.Items)).
		Msg("reconciliador: carrito fusionado")
	return merged, nil
}
