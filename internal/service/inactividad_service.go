package service

import (
	"context"
	"fmt"
	"time"

	"tienda/internal/model"
	"tienda/internal/repository"

	"github.com/rs/zerolog/log"
)

// InactividadService tracks the last qualifying interaction per cart owner
// and reaps owners idle past the timeout: their reserved stock goes back,
// their cart is cleared and identities are signed out.
type InactividadService interface {
	RegistrarActividad(ctx context.Context, owner model.CartOwner) error
	UltimaActividad(ctx context.Context, owner model.CartOwner) (time.Time, bool, error)
	// ProcesarInactivos reaps every owner idle longer than the timeout and
	// returns how many were reaped.
	ProcesarInactivos(ctx context.Context) (int, error)
}

type inactividadService struct {
	actividad repository.ActividadRepository
	carrito   CarritoService
	auth      AuthService
	timeout   time.Duration
	now       func() time.Time
}

func NewInactividadService(actividad repository.ActividadRepository, carrito CarritoService, auth AuthService, timeout time.Duration) InactividadService {
	return &inactividadService{actividad: actividad, carrito: carrito, auth: auth, timeout: timeout, now: time.Now}
}

func (s *inactividadService) RegistrarActividad(ctx context.Context, owner model.CartOwner) error {
	return s.actividad.Touch(ctx, owner.Key(), s.now())
}

func (s *inactividadService) UltimaActividad(ctx context.Context, owner model.CartOwner) (time.Time, bool, error) {
	return s.actividad.Get(ctx, owner.Key())
}

func (s *inactividadService) ProcesarInactivos(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.timeout)
	keys, err := s.actividad.Inactivos(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("inactividad: listar inactivos: %w", err)
	}

	reaped := 0
	for _, key := range keys {
		if ctx.Err() != nil {
			return reaped, ctx.Err()
		}
		owner, ok := model.ParseOwnerKey(key)
		if !ok {
			log.Warn().Str("owner", key).Msg("inactividad: clave de actividad inválida, descartada")
			_ = s.actividad.Remove(ctx, key)
			continue
		}
		// activity may have been recorded since the listing
		last, ok, err := s.actividad.Get(ctx, key)
		if err != nil || !ok || last.After(cutoff) {
			continue
		}
		s.reap(ctx, owner)
		reaped++
	}
	return reaped, nil
}

// reap never stops halfway: cleanup failures are logged and sign-out still happens.
func (s *inactividadService) reap(ctx context.Context, owner model.CartOwner) {
	if err := s.carrito.VaciarPorInactividad(ctx, owner); err != nil {
		log.Error().Err(err).Str("owner", owner.Key()).Msg("inactividad: limpieza de carrito incompleta")
	}

	if owner.IsGuest() {
		if err := s.actividad.Remove(ctx, owner.Key()); err != nil {
			log.Warn().Err(err).Str("owner", owner.Key()).Msg("inactividad: no se pudo quitar la actividad")
		}
	} else if err := s.auth.Logout(ctx, owner.UsuarioID); err != nil {
		log.Error().Err(err).Str("owner", owner.Key()).Msg("inactividad: cierre de sesión falló")
	}
	log.Info().Str("owner", owner.Key()).Msg("inactividad: sesión expirada por inactividad")
}
