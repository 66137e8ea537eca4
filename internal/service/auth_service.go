package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tienda/internal/config"
	"tienda/internal/dto"
	"tienda/internal/model"
	"tienda/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService interface {
	Registrar(ctx context.Context, req dto.RegistroRequest) (*dto.StoreUserResponse, error)
	// Login verifies credentials, merges the guest cart (if guestID is set)
	// and starts activity tracking for the identity.
	Login(ctx context.Context, req dto.LoginRequest, guestID *uuid.UUID) (*dto.LoginResponse, error)
	// Logout flushes and drops the bound cart, revokes every token issued so
	// far and stops activity tracking.
	Logout(ctx context.Context, usuarioID uuid.UUID) error
	Perfil(ctx context.Context, usuarioID uuid.UUID) (*dto.StoreUserResponse, error)
}

type authService struct {
	usuarios      repository.StoreUserRepository
	revocaciones  repository.RevocacionRepository
	actividad     repository.ActividadRepository
	carrito       CarritoService
	reconciliador *Reconciliador
	cfg           *config.Config
	now           func() time.Time
}

func NewAuthService(
	usuarios repository.StoreUserRepository,
	revocaciones repository.RevocacionRepository,
	actividad repository.ActividadRepository,
	carrito CarritoService,
	reconciliador *Reconciliador,
	cfg *config.Config,
) AuthService {
	return &authService{
		usuarios:      usuarios,
		revocaciones:  revocaciones,
		actividad:     actividad,
		carrito:       carrito,
		reconciliador: reconciliador,
		cfg:           cfg,
		now:           time.Now,
	}
}

func (s *authService) Registrar(ctx context.Context, req dto.RegistroRequest) (*dto.StoreUserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.usuarios.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailEnUso
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, err
	}
	user := &model.StoreUser{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  string(hash),
		Nombre:        req.Nombre,
		Apellido:      req.Apellido,
		Telefono:      req.Telefono,
		EstacionMetro: req.EstacionMetro,
		Rol:           "customer",
		Cart:          model.CartState{Items: []model.CartItem{}},
	}
	if err := s.usuarios.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Info().Str("usuario_id", user.ID.String()).Msg("auth: usuario registrado")
	return userToResponse(user), nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest, guestID *uuid.UUID) (*dto.LoginResponse, error) {
	user, err := s.usuarios.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, ErrCredenciales
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrCredenciales
	}

	cart, err := s.reconciliador.AlIniciarSesion(ctx, user.ID, guestID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	owner := model.OwnerUsuario(user.ID)
	if err := s.actividad.Touch(ctx, owner.Key(), now); err != nil {
		log.Warn().Err(err).Str("owner", owner.Key()).Msg("auth: no se pudo registrar actividad")
	}
	if guestID != nil {
		_ = s.actividad.Remove(ctx, model.OwnerGuest(*guestID).Key())
	}

	token, err := s.generateToken(user, now, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   s.cfg.JWTExpirationHours * 3600,
		User:        *userToResponse(user),
		Carrito:     dto.NewCarritoResponse(cart),
	}, nil
}

func (s *authService) Logout(ctx context.Context, usuarioID uuid.UUID) error {
	if err := s.carrito.CerrarSesion(ctx, usuarioID); err != nil {
		// the cart is still in memory; signing out must not hinge on it
		log.Error().Err(err).Str("usuario_id", usuarioID.String()).Msg("auth: cierre de carrito falló")
	}
	ttl := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	if err := s.revocaciones.Revocar(ctx, usuarioID, s.now(), ttl); err != nil {
		return fmt.Errorf("auth: revocar tokens: %w", err)
	}
	if err := s.actividad.Remove(ctx, model.OwnerUsuario(usuarioID).Key()); err != nil {
		log.Warn().Err(err).Str("usuario_id", usuarioID.String()).Msg("auth: no se pudo quitar la actividad")
	}
	log.Info().Str("usuario_id", usuarioID.String()).Msg("auth: sesión cerrada")
	return nil
}

func (s *authService) Perfil(ctx context.Context, usuarioID uuid.UUID) (*dto.StoreUserResponse, error) {
	user, err := s.usuarios.FindByID(ctx, usuarioID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return userToResponse(user), nil
}

func (s *authService) generateToken(user *model.StoreUser, now time.Time, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"jti":     uuid.NewString(),
		"user_id": user.ID.String(),
		"email":   user.Email,
		"rol":     user.Rol,
		"exp":     now.Add(duration).Unix(),
		"iat":     now.Unix(),
		// millisecond issue time, compared against the revocation mark
		"iat_ms": now.UnixMilli(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func userToResponse(u *model.StoreUser) *dto.StoreUserResponse {
	return &dto.StoreUserResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		Nombre:        u.Nombre,
		Apellido:      u.Apellido,
		Telefono:      u.Telefono,
		EstacionMetro: u.EstacionMetro,
		Rol:           u.Rol,
	}
}
