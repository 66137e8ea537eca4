package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tienda/internal/dto"
	"tienda/internal/model"
	"tienda/internal/repository"

	"gorm.io/gorm"
)

// PromoService resolves promo codes and attaches them to carts. Usage is only
// counted when an order is placed.
type PromoService interface {
	Aplicar(ctx context.Context, owner model.CartOwner, code string) (*dto.AplicarPromoResponse, error)
	Quitar(ctx context.Context, owner model.CartOwner) (*dto.CarritoResponse, error)
	// Resolver looks a code up without touching any cart.
	Resolver(ctx context.Context, code string) (*model.PromoCode, error)
}

type promoService struct {
	repo    repository.PromoRepository
	carrito CarritoService
}

func NewPromoService(repo repository.PromoRepository, carrito CarritoService) PromoService {
	return &promoService{repo: repo, carrito: carrito}
}

// NormalizarCodigo trims and upper-cases a promo code.
func NormalizarCodigo(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *promoService) Resolver(ctx context.Context, code string) (*model.PromoCode, error) {
	code = NormalizarCodigo(code)
	if code == "" {
		return nil, ErrPromoInvalida
	}
	p, err := s.repo.FindActiveByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromoInvalida
	}
	if err != nil {
		return nil, fmt.Errorf("promo: buscar %s: %w", code, err)
	}
	if !p.Aplicable() {
		return nil, ErrPromoAgotada
	}
	return p, nil
}

func (s *promoService) Aplicar(ctx context.Context, owner model.CartOwner, code string) (*dto.AplicarPromoResponse, error) {
	p, err := s.Resolver(ctx, code)
	if err != nil {
		return nil, err
	}
	snap := model.PromoAplicada{ID: p.ID, Code: p.Code, DiscountPercentage: p.DiscountPercentage}
	cart, err := s.carrito.SetPromo(ctx, owner, &snap)
	if err != nil {
		return nil, err
	}
	return &dto.AplicarPromoResponse{
		Promo:   snap,
		Mensaje: fmt.Sprintf("Código %s aplicado: %s%% de descuento", p.Code, p.DiscountPercentage.String()),
		Carrito: *cart,
	}, nil
}

func (s *promoService) Quitar(ctx context.Context, owner model.CartOwner) (*dto.CarritoResponse, error) {
	return s.carrito.SetPromo(ctx, owner, nil)
}
