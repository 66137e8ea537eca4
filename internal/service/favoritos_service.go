package service

import (
	"context"
	"errors"
	"time"

	"tienda/internal/dto"
	"tienda/internal/model"
	"tienda/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FavoritosService interface {
	// Alternar adds the product (and size) to the favorites, or removes it if
	// it was already there. Returns true when it was added.
	Alternar(ctx context.Context, usuarioID uuid.UUID, productoID, talla string) (bool, []dto.Favorito, error)
	Listar(ctx context.Context, usuarioID uuid.UUID) ([]dto.Favorito, error)
}

type favoritosService struct {
	usuarios  repository.StoreUserRepository
	productos repository.ProductoRepository
	locks     *ownerLocks
	now       func() time.Time
}

func NewFavoritosService(usuarios repository.StoreUserRepository, productos repository.ProductoRepository) FavoritosService {
	return &favoritosService{usuarios: usuarios, productos: productos, locks: newOwnerLocks(), now: time.Now}
}

func (s *favoritosService) Alternar(ctx context.Context, usuarioID uuid.UUID, productoID, talla string) (bool, []dto.Favorito, error) {
	if _, err := s.productos.FindByID(ctx, productoID); errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, ErrNotFound
	} else if err != nil {
		return false, nil, err
	}

	var (
		agregado bool
		favs     []model.Favorito
	)
	err := s.locks.With(usuarioID.String(), func() error {
		user, err := s.usuarios.FindByID(ctx, usuarioID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		favs = make([]model.Favorito, 0, len(user.Favoritos)+1)
		for _, f := range user.Favoritos {
			if f.ProductoID == productoID && f.Talla == talla {
				continue
			}
			favs = append(favs, f)
		}
		agregado = len(favs) == len(user.Favoritos)
		if agregado {
			favs = append(favs, model.Favorito{ProductoID: productoID, Talla: talla, AddedAt: s.now()})
		}
		return s.usuarios.UpdateFavoritos(ctx, usuarioID, favs)
	})
	if err != nil {
		return false, nil, err
	}
	return agregado, favoritosToDTO(favs), nil
}

func (s *favoritosService) Listar(ctx context.Context, usuarioID uuid.UUID) ([]dto.Favorito, error) {
	user, err := s.usuarios.FindByID(ctx, usuarioID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return favoritosToDTO(user.Favoritos), nil
}

func favoritosToDTO(favs []model.Favorito) []dto.Favorito {
	out := make([]dto.Favorito, len(favs))
	for i, f := range favs {
		out[i] = dto.Favorito{ProductoID: f.ProductoID, Talla: f.Talla, AddedAt: f.AddedAt}
	}
	return out
}
