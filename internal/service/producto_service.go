package service

import (
	"context"
	"errors"
	"sort"

	"tienda/internal/dto"
	"tienda/internal/model"
	"tienda/internal/repository"

	"gorm.io/gorm"
)

type ProductoService interface {
	// Obtener returns the product with the sizes that currently have stock.
	Obtener(ctx context.Context, id string) (*dto.ProductoResponse, error)
	Stock(ctx context.Context, productoID, varianteID, talla string) (*dto.StockResponse, error)
	SetDestacado(ctx context.Context, id string, destacado bool) error
	ListarMovimientos(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error)
}

type productoService struct {
	repo        repository.ProductoRepository
	movimientos repository.MovimientoStockRepository
	stock       StockService
}

func NewProductoService(repo repository.ProductoRepository, movimientos repository.MovimientoStockRepository, stock StockService) ProductoService {
	return &productoService{repo: repo, movimientos: movimientos, stock: stock}
}

// ordenTallas is the display order of known sizes; unknown sizes go after,
// alphabetically.
var ordenTallas = map[string]int{
	"unitalla": 0, "L": 1, "XL": 2, "1XL": 3, "2XL": 4, "3XL": 5, "4XL": 6, "5XL": 7,
}

// TallasDisponibles returns the sizes with stock > 0 in display order.
func TallasDisponibles(inv map[string]int) []string {
	out := make([]string, 0, len(inv))
	for talla, q := range inv {
		if q > 0 {
			out = append(out, talla)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := ordenTallas[out[i]]
		oj, jok := ordenTallas[out[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}

func (s *productoService) Obtener(ctx context.Context, id string) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	flat := make(map[string]int)
	for raw, q := range p.Inventory() {
		if k, err := model.ParseSizeKey(raw); err == nil {
			flat[k.Talla] = q
		}
	}
	resp := &dto.ProductoResponse{
		ID:                p.ID,
		Nombre:            p.Nombre,
		Precio:            p.Precio,
		Imagenes:          p.Imagenes,
		Categoria:         p.Categoria,
		Destacado:         p.Destacado,
		EnStock:           p.EnStock(),
		TallasDisponibles: TallasDisponibles(flat),
	}
	for _, v := range p.Variantes {
		resp.Variantes = append(resp.Variantes, dto.VarianteResponse{
			ID:         v.ID,
			Color:      v.Color,
			Imagenes:   v.Imagenes,
			Disponible: TallasDisponibles(p.VariantInventory(v.ID)),
		})
	}
	return resp, nil
}

func (s *productoService) Stock(ctx context.Context, productoID, varianteID, talla string) (*dto.StockResponse, error) {
	key := model.NewFlatKey(productoID, talla)
	if varianteID != "" {
		key = model.NewVariantKey(productoID, varianteID, talla)
	}
	n, err := s.stock.Disponible(ctx, key)
	if err != nil {
		return nil, err
	}
	return &dto.StockResponse{ProductoID: productoID, Size: key.String(), Disponible: n}, nil
}

func (s *productoService) SetDestacado(ctx context.Context, id string, destacado bool) error {
	err := s.repo.SetDestacado(ctx, id, destacado)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *productoService) ListarMovimientos(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error) {
	movs, total, err := s.movimientos.List(ctx, repository.MovimientoStockFilter{
		ProductoID: filter.ProductoID,
		Tipo:       filter.Tipo,
		Referencia: filter.Referencia,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoResponse, len(movs))
	for i, m := range movs {
		data[i] = dto.MovimientoResponse{
			ID:         m.ID.String(),
			ProductoID: m.ProductoID,
			SizeKey:    m.SizeKey,
			Tipo:       m.Tipo,
			Cantidad:   m.Cantidad,
			Referencia: m.Referencia,
			CreatedAt:  m.CreatedAt,
		}
	}
	return &dto.MovimientoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
