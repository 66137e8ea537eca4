package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type MovimientoFilter struct {
	ProductoID string `form:"producto_id"`
	Tipo       string `form:"tipo"       validate:"omitempty,oneof=reserva liberacion pedido"`
	Referencia string `form:"referencia"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=100" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VarianteResponse struct {
	ID         string   `json:"id"`
	Color      string   `json:"color"`
	Imagenes   []string `json:"imagenes"`
	Disponible []string `json:"tallas_disponibles"`
}

type ProductoResponse struct {
	ID        string          `json:"id"`
	Nombre    string          `json:"nombre"`
	Precio    decimal.Decimal `json:"precio"`
	Imagenes  []string        `json:"imagenes"`
	Categoria string          `json:"categoria"`
	Destacado bool            `json:"destacado"`
	EnStock   bool            `json:"en_stock"`
	// TallasDisponibles lists flat sizes with stock, in display order.
	TallasDisponibles []string           `json:"tallas_disponibles"`
	Variantes         []VarianteResponse `json:"variantes,omitempty"`
}

type StockResponse struct {
	ProductoID string `json:"productId"`
	Size       string `json:"size"`
	Disponible int    `json:"disponible"`
}

type DestacadoRequest struct {
	Destacado *bool `json:"destacado" validate:"required"`
}

type MovimientoResponse struct {
	ID         string    `json:"id"`
	ProductoID string    `json:"producto_id"`
	SizeKey    string    `json:"size_key"`
	Tipo       string    `json:"tipo"`
	Cantidad   int       `json:"cantidad"`
	Referencia string    `json:"referencia"`
	CreatedAt  time.Time `json:"created_at"`
}

type MovimientoListResponse struct {
	Data  []MovimientoResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

type FavoritoToggleRequest struct {
	ProductoID string `json:"productId" validate:"required"`
	Talla      string `json:"size"      validate:"omitempty,max=20"`
}

type FavoritoToggleResponse struct {
	Agregado  bool       `json:"added"`
	Favoritos []Favorito `json:"favorites"`
}

type Favorito struct {
	ProductoID string    `json:"productId"`
	Talla      string    `json:"size,omitempty"`
	AddedAt    time.Time `json:"addedAt"`
}
