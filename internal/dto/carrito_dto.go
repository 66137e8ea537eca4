package dto

import (
	"tienda/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AgregarItemRequest struct {
	ProductoID string `json:"productId"  validate:"required"`
	Talla      string `json:"size"       validate:"required,max=20"`
	VarianteID string `json:"variantId"  validate:"omitempty"`
	Cantidad   int    `json:"quantity"   validate:"required,min=1,max=99"`
}

type ActualizarCantidadRequest struct {
	// Size is the full size key of the line, as returned in CartItem.size.
	Size     string `json:"size"     validate:"required"`
	Cantidad int    `json:"quantity" validate:"min=0,max=99"`
}

type EliminarItemRequest struct {
	Size string `json:"size" validate:"required"`
}

type AplicarPromoRequest struct {
	Code string `json:"code" validate:"required,max=40"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CarritoResponse struct {
	Items      []model.CartItem     `json:"items"`
	Promo      *model.PromoAplicada `json:"promo"`
	TotalItems int                  `json:"totalItems"`
	Subtotal   decimal.Decimal      `json:"subtotal"`
	Descuento  decimal.Decimal      `json:"discount"`
	Total      decimal.Decimal      `json:"total"`
}

// NewCarritoResponse computes the derived views of a cart.
func NewCarritoResponse(c model.CartState) CarritoResponse {
	items := c.Items
	if items == nil {
		items = []model.CartItem{}
	}
	return CarritoResponse{
		Items:      items,
		Promo:      c.Promo,
		TotalItems: c.TotalItems(),
		Subtotal:   c.Subtotal(),
		Descuento:  c.Descuento(),
		Total:      c.Total(),
	}
}

type AplicarPromoResponse struct {
	Promo   model.PromoAplicada `json:"promo"`
	Mensaje string              `json:"message"`
	Carrito CarritoResponse     `json:"carrito"`
}
