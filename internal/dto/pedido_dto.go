package dto

import (
	"time"

	"tienda/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type EnvioInfo struct {
	Nombre        string `json:"nombre"         validate:"required,min=2,max=120"`
	Email         string `json:"email"          validate:"required,email"`
	Telefono      string `json:"telefono"       validate:"required,min=8,max=20"`
	Metodo        string `json:"metodo"         validate:"required,oneof=domicilio metro"`
	EstacionMetro string `json:"estacion_metro" validate:"required_if=Metodo metro"`
	CodigoPostal  string `json:"codigo_postal"  validate:"required_if=Metodo domicilio,omitempty,numeric,len=5"`
}

type RealizarPedidoRequest struct {
	Envio      EnvioInfo `json:"envio"       validate:"required"`
	MetodoPago string    `json:"metodo_pago" validate:"required,oneof=transfer farmacias oxxo"`
}

type CotizarEnvioRequest struct {
	Metodo       string `form:"metodo" validate:"required,oneof=domicilio metro"`
	CodigoPostal string `form:"zip"    validate:"required_if=Metodo domicilio,omitempty,numeric,len=5"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CotizacionEnvioResponse struct {
	Metodo      string          `json:"metodo"`
	DistanciaKm *float64        `json:"distancia_km,omitempty"`
	Costo       decimal.Decimal `json:"costo"`
	// Estimado is true when the distance lookup failed and the base cost was used.
	Estimado bool `json:"estimado"`
}

type OrdenResponse struct {
	ID            string               `json:"id"`
	Numero        int                  `json:"numero"`
	Items         []model.CartItem     `json:"items"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	Descuento     decimal.Decimal      `json:"descuento"`
	CostoEnvio    decimal.Decimal      `json:"costo_envio"`
	Total         decimal.Decimal      `json:"total"`
	Promo         *model.PromoAplicada `json:"promo"`
	MetodoEnvio   string               `json:"metodo_envio"`
	EstacionMetro string               `json:"estacion_metro,omitempty"`
	MetodoPago    string               `json:"metodo_pago"`
	Estado        string               `json:"estado"`
	Confirmado    bool                 `json:"confirmado"`
	CreatedAt     time.Time            `json:"created_at"`
}

func NewOrdenResponse(o *model.Orden) *OrdenResponse {
	return &OrdenResponse{
		ID:            o.ID,
		Numero:        o.Numero,
		Items:         o.Items,
		Subtotal:      o.Subtotal,
		Descuento:     o.Descuento,
		CostoEnvio:    o.CostoEnvio,
		Total:         o.Total,
		Promo:         o.Promo,
		MetodoEnvio:   o.MetodoEnvio,
		EstacionMetro: o.EstacionMetro,
		MetodoPago:    o.MetodoPago,
		Estado:        o.Estado,
		Confirmado:    o.Confirmado,
		CreatedAt:     o.CreatedAt,
	}
}
