package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EstadoPendiente = "Pendiente"

// Orden is the immutable record of a placed order. Only back-office
// processes change Estado/Confirmado afterwards.
type Orden struct {
	// ID is <usuarioID>__orden<N>
	ID            string          `gorm:"primaryKey"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Numero        int             `gorm:"not null"`
	ClienteNombre string          `gorm:"not null"`
	ClienteEmail  string          `gorm:"not null"`
	ClienteTel    string          `gorm:"not null"`
	// MetodoEnvio: "domicilio" | "metro"
	MetodoEnvio   string          `gorm:"type:varchar(20);not null"`
	EstacionMetro string
	// MetodoPago: "transfer" | "farmacias" | "oxxo"
	MetodoPago    string          `gorm:"type:varchar(20);not null"`
	Items         []CartItem      `gorm:"serializer:json;not null"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descuento     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CostoEnvio    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Promo         *PromoAplicada  `gorm:"serializer:json"`
	Estado        string          `gorm:"type:varchar(20);not null;default:'Pendiente'"`
	Confirmado    bool            `gorm:"not null;default:false"`
	CreatedAt     time.Time
}

func (Orden) TableName() string { return "ordenes" }

// OrdenID builds the per-identity sequential order id.
func OrdenID(usuarioID uuid.UUID, numero int) string {
	return fmt.Sprintf("%s%sorden%d", usuarioID, SizeKeySep, numero)
}

// OrderCounter holds the last order number issued to an identity.
type OrderCounter struct {
	UsuarioID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Count     int       `gorm:"not null;default:0"`
}
