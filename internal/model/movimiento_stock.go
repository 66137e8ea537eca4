package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MovReserva    = "reserva"
	MovLiberacion = "liberacion"
	MovPedido     = "pedido"
)

// MovimientoStock registra cada cambio de stock en un slot de inventario.
// Se crea al reservar, al liberar y al confirmar un pedido.
type MovimientoStock struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID string    `gorm:"not null;index"`
	SizeKey    string    `gorm:"not null"`
	Tipo       string    `gorm:"type:varchar(20);not null"` // "reserva" | "liberacion" | "pedido"
	Cantidad   int       `gorm:"not null"`                  // reserva/liberacion: delta de disponible; pedido: unidades que dejan reservado
	Referencia string    // owner key o id de la orden
	CreatedAt  time.Time
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }
