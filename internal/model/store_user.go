package model

import (
	"time"

	"github.com/google/uuid"
)

// StoreUser is a storefront customer. The bound cart is persisted on the
// user record itself, as a JSON document.
// Rol: "customer" | "admin"
type StoreUser struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email         string    `gorm:"uniqueIndex;not null"`
	PasswordHash  string    `gorm:"not null"`
	Nombre        string    `gorm:"not null"`
	Apellido      string
	Telefono      string
	EstacionMetro string
	Rol           string     `gorm:"type:varchar(20);not null;default:'customer'"`
	Cart          CartState  `gorm:"serializer:json"`
	Favoritos     []Favorito `gorm:"serializer:json"`
	MergedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Favorito is a saved product, optionally pinned to a size.
type Favorito struct {
	ProductoID string    `json:"productId"`
	Talla      string    `json:"size,omitempty"`
	AddedAt    time.Time `json:"addedAt"`
}
