package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Producto is a catalog entry. Its stock lives in StockSlot rows, one per
// size key; flat and variant slots share the same table.
type Producto struct {
	ID        string          `gorm:"primaryKey"`
	Nombre    string          `gorm:"index;not null"`
	Precio    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Imagenes  []string        `gorm:"serializer:json"`
	Categoria string          `gorm:"index"`
	Destacado bool            `gorm:"not null;default:false"`
	Activo    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Variantes []Variante  `gorm:"foreignKey:ProductoID"`
	Slots     []StockSlot `gorm:"foreignKey:ProductoID"`
}

// Variante is a color-keyed sub-inventory of a product.
type Variante struct {
	ID         string   `gorm:"primaryKey"`
	ProductoID string   `gorm:"primaryKey"`
	Color      string   `gorm:"not null"`
	Imagenes   []string `gorm:"serializer:json"`
	Orden      int      `gorm:"not null;default:0"`
}

// TableName overrides GORM's default pluralization (variantes is already plural).
func (Variante) TableName() string { return "variantes" }

// StockSlot is the unit of inventory. Disponible is what other carts may still
// reserve, Reservado what carts currently hold. Both are kept >= 0 by CHECK
// constraints and by the conditional updates in the repository.
type StockSlot struct {
	ProductoID string `gorm:"primaryKey"`
	SizeKey    string `gorm:"primaryKey"`
	Disponible int    `gorm:"not null;default:0"`
	Reservado  int    `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

func (StockSlot) TableName() string { return "inventario" }

// Inventory rebuilds the flat size→quantity map, keyed by full size key.
func (p *Producto) Inventory() map[string]int {
	inv := make(map[string]int)
	for _, s := range p.Slots {
		k, err := ParseSizeKey(s.SizeKey)
		if err != nil || k.Kind() != SizeFlat {
			continue
		}
		inv[s.SizeKey] = s.Disponible
	}
	return inv
}

// VariantInventory rebuilds a variant's size→quantity map, keyed by bare size.
func (p *Producto) VariantInventory(varianteID string) map[string]int {
	inv := make(map[string]int)
	for _, s := range p.Slots {
		k, err := ParseSizeKey(s.SizeKey)
		if err != nil || k.VarianteID != varianteID || k.Kind() != SizeVariant {
			continue
		}
		inv[k.Talla] = s.Disponible
	}
	return inv
}

// FindVariante returns the variant with the given id, or nil.
func (p *Producto) FindVariante(id string) *Variante {
	for i := range p.Variantes {
		if p.Variantes[i].ID == id {
			return &p.Variantes[i]
		}
	}
	return nil
}

// EnStock reports whether the flat inventory or any variant inventory sums above zero.
func (p *Producto) EnStock() bool {
	if sum(p.Inventory()) > 0 {
		return true
	}
	for _, v := range p.Variantes {
		if sum(p.VariantInventory(v.ID)) > 0 {
			return true
		}
	}
	return false
}

func sum(m map[string]int) int {
	total := 0
	for _, q := range m {
		total += q
	}
	return total
}
