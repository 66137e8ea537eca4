package model

import (
	"errors"
	"strings"
)

// SizeKeySep separates the segments of the legacy size key string.
const SizeKeySep = "__"

// SizeKind tells whether a key addresses the flat inventory of a product or
// the inventory of one of its variants.
type SizeKind int

const (
	SizeFlat    SizeKind = iota // productoID__talla
	SizeVariant                 // productoID__varianteID__talla
)

// ErrSizeKeyInvalida is returned by ParseSizeKey for keys that cannot be decomposed.
var ErrSizeKeyInvalida = errors.New("size key invalida")

// SizeKey addresses one inventory slot. Build it with NewFlatKey/NewVariantKey
// or ParseSizeKey; its string form is only used at the storage and JSON boundary.
type SizeKey struct {
	ProductoID string
	VarianteID string // empty for flat keys
	Talla      string
}

func NewFlatKey(productoID, talla string) SizeKey {
	return SizeKey{ProductoID: productoID, Talla: talla}
}

func NewVariantKey(productoID, varianteID, talla string) SizeKey {
	return SizeKey{ProductoID: productoID, VarianteID: varianteID, Talla: talla}
}

// ParseSizeKey decodes "p__talla" or "p__v__talla". Empty segments or any
// other segment count are rejected.
func ParseSizeKey(raw string) (SizeKey, error) {
	parts := strings.Split(raw, SizeKeySep)
	for _, p := range parts {
		if p == "" {
			return SizeKey{}, ErrSizeKeyInvalida
		}
	}
	switch len(parts) {
	case 2:
		return NewFlatKey(parts[0], parts[1]), nil
	case 3:
		return NewVariantKey(parts[0], parts[1], parts[2]), nil
	default:
		return SizeKey{}, ErrSizeKeyInvalida
	}
}

func (k SizeKey) Kind() SizeKind {
	if k.VarianteID != "" {
		return SizeVariant
	}
	return SizeFlat
}

func (k SizeKey) String() string {
	if k.Kind() == SizeVariant {
		return k.ProductoID + SizeKeySep + k.VarianteID + SizeKeySep + k.Talla
	}
	return k.ProductoID + SizeKeySep + k.Talla
}

func (k SizeKey) IsZero() bool { return k == SizeKey{} }
