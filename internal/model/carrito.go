package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart. Size holds the legacy size key string and
// is unique within a cart.
type CartItem struct {
	ProductoID string          `json:"productId"`
	Nombre     string          `json:"name"`
	Precio     decimal.Decimal `json:"price"`
	Size       string          `json:"size"`
	Cantidad   int             `json:"quantity"`
	Imagen     string          `json:"image"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Subtotal is price × quantity for the line.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Precio.Mul(decimal.NewFromInt(int64(i.Cantidad)))
}

// PromoAplicada is the snapshot of a promo code applied to a cart.
type PromoAplicada struct {
	ID                 uuid.UUID       `json:"id"`
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
}

// CartState is what gets persisted for a cart, remotely or in the guest store.
type CartState struct {
	Items []CartItem     `json:"items"`
	Promo *PromoAplicada `json:"promo,omitempty"`
}

// Find returns the index of the line with the given size key, or -1.
func (c *CartState) Find(size string) int {
	for i := range c.Items {
		if c.Items[i].Size == size {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (c CartState) Clone() CartState {
	out := CartState{Items: make([]CartItem, len(c.Items))}
	copy(out.Items, c.Items)
	if c.Promo != nil {
		p := *c.Promo
		out.Promo = &p
	}
	return out
}

func (c CartState) TotalItems() int {
	n := 0
	for _, it := range c.Items {
		n += it.Cantidad
	}
	return n
}

func (c CartState) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Descuento is subtotal × promo% / 100, zero without a promo.
func (c CartState) Descuento() decimal.Decimal {
	if c.Promo == nil {
		return decimal.Zero
	}
	return c.Subtotal().Mul(c.Promo.DiscountPercentage).Div(decimal.NewFromInt(100))
}

func (c CartState) Total() decimal.Decimal {
	return c.Subtotal().Sub(c.Descuento())
}

// CartOwner identifies who owns a cart: a signed-in identity or a guest session.
// Exactly one of the two ids is set.
type CartOwner struct {
	UsuarioID uuid.UUID
	GuestID   uuid.UUID
}

func OwnerUsuario(id uuid.UUID) CartOwner { return CartOwner{UsuarioID: id} }
func OwnerGuest(id uuid.UUID) CartOwner   { return CartOwner{GuestID: id} }

func (o CartOwner) IsGuest() bool { return o.UsuarioID == uuid.Nil }

// Key is the stable string used for locks, activity tracking and the ledger.
func (o CartOwner) Key() string {
	if o.IsGuest() {
		return "guest:" + o.GuestID.String()
	}
	return "user:" + o.UsuarioID.String()
}

// ParseOwnerKey is the inverse of CartOwner.Key.
func ParseOwnerKey(key string) (CartOwner, bool) {
	switch {
	case len(key) > 6 && key[:6] == "guest:":
		id, err := uuid.Parse(key[6:])
		return OwnerGuest(id), err == nil
	case len(key) > 5 && key[:5] == "user:":
		id, err := uuid.Parse(key[5:])
		return OwnerUsuario(id), err == nil
	}
	return CartOwner{}, false
}
