package service

import (
	"context"
	"testing"
	"time"

	"tienda/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(size string, q int) model.CartItem {
	k, _ := model.ParseSizeKey(size)
	return model.CartItem{ProductoID: k.ProductoID, Size: size, Cantidad: q, Precio: decimal.NewFromInt(100)}
}

func cantidades(items []model.CartItem) map[string]int {
	out := map[string]int{}
	for _, it := range items {
		out[it.Size] = it.Cantidad
	}
	return out
}

func TestFusionar(t *testing.T) {
	got := Fusionar(
		[]model.CartItem{item("p1__L", 1), item("p3__S", 4)},
		[]model.CartItem{item("p1__L", 2), item("p2__M", 1)},
	)
	require.Len(t, got, 3)
	assert.Equal(t, "p1__L", got[0].Size)
	assert.Equal(t, 3, got[0].Cantidad)
	assert.Equal(t, "p2__M", got[1].Size)
	assert.Equal(t, "p3__S", got[2].Size)
	assert.Equal(t, 4, got[2].Cantidad)
}

func TestFusionar_Vacios(t *testing.T) {
	assert.Empty(t, Fusionar(nil, nil))
	assert.Equal(t, map[string]int{"p1__L": 2}, cantidades(Fusionar(nil, []model.CartItem{item("p1__L", 2)})))
	assert.Equal(t, map[string]int{"p1__L": 2}, cantidades(Fusionar([]model.CartItem{item("p1__L", 2)}, nil)))
}

// Scenario B
func TestAlIniciarSesion_FusionaYBorraInvitado(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()
	uid := f.db.addUsuario(model.CartState{Items: []model.CartItem{item("p1__L", 2), item("p2__M", 1)}})
	gid := uuid.New()
	require.NoError(t, f.invitados.Save(ctx, gid, model.CartState{Items: []model.CartItem{item("p1__L", 1)}}))

	rec := NewReconciliador(f.carrito, f.usuarios, f.invitados)
	cart, err := rec.AlIniciarSesion(ctx, uid, &gid)
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, "p1__L", cart.Items[0].Size)
	assert.Equal(t, 3, cart.Items[0].Cantidad)
	assert.Equal(t, "p2__M", cart.Items[1].Size)
	assert.Equal(t, 1, cart.Items[1].Cantidad)
	assert.False(t, f.invitados.has(gid))

	// merged cart was written straight away, not left to the debounce
	assert.Equal(t, map[string]int{"p1__L": 3, "p2__M": 1}, cantidades(f.db.remoteCart(uid).Items))

	resp, err := f.carrito.Obtener(ctx, model.OwnerUsuario(uid))
	require.NoError(t, err)
	assert.Equal(t, 4, resp.TotalItems)
	require.NoError(t, f.carrito.Close(ctx))
}

func TestAlIniciarSesion_PromoRemotaGana(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()
	remota := &model.PromoAplicada{Code: "REMOTA", DiscountPercentage: decimal.NewFromInt(5)}
	uid := f.db.addUsuario(model.CartState{Promo: remota})
	gid := uuid.New()
	require.NoError(t, f.invitados.Save(ctx, gid, model.CartState{
		Items: []model.CartItem{item("p1__L", 1)},
		Promo: &model.PromoAplicada{Code: "INVITADO", DiscountPercentage: decimal.NewFromInt(10)},
	}))

	cart, err := NewReconciliador(f.carrito, f.usuarios, f.invitados).AlIniciarSesion(ctx, uid, &gid)
	require.NoError(t, err)
	require.NotNil(t, cart.Promo)
	assert.Equal(t, "REMOTA", cart.Promo.Code)
	require.NoError(t, f.carrito.Close(ctx))
}

func TestAlIniciarSesion_SinInvitado(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()
	uid := f.db.addUsuario(model.CartState{Items: []model.CartItem{item("p1__L", 2)}})

	cart, err := NewReconciliador(f.carrito, f.usuarios, f.invitados).AlIniciarSesion(ctx, uid, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1__L": 2}, cantidades(cart.Items))
	require.NoError(t, f.carrito.Close(ctx))
}

func TestAlIniciarSesion_FalloDeEscrituraReintentaDiferido(t *testing.T) {
	f := newFixture(20 * time.Millisecond)
	ctx := context.Background()
	uid := f.db.addUsuario(model.CartState{})
	gid := uuid.New()
	require.NoError(t, f.invitados.Save(ctx, gid, model.CartState{Items: []model.CartItem{item("p1__L", 1)}}))

	f.db.setFail("SaveMergedCart", errBoom)
	cart, err := NewReconciliador(f.carrito, f.usuarios, f.invitados).AlIniciarSesion(ctx, uid, &gid)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	require.Eventually(t, func() bool {
		return len(f.db.remoteCart(uid).Items) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, f.carrito.Close(ctx))
}
