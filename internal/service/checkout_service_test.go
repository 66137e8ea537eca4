package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tienda/internal/dto"
	"tienda/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeNotificador struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (n *fakeNotificador) EnqueueConfirmacion(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
	return n.err
}

// envioFijo quotes the base cost for any method.
type envioFijo struct{}

func (envioFijo) Cotizar(_ context.Context, metodo, _ string) (*dto.CotizacionEnvioResponse, error) {
	return &dto.CotizacionEnvioResponse{Metodo: metodo, Costo: CostoBaseEnvio}, nil
}

type checkoutFixture struct {
	*fixture
	notificador *fakeNotificador
	checkout    CheckoutService
	uid         uuid.UUID
	owner       model.CartOwner
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := newFixture(time.Hour)
	cf := &checkoutFixture{fixture: f, notificador: &fakeNotificador{}}
	cf.checkout = NewCheckoutService(f.db, f.ordenes, f.productos, f.promos, f.movimientos, f.carrito, envioFijo{}, cf.notificador)
	cf.uid = f.db.addUsuario(model.CartState{})
	cf.owner = model.OwnerUsuario(cf.uid)
	seedPlayera(f, map[string]int{"p1__L": 5, "p1__XL": 5})
	t.Cleanup(func() { _ = f.carrito.Close(context.Background()) })
	return cf
}

func pedido() dto.RealizarPedidoRequest {
	return dto.RealizarPedidoRequest{
		Envio:      dto.EnvioInfo{Nombre: "Ana", Email: "ana@tienda.mx", Telefono: "5512345678", Metodo: MetodoMetro, EstacionMetro: "Zócalo"},
		MetodoPago: "transfer",
	}
}

func TestRealizarPedido_Exito(t *testing.T) {
	cf := newCheckoutFixture(t)
	ctx := context.Background()
	_, err := agregar(cf.fixture, cf.owner, "L", 2)
	require.NoError(t, err)
	_, err = agregar(cf.fixture, cf.owner, "XL", 1)
	require.NoError(t, err)

	o, err := cf.checkout.RealizarPedido(ctx, cf.uid, pedido())
	require.NoError(t, err)
	assert.Equal(t, model.OrdenID(cf.uid, 1), o.ID)
	assert.Equal(t, 1, o.Numero)
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(300)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(340)))
	assert.Equal(t, model.EstadoPendiente, o.Estado)

	// reservations became sold units, availability untouched
	assert.Equal(t, model.StockSlot{ProductoID: "p1", SizeKey: "p1__L", Disponible: 3}, cf.db.slot("p1", "p1__L"))
	assert.Equal(t, 0, cf.db.slot("p1", "p1__XL").Reservado)

	cart, err := cf.carrito.Obtener(ctx, cf.owner)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Empty(t, cf.db.remoteCart(cf.uid).Items)
	assert.Equal(t, []string{o.ID}, cf.notificador.ids)

	// counter is per identity
	_, err = agregar(cf.fixture, cf.owner, "L", 1)
	require.NoError(t, err)
	o2, err := cf.checkout.RealizarPedido(ctx, cf.uid, pedido())
	require.NoError(t, err)
	assert.Equal(t, 2, o2.Numero)

	list, err := cf.checkout.ListarPedidos(ctx, cf.uid)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRealizarPedido_CarritoVacio(t *testing.T) {
	cf := newCheckoutFixture(t)
	_, err := cf.checkout.RealizarPedido(context.Background(), cf.uid, pedido())
	assert.ErrorIs(t, err, ErrCarritoVacio)
	assert.Zero(t, cf.db.numOrdenes())
}

// Scenario E
func TestRealizarPedido_ItemMalFormado(t *testing.T) {
	cf := newCheckoutFixture(t)
	_, err := agregar(cf.fixture, cf.owner, "L", 1)
	require.NoError(t, err)
	cart, err := cf.carrito.Obtener(context.Background(), cf.owner)
	require.NoError(t, err)
	items := append(cart.Items, model.CartItem{ProductoID: "p1", Nombre: "Roto", Size: "p1L", Cantidad: 1})
	cf.carrito.InstalarSesion(cf.uid, model.CartState{Items: items})
	movsAntes := len(cf.db.movimientos())

	_, err = cf.checkout.RealizarPedido(context.Background(), cf.uid, pedido())
	var malformed *MalformedCartItemError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "Roto", malformed.Item)

	assert.Zero(t, cf.db.numOrdenes())
	assert.Equal(t, 1, cf.db.slot("p1", "p1__L").Reservado)
	assert.Len(t, cf.db.movimientos(), movsAntes)
	// counter untouched: the next good order is still number one
	cf.carrito.InstalarSesion(cf.uid, model.CartState{Items: items[:1]})
	o, err := cf.checkout.RealizarPedido(context.Background(), cf.uid, pedido())
	require.NoError(t, err)
	assert.Equal(t, 1, o.Numero)
}

func TestRealizarPedido_FalloIntermedioRevierteTodo(t *testing.T) {
	cf := newCheckoutFixture(t)
	ctx := context.Background()
	_, err := agregar(cf.fixture, cf.owner, "L", 2)
	require.NoError(t, err)
	_, err = agregar(cf.fixture, cf.owner, "XL", 1)
	require.NoError(t, err)
	movsAntes := len(cf.db.movimientos())

	// second line fails after the first was already consumed
	cf.db.setFail("Consumir:p1__XL", errBoom)
	_, err = cf.checkout.RealizarPedido(ctx, cf.uid, pedido())
	var abortErr *TransactionAbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, "descontar stock", abortErr.Paso)
	assert.ErrorIs(t, err, errBoom)

	assert.Zero(t, cf.db.numOrdenes())
	assert.Equal(t, 2, cf.db.slot("p1", "p1__L").Reservado)
	assert.Equal(t, 1, cf.db.slot("p1", "p1__XL").Reservado)
	assert.Len(t, cf.db.movimientos(), movsAntes)
	assert.Empty(t, cf.notificador.ids)

	cart, err := cf.carrito.Obtener(ctx, cf.owner)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.TotalItems, "cart survives a rolled back order")

	cf.db.setFail("Consumir:p1__XL", nil)
	o, err := cf.checkout.RealizarPedido(ctx, cf.uid, pedido())
	require.NoError(t, err)
	assert.Equal(t, 1, o.Numero)
}

func TestRealizarPedido_PromoAgotadaEnElCamino(t *testing.T) {
	cf := newCheckoutFixture(t)
	ctx := context.Background()
	promo := &model.PromoCode{Code: "SUMMER10", DiscountPercentage: decimal.NewFromInt(10), UsageLimit: 1, Active: true}
	require.NoError(t, cf.promos.Create(ctx, promo))

	_, err := agregar(cf.fixture, cf.owner, "L", 2)
	require.NoError(t, err)
	_, err = NewPromoService(cf.promos, cf.carrito).Aplicar(ctx, cf.owner, "summer10")
	require.NoError(t, err)

	// someone else used the last slot of the code meanwhile
	ok, err := cf.promos.IncrementUsageTx(ctx, nil, promo.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = cf.checkout.RealizarPedido(ctx, cf.uid, pedido())
	require.ErrorIs(t, err, ErrPromoAgotada)
	assert.Zero(t, cf.db.numOrdenes())
	assert.Equal(t, 1, cf.db.promo(promo.ID).UsageCount)
	assert.Equal(t, 2, cf.db.slot("p1", "p1__L").Reservado)
}

func TestRealizarPedido_ConPromoCuentaUso(t *testing.T) {
	cf := newCheckoutFixture(t)
	ctx := context.Background()
	promo := &model.PromoCode{Code: "SUMMER10", DiscountPercentage: decimal.NewFromInt(10), UsageLimit: 5, Active: true}
	require.NoError(t, cf.promos.Create(ctx, promo))
	_, err := agregar(cf.fixture, cf.owner, "L", 2)
	require.NoError(t, err)
	_, err = NewPromoService(cf.promos, cf.carrito).Aplicar(ctx, cf.owner, "SUMMER10")
	require.NoError(t, err)

	o, err := cf.checkout.RealizarPedido(ctx, cf.uid, pedido())
	require.NoError(t, err)
	assert.True(t, o.Descuento.Equal(decimal.NewFromInt(20)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(220)))
	assert.Equal(t, 1, cf.db.promo(promo.ID).UsageCount)
}

func TestRealizarPedido_NotificacionFallidaNoRevierte(t *testing.T) {
	cf := newCheckoutFixture(t)
	cf.notificador.err = errors.New("redis caído")
	_, err := agregar(cf.fixture, cf.owner, "L", 1)
	require.NoError(t, err)

	_, err = cf.checkout.RealizarPedido(context.Background(), cf.uid, pedido())
	require.NoError(t, err)
	assert.Equal(t, 1, cf.db.numOrdenes())
}

// Property: an order either fully lands or leaves no trace, whichever step fails.
func TestPropiedad_PedidoTodoONada(t *testing.T) {
	pasos := []string{"", "CreateOrden", "Consumir:p1__L", "Consumir:p1__XL", "CreateMovimiento"}
	rapid.Check(t, func(rt *rapid.T) {
		cf := newCheckoutFixture(t)
		ctx := context.Background()
		ql := rapid.IntRange(1, 5).Draw(rt, "ql")
		qxl := rapid.IntRange(0, 5).Draw(rt, "qxl")
		if _, err := agregar(cf.fixture, cf.owner, "L", ql); err != nil {
			rt.Fatalf("add: %v", err)
		}
		if qxl > 0 {
			if _, err := agregar(cf.fixture, cf.owner, "XL", qxl); err != nil {
				rt.Fatalf("add: %v", err)
			}
		}
		paso := rapid.SampledFrom(pasos).Draw(rt, "falla")
		if paso != "" {
			cf.db.setFail(paso, errBoom)
		}
		movs := len(cf.db.movimientos())
		l, xl := cf.db.slot("p1", "p1__L"), cf.db.slot("p1", "p1__XL")

		_, err := cf.checkout.RealizarPedido(ctx, cf.uid, pedido())
		falla := paso != "" && !(paso == "Consumir:p1__XL" && qxl == 0)
		if !falla {
			if err != nil {
				rt.Fatalf("order: %v", err)
			}
			if cf.db.numOrdenes() != 1 || cf.db.slot("p1", "p1__L").Reservado != 0 {
				rt.Fatalf("order missing or stock not consumed")
			}
			return
		}
		if err == nil {
			rt.Fatalf("expected failure at %s", paso)
		}
		if cf.db.numOrdenes() != 0 || len(cf.db.movimientos()) != movs ||
			cf.db.slot("p1", "p1__L") != l || cf.db.slot("p1", "p1__XL") != xl {
			rt.Fatalf("partial state after failing at %s", paso)
		}
	})
}
