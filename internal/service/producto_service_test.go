package service

import (
	"context"
	"testing"
	"time"

	"tienda/internal/dto"
	"tienda/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTallasDisponibles(t *testing.T) {
	got := TallasDisponibles(map[string]int{"3XL": 1, "M": 2, "L": 4, "unitalla": 1, "XL": 0, "1XL": 3, "S": 1})
	assert.Equal(t, []string{"unitalla", "L", "1XL", "3XL", "M", "S"}, got)
	assert.Empty(t, TallasDisponibles(nil))
}

func TestProductoService_Obtener(t *testing.T) {
	f := newFixture(time.Hour)
	f.db.addProducto(model.Producto{
		ID: "sudadera", Nombre: "Sudadera", Precio: decimal.NewFromInt(699),
		Variantes: []model.Variante{{ID: "negro", ProductoID: "sudadera", Color: "Negro"}},
	}, map[string]int{"sudadera__L": 0, "sudadera__XL": 2, "sudadera__negro__L": 3})
	svc := NewProductoService(f.productos, f.movimientos, f.stock)

	p, err := svc.Obtener(context.Background(), "sudadera")
	require.NoError(t, err)
	assert.True(t, p.EnStock)
	assert.Equal(t, []string{"XL"}, p.TallasDisponibles)
	require.Len(t, p.Variantes, 1)
	assert.Equal(t, []string{"L"}, p.Variantes[0].Disponible)

	_, err = svc.Obtener(context.Background(), "nada")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductoService_Stock(t *testing.T) {
	f := newFixture(time.Hour)
	f.db.addProducto(model.Producto{
		ID: "sudadera", Variantes: []model.Variante{{ID: "negro", ProductoID: "sudadera"}},
	}, map[string]int{"sudadera__XL": 2, "sudadera__negro__L": 3})
	svc := NewProductoService(f.productos, f.movimientos, f.stock)
	ctx := context.Background()

	s, err := svc.Stock(ctx, "sudadera", "", "XL")
	require.NoError(t, err)
	assert.Equal(t, dto.StockResponse{ProductoID: "sudadera", Size: "sudadera__XL", Disponible: 2}, *s)

	s, err = svc.Stock(ctx, "sudadera", "negro", "L")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Disponible)

	// unknown variant or size reads as zero, unknown product as not found
	s, err = svc.Stock(ctx, "sudadera", "rojo", "L")
	require.NoError(t, err)
	assert.Zero(t, s.Disponible)
	_, err = svc.Stock(ctx, "nada", "", "L")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductoService_DestacadoYMovimientos(t *testing.T) {
	f := newFixture(time.Hour)
	seedPlayera(f, map[string]int{"p1__L": 5})
	svc := NewProductoService(f.productos, f.movimientos, f.stock)
	ctx := context.Background()

	require.NoError(t, svc.SetDestacado(ctx, "p1", true))
	assert.ErrorIs(t, svc.SetDestacado(ctx, "nada", true), ErrNotFound)

	guest := model.OwnerGuest(uuid.New())
	_, err := agregar(f, guest, "L", 2)
	require.NoError(t, err)
	_, err = f.carrito.EliminarItem(ctx, guest, "p1__L")
	require.NoError(t, err)

	list, err := svc.ListarMovimientos(ctx, dto.MovimientoFilter{Tipo: model.MovReserva, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, -2, list.Data[0].Cantidad)
	assert.Equal(t, guest.Key(), list.Data[0].Referencia)
}

func TestFavoritos_Alternar(t *testing.T) {
	f := newFixture(time.Hour)
	seedPlayera(f, map[string]int{"p1__L": 1})
	uid := f.db.addUsuario(model.CartState{})
	svc := NewFavoritosService(f.usuarios, f.productos)
	ctx := context.Background()

	added, favs, err := svc.Alternar(ctx, uid, "p1", "L")
	require.NoError(t, err)
	assert.True(t, added)
	require.Len(t, favs, 1)

	added, _, err = svc.Alternar(ctx, uid, "p1", "XL")
	require.NoError(t, err)
	assert.True(t, added, "another size is another favorite")

	added, favs, err = svc.Alternar(ctx, uid, "p1", "L")
	require.NoError(t, err)
	assert.False(t, added)
	require.Len(t, favs, 1)
	assert.Equal(t, "XL", favs[0].Talla)

	list, err := svc.Listar(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, _, err = svc.Alternar(ctx, uid, "nada", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOwnerLocks_SeLiberan(t *testing.T) {
	l := newOwnerLocks()
	unlock := l.Lock("a")
	done := make(chan struct{})
	go func() {
		_ = l.With("a", func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("second holder entered while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-done
	assert.Zero(t, l.size())
}
