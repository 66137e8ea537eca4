package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tienda/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrdenPDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pedidos")
	orden := &model.Orden{
		ID: "u__orden3", Numero: 3, ClienteNombre: "Ana", ClienteEmail: "ana@tienda.mx",
		MetodoEnvio: "metro", EstacionMetro: "Tacuba", MetodoPago: "oxxo",
		Items: []model.CartItem{
			{Nombre: "Playera", Size: "p1__M", Cantidad: 2, Precio: decimal.NewFromInt(150)},
			{Nombre: "Sudadera", Size: "p2__v1__L", Cantidad: 1, Precio: decimal.NewFromInt(400)},
		},
		Subtotal: decimal.NewFromInt(700), Descuento: decimal.NewFromInt(70),
		CostoEnvio: decimal.NewFromInt(40), Total: decimal.NewFromInt(670),
		CreatedAt: time.Now(),
	}

	path, err := GenerateOrdenPDF(orden, "Tienda", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "u__orden3.pdf"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestTallaDe(t *testing.T) {
	assert.Equal(t, "M", tallaDe("p1__M"))
	assert.Equal(t, "L", tallaDe("p2__v1__L"))
	assert.Equal(t, "XL", tallaDe("XL"))
}
