package service

import (
	"context"
	"errors"
	"testing"

	"tienda/internal/infra"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFuente struct {
	km    float64
	err   error
	calls int
}

func (f *fakeFuente) Distancia(context.Context, string) (float64, error) {
	f.calls++
	return f.km, f.err
}

func (f *fakeFuente) Origen() string { return "11420" }

func newEnvio(fuente *fakeFuente, cache *stubDistanciaCache) EnvioService {
	return NewEnvioService(fuente, cache, infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "test", FailureThreshold: 2}))
}

func TestCostoPorDistancia(t *testing.T) {
	cases := []struct {
		km   float64
		want int64
	}{
		{0, 40}, {2, 40}, {2.01, 60}, {4, 60}, {5.5, 80}, {8, 100},
		{9.9, 110}, {10, 110}, {12.3, 120}, {13, 120}, {13.1, 180}, {40, 180},
	}
	for _, c := range cases {
		assert.True(t, CostoPorDistancia(c.km).Equal(decimal.NewFromInt(c.want)), "%v km", c.km)
	}
}

func TestCotizar_MetroGratis(t *testing.T) {
	fuente := &fakeFuente{}
	resp, err := newEnvio(fuente, &stubDistanciaCache{}).Cotizar(context.Background(), MetodoMetro, "")
	require.NoError(t, err)
	assert.True(t, resp.Costo.IsZero(), "metro pickup is free, got %s", resp.Costo)
	assert.Nil(t, resp.DistanciaKm)
	assert.Zero(t, fuente.calls)
}

func TestCotizar_DomicilioCachea(t *testing.T) {
	fuente := &fakeFuente{km: 7}
	cache := &stubDistanciaCache{}
	svc := newEnvio(fuente, cache)

	for i := 0; i < 3; i++ {
		resp, err := svc.Cotizar(context.Background(), MetodoDomicilio, "03100")
		require.NoError(t, err)
		assert.True(t, resp.Costo.Equal(decimal.NewFromInt(100)))
		require.NotNil(t, resp.DistanciaKm)
		assert.Equal(t, 7.0, *resp.DistanciaKm)
		assert.False(t, resp.Estimado)
	}
	assert.Equal(t, 1, fuente.calls)
	assert.Equal(t, 7.0, cache.km["11420:03100"])
}

func TestCotizar_FalloUsaCostoBase(t *testing.T) {
	fuente := &fakeFuente{err: errors.New("timeout")}
	svc := newEnvio(fuente, &stubDistanciaCache{err: errors.New("redis caído")})

	for i := 0; i < 4; i++ {
		resp, err := svc.Cotizar(context.Background(), MetodoDomicilio, "03100")
		require.NoError(t, err)
		assert.True(t, resp.Costo.Equal(CostoBaseEnvio))
		assert.True(t, resp.Estimado)
	}
	// the breaker opened after two failures
	assert.Equal(t, 2, fuente.calls)
}

func TestCotizar_MetodoDesconocido(t *testing.T) {
	_, err := newEnvio(&fakeFuente{}, &stubDistanciaCache{}).Cotizar(context.Background(), "dron", "")
	assert.Error(t, err)
}
