package service

import (
	"context"
	"fmt"

	"tienda/internal/dto"
	"tienda/internal/infra"
	"tienda/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	MetodoDomicilio = "domicilio"
	MetodoMetro     = "metro"
)

// CostoBaseEnvio is charged for home delivery whenever the distance cannot
// be determined. Metro pickup is free.
var CostoBaseEnvio = decimal.NewFromInt(40)

// tarifas maps an upper distance bound in km to its shipping cost.
var tarifas = []struct {
	hastaKm float64
	costo   int64
}{
	{2, 40}, {4, 60}, {6, 80}, {8, 100}, {10, 110}, {13, 120},
}

const costoLejano = 180

// CostoPorDistancia returns the home delivery cost for a distance in km.
func CostoPorDistancia(km float64) decimal.Decimal {
	for _, t := range tarifas {
		if km <= t.hastaKm {
			return decimal.NewFromInt(t.costo)
		}
	}
	return decimal.NewFromInt(costoLejano)
}

// DistanciaFuente measures how far a postal code is from the store.
type DistanciaFuente interface {
	Distancia(ctx context.Context, zip string) (float64, error)
	Origen() string
}

type EnvioService interface {
	Cotizar(ctx context.Context, metodo, zip string) (*dto.CotizacionEnvioResponse, error)
}

type envioService struct {
	fuente DistanciaFuente
	cache  repository.DistanciaCacheRepository
	cb     *infra.CircuitBreaker
}

func NewEnvioService(fuente DistanciaFuente, cache repository.DistanciaCacheRepository, cb *infra.CircuitBreaker) EnvioService {
	return &envioService{fuente: fuente, cache: cache, cb: cb}
}

func (s *envioService) Cotizar(ctx context.Context, metodo, zip string) (*dto.CotizacionEnvioResponse, error) {
	switch metodo {
	case MetodoMetro:
		return &dto.CotizacionEnvioResponse{Metodo: metodo, Costo: decimal.Zero}, nil
	case MetodoDomicilio:
	default:
		return nil, fmt.Errorf("método de envío desconocido: %q", metodo)
	}

	km, err := s.distancia(ctx, zip)
	if err != nil {
		log.Warn().Err(err).Str("zip", zip).Msg("envio: distancia no disponible, usando costo base")
		return &dto.CotizacionEnvioResponse{Metodo: metodo, Costo: CostoBaseEnvio, Estimado: true}, nil
	}
	return &dto.CotizacionEnvioResponse{Metodo: metodo, DistanciaKm: &km, Costo: CostoPorDistancia(km)}, nil
}

func (s *envioService) distancia(ctx context.Context, zip string) (float64, error) {
	if zip == "" {
		return 0, fmt.Errorf("código postal vacío")
	}
	origen := s.fuente.Origen()
	if km, ok, err := s.cache.Get(ctx, origen, zip); err != nil {
		log.Warn().Err(err).Msg("envio: cache de distancias no disponible")
	} else if ok {
		return km, nil
	}

	var km float64
	err := s.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		km, err = s.fuente.Distancia(ctx, zip)
		return err
	})
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, origen, zip, km); err != nil {
		log.Warn().Err(err).Str("zip", zip).Msg("envio: no se pudo cachear la distancia")
	}
	return km, nil
}
