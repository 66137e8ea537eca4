package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DistanciaResponse is returned by the distance pricing service.
type DistanciaResponse struct {
	DistanciaKm float64 `json:"distance_km"`
	Origen      string  `json:"origin"`
	Destino     string  `json:"destination"`
}

// DistanciaClient asks the external distance service how far a postal code
// is from the store's origin.
type DistanciaClient struct {
	baseURL    string
	origen     string
	httpClient *http.Client
}

func NewDistanciaClient(baseURL, origenZip string) *DistanciaClient {
	return &DistanciaClient{
		baseURL:    baseURL,
		origen:     origenZip,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Origen returns the origin postal code every lookup is measured from.
func (c *DistanciaClient) Origen() string { return c.origen }

// Distancia performs GET <baseURL>?zip=<zip> and returns the distance in km.
func (c *DistanciaClient) Distancia(ctx context.Context, zip string) (float64, error) {
	u := c.baseURL + "?" + url.Values{"zip": {zip}, "origin": {c.origen}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("distancia: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("distancia: service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("distancia: service returned %d", resp.StatusCode)
	}

	var result DistanciaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("distancia: decode response: %w", err)
	}
	if result.DistanciaKm < 0 {
		return 0, fmt.Errorf("distancia: negative distance %.2f", result.DistanciaKm)
	}
	return result.DistanciaKm, nil
}
