package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/krishimitra/krishimitra-api/internal/ai"
)

const opencageURL = "https://api.opencagedata.com/geocode/v1/json"

// Location is a reverse-geocoded place.
type Location struct {
	District string `json:"district"`
	State    string `json:"state"`
	Country  string `json:"country"`
}

// Geocoder resolves coordinates to a district through OpenCage. The API key
// is optional at startup; calls without one fail with LocationUnavailable.
type Geocoder struct {
	apiKey     string
	httpClient *http.Client
}

// NewGeocoder creates an OpenCage reverse geocoder.
func NewGeocoder(apiKey string) *Geocoder {
	return &Geocoder{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Reverse resolves lat/lon to a district-level location.
func (g *Geocoder) Reverse(ctx context.Context, lat, lon float64) (*Location, error) {
	if g.apiKey == "" {
		return nil, ai.NewProviderError(ai.KindLocationUnavailable,
			"no geocoding credential configured", nil)
	}

	params := url.Values{}
	params.Set("q", fmt.Sprintf("%f,%f", lat, lon))
	params.Set("key", g.apiKey)
	params.Set("no_annotations", "1")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opencageURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, ai.NewProviderError(ai.KindNetworkFailure, "reverse geocoding request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ai.NewProviderError(ai.KindInvalidCredential, "geocoding credential rejected", nil)
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return nil, ai.NewProviderError(ai.KindQuotaExceeded, "geocoding quota exceeded", nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, ai.NewProviderError(ai.KindNetworkFailure,
			fmt.Sprintf("geocoding provider returned %d: %s", resp.StatusCode, body), nil)
	}

	var payload struct {
		Results []struct {
			Components struct {
				StateDistrict string `json:"state_district"`
				County        string `json:"county"`
				City          string `json:"city"`
				State         string `json:"state"`
				Country       string `json:"country"`
			} `json:"components"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Results) == 0 {
		return nil, ai.NewProviderError(ai.KindLocationUnavailable,
			fmt.Sprintf("no place at %f,%f", lat, lon), nil)
	}

	comp := payload.Results[0].Components
	district := comp.StateDistrict
	if district == "" {
		district = comp.County
	}
	if district == "" {
		district = comp.City
	}
	return &Location{District: district, State: comp.State, Country: comp.Country}, nil
}
