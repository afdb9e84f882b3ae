// Package weather fetches geocoded daily forecasts from Open-Meteo and
// resolves coordinates to districts through OpenCage.
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
	"github.com/krishimitra/krishimitra-api/internal/cache"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"go.uber.org/zap"
)

const (
	geocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	forecastURL  = "https://api.open-meteo.com/v1/forecast"

	forecastDays = 3
	requestLimit = 30 * time.Second
)

// Day is one normalized day of forecast.
type Day struct {
	Date string  `json:"date"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Pop  int     `json:"pop"` // precipitation probability, percent
}

// Forecast is the normalized multi-day forecast for a resolved place.
type Forecast struct {
	Place     string  `json:"place"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Days      []Day   `json:"days"`
}

// Client calls Open-Meteo with a keyed cache in front. Both endpoints are
// keyless; a network failure falls back to a stale cache entry when one
// exists, then to a canned demo forecast so the advisory flow keeps working
// offline.
type Client struct {
	geocodingURL string
	forecastURL  string
	httpClient   *http.Client
	cache        *cache.Cache
}

// NewClient creates a weather client over the shared cache.
func NewClient(c *cache.Cache) *Client {
	return &Client{
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
		httpClient:   &http.Client{Timeout: requestLimit},
		cache:        c,
	}
}

// GetForecast geocodes place and returns its normalized forecast. Cached
// results are reused for the cache's default TTL.
func (c *Client) GetForecast(ctx context.Context, place string) (*Forecast, error) {
	cacheKey := "weather:" + place
	if v, fresh, ok := c.cache.Get(cacheKey); ok && fresh {
		return v.(*Forecast), nil
	}

	forecast, err := c.fetchForecast(ctx, place)
	if err != nil {
		if v, _, ok := c.cache.Get(cacheKey); ok {
			logger.Get().Warn("serving stale forecast after fetch failure",
				zap.String("place", place), zap.Error(err))
			return v.(*Forecast), nil
		}
		if ai.IsKind(err, ai.KindNetworkFailure) {
			logger.Get().Warn("serving demo forecast, provider unreachable",
				zap.String("place", place), zap.Error(err))
			return demoForecast(place), nil
		}
		return nil, err
	}

	c.cache.Set(cacheKey, forecast, 0)
	return forecast, nil
}

func (c *Client) fetchForecast(ctx context.Context, place string) (*Forecast, error) {
	lat, lon, resolved, err := c.geocode(ctx, place)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", lat))
	params.Set("longitude", fmt.Sprintf("%.4f", lon))
	params.Set("daily", "temperature_2m_min,temperature_2m_max,precipitation_probability_max")
	params.Set("forecast_days", fmt.Sprintf("%d", forecastDays))
	params.Set("timezone", "auto")

	var payload struct {
		Daily struct {
			Time    []string  `json:"time"`
			TempMin []float64 `json:"temperature_2m_min"`
			TempMax []float64 `json:"temperature_2m_max"`
			PopMax  []int     `json:"precipitation_probability_max"`
		} `json:"daily"`
	}
	if err := c.getJSON(ctx, c.forecastURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	forecast := &Forecast{Place: resolved, Latitude: lat, Longitude: lon}
	for i, date := range payload.Daily.Time {
		day := Day{Date: date}
		if i < len(payload.Daily.TempMin) {
			day.Min = payload.Daily.TempMin[i]
		}
		if i < len(payload.Daily.TempMax) {
			day.Max = payload.Daily.TempMax[i]
		}
		if i < len(payload.Daily.PopMax) {
			day.Pop = payload.Daily.PopMax[i]
		}
		forecast.Days = append(forecast.Days, day)
	}
	return forecast, nil
}

// geocode resolves a place name to coordinates via the Open-Meteo geocoding
// endpoint, biased to India.
func (c *Client) geocode(ctx context.Context, place string) (lat, lon float64, name string, err error) {
	params := url.Values{}
	params.Set("name", place)
	params.Set("count", "1")
	params.Set("language", "en")
	params.Set("countryCode", "IN")

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Admin1    string  `json:"admin1"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, c.geocodingURL+"?"+params.Encode(), &payload); err != nil {
		return 0, 0, "", err
	}
	if len(payload.Results) == 0 {
		return 0, 0, "", ai.NewProviderError(ai.KindLocationUnavailable,
			fmt.Sprintf("no geocoding result for %q", place), nil)
	}

	r := payload.Results[0]
	name = r.Name
	if r.Admin1 != "" {
		name = r.Name + ", " + r.Admin1
	}
	return r.Latitude, r.Longitude, name, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ai.NewProviderError(ai.KindNetworkFailure, "weather request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ai.NewProviderError(ai.KindNetworkFailure,
			fmt.Sprintf("weather provider returned %d: %s", resp.StatusCode, body), nil)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// demoForecast is the canned payload served when the provider is
// unreachable and nothing is cached.
func demoForecast(place string) *Forecast {
	today := time.Now()
	f := &Forecast{Place: place}
	for i := 0; i < forecastDays; i++ {
		f.Days = append(f.Days, Day{
			Date: today.AddDate(0, 0, i).Format("2006-01-02"),
			Min:  22,
			Max:  33,
			Pop:  20,
		})
	}
	return f
}
