// Package market fetches mandi price records from the data.gov.in
// Agmarknet resource.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/cache"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"go.uber.org/zap"
)

const (
	resourceID  = "9ef84268-d588-465a-a308-a864a43d0070"
	resourceURL = "https://api.data.gov.in/resource/" + resourceID

	recordLimit = 50
)

// PriceRecord is one mandi price row, prices in Rs per quintal.
type PriceRecord struct {
	State       string `json:"state"`
	District    string `json:"district"`
	Market      string `json:"market"`
	Commodity   string `json:"commodity"`
	Variety     string `json:"variety"`
	ArrivalDate string `json:"arrival_date"` // DD/MM/YYYY
	MinPrice    string `json:"min_price"`
	MaxPrice    string `json:"max_price"`
	ModalPrice  string `json:"modal_price"`
}

// Client queries Agmarknet with a keyed cache in front. Results are cached
// for the cache's default TTL; a fetch failure falls back to the stale
// cached result when one exists.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
}

// NewClient creates an Agmarknet client over the shared cache.
func NewClient(apiKey string, c *cache.Cache) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    resourceURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      c,
	}
}

// GetPrices returns recent price records filtered by state and commodity,
// newest arrival date first.
func (c *Client) GetPrices(ctx context.Context, state, commodity string) ([]PriceRecord, error) {
	cacheKey := fmt.Sprintf("market:%s:%s", state, commodity)
	if v, fresh, ok := c.cache.Get(cacheKey); ok && fresh {
		return v.([]PriceRecord), nil
	}

	records, err := c.fetchPrices(ctx, state, commodity)
	if err != nil {
		if v, _, ok := c.cache.Get(cacheKey); ok {
			logger.Get().Warn("serving stale market prices after fetch failure",
				zap.String("state", state), zap.String("commodity", commodity), zap.Error(err))
			return v.([]PriceRecord), nil
		}
		return nil, err
	}

	c.cache.Set(cacheKey, records, 0)
	return records, nil
}

func (c *Client) fetchPrices(ctx context.Context, state, commodity string) ([]PriceRecord, error) {
	if c.apiKey == "" {
		return nil, ai.NewProviderError(ai.KindMissingCredential,
			"no market data credential configured", nil)
	}

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("format", "json")
	params.Set("limit", fmt.Sprintf("%d", recordLimit))
	if state != "" {
		params.Set("filters[state]", state)
	}
	if commodity != "" {
		params.Set("filters[commodity]", commodity)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ai.NewProviderError(ai.KindNetworkFailure, "market data request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ai.NewProviderError(ai.KindInvalidCredential, "market data credential rejected", nil)
	case http.StatusTooManyRequests:
		return nil, ai.NewProviderError(ai.KindQuotaExceeded, "market data quota exceeded", nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, ai.NewProviderError(ai.KindNetworkFailure,
			fmt.Sprintf("market data provider returned %d: %s", resp.StatusCode, body), nil)
	}

	var payload struct {
		Records []PriceRecord `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	sortByArrivalDesc(payload.Records)
	return payload.Records, nil
}

// sortByArrivalDesc orders records newest first. Arrival dates come over
// the wire as DD/MM/YYYY; unparseable dates sort last.
func sortByArrivalDesc(records []PriceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, erri := time.Parse("02/01/2006", records[i].ArrivalDate)
		tj, errj := time.Parse("02/01/2006", records[j].ArrivalDate)
		if erri != nil {
			return false
		}
		if errj != nil {
			return true
		}
		return ti.After(tj)
	})
}
