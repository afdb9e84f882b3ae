// Package translate calls LibreTranslate for cross-language text, with a
// keyed cache in front and the source text as the failure fallback.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/cache"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"go.uber.org/zap"
)

const endpoint = "https://libretranslate.com/translate"

// Client translates text through LibreTranslate. Translation is a
// best-effort enhancement: on any failure the input text is returned
// unchanged so callers never lose content.
type Client struct {
	endpoint   string
	httpClient *http.Client
	cache      *cache.Cache
}

// NewClient creates a translation client over the shared cache.
func NewClient(c *cache.Cache) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      c,
	}
}

// Translate returns text in the target language ("en", "hi", "mr"). The
// source language is auto-detected by the provider.
func (c *Client) Translate(ctx context.Context, text, target string) string {
	if text == "" || target == "" {
		return text
	}

	cacheKey := fmt.Sprintf("translate:%s:%s", target, text)
	if v, fresh, ok := c.cache.Get(cacheKey); ok && fresh {
		return v.(string)
	}

	translated, err := c.fetch(ctx, text, target)
	if err != nil {
		logger.Get().Warn("translation failed, returning source text",
			zap.String("target", target), zap.Error(err))
		if v, _, ok := c.cache.Get(cacheKey); ok {
			return v.(string)
		}
		return text
	}

	c.cache.Set(cacheKey, translated, 0)
	return translated
}

func (c *Client) fetch(ctx context.Context, text, target string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"q":      text,
		"source": "auto",
		"target": target,
		"format": "text",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ai.NewProviderError(ai.KindNetworkFailure, "translation request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", ai.NewProviderError(ai.KindNetworkFailure,
			fmt.Sprintf("translation provider returned %d: %s", resp.StatusCode, body), nil)
	}

	var out struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.TranslatedText == "" {
		return "", ai.NewProviderError(ai.KindNetworkFailure, "empty translation response", nil)
	}
	return out.TranslatedText, nil
}
