package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const elevenLabsEndpoint = "https://api.elevenlabs.io/v1/text-to-speech"

// Voice identifiers for the two product voices.
var elevenLabsVoices = map[string]string{
	"male":   "dxhwlBCxCrnzRlP4wDeE",
	"female": "90ipbRoKi4CpHXvKVtl0",
}

// ElevenLabsProvider implements VoiceProvider using the ElevenLabs
// text-to-speech API. The response body is streamed back to the caller so
// playback can begin before synthesis completes.
type ElevenLabsProvider struct {
	apiKey     string
	httpClient *http.Client
}

// NewElevenLabsProvider creates a new ElevenLabs voice provider.
func NewElevenLabsProvider(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsErrorResponse struct {
	Detail struct {
		Message string `json:"message"`
	} `json:"detail"`
}

// Synthesize returns a stream of encoded audio bytes for the given text.
// The caller owns the returned reader and must close it.
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, voice string) (io.ReadCloser, error) {
	if p.apiKey == "" {
		return nil, NewProviderError(KindMissingCredential, "ElevenLabs API key not configured", nil)
	}

	voiceID, ok := elevenLabsVoices[voice]
	if !ok {
		voiceID = elevenLabsVoices["female"]
	}

	payload, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s", elevenLabsEndpoint, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, NewProviderError(KindNetworkFailure, "TTS request failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		var errResp elevenLabsErrorResponse
		message := "failed to fetch audio from ElevenLabs"
		if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
			message = errResp.Detail.Message
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, NewProviderError(KindInvalidCredential, message, nil)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, NewProviderError(KindQuotaExceeded, message, nil)
		}
		return nil, NewProviderError(KindNetworkFailure, message, nil)
	}

	return resp.Body, nil
}
