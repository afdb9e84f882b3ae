package ai

import (
	"bytes"
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"go.uber.org/zap"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqWhisperModel = "whisper-large-v3-turbo"
)

// GroqWhisperProvider implements SpeechProvider using Groq's hosted Whisper,
// reached through its OpenAI-compatible transcription endpoint.
type GroqWhisperProvider struct {
	client *openai.Client
}

// NewGroqWhisperProvider creates a new Groq speech-to-text provider.
func NewGroqWhisperProvider(apiKey string) *GroqWhisperProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = groqBaseURL
	return &GroqWhisperProvider{client: openai.NewClientWithConfig(cfg)}
}

// Transcribe posts a recorded utterance (webm) and returns its transcript.
// Transient upstream errors are retried with backoff.
func (p *GroqWhisperProvider) Transcribe(ctx context.Context, audioData []byte, language string) (string, error) {
	if len(audioData) == 0 {
		return "", NewProviderError(KindNetworkFailure, "audio data is empty", nil)
	}

	const maxRetries = 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:       groqWhisperModel,
			Reader:      bytes.NewReader(audioData),
			FilePath:    "audio.webm",
			Temperature: 0,
			Format:      openai.AudioResponseFormatVerboseJSON,
			Language:    language,
		})
		if err == nil {
			if resp.Text == "" {
				return "", NewProviderError(KindNetworkFailure, "whisper returned empty transcription", nil)
			}
			return resp.Text, nil
		}

		lastErr = err
		shouldRetry, waitTime := classifyTranscriptionError(err)
		if !shouldRetry {
			return "", toTranscriptionProviderError(err)
		}

		logger.Get().Warn("whisper API error, retrying",
			zap.Error(err),
			zap.Int("attempt", i+1),
		)

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(waitTime * time.Duration(i+1)):
			}
		}
	}

	return "", NewProviderError(KindNetworkFailure, "whisper API: exhausted retries", lastErr)
}

// classifyTranscriptionError determines whether a transcription error is retryable.
func classifyTranscriptionError(err error) (shouldRetry bool, waitTime time.Duration) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429:
			return true, 2 * time.Second
		case 500, 502, 503:
			return true, 2 * time.Second
		default:
			return false, 0
		}
	}
	return false, 0
}

func toTranscriptionProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return NewProviderError(KindInvalidCredential, "groq rejected the configured key", err)
		}
	}
	return NewProviderError(KindNetworkFailure, "transcription request failed", err)
}
