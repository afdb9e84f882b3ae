package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"go.uber.org/zap"
)

// AnthropicProvider implements CompletionProvider using Claude. It is
// selected at configuration time when an Anthropic key is present and no
// OpenRouter key is; both are never probed at runtime.
type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider creates a new AnthropicProvider with the given API key.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{
		client: client,
		model:  anthropic.Model("claude-haiku-4-5-20251001"),
	}
}

// Complete returns the full assistant reply for the given history.
func (p *AnthropicProvider) Complete(ctx context.Context, history []Message, systemPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: toAnthropicMessages(history),
	}

	msg, err := p.createMessageWithRetry(ctx, params)
	if err != nil {
		return "", err
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", NewProviderError(KindNetworkFailure, "no text content in Claude response", nil)
	}
	return text, nil
}

// CompleteStream satisfies the streaming contract by emitting the reply as a
// single fragment. Incremental streaming is provided by the OpenRouter
// provider; Claude is the non-streaming fallback path.
func (p *AnthropicProvider) CompleteStream(ctx context.Context, history []Message, systemPrompt string, onDelta func(string)) (string, error) {
	text, err := p.Complete(ctx, history, systemPrompt)
	if err != nil {
		return "", err
	}
	if onDelta != nil {
		onDelta(text)
	}
	return text, nil
}

func toAnthropicMessages(history []Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		role := anthropic.MessageParamRoleUser
		if m.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		params = append(params, anthropic.MessageParam{
			Role: role,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(m.Content),
			},
		})
	}
	return params
}

// createMessageWithRetry wraps the Claude API call with exponential backoff.
func (p *AnthropicProvider) createMessageWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	const maxRetries = 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		resp, err := p.client.Messages.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		shouldRetry, waitTime := classifyAnthropicError(err)
		if !shouldRetry {
			return nil, toAnthropicProviderError(err)
		}

		logger.Get().Warn("claude API error, retrying",
			zap.Error(err),
			zap.Int("attempt", i+1),
		)

		backoff := waitTime * time.Duration(i+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, NewProviderError(KindNetworkFailure,
		fmt.Sprintf("claude API: exhausted %d retries", maxRetries), lastErr)
}

// classifyAnthropicError determines whether to retry and the base wait duration.
func classifyAnthropicError(err error) (shouldRetry bool, waitTime time.Duration) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return true, 2 * time.Second
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return true, 2 * time.Second
		default:
			return false, 0
		}
	}
	return false, 0
}

func toAnthropicProviderError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return NewProviderError(KindInvalidCredential, "claude rejected the configured key", err)
		case http.StatusTooManyRequests:
			return NewProviderError(KindQuotaExceeded, "claude quota exceeded", err)
		}
	}
	return NewProviderError(KindNetworkFailure, "claude API error", err)
}
