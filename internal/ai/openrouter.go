package ai

import (
	"context"
	"errors"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"go.uber.org/zap"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider implements CompletionProvider and VisionProvider against
// OpenRouter's OpenAI-compatible chat-completions endpoint.
type OpenRouterProvider struct {
	client *openai.Client
	model  string
}

// NewOpenRouterProvider creates a provider for the given API key and model.
func NewOpenRouterProvider(apiKey, model string) *OpenRouterProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = openRouterBaseURL
	return &OpenRouterProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete returns the full assistant reply for the given history.
func (p *OpenRouterProvider) Complete(ctx context.Context, history []Message, systemPrompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: buildChatMessages(history, systemPrompt),
	})
	if err != nil {
		return "", classifyCompletionError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", NewProviderError(KindNetworkFailure, "model returned an empty message", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStream streams incremental fragments through onDelta in delivery
// order and returns the concatenated reply.
func (p *OpenRouterProvider) CompleteStream(ctx context.Context, history []Message, systemPrompt string, onDelta func(string)) (string, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: buildChatMessages(history, systemPrompt),
		Stream:   true,
	})
	if err != nil {
		return "", classifyCompletionError(err)
	}
	defer stream.Close()

	var full string
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", classifyCompletionError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full += delta
		if onDelta != nil {
			onDelta(delta)
		}
	}

	if full == "" {
		return "", NewProviderError(KindNetworkFailure, "model returned an empty stream", nil)
	}
	return full, nil
}

// CompleteJSON sends the prompt plus an image data URL in json_object mode
// and returns the raw JSON document produced by the model.
func (p *OpenRouterProvider) CompleteJSON(ctx context.Context, prompt string, imageDataURL string) (string, error) {
	content := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompt},
	}
	if imageDataURL != "" {
		content = append(content, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: imageDataURL,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: content},
		},
		Temperature: 0.1,
		MaxTokens:   1024,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classifyCompletionError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", NewProviderError(KindNetworkFailure, "model returned an empty message", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// buildChatMessages prefixes the conversation history with the system prompt.
func buildChatMessages(history []Message, systemPrompt string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return msgs
}

// classifyCompletionError converts go-openai errors into the typed taxonomy.
// Completions are never retried automatically; retry is a user action.
func classifyCompletionError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		logger.Get().Warn("completion API error",
			zap.Int("status", apiErr.HTTPStatusCode),
			zap.String("message", apiErr.Message),
		)
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return NewProviderError(KindInvalidCredential, apiErr.Message, err)
		case http.StatusTooManyRequests:
			return NewProviderError(KindQuotaExceeded, apiErr.Message, err)
		default:
			return NewProviderError(KindNetworkFailure, apiErr.Message, err)
		}
	}
	return NewProviderError(KindNetworkFailure, "completion request failed", err)
}
