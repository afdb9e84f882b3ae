package ai

import (
	"context"
	"io"
)

// Message roles used across all completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionProvider handles chat completions against a hosted model.
// The implementation is fixed at configuration time; callers never probe
// for capabilities at runtime.
type CompletionProvider interface {
	// Complete returns the full assistant reply for the given history.
	Complete(ctx context.Context, history []Message, systemPrompt string) (string, error)
	// CompleteStream streams incremental fragments through onDelta in
	// delivery order and returns the concatenated reply.
	CompleteStream(ctx context.Context, history []Message, systemPrompt string, onDelta func(string)) (string, error)
}

// VisionProvider handles structured JSON completions over an image input
// (pest diagnosis).
type VisionProvider interface {
	// CompleteJSON sends the prompt plus an image data URL in JSON mode and
	// returns the raw JSON document produced by the model.
	CompleteJSON(ctx context.Context, prompt string, imageDataURL string) (string, error)
}

// SpeechProvider handles speech-to-text for a finalized utterance.
type SpeechProvider interface {
	// Transcribe posts a recorded utterance (webm) and returns its transcript.
	Transcribe(ctx context.Context, audioData []byte, language string) (string, error)
}

// VoiceProvider handles text-to-speech synthesis.
type VoiceProvider interface {
	// Synthesize returns a stream of encoded audio bytes for the given text.
	// The caller owns the returned reader and must close it.
	Synthesize(ctx context.Context, text string, voice string) (io.ReadCloser, error)
}

// DiagnosisResult is the structured output of a pest-diagnosis completion.
type DiagnosisResult struct {
	Crop          string   `json:"crop"`
	Problem       string   `json:"problem"`
	Symptoms      string   `json:"symptoms"`
	Cause         string   `json:"cause"`
	Severity      string   `json:"severity"`
	Treatment     []string `json:"treatment"`
	SolutionType  string   `json:"solutionType"`
	OrganicOption string   `json:"organicOption"`
	Prevention    string   `json:"prevention"`
}
