package ai

import "context"

// DemoProvider is the completion provider used when no credential is
// configured. It returns canned localized replies without touching the
// network, so the product stays usable in demo mode.
type DemoProvider struct {
	detect func(string) string
	reply  func(language string) string
}

// NewDemoProvider creates a demo provider. detect maps a message to a
// language key ("english", "hindi", "marathi"); reply returns the canned
// answer for that language.
func NewDemoProvider(detect func(string) string, reply func(string) string) *DemoProvider {
	return &DemoProvider{detect: detect, reply: reply}
}

// Complete returns the canned demo reply for the last user turn's language.
func (p *DemoProvider) Complete(ctx context.Context, history []Message, systemPrompt string) (string, error) {
	return p.reply(p.detect(lastUserContent(history))), nil
}

// CompleteStream emits the canned reply as a single fragment.
func (p *DemoProvider) CompleteStream(ctx context.Context, history []Message, systemPrompt string, onDelta func(string)) (string, error) {
	text, _ := p.Complete(ctx, history, systemPrompt)
	if onDelta != nil {
		onDelta(text)
	}
	return text, nil
}

func lastUserContent(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content
		}
	}
	return ""
}
