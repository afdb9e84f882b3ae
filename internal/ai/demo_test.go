package ai

import (
	"context"
	"strings"
	"testing"
)

func newTestDemoProvider() *DemoProvider {
	detect := func(text string) string {
		if strings.Contains(text, "नमस्ते") {
			return "hindi"
		}
		return "english"
	}
	replies := map[string]string{
		"english": "canned english reply",
		"hindi":   "canned hindi reply",
	}
	return NewDemoProvider(detect, func(language string) string { return replies[language] })
}

func TestDemoProvider_RepliesInDetectedLanguage(t *testing.T) {
	p := newTestDemoProvider()

	history := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "canned english reply"},
		{Role: RoleUser, Content: "नमस्ते"},
	}
	reply, err := p.Complete(context.Background(), history, "system")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if reply != "canned hindi reply" {
		t.Fatalf("language should come from the last user turn, got %q", reply)
	}
}

func TestDemoProvider_StreamsSingleFragment(t *testing.T) {
	p := newTestDemoProvider()

	var deltas []string
	reply, err := p.CompleteStream(context.Background(),
		[]Message{{Role: RoleUser, Content: "hello"}}, "system",
		func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("CompleteStream error: %v", err)
	}
	if reply != "canned english reply" {
		t.Fatalf("reply = %q", reply)
	}
	if len(deltas) != 1 || deltas[0] != reply {
		t.Fatalf("expected the reply as one fragment, got %v", deltas)
	}
}

func TestDemoProvider_EmptyHistoryFallsBack(t *testing.T) {
	p := newTestDemoProvider()

	reply, err := p.Complete(context.Background(), nil, "system")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if reply != "canned english reply" {
		t.Fatalf("empty history should get the default-language reply, got %q", reply)
	}
}
