package service

import (
	"context"
	"strings"
	"testing"

	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/krishimitra/krishimitra-api/internal/testutil"
)

func newSchemeService(completion *testutil.MockCompletionProvider, bookmarks *testutil.MockBookmarkRepo) *SchemeService {
	cfg := &config.Config{
		Prompts: &config.Prompts{
			Scheme: config.SchemePrompts{
				Explain: config.PromptPair{
					System: "explain government schemes simply",
					User:   "Explain {{.SchemeName}} in {{.Language}}",
				},
				Recommend: config.PromptPair{
					System: "recommend schemes",
					User:   "State {{.State}}, {{.LandAcres}} acres, crops {{.Crops}}, reply in {{.Language}}",
				},
			},
		},
	}
	if bookmarks == nil {
		bookmarks = &testutil.MockBookmarkRepo{}
	}
	return NewSchemeService(cfg, completion, bookmarks)
}

func TestExplainScheme_RendersTemplateAndStreams(t *testing.T) {
	var gotPrompt, gotSystem string
	completion := &testutil.MockCompletionProvider{
		CompleteStreamFn: func(ctx context.Context, history []ai.Message, systemPrompt string, onDelta func(string)) (string, error) {
			gotPrompt = history[0].Content
			gotSystem = systemPrompt
			onDelta("PM Kisan provides ")
			onDelta("income support.")
			return "PM Kisan provides income support.", nil
		},
	}
	svc := newSchemeService(completion, nil)

	var deltas []string
	text, err := svc.ExplainScheme(context.Background(), "PM Kisan", "hi", func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("ExplainScheme error: %v", err)
	}
	if gotPrompt != "Explain PM Kisan in hi" {
		t.Errorf("user prompt = %q", gotPrompt)
	}
	if gotSystem != "explain government schemes simply" {
		t.Errorf("system prompt = %q", gotSystem)
	}
	if len(deltas) != 2 || !strings.HasSuffix(text, "income support.") {
		t.Fatalf("stream not forwarded: deltas=%v text=%q", deltas, text)
	}
}

func TestExplainScheme_RequiresName(t *testing.T) {
	svc := newSchemeService(&testutil.MockCompletionProvider{}, nil)
	if _, err := svc.ExplainScheme(context.Background(), "  ", "en", func(string) {}); err == nil {
		t.Fatal("blank scheme name accepted")
	}
}

func TestRecommendSchemes_RendersProfile(t *testing.T) {
	var gotPrompt string
	completion := &testutil.MockCompletionProvider{
		CompleteFn: func(ctx context.Context, history []ai.Message, systemPrompt string) (string, error) {
			gotPrompt = history[0].Content
			return "1. PM Kisan\n2. PMFBY", nil
		},
	}
	svc := newSchemeService(completion, nil)

	out, err := svc.RecommendSchemes(context.Background(), FarmerProfile{
		State:     "Maharashtra",
		LandAcres: 2.5,
		Crops:     "tomato, onion",
	})
	if err != nil {
		t.Fatalf("RecommendSchemes error: %v", err)
	}
	if gotPrompt != "State Maharashtra, 2.5 acres, crops tomato, onion, reply in en" {
		t.Errorf("user prompt = %q", gotPrompt)
	}
	if !strings.Contains(out, "PM Kisan") {
		t.Fatalf("unexpected recommendation: %q", out)
	}
}

func TestBookmarkScheme(t *testing.T) {
	var saved *models.SchemeBookmark
	bookmarks := &testutil.MockBookmarkRepo{
		CreateBookmarkFn: func(b *models.SchemeBookmark) (*models.SchemeBookmark, error) {
			saved = b
			return b, nil
		},
	}
	svc := newSchemeService(&testutil.MockCompletionProvider{}, bookmarks)

	if _, err := svc.BookmarkScheme(7, " PMFBY ", "crop insurance"); err != nil {
		t.Fatalf("BookmarkScheme error: %v", err)
	}
	if saved.DeviceID != 7 || saved.SchemeName != "PMFBY" {
		t.Fatalf("bookmark not normalized: %+v", saved)
	}

	if _, err := svc.BookmarkScheme(7, "   ", ""); err == nil {
		t.Fatal("blank scheme name accepted")
	}
}
