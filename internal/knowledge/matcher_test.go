package knowledge

import (
	"strings"
	"testing"
)

func testBase(t *testing.T) *Base {
	t.Helper()
	base, err := Parse([]byte(`
agro_zones:
  "Western Maharashtra Plain Zone":
    districts: ["Pune", "Satara"]
knowledge_chunks:
  - metadata:
      district: "Pune"
      crop: "Tomato"
      zone: "Western Maharashtra Plain Zone"
      query_tags: ["tomato", "टमाटर"]
    content:
      english: "Leaf curl and yellowing are common in humid weather."
      hindi: "आर्द्र मौसम में पत्तियों का मुड़ना आम है।"
      marathi: "दमट हवामानात पाने पिवळी पडतात."
    solutions:
      english: ["Remove affected leaves", "Spray neem oil"]
      hindi: ["प्रभावित पत्तियां हटाएं", "नीम तेल छिड़कें"]
      marathi: ["प्रभावित पाने काढा", "नीम तेल फवारणी करा"]
  - metadata:
      district: "Nagpur"
      crop: "Orange"
      query_tags: ["hi-density orchard", "orange"]
    content:
      english: "Citrus greening spreads through psyllids."
    solutions:
      english: ["Control psyllid population"]
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return base
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"tomato leaves turning yellow", LangEnglish},
		{"टमाटर की पत्तियां पीली", LangHindi},
		{"पिक खराब झाले आहे", LangMarathi},
		{"शेतात मध्ये पाणी", LangMarathi},
		{"", LangEnglish},
	}
	for _, c := range cases {
		if got := DetectLanguage(c.text); got != c.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestMatch_KnownTag(t *testing.T) {
	m := NewMatcher(testBase(t))

	answer := m.Match("my tomato leaves are turning yellow")
	if answer == nil {
		t.Fatal("expected a match for 'tomato'")
	}
	if answer.Chunk == nil || answer.Chunk.Metadata.Crop != "Tomato" {
		t.Fatalf("matched wrong chunk: %+v", answer.Chunk)
	}
	if answer.Language != LangEnglish {
		t.Errorf("Language = %q, want english", answer.Language)
	}
	if !strings.Contains(answer.Text, "Western Maharashtra Plain Zone") {
		t.Error("answer should include the resolved agro-climatic zone")
	}
	if !strings.Contains(answer.Text, "1. Remove affected leaves") {
		t.Error("answer should include numbered solutions")
	}
}

func TestMatch_CaseInsensitiveAndDeterministic(t *testing.T) {
	m := NewMatcher(testBase(t))

	first := m.Match("TOMATO price today")
	if first == nil {
		t.Fatal("expected a match regardless of casing")
	}
	for i := 0; i < 5; i++ {
		again := m.Match("TOMATO price today")
		if again == nil || again.Text != first.Text {
			t.Fatal("Match must be deterministic for repeated identical input")
		}
	}
}

func TestMatch_FirstMatchWins(t *testing.T) {
	m := NewMatcher(testBase(t))

	// Both the tomato and orange chunks could claim this message; document
	// order decides.
	answer := m.Match("tomato and orange intercropping")
	if answer == nil || answer.Chunk.Metadata.Crop != "Tomato" {
		t.Fatalf("first chunk in document order should win, got %+v", answer)
	}
}

func TestMatch_GreetingShortCircuit(t *testing.T) {
	m := NewMatcher(testBase(t))

	// "hi" is a substring of the second chunk's "hi-density orchard" tag;
	// the greeting path must win without consulting any chunk.
	for _, greeting := range []string{"hi", "HI", "Hello", "namaste", "Namaskar"} {
		answer := m.Match(greeting)
		if answer == nil {
			t.Fatalf("greeting %q should produce a canned reply", greeting)
		}
		if answer.Chunk != nil {
			t.Fatalf("greeting %q must bypass chunk search, matched %+v", greeting, answer.Chunk)
		}
	}

	if m.Match("hi").Text != greetingReplies[LangEnglish] {
		t.Error("english greeting should get the english canned reply")
	}
}

func TestMatch_NoMatchIsNil(t *testing.T) {
	m := NewMatcher(testBase(t))
	if answer := m.Match("explain PM Kisan scheme"); answer != nil {
		t.Fatalf("unrelated message should not match, got %+v", answer)
	}
}

func TestMatch_MarathiRendering(t *testing.T) {
	m := NewMatcher(testBase(t))

	answer := m.Match("माझे टमाटर पिक खराब आहे")
	if answer == nil {
		t.Fatal("devanagari tag should match")
	}
	if answer.Language != LangMarathi {
		t.Fatalf("Language = %q, want marathi", answer.Language)
	}
	if !strings.Contains(answer.Text, "उपाय") {
		t.Error("marathi answer should use marathi labels")
	}
}

func TestZoneForDistrict_Unknown(t *testing.T) {
	base := testBase(t)
	if zone := base.ZoneForDistrict("Nagpur"); zone != "" {
		t.Errorf("ZoneForDistrict(Nagpur) = %q, want empty", zone)
	}
}
