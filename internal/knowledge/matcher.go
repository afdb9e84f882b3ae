package knowledge

import (
	"fmt"
	"strings"
)

// Answer is a localized canned reply produced without any remote call.
type Answer struct {
	Language string
	Text     string
	Chunk    *Chunk // nil for greetings
}

// Matcher looks up canned localized answers against the static knowledge
// base. A nil result is the expected "no match" outcome, not an error; the
// caller falls back to the remote completion path.
type Matcher struct {
	base *Base
}

// NewMatcher creates a Matcher over the given knowledge base.
func NewMatcher(base *Base) *Matcher {
	return &Matcher{base: base}
}

// greetings short-circuit to a canned reply, bypassing chunk search.
var greetings = map[string]bool{
	"hello":    true,
	"hi":       true,
	"namaste":  true,
	"namaskar": true,
}

var greetingReplies = map[string]string{
	LangEnglish: "Hello! How can I help you with farming today?",
	LangHindi:   "Namaskar! Main kheti-baadi mein aapki kaise madad kar sakti hoon?",
	LangMarathi: "Namaskar! Mi sheti vishayak tumchi kai madat karu shakto?",
}

// Match returns a canned localized answer for message, or nil when nothing
// in the knowledge base applies. Matching is first-match-wins: chunks are
// scanned in document order, tags in declaration order, and the first tag
// that is a substring of the lowercased message selects its chunk.
func (m *Matcher) Match(message string) *Answer {
	language := DetectLanguage(message)
	lowered := strings.ToLower(strings.TrimSpace(message))

	if greetings[lowered] {
		return &Answer{Language: language, Text: greetingReplies[language]}
	}

	chunk := m.findChunk(lowered)
	if chunk == nil {
		return nil
	}

	return &Answer{
		Language: language,
		Text:     m.renderAnswer(chunk, language),
		Chunk:    chunk,
	}
}

func (m *Matcher) findChunk(lowered string) *Chunk {
	for i := range m.base.Chunks {
		chunk := &m.base.Chunks[i]
		for _, tag := range chunk.Metadata.QueryTags {
			if strings.Contains(lowered, strings.ToLower(tag)) {
				return chunk
			}
		}
	}
	return nil
}

// answerLabels are the per-language field labels of the templated answer.
type answerLabels struct {
	header, crop, district, zone, problem, solution string
}

var labelsByLanguage = map[string]answerLabels{
	LangEnglish: {
		header:   "Here is the information for your district:",
		crop:     "Crop",
		district: "District",
		zone:     "Agro-climatic Zone",
		problem:  "Problem",
		solution: "Solution",
	},
	LangHindi: {
		header:   "आपके जिले के अनुसार जानकारी नीचे दी गई है।",
		crop:     "फसल",
		district: "जिला",
		zone:     "कृषि-जलवायु क्षेत्र",
		problem:  "समस्या",
		solution: "समाधान",
	},
	LangMarathi: {
		header:   "तुमच्या जिल्ह्यानुसार माहिती खालीलप्रमाणे आहे.",
		crop:     "पीक",
		district: "जिल्हा",
		zone:     "कृषी-हवामान क्षेत्र",
		problem:  "समस्या",
		solution: "उपाय",
	},
}

// renderAnswer builds the templated multi-field reply: crop, district, zone
// when resolvable, problem content, and numbered solutions.
func (m *Matcher) renderAnswer(chunk *Chunk, language string) string {
	labels, ok := labelsByLanguage[language]
	if !ok {
		labels = labelsByLanguage[LangEnglish]
	}

	content := chunk.Content[language]
	if content == "" {
		content = chunk.Content[LangEnglish]
	}
	solutions := chunk.Solutions[language]
	if len(solutions) == 0 {
		solutions = chunk.Solutions[LangEnglish]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", labels.header)
	fmt.Fprintf(&b, "**%s:** %s\n", labels.crop, chunk.Metadata.Crop)
	fmt.Fprintf(&b, "**%s:** %s\n", labels.district, chunk.Metadata.District)
	if zone := m.base.ZoneForDistrict(chunk.Metadata.District); zone != "" {
		fmt.Fprintf(&b, "**%s:** %s\n", labels.zone, zone)
	}
	fmt.Fprintf(&b, "\n**%s:**\n%s\n\n", labels.problem, content)
	fmt.Fprintf(&b, "**%s:**\n", labels.solution)
	for i, s := range solutions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}
