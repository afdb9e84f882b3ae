package knowledge

import (
	"strings"
	"unicode"
)

// Supported language keys.
const (
	LangEnglish = "english"
	LangHindi   = "hindi"
	LangMarathi = "marathi"
)

// Hindi and Marathi share the Devanagari script; a small fixed word list
// tie-breaks in favor of Marathi. This heuristic is deliberately simple and
// deterministic; Hindi/Marathi misclassification is an accepted failure mode.
var marathiMarkers = []string{"मध्ये", "आहे", "पिक"}

// DetectLanguage classifies a message as marathi, hindi, or english.
func DetectLanguage(text string) string {
	if !containsDevanagari(text) {
		return LangEnglish
	}
	for _, marker := range marathiMarkers {
		if strings.Contains(text, marker) {
			return LangMarathi
		}
	}
	return LangHindi
}

func containsDevanagari(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return true
		}
	}
	return false
}
