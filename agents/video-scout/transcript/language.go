package transcript

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// candidates are the languages the detector chooses between. Anything not
// kept still needs to be recognisable so it is not forced into a kept one.
var candidates = []lingua.Language{
	lingua.English,
	lingua.Portuguese,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Dutch,
	lingua.Polish,
	lingua.Russian,
	lingua.Turkish,
	lingua.Arabic,
	lingua.Hindi,
	lingua.Indonesian,
	lingua.Vietnamese,
	lingua.Japanese,
	lingua.Korean,
	lingua.Chinese,
}

// LanguageFilter keeps text whose detected language is in an allow list of
// ISO 639-1 codes.
type LanguageFilter struct {
	detector lingua.LanguageDetector
	keep     map[string]bool
}

func NewLanguageFilter(keep []string) *LanguageFilter {
	allowed := make(map[string]bool, len(keep))
	for _, code := range keep {
		allowed[strings.ToLower(strings.TrimSpace(code))] = true
	}
	return &LanguageFilter{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(candidates...).Build(),
		keep:     allowed,
	}
}

// Detect returns the lower-case ISO 639-1 code of text, or "" when the
// language cannot be told.
func (l *LanguageFilter) Detect(text string) string {
	language, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(language.IsoCode639_1().String())
}

// Keep reports whether text is in one of the allowed languages.
func (l *LanguageFilter) Keep(text string) bool {
	code := l.Detect(text)
	return code != "" && l.keep[code]
}
