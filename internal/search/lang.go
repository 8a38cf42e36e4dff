package search

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// langCodes normalizes ISO 639-3 codes (and the aliases lingua may emit
// for Chinese variants) to the two-letter codes used in variant
// descriptors.
var langCodes = map[string]string{
	"zho": "zh",
	"cmn": "zh",
	"lzh": "zh",
	"eng": "en",
	"jpn": "ja",
}

// The detector loads its language models once per process.
var sharedDetector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.Chinese, lingua.English, lingua.Japanese).
		WithMinimumRelativeDistance(0.25).
		Build()
})

// DetectLanguage classifies text as zh, en, or ja. ok is false when the
// detector cannot decide with enough confidence.
func DetectLanguage(text string) (string, bool) {
	lang, exists := sharedDetector().DetectLanguageOf(text)
	if !exists {
		return "", false
	}
	code, ok := langCodes[strings.ToLower(lang.IsoCode639_3().String())]
	return code, ok
}

// NormalizeLangCode maps an ISO 639-3 code or alias to its two-letter
// form. Codes already in two-letter form pass through lowercased.
func NormalizeLangCode(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if mapped, ok := langCodes[c]; ok {
		return mapped
	}
	return c
}
