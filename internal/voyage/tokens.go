package voyage

import (
	"math"
	"unicode"
)

// Token estimation divisors. CJK text carries more information per
// character, so it is counted at 1.5 chars/token versus 2.5 for everything
// else. This is an approximation used only for batching and rate-limit
// accounting; it does not match the provider's tokenizer.
const (
	cjkCharsPerToken   = 1.5
	otherCharsPerToken = 2.5
)

// EstimateTokens approximates the provider token count of text.
func EstimateTokens(text string) int {
	var cjk, other int
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	tokens := float64(cjk)/cjkCharsPerToken + float64(other)/otherCharsPerToken
	return int(math.Ceil(tokens))
}

// EstimateTotalTokens sums the estimate over texts.
func EstimateTotalTokens(texts []string) int {
	total := 0
	for _, t := range texts {
		total += EstimateTokens(t)
	}
	return total
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
