package generation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentenceTerminators covers both ASCII and East-Asian sentence endings
const sentenceTerminators = ".!?。！？"

// Complexity scores the linguistic complexity of a query in [0, 1]. It is a
// deterministic pure function of the input string: a weighted sum of length,
// special-character density, and sentence count, each clamped before
// summation. A heuristic, not an NLP model.
func Complexity(query string) float64 {
	lengthScore := clamp(float64(utf8.RuneCountInString(query))/200, 0.5)
	specialScore := clamp(float64(countSpecialRunes(query))/10, 0.2)
	sentenceScore := clamp(float64(countSentences(query)+1)/5, 0.3)

	return clamp(lengthScore+specialScore+sentenceScore, 1)
}

func clamp(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}

// countSpecialRunes counts punctuation and symbol runes. Letters, digits,
// whitespace and underscore are word characters in any script.
func countSpecialRunes(s string) int {
	count := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || r == '_' {
			continue
		}
		count++
	}
	return count
}

func countSentences(s string) int {
	count := 0
	for _, r := range s {
		if strings.ContainsRune(sentenceTerminators, r) {
			count++
		}
	}
	return count
}
