package reply

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	excessBlankLines = regexp.MustCompile(`\n{3,}`)

	// An East-Asian sentence ending followed by a single newline and a line
	// that is not already a structural element (heading, list, blank)
	eastAsianBreak = regexp.MustCompile(`([。！？])\n([^\n#0-9\-*•・])`)

	orderedMarker = regexp.MustCompile(`(?m)^[ \t]*(\d+)[.)][ \t]*`)
	bulletMarker  = regexp.MustCompile(`(?m)^[ \t]*[-*・][ \t]+`)
)

// closingPhrases mark a reply that already ends with an invitation to follow
// up, in either language the platform serves
var closingPhrases = []string{
	"please let us know",
	"feel free to",
	"anything else",
	"happy to help",
	"お気軽に",
	"ご不明な点",
}

const defaultClosing = "If you have any further questions, please feel free to contact us."

// PostProcess normalizes generated text. Transforms run in a fixed order and
// later steps inspect the output of earlier ones. The result is stable:
// applying PostProcess to its own output changes nothing.
func PostProcess(text, query string) string {
	text = strings.TrimSpace(text)

	// (a) collapse runs of blank lines to a single blank line
	text = excessBlankLines.ReplaceAllString(text, "\n\n")

	// (b) ensure a blank line after an East-Asian sentence ending
	text = eastAsianBreak.ReplaceAllString(text, "$1\n\n$2")

	// (c) normalize list markers
	text = orderedMarker.ReplaceAllString(text, "$1. ")
	text = bulletMarker.ReplaceAllString(text, "• ")

	// (d) append a closing sentence when none is present
	if !hasClosing(text) {
		text = text + "\n\n" + defaultClosing
	}

	// (e) prepend a transition when the reply never touches the query terms
	if !mentionsQuery(text, query) {
		text = fmt.Sprintf("Regarding your question \"%s\":\n\n%s", query, text)
	}

	return text
}

func hasClosing(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range closingPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// mentionsQuery reports whether any content token of the query appears in
// the reply. Tokens are whitespace-separated words with punctuation stripped,
// longer than one rune.
func mentionsQuery(text, query string) bool {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, token := range tokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func queryTokens(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r)
	})

	var tokens []string
	for _, field := range fields {
		token := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if utf8.RuneCountInString(token) > 1 {
			tokens = append(tokens, strings.ToLower(token))
		}
	}
	return tokens
}
