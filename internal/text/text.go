// Package text contains the pure string heuristics used across the pipeline:
// sentence normalization, sentence splitting, token extraction, and token
// diversity scoring.
package text

import (
	"strings"
	"unicode"
)

// MaxSentenceLen is the cap applied to every derived sentence field.
const MaxSentenceLen = 180

// SafeSentence collapses whitespace, trims, caps at MaxSentenceLen runes, and
// ensures the result ends with terminal punctuation. An empty input yields
// the fallback unchanged.
func SafeSentence(value, fallback string) string {
	normalized := strings.Join(strings.Fields(value), " ")
	if normalized == "" {
		return fallback
	}

	runes := []rune(normalized)
	if len(runes) > MaxSentenceLen {
		runes = runes[:MaxSentenceLen]
	}
	capped := string(runes)
	if isTerminal(runes[len(runes)-1]) {
		return capped
	}
	return capped + "."
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// SplitSentences splits on `.`/`!`/`?` boundaries followed by whitespace,
// trimming each part and dropping empties.
func SplitSentences(value string) []string {
	var sentences []string
	runes := []rune(value)
	start := 0
	for i := 0; i < len(runes); i++ {
		if isTerminal(runes[i]) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Tokens lowercases the input, replaces every non-alphanumeric rune with a
// space, and returns the resulting words of at least minLen runes.
func Tokens(value string, minLen int) []string {
	lowered := strings.ToLower(value)
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, lowered)

	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) >= minLen {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// StripCodeFences removes a surrounding markdown code block, which completion
// services frequently wrap JSON responses in.
func StripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	lines := strings.Split(raw, "\n")
	if len(lines) < 2 {
		return ""
	}
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}

// Diversity returns the unique-token ratio of the given tokens, 0 for an
// empty slice.
func Diversity(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		seen[tok] = struct{}{}
	}
	return float64(len(seen)) / float64(len(tokens))
}
