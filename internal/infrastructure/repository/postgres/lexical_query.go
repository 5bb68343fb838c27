package postgres

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxQueryTokens = 24

// buildPrefixQuery turns free text into an OR-ed prefix tsquery such as
// "prakran:* | 14:*". Only letters, digits and marks survive, so the result
// never carries tsquery operators from user input.
func buildPrefixQuery(text string) string {
	tokens := splitSearchTokens(text)
	if len(tokens) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tokens))
	for _, token := range tokens {
		parts = append(parts, token+":*")
	}
	return strings.Join(parts, " | ")
}

func splitSearchTokens(s string) []string {
	if s == "" {
		return nil
	}

	seen := make(map[string]struct{})
	tokens := make([]string, 0, 16)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		token := b.String()
		b.Reset()
		if utf8.RuneCountInString(token) < 2 && !isDigits(token) {
			return
		}
		if _, dup := seen[token]; dup {
			return
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}

	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			b.WriteRune(r)
			continue
		}
		flush()
		if len(tokens) >= maxQueryTokens {
			return tokens
		}
	}
	flush()
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	return tokens
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
