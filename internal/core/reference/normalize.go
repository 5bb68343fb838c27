package reference

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Zero code points of the decimal digit blocks folded to ASCII.
var digitZeros = []rune{
	0x0660, // Arabic-Indic
	0x06F0, // Extended Arabic-Indic
	0x0966, // Devanagari
	0x09E6, // Bengali
	0x0A66, // Gurmukhi
	0x0AE6, // Gujarati
	0x0B66, // Oriya
	0x0BE6, // Tamil
	0x0C66, // Telugu
	0x0CE6, // Kannada
	0x0D66, // Malayalam
}

// Normalize folds query text into the form every matcher runs against:
// NFKC, Latin transliteration marks removed, lower-cased, script digits
// unified to ASCII and whitespace collapsed.
func Normalize(text string) string {
	s := norm.NFKC.String(text)
	s = stripLatinMarks(s)
	s = strings.ToLower(s)
	s = unifyDigits(s)
	return strings.Join(strings.Fields(s), " ")
}

// stripLatinMarks drops combining marks that sit on Latin letters (ā, ṇ, ī)
// and keeps the vowel signs and nukta of Indic scripts.
func stripLatinMarks(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	latinBase := false
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			if latinBase {
				continue
			}
			b.WriteRune(r)
			continue
		}
		latinBase = unicode.Is(unicode.Latin, r)
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

func unifyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 || !unicode.IsDigit(r) {
			return r
		}
		for _, zero := range digitZeros {
			if r >= zero && r <= zero+9 {
				return '0' + (r - zero)
			}
		}
		return r
	}, s)
}

// foldKey is the transliteration-tolerant comparison key for book names.
func foldKey(s string) string {
	s = strings.ToLower(stripLatinMarks(norm.NFKC.String(s)))
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}
	replacer := strings.NewReplacer(
		"aa", "a",
		"ee", "i",
		"ii", "i",
		"oo", "u",
		"uu", "u",
		"sh", "s",
		"w", "v",
	)
	return replacer.Replace(b.String())
}

// stripHonorific removes a leading "shri"/"shree"/"sri" from a folded key.
// Short remainders are kept whole so "shringar" does not become "ngar".
func stripHonorific(key string) string {
	rest, ok := strings.CutPrefix(key, "sri")
	if !ok || len([]rune(rest)) < 5 {
		return key
	}
	return rest
}

// honorificFreeKey folds a catalog spelling without its leading honorific
// word, so "ShriSingaar" is also registered as "singar".
func honorificFreeKey(spelling string) string {
	words := strings.Fields(splitCamel(spelling))
	if len(words) < 2 || foldKey(words[0]) != "sri" {
		return ""
	}
	return foldKey(strings.Join(words[1:], ""))
}

// splitCamel turns "ShriSingaar" into "Shri Singaar".
func splitCamel(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
