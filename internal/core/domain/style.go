package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// AnswerStyle is the language and script an answer is written in.
type AnswerStyle string

const (
	StyleHindi         AnswerStyle = "hi"
	StyleGujarati      AnswerStyle = "gu"
	StyleEnglish       AnswerStyle = "en"
	StyleHindiLatin    AnswerStyle = "hi_latn"
	StyleGujaratiLatin AnswerStyle = "gu_latn"

	// StyleAuto follows the script of the question.
	StyleAuto = "auto"
)

var (
	devanagariBlock = &unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0900, Hi: 0x097F, Stride: 1}}}
	gujaratiBlock   = &unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0A80, Hi: 0x0AFF, Stride: 1}}}

	hindiLatinWords    = wordSet("kaise", "kya", "kyu", "nahi", "hai", "aap", "tum", "bhagwan", "prarthana")
	gujaratiLatinWords = wordSet("kem", "cho", "shu", "tame", "hu", "bhagvan", "chhe", "mara")
)

func wordSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

// DetectStyle picks the answer style from the script mix of text. Native
// script wins when it outnumbers the other Indic script and is at least as
// frequent as Latin letters; romanized text is told apart by common words.
func DetectStyle(text string) AnswerStyle {
	var devanagari, gujarati, latin int
	for _, r := range text {
		switch {
		case unicode.Is(devanagariBlock, r):
			devanagari++
		case unicode.Is(gujaratiBlock, r):
			gujarati++
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		}
	}
	if devanagari > gujarati && devanagari >= latin {
		return StyleHindi
	}
	if gujarati > devanagari && gujarati >= latin {
		return StyleGujarati
	}

	var hindi, guj int
	seen := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r >= unicode.MaxASCII || !unicode.IsLetter(r)
	}) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := hindiLatinWords[w]; ok {
			hindi++
		}
		if _, ok := gujaratiLatinWords[w]; ok {
			guj++
		}
	}
	switch {
	case guj > hindi:
		return StyleGujaratiLatin
	case hindi > 0:
		return StyleHindiLatin
	default:
		return StyleEnglish
	}
}

// ResolveStyle applies a requested style mode to the question text. An empty
// mode or "auto" detects the style; an unknown mode is invalid input.
func ResolveStyle(mode, question string) (AnswerStyle, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" || mode == StyleAuto {
		return DetectStyle(question), nil
	}
	switch style := AnswerStyle(mode); style {
	case StyleHindi, StyleGujarati, StyleEnglish, StyleHindiLatin, StyleGujaratiLatin:
		return style, nil
	}
	return "", WrapError(ErrInvalidInput, "resolve style", fmt.Errorf("unknown style mode %q", mode))
}

// Instruction tells the composer which language and script to answer in.
func (s AnswerStyle) Instruction() string {
	switch s {
	case StyleHindi:
		return "Answer in Hindi written in Devanagari script."
	case StyleGujarati:
		return "Answer in Gujarati written in Gujarati script."
	case StyleHindiLatin:
		return "Answer in Hindi written in Latin letters (Hinglish)."
	case StyleGujaratiLatin:
		return "Answer in Gujarati written in Latin letters."
	default:
		return "Answer in English."
	}
}
