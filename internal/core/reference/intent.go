package reference

import (
	"strings"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

var summaryHints = map[string]struct{}{
	"summary": {}, "summarize": {}, "summarise": {}, "explain": {}, "explanation": {},
	"samjhao": {}, "samjhaao": {}, "saransh": {}, "saar": {}, "kya": {}, "bataya": {},
	"shu": {}, "kahyu": {}, "kahe": {}, "सार": {}, "सारांश": {}, "સાર": {}, "સારાંશ": {},
}

var countHints = map[string]struct{}{
	"count": {}, "howmany": {}, "kitni": {}, "kitne": {}, "ketli": {}, "ketla": {},
	"number": {}, "total": {}, "कितनी": {}, "કેટલી": {}, "કેટલા": {},
}

func detectIntent(normalized string, ref domain.StructuralReference) domain.QueryIntent {
	words := splitWords(normalized)
	tokens := make([]string, 0, len(words)+1)
	for i, w := range words {
		tokens = append(tokens, w.text)
		if i > 0 && words[i-1].text == "how" && (w.text == "many" || w.text == "much") {
			tokens = append(tokens, "howmany")
		}
	}

	asksVerse := false
	asksSection := false
	summary := false
	count := false
	for _, token := range tokens {
		if verseKeywordRe.MatchString(token) {
			asksVerse = true
		}
		if sectionKeywordRe.MatchString(token) {
			asksSection = true
		}
		if _, ok := summaryHints[token]; ok {
			summary = true
		}
		if _, ok := countHints[token]; ok {
			count = true
		}
	}
	if !asksVerse {
		asksVerse = strings.Contains(normalized, "chopai") || strings.Contains(normalized, "chaupai")
	}

	switch {
	case count && asksVerse:
		return domain.IntentCountVerses
	case (ref.RelativeVerse.IsResolved() || ref.Verse.IsResolved()) && (asksVerse || asksSection):
		return domain.IntentSpecificVerse
	case ref.Range.IsResolved():
		return domain.IntentSectionRangeSummary
	case ref.Section.IsResolved() && summary:
		return domain.IntentSectionSummary
	default:
		return domain.IntentGeneralQA
	}
}
