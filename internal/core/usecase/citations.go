package usecase

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

const (
	citationVerseLines    = 2
	citationContextRunes  = 280
	garbledRatioThreshold = 0.015
	unreadableMeaning     = "Meaning text for this passage is not readable in the source document."
)

// Marker runes left behind by legacy-font extraction of Indic text.
const garbledMarkers = "Ÿ¢£¤¥¦§¨©ª«¬®±²³´µ¶·¸¹º»¼½¾¿ÐÑÒÓÔÕÖ×ØÙÚÛÜÝÞß"

func buildCitations(hits []domain.RetrievalHit) []domain.Citation {
	out := make([]domain.Citation, 0, len(hits))
	for _, hit := range hits {
		chunk := hit.Chunk
		lines := chunk.VerseLines
		if len(lines) > citationVerseLines {
			lines = lines[:citationVerseLines]
		}
		out = append(out, domain.Citation{
			ChunkID:     chunk.ID,
			Book:        chunk.Book,
			Section:     chunk.Section,
			SectionName: chunk.SectionName,
			VerseNumber: chunk.VerseNumber,
			VerseLines:  append([]string(nil), lines...),
			Meaning:     readableOr(chunk.Meaning, unreadableMeaning),
			PageNumber:  chunk.PageNumber,
			SourcePath:  chunk.SourcePath,
			Score:       hit.Score,
			PrevContext: trimRunes(chunk.PrevContext, citationContextRunes),
			NextContext: trimRunes(chunk.NextContext, citationContextRunes),
		})
	}
	return out
}

// garbledRatio is the share of mojibake markers and control characters in text.
func garbledRatio(text string) float64 {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return 0
	}
	bad := 0
	for _, r := range text {
		switch {
		case strings.ContainsRune(garbledMarkers, r):
			bad++
		case r < 32 && r != '\n' && r != '\t' && r != '\r':
			bad++
		}
	}
	return float64(bad) / float64(total)
}

func readableOr(text, fallback string) string {
	text = strings.TrimSpace(text)
	if text == "" || garbledRatio(text) >= garbledRatioThreshold {
		return fallback
	}
	return text
}

func trimRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
