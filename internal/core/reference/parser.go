package reference

import (
	"sort"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

// ParseResult is the parser output for one query.
type ParseResult struct {
	Normalized string
	Candidates []domain.ReferenceCandidate
	// Reference combines every accepted non-ambiguous candidate.
	Reference domain.StructuralReference
	Intent    domain.QueryIntent
	// Dropped lists hits that lost their slot to a higher-precedence class.
	Dropped []Match
}

// HasAmbiguity reports whether any bare number was left unassigned.
func (r ParseResult) HasAmbiguity() bool {
	for _, c := range r.Candidates {
		if c.Class == domain.ClassAmbiguous {
			return true
		}
	}
	return false
}

type Parser struct {
	matchers []Matcher
}

func NewParser(matchers ...Matcher) *Parser {
	return &Parser{matchers: matchers}
}

// NewDefaultParser builds a parser with the standard precedence list.
func NewDefaultParser(books []domain.Book) *Parser {
	return NewParser(DefaultMatchers(books)...)
}

type rankedMatch struct {
	Match
	precedence int
}

// Parse never fails; text without references yields no candidates.
func (p *Parser) Parse(text string) ParseResult {
	normalized := Normalize(text)
	result := ParseResult{Normalized: normalized, Intent: domain.IntentGeneralQA}
	if normalized == "" {
		return result
	}

	var raw []rankedMatch
	for precedence, matcher := range p.matchers {
		for _, hit := range matcher.Match(normalized) {
			raw = append(raw, rankedMatch{Match: hit, precedence: precedence})
		}
	}

	survivors := settleOverlaps(raw)
	accepted, dropped := claimSlots(survivors)
	result.Dropped = dropped

	var book *rankedMatch
	structural := make([]rankedMatch, 0, len(accepted))
	for i := range accepted {
		if accepted[i].Slots == SlotBook {
			if book == nil {
				book = &accepted[i]
			}
			continue
		}
		structural = append(structural, accepted[i])
	}

	for _, hit := range structural {
		candidate := domain.ReferenceCandidate{
			Class:     hit.Class,
			Reference: hit.Reference,
			Spans:     []domain.Span{hit.Span},
		}
		if book != nil {
			candidate.Reference.Book = book.Reference.Book
			candidate.Spans = append(candidate.Spans, book.Span)
		}
		result.Candidates = append(result.Candidates, candidate)
		result.Reference = mergeReference(result.Reference, hit.Reference)
	}
	if book != nil {
		result.Reference.Book = book.Reference.Book
		if len(structural) == 0 {
			result.Candidates = append(result.Candidates, domain.ReferenceCandidate{
				Class:     domain.ClassNamedSection,
				Reference: book.Reference,
				Spans:     []domain.Span{book.Span},
			})
		}
	}

	result.Candidates = append(result.Candidates, ambiguousNumbers(normalized, survivors)...)
	result.Intent = detectIntent(normalized, result.Reference)
	return result
}

// settleOverlaps removes hits nested strictly inside a longer hit, then walks
// the rest by precedence, start and length and keeps each hit that does not
// overlap one already kept.
func settleOverlaps(hits []rankedMatch) []rankedMatch {
	outer := make([]rankedMatch, 0, len(hits))
	for i, hit := range hits {
		nested := false
		for j, other := range hits {
			if i != j && contains(other.Span, hit.Span) && other.length() > hit.length() {
				nested = true
				break
			}
		}
		if !nested {
			outer = append(outer, hit)
		}
	}

	sort.SliceStable(outer, func(i, j int) bool { return beats(outer[i], outer[j]) })
	kept := make([]rankedMatch, 0, len(outer))
	for _, hit := range outer {
		free := true
		for _, k := range kept {
			if overlaps(k.Span, hit.Span) {
				free = false
				break
			}
		}
		if free {
			kept = append(kept, hit)
		}
	}
	return kept
}

func beats(a, b rankedMatch) bool {
	if a.precedence != b.precedence {
		return a.precedence < b.precedence
	}
	if a.Span.Start != b.Span.Start {
		return a.Span.Start < b.Span.Start
	}
	return a.length() > b.length()
}

// claimSlots walks hits in precedence order; the first hit to fill a slot wins
// it and later hits carrying a different value for that slot are dropped.
func claimSlots(hits []rankedMatch) (accepted []rankedMatch, dropped []Match) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].precedence != hits[j].precedence {
			return hits[i].precedence < hits[j].precedence
		}
		return hits[i].Span.Start < hits[j].Span.Start
	})

	var claimed domain.StructuralReference
	var claimedSlots Slot
	for _, hit := range hits {
		if conflicts(claimed, claimedSlots, hit) {
			dropped = append(dropped, hit.Match)
			continue
		}
		claimed = mergeReference(claimed, hit.Reference)
		claimedSlots |= hit.Slots
		accepted = append(accepted, hit)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Span.Start < accepted[j].Span.Start
	})
	return accepted, dropped
}

func conflicts(claimed domain.StructuralReference, slots Slot, hit rankedMatch) bool {
	ref := hit.Reference
	if hit.Slots&SlotBook != 0 && slots&SlotBook != 0 && claimed.Book != ref.Book {
		return true
	}
	if hit.Slots&SlotSection != 0 && slots&SlotSection != 0 &&
		(claimed.Section != ref.Section || claimed.Range != ref.Range) {
		return true
	}
	if hit.Slots&SlotVerse != 0 && slots&SlotVerse != 0 &&
		(claimed.RelativeVerse != ref.RelativeVerse || claimed.Verse != ref.Verse) {
		return true
	}
	return false
}

// mergeReference fills unresolved fields of base from extra.
func mergeReference(base, extra domain.StructuralReference) domain.StructuralReference {
	if !base.Book.IsResolved() && extra.Book.IsResolved() {
		base.Book = extra.Book
	}
	if !base.HasSection() {
		if extra.Range.IsResolved() {
			base.Range = extra.Range
		} else if extra.Section.IsResolved() {
			base.Section = extra.Section
		}
	}
	if !base.Verse.IsResolved() && extra.Verse.IsResolved() {
		base.Verse = extra.Verse
	}
	if !base.RelativeVerse.IsResolved() && extra.RelativeVerse.IsResolved() {
		base.RelativeVerse = extra.RelativeVerse
	}
	return base
}

// ambiguousNumbers reports bare numbers that no surviving hit consumed. Such a number
// could be a section or a verse, so neither role is assigned.
func ambiguousNumbers(text string, hits []rankedMatch) []domain.ReferenceCandidate {
	var out []domain.ReferenceCandidate
	for _, loc := range bareNumberRe.FindAllStringIndex(text, -1) {
		span := domain.Span{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]}
		covered := false
		for _, hit := range hits {
			if contains(hit.Span, span) {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		n, ok := parseNumber(span.Text, maxVerseDigits)
		if !ok {
			continue
		}
		out = append(out, domain.ReferenceCandidate{
			Class: domain.ClassAmbiguous,
			Reference: domain.StructuralReference{
				Section:       domain.Ambiguous(n),
				RelativeVerse: domain.Ambiguous(n),
			},
			Spans: []domain.Span{span},
		})
	}
	return out
}

func overlaps(a, b domain.Span) bool {
	return a.Start < b.End && b.Start < a.End
}

func contains(outer, inner domain.Span) bool {
	return outer.Start <= inner.Start && inner.End <= outer.End
}
