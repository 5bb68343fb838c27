package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldState tags every field of a StructuralReference.
type FieldState int

const (
	FieldUnresolved FieldState = iota
	FieldResolved
	FieldAmbiguous
)

func (s FieldState) String() string {
	switch s {
	case FieldResolved:
		return "resolved"
	case FieldAmbiguous:
		return "ambiguous"
	default:
		return "unresolved"
	}
}

func (s FieldState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *FieldState) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "resolved":
		*s = FieldResolved
	case "ambiguous":
		*s = FieldAmbiguous
	case "", "unresolved":
		*s = FieldUnresolved
	default:
		return fmt.Errorf("unknown field state %q", string(text))
	}
	return nil
}

type Field[T comparable] struct {
	State FieldState `json:"state"`
	Value T          `json:"value,omitempty"`
}

func Resolved[T comparable](v T) Field[T] {
	return Field[T]{State: FieldResolved, Value: v}
}

func Ambiguous[T comparable](v T) Field[T] {
	return Field[T]{State: FieldAmbiguous, Value: v}
}

func (f Field[T]) IsResolved() bool {
	return f.State == FieldResolved
}

// SectionRange is an inclusive section span.
type SectionRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r SectionRange) Normalized() SectionRange {
	if r.Start > r.End {
		return SectionRange{Start: r.End, End: r.Start}
	}
	return r
}

func (r SectionRange) Contains(section int) bool {
	n := r.Normalized()
	return section >= n.Start && section <= n.End
}

func (r SectionRange) IsSingle() bool {
	return r.Start == r.End
}

// StructuralReference is a partial book/section/verse filter over chunks.
// Section and Range are mutually exclusive once resolved.
type StructuralReference struct {
	Book          Field[string]       `json:"book"`
	Section       Field[int]          `json:"section"`
	Range         Field[SectionRange] `json:"section_range"`
	Verse         Field[string]       `json:"verse"`
	RelativeVerse Field[int]          `json:"relative_verse"`
}

// IsEmpty reports whether no field is resolved; empty references do not filter.
func (r StructuralReference) IsEmpty() bool {
	return !r.Book.IsResolved() &&
		!r.Section.IsResolved() &&
		!r.Range.IsResolved() &&
		!r.Verse.IsResolved() &&
		!r.RelativeVerse.IsResolved()
}

func (r StructuralReference) HasSection() bool {
	return r.Section.IsResolved() || r.Range.IsResolved()
}

// SectionBounds returns the inclusive section span the reference pins, if any.
func (r StructuralReference) SectionBounds() (SectionRange, bool) {
	switch {
	case r.Range.IsResolved():
		return r.Range.Value.Normalized(), true
	case r.Section.IsResolved():
		return SectionRange{Start: r.Section.Value, End: r.Section.Value}, true
	default:
		return SectionRange{}, false
	}
}

// SectionNumbers expands the pinned sections, capping ranges at maxSpan sections past the start.
func (r StructuralReference) SectionNumbers(maxSpan int) []int {
	bounds, ok := r.SectionBounds()
	if !ok {
		return nil
	}
	end := bounds.End
	if maxSpan > 0 && end-bounds.Start > maxSpan {
		end = bounds.Start + maxSpan
	}
	out := make([]int, 0, end-bounds.Start+1)
	for n := bounds.Start; n <= end; n++ {
		out = append(out, n)
	}
	return out
}

const (
	sectionHint = "prakran"
	maxHintSpan = 8
)

var verseHints = [2]string{"chopai", "chaupai"}

// SearchHints spells the resolved parts of the reference in the vocabulary
// Chunk.SearchText indexes, so an inherited or overridden reference still
// reaches the lexical index. Ranges are expanded up to eight sections past
// the start.
func (r StructuralReference) SearchHints() string {
	var hints []string
	if r.Book.IsResolved() {
		hints = append(hints, r.Book.Value)
	}
	for _, n := range r.SectionNumbers(maxHintSpan) {
		hints = append(hints, sectionHint+" "+strconv.Itoa(n))
	}
	if r.RelativeVerse.IsResolved() {
		n := strconv.Itoa(r.RelativeVerse.Value)
		hints = append(hints, verseHints[0]+" "+n, verseHints[1]+" "+n)
	}
	if r.Verse.IsResolved() {
		hints = append(hints, strings.TrimSpace(r.Verse.Value))
	}
	return strings.Join(hints, " ")
}

// Matches is the hard structural filter. A chunk is dropped when any resolved
// field conflicts with it; a chunk with unknown section never satisfies a
// section constraint.
func (r StructuralReference) Matches(chunk Chunk) bool {
	if r.Book.IsResolved() && !strings.EqualFold(strings.TrimSpace(chunk.Book), strings.TrimSpace(r.Book.Value)) {
		return false
	}

	bounds, hasSection := r.SectionBounds()
	if hasSection {
		if chunk.Section == nil || !bounds.Contains(*chunk.Section) {
			return false
		}
	}

	if r.Verse.IsResolved() && strings.TrimSpace(chunk.VerseNumber) != strings.TrimSpace(r.Verse.Value) {
		return false
	}

	if r.RelativeVerse.IsResolved() {
		k := r.RelativeVerse.Value
		if hasSection {
			return chunk.RelativeVerse == k
		}
		// No section to anchor the index: accept either numbering.
		return chunk.RelativeVerse == k || strings.TrimSpace(chunk.VerseNumber) == strconv.Itoa(k)
	}
	return true
}

func (r StructuralReference) String() string {
	parts := make([]string, 0, 5)
	if r.Book.IsResolved() {
		parts = append(parts, "book="+r.Book.Value)
	}
	if r.Range.IsResolved() {
		n := r.Range.Value.Normalized()
		parts = append(parts, fmt.Sprintf("sections=%d-%d", n.Start, n.End))
	} else if r.Section.IsResolved() {
		parts = append(parts, fmt.Sprintf("section=%d", r.Section.Value))
	}
	if r.Verse.IsResolved() {
		parts = append(parts, "verse="+r.Verse.Value)
	}
	if r.RelativeVerse.IsResolved() {
		parts = append(parts, fmt.Sprintf("relative_verse=%d", r.RelativeVerse.Value))
	}
	if len(parts) == 0 {
		return "empty"
	}
	return strings.Join(parts, " ")
}

// ReferenceOverride pins book and section from explicit UI filters.
type ReferenceOverride struct {
	Book    string        `json:"book,omitempty"`
	Section *SectionRange `json:"section,omitempty"`
}

func (o ReferenceOverride) IsEmpty() bool {
	return strings.TrimSpace(o.Book) == "" && o.Section == nil
}

// CandidateClass is the confidence class of one parsed reference.
type CandidateClass string

const (
	ClassExplicitNumeric CandidateClass = "explicit-numeric"
	ClassExplicitRange   CandidateClass = "explicit-range"
	ClassNamedSection    CandidateClass = "named-section"
	ClassRelativeVerse   CandidateClass = "relative-verse"
	ClassAmbiguous       CandidateClass = "ambiguous"
)

// Span is a byte range into the normalized query text.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

type ReferenceCandidate struct {
	Class     CandidateClass      `json:"class"`
	Reference StructuralReference `json:"reference"`
	Spans     []Span              `json:"spans"`
}

// QueryIntent is the coarse question type detected alongside references.
type QueryIntent string

const (
	IntentGeneralQA           QueryIntent = "general_qa"
	IntentCountVerses         QueryIntent = "count_verses"
	IntentSpecificVerse       QueryIntent = "specific_verse"
	IntentSectionSummary      QueryIntent = "section_summary"
	IntentSectionRangeSummary QueryIntent = "section_range_summary"
)
