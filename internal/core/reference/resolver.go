package reference

import (
	"strings"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

// Resolution is the resolver output for one turn.
type Resolution struct {
	Reference  domain.StructuralReference
	Inherited  []string
	Overridden []string
	// Next is the memory snapshot to persist once retrieval is grounded.
	Next domain.ConversationMemoryState
	// Changed is false when Next equals the loaded memory.
	Changed bool
}

// Resolve merges the parsed query with thread memory and the caller override.
//
// Fields the query supplies always win. Missing fields are taken from memory
// only when the query carries at least one resolved field, and only above the
// deepest level the query names: a verse-only follow-up inherits book and
// section, a section-only follow-up inherits the book but not the old verse.
// A memory range is inherited whole. Override book/section beat both sources.
func Resolve(parsed ParseResult, memory domain.ConversationMemoryState, override domain.ReferenceOverride) Resolution {
	query := parsed.Reference
	prior := memory.LastReference
	out := query
	var inherited []string

	if !query.IsEmpty() && !prior.IsEmpty() {
		depth := queryDepth(query)

		if !query.Book.IsResolved() && prior.Book.IsResolved() && depth > levelBook {
			out.Book = prior.Book
			inherited = append(inherited, "book")
		}

		if !query.HasSection() && prior.HasSection() && depth > levelSection {
			switch {
			case prior.Range.IsResolved() && prior.Range.Value.IsSingle():
				out.Section = domain.Resolved(prior.Range.Value.Start)
			case prior.Range.IsResolved():
				out.Range = prior.Range
			default:
				out.Section = prior.Section
			}
			inherited = append(inherited, "section")
		}
	}

	var overridden []string
	if book := strings.TrimSpace(override.Book); book != "" {
		out.Book = domain.Resolved(book)
		overridden = append(overridden, "book")
	}
	if override.Section != nil {
		pinned := override.Section.Normalized()
		if pinned.IsSingle() {
			out.Section = domain.Resolved(pinned.Start)
			out.Range = domain.Field[domain.SectionRange]{}
		} else {
			out.Range = domain.Resolved(pinned)
			out.Section = domain.Field[int]{}
		}
		overridden = append(overridden, "section")
	}

	out = dropUnresolved(out)

	next := memory
	changed := false
	if !out.IsEmpty() && out != prior {
		next.LastReference = out
		changed = true
	}

	return Resolution{
		Reference:  out,
		Inherited:  inherited,
		Overridden: overridden,
		Next:       next,
		Changed:    changed,
	}
}

const (
	levelNone = iota
	levelBook
	levelSection
	levelVerse
)

// queryDepth is the deepest structural level the query names.
func queryDepth(ref domain.StructuralReference) int {
	switch {
	case ref.RelativeVerse.IsResolved() || ref.Verse.IsResolved():
		return levelVerse
	case ref.HasSection():
		return levelSection
	case ref.Book.IsResolved():
		return levelBook
	default:
		return levelNone
	}
}

// dropUnresolved clears ambiguous leftovers so the filter only carries resolved fields.
func dropUnresolved(ref domain.StructuralReference) domain.StructuralReference {
	if !ref.Book.IsResolved() {
		ref.Book = domain.Field[string]{}
	}
	if !ref.Section.IsResolved() {
		ref.Section = domain.Field[int]{}
	}
	if !ref.Range.IsResolved() {
		ref.Range = domain.Field[domain.SectionRange]{}
	}
	if !ref.Verse.IsResolved() {
		ref.Verse = domain.Field[string]{}
	}
	if !ref.RelativeVerse.IsResolved() {
		ref.RelativeVerse = domain.Field[int]{}
	}
	return ref
}
