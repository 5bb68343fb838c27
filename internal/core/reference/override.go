package reference

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

var sectionFilterRe = regexp.MustCompile(`^(?:` + sectionKeywords + `\s*)?(\d+)(?:\s*` + rangeConnectors + `\s*(?:` + sectionKeywords + `\s*)?(\d+))?$`)

// ParseSectionFilter reads a UI section filter such as "14", "prakran 14" or
// "14-19". An empty filter yields nil; decimals, signs and any other text are
// rejected.
func ParseSectionFilter(raw string) (*domain.SectionRange, error) {
	text := Normalize(raw)
	if text == "" {
		return nil, nil
	}
	invalid := domain.WrapError(domain.ErrInvalidInput, "parse section filter", fmt.Errorf("unsupported section filter %q", strings.TrimSpace(raw)))
	groups := sectionFilterRe.FindStringSubmatch(text)
	if groups == nil {
		return nil, invalid
	}
	start, ok := parseNumber(groups[1], maxSectionDigits)
	if !ok {
		return nil, invalid
	}
	if groups[2] == "" {
		return &domain.SectionRange{Start: start, End: start}, nil
	}
	end, ok := parseNumber(groups[2], maxSectionDigits)
	if !ok {
		return nil, invalid
	}
	r := domain.SectionRange{Start: start, End: end}.Normalized()
	return &r, nil
}

// CanonicalBook maps a UI book filter onto the catalog spelling when it matches one.
func CanonicalBook(raw string, books []domain.Book) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	matcher := NewBookMatcher(books)
	if book, ok := matcher.lookup(foldKey(raw)); ok {
		return book
	}
	return raw
}
