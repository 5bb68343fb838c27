package reference

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

// Slot is one independently extracted part of a reference.
type Slot uint8

const (
	SlotBook Slot = 1 << iota
	SlotSection
	SlotVerse
)

// Match is one hit of a matcher inside the normalized text.
type Match struct {
	Class     domain.CandidateClass
	Slots     Slot
	Span      domain.Span
	Reference domain.StructuralReference
}

func (m Match) length() int {
	return m.Span.End - m.Span.Start
}

// Matcher attempts one pattern class against normalized text and returns every
// hit it finds. Overlaps, within a class and across classes, are settled by the
// parser.
type Matcher interface {
	Name() string
	Match(text string) []Match
}

const (
	sectionKeywords = `(?:prakaranam|prakarana|prakaran|prakran|prakarn|prakarnu|प्रकरण|पकरण|પ્રકરણ|પકરણ|section|chapter)`
	verseKeywords   = `(?:chaupaai|chaupai|chaupayi|choupai|chopaai|chopai|chopaee|caupai|ચોપાઈ|ચોપાઇ|चौपाई|चोपाई|verse)`
	rangeConnectors = `(?:to|till|until|through|upto|se|thi|થી|से|तक|-|–|—)`
	numberMarker    = `(?:(?:no\.?|number|num|#)\s*)?`
	ordinalSuffix   = `(?:st|nd|rd|th)?`
	ofWords         = `(?:(?:of|in|from|ni|nu|na|ki|ka|ke|का|की|के|નું|ની|ના|માં)\s*)?`
	inWords         = `(?:(?:ma|mein|me|ni|nu|ki|ka|का|की|में|માં|ની|નું|,)\s*)?`

	maxSectionDigits = 3
	maxVerseDigits   = 4
)

var (
	sectionKeywordRe = mustLongest(`^` + sectionKeywords + `$`)
	verseKeywordRe   = mustLongest(`^` + verseKeywords + `$`)
	bareNumberRe     = mustLongest(`\d+`)
)

func mustLongest(expr string) *regexp.Regexp {
	re := regexp.MustCompile(expr)
	re.Longest()
	return re
}

// regexMatcher runs a set of alternative patterns for one class.
type regexMatcher struct {
	name     string
	class    domain.CandidateClass
	slots    Slot
	patterns []*regexp.Regexp
	build    func(groups []string, reverse bool) (domain.StructuralReference, bool)
	reverse  []bool
}

func (m *regexMatcher) Name() string { return m.name }

func (m *regexMatcher) Match(text string) []Match {
	var hits []Match
	for i, re := range m.patterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			if !startsWord(text, loc[0]) {
				continue
			}
			groups := make([]string, 0, len(loc)/2)
			for g := 2; g+1 < len(loc); g += 2 {
				if loc[g] < 0 {
					groups = append(groups, "")
					continue
				}
				groups = append(groups, text[loc[g]:loc[g+1]])
			}
			ref, ok := m.build(groups, m.reverse[i])
			if !ok {
				continue
			}
			hits = append(hits, Match{
				Class:     m.class,
				Slots:     m.slots,
				Span:      domain.Span{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]},
				Reference: ref,
			})
		}
	}
	return hits
}

// startsWord rejects a hit whose first Latin letter continues a preceding
// Latin word, as "verse 2" inside "universe 2".
func startsWord(text string, start int) bool {
	if start == 0 {
		return true
	}
	before, _ := utf8.DecodeLastRuneInString(text[:start])
	first, _ := utf8.DecodeRuneInString(text[start:])
	return !isLatinLetter(before) || !isLatinLetter(first)
}

func isLatinLetter(r rune) bool {
	return unicode.IsLetter(r) && unicode.Is(unicode.Latin, r)
}

func parseNumber(raw string, maxDigits int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxDigits {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// NewRangeMatcher matches "prakran 14 to 19" and "14 to 19 prakran".
func NewRangeMatcher() Matcher {
	return &regexMatcher{
		name:  "section-range",
		class: domain.ClassExplicitRange,
		slots: SlotSection,
		patterns: []*regexp.Regexp{
			mustLongest(sectionKeywords + `\s*` + numberMarker + `(\d+)\s*` + rangeConnectors + `\s*(?:` + sectionKeywords + `\s*)?(\d+)`),
			mustLongest(`(\d+)\s*` + rangeConnectors + `\s*(\d+)\s*` + sectionKeywords),
		},
		reverse: []bool{false, true},
		build: func(groups []string, _ bool) (domain.StructuralReference, bool) {
			start, ok := parseNumber(groups[0], maxSectionDigits)
			if !ok {
				return domain.StructuralReference{}, false
			}
			end, ok := parseNumber(groups[1], maxSectionDigits)
			if !ok {
				return domain.StructuralReference{}, false
			}
			return domain.StructuralReference{
				Range: domain.Resolved(domain.SectionRange{Start: start, End: end}.Normalized()),
			}, true
		},
	}
}

// NewSectionMatcher matches "prakran 14" and "14th prakran".
func NewSectionMatcher() Matcher {
	return &regexMatcher{
		name:  "section",
		class: domain.ClassExplicitNumeric,
		slots: SlotSection,
		patterns: []*regexp.Regexp{
			mustLongest(sectionKeywords + `\s*` + numberMarker + `(\d+)`),
			mustLongest(`(\d+)` + ordinalSuffix + `\s*` + sectionKeywords),
		},
		reverse: []bool{false, true},
		build: func(groups []string, _ bool) (domain.StructuralReference, bool) {
			n, ok := parseNumber(groups[0], maxSectionDigits)
			if !ok {
				return domain.StructuralReference{}, false
			}
			return domain.StructuralReference{Section: domain.Resolved(n)}, true
		},
	}
}

// NewRelativeVerseMatcher matches "chaupai 4 of prakran 14" and "prakran 14 chaupai 4".
func NewRelativeVerseMatcher() Matcher {
	return &regexMatcher{
		name:  "relative-verse",
		class: domain.ClassRelativeVerse,
		slots: SlotSection | SlotVerse,
		patterns: []*regexp.Regexp{
			mustLongest(verseKeywords + `\s*` + numberMarker + `(\d+)\s*` + ofWords + sectionKeywords + `\s*` + numberMarker + `(\d+)`),
			mustLongest(`(\d+)` + ordinalSuffix + `\s*` + verseKeywords + `\s*` + ofWords + sectionKeywords + `\s*` + numberMarker + `(\d+)`),
			mustLongest(sectionKeywords + `\s*` + numberMarker + `(\d+)\s*` + inWords + verseKeywords + `\s*` + numberMarker + `(\d+)`),
		},
		reverse: []bool{false, false, true},
		build: func(groups []string, sectionFirst bool) (domain.StructuralReference, bool) {
			verseRaw, sectionRaw := groups[0], groups[1]
			if sectionFirst {
				verseRaw, sectionRaw = groups[1], groups[0]
			}
			verse, ok := parseNumber(verseRaw, maxVerseDigits)
			if !ok {
				return domain.StructuralReference{}, false
			}
			section, ok := parseNumber(sectionRaw, maxSectionDigits)
			if !ok {
				return domain.StructuralReference{}, false
			}
			return domain.StructuralReference{
				Section:       domain.Resolved(section),
				RelativeVerse: domain.Resolved(verse),
			}, true
		},
	}
}

// NewBareVerseMatcher matches "chaupai 4" and "4th chaupai"; the section stays unresolved.
func NewBareVerseMatcher() Matcher {
	return &regexMatcher{
		name:  "bare-verse",
		class: domain.ClassRelativeVerse,
		slots: SlotVerse,
		patterns: []*regexp.Regexp{
			mustLongest(verseKeywords + `\s*` + numberMarker + `(\d+)`),
			mustLongest(`(\d+)` + ordinalSuffix + `\s*` + verseKeywords),
		},
		reverse: []bool{false, true},
		build: func(groups []string, _ bool) (domain.StructuralReference, bool) {
			n, ok := parseNumber(groups[0], maxVerseDigits)
			if !ok {
				return domain.StructuralReference{}, false
			}
			return domain.StructuralReference{RelativeVerse: domain.Resolved(n)}, true
		},
	}
}

type bookAlias struct {
	key  string
	book string
}

// BookMatcher finds known book names in windows of up to three words.
type BookMatcher struct {
	exact   map[string]string
	aliases []bookAlias
}

const maxBookWindow = 3

func NewBookMatcher(books []domain.Book) *BookMatcher {
	m := &BookMatcher{exact: make(map[string]string)}
	for _, book := range books {
		name := strings.TrimSpace(book.Name)
		if name == "" {
			continue
		}
		spellings := append([]string{name, splitCamel(name)}, book.Aliases...)
		for _, spelling := range spellings {
			for _, key := range []string{foldKey(spelling), honorificFreeKey(spelling)} {
				if utf8.RuneCountInString(key) < 3 {
					continue
				}
				if _, exists := m.exact[key]; exists {
					continue
				}
				m.exact[key] = name
				m.aliases = append(m.aliases, bookAlias{key: key, book: name})
			}
		}
	}
	sort.SliceStable(m.aliases, func(i, j int) bool {
		return len(m.aliases[i].key) > len(m.aliases[j].key)
	})
	return m
}

func (m *BookMatcher) Name() string { return "book-name" }

func (m *BookMatcher) Match(text string) []Match {
	if len(m.aliases) == 0 {
		return nil
	}
	words := splitWords(text)
	var hits []Match
	for i := range words {
		for size := maxBookWindow; size >= 1; size-- {
			if i+size > len(words) {
				continue
			}
			window := words[i : i+size]
			if isStructuralWord(window[0].text) || isStructuralWord(window[len(window)-1].text) {
				continue
			}
			var joined strings.Builder
			for _, w := range window {
				joined.WriteString(w.text)
			}
			book, ok := m.lookup(foldKey(joined.String()))
			if !ok {
				continue
			}
			start, end := window[0].start, window[len(window)-1].end
			hits = append(hits, Match{
				Class:     domain.ClassNamedSection,
				Slots:     SlotBook,
				Span:      domain.Span{Start: start, End: end, Text: text[start:end]},
				Reference: domain.StructuralReference{Book: domain.Resolved(book)},
			})
			break
		}
	}
	return hits
}

func (m *BookMatcher) lookup(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	if book, ok := m.exact[key]; ok {
		return book, true
	}
	if book, ok := m.exact[stripHonorific(key)]; ok {
		return book, true
	}
	keyLen := utf8.RuneCountInString(key)
	if keyLen < 5 {
		return "", false
	}
	budget := 1
	if keyLen >= 9 {
		budget = 2
	}
	for _, alias := range m.aliases {
		aliasLen := utf8.RuneCountInString(alias.key)
		if aliasLen < 5 || abs(aliasLen-keyLen) > budget {
			continue
		}
		if editDistance(key, alias.key) <= budget {
			return alias.book, true
		}
	}
	return "", false
}

type word struct {
	text       string
	start, end int
}

func splitWords(text string) []word {
	var out []word
	start := -1
	for i, r := range text {
		inWord := unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
		switch {
		case inWord && start < 0:
			start = i
		case !inWord && start >= 0:
			out = append(out, word{text: text[start:i], start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, word{text: text[start:], start: start, end: len(text)})
	}
	return out
}

func isStructuralWord(w string) bool {
	if w == "" {
		return true
	}
	if bareNumberRe.FindString(w) == w {
		return true
	}
	return sectionKeywordRe.MatchString(w) || verseKeywordRe.MatchString(w)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// DefaultMatchers returns the matcher list in precedence order.
func DefaultMatchers(books []domain.Book) []Matcher {
	return []Matcher{
		NewRangeMatcher(),
		NewSectionMatcher(),
		NewRelativeVerseMatcher(),
		NewBareVerseMatcher(),
		NewBookMatcher(books),
	}
}
