package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var chunkNamespace = uuid.MustParse("5b0f3c1e-8f0d-4a43-9a53-6d1f2f6b7c11")

// Chunk is one citable verse with its meaning and structural metadata.
type Chunk struct {
	ID            string   `json:"id"`
	Book          string   `json:"book"`
	Section       *int     `json:"section,omitempty"`
	SectionName   string   `json:"section_name,omitempty"`
	VerseNumber   string   `json:"verse_number,omitempty"`
	RelativeVerse int      `json:"relative_verse,omitempty"`
	VerseLines    []string `json:"verse_lines"`
	Meaning       string   `json:"meaning"`
	PageNumber    int      `json:"page_number"`
	SourcePath    string   `json:"source_path"`
	Position      int      `json:"position"`
	PrevContext   string   `json:"prev_context,omitempty"`
	NextContext   string   `json:"next_context,omitempty"`
}

// ChunkID derives a stable identifier from the source file and the position inside it.
func ChunkID(sourcePath string, position int) string {
	key := fmt.Sprintf("%s:%d", strings.TrimSpace(sourcePath), position)
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

func (c Chunk) HasSection() bool {
	return c.Section != nil
}

// SearchText is the text fed to both the lexical and the semantic index. A
// structural line spells the section and verse numbers the way queries name them.
func (c Chunk) SearchText() string {
	parts := make([]string, 0, len(c.VerseLines)+4)
	if c.Book != "" {
		parts = append(parts, c.Book)
	}
	if tokens := c.structuralTokens(); tokens != "" {
		parts = append(parts, tokens)
	}
	if c.SectionName != "" {
		parts = append(parts, c.SectionName)
	}
	for _, line := range c.VerseLines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	if meaning := strings.TrimSpace(c.Meaning); meaning != "" {
		parts = append(parts, meaning)
	}
	return strings.Join(parts, "\n")
}

func (c Chunk) structuralTokens() string {
	var tokens []string
	if c.Section != nil {
		n := strconv.Itoa(*c.Section)
		tokens = append(tokens, sectionHint+" "+n, "-"+n+"-")
	}
	if c.RelativeVerse > 0 {
		n := strconv.Itoa(c.RelativeVerse)
		tokens = append(tokens, verseHints[0]+" "+n, verseHints[1]+" "+n)
	}
	if verse := strings.TrimSpace(c.VerseNumber); verse != "" {
		tokens = append(tokens, verse)
	}
	return strings.Join(tokens, " ")
}

// AssignRelativeVerses numbers chunks 1..n inside every (book, section) pair by
// document order (source path, then position). Chunks without a section get 0.
func AssignRelativeVerses(chunks []Chunk) {
	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := chunks[order[a]], chunks[order[b]]
		if ca.SourcePath != cb.SourcePath {
			return ca.SourcePath < cb.SourcePath
		}
		return ca.Position < cb.Position
	})

	counters := make(map[string]int)
	for _, idx := range order {
		chunk := &chunks[idx]
		if chunk.Section == nil {
			chunk.RelativeVerse = 0
			continue
		}
		key := fmt.Sprintf("%s\x00%d", chunk.Book, *chunk.Section)
		counters[key]++
		chunk.RelativeVerse = counters[key]
	}
}

func IntPtr(v int) *int {
	return &v
}
