package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

const contextRunes = 280

// corpusEntry is one verse in a corpus file. JSON files parse through the
// same YAML decoder.
type corpusEntry struct {
	ID          string   `yaml:"id"`
	Book        string   `yaml:"book"`
	Section     *int     `yaml:"section"`
	SectionName string   `yaml:"section_name"`
	VerseNumber string   `yaml:"verse_number"`
	VerseLines  []string `yaml:"verse_lines"`
	Meaning     string   `yaml:"meaning"`
	PageNumber  int      `yaml:"page_number"`
	SourcePath  string   `yaml:"source_path"`
	Position    *int     `yaml:"position"`
}

type corpusFile struct {
	Chunks []corpusEntry `yaml:"chunks"`
}

func newLoadCmd(open Opener) *cobra.Command {
	var noReindex bool

	cmd := &cobra.Command{
		Use:   "load <file.yaml|file.json>",
		Short: "Replace the corpus with the chunks in a file",
		Long: `Replace every stored chunk with the contents of a corpus file, number
chopai inside each (book, prakran) by document order and request a
semantic reindex.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunks, err := readCorpusFile(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd, open, func(ctx context.Context, deps Deps) error {
				if err := deps.Corpus.ReplaceCorpus(ctx, chunks); err != nil {
					return fmt.Errorf("replace corpus: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loaded %d chunks\n", len(chunks))
				if noReindex {
					return nil
				}
				req, err := deps.Requests.RequestReindex(ctx, "corpus_loaded")
				if err != nil {
					return fmt.Errorf("request reindex: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reindex requested: %s\n", req.RequestID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noReindex, "no-reindex", false, "skip the reindex request after loading")
	return cmd
}

func readCorpusFile(path string) ([]domain.Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	entries, err := decodeCorpus(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return prepareChunks(entries, filepath.Base(path))
}

// decodeCorpus accepts either {chunks: [...]} or a bare list.
func decodeCorpus(raw []byte) ([]corpusEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty corpus file")
	}
	if doc.Content[0].Kind == yaml.SequenceNode {
		var entries []corpusEntry
		if err := doc.Content[0].Decode(&entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	var file corpusFile
	if err := doc.Content[0].Decode(&file); err != nil {
		return nil, err
	}
	return file.Chunks, nil
}

func prepareChunks(entries []corpusEntry, defaultSource string) ([]domain.Chunk, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("corpus file has no chunks")
	}

	chunks := make([]domain.Chunk, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for i, entry := range entries {
		book := strings.TrimSpace(entry.Book)
		if book == "" {
			return nil, fmt.Errorf("chunk %d: book is required", i+1)
		}
		lines := cleanLines(entry.VerseLines)
		meaning := strings.TrimSpace(entry.Meaning)
		if len(lines) == 0 && meaning == "" {
			return nil, fmt.Errorf("chunk %d: verse_lines or meaning is required", i+1)
		}
		if entry.Section != nil && *entry.Section <= 0 {
			return nil, fmt.Errorf("chunk %d: section must be positive", i+1)
		}

		source := strings.TrimSpace(entry.SourcePath)
		if source == "" {
			source = defaultSource
		}
		position := i
		if entry.Position != nil {
			position = *entry.Position
		}
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			id = domain.ChunkID(source, position)
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("chunk %d: duplicate id %s (first seen at chunk %d)", i+1, id, prev)
		}
		seen[id] = i + 1

		chunks = append(chunks, domain.Chunk{
			ID:          id,
			Book:        book,
			Section:     entry.Section,
			SectionName: strings.TrimSpace(entry.SectionName),
			VerseNumber: strings.TrimSpace(entry.VerseNumber),
			VerseLines:  lines,
			Meaning:     meaning,
			PageNumber:  entry.PageNumber,
			SourcePath:  source,
			Position:    position,
		})
	}

	domain.AssignRelativeVerses(chunks)
	linkContext(chunks)
	return chunks, nil
}

// linkContext fills prev/next context from neighbouring chunks of the same source.
func linkContext(chunks []domain.Chunk) {
	bySource := make(map[string][]int)
	for i, chunk := range chunks {
		bySource[chunk.SourcePath] = append(bySource[chunk.SourcePath], i)
	}
	for _, idxs := range bySource {
		sort.SliceStable(idxs, func(a, b int) bool {
			return chunks[idxs[a]].Position < chunks[idxs[b]].Position
		})
		for n, idx := range idxs {
			if n > 0 {
				chunks[idx].PrevContext = excerpt(chunks[idxs[n-1]])
			}
			if n+1 < len(idxs) {
				chunks[idx].NextContext = excerpt(chunks[idxs[n+1]])
			}
		}
	}
}

func excerpt(chunk domain.Chunk) string {
	text := strings.Join(chunk.VerseLines, " ")
	if text == "" {
		text = chunk.Meaning
	}
	runes := []rune(text)
	if len(runes) > contextRunes {
		return string(runes[:contextRunes])
	}
	return text
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
