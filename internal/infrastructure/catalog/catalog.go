package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

//go:embed default_books.yaml
var defaultBooksYAML []byte

type file struct {
	Books []domain.Book `yaml:"books"`
}

type bookLister interface {
	ListBooks(ctx context.Context) ([]string, error)
}

// Catalog merges the configured book list with the book names stored in the corpus.
type Catalog struct {
	entries []domain.Book
	corpus  bookLister
}

// Load reads the catalog from path, or the embedded default when path is empty.
func Load(path string, corpus bookLister) (*Catalog, error) {
	raw := defaultBooksYAML
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read book catalog: %w", err)
		}
		raw = data
	}
	entries, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return &Catalog{entries: entries, corpus: corpus}, nil
}

func parse(raw []byte) ([]domain.Book, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse book catalog: %w", err)
	}
	out := make([]domain.Book, 0, len(f.Books))
	for i, book := range f.Books {
		name := strings.TrimSpace(book.Name)
		if name == "" {
			return nil, fmt.Errorf("parse book catalog: entry %d has no name", i)
		}
		out = append(out, domain.Book{Name: name, Aliases: cleanAliases(book.Aliases)})
	}
	return out, nil
}

// Books returns every corpus book with the aliases of the catalog entry it
// contains, followed by catalog entries the corpus does not carry yet.
func (c *Catalog) Books(ctx context.Context) ([]domain.Book, error) {
	var stored []string
	if c.corpus != nil {
		names, err := c.corpus.ListBooks(ctx)
		if err != nil {
			return nil, fmt.Errorf("list corpus books: %w", err)
		}
		stored = names
	}

	used := make([]bool, len(c.entries))
	out := make([]domain.Book, 0, len(stored)+len(c.entries))
	for _, name := range stored {
		book := domain.Book{Name: name}
		key := matchKey(name)
		for i, entry := range c.entries {
			if used[i] || !strings.Contains(key, matchKey(entry.Name)) {
				continue
			}
			used[i] = true
			book.Aliases = cleanAliases(append([]string{entry.Name}, entry.Aliases...))
			break
		}
		out = append(out, book)
	}
	for i, entry := range c.entries {
		if !used[i] {
			out = append(out, entry)
		}
	}
	return out, nil
}

func matchKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cleanAliases(aliases []string) []string {
	seen := make(map[string]struct{}, len(aliases))
	out := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		if _, dup := seen[alias]; dup {
			continue
		}
		seen[alias] = struct{}{}
		out = append(out, alias)
	}
	return out
}
