package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type listerFake struct {
	names []string
	err   error
}

func (l listerFake) ListBooks(context.Context) ([]string, error) {
	return l.names, l.err
}

func TestLoadEmbeddedDefault(t *testing.T) {
	c, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	books, err := c.Books(context.Background())
	if err != nil {
		t.Fatalf("Books() error = %v", err)
	}
	if len(books) == 0 || books[0].Name != "Singaar" {
		t.Fatalf("unexpected default books %+v", books)
	}
}

func TestBooksMergesCorpusNamesWithAliases(t *testing.T) {
	c, err := Load("", listerFake{names: []string{"ShriSingaar", "Khulasa"}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	books, err := c.Books(context.Background())
	if err != nil {
		t.Fatalf("Books() error = %v", err)
	}
	if books[0].Name != "ShriSingaar" || len(books[0].Aliases) == 0 || books[0].Aliases[0] != "Singaar" {
		t.Fatalf("expected stored name with catalog aliases, got %+v", books[0])
	}
	if books[1].Name != "Khulasa" || len(books[1].Aliases) != 0 {
		t.Fatalf("expected uncatalogued book as-is, got %+v", books[1])
	}
	for _, book := range books[2:] {
		if book.Name == "Singaar" {
			t.Fatalf("matched catalog entry must not be listed twice")
		}
	}
}

func TestLoadFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	if err := os.WriteFile(path, []byte("books:\n  - name: Khulasa\n    aliases: [khulaso, ' ', khulaso]\n"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	c, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	books, _ := c.Books(context.Background())
	if len(books) != 1 || books[0].Name != "Khulasa" || len(books[0].Aliases) != 1 {
		t.Fatalf("unexpected override books %+v", books)
	}
}

func TestLoadRejectsBadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	if err := os.WriteFile(path, []byte("books:\n  - aliases: [x]\n"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := Load(path, nil); err == nil {
		t.Fatalf("expected nameless entry to be rejected")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestBooksPropagatesCorpusError(t *testing.T) {
	c, _ := Load("", listerFake{err: errors.New("db down")})
	if _, err := c.Books(context.Background()); err == nil {
		t.Fatalf("expected corpus error")
	}
}
