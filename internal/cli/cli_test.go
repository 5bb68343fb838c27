package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/reference"
)

type depsFake struct {
	replaced   []domain.Chunk
	replaceErr error
	reasons    []string
	reindexed  int
	threadID   string
	override   domain.ReferenceOverride
	opened     int
	closed     int
}

func (f *depsFake) ReplaceCorpus(_ context.Context, chunks []domain.Chunk) error {
	f.replaced = chunks
	return f.replaceErr
}

func (f *depsFake) RequestReindex(_ context.Context, reason string) (domain.ReindexRequest, error) {
	f.reasons = append(f.reasons, reason)
	return domain.ReindexRequest{RequestID: "req-1", Reason: reason}, nil
}

func (f *depsFake) ReindexCorpus(context.Context) (domain.ReindexStats, error) {
	f.reindexed++
	return domain.ReindexStats{Chunks: 10, Batches: 1}, nil
}

func (f *depsFake) ResolveReference(_ context.Context, threadID, text string, override domain.ReferenceOverride) (reference.ParseResult, reference.Resolution, error) {
	f.threadID = threadID
	f.override = override
	ref := domain.StructuralReference{Section: domain.Resolved(14)}
	return reference.ParseResult{Normalized: text, Reference: ref}, reference.Resolution{Reference: ref}, nil
}

func (f *depsFake) opener() Opener {
	return func(context.Context) (Deps, func(), error) {
		f.opened++
		return Deps{Corpus: f, Requests: f, Reindexer: f, Resolver: f}, func() { f.closed++ }, nil
	}
}

func run(t *testing.T, fake *depsFake, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(fake.opener())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const corpusYAML = `
chunks:
  - book: Singaar
    section: 14
    verse_number: "101"
    verse_lines: ["line one", "line two"]
    meaning: first meaning
  - book: Singaar
    section: 14
    verse_number: "102"
    verse_lines: ["line three"]
    meaning: second meaning
  - book: Singaar
    section: 15
    verse_number: "103"
    verse_lines: ["line four"]
`

func TestLoadReplacesCorpusAndRequestsReindex(t *testing.T) {
	fake := &depsFake{}
	out, err := run(t, fake, "load", writeFile(t, "singar.yaml", corpusYAML))
	if err != nil {
		t.Fatalf("load error = %v", err)
	}
	if len(fake.replaced) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(fake.replaced))
	}
	if fake.replaced[1].RelativeVerse != 2 || fake.replaced[2].RelativeVerse != 1 {
		t.Fatalf("unexpected relative verses %d/%d", fake.replaced[1].RelativeVerse, fake.replaced[2].RelativeVerse)
	}
	if fake.replaced[0].ID != domain.ChunkID("singar.yaml", 0) {
		t.Fatalf("expected derived chunk id, got %s", fake.replaced[0].ID)
	}
	if fake.replaced[1].PrevContext != "line one line two" || fake.replaced[1].NextContext != "line four" {
		t.Fatalf("unexpected context %+v", fake.replaced[1])
	}
	if len(fake.reasons) != 1 || fake.reasons[0] != "corpus_loaded" {
		t.Fatalf("expected reindex request, got %v", fake.reasons)
	}
	if !strings.Contains(out, "loaded 3 chunks") || fake.closed != 1 {
		t.Fatalf("unexpected output %q closed=%d", out, fake.closed)
	}
}

func TestLoadAcceptsJSONListAndSkipsReindex(t *testing.T) {
	fake := &depsFake{}
	path := writeFile(t, "kirtan.json", `[{"book":"Kirantan","section":1,"verse_lines":["a"],"source_path":"k.pdf","position":7}]`)
	if _, err := run(t, fake, "load", "--no-reindex", path); err != nil {
		t.Fatalf("load error = %v", err)
	}
	if len(fake.replaced) != 1 || fake.replaced[0].Position != 7 || fake.replaced[0].SourcePath != "k.pdf" {
		t.Fatalf("unexpected chunks %+v", fake.replaced)
	}
	if len(fake.reasons) != 0 {
		t.Fatalf("expected no reindex request")
	}
}

func TestLoadRejectsInvalidFilesBeforeOpening(t *testing.T) {
	cases := map[string]string{
		"nobook.yaml": "chunks:\n  - section: 1\n    verse_lines: [a]\n",
		"empty.yaml":  "chunks: []\n",
		"dup.yaml":    "- {id: x, book: A, meaning: m}\n- {id: x, book: A, meaning: n}\n",
		"text.yaml":   "- {book: A}\n",
	}
	for name, content := range cases {
		fake := &depsFake{}
		if _, err := run(t, fake, "load", writeFile(t, name, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if fake.opened != 0 {
			t.Fatalf("%s: services must not be opened for an invalid file", name)
		}
	}
}

func TestLoadReportsStoreFailure(t *testing.T) {
	fake := &depsFake{replaceErr: errors.New("db down")}
	if _, err := run(t, fake, "load", writeFile(t, "c.yaml", corpusYAML)); err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(fake.reasons) != 0 {
		t.Fatalf("reindex must not be requested after a failed load")
	}
}

func TestReindexPublishesOrRunsSync(t *testing.T) {
	fake := &depsFake{}
	if _, err := run(t, fake, "reindex", "--reason", "nightly"); err != nil {
		t.Fatalf("reindex error = %v", err)
	}
	if len(fake.reasons) != 1 || fake.reasons[0] != "nightly" || fake.reindexed != 0 {
		t.Fatalf("expected published request, got %v / %d", fake.reasons, fake.reindexed)
	}

	out, err := run(t, fake, "reindex", "--sync")
	if err != nil {
		t.Fatalf("reindex --sync error = %v", err)
	}
	if fake.reindexed != 1 || !strings.Contains(out, "indexed 10 chunks") {
		t.Fatalf("expected local reindex, got %q", out)
	}
}

func TestResolvePrintsJSON(t *testing.T) {
	fake := &depsFake{}
	out, err := run(t, fake, "resolve", "--thread", "t1", "--section", "14-19", "chaupai", "4")
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	if fake.threadID != "t1" || fake.override.Section == nil || fake.override.Section.End != 19 {
		t.Fatalf("unexpected resolve call thread=%q override=%+v", fake.threadID, fake.override)
	}
	if !strings.Contains(out, `"normalized": "chaupai 4"`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestResolveRejectsBadSection(t *testing.T) {
	fake := &depsFake{}
	if _, err := run(t, fake, "resolve", "--section", "abc", "x"); err == nil {
		t.Fatalf("expected error")
	}
	if fake.opened != 0 {
		t.Fatalf("services must not be opened for bad flags")
	}
}
