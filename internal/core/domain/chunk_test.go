package domain

import "testing"

func TestAssignRelativeVersesNumbersPerSectionInDocumentOrder(t *testing.T) {
	chunks := []Chunk{
		{ID: "c", Book: "Singaar", Section: IntPtr(14), SourcePath: "singaar.pdf", Position: 30},
		{ID: "a", Book: "Singaar", Section: IntPtr(14), SourcePath: "singaar.pdf", Position: 10},
		{ID: "x", Book: "Singaar", Section: IntPtr(15), SourcePath: "singaar.pdf", Position: 40},
		{ID: "b", Book: "Singaar", Section: IntPtr(14), SourcePath: "singaar.pdf", Position: 20},
		{ID: "k", Book: "Kirantan", Section: IntPtr(14), SourcePath: "kirantan.pdf", Position: 1},
		{ID: "n", Book: "Singaar", SourcePath: "singaar.pdf", Position: 5},
	}

	AssignRelativeVerses(chunks)

	want := map[string]int{"a": 1, "b": 2, "c": 3, "x": 1, "k": 1, "n": 0}
	for _, chunk := range chunks {
		if chunk.RelativeVerse != want[chunk.ID] {
			t.Fatalf("chunk %s: expected relative verse %d, got %d", chunk.ID, want[chunk.ID], chunk.RelativeVerse)
		}
	}
}

func TestChunkIDIsStable(t *testing.T) {
	first := ChunkID("books/singaar.pdf", 12)
	second := ChunkID("books/singaar.pdf", 12)
	other := ChunkID("books/singaar.pdf", 13)
	if first != second {
		t.Fatalf("expected stable id, got %s and %s", first, second)
	}
	if first == other {
		t.Fatalf("expected distinct ids for different positions")
	}
}

func TestChunkSearchTextJoinsNonEmptyParts(t *testing.T) {
	chunk := Chunk{Book: "Singaar", VerseLines: []string{"line one", "  "}, Meaning: "meaning"}
	if got := chunk.SearchText(); got != "Singaar\nline one\nmeaning" {
		t.Fatalf("unexpected search text %q", got)
	}
}

func TestChunkSearchTextCarriesStructuralNumbers(t *testing.T) {
	chunk := Chunk{
		Book:          "Singaar",
		Section:       IntPtr(14),
		VerseNumber:   " 57 ",
		RelativeVerse: 4,
		VerseLines:    []string{"piu piu karta"},
		Meaning:       "the soul calls the beloved",
	}
	want := "Singaar\nprakran 14 -14- chopai 4 chaupai 4 57\npiu piu karta\nthe soul calls the beloved"
	if got := chunk.SearchText(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
