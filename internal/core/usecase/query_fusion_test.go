package usecase

import (
	"testing"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

func TestFuseCandidatesRRFScenario(t *testing.T) {
	fused := fuseCandidatesRRF(ids("A", "B", "C"), ids("B", "D", "A"), 60)
	if len(fused) != 4 {
		t.Fatalf("expected 4 fused candidates, got %d", len(fused))
	}
	if fused[0].chunkID != "B" || fused[1].chunkID != "A" {
		t.Fatalf("expected B then A, got %s then %s", fused[0].chunkID, fused[1].chunkID)
	}
	wantA := 1.0/61 + 1.0/63
	if diff := fused[1].score - wantA; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("expected A score %f, got %f", wantA, fused[1].score)
	}
	if fused[2].chunkID != "D" || fused[3].chunkID != "C" {
		t.Fatalf("expected D then C in the tail, got %s then %s", fused[2].chunkID, fused[3].chunkID)
	}
	if fused[0].lexicalRank != 2 || fused[0].semanticRank != 1 {
		t.Fatalf("expected B ranks 2/1, got %d/%d", fused[0].lexicalRank, fused[0].semanticRank)
	}
}

func TestFuseCandidatesRRFBothListsBeatOneList(t *testing.T) {
	fused := fuseCandidatesRRF(ids("X", "Y"), ids("Z", "Y"), 60)
	if fused[0].chunkID != "Y" {
		t.Fatalf("expected chunk in both lists first, got %s", fused[0].chunkID)
	}
}

func TestFuseCandidatesRRFTieBreakByRankThenID(t *testing.T) {
	fused := fuseCandidatesRRF(ids("b"), ids("a"), 60)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused candidates, got %d", len(fused))
	}
	if fused[0].chunkID != "a" {
		t.Fatalf("expected tie-break by chunk id, got first=%s", fused[0].chunkID)
	}
}

func TestFuseCandidatesRRFDeduplicatesWithinList(t *testing.T) {
	fused := fuseCandidatesRRF(ids("A", "A", "B"), nil, 60)
	if len(fused) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(fused))
	}
	if fused[1].lexicalRank != 3 {
		t.Fatalf("expected B to keep its list position, got rank %d", fused[1].lexicalRank)
	}
}

func TestFuseCandidatesRRFEmptyInputs(t *testing.T) {
	if fused := fuseCandidatesRRF(nil, nil, 0); len(fused) != 0 {
		t.Fatalf("expected empty fusion, got %d", len(fused))
	}
}

func TestFuseCandidatesRRFIsDeterministic(t *testing.T) {
	lexical := ids("c1", "c2", "c3", "c4", "c5")
	semantic := ids("c5", "c4", "c3", "c2", "c1")
	first := fuseCandidatesRRF(lexical, semantic, 60)
	for i := 0; i < 50; i++ {
		again := fuseCandidatesRRF(lexical, semantic, 60)
		for j := range first {
			if first[j].chunkID != again[j].chunkID {
				t.Fatalf("fusion order changed at %d: %s vs %s", j, first[j].chunkID, again[j].chunkID)
			}
		}
	}
}

func TestFilterAndTrimKeepsOnlyMatchingChunks(t *testing.T) {
	hits := []domain.RetrievalHit{
		{Chunk: sectionChunk("a", "singar", 13, 1)},
		{Chunk: sectionChunk("b", "singar", 14, 1)},
		{Chunk: sectionChunk("b", "singar", 14, 1)},
		{Chunk: sectionChunk("c", "singar", 19, 2)},
		{Chunk: sectionChunk("d", "singar", 20, 1)},
	}
	ref := domain.StructuralReference{Range: domain.Resolved(domain.SectionRange{Start: 14, End: 19})}

	out := filterAndTrim(hits, ref, 10)
	if len(out) != 2 || out[0].Chunk.ID != "b" || out[1].Chunk.ID != "c" {
		t.Fatalf("unexpected filtered hits: %+v", out)
	}

	if out := filterAndTrim(hits, ref, 1); len(out) != 1 {
		t.Fatalf("expected truncation to 1, got %d", len(out))
	}

	none := domain.StructuralReference{Section: domain.Resolved(99)}
	if out := filterAndTrim(hits, none, 10); len(out) != 0 {
		t.Fatalf("expected filter to remove everything, got %d", len(out))
	}
}
