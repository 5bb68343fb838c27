package usecase

import (
	"sort"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

const defaultRRFK = 60

type fusedCandidate struct {
	chunkID      string
	score        float64
	lexicalRank  int
	semanticRank int
}

func (c fusedCandidate) bestRank() int {
	return domain.RetrievalHit{LexicalRank: c.lexicalRank, SemanticRank: c.semanticRank}.BestRank()
}

// fuseCandidatesRRF merges two ranked id lists with reciprocal-rank fusion.
// Ranks are 1-based positions of the first occurrence of an id in its list.
func fuseCandidatesRRF(lexical, semantic []domain.ScoredID, rrfK int) []fusedCandidate {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	acc := make(map[string]*fusedCandidate, len(lexical)+len(semantic))
	order := make([]string, 0, len(lexical)+len(semantic))
	addList := func(ids []domain.ScoredID, setRank func(*fusedCandidate, int)) {
		seen := make(map[string]struct{}, len(ids))
		for i, id := range ids {
			if id.ChunkID == "" {
				continue
			}
			if _, dup := seen[id.ChunkID]; dup {
				continue
			}
			seen[id.ChunkID] = struct{}{}

			candidate, ok := acc[id.ChunkID]
			if !ok {
				candidate = &fusedCandidate{chunkID: id.ChunkID}
				acc[id.ChunkID] = candidate
				order = append(order, id.ChunkID)
			}
			rank := i + 1
			candidate.score += 1.0 / float64(rrfK+rank)
			setRank(candidate, rank)
		}
	}

	addList(lexical, func(c *fusedCandidate, rank int) { c.lexicalRank = rank })
	addList(semantic, func(c *fusedCandidate, rank int) { c.semanticRank = rank })

	out := make([]fusedCandidate, 0, len(order))
	for _, id := range order {
		out = append(out, *acc[id])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if bi, bj := out[i].bestRank(), out[j].bestRank(); bi != bj {
			return bi < bj
		}
		return out[i].chunkID < out[j].chunkID
	})

	return out
}

// filterAndTrim applies the structural filter to hydrated hits, drops repeated
// chunk ids and keeps at most limit entries.
func filterAndTrim(hits []domain.RetrievalHit, ref domain.StructuralReference, limit int) []domain.RetrievalHit {
	out := make([]domain.RetrievalHit, 0, min(len(hits), max(limit, 0)))
	seen := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		if limit > 0 && len(out) >= limit {
			break
		}
		if _, dup := seen[hit.Chunk.ID]; dup {
			continue
		}
		if !ref.Matches(hit.Chunk) {
			continue
		}
		seen[hit.Chunk.ID] = struct{}{}
		out = append(out, hit)
	}
	return out
}
