package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

type embedderFake struct {
	err   error
	calls int
}

func (e *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, e.err
}

func (e *embedderFake) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1}, nil
}

type vectorStoreFake struct {
	hits  []domain.ScoredID
	err   error
	limit int
}

func (v *vectorStoreFake) IndexChunks(context.Context, []domain.Chunk, [][]float32) error {
	return nil
}

func (v *vectorStoreFake) Search(_ context.Context, _ []float32, limit int) ([]domain.ScoredID, error) {
	v.limit = limit
	return v.hits, v.err
}

func TestSemanticIndexEmbedsThenSearches(t *testing.T) {
	store := &vectorStoreFake{hits: []domain.ScoredID{{ChunkID: "a", Score: 0.9}}}
	index := NewSemanticIndex(&embedderFake{}, store)

	hits, err := index.SearchSemantic(context.Background(), "love", 8)
	if err != nil {
		t.Fatalf("SearchSemantic() error = %v", err)
	}
	if len(hits) != 1 || store.limit != 8 {
		t.Fatalf("unexpected hits %+v limit %d", hits, store.limit)
	}
}

func TestSemanticIndexWrapsFailuresAsUnavailable(t *testing.T) {
	index := NewSemanticIndex(&embedderFake{err: errors.New("ollama down")}, &vectorStoreFake{})
	if _, err := index.SearchSemantic(context.Background(), "love", 8); !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected index unavailable, got %v", err)
	}

	index = NewSemanticIndex(&embedderFake{}, &vectorStoreFake{err: errors.New("qdrant down")})
	if _, err := index.SearchSemantic(context.Background(), "love", 8); !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected index unavailable, got %v", err)
	}
}

func TestSemanticIndexSkipsBlankQuery(t *testing.T) {
	embedder := &embedderFake{}
	hits, err := NewSemanticIndex(embedder, &vectorStoreFake{}).SearchSemantic(context.Background(), "  ", 8)
	if err != nil || len(hits) != 0 || embedder.calls != 0 {
		t.Fatalf("expected no-op for blank query, got %v %v calls=%d", hits, err, embedder.calls)
	}
}
