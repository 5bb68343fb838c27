package qdrant

import (
	"context"
	"strings"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/ports"
)

// SemanticIndex embeds the query text and searches the chunk collection.
type SemanticIndex struct {
	embedder ports.Embedder
	store    ports.VectorStore
}

func NewSemanticIndex(embedder ports.Embedder, store ports.VectorStore) *SemanticIndex {
	return &SemanticIndex{embedder: embedder, store: store}
}

func (s *SemanticIndex) SearchSemantic(ctx context.Context, text string, limit int) ([]domain.ScoredID, error) {
	if strings.TrimSpace(text) == "" || limit <= 0 {
		return []domain.ScoredID{}, nil
	}
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "embed query", err)
	}
	hits, err := s.store.Search(ctx, vector, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "semantic search", err)
	}
	return hits, nil
}
