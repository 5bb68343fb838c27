package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/ports"
)

// CorpusUseCase exposes corpus filter values and service readiness.
type CorpusUseCase struct {
	corpus   ports.CorpusStore
	semantic ports.ReadinessProbe
	composer ports.ReadinessProbe
}

// NewCorpusUseCase accepts nil probes for services that are not configured.
func NewCorpusUseCase(corpus ports.CorpusStore, semantic, composer ports.ReadinessProbe) *CorpusUseCase {
	return &CorpusUseCase{corpus: corpus, semantic: semantic, composer: composer}
}

func (uc *CorpusUseCase) Filters(ctx context.Context) (domain.CorpusFilters, error) {
	filters, err := uc.corpus.ListFilters(ctx)
	if err != nil {
		return domain.CorpusFilters{}, fmt.Errorf("list filters: %w", err)
	}
	if filters.Books == nil {
		filters.Books = []string{}
	}
	if filters.Sections == nil {
		filters.Sections = []int{}
	}
	return filters, nil
}

// Health is "ok" when the corpus is readable; a missing semantic index or
// composer only marks the service "degraded".
func (uc *CorpusUseCase) Health(ctx context.Context) domain.CorpusHealth {
	health := domain.CorpusHealth{Status: "ok"}

	count, err := uc.corpus.CountChunks(ctx)
	if err == nil {
		health.DBReady = true
		health.IndexedChunks = count
	}
	health.SemanticReady = uc.semantic != nil && uc.semantic.Ready(ctx) == nil
	health.ComposerReady = uc.composer != nil && uc.composer.Ready(ctx) == nil

	switch {
	case !health.DBReady:
		health.Status = "unavailable"
	case !health.SemanticReady || !health.ComposerReady:
		health.Status = "degraded"
	}
	return health
}
