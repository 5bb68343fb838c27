package ports

import (
	"context"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for grounded chat answers.
type QuestionAnswerer interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)
}

// ThreadReader is the inbound read model for thread history and memory.
type ThreadReader interface {
	Messages(ctx context.Context, threadID string) ([]domain.ConversationMessage, error)
	Threads(ctx context.Context, limit int) ([]domain.ThreadSummary, error)
	Memory(ctx context.Context, threadID string) (domain.ConversationMemoryState, error)
}

// CorpusReader exposes filter values and readiness.
type CorpusReader interface {
	Filters(ctx context.Context) (domain.CorpusFilters, error)
	Health(ctx context.Context) domain.CorpusHealth
}

// Reindexer rebuilds the semantic index from the corpus store.
type Reindexer interface {
	ReindexCorpus(ctx context.Context) (domain.ReindexStats, error)
}

// ReindexRequester asks the worker fleet to rebuild the semantic index.
type ReindexRequester interface {
	RequestReindex(ctx context.Context, reason string) (domain.ReindexRequest, error)
}
