package ports

import (
	"context"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

// CorpusStore persists canonical chunks and answers structural lookups.
type CorpusStore interface {
	GetChunksByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error)
	ListChunks(ctx context.Context, afterID string, limit int) ([]domain.Chunk, error)
	ReplaceCorpus(ctx context.Context, chunks []domain.Chunk) error
	CountChunks(ctx context.Context) (int, error)
	CountVerses(ctx context.Context, ref domain.StructuralReference) (int, error)
	ListFilters(ctx context.Context) (domain.CorpusFilters, error)
	ListBooks(ctx context.Context) ([]string, error)
}

// BookSource lists the books the parser should recognise.
type BookSource interface {
	Books(ctx context.Context) ([]domain.Book, error)
}

// LexicalIndex runs full-text search over chunk text.
type LexicalIndex interface {
	SearchLexical(ctx context.Context, text string, limit int) ([]domain.ScoredID, error)
}

// SemanticIndex runs nearest-neighbour search over chunk embeddings.
type SemanticIndex interface {
	SearchSemantic(ctx context.Context, text string, limit int) ([]domain.ScoredID, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunk vectors and performs similarity search.
type VectorStore interface {
	IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.ScoredID, error)
}

// MemoryStore loads and saves per-thread memory. Load never fails for unknown threads.
type MemoryStore interface {
	Load(ctx context.Context, threadID string) (domain.ConversationMemoryState, error)
	Save(ctx context.Context, state domain.ConversationMemoryState) error
}

// ConversationStore persists thread messages.
type ConversationStore interface {
	AppendMessage(ctx context.Context, message domain.ConversationMessage) error
	ListRecentMessages(ctx context.Context, threadID string, limit int) ([]domain.ConversationMessage, error)
	ListThreadMessages(ctx context.Context, threadID string) ([]domain.ConversationMessage, error)
	ListThreads(ctx context.Context, limit int) ([]domain.ThreadSummary, error)
}

// AnswerComposer turns grounded evidence into the user-facing answer.
type AnswerComposer interface {
	ComposeAnswer(ctx context.Context, req domain.ComposeRequest) (string, error)
}

// ReindexQueue publishes/consumes corpus reindex requests.
type ReindexQueue interface {
	PublishReindexRequested(ctx context.Context, req domain.ReindexRequest) error
	SubscribeReindexRequested(ctx context.Context, handler func(context.Context, domain.ReindexRequest) error) error
}

// ReadinessProbe reports whether a backing service is reachable.
type ReadinessProbe interface {
	Ready(ctx context.Context) error
}
