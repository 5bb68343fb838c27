package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/granth-assistant/internal/config"
	"github.com/kirillkom/granth-assistant/internal/core/ports"
	"github.com/kirillkom/granth-assistant/internal/core/usecase"
	"github.com/kirillkom/granth-assistant/internal/infrastructure/catalog"
	"github.com/kirillkom/granth-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/granth-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/granth-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/granth-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/granth-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger
	// Catalog lists configured and stored books; WatchBooks polls it.
	Catalog ports.BookSource

	Corpus *postgres.CorpusRepository
	Queue  *nats.Queue

	RetrieveUC       *usecase.RetrieveUseCase
	ChatUC           ports.QuestionAnswerer
	ThreadsUC        ports.ThreadReader
	CorpusUC         ports.CorpusReader
	ReindexUC        ports.Reindexer
	ReindexRequestUC ports.ReindexRequester

	closeFn func()
}

// New connects every backing service and wires the use cases. observer may be
// nil; otherwise it receives retry and breaker events of outbound calls.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, observer resilience.Observer) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	corpusRepo := postgres.NewCorpusRepository(db)
	conversationRepo := postgres.NewConversationRepository(db)
	memoryRepo := postgres.NewThreadMemoryRepository(db)

	executorOpts := []resilience.Option{resilience.WithLogger(logger)}
	if observer != nil {
		executorOpts = append(executorOpts, resilience.WithObserver(observer))
	}
	executor := resilience.NewExecutor(cfg.Resilience(), executorOpts...)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSReindexSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	closeAll := func() {
		queue.Close()
		_ = db.Close()
	}

	cat, err := catalog.Load(cfg.BookCatalogPath, corpusRepo)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("load book catalog: %w", err)
	}
	books, err := cat.Books(ctx)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("list catalog books: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	composer := ollama.NewComposer(ollamaClient)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)

	var (
		semantic      ports.SemanticIndex
		semanticProbe ports.ReadinessProbe
	)
	if cfg.SemanticIndexEnabled {
		semantic = qdrant.NewSemanticIndex(embedder, vectorDB)
		semanticProbe = vectorDB
	} else {
		logger.Warn("semantic_index_disabled", "collection", cfg.QdrantCollection)
	}

	retrieveUC := usecase.NewRetrieveUseCase(books, corpusRepo, corpusRepo, semantic, memoryRepo, cfg.RetrievalLimits(), logger)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Catalog: cat,
		Corpus:  corpusRepo,
		Queue:   queue,

		RetrieveUC:       retrieveUC,
		ChatUC:           usecase.NewChatUseCase(retrieveUC, corpusRepo, conversationRepo, composer, cfg.ChatLimits()),
		ThreadsUC:        usecase.NewThreadsUseCase(conversationRepo, memoryRepo, cfg.MemoryRecentMessages),
		CorpusUC:         usecase.NewCorpusUseCase(corpusRepo, semanticProbe, composer),
		ReindexUC:        usecase.NewReindexUseCase(corpusRepo, embedder, vectorDB, cfg.ReindexBatchSize),
		ReindexRequestUC: usecase.NewReindexRequestUseCase(queue),

		closeFn: closeAll,
	}, nil
}

// WatchBooks keeps the retrieval parser in step with the book catalog until
// ctx is done. It blocks; run it in its own goroutine.
func (a *App) WatchBooks(ctx context.Context) {
	a.RetrieveUC.WatchBooks(ctx, a.Catalog, a.Config.BookRefreshInterval)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
