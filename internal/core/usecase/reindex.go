package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/ports"
)

const defaultReindexBatchSize = 64

// ReindexUseCase rebuilds the semantic index from the corpus store in batches.
type ReindexUseCase struct {
	corpus    ports.CorpusStore
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	batchSize int
}

func NewReindexUseCase(
	corpus ports.CorpusStore,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	batchSize int,
) *ReindexUseCase {
	if batchSize <= 0 {
		batchSize = defaultReindexBatchSize
	}
	return &ReindexUseCase{
		corpus:    corpus,
		embedder:  embedder,
		vectorDB:  vectorDB,
		batchSize: batchSize,
	}
}

func (uc *ReindexUseCase) ReindexCorpus(ctx context.Context) (domain.ReindexStats, error) {
	started := time.Now()
	stats := domain.ReindexStats{}
	afterID := ""
	for {
		batch, err := uc.loadBatch(ctx, afterID)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			break
		}

		vectors, err := uc.embed(ctx, batch)
		if err != nil {
			return stats, err
		}
		if err := uc.index(ctx, batch, vectors); err != nil {
			return stats, err
		}

		stats.Chunks += len(batch)
		stats.Batches++
		afterID = batch[len(batch)-1].ID
		if len(batch) < uc.batchSize {
			break
		}
	}
	stats.Duration = time.Since(started)
	return stats, nil
}

func (uc *ReindexUseCase) loadBatch(ctx context.Context, afterID string) ([]domain.Chunk, error) {
	chunks, err := uc.corpus.ListChunks(ctx, afterID, uc.batchSize)
	if err != nil {
		return nil, fmt.Errorf("list chunks after %q: %w", afterID, err)
	}
	return chunks, nil
}

func (uc *ReindexUseCase) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.SearchText())
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}

func (uc *ReindexUseCase) index(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if err := uc.vectorDB.IndexChunks(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("index chunks in vector db: %w", err)
	}
	return nil
}

// ReindexRequestUseCase publishes reindex requests for the worker.
type ReindexRequestUseCase struct {
	queue ports.ReindexQueue
	now   func() time.Time
}

func NewReindexRequestUseCase(queue ports.ReindexQueue) *ReindexRequestUseCase {
	return &ReindexRequestUseCase{queue: queue, now: time.Now}
}

func (uc *ReindexRequestUseCase) RequestReindex(ctx context.Context, reason string) (domain.ReindexRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual"
	}
	if uc.queue == nil {
		return domain.ReindexRequest{}, domain.WrapError(domain.ErrTemporary, "request reindex", errors.New("reindex queue is not configured"))
	}
	req := domain.ReindexRequest{
		RequestID:   uuid.NewString(),
		Reason:      reason,
		RequestedAt: uc.now().UTC(),
	}
	if err := uc.queue.PublishReindexRequested(ctx, req); err != nil {
		return domain.ReindexRequest{}, fmt.Errorf("publish reindex request: %w", err)
	}
	return req, nil
}
