package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/ports"
	"github.com/kirillkom/granth-assistant/internal/core/reference"
)

type RetrieveUseCase struct {
	books    atomic.Pointer[bookSet]
	corpus   ports.CorpusStore
	lexical  ports.LexicalIndex
	semantic ports.SemanticIndex
	memory   ports.MemoryStore
	limits   domain.RetrievalLimits
	logger   *slog.Logger
}

// NewRetrieveUseCase wires the hybrid retrieval core. semantic may be nil when
// the semantic index is disabled; every request then reports it as degraded.
func NewRetrieveUseCase(
	books []domain.Book,
	corpus ports.CorpusStore,
	lexical ports.LexicalIndex,
	semantic ports.SemanticIndex,
	memory ports.MemoryStore,
	limits domain.RetrievalLimits,
	logger *slog.Logger,
) *RetrieveUseCase {
	if limits.DefaultTopK <= 0 {
		limits.DefaultTopK = 6
	}
	if limits.MaxTopK <= 0 {
		limits.MaxTopK = 12
	}
	if limits.OverfetchFactor <= 0 {
		limits.OverfetchFactor = 4
	}
	if limits.MinCandidates <= 0 {
		limits.MinCandidates = 12
	}
	if limits.RRFK <= 0 {
		limits.RRFK = defaultRRFK
	}
	if logger == nil {
		logger = slog.Default()
	}

	uc := &RetrieveUseCase{
		corpus:   corpus,
		lexical:  lexical,
		semantic: semantic,
		memory:   memory,
		limits:   limits,
		logger:   logger,
	}
	uc.books.Store(newBookSet(books))
	return uc
}

// resolvedQuery is the parsed and memory-merged form of one request.
type resolvedQuery struct {
	threadID   string
	text       string
	topK       int
	parsed     reference.ParseResult
	resolution reference.Resolution
	memory     domain.ConversationMemoryState
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, req domain.RetrieveRequest) (*domain.RetrieveResult, error) {
	rq, err := uc.resolve(ctx, req.ThreadID, req.Query, req.Override, req.TopK)
	if err != nil {
		return nil, err
	}

	evidence, degraded, err := uc.search(ctx, rq)
	if err != nil {
		return nil, err
	}

	updated := false
	if len(evidence) > 0 {
		updated, err = uc.commitMemory(ctx, rq)
		if err != nil {
			return nil, err
		}
	}

	return &domain.RetrieveResult{
		Evidence:      evidence,
		Reference:     rq.resolution.Reference,
		Candidates:    rq.parsed.Candidates,
		Intent:        rq.parsed.Intent,
		Inherited:     rq.resolution.Inherited,
		Degraded:      degraded,
		MemoryUpdated: updated,
	}, nil
}

// ResolveReference parses and resolves text against thread memory without
// searching or writing memory. An empty thread id resolves against no memory.
func (uc *RetrieveUseCase) ResolveReference(ctx context.Context, threadID, text string, override domain.ReferenceOverride) (reference.ParseResult, reference.Resolution, error) {
	memory := domain.NewMemoryState(threadID)
	if strings.TrimSpace(threadID) != "" {
		loaded, err := uc.memory.Load(ctx, threadID)
		if err != nil {
			return reference.ParseResult{}, reference.Resolution{}, fmt.Errorf("load thread memory: %w", err)
		}
		memory = loaded
	}
	set := uc.books.Load()
	override.Book = reference.CanonicalBook(override.Book, set.books)
	parsed := set.parser.Parse(text)
	return parsed, reference.Resolve(parsed, memory, override), nil
}

func (uc *RetrieveUseCase) resolve(
	ctx context.Context,
	threadID, text string,
	override domain.ReferenceOverride,
	topK int,
) (resolvedQuery, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return resolvedQuery{}, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("thread_id is required"))
	}
	if strings.TrimSpace(text) == "" {
		return resolvedQuery{}, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("query is required"))
	}
	if topK <= 0 {
		return resolvedQuery{}, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("top_k must be positive, got %d", topK))
	}
	if topK > uc.limits.MaxTopK {
		topK = uc.limits.MaxTopK
	}

	memory, err := uc.memory.Load(ctx, threadID)
	if err != nil {
		return resolvedQuery{}, fmt.Errorf("load thread memory: %w", err)
	}
	memory.ThreadID = threadID

	set := uc.books.Load()
	override.Book = reference.CanonicalBook(override.Book, set.books)
	parsed := set.parser.Parse(text)
	if parsed.HasAmbiguity() {
		uc.logger.Info("reference_ambiguous", "thread_id", threadID, "normalized", parsed.Normalized)
	}

	return resolvedQuery{
		threadID:   threadID,
		text:       text,
		topK:       topK,
		parsed:     parsed,
		resolution: reference.Resolve(parsed, memory, override),
		memory:     memory,
	}, nil
}

// search runs both indexes concurrently, fuses their lists, hydrates chunks
// and applies the structural filter. A failing index only degrades the result.
func (uc *RetrieveUseCase) search(ctx context.Context, rq resolvedQuery) ([]domain.RetrievalHit, domain.DegradedFlags, error) {
	fetch := max(rq.topK*uc.limits.OverfetchFactor, uc.limits.MinCandidates, rq.topK)
	lexicalText := rq.text
	if hints := rq.resolution.Reference.SearchHints(); hints != "" {
		lexicalText = hints + "\n" + rq.text
	}

	var (
		lexicalIDs, semanticIDs []domain.ScoredID
		lexicalErr, semanticErr error
		g                       errgroup.Group
	)
	g.Go(func() error {
		lexicalIDs, lexicalErr = uc.lexical.SearchLexical(ctx, lexicalText, fetch)
		return nil
	})
	if uc.semantic != nil {
		g.Go(func() error {
			semanticIDs, semanticErr = uc.semantic.SearchSemantic(ctx, rq.text, fetch)
			return nil
		})
	} else {
		semanticErr = domain.WrapError(domain.ErrIndexUnavailable, "semantic search", errors.New("semantic index disabled"))
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, domain.DegradedFlags{}, fmt.Errorf("retrieve: %w", err)
	}

	degraded := domain.DegradedFlags{Lexical: lexicalErr != nil, Semantic: semanticErr != nil}
	if lexicalErr != nil {
		lexicalIDs = nil
		uc.logger.Warn("retrieval_degraded", "index", "lexical", "thread_id", rq.threadID, "error", lexicalErr)
	}
	if semanticErr != nil {
		semanticIDs = nil
		uc.logger.Warn("retrieval_degraded", "index", "semantic", "thread_id", rq.threadID, "error", semanticErr)
	}

	fused := fuseCandidatesRRF(lexicalIDs, semanticIDs, uc.limits.RRFK)
	if len(fused) == 0 {
		return []domain.RetrievalHit{}, degraded, nil
	}

	hits, err := uc.hydrate(ctx, fused)
	if err != nil {
		return nil, degraded, err
	}
	return filterAndTrim(hits, rq.resolution.Reference, rq.topK), degraded, nil
}

func (uc *RetrieveUseCase) hydrate(ctx context.Context, fused []fusedCandidate) ([]domain.RetrievalHit, error) {
	ids := make([]string, 0, len(fused))
	for _, c := range fused {
		ids = append(ids, c.chunkID)
	}
	chunks, err := uc.corpus.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	byID := make(map[string]domain.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ID] = chunk
	}

	hits := make([]domain.RetrievalHit, 0, len(fused))
	for _, c := range fused {
		chunk, ok := byID[c.chunkID]
		if !ok {
			continue
		}
		hits = append(hits, domain.RetrievalHit{
			Chunk:        chunk,
			Score:        c.score,
			LexicalRank:  c.lexicalRank,
			SemanticRank: c.semanticRank,
		})
	}
	return hits, nil
}

// commitMemory persists the resolved reference once the turn is grounded.
func (uc *RetrieveUseCase) commitMemory(ctx context.Context, rq resolvedQuery) (bool, error) {
	if !rq.resolution.Changed {
		return false, nil
	}
	next := rq.resolution.Next
	next.ThreadID = rq.threadID
	next.UpdatedAt = time.Now().UTC()
	if err := uc.memory.Save(ctx, next); err != nil {
		return false, fmt.Errorf("save thread memory: %w", err)
	}
	return true, nil
}
