package httpadapter

import (
	"context"
	"net/http"

	"github.com/kirillkom/granth-assistant/internal/config"
	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

type retrieverFake struct {
	req    domain.RetrieveRequest
	result *domain.RetrieveResult
	err    error
}

func (f *retrieverFake) Retrieve(_ context.Context, req domain.RetrieveRequest) (*domain.RetrieveResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &domain.RetrieveResult{Evidence: []domain.RetrievalHit{}}, nil
	}
	return f.result, nil
}

type askerFake struct {
	req    domain.AskRequest
	answer *domain.Answer
	err    error
}

func (f *askerFake) Ask(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	if f.answer == nil {
		return &domain.Answer{Text: "ok", Citations: []domain.Citation{}}, nil
	}
	return f.answer, nil
}

type threadsFake struct {
	messages []domain.ConversationMessage
	threads  []domain.ThreadSummary
	limit    int
	err      error
}

func (f *threadsFake) Messages(_ context.Context, threadID string) ([]domain.ConversationMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.messages, nil
}

func (f *threadsFake) Threads(_ context.Context, limit int) ([]domain.ThreadSummary, error) {
	f.limit = limit
	return f.threads, f.err
}

func (f *threadsFake) Memory(_ context.Context, threadID string) (domain.ConversationMemoryState, error) {
	if f.err != nil {
		return domain.ConversationMemoryState{}, f.err
	}
	return domain.ConversationMemoryState{ThreadID: threadID, LastReference: domain.StructuralReference{Section: domain.Resolved(14)}}, nil
}

type corpusFake struct {
	filters domain.CorpusFilters
	health  domain.CorpusHealth
	err     error
}

func (f *corpusFake) Filters(context.Context) (domain.CorpusFilters, error) {
	return f.filters, f.err
}

func (f *corpusFake) Health(context.Context) domain.CorpusHealth {
	return f.health
}

type reindexFake struct {
	reason string
	err    error
}

func (f *reindexFake) RequestReindex(_ context.Context, reason string) (domain.ReindexRequest, error) {
	f.reason = reason
	if f.err != nil {
		return domain.ReindexRequest{}, f.err
	}
	return domain.ReindexRequest{RequestID: "r1", Reason: reason}, nil
}

type testServices struct {
	retriever *retrieverFake
	chat      *askerFake
	threads   *threadsFake
	corpus    *corpusFake
	reindex   *reindexFake
}

func newTestServices() *testServices {
	return &testServices{
		retriever: &retrieverFake{},
		chat:      &askerFake{},
		threads:   &threadsFake{},
		corpus:    &corpusFake{health: domain.CorpusHealth{Status: "ok", DBReady: true}},
		reindex:   &reindexFake{},
	}
}

func (s *testServices) handler(cfg config.Config) http.Handler {
	return NewRouter(cfg, Services{
		Retriever: s.retriever,
		Chat:      s.chat,
		Threads:   s.threads,
		Corpus:    s.corpus,
		Reindex:   s.reindex,
	}, nil, nil).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	return newTestServices().handler(cfg)
}
