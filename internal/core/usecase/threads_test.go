package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

func TestThreadsMessagesUnknownThread(t *testing.T) {
	uc := NewThreadsUseCase(&conversationFake{}, newMemoryFake(), 6)
	if _, err := uc.Messages(context.Background(), "missing"); !domain.IsKind(err, domain.ErrThreadNotFound) {
		t.Fatalf("expected thread not found, got %v", err)
	}
	if _, err := uc.Messages(context.Background(), ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestThreadsListClampsLimit(t *testing.T) {
	conversations := &conversationFake{}
	uc := NewThreadsUseCase(conversations, newMemoryFake(), 6)

	if _, err := uc.Threads(context.Background(), 0); err != nil {
		t.Fatalf("Threads() error = %v", err)
	}
	if conversations.limit != defaultThreadListLimit {
		t.Fatalf("expected default limit, got %d", conversations.limit)
	}
	if _, err := uc.Threads(context.Background(), 10_000); err != nil {
		t.Fatalf("Threads() error = %v", err)
	}
	if conversations.limit != maxThreadListLimit {
		t.Fatalf("expected clamped limit, got %d", conversations.limit)
	}
}

func TestThreadsMemoryAttachesRecentTurns(t *testing.T) {
	conversations := &conversationFake{messages: []domain.ConversationMessage{
		{ThreadID: "t1", Role: domain.RoleUser, Content: "prakran 14"},
		{ThreadID: "t2", Role: domain.RoleUser, Content: "other"},
	}}
	memory := newMemoryFake()
	memory.states["t1"] = domain.ConversationMemoryState{
		ThreadID:      "t1",
		LastReference: domain.StructuralReference{Section: domain.Resolved(14)},
	}
	uc := NewThreadsUseCase(conversations, memory, 6)

	state, err := uc.Memory(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Memory() error = %v", err)
	}
	if state.LastReference.Section.Value != 14 || len(state.RecentTurns) != 1 {
		t.Fatalf("unexpected memory state %+v", state)
	}
}

func TestCorpusHealthStates(t *testing.T) {
	corpus := newCorpusFake(sectionChunk("a", "singar", 1, 1))

	healthy := NewCorpusUseCase(corpus, probeFake{}, probeFake{}).Health(context.Background())
	if healthy.Status != "ok" || healthy.IndexedChunks != 1 {
		t.Fatalf("unexpected healthy state %+v", healthy)
	}

	degraded := NewCorpusUseCase(corpus, nil, probeFake{err: errors.New("down")}).Health(context.Background())
	if degraded.Status != "degraded" || degraded.SemanticReady || degraded.ComposerReady {
		t.Fatalf("unexpected degraded state %+v", degraded)
	}

	corpus.countErr = errors.New("db down")
	down := NewCorpusUseCase(corpus, probeFake{}, probeFake{}).Health(context.Background())
	if down.Status != "unavailable" || down.DBReady {
		t.Fatalf("unexpected unavailable state %+v", down)
	}
}

func TestCorpusFiltersNeverNil(t *testing.T) {
	filters, err := NewCorpusUseCase(newCorpusFake(), nil, nil).Filters(context.Background())
	if err != nil {
		t.Fatalf("Filters() error = %v", err)
	}
	if filters.Books == nil || filters.Sections == nil {
		t.Fatalf("expected empty slices, got %+v", filters)
	}
}
