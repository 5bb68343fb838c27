package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/ports"
)

const (
	defaultThreadListLimit = 50
	maxThreadListLimit     = 200
)

// ThreadsUseCase serves thread history, thread listing and memory snapshots.
type ThreadsUseCase struct {
	conversations  ports.ConversationStore
	memory         ports.MemoryStore
	recentMessages int
}

func NewThreadsUseCase(conversations ports.ConversationStore, memory ports.MemoryStore, recentMessages int) *ThreadsUseCase {
	if recentMessages <= 0 {
		recentMessages = 6
	}
	return &ThreadsUseCase{conversations: conversations, memory: memory, recentMessages: recentMessages}
}

func (uc *ThreadsUseCase) Messages(ctx context.Context, threadID string) ([]domain.ConversationMessage, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "thread messages", errors.New("thread_id is required"))
	}
	messages, err := uc.conversations.ListThreadMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list thread messages: %w", err)
	}
	if len(messages) == 0 {
		return nil, domain.WrapError(domain.ErrThreadNotFound, "thread messages", fmt.Errorf("thread %q has no messages", threadID))
	}
	return messages, nil
}

func (uc *ThreadsUseCase) Threads(ctx context.Context, limit int) ([]domain.ThreadSummary, error) {
	if limit <= 0 {
		limit = defaultThreadListLimit
	}
	if limit > maxThreadListLimit {
		limit = maxThreadListLimit
	}
	threads, err := uc.conversations.ListThreads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return threads, nil
}

// Memory returns the stored reference memory with the latest turns attached.
func (uc *ThreadsUseCase) Memory(ctx context.Context, threadID string) (domain.ConversationMemoryState, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return domain.ConversationMemoryState{}, domain.WrapError(domain.ErrInvalidInput, "thread memory", errors.New("thread_id is required"))
	}
	state, err := uc.memory.Load(ctx, threadID)
	if err != nil {
		return domain.ConversationMemoryState{}, fmt.Errorf("load thread memory: %w", err)
	}
	state.ThreadID = threadID
	recent, err := uc.conversations.ListRecentMessages(ctx, threadID, uc.recentMessages)
	if err != nil {
		return domain.ConversationMemoryState{}, fmt.Errorf("load recent messages: %w", err)
	}
	state.RecentTurns = recent
	return state, nil
}
