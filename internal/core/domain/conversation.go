package domain

import (
	"encoding/json"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ConversationMessage struct {
	ID        string          `json:"id"`
	ThreadID  string          `json:"thread_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Citations json.RawMessage `json:"citations,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type ThreadSummary struct {
	ThreadID      string    `json:"thread_id"`
	Title         string    `json:"title"`
	Preview       string    `json:"preview"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
}

// ConversationMemoryState is the per-thread record consumed by the resolver.
type ConversationMemoryState struct {
	ThreadID      string                `json:"thread_id"`
	LastReference StructuralReference   `json:"last_reference"`
	RecentTurns   []ConversationMessage `json:"recent_turns,omitempty"`
	Summary       string                `json:"summary,omitempty"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func NewMemoryState(threadID string) ConversationMemoryState {
	return ConversationMemoryState{ThreadID: threadID}
}
