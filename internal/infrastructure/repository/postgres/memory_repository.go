package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

// ThreadMemoryRepository keeps the last resolved reference and rolling summary per thread.
type ThreadMemoryRepository struct {
	db *sql.DB
}

func NewThreadMemoryRepository(db *sql.DB) *ThreadMemoryRepository {
	return &ThreadMemoryRepository{db: db}
}

// Load returns a fresh state for threads without a stored row.
func (r *ThreadMemoryRepository) Load(ctx context.Context, threadID string) (domain.ConversationMemoryState, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT last_reference, summary, updated_at
FROM thread_memory
WHERE thread_id = $1
`, threadID)

	state := domain.NewMemoryState(threadID)
	var refRaw []byte
	if err := row.Scan(&refRaw, &state.Summary, &state.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state, nil
		}
		return domain.ConversationMemoryState{}, fmt.Errorf("load thread memory: %w", err)
	}
	if len(refRaw) > 0 {
		if err := json.Unmarshal(refRaw, &state.LastReference); err != nil {
			return domain.ConversationMemoryState{}, fmt.Errorf("unmarshal last reference: %w", err)
		}
	}
	return state, nil
}

// Save upserts the thread row; concurrent writers resolve as last write wins.
func (r *ThreadMemoryRepository) Save(ctx context.Context, state domain.ConversationMemoryState) error {
	if state.ThreadID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save thread memory", errors.New("thread_id is required"))
	}
	refJSON, err := json.Marshal(state.LastReference)
	if err != nil {
		return fmt.Errorf("marshal last reference: %w", err)
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO thread_memory (thread_id, last_reference, summary, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (thread_id) DO UPDATE
SET last_reference = EXCLUDED.last_reference, summary = EXCLUDED.summary, updated_at = EXCLUDED.updated_at
`, state.ThreadID, refJSON, state.Summary, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save thread memory: %w", err)
	}
	return nil
}
