package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

const threadPreviewRunes = 80

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, message domain.ConversationMessage) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO conversation_messages (id, thread_id, role, content, citations, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, message.ID, message.ThreadID, message.Role, message.Content, nullableJSON(message.Citations), message.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (r *ConversationRepository) ListRecentMessages(ctx context.Context, threadID string, limit int) ([]domain.ConversationMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, thread_id, role, content, citations, created_at
FROM conversation_messages
WHERE thread_id = $1
ORDER BY created_at DESC
LIMIT $2
`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	out, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Returned in descending order from SQL; reverse to keep chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *ConversationRepository) ListThreadMessages(ctx context.Context, threadID string) ([]domain.ConversationMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, thread_id, role, content, citations, created_at
FROM conversation_messages
WHERE thread_id = $1
ORDER BY created_at ASC, id ASC
`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list thread messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListThreads returns threads by latest activity. The title is the first user
// message and the preview is the latest message of any role.
func (r *ConversationRepository) ListThreads(ctx context.Context, limit int) ([]domain.ThreadSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT m.thread_id,
	COALESCE((
		SELECT f.content FROM conversation_messages f
		WHERE f.thread_id = m.thread_id AND f.role = 'user'
		ORDER BY f.created_at ASC LIMIT 1
	), '') AS title,
	COALESCE((
		SELECT l.content FROM conversation_messages l
		WHERE l.thread_id = m.thread_id
		ORDER BY l.created_at DESC LIMIT 1
	), '') AS preview,
	MAX(m.created_at) AS last_message_at,
	COUNT(*) AS message_count
FROM conversation_messages m
GROUP BY m.thread_id
ORDER BY last_message_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ThreadSummary, 0, limit)
	for rows.Next() {
		var thread domain.ThreadSummary
		if err := rows.Scan(
			&thread.ThreadID,
			&thread.Title,
			&thread.Preview,
			&thread.LastMessageAt,
			&thread.MessageCount,
		); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		thread.Title = shorten(thread.Title, threadPreviewRunes)
		thread.Preview = shorten(thread.Preview, threadPreviewRunes)
		out = append(out, thread)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return out, nil
}

func scanMessages(rows *sql.Rows) ([]domain.ConversationMessage, error) {
	out := make([]domain.ConversationMessage, 0)
	for rows.Next() {
		var msg domain.ConversationMessage
		var citations []byte
		if err := rows.Scan(
			&msg.ID,
			&msg.ThreadID,
			&msg.Role,
			&msg.Content,
			&citations,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(citations) > 0 {
			msg.Citations = append(msg.Citations, citations...)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func nullableJSON(v []byte) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

func shorten(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
