package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

func TestConversationListRecentMessagesChronological(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "thread_id", "role", "content", "citations", "created_at"}).
		AddRow("m2", "t1", domain.RoleAssistant, "answer", []byte(`[{"citation_id":"c1"}]`), now).
		AddRow("m1", "t1", domain.RoleUser, "question", nil, now.Add(-time.Second))
	mock.ExpectQuery("FROM conversation_messages").
		WithArgs("t1", 6).
		WillReturnRows(rows)

	repo := NewConversationRepository(db)
	messages, err := repo.ListRecentMessages(context.Background(), "t1", 6)
	if err != nil {
		t.Fatalf("ListRecentMessages() error = %v", err)
	}
	if len(messages) != 2 || messages[0].ID != "m1" || messages[1].ID != "m2" {
		t.Fatalf("expected chronological order, got %+v", messages)
	}
	var citations []domain.Citation
	if err := json.Unmarshal(messages[1].Citations, &citations); err != nil || citations[0].ChunkID != "c1" {
		t.Fatalf("expected citations to round trip, got %s", string(messages[1].Citations))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConversationAppendMessageStoresNullCitations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO conversation_messages").
		WithArgs("m1", "t1", domain.RoleUser, "prakran 14", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewConversationRepository(db)
	if err := repo.AppendMessage(context.Background(), domain.ConversationMessage{
		ID: "m1", ThreadID: "t1", Role: domain.RoleUser, Content: "prakran 14",
	}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConversationListThreadsShortensPreview(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	long := strings.Repeat("word ", 40)
	rows := sqlmock.NewRows([]string{"thread_id", "title", "preview", "last_message_at", "message_count"}).
		AddRow("t1", "prakran 14 summary", long, time.Now(), 4)
	mock.ExpectQuery("GROUP BY m.thread_id").
		WithArgs(20).
		WillReturnRows(rows)

	repo := NewConversationRepository(db)
	threads, err := repo.ListThreads(context.Background(), 20)
	if err != nil {
		t.Fatalf("ListThreads() error = %v", err)
	}
	if len(threads) != 1 || threads[0].MessageCount != 4 {
		t.Fatalf("unexpected threads %+v", threads)
	}
	if got := len([]rune(threads[0].Preview)); got != threadPreviewRunes+3 {
		t.Fatalf("expected shortened preview, got %d runes", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
