package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	})
}

func TestComposerBuildsGroundedPrompt(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":" grounded answer "}`))
	}))
	defer server.Close()

	composer := NewComposer(New(server.URL, "gen", "embed", nil))
	section := 14
	answer, err := composer.ComposeAnswer(context.Background(), domain.ComposeRequest{
		Question:  "what did chaupai 4 say?",
		Intent:    domain.IntentSpecificVerse,
		Reference: domain.StructuralReference{Section: domain.Resolved(14), RelativeVerse: domain.Resolved(4)},
		Evidence: []domain.RetrievalHit{{
			Chunk: domain.Chunk{Book: "Singar", Section: &section, VerseLines: []string{"line one", "line two"}, Meaning: "the meaning"},
			Score: 0.03,
		}},
		RecentTurns: []domain.ConversationMessage{{Role: domain.RoleUser, Content: "prakran 14"}},
		Summary:     "talking about singar",
		Style:       domain.StyleGujarati,
	})
	if err != nil {
		t.Fatalf("ComposeAnswer() error = %v", err)
	}
	if answer != "grounded answer" {
		t.Fatalf("expected trimmed answer, got %q", answer)
	}
	for _, want := range []string{"what did chaupai 4 say?", "line one | line two", "the meaning", "Prakran: 14", "user: prakran 14", "talking about singar", string(domain.IntentSpecificVerse), "Answer in Gujarati written in Gujarati script."} {
		if !strings.Contains(capturedPrompt, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, capturedPrompt)
		}
	}
}

func TestComposerEmptyCompletionIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"  "}`))
	}))
	defer server.Close()

	_, err := NewComposer(New(server.URL, "gen", "embed", nil)).ComposeAnswer(context.Background(), domain.ComposeRequest{Question: "q"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "gen", "embed", testExecutor())).Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must not be temporary, got %v", err)
	}
}

func TestEmbedRetriesUnavailableServer(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "loading model", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	vectors, err := NewEmbedder(New(server.URL, "gen", "embed", testExecutor())).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || calls.Load() != 2 {
		t.Fatalf("expected 2 vectors after one retry, got %d vectors and %d calls", len(vectors), calls.Load())
	}
}

func TestEmbedPersistentOutageIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "gen", "embed", testExecutor())).EmbedQuery(context.Background(), "hello")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestEmbedRejectsVectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1]]}`))
	}))
	defer server.Close()

	if _, err := NewEmbedder(New(server.URL, "gen", "embed", nil)).Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestReadyUsesTagsEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3"}]}`))
	}))
	defer server.Close()

	if err := NewComposer(New(server.URL, "gen", "embed", nil)).Ready(context.Background()); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
}
