package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

type bookSourceFake struct {
	mu    sync.Mutex
	books []domain.Book
	err   error
	calls int
}

func (f *bookSourceFake) Books(context.Context) ([]domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.books, nil
}

func (f *bookSourceFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefreshBooksTeachesParserNewBook(t *testing.T) {
	f := newRetrieveFixture()
	ctx := context.Background()

	parsed, _, err := f.uc.ResolveReference(ctx, "", "kalash prakran 3", domain.ReferenceOverride{})
	if err != nil {
		t.Fatalf("ResolveReference() error = %v", err)
	}
	if parsed.Reference.Book.IsResolved() {
		t.Fatalf("expected unknown book before refresh, got %s", parsed.Reference)
	}

	source := &bookSourceFake{books: append(append([]domain.Book{}, fakeBooks...), domain.Book{Name: "Kalash"})}
	changed, err := f.uc.RefreshBooks(ctx, source)
	if err != nil || !changed {
		t.Fatalf("expected refresh to change books, got changed=%v err=%v", changed, err)
	}

	parsed, resolution, err := f.uc.ResolveReference(ctx, "", "kalash prakran 3", domain.ReferenceOverride{Book: "KALASH"})
	if err != nil {
		t.Fatalf("ResolveReference() error = %v", err)
	}
	if parsed.Reference.Book.Value != "Kalash" {
		t.Fatalf("expected parser to know Kalash, got %s", parsed.Reference)
	}
	if resolution.Reference.Book.Value != "Kalash" {
		t.Fatalf("expected override to canonicalise to Kalash, got %s", resolution.Reference)
	}
	if len(f.uc.Books()) != len(fakeBooks)+1 {
		t.Fatalf("expected %d books, got %d", len(fakeBooks)+1, len(f.uc.Books()))
	}

	changed, err = f.uc.RefreshBooks(ctx, source)
	if err != nil || changed {
		t.Fatalf("expected unchanged list to be a no-op, got changed=%v err=%v", changed, err)
	}
}

func TestRefreshBooksKeepsListOnError(t *testing.T) {
	f := newRetrieveFixture()
	source := &bookSourceFake{err: errors.New("db down")}

	if _, err := f.uc.RefreshBooks(context.Background(), source); err == nil {
		t.Fatalf("expected refresh error")
	}
	if len(f.uc.Books()) != len(fakeBooks) {
		t.Fatalf("expected previous books kept, got %+v", f.uc.Books())
	}
}

func TestWatchBooksPollsUntilCancelled(t *testing.T) {
	f := newRetrieveFixture()
	source := &bookSourceFake{books: []domain.Book{{Name: "Kalash"}}}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.uc.WatchBooks(ctx, source, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for source.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatalf("expected WatchBooks to poll the source")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected WatchBooks to return after cancel")
	}
	books := f.uc.Books()
	if len(books) != 1 || books[0].Name != "Kalash" {
		t.Fatalf("expected polled books applied, got %+v", books)
	}
}
