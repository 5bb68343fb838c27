package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/ports"
	"github.com/kirillkom/granth-assistant/internal/core/reference"
)

// bookSet is the book list and the parser built from it. It is swapped whole.
type bookSet struct {
	books  []domain.Book
	parser *reference.Parser
}

func newBookSet(books []domain.Book) *bookSet {
	books = slices.Clone(books)
	return &bookSet{books: books, parser: reference.NewDefaultParser(books)}
}

// Books returns the book list the parser currently recognises.
func (uc *RetrieveUseCase) Books() []domain.Book {
	return slices.Clone(uc.books.Load().books)
}

// RefreshBooks reloads the book list from source and swaps in a new parser
// when it changed. On error the current list stays in use.
func (uc *RetrieveUseCase) RefreshBooks(ctx context.Context, source ports.BookSource) (bool, error) {
	books, err := source.Books(ctx)
	if err != nil {
		return false, fmt.Errorf("refresh books: %w", err)
	}
	if slices.EqualFunc(uc.books.Load().books, books, sameBook) {
		return false, nil
	}
	uc.books.Store(newBookSet(books))
	uc.logger.Info("book_catalog_refreshed", "books", len(books))
	return true, nil
}

// WatchBooks refreshes the book list every interval until ctx is done, so
// books added by a corpus load are recognised without a restart.
func (uc *RetrieveUseCase) WatchBooks(ctx context.Context, source ports.BookSource, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := uc.RefreshBooks(ctx, source); err != nil && ctx.Err() == nil {
				uc.logger.Warn("book_catalog_refresh_failed", "error", err)
			}
		}
	}
}

func sameBook(a, b domain.Book) bool {
	return a.Name == b.Name && slices.Equal(a.Aliases, b.Aliases)
}
