package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

const chunkColumns = `id, book, section, section_name, verse_number, relative_verse, verse_lines, meaning, page_number, source_path, position, prev_context, next_context`

// CorpusRepository stores canonical chunks and serves full-text search over them.
type CorpusRepository struct {
	db *sql.DB
}

func NewCorpusRepository(db *sql.DB) *CorpusRepository {
	return &CorpusRepository{db: db}
}

func (r *CorpusRepository) GetChunksByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return []domain.Chunk{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+chunkColumns+`
FROM chunks
WHERE id IN (`+strings.Join(placeholders, ",")+`)
`, args...)
	if err != nil {
		return nil, fmt.Errorf("get chunks by ids: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ListChunks pages through the corpus in id order.
func (r *CorpusRepository) ListChunks(ctx context.Context, afterID string, limit int) ([]domain.Chunk, error) {
	if limit <= 0 {
		return []domain.Chunk{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+chunkColumns+`
FROM chunks
WHERE id > $1
ORDER BY id ASC
LIMIT $2
`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ReplaceCorpus swaps the whole chunk set inside one transaction.
func (r *CorpusRepository) ReplaceCorpus(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace corpus tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (`+chunkColumns+`, search_text)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		linesJSON, err := json.Marshal(nonNilLines(chunk.VerseLines))
		if err != nil {
			return fmt.Errorf("marshal verse lines: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.Book, nullableInt(chunk.Section), chunk.SectionName, chunk.VerseNumber,
			chunk.RelativeVerse, linesJSON, chunk.Meaning, chunk.PageNumber, chunk.SourcePath,
			chunk.Position, chunk.PrevContext, chunk.NextContext, chunk.SearchText(),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace corpus tx: %w", err)
	}
	return nil
}

func (r *CorpusRepository) CountChunks(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// CountVerses counts distinct verses in the sections the reference names.
func (r *CorpusRepository) CountVerses(ctx context.Context, ref domain.StructuralReference) (int, error) {
	bounds, ok := ref.SectionBounds()
	if !ok {
		return 0, domain.WrapError(domain.ErrInvalidInput, "count verses", fmt.Errorf("reference %s has no section", ref))
	}

	query := `
SELECT COUNT(DISTINCT (section, relative_verse))
FROM chunks
WHERE relative_verse > 0 AND section BETWEEN $1 AND $2`
	args := []any{bounds.Start, bounds.End}
	if ref.Book.IsResolved() {
		query += ` AND lower(book) = lower($3)`
		args = append(args, ref.Book.Value)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count verses: %w", err)
	}
	return count, nil
}

func (r *CorpusRepository) ListFilters(ctx context.Context) (domain.CorpusFilters, error) {
	books, err := r.ListBooks(ctx)
	if err != nil {
		return domain.CorpusFilters{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT section
FROM chunks
WHERE section IS NOT NULL
ORDER BY section ASC
`)
	if err != nil {
		return domain.CorpusFilters{}, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	sections := make([]int, 0)
	for rows.Next() {
		var section int
		if err := rows.Scan(&section); err != nil {
			return domain.CorpusFilters{}, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return domain.CorpusFilters{}, fmt.Errorf("iterate sections: %w", err)
	}
	return domain.CorpusFilters{Books: books, Sections: sections}, nil
}

func (r *CorpusRepository) ListBooks(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT book FROM chunks ORDER BY book ASC`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := make([]string, 0)
	for rows.Next() {
		var book string
		if err := rows.Scan(&book); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

// SearchLexical ranks chunks with ts_rank_cd over the prefix query built from text.
func (r *CorpusRepository) SearchLexical(ctx context.Context, text string, limit int) ([]domain.ScoredID, error) {
	tsQuery := buildPrefixQuery(text)
	if tsQuery == "" || limit <= 0 {
		return []domain.ScoredID{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, ts_rank_cd(search_tsv, q) AS score
FROM chunks, to_tsquery('simple', $1) AS q
WHERE search_tsv @@ q
ORDER BY score DESC, id ASC
LIMIT $2
`, tsQuery, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "lexical search", err)
	}
	defer rows.Close()

	out := make([]domain.ScoredID, 0, limit)
	for rows.Next() {
		var hit domain.ScoredID
		if err := rows.Scan(&hit.ChunkID, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan lexical hit: %w", err)
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "lexical search", err)
	}
	return out, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanChunks(rows rowScanner) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, 0)
	for rows.Next() {
		var chunk domain.Chunk
		var section sql.NullInt64
		var linesRaw []byte
		if err := rows.Scan(
			&chunk.ID,
			&chunk.Book,
			&section,
			&chunk.SectionName,
			&chunk.VerseNumber,
			&chunk.RelativeVerse,
			&linesRaw,
			&chunk.Meaning,
			&chunk.PageNumber,
			&chunk.SourcePath,
			&chunk.Position,
			&chunk.PrevContext,
			&chunk.NextContext,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if section.Valid {
			chunk.Section = domain.IntPtr(int(section.Int64))
		}
		if len(linesRaw) > 0 {
			if err := json.Unmarshal(linesRaw, &chunk.VerseLines); err != nil {
				return nil, fmt.Errorf("unmarshal verse lines of %s: %w", chunk.ID, err)
			}
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nonNilLines(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
