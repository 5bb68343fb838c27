package usecase

import (
	"context"
	"sync"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

type corpusFake struct {
	chunks     map[string]domain.Chunk
	ordered    []domain.Chunk
	getErr     error
	listErr    error
	count      int
	countErr   error
	countRef   domain.StructuralReference
	filters    domain.CorpusFilters
	filtersErr error
	requested  [][]string
}

func newCorpusFake(chunks ...domain.Chunk) *corpusFake {
	f := &corpusFake{chunks: make(map[string]domain.Chunk, len(chunks)), ordered: chunks}
	for _, chunk := range chunks {
		f.chunks[chunk.ID] = chunk
	}
	return f
}

func (f *corpusFake) GetChunksByIDs(_ context.Context, ids []string) ([]domain.Chunk, error) {
	f.requested = append(f.requested, ids)
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if chunk, ok := f.chunks[id]; ok {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (f *corpusFake) ListChunks(_ context.Context, afterID string, limit int) ([]domain.Chunk, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Chunk, 0, limit)
	for _, chunk := range f.ordered {
		if chunk.ID <= afterID {
			continue
		}
		out = append(out, chunk)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *corpusFake) ReplaceCorpus(context.Context, []domain.Chunk) error { return nil }

func (f *corpusFake) CountChunks(context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.chunks), nil
}

func (f *corpusFake) CountVerses(_ context.Context, ref domain.StructuralReference) (int, error) {
	f.countRef = ref
	return f.count, nil
}

func (f *corpusFake) ListFilters(context.Context) (domain.CorpusFilters, error) {
	return f.filters, f.filtersErr
}

func (f *corpusFake) ListBooks(context.Context) ([]string, error) { return f.filters.Books, nil }

type indexFake struct {
	ids   []domain.ScoredID
	err   error
	calls int
	limit int
	mu    sync.Mutex
}

func (f *indexFake) search(limit int) ([]domain.ScoredID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

func (f *indexFake) SearchLexical(_ context.Context, _ string, limit int) ([]domain.ScoredID, error) {
	return f.search(limit)
}

func (f *indexFake) SearchSemantic(_ context.Context, _ string, limit int) ([]domain.ScoredID, error) {
	return f.search(limit)
}

type memoryFake struct {
	states  map[string]domain.ConversationMemoryState
	saved   []domain.ConversationMemoryState
	loadErr error
	saveErr error
}

func newMemoryFake() *memoryFake {
	return &memoryFake{states: make(map[string]domain.ConversationMemoryState)}
}

func (f *memoryFake) Load(_ context.Context, threadID string) (domain.ConversationMemoryState, error) {
	if f.loadErr != nil {
		return domain.ConversationMemoryState{}, f.loadErr
	}
	if state, ok := f.states[threadID]; ok {
		return state, nil
	}
	return domain.NewMemoryState(threadID), nil
}

func (f *memoryFake) Save(_ context.Context, state domain.ConversationMemoryState) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, state)
	f.states[state.ThreadID] = state
	return nil
}

type conversationFake struct {
	messages  []domain.ConversationMessage
	threads   []domain.ThreadSummary
	appendErr error
	limit     int
}

func (f *conversationFake) AppendMessage(_ context.Context, message domain.ConversationMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *conversationFake) ListRecentMessages(_ context.Context, threadID string, limit int) ([]domain.ConversationMessage, error) {
	var out []domain.ConversationMessage
	for _, m := range f.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *conversationFake) ListThreadMessages(ctx context.Context, threadID string) ([]domain.ConversationMessage, error) {
	return f.ListRecentMessages(ctx, threadID, len(f.messages))
}

func (f *conversationFake) ListThreads(_ context.Context, limit int) ([]domain.ThreadSummary, error) {
	f.limit = limit
	return f.threads, nil
}

type composerFake struct {
	answer string
	err    error
	calls  int
	req    domain.ComposeRequest
}

func (f *composerFake) ComposeAnswer(_ context.Context, req domain.ComposeRequest) (string, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type probeFake struct {
	err error
}

func (f probeFake) Ready(context.Context) error { return f.err }

var fakeBooks = []domain.Book{{Name: "singar"}, {Name: "ShriKirantan", Aliases: []string{"kirtan"}}}

func sectionChunk(id, book string, section, relative int) domain.Chunk {
	return domain.Chunk{
		ID:            id,
		Book:          book,
		Section:       domain.IntPtr(section),
		RelativeVerse: relative,
		VerseLines:    []string{id + " line one", id + " line two", id + " line three"},
		Meaning:       "meaning of " + id,
	}
}

func ids(values ...string) []domain.ScoredID {
	out := make([]domain.ScoredID, 0, len(values))
	for i, v := range values {
		out = append(out, domain.ScoredID{ChunkID: v, Score: 1 / float64(i+1)})
	}
	return out
}
