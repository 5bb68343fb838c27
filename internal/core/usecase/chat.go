package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/ports"
)

const (
	notFoundAnswer   = "I could not find this clearly in available texts."
	notFoundFollowUp = "Please mention granth, prakran, or a key chopai phrase so I can search better."
)

type ChatUseCase struct {
	retriever     *RetrieveUseCase
	corpus        ports.CorpusStore
	conversations ports.ConversationStore
	composer      ports.AnswerComposer
	limits        domain.ChatLimits
	now           func() time.Time
}

func NewChatUseCase(
	retriever *RetrieveUseCase,
	corpus ports.CorpusStore,
	conversations ports.ConversationStore,
	composer ports.AnswerComposer,
	limits domain.ChatLimits,
) *ChatUseCase {
	if limits.RecentMessages <= 0 {
		limits.RecentMessages = 6
	}
	if limits.ComposerTimeout <= 0 {
		limits.ComposerTimeout = 45 * time.Second
	}
	if limits.MaxCountSpan <= 0 {
		limits.MaxCountSpan = 20
	}

	return &ChatUseCase{
		retriever:     retriever,
		corpus:        corpus,
		conversations: conversations,
		composer:      composer,
		limits:        limits,
		now:           time.Now,
	}
}

func (uc *ChatUseCase) Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	style, err := domain.ResolveStyle(req.StyleMode, req.Message)
	if err != nil {
		return nil, err
	}
	rq, err := uc.retriever.resolve(ctx, req.ThreadID, req.Message, req.Override, req.TopK)
	if err != nil {
		return nil, err
	}

	recent, err := uc.conversations.ListRecentMessages(ctx, rq.threadID, uc.limits.RecentMessages)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}

	if err := uc.appendMessage(ctx, rq.threadID, domain.RoleUser, req.Message, nil); err != nil {
		return nil, err
	}

	if rq.parsed.Intent == domain.IntentCountVerses && rq.resolution.Reference.HasSection() {
		answer, ok, err := uc.countVerses(ctx, rq)
		if err != nil {
			return nil, err
		}
		if ok {
			answer.Style = style
			return answer, nil
		}
	}

	evidence, degraded, err := uc.retriever.search(ctx, rq)
	if err != nil {
		return nil, err
	}
	evidence = uc.grounded(evidence)

	if len(evidence) == 0 {
		answer := &domain.Answer{
			Text:             notFoundAnswer,
			NotFound:         true,
			FollowUpQuestion: notFoundFollowUp,
			Citations:        []domain.Citation{},
			Reference:        rq.resolution.Reference,
			Intent:           rq.parsed.Intent,
			Style:            style,
			Degraded:         degraded,
		}
		if err := uc.appendMessage(ctx, rq.threadID, domain.RoleAssistant, answer.Text, nil); err != nil {
			return nil, err
		}
		return answer, nil
	}

	if _, err := uc.retriever.commitMemory(ctx, rq); err != nil {
		return nil, err
	}

	composeCtx, cancel := context.WithTimeout(ctx, uc.limits.ComposerTimeout)
	defer cancel()
	text, err := uc.composer.ComposeAnswer(composeCtx, domain.ComposeRequest{
		Question:    req.Message,
		Intent:      rq.parsed.Intent,
		Reference:   rq.resolution.Reference,
		Evidence:    evidence,
		RecentTurns: recent,
		Summary:     rq.memory.Summary,
		Style:       style,
	})
	if err != nil {
		return nil, fmt.Errorf("compose answer: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = notFoundAnswer
	}

	citations := buildCitations(evidence)
	if err := uc.appendMessage(ctx, rq.threadID, domain.RoleAssistant, text, citations); err != nil {
		return nil, err
	}

	return &domain.Answer{
		Text:      text,
		Citations: citations,
		Reference: rq.resolution.Reference,
		Intent:    rq.parsed.Intent,
		Style:     style,
		Degraded:  degraded,
	}, nil
}

// countVerses answers count questions from the corpus. ok is false when the
// referenced sections hold no verses, so the caller falls back to retrieval.
func (uc *ChatUseCase) countVerses(ctx context.Context, rq resolvedQuery) (*domain.Answer, bool, error) {
	ref := rq.resolution.Reference
	if ref.Range.IsResolved() {
		span := ref.Range.Value.Normalized()
		if span.End-span.Start > uc.limits.MaxCountSpan {
			span.End = span.Start + uc.limits.MaxCountSpan
		}
		ref.Range = domain.Resolved(span)
	}
	// Counting covers whole sections.
	ref.Verse = domain.Field[string]{}
	ref.RelativeVerse = domain.Field[int]{}

	count, err := uc.corpus.CountVerses(ctx, ref)
	if err != nil {
		return nil, false, fmt.Errorf("count verses: %w", err)
	}
	if count == 0 {
		return nil, false, nil
	}

	text := countAnswerText(ref, count)
	if _, err := uc.retriever.commitMemory(ctx, rq); err != nil {
		return nil, false, err
	}
	if err := uc.appendMessage(ctx, rq.threadID, domain.RoleAssistant, text, nil); err != nil {
		return nil, false, err
	}

	return &domain.Answer{
		Text:      text,
		Citations: []domain.Citation{},
		Reference: ref,
		Intent:    rq.parsed.Intent,
	}, true, nil
}

func countAnswerText(ref domain.StructuralReference, count int) string {
	where := ""
	if bounds, ok := ref.SectionBounds(); ok {
		if bounds.IsSingle() {
			where = fmt.Sprintf("Prakran %d", bounds.Start)
		} else {
			where = fmt.Sprintf("Prakran %d to %d", bounds.Start, bounds.End)
		}
	}
	if ref.Book.IsResolved() {
		where += " of " + ref.Book.Value
	}
	if count == 1 {
		return where + " has 1 chopai."
	}
	return fmt.Sprintf("%s has %d chopai in total.", where, count)
}

func (uc *ChatUseCase) grounded(hits []domain.RetrievalHit) []domain.RetrievalHit {
	if uc.limits.MinGroundingScore <= 0 {
		return hits
	}
	out := hits[:0:0]
	for _, hit := range hits {
		if hit.Score >= uc.limits.MinGroundingScore {
			out = append(out, hit)
		}
	}
	return out
}

func (uc *ChatUseCase) appendMessage(ctx context.Context, threadID, role, content string, citations []domain.Citation) error {
	var raw json.RawMessage
	if len(citations) > 0 {
		payload, err := json.Marshal(citations)
		if err != nil {
			return fmt.Errorf("marshal citations: %w", err)
		}
		raw = payload
	}
	if strings.TrimSpace(content) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "append message", errors.New("empty message content"))
	}
	if err := uc.conversations.AppendMessage(ctx, domain.ConversationMessage{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		Citations: raw,
		CreatedAt: uc.now().UTC(),
	}); err != nil {
		return fmt.Errorf("append %s message: %w", role, err)
	}
	return nil
}
