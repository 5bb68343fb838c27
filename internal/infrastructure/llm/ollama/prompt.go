package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

const (
	maxPromptEvidence = 6
	maxPromptTurns    = 4
	maxTurnRunes      = 300
)

func buildAnswerPrompt(req domain.ComposeRequest) string {
	var evidence strings.Builder
	for idx, hit := range req.Evidence {
		if idx == maxPromptEvidence {
			break
		}
		chunk := hit.Chunk
		n := idx + 1
		fmt.Fprintf(&evidence, "[%d] Granth: %s\n", n, chunk.Book)
		if chunk.Section != nil {
			fmt.Fprintf(&evidence, "[%d] Prakran: %d %s\n", n, *chunk.Section, chunk.SectionName)
		}
		if chunk.VerseNumber != "" {
			fmt.Fprintf(&evidence, "[%d] Chopai number: %s\n", n, chunk.VerseNumber)
		}
		fmt.Fprintf(&evidence, "[%d] Chopai: %s\n", n, strings.Join(chunk.VerseLines, " | "))
		fmt.Fprintf(&evidence, "[%d] Meaning: %s\n\n", n, chunk.Meaning)
	}

	var history strings.Builder
	turns := req.RecentTurns
	if len(turns) > maxPromptTurns {
		turns = turns[len(turns)-maxPromptTurns:]
	}
	for _, turn := range turns {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if r := []rune(content); len(r) > maxTurnRunes {
			content = string(r[:maxTurnRunes])
		}
		fmt.Fprintf(&history, "%s: %s\n", turn.Role, content)
	}

	style := req.Style
	if style == "" {
		style = domain.StyleEnglish
	}

	reference := "none"
	if !req.Reference.IsEmpty() {
		reference = req.Reference.String()
	}

	return fmt.Sprintf(`You are a respectful scripture assistant.
Answer using ONLY the citations below. Do not invent scripture facts.
If the citations do not answer the question, say "I could not find this clearly in available texts." and ask one clarifying question.

Output format:
1) Direct Answer: 2-3 lines.
2) Explanation from Chopai: 3-6 lines in simple language.
3) Grounding: one line listing references as [1], [2].
Keep chopai quotations in the script they are cited in.
%s

Intent: %s
Reference: %s

Session summary:
%s

Recent chat:
%s
Question:
%s

Citations:
%s`, style.Instruction(), req.Intent, reference, orNA(req.Summary), orNA(history.String()), req.Question, evidence.String())
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A\n"
	}
	return s
}
