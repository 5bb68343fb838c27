package domain

import "time"

// ScoredID is one entry of an index result list, ordered best first.
type ScoredID struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// RetrievalHit is a fused candidate. Ranks are 1-based; 0 means absent from that list.
type RetrievalHit struct {
	Chunk        Chunk   `json:"chunk"`
	Score        float64 `json:"score"`
	LexicalRank  int     `json:"lexical_rank,omitempty"`
	SemanticRank int     `json:"semantic_rank,omitempty"`
}

// BestRank is the lower of the two source ranks.
func (h RetrievalHit) BestRank() int {
	switch {
	case h.LexicalRank == 0:
		return h.SemanticRank
	case h.SemanticRank == 0:
		return h.LexicalRank
	case h.LexicalRank < h.SemanticRank:
		return h.LexicalRank
	default:
		return h.SemanticRank
	}
}

type DegradedFlags struct {
	Lexical  bool `json:"lexical"`
	Semantic bool `json:"semantic"`
}

func (d DegradedFlags) Any() bool {
	return d.Lexical || d.Semantic
}

type RetrieveRequest struct {
	Query    string            `json:"query"`
	ThreadID string            `json:"thread_id"`
	Override ReferenceOverride `json:"override"`
	TopK     int               `json:"top_k"`
	// StyleMode is "auto", empty, or one of the AnswerStyle values.
	StyleMode string `json:"style_mode,omitempty"`
}

type RetrieveResult struct {
	Evidence      []RetrievalHit       `json:"evidence"`
	Reference     StructuralReference  `json:"reference"`
	Candidates    []ReferenceCandidate `json:"candidates"`
	Intent        QueryIntent          `json:"intent"`
	Inherited     []string             `json:"inherited,omitempty"`
	Degraded      DegradedFlags        `json:"degraded"`
	MemoryUpdated bool                 `json:"memory_updated"`
}

type Citation struct {
	ChunkID     string   `json:"citation_id"`
	Book        string   `json:"book"`
	Section     *int     `json:"section,omitempty"`
	SectionName string   `json:"section_name,omitempty"`
	VerseNumber string   `json:"verse_number,omitempty"`
	VerseLines  []string `json:"verse_lines"`
	Meaning     string   `json:"meaning"`
	PageNumber  int      `json:"page_number"`
	SourcePath  string   `json:"source_path"`
	Score       float64  `json:"score"`
	PrevContext string   `json:"prev_context,omitempty"`
	NextContext string   `json:"next_context,omitempty"`
}

type AskRequest struct {
	ThreadID string            `json:"thread_id"`
	Message  string            `json:"message"`
	Override ReferenceOverride `json:"override"`
	TopK     int               `json:"top_k"`
}

type Answer struct {
	Text             string              `json:"answer"`
	NotFound         bool                `json:"not_found"`
	FollowUpQuestion string              `json:"follow_up_question,omitempty"`
	Citations        []Citation          `json:"citations"`
	Reference        StructuralReference `json:"reference"`
	Intent           QueryIntent         `json:"intent"`
	Style            AnswerStyle         `json:"style"`
	Degraded         DegradedFlags       `json:"degraded"`
}

// ComposeRequest is the input contract of the external answer composer.
type ComposeRequest struct {
	Question    string                `json:"question"`
	Intent      QueryIntent           `json:"intent"`
	Reference   StructuralReference   `json:"reference"`
	Evidence    []RetrievalHit        `json:"evidence"`
	RecentTurns []ConversationMessage `json:"recent_turns,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Style       AnswerStyle           `json:"style"`
}

type CorpusFilters struct {
	Books    []string `json:"books"`
	Sections []int    `json:"sections"`
}

type CorpusHealth struct {
	Status        string `json:"status"`
	DBReady       bool   `json:"db_ready"`
	SemanticReady bool   `json:"semantic_ready"`
	IndexedChunks int    `json:"indexed_chunks"`
	ComposerReady bool   `json:"composer_ready"`
}

// RetrievalLimits bounds one retrieval request.
type RetrievalLimits struct {
	DefaultTopK     int
	MaxTopK         int
	OverfetchFactor int
	MinCandidates   int
	RRFK            int
}

// ChatLimits controls grounding and composition of chat answers.
type ChatLimits struct {
	MinGroundingScore float64
	RecentMessages    int
	ComposerTimeout   time.Duration
	MaxCountSpan      int
}
