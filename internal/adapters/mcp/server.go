package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/reference"
)

const (
	serverName    = "granth-assistant"
	serverVersion = "1.0.0"
)

type Retriever interface {
	Retrieve(ctx context.Context, req domain.RetrieveRequest) (*domain.RetrieveResult, error)
	ResolveReference(ctx context.Context, threadID, text string, override domain.ReferenceOverride) (reference.ParseResult, reference.Resolution, error)
}

type Asker interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)
}

// Tools exposes retrieval, reference resolution and answering to MCP clients.
type Tools struct {
	retriever   Retriever
	chat        Asker
	defaultTopK int
	logger      *slog.Logger
}

func NewTools(retriever Retriever, chat Asker, defaultTopK int, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultTopK <= 0 {
		defaultTopK = 6
	}
	return &Tools{retriever: retriever, chat: chat, defaultTopK: defaultTopK, logger: logger}
}

// NewServer registers the tools on a fresh MCP server. chat may be nil, in
// which case the ask tool is not offered.
func NewServer(tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Search and cite chopai from the scripture corpus. References such as \"prakran 14 chopai 4\" are resolved against the thread's last reference."),
	)

	s.AddTool(mcp.NewTool("retrieve_passages",
		mcp.WithDescription("Hybrid lexical and semantic retrieval of chopai filtered by the resolved book, prakran and chopai reference."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question or reference text")),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Conversation thread used for follow-up resolution")),
		mcp.WithNumber("top_k", mcp.Description("Maximum number of passages")),
		mcp.WithString("book", mcp.Description("Restrict to one granth")),
		mcp.WithString("section", mcp.Description("Prakran number or range such as 14-19")),
	), tools.retrievePassages)

	s.AddTool(mcp.NewTool("resolve_reference",
		mcp.WithDescription("Parse a question into a structural reference and show how thread memory completes it. Does not change memory."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Question or reference text")),
		mcp.WithString("thread_id", mcp.Description("Conversation thread whose memory is consulted")),
		mcp.WithString("book", mcp.Description("Book override")),
		mcp.WithString("section", mcp.Description("Prakran override")),
	), tools.resolveReference)

	if tools.chat != nil {
		s.AddTool(mcp.NewTool("ask",
			mcp.WithDescription("Answer a question grounded only in retrieved chopai, with citations."),
			mcp.WithString("message", mcp.Required(), mcp.Description("User question")),
			mcp.WithString("thread_id", mcp.Required(), mcp.Description("Conversation thread")),
			mcp.WithNumber("top_k", mcp.Description("Maximum number of cited passages")),
			mcp.WithString("book", mcp.Description("Restrict to one granth")),
			mcp.WithString("section", mcp.Description("Prakran number or range")),
			mcp.WithString("style_mode", mcp.Description("Answer style: auto, hi, gu, en, hi_latn or gu_latn")),
		), tools.ask)
	}
	return s
}

func (t *Tools) retrievePassages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	threadID, err := req.RequireString("thread_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	override, err := overrideFrom(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := t.retriever.Retrieve(ctx, domain.RetrieveRequest{
		Query:    query,
		ThreadID: threadID,
		Override: override,
		TopK:     req.GetInt("top_k", t.defaultTopK),
	})
	if err != nil {
		return t.toolError("retrieve_passages", err)
	}
	return jsonResult(result)
}

type resolveOutput struct {
	Normalized string                      `json:"normalized"`
	Candidates []domain.ReferenceCandidate `json:"candidates"`
	Parsed     domain.StructuralReference  `json:"parsed"`
	Resolved   domain.StructuralReference  `json:"resolved"`
	Display    string                      `json:"display"`
	Intent     domain.QueryIntent          `json:"intent"`
	Inherited  []string                    `json:"inherited,omitempty"`
	Overridden []string                    `json:"overridden,omitempty"`
	Ambiguous  bool                        `json:"ambiguous"`
}

func (t *Tools) resolveReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	override, err := overrideFrom(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	parsed, resolution, err := t.retriever.ResolveReference(ctx, req.GetString("thread_id", ""), text, override)
	if err != nil {
		return t.toolError("resolve_reference", err)
	}
	return jsonResult(resolveOutput{
		Normalized: parsed.Normalized,
		Candidates: parsed.Candidates,
		Parsed:     parsed.Reference,
		Resolved:   resolution.Reference,
		Display:    resolution.Reference.String(),
		Intent:     parsed.Intent,
		Inherited:  resolution.Inherited,
		Overridden: resolution.Overridden,
		Ambiguous:  parsed.HasAmbiguity(),
	})
}

func (t *Tools) ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	threadID, err := req.RequireString("thread_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	override, err := overrideFrom(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := t.chat.Ask(ctx, domain.AskRequest{
		ThreadID:  threadID,
		Message:   message,
		Override:  override,
		TopK:      req.GetInt("top_k", t.defaultTopK),
		StyleMode: req.GetString("style_mode", ""),
	})
	if err != nil {
		return t.toolError("ask", err)
	}
	return jsonResult(answer)
}

// toolError reports caller mistakes and outages as tool results. Context
// cancellation is returned as a protocol error.
func (t *Tools) toolError(tool string, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error()), nil
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrIndexUnavailable):
		return mcp.NewToolResultError("service temporarily unavailable, retry later"), nil
	}
	t.logger.Error("mcp_tool_failed", "tool", tool, "error", err)
	return mcp.NewToolResultError("internal error"), nil
}

func overrideFrom(req mcp.CallToolRequest) (domain.ReferenceOverride, error) {
	section, err := reference.ParseSectionFilter(req.GetString("section", ""))
	if err != nil {
		return domain.ReferenceOverride{}, err
	}
	return domain.ReferenceOverride{Book: req.GetString("book", ""), Section: section}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}
