package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/granth-assistant/internal/config"
	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/reference"
	"github.com/kirillkom/granth-assistant/internal/observability/metrics"
)

const maxRequestBodyBytes = 64 << 10

type Retriever interface {
	Retrieve(ctx context.Context, req domain.RetrieveRequest) (*domain.RetrieveResult, error)
}

type Asker interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)
}

type ThreadReader interface {
	Messages(ctx context.Context, threadID string) ([]domain.ConversationMessage, error)
	Threads(ctx context.Context, limit int) ([]domain.ThreadSummary, error)
	Memory(ctx context.Context, threadID string) (domain.ConversationMemoryState, error)
}

type CorpusReader interface {
	Filters(ctx context.Context) (domain.CorpusFilters, error)
	Health(ctx context.Context) domain.CorpusHealth
}

type ReindexRequester interface {
	RequestReindex(ctx context.Context, reason string) (domain.ReindexRequest, error)
}

type Services struct {
	Retriever Retriever
	Chat      Asker
	Threads   ThreadReader
	Corpus    CorpusReader
	Reindex   ReindexRequester
}

type Router struct {
	cfg      config.Config
	services Services
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

// NewRouter wires the HTTP API. metrics and logger may be nil.
func NewRouter(cfg config.Config, services Services, m *metrics.HTTPServerMetrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cfg: cfg, services: services, metrics: m, logger: logger}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/retrieve", rt.retrieve)
	api.HandleFunc("POST /v1/chat", rt.chat)
	api.HandleFunc("GET /v1/filters", rt.filters)
	api.HandleFunc("GET /v1/threads", rt.threads)
	api.HandleFunc("GET /v1/threads/{thread_id}/messages", rt.threadMessages)
	api.HandleFunc("GET /v1/threads/{thread_id}/memory", rt.threadMemory)
	api.HandleFunc("POST /v1/index/rebuild", rt.rebuildIndex)

	var rejections rejectionRecorder
	if rt.metrics != nil {
		rejections = rt.metrics
	}
	var guarded http.Handler = api
	guarded = backpressureWithMetrics(guarded, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond, rejections)
	guarded = rateLimitMiddleware(newClientRateLimiter(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst), rejections, guarded)
	guarded = bearerAuthMiddleware(rt.cfg.APIKey, guarded)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", guarded)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.services.Corpus == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	health := rt.services.Corpus.Health(r.Context())
	status := http.StatusOK
	if health.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// filtersPayload mirrors the UI filter controls. Section accepts 14, "14" or "14-19".
type filtersPayload struct {
	Book    string        `json:"book"`
	Section sectionFilter `json:"section"`
}

type sectionFilter string

func (s *sectionFilter) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = sectionFilter(n.String())
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("section must be a number or string")
	}
	*s = sectionFilter(str)
	return nil
}

func (f filtersPayload) override() (domain.ReferenceOverride, error) {
	section, err := reference.ParseSectionFilter(string(f.Section))
	if err != nil {
		return domain.ReferenceOverride{}, err
	}
	return domain.ReferenceOverride{Book: strings.TrimSpace(f.Book), Section: section}, nil
}

func (rt *Router) topK(requested *int) int {
	if requested == nil {
		return rt.cfg.RAGTopK
	}
	return *requested
}

type retrieveRequest struct {
	Query    string         `json:"query"`
	ThreadID string         `json:"thread_id"`
	TopK     *int           `json:"top_k"`
	Filters  filtersPayload `json:"filters"`
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, rt.logger, err)
		return
	}
	override, err := req.Filters.override()
	if err != nil {
		writeError(w, r, rt.logger, err)
		return
	}

	start := time.Now()
	result, err := rt.services.Retriever.Retrieve(r.Context(), domain.RetrieveRequest{
		Query:    req.Query,
		ThreadID: req.ThreadID,
		Override: override,
		TopK:     rt.topK(req.TopK),
	})
	if err != nil {
		writeError(w, r, rt.logger, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordRetrieval("retrieve", *result, time.Since(start))
	}
	writeJSON(w, http.StatusOK, result)
}

type chatRequest struct {
	ThreadID  string         `json:"thread_id"`
	Message   string         `json:"message"`
	TopK      *int           `json:"top_k"`
	Filters   filtersPayload `json:"filters"`
	StyleMode string         `json:"style_mode"`
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, rt.logger, err)
		return
	}
	override, err := req.Filters.override()
	if err != nil {
		writeError(w, r, rt.logger, err)
		return
	}

	start := time.Now()
	answer, err := rt.services.Chat.Ask(r.Context(), domain.AskRequest{
		ThreadID:  req.ThreadID,
		Message:   req.Message,
		Override:  override,
		TopK:      rt.topK(req.TopK),
		StyleMode: req.StyleMode,
	})
	if err != nil {
		writeError(w, r, rt.logger, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnswer(*answer, time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) filters(w http.ResponseWriter, r *http.Request) {
	filters, err := rt.services.Corpus.Filters(r.Context())
	if err != nil {
		writeError(w, r, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, filters)
}

func (rt *Router) threads(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, rt.logger, domain.WrapError(domain.ErrInvalidInput, "list threads", fmt.Errorf("invalid limit %q", raw)))
			return
		}
		limit = n
	}
	threads, err := rt.services.Threads.Threads(r.Context(), limit)
	if err != nil {
		writeError(w, r, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

func (rt *Router) threadMessages(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("thread_id")
	messages, err := rt.services.Threads.Messages(r.Context(), threadID)
	if err != nil {
		writeError(w, r, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"thread_id": threadID, "messages": messages})
}

func (rt *Router) threadMemory(w http.ResponseWriter, r *http.Request) {
	state, err := rt.services.Threads.Memory(r.Context(), r.PathValue("thread_id"))
	if err != nil {
		writeError(w, r, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (rt *Router) rebuildIndex(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil && r.ContentLength > 0 {
		writeError(w, r, rt.logger, err)
		return
	}
	accepted, err := rt.services.Reindex.RequestReindex(r.Context(), req.Reason)
	if err != nil {
		writeError(w, r, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("empty body"))
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
