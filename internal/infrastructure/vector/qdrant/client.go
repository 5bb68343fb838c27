package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/infrastructure/resilience"
)

var pointNamespace = uuid.MustParse("9d6b1f4e-2c3a-4e7b-8f1d-0a5c6e7b8d92")

// Client stores one point per chunk in a Qdrant collection over the REST API.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// IndexChunks upserts chunk vectors. Re-indexing the same chunk overwrites its point.
func (c *Client) IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant upsert", fmt.Errorf("%d chunks for %d vectors", len(chunks), len(vectors)))
	}
	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]any{
			"chunk_id": chunk.ID,
			"book":     chunk.Book,
		}
		if chunk.Section != nil {
			payload["section"] = *chunk.Section
		}
		if chunk.RelativeVerse > 0 {
			payload["relative_verse"] = chunk.RelativeVerse
		}
		points = append(points, point{ID: PointID(chunk.ID), Vector: vectors[i], Payload: payload})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	_, err := resilience.Call(ctx, c.executor, "qdrant.upsert", func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, c.sendJSON(callCtx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert")
	}, resilience.ClassifyHTTP)
	return resilience.WrapTemporary("qdrant upsert", err)
}

// Search returns chunk IDs ordered by cosine similarity.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.ScoredID, error) {
	if len(queryVector) == 0 || limit <= 0 {
		return []domain.ScoredID{}, nil
	}
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": []string{"chunk_id"},
	}

	type searchResponse struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	resp, err := resilience.Call(ctx, c.executor, "qdrant.search", func(callCtx context.Context) (searchResponse, error) {
		var out searchResponse
		err := c.sendJSON(callCtx, http.MethodPost, url, reqBody, &out, "search")
		return out, err
	}, resilience.ClassifyHTTP)
	if err != nil {
		return nil, resilience.WrapTemporary("qdrant search", err)
	}

	out := make([]domain.ScoredID, 0, len(resp.Result))
	for _, r := range resp.Result {
		id := getStringPayload(r.Payload, "chunk_id")
		if id == "" {
			continue
		}
		out = append(out, domain.ScoredID{ChunkID: id, Score: r.Score})
	}
	return out, nil
}

// Ready reports whether the collection exists.
func (c *Client) Ready(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	return c.sendJSON(ctx, http.MethodGet, url, nil, nil, "collection info")
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := c.sendJSON(ctx, http.MethodPut, url, reqBody, nil, "ensure collection")
	if err != nil && !isConflict(err) {
		return err
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, url string, payload any, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.ReadStatusError("qdrant", operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// PointID maps a chunk ID onto a Qdrant point ID. UUID chunk IDs are used as-is.
func PointID(chunkID string) string {
	if id, err := uuid.Parse(chunkID); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func isConflict(err error) bool {
	var statusErr *resilience.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
