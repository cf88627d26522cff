// Package ollama encodes text through an Ollama-compatible embedding API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aopmap/kemapper/internal/core/domain"
	"github.com/aopmap/kemapper/internal/infrastructure/resilience"
)

// Client implements the scoring.Encoder contract over HTTP. Recent encode
// results live in an explicit thread-safe LRU so repeated key-event titles
// and shared candidate text never re-hit the model; the cache is injected
// state, not a process-wide global, so tests can size or bypass it.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
	cache      *lru.Cache[string, []float32]
}

func New(baseURL, model string, cacheSize int, executor *resilience.Executor) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create encode cache: %w", err)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
		cache:      cache,
	}, nil
}

// Ping probes the embedding service. Callers treat a failure as
// ErrEmbedderUnavailable and fall back to lexical+gene scoring.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return domain.WrapError(domain.ErrEmbedderUnavailable, "embedder ping", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrEmbedderUnavailable, "embedder ping", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrEmbedderUnavailable, "embedder ping", fmt.Errorf("status %s", resp.Status))
	}
	return nil
}

func (c *Client) Encode(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		return vec, nil
	}
	vectors, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	c.cache.Add(text, vectors[0])
	return vectors[0], nil
}

func (c *Client) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missingIdx := make([]int, 0, len(texts))
	missing := make([]string, 0, len(texts))
	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			out[i] = vec
			continue
		}
		missingIdx = append(missingIdx, i)
		missing = append(missing, text)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missing))
	}
	for k, i := range missingIdx {
		out[i] = vectors[k]
		c.cache.Add(missing[k], vectors[k])
	}
	return out, nil
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	request := map[string]any{
		"model": c.model,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/embed", request, &response)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "embedder.embed", call, classifyEmbedError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (c *Client) postJSON(ctx context.Context, path string, request any, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("decode embed response: %w", err)
	}
	return nil
}
