package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aopmap/kemapper/internal/infrastructure/resilience"
)

// Client posts SPARQL queries to one endpoint and decodes the JSON results
// format. Outbound calls are rate limited (the endpoints are shared public
// infrastructure) and run through the resilience executor.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func NewClient(endpoint string, perSecond float64, burst int, executor *resilience.Executor) *Client {
	if perSecond <= 0 {
		perSecond = 2.0
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		executor:   executor,
	}
}

// Row is one result binding: variable name to plain value.
type Row map[string]string

// Select runs a SELECT query and returns the flattened bindings.
func (c *Client) Select(ctx context.Context, query string) ([]Row, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var rows []Row
	call := func(ctx context.Context) error {
		decoded, err := c.doSelect(ctx, query)
		if err != nil {
			return err
		}
		rows = decoded
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "sparql.select", call, classifySPARQLError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("sparql select", err)
	}
	return rows, nil
}

func (c *Client) doSelect(ctx context.Context, query string) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("create sparql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &HTTPStatusError{
			Operation:  "select",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	var decoded struct {
		Results struct {
			Bindings []map[string]struct {
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode sparql results: %w", err)
	}

	rows := make([]Row, 0, len(decoded.Results.Bindings))
	for _, binding := range decoded.Results.Bindings {
		row := make(Row, len(binding))
		for name, cell := range binding {
			row[name] = cell.Value
		}
		rows = append(rows, row)
	}
	return rows, nil
}
