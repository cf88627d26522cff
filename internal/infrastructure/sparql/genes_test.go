package sparql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aopmap/kemapper/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bindingsJSON(symbols ...string) string {
	var b strings.Builder
	b.WriteString(`{"results":{"bindings":[`)
	for i, s := range symbols {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"symbol":{"type":"literal","value":"` + s + `"}}`)
	}
	b.WriteString(`]}}`)
	return b.String()
}

func TestGenesForKESortsAndDeduplicates(t *testing.T) {
	var queries int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries++
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `dc:identifier "55"`) {
			t.Fatalf("query missing escaped ke id: %s", body)
		}
		_, _ = w.Write([]byte(bindingsJSON("TP53", "CASP3", "TP53", "", "BAX")))
	}))
	defer server.Close()

	fetcher := NewGeneFetcher(NewClient(server.URL, 100, 10, nil), time.Minute, time.Hour, nil, discardLogger())
	genes, err := fetcher.GenesForKE(context.Background(), "55")
	if err != nil {
		t.Fatalf("GenesForKE() error = %v", err)
	}
	want := []string{"BAX", "CASP3", "TP53"}
	if len(genes) != len(want) {
		t.Fatalf("expected %v, got %v", want, genes)
	}
	for i := range want {
		if genes[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, genes)
		}
	}

	// Second call hits the in-process cache.
	if _, err := fetcher.GenesForKE(context.Background(), "55"); err != nil {
		t.Fatalf("cached GenesForKE() error = %v", err)
	}
	if queries != 1 {
		t.Fatalf("expected exactly one upstream query, got %d", queries)
	}
}

type recordingCache struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (c *recordingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, ok := c.entries[key]
	return raw, ok, nil
}

func (c *recordingCache) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func TestGenesForKEWritesPersistentTierWithOwnTTL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(bindingsJSON("TP53", "CASP3")))
	}))
	defer server.Close()

	cache := newRecordingCache()
	fetcher := NewGeneFetcher(NewClient(server.URL, 100, 10, nil), time.Hour, 72*time.Hour, cache, discardLogger())
	if _, err := fetcher.GenesForKE(context.Background(), "55"); err != nil {
		t.Fatalf("GenesForKE() error = %v", err)
	}

	// The persistent tier must outlive the in-process one, so the write
	// carries its own lifetime rather than the memory TTL.
	if got := cache.ttls["ke-genes:55"]; got != 72*time.Hour {
		t.Fatalf("expected 72h persistent TTL, got %v", got)
	}
}

func TestGenesForKEServedFromPersistentTier(t *testing.T) {
	var queries int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries++
		_, _ = w.Write([]byte(bindingsJSON("TP53")))
	}))
	defer server.Close()

	cache := newRecordingCache()
	cache.entries["ke-genes:55"] = []byte(`["BAX","TP53"]`)

	fetcher := NewGeneFetcher(NewClient(server.URL, 100, 10, nil), time.Hour, 72*time.Hour, cache, discardLogger())
	genes, err := fetcher.GenesForKE(context.Background(), "55")
	if err != nil {
		t.Fatalf("GenesForKE() error = %v", err)
	}
	if len(genes) != 2 || genes[0] != "BAX" || genes[1] != "TP53" {
		t.Fatalf("expected persistent entry served, got %v", genes)
	}
	if queries != 0 {
		t.Fatalf("expected no upstream query on persistent hit, got %d", queries)
	}
}

func TestGenesForKERejectsEmptyID(t *testing.T) {
	fetcher := NewGeneFetcher(NewClient("http://localhost:0", 100, 10, nil), time.Minute, time.Hour, nil, discardLogger())
	_, err := fetcher.GenesForKE(context.Background(), "  ")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGenesForKEWrapsUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "endpoint overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewGeneFetcher(NewClient(server.URL, 100, 10, nil), time.Minute, time.Hour, nil, discardLogger())
	_, err := fetcher.GenesForKE(context.Background(), "55")
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "endpoint overloaded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestSelectDecodesBindings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/sparql-query" {
			t.Fatalf("unexpected content type %q", ct)
		}
		_, _ = w.Write([]byte(`{"results":{"bindings":[{"a":{"value":"1"},"b":{"value":"2"}}]}}`))
	}))
	defer server.Close()

	rows, err := NewClient(server.URL, 100, 10, nil).Select(context.Background(), "SELECT ...")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(rows) != 1 || rows[0]["a"] != "1" || rows[0]["b"] != "2" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestSparqlEscape(t *testing.T) {
	got := sparqlEscape(`a"b\c`)
	if got != `a\"b\\c` {
		t.Fatalf("unexpected escape result: %s", got)
	}
}
