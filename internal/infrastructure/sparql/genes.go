package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/aopmap/kemapper/internal/core/domain"
	"github.com/aopmap/kemapper/internal/core/ports"
)

const geneQueryTemplate = `
PREFIX aopo: <http://aopkb.org/aop_ontology#>
PREFIX dc: <http://purl.org/dc/elements/1.1/>
PREFIX edam: <http://edamontology.org/>
SELECT DISTINCT ?symbol WHERE {
  ?ke a aopo:KeyEvent ;
      dc:identifier "%s" ;
      edam:data_1025 ?gene .
  ?gene dc:title ?symbol .
}`

// GeneFetcher resolves HGNC symbols for a key event from the AOP-Wiki RDF
// endpoint, with an in-process TTL cache in front and an optional
// persistent cache behind it.
type GeneFetcher struct {
	client        *Client
	memory        *gocache.Cache
	persistent    ports.SuggestionCache
	persistentTTL time.Duration
	logger        *slog.Logger
}

// NewGeneFetcher takes separate lifetimes for the two tiers: memoryTTL for
// the in-process cache and persistentTTL for entries written through to the
// persistent cache, which must outlive worker restarts.
func NewGeneFetcher(client *Client, memoryTTL, persistentTTL time.Duration, persistent ports.SuggestionCache, logger *slog.Logger) *GeneFetcher {
	if memoryTTL <= 0 {
		memoryTTL = time.Hour
	}
	if persistentTTL <= 0 {
		persistentTTL = 72 * time.Hour
	}
	return &GeneFetcher{
		client:        client,
		memory:        gocache.New(memoryTTL, 2*memoryTTL),
		persistent:    persistent,
		persistentTTL: persistentTTL,
		logger:        logger,
	}
}

// GenesForKE returns the sorted gene symbols for the key event. A key event
// without gene annotations yields an empty list, not an error.
func (f *GeneFetcher) GenesForKE(ctx context.Context, keID string) ([]string, error) {
	keID = strings.TrimSpace(keID)
	if keID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "gene fetch", fmt.Errorf("empty ke id"))
	}

	cacheKey := "ke-genes:" + keID
	if cached, ok := f.memory.Get(cacheKey); ok {
		return cached.([]string), nil
	}
	if genes, ok := f.fromPersistent(ctx, cacheKey); ok {
		f.memory.Set(cacheKey, genes, gocache.DefaultExpiration)
		return genes, nil
	}

	rows, err := f.client.Select(ctx, fmt.Sprintf(geneQueryTemplate, sparqlEscape(keID)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "gene fetch", err)
	}

	seen := make(map[string]struct{}, len(rows))
	genes := make([]string, 0, len(rows))
	for _, row := range rows {
		symbol := strings.TrimSpace(row["symbol"])
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		genes = append(genes, symbol)
	}
	sort.Strings(genes)

	f.memory.Set(cacheKey, genes, gocache.DefaultExpiration)
	f.toPersistent(ctx, cacheKey, genes)
	return genes, nil
}

func (f *GeneFetcher) fromPersistent(ctx context.Context, key string) ([]string, bool) {
	if f.persistent == nil {
		return nil, false
	}
	raw, ok, err := f.persistent.Get(ctx, key)
	if err != nil {
		f.logger.Warn("persistent cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var genes []string
	if err := json.Unmarshal(raw, &genes); err != nil {
		f.logger.Warn("persistent cache entry malformed", "key", key, "error", err)
		return nil, false
	}
	return genes, true
}

func (f *GeneFetcher) toPersistent(ctx context.Context, key string, genes []string) {
	if f.persistent == nil {
		return
	}
	raw, err := json.Marshal(genes)
	if err != nil {
		return
	}
	if err := f.persistent.Put(ctx, key, raw, f.persistentTTL); err != nil {
		f.logger.Warn("persistent cache write failed", "key", key, "error", err)
	}
}

// sparqlEscape guards the literal position in the query templates.
func sparqlEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
