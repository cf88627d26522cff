package sparql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aopmap/kemapper/internal/core/domain"
)

const pathwayCatalogQuery = `
PREFIX wp: <http://vocabularies.wikipathways.org/wp#>
PREFIX dc: <http://purl.org/dc/elements/1.1/>
PREFIX dcterms: <http://purl.org/dc/terms/>
PREFIX foaf: <http://xmlns.com/foaf/0.1/>
SELECT DISTINCT ?id ?title ?description ?page WHERE {
  ?pathway a wp:Pathway ;
           dcterms:identifier ?id ;
           dc:title ?title .
  OPTIONAL { ?pathway dcterms:description ?description . }
  OPTIONAL { ?pathway foaf:page ?page . }
  ?pathway wp:organismName "Homo sapiens" .
}`

const pathwayGeneQuery = `
PREFIX wp: <http://vocabularies.wikipathways.org/wp#>
PREFIX dcterms: <http://purl.org/dc/terms/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT DISTINCT ?id ?symbol WHERE {
  ?product a wp:GeneProduct ;
           rdfs:label ?symbol ;
           dcterms:isPartOf ?pathway .
  ?pathway a wp:Pathway ;
           dcterms:identifier ?id ;
           wp:organismName "Homo sapiens" .
}`

const pathwaySVGPattern = "https://www.wikipathways.org/wikipathways-assets/pathways/%s/%s.svg"

// PathwayCatalog serves the WikiPathways candidate catalog. The pathway
// list and the pathway-to-gene table are fetched once and kept as read-only
// state; per-candidate gene lookups never hit the network after the first
// successful load. A failed load is retried on the next call rather than
// cached, so a transient outage at startup does not poison the worker.
type PathwayCatalog struct {
	client *Client
	logger *slog.Logger

	mu         sync.Mutex
	candidates []domain.Candidate
	genes      map[string]map[string]struct{}
}

func NewPathwayCatalog(client *Client, logger *slog.Logger) *PathwayCatalog {
	return &PathwayCatalog{client: client, logger: logger}
}

func (c *PathwayCatalog) AllCandidates(ctx context.Context) ([]domain.Candidate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.candidates == nil {
		candidates, err := c.loadCandidates(ctx)
		if err != nil {
			return nil, err
		}
		c.candidates = candidates
	}
	return c.candidates, nil
}

func (c *PathwayCatalog) GenesFor(ctx context.Context, candidateID string) (map[string]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.genes == nil {
		genes, err := c.loadGenes(ctx)
		if err != nil {
			return nil, err
		}
		c.genes = genes
	}
	return c.genes[candidateID], nil
}

func (c *PathwayCatalog) loadCandidates(ctx context.Context) ([]domain.Candidate, error) {
	rows, err := c.client.Select(ctx, pathwayCatalogQuery)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "pathway catalog", err)
	}

	seen := make(map[string]struct{}, len(rows))
	candidates := make([]domain.Candidate, 0, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(row["id"])
		title := strings.TrimSpace(row["title"])
		if id == "" || title == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		candidates = append(candidates, domain.PathwayCandidate{
			ID:          id,
			Title:       title,
			Description: strings.TrimSpace(row["description"]),
			Link:        strings.TrimSpace(row["page"]),
			SVGURL:      fmt.Sprintf(pathwaySVGPattern, id, id),
		})
	}

	c.logger.Info("pathway catalog loaded", "pathways", len(candidates))
	return candidates, nil
}

func (c *PathwayCatalog) loadGenes(ctx context.Context) (map[string]map[string]struct{}, error) {
	rows, err := c.client.Select(ctx, pathwayGeneQuery)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "pathway genes", err)
	}

	genes := make(map[string]map[string]struct{}, 1024)
	for _, row := range rows {
		id := strings.TrimSpace(row["id"])
		symbol := strings.TrimSpace(row["symbol"])
		if id == "" || symbol == "" {
			continue
		}
		set, ok := genes[id]
		if !ok {
			set = make(map[string]struct{}, 8)
			genes[id] = set
		}
		set[symbol] = struct{}{}
	}

	c.logger.Info("pathway gene table loaded", "pathways", len(genes))
	return genes, nil
}
