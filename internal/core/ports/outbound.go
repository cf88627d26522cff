package ports

import (
	"context"
	"time"

	"github.com/aopmap/kemapper/internal/core/domain"
)

// GeneFetcher resolves the HGNC gene symbols associated with a key event.
// No genes is an empty list, not an error.
type GeneFetcher interface {
	GenesForKE(ctx context.Context, keID string) ([]string, error)
}

// CandidateCatalog exposes a mapping-target catalog (pathways or GO terms)
// and the gene set annotated to each entry. Implementations may cache
// upstream; callers treat results as read-only.
type CandidateCatalog interface {
	AllCandidates(ctx context.Context) ([]domain.Candidate, error)
	GenesFor(ctx context.Context, candidateID string) (map[string]struct{}, error)
}

// SuggestionCache stores serialized retrieval results with a TTL.
type SuggestionCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
