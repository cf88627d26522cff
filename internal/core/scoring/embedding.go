package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/aopmap/kemapper/internal/core/domain"
)

// Encoder turns text into a fixed-size vector. Implementations must be
// deterministic for identical input; the scorer calls it both singly and
// in batches.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// TransformMode selects how raw cosine similarity is reshaped. Domain
// embeddings cluster tightly (raw cosine typically 0.85-0.95), so the raw
// value is useless for ranking without a spread.
type TransformMode string

const (
	TransformPower  TransformMode = "power"
	TransformLinear TransformMode = "linear"
	TransformNone   TransformMode = "none"
)

// TransformConfig parameterizes the score transform.
type TransformConfig struct {
	Mode        TransformMode
	Exponent    float64
	ScaleFactor float64
	OutputMin   float64
	OutputMax   float64
}

func DefaultTransformConfig() TransformConfig {
	return TransformConfig{
		Mode:      TransformPower,
		Exponent:  4.0,
		OutputMin: 0.0,
		OutputMax: 0.95,
	}
}

// Apply reshapes one raw cosine in [-1,1]. The batch path reuses this exact
// function per element, so scalar and vectorized results are identical.
func (c TransformConfig) Apply(cos float64) float64 {
	switch c.Mode {
	case TransformLinear:
		return clamp(cos*c.ScaleFactor, c.OutputMin, c.OutputMax)
	case TransformNone:
		return cos
	default:
		normalized := (cos + 1.0) / 2.0
		return clamp(math.Pow(normalized, c.Exponent), c.OutputMin, c.OutputMax)
	}
}

// ApplyAll transforms a batch of raw cosines in place.
func (c TransformConfig) ApplyAll(cosines []float64) []float64 {
	for i, v := range cosines {
		cosines[i] = c.Apply(v)
	}
	return cosines
}

// VectorTable holds precomputed candidate vectors keyed by candidate ID.
// Loaded once at startup and treated as read-only shared state.
type VectorTable struct {
	Title map[string][]float32
	Text  map[string][]float32
}

// EmbeddingConfig carries the semantic-signal parameters.
type EmbeddingConfig struct {
	Transform       TransformConfig
	TitleWeight     float64
	ExtractEntities bool
}

func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Transform:       DefaultTransformConfig(),
		TitleWeight:     0.85,
		ExtractEntities: true,
	}
}

// EmbeddingScorer wraps an injected encoder and scores candidates by
// transformed cosine similarity. Safe for concurrent use as long as the
// encoder's cache is thread-safe; the vector table is never mutated.
type EmbeddingScorer struct {
	enc     Encoder
	cfg     EmbeddingConfig
	vectors VectorTable
	norm    *Normalizer
}

func NewEmbeddingScorer(enc Encoder, dict *Dictionaries, cfg EmbeddingConfig, vectors VectorTable) *EmbeddingScorer {
	if cfg.TitleWeight <= 0 || cfg.TitleWeight > 1 {
		cfg.TitleWeight = 0.85
	}
	return &EmbeddingScorer{
		enc:     enc,
		cfg:     cfg,
		vectors: vectors,
		norm:    NewNormalizer(dict),
	}
}

// Similarity encodes both texts and returns the transformed cosine.
func (s *EmbeddingScorer) Similarity(ctx context.Context, text1, text2 string) (float64, error) {
	v1, err := s.encode(ctx, text1)
	if err != nil {
		return 0, err
	}
	v2, err := s.encode(ctx, text2)
	if err != nil {
		return 0, err
	}
	return s.cfg.Transform.Apply(cosine(v1, v2)), nil
}

// CandidateSimilarity scores one candidate against the query text, using
// the precomputed vector for the candidate ID when available and weighting
// title against description/definition similarity.
func (s *EmbeddingScorer) CandidateSimilarity(ctx context.Context, query string, cand domain.Candidate) (float64, error) {
	queryVec, err := s.encode(ctx, query)
	if err != nil {
		return 0, err
	}
	return s.candidateSimilarityVec(ctx, queryVec, cand)
}

// RankCandidates scores the whole catalog against one query. The
// linear-algebra step is a single pass of dot products over the candidate
// matrix followed by a vectorized transform; candidates without a
// precomputed vector are encoded in one batch call.
func (s *EmbeddingScorer) RankCandidates(ctx context.Context, query string, cands []domain.Candidate) ([]float64, error) {
	queryVec, err := s.encode(ctx, query)
	if err != nil {
		return nil, err
	}

	titleVecs, err := s.gatherVectors(ctx, cands, s.vectors.Title, func(c domain.Candidate) string {
		return c.DisplayName()
	})
	if err != nil {
		return nil, err
	}
	textVecs, err := s.gatherVectors(ctx, cands, s.vectors.Text, func(c domain.Candidate) string {
		return c.DisplayText()
	})
	if err != nil {
		return nil, err
	}

	titleSims := s.cfg.Transform.ApplyAll(matrixCosine(queryVec, titleVecs))
	textSims := s.cfg.Transform.ApplyAll(matrixCosine(queryVec, textVecs))

	out := make([]float64, len(cands))
	w := s.cfg.TitleWeight
	for i := range cands {
		if textVecs[i] == nil {
			out[i] = titleSims[i]
			continue
		}
		out[i] = titleSims[i]*w + textSims[i]*(1.0-w)
	}
	return out, nil
}

func (s *EmbeddingScorer) candidateSimilarityVec(ctx context.Context, queryVec []float32, cand domain.Candidate) (float64, error) {
	titleVec, err := s.vectorFor(ctx, cand.CandidateID(), cand.DisplayName(), s.vectors.Title)
	if err != nil {
		return 0, err
	}
	titleSim := s.cfg.Transform.Apply(cosine(queryVec, titleVec))

	if cand.DisplayText() == "" {
		return titleSim, nil
	}

	textVec, err := s.vectorFor(ctx, cand.CandidateID(), cand.DisplayText(), s.vectors.Text)
	if err != nil {
		return 0, err
	}
	textSim := s.cfg.Transform.Apply(cosine(queryVec, textVec))

	w := s.cfg.TitleWeight
	return titleSim*w + textSim*(1.0-w), nil
}

func (s *EmbeddingScorer) vectorFor(ctx context.Context, id, text string, table map[string][]float32) ([]float32, error) {
	if table != nil {
		if vec, ok := table[id]; ok {
			return vec, nil
		}
	}
	return s.encode(ctx, text)
}

// gatherVectors resolves each candidate's vector, batch-encoding the table
// misses in one call. A nil slot means the candidate has no text for this
// field.
func (s *EmbeddingScorer) gatherVectors(
	ctx context.Context,
	cands []domain.Candidate,
	table map[string][]float32,
	textOf func(domain.Candidate) string,
) ([][]float32, error) {
	out := make([][]float32, len(cands))
	missingIdx := make([]int, 0)
	missingTexts := make([]string, 0)

	for i, cand := range cands {
		if table != nil {
			if vec, ok := table[cand.CandidateID()]; ok {
				out[i] = vec
				continue
			}
		}
		text := textOf(cand)
		if strings.TrimSpace(text) == "" {
			continue
		}
		missingIdx = append(missingIdx, i)
		missingTexts = append(missingTexts, s.preprocess(text))
	}

	if len(missingTexts) > 0 {
		vectors, err := s.enc.EncodeBatch(ctx, missingTexts)
		if err != nil {
			return nil, fmt.Errorf("encode candidate batch: %w", err)
		}
		if len(vectors) != len(missingTexts) {
			return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(vectors), len(missingTexts))
		}
		for k, i := range missingIdx {
			out[i] = vectors[k]
		}
	}
	return out, nil
}

func (s *EmbeddingScorer) encode(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.enc.Encode(ctx, s.preprocess(text))
	if err != nil {
		return nil, fmt.Errorf("encode text: %w", err)
	}
	return vec, nil
}

// preprocess sharpens discrimination by stripping direction qualifiers and
// keeping salient entity tokens before encoding.
func (s *EmbeddingScorer) preprocess(text string) string {
	if !s.cfg.ExtractEntities {
		return text
	}
	stripped := s.norm.RemoveDirectionalityTerms(text)
	return s.norm.ExtractEntities(stripped, DefaultEntityOptions())
}

// cosine computes cosine similarity in float64. Zero or mismatched vectors
// degrade to 0 rather than erroring; one bad candidate must not abort a
// batch of thousands.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// matrixCosine is the bulk path: one query against N candidate vectors in a
// single pass. Nil rows score 0.
func matrixCosine(query []float32, matrix [][]float32) []float64 {
	out := make([]float64, len(matrix))
	for i, row := range matrix {
		if row == nil {
			continue
		}
		out[i] = cosine(query, row)
	}
	return out
}
