package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/aopmap/kemapper/internal/core/domain"
	"github.com/aopmap/kemapper/internal/core/ports"
	"github.com/aopmap/kemapper/internal/core/scoring"
)

// Signal names shared by fusion weights, match types and result payloads.
const (
	SignalGene      = "gene"
	SignalText      = "text"
	SignalEmbedding = "embedding"
)

// SuggestOptions tunes one suggestion domain (pathways or GO terms).
type SuggestOptions struct {
	Domain      string
	UseLexical  bool
	Fusion      scoring.FusionConfig
	GeneOverlap scoring.GeneOverlapConfig

	// TitleWeight blends title and description lexical similarity.
	TitleWeight float64

	// MaxPerSignal caps the per-signal lists attached to the result. The
	// combined list is bounded by the fusion threshold instead.
	MaxPerSignal int
}

// SuggestionService orchestrates the scorers for one candidate domain:
// fetch the key event's genes, run every enabled signal over the catalog,
// and fuse the per-signal lists into one ranked suggestion list.
//
// The service tolerates partial failure: a dead gene fetch degrades to
// text/embedding scoring and a missing embedder degrades to lexical+gene.
// Only when every signal is unavailable does the result carry an error
// field; nothing escapes the orchestration boundary as a raised error.
type SuggestionService struct {
	opts      SuggestOptions
	genes     ports.GeneFetcher
	catalog   ports.CandidateCatalog
	lexical   *scoring.LexicalScorer
	embedding *scoring.EmbeddingScorer
	norm      *scoring.Normalizer
	logger    *slog.Logger
}

// NewSuggestionService wires one suggestion domain. embedding may be nil
// when the encoder is unavailable; the service then falls back to the
// remaining signals.
func NewSuggestionService(
	opts SuggestOptions,
	genes ports.GeneFetcher,
	catalog ports.CandidateCatalog,
	lexical *scoring.LexicalScorer,
	embedding *scoring.EmbeddingScorer,
	dict *scoring.Dictionaries,
	logger *slog.Logger,
) *SuggestionService {
	if opts.TitleWeight <= 0 || opts.TitleWeight > 1 {
		opts.TitleWeight = 0.7
	}
	if opts.MaxPerSignal <= 0 {
		opts.MaxPerSignal = 25
	}
	return &SuggestionService{
		opts:      opts,
		genes:     genes,
		catalog:   catalog,
		lexical:   lexical,
		embedding: embedding,
		norm:      scoring.NewNormalizer(dict),
		logger:    logger.With("suggestion_domain", opts.Domain),
	}
}

// Suggest computes the ranked suggestion list for one key event.
func (s *SuggestionService) Suggest(ctx context.Context, ke domain.KeyEvent, method domain.MethodFilter) *domain.SuggestionResult {
	result := &domain.SuggestionResult{
		RequestID: uuid.NewString(),
		KEID:      ke.ID,
		KETitle:   ke.Title,
		Genes:     []string{},
		BySignal:  make(map[string][]domain.Suggestion),
	}

	keGenes := s.fetchGenes(ctx, ke, method, result)

	candidates, err := s.catalog.AllCandidates(ctx)
	if err != nil {
		s.logger.Error("candidate catalog unavailable", "ke_id", ke.ID, "error", err)
		result.Error = "candidate catalog unavailable"
		result.CombinedSuggestions = []domain.Suggestion{}
		return result
	}
	candidates = s.dropMalformed(candidates, result)

	keTitle := s.norm.RemoveDirectionalityTerms(ke.Title)
	keDesc := s.norm.RemoveDirectionalityTerms(ke.Description)

	signals := make([]scoring.Signal, 0, 3)
	available := 0

	if s.geneSignalEnabled(method) && len(keGenes) > 0 {
		signals = append(signals, scoring.Signal{
			Name:       SignalGene,
			Candidates: s.scoreGeneOverlap(ctx, keGenes, candidates),
		})
		available++
	}

	if s.textSignalEnabled(method) {
		signals = append(signals, scoring.Signal{
			Name:       SignalText,
			Candidates: s.scoreLexical(keTitle, keDesc, ke.Level, candidates),
		})
		available++
	}

	if s.embeddingSignalEnabled(method) {
		scored, ok := s.scoreEmbedding(ctx, keTitle, candidates)
		if ok {
			signals = append(signals, scoring.Signal{Name: SignalEmbedding, Candidates: scored})
			available++
		}
	}

	if available == 0 {
		result.Error = "no scoring signals available"
		result.CombinedSuggestions = []domain.Suggestion{}
		return result
	}

	for _, signal := range signals {
		result.BySignal[signal.Name] = s.toSuggestions(signal)
	}

	fused := scoring.FuseSignals(signals, s.opts.Fusion)
	result.CombinedSuggestions = fusedToSuggestions(fused)

	s.logger.Info("suggestions computed",
		"ke_id", ke.ID,
		"method", string(method),
		"signals", len(signals),
		"candidates", len(candidates),
		"combined", len(result.CombinedSuggestions),
	)
	return result
}

func (s *SuggestionService) fetchGenes(ctx context.Context, ke domain.KeyEvent, method domain.MethodFilter, result *domain.SuggestionResult) map[string]struct{} {
	if !s.geneSignalEnabled(method) {
		return nil
	}
	genes, err := s.genes.GenesForKE(ctx, ke.ID)
	if err != nil {
		// Recovered locally: the remaining signals still run.
		s.logger.Warn("gene fetch failed, continuing without gene signal", "ke_id", ke.ID, "error", err)
		return nil
	}
	set := make(map[string]struct{}, len(genes))
	for _, gene := range genes {
		if gene == "" {
			continue
		}
		set[gene] = struct{}{}
		result.Genes = append(result.Genes, gene)
	}
	return set
}

func (s *SuggestionService) geneSignalEnabled(method domain.MethodFilter) bool {
	return method == domain.MethodAll || method == domain.MethodGene
}

func (s *SuggestionService) textSignalEnabled(method domain.MethodFilter) bool {
	if !s.opts.UseLexical || s.lexical == nil {
		return false
	}
	return method == domain.MethodAll || method == domain.MethodText
}

func (s *SuggestionService) embeddingSignalEnabled(method domain.MethodFilter) bool {
	return s.embedding != nil && method == domain.MethodAll
}

func (s *SuggestionService) dropMalformed(candidates []domain.Candidate, result *domain.SuggestionResult) []domain.Candidate {
	kept := candidates[:0:0]
	for _, cand := range candidates {
		if cand == nil || cand.CandidateID() == "" || cand.DisplayName() == "" {
			result.SkippedCandidates++
			continue
		}
		kept = append(kept, cand)
	}
	return kept
}

func (s *SuggestionService) scoreGeneOverlap(ctx context.Context, keGenes map[string]struct{}, candidates []domain.Candidate) []scoring.Scored {
	scored := make([]scoring.Scored, 0, 32)
	for _, cand := range candidates {
		candGenes, err := s.catalog.GenesFor(ctx, cand.CandidateID())
		if err != nil {
			s.logger.Warn("gene lookup failed for candidate", "candidate_id", cand.CandidateID(), "error", err)
			continue
		}
		overlap, ok := scoring.ScoreGeneOverlap(keGenes, candGenes, s.opts.GeneOverlap)
		if !ok {
			continue
		}
		scored = append(scored, scoring.Scored{
			Candidate: cand,
			Score:     overlap.Score,
			Evidence:  scoring.Evidence{MatchingGenes: overlap.MatchingGenes},
		})
	}
	return scored
}

func (s *SuggestionService) scoreLexical(keTitle, keDesc string, level domain.BiologicalLevel, candidates []domain.Candidate) []scoring.Scored {
	threshold := s.lexical.Threshold(keTitle, level)
	w := s.opts.TitleWeight

	scored := make([]scoring.Scored, 0, 32)
	for _, cand := range candidates {
		titleSim := s.lexical.Similarity(keTitle, cand.DisplayName(), level)

		descSim := 0.0
		combined := titleSim
		if keDesc != "" && cand.DisplayText() != "" {
			descSim = s.lexical.Similarity(keDesc, cand.DisplayText(), level)
			combined = titleSim*w + descSim*(1.0-w)
		}
		if combined < threshold {
			continue
		}

		scored = append(scored, scoring.Scored{
			Candidate: cand,
			Score:     s.lexical.Confidence(combined, titleSim, descSim, cand.DisplayName()),
			Evidence:  scoring.Evidence{TitleScore: titleSim, TextScore: descSim},
		})
	}
	return scored
}

func (s *SuggestionService) scoreEmbedding(ctx context.Context, keTitle string, candidates []domain.Candidate) ([]scoring.Scored, bool) {
	sims, err := s.embedding.RankCandidates(ctx, keTitle, candidates)
	if err != nil {
		// Encoder outage degrades the request to the remaining signals.
		s.logger.Warn("embedding signal unavailable for request", "error", err)
		return nil, false
	}

	scored := make([]scoring.Scored, 0, 32)
	for i, cand := range candidates {
		// Every nonzero score enters fusion: even a weak embedding match
		// counts toward the multi-evidence bonus when another signal backs
		// the same candidate. The fusion floor handles the discarding.
		if sims[i] <= 0 {
			continue
		}
		scored = append(scored, scoring.Scored{Candidate: cand, Score: sims[i]})
	}
	return scored, true
}

func (s *SuggestionService) toSuggestions(signal scoring.Signal) []domain.Suggestion {
	ranked := make([]scoring.Scored, len(signal.Candidates))
	copy(ranked, signal.Candidates)
	sortScoredDescending(ranked)

	if len(ranked) > s.opts.MaxPerSignal {
		ranked = ranked[:s.opts.MaxPerSignal]
	}

	out := make([]domain.Suggestion, 0, len(ranked))
	for _, scored := range ranked {
		suggestion := baseSuggestion(scored.Candidate)
		suggestion.HybridScore = scored.Score
		suggestion.SignalScores = map[string]float64{signal.Name: scored.Score}
		suggestion.MatchTypes = []string{signal.Name}
		suggestion.MatchingGenes = scored.Evidence.MatchingGenes
		out = append(out, suggestion)
	}
	return out
}

func fusedToSuggestions(fused []scoring.Fused) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(fused))
	for _, record := range fused {
		suggestion := baseSuggestion(record.Candidate)
		suggestion.HybridScore = record.HybridScore
		suggestion.SignalScores = record.SignalScores
		suggestion.MatchTypes = record.MatchTypes
		if evidence, ok := record.Evidence[SignalGene]; ok {
			suggestion.MatchingGenes = evidence.MatchingGenes
		}
		out = append(out, suggestion)
	}
	return out
}

func baseSuggestion(cand domain.Candidate) domain.Suggestion {
	suggestion := domain.Suggestion{
		ID:   cand.CandidateID(),
		Name: cand.DisplayName(),
		Text: cand.DisplayText(),
	}
	if pathway, ok := cand.(domain.PathwayCandidate); ok {
		suggestion.Link = pathway.Link
	}
	return suggestion
}

func sortScoredDescending(scored []scoring.Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Candidate.CandidateID() < scored[j].Candidate.CandidateID()
	})
}
