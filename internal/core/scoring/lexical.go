package scoring

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/aopmap/kemapper/internal/core/domain"
)

// LexicalConfig carries the tuned thresholds of the lexical signal.
// The blend coefficients below are a fixed contract: downstream acceptance
// thresholds were calibrated against this exact shape.
type LexicalConfig struct {
	BaseThreshold      float64
	SpecificityAdjust  float64
	BroadAdjust        float64
	MolecularAdjust    float64
	TissueOrganAdjust  float64
	SynonymBoost       float64
	DomainConceptBoost float64
	MinConfidence      float64
	MaxConfidence      float64
}

func DefaultLexicalConfig() LexicalConfig {
	return LexicalConfig{
		BaseThreshold:      0.25,
		SpecificityAdjust:  0.05,
		BroadAdjust:        0.05,
		MolecularAdjust:    0.03,
		TissueOrganAdjust:  0.08,
		SynonymBoost:       0.30,
		DomainConceptBoost: 0.25,
		MinConfidence:      0.08,
		MaxConfidence:      0.98,
	}
}

// LexicalScorer blends character-sequence similarity, weighted token
// Jaccard, substring scoring and curated synonym/domain-concept boosts into
// a fuzzy text similarity, then maps it into a bounded confidence.
type LexicalScorer struct {
	dict *Dictionaries
	cfg  LexicalConfig
}

// NewLexicalScorer expects callers to normalize key event text first; the
// scorer itself only lower-cases and tokenizes.
func NewLexicalScorer(dict *Dictionaries, cfg LexicalConfig) *LexicalScorer {
	return &LexicalScorer{
		dict: dict,
		cfg:  cfg,
	}
}

// Similarity scores two normalized texts in [0,1]. The optional biological
// level enables the exact pathway-term short-circuit and level-specific
// adjustment.
func (s *LexicalScorer) Similarity(a, b string, level domain.BiologicalLevel) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}

	// Exact pathway/term short-circuit: a shared multi-word key term that
	// the synonym table also knows is decisive at molecular and cellular
	// levels.
	if level == domain.LevelMolecular || level == domain.LevelCellular {
		if term := s.sharedKeyPathwayTerm(a, b); term != "" {
			if level == domain.LevelMolecular {
				return 0.95
			}
			return 0.85
		}
	}

	lowerA := strings.ToLower(a)
	lowerB := strings.ToLower(b)

	seq := sequenceRatio(lowerA, lowerB)
	jac := s.blendedJaccard(lowerA, lowerB)
	sub := s.substringScore(lowerA, lowerB)

	combined := s.blendRegimes(seq, jac, sub)

	if boost := s.lookupBoost(lowerA, lowerB); boost > 0 {
		// Diminishing returns: the multiplier shrinks as the base score
		// approaches 1.
		combined *= 1.0 + boost*(1.0-combined)
	}

	combined *= levelMultiplier(level, combined)

	return clamp(combined, 0, 1)
}

// blendRegimes applies the score-dependent weighting: whichever sub-signal
// dominates picks the blend, with an explicit 0.85 penalty in the weak
// fallback regime.
func (s *LexicalScorer) blendRegimes(seq, jac, sub float64) float64 {
	switch {
	case jac >= 0.5:
		return 0.25*seq + 0.55*jac + 0.20*sub
	case sub >= 0.6:
		return 0.20*seq + 0.25*jac + 0.55*sub
	case seq >= 0.65:
		return 0.50*seq + 0.30*jac + 0.20*sub
	default:
		return 0.85 * (0.35*seq + 0.35*jac + 0.30*sub)
	}
}

// blendedJaccard is 40% plain token Jaccard over tokens longer than two
// characters plus 60% of a variant that doubles the weight of curated
// important biological terms.
func (s *LexicalScorer) blendedJaccard(a, b string) float64 {
	tokensA := tokenSetMinLen(a, 3)
	tokensB := tokenSetMinLen(b, 3)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var interCount, unionCount int
	var interWeight, unionWeight float64

	weight := func(token string) float64 {
		if s.dict.IsImportant(token) {
			return 2.0
		}
		return 1.0
	}

	for token := range tokensA {
		w := weight(token)
		unionCount++
		unionWeight += w
		if _, ok := tokensB[token]; ok {
			interCount++
			interWeight += w
		}
	}
	for token := range tokensB {
		if _, ok := tokensA[token]; !ok {
			unionCount++
			unionWeight += weight(token)
		}
	}

	plain := float64(interCount) / float64(unionCount)
	weighted := interWeight / unionWeight
	return 0.4*plain + 0.6*weighted
}

// substringScore rewards containment (0.6-0.9 scaled by length ratio) and
// otherwise falls back to a weighted word-overlap capped near 0.55, with
// longer and biologically important words weighted higher.
func (s *LexicalScorer) substringScore(a, b string) float64 {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) >= 3 && strings.Contains(longer, shorter) {
		return 0.6 + 0.3*(float64(len(shorter))/float64(len(longer)))
	}

	tokensA := tokenSetMinLen(a, 4)
	tokensB := tokenSetMinLen(b, 4)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	weight := func(token string) float64 {
		w := 1.0
		if len(token) >= 7 {
			w += 0.5
		}
		if s.dict.IsImportant(token) {
			w += 1.0
		}
		return w
	}

	var shared, total float64
	for token := range tokensA {
		w := weight(token)
		total += w
		if _, ok := tokensB[token]; ok {
			shared += w
		}
	}
	if total == 0 || shared == 0 {
		return 0
	}
	return 0.55 * math.Pow(shared/total, 0.8)
}

// lookupBoost returns the larger of the synonym (0.3) and domain-concept
// (0.25) boosts for the term pairs present in the two texts.
func (s *LexicalScorer) lookupBoost(a, b string) float64 {
	termsA := s.keyPathwayTerms(a)
	termsB := s.keyPathwayTerms(b)

	best := 0.0
	for _, ta := range termsA {
		for _, tb := range termsB {
			if ta == tb {
				continue
			}
			if s.dict.SynonymMatch(ta, tb) && s.cfg.SynonymBoost > best {
				best = s.cfg.SynonymBoost
			}
			if s.dict.DomainConceptMatch(ta, tb) && s.cfg.DomainConceptBoost > best {
				best = s.cfg.DomainConceptBoost
			}
		}
	}
	return best
}

// keyPathwayTerms extracts stopword-trimmed unigrams and bigrams from the
// text, lower-cased.
func (s *LexicalScorer) keyPathwayTerms(text string) []string {
	tokens := splitAlphaNum(text, true)
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if len(lower) < 3 || s.dict.IsStopword(lower) {
			continue
		}
		kept = append(kept, lower)
	}

	terms := make([]string, 0, 2*len(kept))
	terms = append(terms, kept...)
	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}
	return terms
}

// sharedKeyPathwayTerm returns a key term longer than six characters that
// both texts contain and the synonym table recognizes.
func (s *LexicalScorer) sharedKeyPathwayTerm(a, b string) string {
	termsB := make(map[string]struct{})
	for _, term := range s.keyPathwayTerms(b) {
		termsB[term] = struct{}{}
	}
	for _, term := range s.keyPathwayTerms(a) {
		if len(term) <= 6 {
			continue
		}
		if _, ok := termsB[term]; !ok {
			continue
		}
		if s.dict.InSynonymTable(term) {
			return term
		}
	}
	return ""
}

// Threshold is the minimum combined similarity to accept a candidate for
// the given key event: 0.25 base, raised for high-specificity titles,
// lowered for broad-process titles, with molecular and tissue/organ level
// adjustments.
func (s *LexicalScorer) Threshold(keTitle string, level domain.BiologicalLevel) float64 {
	threshold := s.cfg.BaseThreshold
	if s.dict.HasHighSpecificityTerm(keTitle) {
		threshold += s.cfg.SpecificityAdjust
	}
	if s.dict.HasBroadProcessTerm(keTitle) {
		threshold -= s.cfg.BroadAdjust
	}
	switch level {
	case domain.LevelMolecular:
		threshold -= s.cfg.MolecularAdjust
	case domain.LevelTissue, domain.LevelOrgan:
		threshold -= s.cfg.TissueOrganAdjust
	}
	if threshold < 0.05 {
		threshold = 0.05
	}
	return threshold
}

// Confidence maps a combined similarity into the signal's per-candidate
// score: piecewise confidence bands plus additive boosts for strong title
// similarity, title/description consistency and descriptive candidate
// titles, with a deterministic sub-0.01 hash jitter so equal-confidence
// candidates order reproducibly.
func (s *LexicalScorer) Confidence(combined, titleSim, descSim float64, candidateTitle string) float64 {
	confidence := confidenceBand(combined)

	if titleSim >= 0.8 {
		confidence += 0.10
	}
	if descSim > 0 && math.Abs(titleSim-descSim) <= 0.15 {
		confidence += 0.05
	}
	if len(candidateTitle) >= 40 {
		confidence += 0.03
	}

	confidence += titleJitter(candidateTitle)

	return clamp(confidence, s.cfg.MinConfidence, s.cfg.MaxConfidence)
}

func confidenceBand(combined float64) float64 {
	switch {
	case combined < 0.3:
		return 0.24
	case combined < 0.5:
		return 0.24 + (combined-0.3)/0.2*0.12
	case combined < 0.7:
		return 0.36 + (combined-0.5)/0.2*0.12
	default:
		over := combined - 0.7
		if over > 0.3 {
			over = 0.3
		}
		return 0.48 + over/0.3*0.12
	}
}

// titleJitter is the documented deterministic tie-break: a stable FNV hash
// of the candidate title spread over [0, 0.01).
func titleJitter(title string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(title))
	return float64(h.Sum32()%100) / 10000.0
}

func levelMultiplier(level domain.BiologicalLevel, combined float64) float64 {
	// Only meaningful matches get the level adjustment; weak scores stay
	// below threshold either way.
	if combined < 0.3 {
		return 1.0
	}
	switch level {
	case domain.LevelMolecular:
		return 1.3
	case domain.LevelCellular:
		return 1.2
	case domain.LevelTissue:
		return 1.2
	case domain.LevelOrgan:
		return 1.3
	default:
		return 1.0
	}
}

func tokenSetMinLen(text string, minLen int) map[string]struct{} {
	out := make(map[string]struct{}, 16)
	for _, token := range splitAlphaNum(text, true) {
		if len(token) >= minLen {
			out[strings.ToLower(token)] = struct{}{}
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
