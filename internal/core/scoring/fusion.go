package scoring

import (
	"sort"

	"github.com/aopmap/kemapper/internal/core/domain"
)

// Scored is one candidate under one signal, with the signal's contributing
// evidence alongside the raw score.
type Scored struct {
	Candidate domain.Candidate
	Score     float64
	Evidence  Evidence
}

// Evidence is side data a signal wants to surface in the final result.
type Evidence struct {
	MatchingGenes []string
	TitleScore    float64
	TextScore     float64
}

// Signal is one named, ordered scored-candidate list entering fusion.
// Callers pass signals in a fixed order: merged display fields are
// first-writer-wins, so ordering is part of the contract.
type Signal struct {
	Name       string
	Candidates []Scored
}

// FusionConfig parameterizes the N-signal combiner. The engine accepts any
// positive weights without validating their sum; weight hygiene belongs to
// the configuration boundary.
type FusionConfig struct {
	Weights            map[string]float64
	MultiEvidenceBonus float64
	MaxScore           float64
	MinThreshold       float64
}

func DefaultFusionConfig(weights map[string]float64) FusionConfig {
	return FusionConfig{
		Weights:            weights,
		MultiEvidenceBonus: 0.05,
		MaxScore:           0.98,
		MinThreshold:       0.15,
	}
}

// Fused is one merged candidate after fusion.
type Fused struct {
	Candidate    domain.Candidate
	SignalScores map[string]float64
	Evidence     map[string]Evidence
	MatchTypes   []string
	HybridScore  float64
}

// FuseSignals merges the per-signal lists by candidate ID into a single
// ranked list: weighted sum of signal scores, a flat bonus when two or more
// signals agree, a cap, and a floor. Signal-count agnostic; two and three
// signal callers share this path. Exact hybrid-score ties break by
// ascending candidate ID so ordering is reproducible.
func FuseSignals(signals []Signal, cfg FusionConfig) []Fused {
	merged := make(map[string]*Fused)
	order := make([]string, 0, 64)

	for _, signal := range signals {
		for _, scored := range signal.Candidates {
			if scored.Candidate == nil {
				continue
			}
			id := scored.Candidate.CandidateID()
			if id == "" {
				continue
			}
			record, ok := merged[id]
			if !ok {
				record = &Fused{
					Candidate:    scored.Candidate,
					SignalScores: make(map[string]float64, len(signals)),
					Evidence:     make(map[string]Evidence, len(signals)),
				}
				merged[id] = record
				order = append(order, id)
			}
			record.SignalScores[signal.Name] = scored.Score
			record.Evidence[signal.Name] = scored.Evidence
		}
	}

	out := make([]Fused, 0, len(order))
	for _, id := range order {
		record := merged[id]

		var hybrid float64
		var contributing int
		matchTypes := make([]string, 0, len(signals))
		for _, signal := range signals {
			score, ok := record.SignalScores[signal.Name]
			if !ok {
				record.SignalScores[signal.Name] = 0.0
				continue
			}
			if score > 0 {
				contributing++
				matchTypes = append(matchTypes, signal.Name)
			}
			hybrid += score * cfg.Weights[signal.Name]
		}

		if contributing >= 2 {
			hybrid += cfg.MultiEvidenceBonus
		}
		if hybrid > cfg.MaxScore {
			hybrid = cfg.MaxScore
		}
		if hybrid < cfg.MinThreshold {
			continue
		}

		record.MatchTypes = matchTypes
		record.HybridScore = hybrid
		out = append(out, *record)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].HybridScore != out[j].HybridScore {
			return out[i].HybridScore > out[j].HybridScore
		}
		return out[i].Candidate.CandidateID() < out[j].Candidate.CandidateID()
	})

	return out
}
