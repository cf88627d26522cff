package scoring

import "sort"

// GeneOverlapConfig tunes the gene-evidence signal.
type GeneOverlapConfig struct {
	KEOverlapWeight float64
	JaccardWeight   float64
	MinSetSize      int
	MinScore        float64
}

func DefaultGeneOverlapConfig() GeneOverlapConfig {
	return GeneOverlapConfig{
		KEOverlapWeight: 0.7,
		JaccardWeight:   0.3,
		MinSetSize:      10,
		MinScore:        0.05,
	}
}

// GeneOverlap is the scored intersection of a key event's gene set with a
// candidate's gene set.
type GeneOverlap struct {
	Score         float64
	MatchingGenes []string
}

// ScoreGeneOverlap combines KE-side overlap with Jaccard and dampens tiny
// candidate gene sets, which otherwise score artificially high from trivial
// overlap. Candidates with no intersection or a score under the minimum are
// excluded entirely (ok=false), not scored zero.
func ScoreGeneOverlap(keGenes, candGenes map[string]struct{}, cfg GeneOverlapConfig) (GeneOverlap, bool) {
	if len(keGenes) == 0 || len(candGenes) == 0 {
		return GeneOverlap{}, false
	}

	matching := make([]string, 0, len(keGenes))
	for gene := range keGenes {
		if _, ok := candGenes[gene]; ok {
			matching = append(matching, gene)
		}
	}
	if len(matching) == 0 {
		return GeneOverlap{}, false
	}
	sort.Strings(matching)

	inter := float64(len(matching))
	union := float64(len(keGenes) + len(candGenes) - len(matching))

	keOverlap := inter / float64(len(keGenes))
	jaccard := inter / union
	score := cfg.KEOverlapWeight*keOverlap + cfg.JaccardWeight*jaccard

	if cfg.MinSetSize > 0 && len(candGenes) < cfg.MinSetSize {
		score *= float64(len(candGenes)) / float64(cfg.MinSetSize)
	}

	if score < cfg.MinScore {
		return GeneOverlap{}, false
	}
	return GeneOverlap{Score: score, MatchingGenes: matching}, true
}
