package domain

// Suggestion is one ranked candidate in a suggestion result. Plain data
// only: the result must serialize to nested JSON without leaking internal
// types.
type Suggestion struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Text          string             `json:"text,omitempty"`
	Link          string             `json:"link,omitempty"`
	HybridScore   float64            `json:"hybrid_score"`
	SignalScores  map[string]float64 `json:"signal_scores"`
	MatchTypes    []string           `json:"match_types"`
	MatchingGenes []string           `json:"matching_genes,omitempty"`
}

// SuggestionResult is the full response for one key event.
// CombinedSuggestions is sorted descending by hybrid score, carries no
// duplicate candidate IDs, and every score is bounded by the configured
// [min threshold, max score] window.
type SuggestionResult struct {
	RequestID string `json:"request_id"`
	KEID      string `json:"ke_id"`
	KETitle   string `json:"ke_title"`

	Genes []string `json:"genes"`

	BySignal            map[string][]Suggestion `json:"by_signal"`
	CombinedSuggestions []Suggestion            `json:"combined_suggestions"`

	SkippedCandidates int    `json:"skipped_candidates,omitempty"`
	Error             string `json:"error,omitempty"`
}
