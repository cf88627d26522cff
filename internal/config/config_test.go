package config

import "testing"

func TestLoadIncludesFusionDefaults(t *testing.T) {
	t.Setenv("PATHWAY_GENE_WEIGHT", "")
	t.Setenv("PATHWAY_TEXT_WEIGHT", "")
	t.Setenv("PATHWAY_EMBEDDING_WEIGHT", "")
	t.Setenv("FUSION_MULTI_EVIDENCE_BONUS", "")
	t.Setenv("FUSION_MAX_SCORE", "")
	t.Setenv("FUSION_MIN_THRESHOLD", "")

	cfg := Load()
	if cfg.PathwayGeneWeight != 0.40 || cfg.PathwayTextWeight != 0.35 || cfg.PathwayEmbeddingWeight != 0.25 {
		t.Fatalf("unexpected default pathway weights: %f/%f/%f", cfg.PathwayGeneWeight, cfg.PathwayTextWeight, cfg.PathwayEmbeddingWeight)
	}
	if cfg.GoEmbeddingWeight != 0.60 || cfg.GoGeneWeight != 0.40 {
		t.Fatalf("unexpected default go weights: %f/%f", cfg.GoEmbeddingWeight, cfg.GoGeneWeight)
	}
	if cfg.FusionMultiEvidenceBonus != 0.05 || cfg.FusionMaxScore != 0.98 || cfg.FusionMinThreshold != 0.15 {
		t.Fatalf("unexpected fusion defaults: %f/%f/%f", cfg.FusionMultiEvidenceBonus, cfg.FusionMaxScore, cfg.FusionMinThreshold)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SPARQL_RATE_LIMIT_PER_SEC", "0.5")
	t.Setenv("SPARQL_BURST", "2")
	t.Setenv("SCORE_TRANSFORM_MODE", "linear")
	t.Setenv("SCORE_TRANSFORM_EXPONENT", "2.5")
	t.Setenv("MAX_PER_SIGNAL", "10")

	cfg := Load()
	if cfg.SPARQLRateLimitPerSec != 0.5 {
		t.Fatalf("expected rate limit override, got %f", cfg.SPARQLRateLimitPerSec)
	}
	if cfg.SPARQLBurst != 2 {
		t.Fatalf("expected burst override, got %d", cfg.SPARQLBurst)
	}
	if cfg.TransformMode != "linear" || cfg.TransformExponent != 2.5 {
		t.Fatalf("expected transform overrides, got %s/%f", cfg.TransformMode, cfg.TransformExponent)
	}
	if cfg.MaxPerSignal != 10 {
		t.Fatalf("expected max per signal 10, got %d", cfg.MaxPerSignal)
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("SPARQL_BURST", "not-a-number")
	t.Setenv("TITLE_WEIGHT", "also-not-a-number")

	cfg := Load()
	if cfg.SPARQLBurst != 4 {
		t.Fatalf("expected fallback burst 4, got %d", cfg.SPARQLBurst)
	}
	if cfg.TitleWeight != 0.85 {
		t.Fatalf("expected fallback title weight 0.85, got %f", cfg.TitleWeight)
	}
}
