package annotations

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aopmap/kemapper/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadParsesCatalogAndAnnotations(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFile(t, dir, "go_terms.tsv",
		"# id\tname\tdefinition\tsynonyms\tparents\tpart_of\n"+
			"GO:0006915\tapoptotic process\tA programmed cell death process.\tapoptosis;;exact|programmed cell death;;related\tGO:0012501\tGO:0008219\n"+
			"GO:0006954\tinflammatory response\tResponse to injury or infection.\t\t\t\n"+
			"GO:0006915\tduplicate entry\tignored\t\t\t\n"+
			"BAD:1\tnot a go id\t\t\t\t\n")
	annotationsPath := writeFile(t, dir, "go_genes.tsv",
		"GO:0006915\tTP53\n"+
			"GO:0006915\tCASP3\n"+
			"GO:0006915\tTP53\n"+
			"GO:9999999\tBRCA1\n"+
			"BAD:1\tXYZ\n")

	catalog, err := Load(catalogPath, annotationsPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cands, err := catalog.AllCandidates(context.Background())
	if err != nil {
		t.Fatalf("AllCandidates() error = %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 terms (duplicate and malformed dropped), got %d", len(cands))
	}

	term, ok := cands[0].(domain.GoTermCandidate)
	if !ok || term.ID != "GO:0006915" {
		t.Fatalf("expected GO:0006915 first, got %+v", cands[0])
	}
	if term.Name != "apoptotic process" || term.Definition != "A programmed cell death process." {
		t.Fatalf("unexpected term fields: %+v", term)
	}
	if len(term.Synonyms) != 2 || term.Synonyms[0].Text != "apoptosis" || term.Synonyms[0].Type != "exact" {
		t.Fatalf("unexpected synonyms: %+v", term.Synonyms)
	}
	if len(term.Parents) != 1 || term.Parents[0] != "GO:0012501" {
		t.Fatalf("unexpected parents: %+v", term.Parents)
	}

	genes, err := catalog.GenesFor(context.Background(), "GO:0006915")
	if err != nil {
		t.Fatalf("GenesFor() error = %v", err)
	}
	if len(genes) != 2 {
		t.Fatalf("expected deduplicated gene set of 2, got %v", genes)
	}
	if _, ok := genes["TP53"]; !ok {
		t.Fatalf("expected TP53 in gene set, got %v", genes)
	}

	if unknown, _ := catalog.GenesFor(context.Background(), "GO:0000000"); unknown != nil {
		t.Fatalf("expected nil gene set for unknown term, got %v", unknown)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	annotationsPath := writeFile(t, dir, "go_genes.tsv", "GO:1\tTP53\n")

	if _, err := Load(filepath.Join(dir, "missing.tsv"), annotationsPath, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatalf("expected error for missing catalog file")
	}
}

func TestParseSynonymsWithoutType(t *testing.T) {
	synonyms := parseSynonyms("fatty liver|lipid accumulation;;narrow")
	if len(synonyms) != 2 {
		t.Fatalf("expected 2 synonyms, got %v", synonyms)
	}
	if synonyms[0].Text != "fatty liver" || synonyms[0].Type != "" {
		t.Fatalf("expected untyped synonym, got %+v", synonyms[0])
	}
	if synonyms[1].Type != "narrow" {
		t.Fatalf("expected narrow type, got %+v", synonyms[1])
	}
}
