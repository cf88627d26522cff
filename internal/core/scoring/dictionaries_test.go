package scoring

import "testing"

func TestExpandTermWords(t *testing.T) {
	cases := []struct {
		pattern string
		want    []string
	}{
		{"loss", []string{"loss"}},
		{"increase(?:d|s)?", []string{"increase", "increased", "increases"}},
		{"up-?regulat(?:ed|ion|es)?", []string{
			"up-regulat", "upregulat",
			"up-regulated", "upregulated",
			"up-regulation", "upregulation",
			"up-regulates", "upregulates",
		}},
	}
	for _, tc := range cases {
		got := expandTermWords(tc.pattern)
		seen := make(map[string]struct{}, len(got))
		for _, w := range got {
			seen[w] = struct{}{}
		}
		for _, w := range tc.want {
			if _, ok := seen[w]; !ok {
				t.Fatalf("pattern %q: missing expanded word %q in %v", tc.pattern, w, got)
			}
		}
	}
}

func TestDirectionalWordsFeedStopwordFilter(t *testing.T) {
	d := MustLoadDictionaries()
	for _, word := range []string{"increased", "inhibition", "loss", "upregulation"} {
		if !d.IsStopword(word) {
			t.Fatalf("expected directionality word %q treated as stopword", word)
		}
	}
	if d.IsStopword("apoptosis") {
		t.Fatalf("biological term must not be a stopword")
	}
}

func TestSynonymMatchBridgesBothDirections(t *testing.T) {
	d := MustLoadDictionaries()

	if !d.SynonymMatch("oxidative stress", "ros") {
		t.Fatalf("expected key-to-value synonym bridge")
	}
	if !d.SynonymMatch("ros", "oxidative stress") {
		t.Fatalf("expected value-to-key synonym bridge")
	}
	if d.SynonymMatch("apoptosis", "apoptosis") {
		t.Fatalf("identical terms are not a synonym match")
	}
	if d.SynonymMatch("hepatocyte", "phototransduction") {
		t.Fatalf("unrelated terms must not bridge")
	}
}

func TestDomainConceptMatch(t *testing.T) {
	d := MustLoadDictionaries()
	if !d.DomainConceptMatch("apoptosis", "tp53") {
		t.Fatalf("expected domain-concept bridge apoptosis/tp53")
	}
	if d.DomainConceptMatch("fibrosis", "rhodopsin") {
		t.Fatalf("unrelated terms must not bridge")
	}
}

func TestGeneSymbolPattern(t *testing.T) {
	d := MustLoadDictionaries()
	for _, symbol := range []string{"TP53", "CASP3", "BCL2"} {
		if !d.LooksLikeGeneSymbol(symbol) {
			t.Fatalf("expected %q recognized as gene symbol", symbol)
		}
	}
	for _, token := range []string{"tp53", "apoptosis", "TP", "53", "TP53B"} {
		if d.LooksLikeGeneSymbol(token) {
			t.Fatalf("did not expect %q recognized as gene symbol", token)
		}
	}
}
