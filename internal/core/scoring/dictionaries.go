package scoring

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/terms.yaml
var termsYAML []byte

// Dictionaries holds the curated term tables every scorer consults.
// Built once at startup and read-only afterwards, so it is safe to share
// across request-handling goroutines.
type Dictionaries struct {
	directionality   *regexp.Regexp
	conservative     *regexp.Regexp
	stopwords        map[string]struct{}
	bioLexicon       map[string]struct{}
	importantTerms   map[string]struct{}
	synonyms         map[string][]string
	domainConcepts   map[string][]string
	highSpecificity  []string
	broadProcess     []string
	genePattern      *regexp.Regexp
	directionalWords map[string]struct{}
}

type termTables struct {
	DirectionalityTerms []string            `yaml:"directionality_terms"`
	ConservativeTerms   []string            `yaml:"conservative_terms"`
	Stopwords           []string            `yaml:"stopwords"`
	BiologicalLexicon   []string            `yaml:"biological_lexicon"`
	ImportantTerms      []string            `yaml:"important_terms"`
	Synonyms            map[string][]string `yaml:"synonyms"`
	DomainConcepts      map[string][]string `yaml:"domain_concepts"`
	HighSpecificity     []string            `yaml:"high_specificity_terms"`
	BroadProcess        []string            `yaml:"broad_process_terms"`
}

// LoadDictionaries parses the embedded term tables.
func LoadDictionaries() (*Dictionaries, error) {
	var tables termTables
	if err := yaml.Unmarshal(termsYAML, &tables); err != nil {
		return nil, fmt.Errorf("parse term tables: %w", err)
	}

	directionality, err := compileTermAlternation(tables.DirectionalityTerms)
	if err != nil {
		return nil, fmt.Errorf("compile directionality terms: %w", err)
	}
	conservative, err := compileTermAlternation(tables.ConservativeTerms)
	if err != nil {
		return nil, fmt.Errorf("compile conservative terms: %w", err)
	}

	d := &Dictionaries{
		directionality:   directionality,
		conservative:     conservative,
		stopwords:        toSet(tables.Stopwords),
		bioLexicon:       toSet(tables.BiologicalLexicon),
		importantTerms:   toSet(tables.ImportantTerms),
		synonyms:         lowerTable(tables.Synonyms),
		domainConcepts:   lowerTable(tables.DomainConcepts),
		highSpecificity:  lowerAll(tables.HighSpecificity),
		broadProcess:     lowerAll(tables.BroadProcess),
		genePattern:      regexp.MustCompile(`^[A-Z]+[0-9]+$`),
		directionalWords: make(map[string]struct{}),
	}

	// Plain-word forms of the regex catalog feed the stopword filter in
	// entity extraction.
	for _, pattern := range tables.DirectionalityTerms {
		for _, word := range expandTermWords(pattern) {
			d.directionalWords[word] = struct{}{}
		}
	}

	return d, nil
}

// MustLoadDictionaries panics on a malformed embedded table. The tables ship
// inside the binary, so a failure here is a build defect, not runtime input.
func MustLoadDictionaries() *Dictionaries {
	d, err := LoadDictionaries()
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Dictionaries) IsStopword(token string) bool {
	token = strings.ToLower(token)
	if _, ok := d.stopwords[token]; ok {
		return true
	}
	_, ok := d.directionalWords[token]
	return ok
}

func (d *Dictionaries) IsImportant(token string) bool {
	_, ok := d.importantTerms[strings.ToLower(token)]
	return ok
}

func (d *Dictionaries) InBioLexicon(token string) bool {
	_, ok := d.bioLexicon[strings.ToLower(token)]
	return ok
}

func (d *Dictionaries) LooksLikeGeneSymbol(token string) bool {
	return d.genePattern.MatchString(token)
}

// InSynonymTable reports whether the term appears anywhere in the synonym
// table, as a key or inside a value list.
func (d *Dictionaries) InSynonymTable(term string) bool {
	return tableContains(d.synonyms, strings.ToLower(term))
}

// SynonymMatch reports whether the two terms are bridged by the synonym
// table in either direction.
func (d *Dictionaries) SynonymMatch(a, b string) bool {
	return tableBridges(d.synonyms, strings.ToLower(a), strings.ToLower(b))
}

// DomainConceptMatch reports whether the two terms are bridged by the
// domain-concept table in either direction.
func (d *Dictionaries) DomainConceptMatch(a, b string) bool {
	return tableBridges(d.domainConcepts, strings.ToLower(a), strings.ToLower(b))
}

func (d *Dictionaries) HasHighSpecificityTerm(text string) bool {
	return containsAny(strings.ToLower(text), d.highSpecificity)
}

func (d *Dictionaries) HasBroadProcessTerm(text string) bool {
	return containsAny(strings.ToLower(text), d.broadProcess)
}

func compileTermAlternation(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("empty term list")
	}
	expr := `(?i)\b(?:` + strings.Join(patterns, "|") + `)\b`
	return regexp.Compile(expr)
}

// expandTermWords turns a catalog regex like "increase(?:d|s)?" into the
// literal word forms it matches, for exact-token stopword checks.
func expandTermWords(pattern string) []string {
	open := strings.Index(pattern, "(?:")
	if open < 0 {
		return []string{strings.ToLower(pattern)}
	}
	close := strings.Index(pattern[open:], ")")
	if close < 0 {
		return []string{strings.ToLower(pattern)}
	}
	close += open

	stem := pattern[:open]
	rest := pattern[close+1:]
	optional := strings.HasPrefix(rest, "?")
	suffixes := strings.Split(pattern[open+3:close], "|")

	words := make([]string, 0, len(suffixes)+1)
	if optional {
		words = append(words, strings.ToLower(stem))
	}
	for _, suffix := range suffixes {
		words = append(words, strings.ToLower(stem+suffix))
	}

	// A nested hyphen alternation like "up-?regulat..." also matches the
	// unhyphenated form.
	out := words[:0:0]
	for _, w := range words {
		w = strings.ReplaceAll(w, "-?", "-")
		out = append(out, w, strings.ReplaceAll(w, "-", ""))
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return out
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}

func lowerTable(table map[string][]string) map[string][]string {
	out := make(map[string][]string, len(table))
	for key, values := range table {
		out[strings.ToLower(key)] = lowerAll(values)
	}
	return out
}

func tableContains(table map[string][]string, term string) bool {
	if _, ok := table[term]; ok {
		return true
	}
	for _, values := range table {
		for _, v := range values {
			if v == term {
				return true
			}
		}
	}
	return false
}

func tableBridges(table map[string][]string, a, b string) bool {
	if a == b {
		return false
	}
	linked := func(key, other string) bool {
		values, ok := table[key]
		if !ok {
			return false
		}
		for _, v := range values {
			if v == other || strings.Contains(other, v) || strings.Contains(v, other) {
				return true
			}
		}
		return false
	}
	if linked(a, b) || linked(b, a) {
		return true
	}
	// Both texts naming the same table key counts too ("wnt" on one side,
	// "wnt/beta-catenin" on the other).
	for key, values := range table {
		hit := func(s string) bool {
			if strings.Contains(s, key) {
				return true
			}
			for _, v := range values {
				if strings.Contains(s, v) {
					return true
				}
			}
			return false
		}
		if hit(a) && hit(b) {
			return true
		}
	}
	return false
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return true
		}
	}
	return false
}
