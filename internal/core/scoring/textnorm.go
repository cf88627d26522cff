package scoring

import (
	"strings"
	"unicode"
)

// Normalizer strips directionality qualifiers and extracts salient
// biological entity tokens from key event and candidate text. Pure
// functions over the shared dictionaries; never returns an error.
type Normalizer struct {
	dict *Dictionaries
}

func NewNormalizer(dict *Dictionaries) *Normalizer {
	return &Normalizer{dict: dict}
}

// RemoveDirectionalityTerms removes catalogued qualifier/direction words
// ("increased", "inhibition", "loss", ...) and collapses whitespace.
// If the full catalog strips the text below 30% of its original length, a
// conservative pass with only the high-confidence subset runs instead; if
// that still yields nothing, the original text comes back unchanged.
//
// The regular path is idempotent. The conservative fallback is not: its
// output may still hold full-catalog terms, and a shorter text can clear
// the 30% gate on re-entry and strip further. Callers normalize exactly
// once, before scoring.
func (n *Normalizer) RemoveDirectionalityTerms(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	stripped := collapseWhitespace(n.dict.directionality.ReplaceAllString(text, " "))
	if float64(len(stripped)) >= 0.3*float64(len(text)) {
		return stripped
	}

	conservative := collapseWhitespace(n.dict.conservative.ReplaceAllString(text, " "))
	if conservative == "" {
		return text
	}
	return conservative
}

// EntityOptions controls ExtractEntities.
type EntityOptions struct {
	MinLength      int
	IncludeNumbers bool
	BioOnly        bool
	ExtraStopwords []string
}

func DefaultEntityOptions() EntityOptions {
	return EntityOptions{MinLength: 3, IncludeNumbers: true}
}

// ExtractEntities tokenizes on alphanumeric runs and keeps the salient
// tokens: long enough, not a stopword or directionality qualifier, and in
// bio-only mode either a lexicon term or a gene-like symbol (TP53 style).
// A non-empty input never yields an empty result; when every token is
// filtered away the original text comes back unchanged.
func (n *Normalizer) ExtractEntities(text string, opts EntityOptions) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if opts.MinLength <= 0 {
		opts.MinLength = 3
	}

	extra := toSet(opts.ExtraStopwords)

	kept := make([]string, 0, 16)
	for _, token := range splitAlphaNum(text, opts.IncludeNumbers) {
		if len(token) < opts.MinLength {
			continue
		}
		lower := strings.ToLower(token)
		if n.dict.IsStopword(lower) {
			continue
		}
		if _, ok := extra[lower]; ok {
			continue
		}
		if opts.BioOnly && !n.dict.InBioLexicon(lower) && !n.dict.LooksLikeGeneSymbol(token) {
			continue
		}
		kept = append(kept, token)
	}

	if len(kept) == 0 {
		return text
	}
	return strings.Join(kept, " ")
}

// splitAlphaNum splits on alphanumeric runs, preserving case so gene-symbol
// patterns stay recognizable. Digits optionally terminate or join tokens.
func splitAlphaNum(s string, includeNumbers bool) []string {
	tokens := make([]string, 0, 16)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		token := b.String()
		b.Reset()
		if !includeNumbers && isAllDigits(token) {
			return
		}
		tokens = append(tokens, token)
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
