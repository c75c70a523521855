package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
)

// ModelMatch is an extracted GPU model
type ModelMatch struct {
	Manufacturer model.Manufacturer // Grammar that produced the match
	Series       *string            // nil when no series rule covers the number
	Number       string             // "4070", "a770"
	Suffix       string             // Normalized suffix token, "ti", "xt"
	Display      string             // "4070 Ti", "7800 XT", "A770"
}

// ModelExtractor finds model number candidates with per-vendor grammars and
// picks the one the listing is most likely selling
type ModelExtractor struct {
	grammars []*grammar

	negation    map[string]bool
	determiners map[string]bool
	window      int
	from        map[string]bool
	to          map[string]bool
	versus      map[string]bool
	alternative map[string]bool
}

type grammar struct {
	manufacturer model.Manufacturer
	re           *regexp.Regexp
	prefixes     map[string]bool
	prefixGroup  int
	numberGroup  int
	suffixGroup  int
	suffixes     map[string]string // token -> display
	series       []model.SeriesRule
}

type candidate struct {
	number      string
	suffix      string
	span        normalize.Span
	excluded    bool
	alternative bool // excluded as the first half of "A or B"
}

func (c candidate) key() string {
	return c.number + "|" + c.suffix
}

// NewModelExtractor compiles the grammars and the negation/comparison vocabulary
func NewModelExtractor(t model.Tables, n *normalize.Normalizer) (*ModelExtractor, error) {
	e := &ModelExtractor{
		negation:    wordSet(t.NegationMarkers, n),
		determiners: wordSet(t.Determiners, n),
		window:      t.NegationWindow,
		from:        wordSet(t.Comparison.From, n),
		to:          wordSet(t.Comparison.To, n),
		versus:      wordSet(t.Comparison.Versus, n),
		alternative: wordSet(t.Comparison.Alternative, n),
	}
	for _, g := range t.Grammars {
		compiled, err := compileGrammar(g, n)
		if err != nil {
			return nil, fmt.Errorf("compile %s grammar: %w", g.Manufacturer, err)
		}
		e.grammars = append(e.grammars, compiled)
	}
	return e, nil
}

func compileGrammar(g model.Grammar, n *normalize.Normalizer) (*grammar, error) {
	if g.Number == "" {
		return nil, fmt.Errorf("empty number pattern")
	}

	var pattern strings.Builder
	pattern.WriteString(`\b`)
	if prefixes := alternation(g.Prefixes, n); prefixes != "" {
		pattern.WriteString(`(?:(?P<prefix>` + prefixes + `) ?)?`)
	}
	pattern.WriteString(`(?P<number>` + g.Number + `)`)

	suffixes := make(map[string]string, len(g.Suffixes))
	tokens := make([]string, 0, len(g.Suffixes))
	for _, s := range g.Suffixes {
		tok := n.Normalize(s.Token).Text
		if tok == "" {
			continue
		}
		suffixes[tok] = s.Display
		tokens = append(tokens, tok)
	}
	if alt := alternation(tokens, n); alt != "" {
		pattern.WriteString(`(?: ?(?P<suffix>` + alt + `))?`)
	}
	pattern.WriteString(`\b`)

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, err
	}

	series := make([]model.SeriesRule, len(g.Series))
	for i, r := range g.Series {
		r.Prefix = strings.ToLower(r.Prefix)
		series[i] = r
	}

	return &grammar{
		manufacturer: g.Manufacturer,
		re:           re,
		prefixes:     wordSet(g.Prefixes, n),
		prefixGroup:  re.SubexpIndex("prefix"),
		numberGroup:  re.SubexpIndex("number"),
		suffixGroup:  re.SubexpIndex("suffix"),
		suffixes:     suffixes,
		series:       series,
	}, nil
}

// alternation quotes normalized tokens into a longest-first regexp alternation
func alternation(tokens []string, n *normalize.Normalizer) string {
	var quoted []string
	for _, t := range tokens {
		t = n.Normalize(t).Text
		if t != "" {
			quoted = append(quoted, t)
		}
	}
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	for i, q := range quoted {
		quoted[i] = regexp.QuoteMeta(q)
	}
	return strings.Join(quoted, "|")
}

func wordSet(words []string, n *normalize.Normalizer) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if w = n.Normalize(w).Text; w != "" {
			set[w] = true
		}
	}
	return set
}

// Extract finds the model in normalized title text. With a known manufacturer
// only that vendor's grammar is used; with UNKNOWN every grammar is tried and
// the first result that maps to a series is preferred.
func (e *ModelExtractor) Extract(text normalize.Normalized, m model.Manufacturer) Result[ModelMatch] {
	if m != model.ManufacturerUnknown {
		for _, g := range e.grammars {
			if g.manufacturer == m {
				return e.extractWith(g, text)
			}
		}
		return absent(ModelMatch{}, model.FlagNoModelMatch)
	}

	var fallback *Result[ModelMatch]
	for _, g := range e.grammars {
		res := e.extractWith(g, text)
		if !res.Found {
			continue
		}
		if res.Value.Series != nil {
			return res
		}
		if fallback == nil {
			fallback = &res
		}
	}
	if fallback != nil {
		return *fallback
	}
	return absent(ModelMatch{}, model.FlagNoModelMatch)
}

func (e *ModelExtractor) extractWith(g *grammar, text normalize.Normalized) Result[ModelMatch] {
	cands := g.candidates(text)
	if len(cands) == 0 {
		return absent(ModelMatch{}, model.FlagNoModelMatch)
	}

	words := text.Words()
	e.applyNegation(g, cands, words)
	e.applyComparison(cands, words)

	var flags []string
	winner, ambiguous, fellBack := selectCandidate(cands)
	if fellBack {
		flags = append(flags, model.FlagFallbackExcludedCandidate)
	}
	if ambiguous {
		flags = append(flags, model.FlagAmbiguousModel)
	}

	match := g.toMatch(winner)
	if match.Series == nil {
		flags = append(flags, model.FlagNoSeriesMapping)
	}
	return found(match, winner.span, ambiguous, flags...)
}

func (g *grammar) candidates(text normalize.Normalized) []candidate {
	var cands []candidate
	for _, loc := range g.re.FindAllStringSubmatchIndex(text.Text, -1) {
		hasPrefix := g.prefixGroup > 0 && loc[2*g.prefixGroup] >= 0
		numSpan := normalize.Span{Start: loc[2*g.numberGroup], End: loc[2*g.numberGroup+1]}
		if !hasPrefix && isCurrency(text.RawBefore(numSpan)) {
			continue
		}

		c := candidate{
			number: text.Text[numSpan.Start:numSpan.End],
			span:   normalize.Span{Start: loc[0], End: loc[1]},
		}
		if g.suffixGroup > 0 && loc[2*g.suffixGroup] >= 0 {
			c.suffix = text.Text[loc[2*g.suffixGroup]:loc[2*g.suffixGroup+1]]
		}
		cands = append(cands, c)
	}
	return cands
}

func (g *grammar) toMatch(c candidate) ModelMatch {
	display := strings.ToUpper(c.number)
	if c.suffix != "" {
		suffix := g.suffixes[c.suffix]
		if suffix == "" {
			suffix = strings.ToUpper(c.suffix)
		}
		display += " " + suffix
	}
	return ModelMatch{
		Manufacturer: g.manufacturer,
		Series:       g.seriesFor(c.number),
		Number:       c.number,
		Suffix:       c.suffix,
		Display:      display,
	}
}

func (g *grammar) seriesFor(number string) *string {
	for _, r := range g.series {
		if r.Length > 0 && len(number) != r.Length {
			continue
		}
		if strings.HasPrefix(number, r.Prefix) {
			s := r.Series
			return &s
		}
	}
	return nil
}

// applyNegation excludes a candidate governed by a negation marker: the
// marker directly precedes it, or only determiners and the grammar's own
// prefixes sit in between ("not 4080", "not an rtx 4080"). Any other word
// ends the scan, so "no reserve rtx 3080" keeps its model.
func (e *ModelExtractor) applyNegation(g *grammar, cands []candidate, words []normalize.Word) {
	if len(e.negation) == 0 || e.window <= 0 {
		return
	}
	for i := range cands {
		for _, w := range precedingWords(words, cands, i, e.window) {
			if e.negation[w.Text] {
				cands[i].excluded = true
				break
			}
			if !e.determiners[w.Text] && !g.prefixes[w.Text] {
				break
			}
		}
	}
}

// applyComparison excludes the first-named candidate of "from A to B",
// "A vs B" and "A or B"
func (e *ModelExtractor) applyComparison(cands []candidate, words []normalize.Word) {
	for i := 0; i+1 < len(cands); i++ {
		between := wordsBetween(words, cands[i].span, cands[i+1].span)
		if len(between) == 0 || len(between) > e.window {
			continue
		}

		switch {
		case containsWord(between, e.versus):
			cands[i].excluded = true
		case containsWord(between, e.to) && containsWord(precedingWords(words, cands, i, e.window), e.from):
			cands[i].excluded = true
		case containsWord(between, e.alternative):
			cands[i].excluded = true
			cands[i].alternative = true
		}
	}
}

// selectCandidate applies the selection rules: a single surviving value wins
// outright, several compete on span length, none falls back to the first
// excluded candidate
func selectCandidate(cands []candidate) (winner candidate, ambiguous, fellBack bool) {
	var survivors []candidate
	for _, c := range cands {
		if !c.excluded {
			survivors = append(survivors, c)
		}
	}

	if len(survivors) == 0 {
		return cands[0], true, true
	}

	winner = survivors[0]
	for _, c := range survivors[1:] {
		if c.key() != winner.key() {
			ambiguous = true
		}
		if c.span.Len() > winner.span.Len() {
			winner = c
		}
	}

	for _, c := range cands {
		if c.alternative && c.key() != winner.key() {
			ambiguous = true
		}
	}
	return winner, ambiguous, false
}

// precedingWords returns up to n words before candidate i, stopping at the
// previous candidate
func precedingWords(words []normalize.Word, cands []candidate, i, n int) []normalize.Word {
	start := cands[i].span.Start
	limit := -1
	if i > 0 {
		limit = cands[i-1].span.End
	}

	var out []normalize.Word
	for j := len(words) - 1; j >= 0 && len(out) < n; j-- {
		w := words[j]
		if w.Span.End > start {
			continue
		}
		if w.Span.Start < limit {
			break
		}
		out = append(out, w)
	}
	return out
}

func wordsBetween(words []normalize.Word, a, b normalize.Span) []normalize.Word {
	var out []normalize.Word
	for _, w := range words {
		if w.Span.Start >= a.End && w.Span.End <= b.Start {
			out = append(out, w)
		}
	}
	return out
}

func containsWord(words []normalize.Word, set map[string]bool) bool {
	for _, w := range words {
		if set[w.Text] {
			return true
		}
	}
	return false
}

func isCurrency(r rune) bool {
	switch r {
	case '£', '$', '€':
		return true
	}
	return false
}
