package extract

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/ppiankov/gpuscout/internal/normalize"
)

// keywordIndex finds token-bounded keyword occurrences in normalized text.
// The automaton tells which keywords are present in one pass; only those are
// then located.
type keywordIndex struct {
	keywords []string
	owners   []int // keywords[i] belongs to group owners[i]
	matcher  *ahocorasick.Matcher

	// fused allows a keyword to end where a digit starts ("rtx4070")
	fused bool
}

type keywordHit struct {
	owner   int
	keyword string
	span    normalize.Span
}

// newKeywordIndex builds an index over groups of keywords. A keyword listed in
// several groups belongs to the first one.
func newKeywordIndex(groups [][]string, n *normalize.Normalizer, fused bool) *keywordIndex {
	idx := &keywordIndex{fused: fused}
	seen := make(map[string]bool)
	for owner, group := range groups {
		for _, kw := range group {
			kw = n.Normalize(kw).Text
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			idx.keywords = append(idx.keywords, kw)
			idx.owners = append(idx.owners, owner)
		}
	}
	if len(idx.keywords) > 0 {
		idx.matcher = ahocorasick.NewStringMatcher(idx.keywords)
	}
	return idx
}

// find returns every token-bounded hit ordered by position, longest first
// for hits starting at the same byte.
func (k *keywordIndex) find(text string) []keywordHit {
	if k.matcher == nil || text == "" {
		return nil
	}

	var hits []keywordHit
	for _, i := range k.matcher.MatchThreadSafe([]byte(text)) {
		kw := k.keywords[i]
		for from := 0; from < len(text); {
			pos := strings.Index(text[from:], kw)
			if pos < 0 {
				break
			}
			start := from + pos
			end := start + len(kw)
			if k.bounded(text, start, end) {
				hits = append(hits, keywordHit{
					owner:   k.owners[i],
					keyword: kw,
					span:    normalize.Span{Start: start, End: end},
				})
			}
			from = start + 1
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].span.Start != hits[b].span.Start {
			return hits[a].span.Start < hits[b].span.Start
		}
		return hits[a].span.Len() > hits[b].span.Len()
	})
	return hits
}

func (k *keywordIndex) bounded(text string, start, end int) bool {
	if start > 0 && text[start-1] != ' ' {
		return false
	}
	if end == len(text) || text[end] == ' ' {
		return true
	}
	return k.fused && isDigit(text[end])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
