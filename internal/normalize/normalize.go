// Package normalize folds free-text listing fields into the canonical form
// every extractor works on, keeping a byte map back to the raw input.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultUnits are the memory units glued to a preceding number
var DefaultUnits = []string{"gb", "g"}

// Span is a half-open byte range [Start, End)
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one byte
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Distance returns the number of bytes between two spans (0 when they touch or overlap)
func (s Span) Distance(o Span) int {
	switch {
	case s.End <= o.Start:
		return o.Start - s.End
	case o.End <= s.Start:
		return s.Start - o.End
	default:
		return 0
	}
}

// Normalized is normalized text plus the mapping back to the raw string
type Normalized struct {
	Text string

	raw    string
	starts []int // raw start offset of the rune that produced each byte of Text
	ends   []int // raw end offset of that rune
}

// Raw returns the text the normalized form was built from
func (n Normalized) Raw() string {
	return n.raw
}

// Original maps a span of Text to the span of the raw string that produced it
func (n Normalized) Original(s Span) Span {
	if s.Start < 0 || s.End > len(n.Text) || s.Start >= s.End {
		return Span{}
	}
	return Span{Start: n.starts[s.Start], End: n.ends[s.End-1]}
}

// RawBefore returns the last non-space rune of the raw string preceding the
// span, or 0 when there is none
func (n Normalized) RawBefore(s Span) rune {
	orig := n.Original(s)
	before := strings.TrimRightFunc(n.raw[:orig.Start], unicode.IsSpace)
	if before == "" {
		return 0
	}
	r, _ := utf8.DecodeLastRuneInString(before)
	return r
}

// Words splits Text into its space-separated words with their spans
func (n Normalized) Words() []Word {
	var words []Word
	start := -1
	for i := 0; i <= len(n.Text); i++ {
		if i == len(n.Text) || n.Text[i] == ' ' {
			if start >= 0 {
				words = append(words, Word{Text: n.Text[start:i], Span: Span{Start: start, End: i}})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return words
}

// Word is one space-separated token of normalized text
type Word struct {
	Text string
	Span Span
}

// Normalizer folds text. It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	units map[string]bool
}

// New creates a normalizer that glues the given units to preceding numbers
func New(units []string) *Normalizer {
	set := make(map[string]bool, len(units))
	for _, u := range units {
		u = strings.ToLower(strings.TrimSpace(u))
		if u != "" {
			set[u] = true
		}
	}
	return &Normalizer{units: set}
}

type token struct {
	text   []byte
	starts []int
	ends   []int
}

// Normalize case-folds the input, turns every run of non-alphanumeric runes
// into a single space and glues unit tokens onto the number before them
// ("16 GB" -> "16gb"). Fused tokens such as "rtx4070" are left intact.
func (n *Normalizer) Normalize(raw string) Normalized {
	folder := cases.Fold() // a Caser is stateful, never share it

	var tokens []token
	var cur token
	flush := func() {
		if len(cur.text) > 0 {
			tokens = append(tokens, cur)
		}
		cur = token{}
	}

	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[i:])
		end := i + size
		folded := folder.String(norm.NFKC.String(string(r)))
		for _, fr := range folded {
			if !isWordRune(fr) {
				flush()
				continue
			}
			var buf [utf8.UTFMax]byte
			w := utf8.EncodeRune(buf[:], fr)
			for b := 0; b < w; b++ {
				cur.text = append(cur.text, buf[b])
				cur.starts = append(cur.starts, i)
				cur.ends = append(cur.ends, end)
			}
		}
		i = end
	}
	flush()

	tokens = n.joinUnits(tokens)

	out := Normalized{raw: raw}
	var sb strings.Builder
	for idx, t := range tokens {
		if idx > 0 {
			prev := tokens[idx-1]
			sb.WriteByte(' ')
			gap := prev.ends[len(prev.ends)-1]
			out.starts = append(out.starts, gap)
			out.ends = append(out.ends, t.starts[0])
		}
		sb.Write(t.text)
		out.starts = append(out.starts, t.starts...)
		out.ends = append(out.ends, t.ends...)
	}
	out.Text = sb.String()
	return out
}

// joinUnits merges "16" "gb" into "16gb"
func (n *Normalizer) joinUnits(tokens []token) []token {
	if len(n.units) == 0 || len(tokens) < 2 {
		return tokens
	}
	joined := make([]token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if i+1 < len(tokens) && isDigits(t.text) && n.units[string(tokens[i+1].text)] {
			next := tokens[i+1]
			t.text = append(append([]byte{}, t.text...), next.text...)
			t.starts = append(append([]int{}, t.starts...), next.starts...)
			t.ends = append(append([]int{}, t.ends...), next.ends...)
			i++
		}
		joined = append(joined, t)
	}
	return joined
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
